// Package indexer runs the end-to-end download -> chunk -> embed -> store
// pipeline for one (registry, name, version), and the remove/prune/retry
// operations that undo or recover it.
package indexer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/sammcj/depindex/internal/chunker"
	"github.com/sammcj/depindex/internal/depreg"
	"github.com/sammcj/depindex/internal/embed"
	"github.com/sammcj/depindex/internal/security"
	"github.com/sammcj/depindex/internal/store/blob"
	"github.com/sammcj/depindex/internal/store/meta"
	"github.com/sammcj/depindex/internal/store/vector"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// maxConcurrentParses bounds the fan-out over step 4's embarrassingly
// parallel per-file chunk extraction.
const maxConcurrentParses = 8

// IndexResult summarizes one IndexVersion call.
type IndexResult struct {
	Skipped    bool
	ChunkCount int
}

// RegistryResolver looks up the Client for a registry. *clients.Set
// satisfies this; tests substitute a fake.
type RegistryResolver interface {
	For(registry depreg.Registry) (depreg.Client, error)
}

// Indexer wires the registry clients, chunker, embedding client, and the
// three stores into the operation sequence spec.md §4.4 describes.
type Indexer struct {
	clients  RegistryResolver
	blobs    *blob.Store
	metadata *meta.Store
	vectors  *vector.Store
	embedder *embed.Client
	logger   *logrus.Logger
}

// New constructs an Indexer from its dependencies.
func New(clients RegistryResolver, blobs *blob.Store, metadata *meta.Store, vectors *vector.Store, embedder *embed.Client, logger *logrus.Logger) *Indexer {
	return &Indexer{clients: clients, blobs: blobs, metadata: metadata, vectors: vectors, embedder: embedder, logger: logger}
}

// Namespace builds the "{registry}/{name}/{version}" string used to
// partition the vector store and address blobs.
func Namespace(registry, name, version string) string {
	return registry + "/" + name + "/" + version
}

// IndexVersion runs steps 1-10 of the orchestrator for one dependency.
func (idx *Indexer) IndexVersion(ctx context.Context, registry depreg.Registry, name, version string) (*IndexResult, error) {
	pkg, err := idx.metadata.GetOrCreatePackage(string(registry), name)
	if err != nil {
		return nil, fmt.Errorf("indexer: get or create package %s/%s: %w", registry, name, err)
	}

	v, err := idx.metadata.GetOrCreateVersion(pkg.ID, version)
	if err != nil {
		return nil, fmt.Errorf("indexer: get or create version %s/%s@%s: %w", registry, name, version, err)
	}
	if v.Status == meta.StatusIndexed || v.Status == meta.StatusSkipped {
		return &IndexResult{Skipped: true}, nil
	}

	won, err := idx.metadata.ClaimPending(v.ID)
	if err != nil {
		return nil, fmt.Errorf("indexer: claim version %s/%s@%s: %w", registry, name, version, err)
	}
	if !won {
		// Another concurrent index invocation already owns this version.
		return &IndexResult{Skipped: true}, nil
	}

	client, err := idx.clients.For(registry)
	if err != nil {
		idx.fail(v.ID, err)
		return nil, err
	}

	files, err := client.DownloadSource(ctx, name, version)
	if err != nil {
		idx.fail(v.ID, err)
		return nil, err
	}

	files = idx.filterUnsafeFiles(registry, name, version, files)

	chunks := idx.parseFiles(ctx, files)
	if len(chunks) == 0 {
		if err := idx.metadata.ResolveVersion(v.ID, meta.StatusIndexed, 0, ""); err != nil {
			return nil, fmt.Errorf("indexer: resolve empty version %s/%s@%s: %w", registry, name, version, err)
		}
		return &IndexResult{ChunkCount: 0}, nil
	}

	vectors, err := idx.embedChunks(ctx, chunks)
	if err != nil {
		idx.fail(v.ID, err)
		return nil, err
	}

	namespace := Namespace(string(registry), name, version)
	vectorRecords := make([]vector.Record, len(chunks))
	chunkRecords := make([]meta.Chunk, len(chunks))
	for i, c := range chunks {
		hash := sha256.Sum256([]byte(c.Code))
		contentHash := hex.EncodeToString(hash[:])

		storageKey, err := idx.blobs.Put(string(registry), name, version, []byte(c.Code))
		if err != nil {
			idx.fail(v.ID, err)
			return nil, fmt.Errorf("indexer: store blob for %s: %w", c.Name, err)
		}

		chunkID := deriveChunkID(namespace, c.FilePath, c.StartByte, c.EndByte, c.Name, string(c.Type))

		vectorRecords[i] = vector.Record{ChunkID: chunkID, ContentHash: contentHash, Vector: vectors[i]}
		chunkRecords[i] = meta.Chunk{
			ChunkID:       chunkID,
			VersionID:     v.ID,
			Namespace:     namespace,
			ChunkType:     string(c.Type),
			Name:          c.Name,
			FilePath:      c.FilePath,
			StartLine:     c.StartLine,
			EndLine:       c.EndLine,
			Visibility:    string(c.Visibility),
			Signature:     c.Signature,
			Docstring:     c.Documentation,
			Snippet:       c.Code,
			StorageKey:    storageKey,
			ContentHash:   contentHash,
			EmbeddingData: meta.PackFloat32(vectors[i]),
		}
	}

	if err := idx.vectors.Insert(ctx, namespace, vectorRecords); err != nil {
		idx.fail(v.ID, err)
		return nil, fmt.Errorf("indexer: insert vectors for %s: %w", namespace, err)
	}

	if err := idx.metadata.InsertChunks(chunkRecords); err != nil {
		// The vector-store insert above is now orphaned until a later
		// PruneVectors reaper pass; see the spec's open question on
		// partial cross-store failure.
		idx.fail(v.ID, err)
		return nil, fmt.Errorf("indexer: insert chunk rows for %s: %w", namespace, err)
	}

	if err := idx.metadata.ResolveVersion(v.ID, meta.StatusIndexed, len(chunkRecords), ""); err != nil {
		return nil, fmt.Errorf("indexer: mark version indexed %s: %w", namespace, err)
	}

	return &IndexResult{ChunkCount: len(chunkRecords)}, nil
}

func (idx *Indexer) fail(versionID uint, err error) {
	if resolveErr := idx.metadata.ResolveVersion(versionID, meta.StatusFailed, 0, err.Error()); resolveErr != nil && idx.logger != nil {
		idx.logger.WithFields(logrus.Fields{"version_id": versionID, "error": resolveErr.Error()}).Error("failed to record version failure")
	}
}

// filterUnsafeFiles drops any downloaded file whose decoded content the
// content scanner blocks (an install script piping a network fetch into a
// shell, an explicit destructive command). A blocked file is excluded from
// chunking and logged; it never fails the whole version, since the rest of
// a package's source is still worth indexing. A merely-Warn verdict (e.g.
// what looks like embedded key material, which legitimately shows up in
// fixtures and test vectors) is logged but the file is still indexed.
func (idx *Indexer) filterUnsafeFiles(registry depreg.Registry, name, version string, files []depreg.PackageFile) []depreg.PackageFile {
	namespace := Namespace(string(registry), name, version)
	safe := make([]depreg.PackageFile, 0, len(files))
	for _, f := range files {
		result, err := security.AnalyseContent(f.Content, security.SourceContext{
			URL:  namespace + "/" + f.Path,
			Tool: "indexer",
		})
		if err != nil || result == nil {
			safe = append(safe, f)
			continue
		}
		switch result.Action {
		case security.ActionBlock:
			if idx.logger != nil {
				idx.logger.WithFields(logrus.Fields{"namespace": namespace, "file": f.Path, "reason": result.Message}).Warn("file excluded from indexing by content scan")
			}
		case security.ActionWarn:
			if idx.logger != nil {
				idx.logger.WithFields(logrus.Fields{"namespace": namespace, "file": f.Path, "reason": result.Message}).Debug("content scan flagged file, indexing anyway")
			}
			safe = append(safe, f)
		default:
			safe = append(safe, f)
		}
	}
	return safe
}

// parseFiles chunks every file concurrently; an unsupported language or a
// parse failure yields an empty chunk list for that file rather than
// aborting the whole version.
func (idx *Indexer) parseFiles(ctx context.Context, files []depreg.PackageFile) []chunker.CodeChunk {
	results := make([][]chunker.CodeChunk, len(files))
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentParses)

	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			chunks, err := chunker.Parse([]byte(f.Content), f.Path)
			if err != nil {
				if idx.logger != nil {
					idx.logger.WithFields(logrus.Fields{"file": f.Path, "error": err.Error()}).Debug("chunk extraction failed")
				}
				return nil
			}
			results[i] = chunks
			return nil
		})
	}
	_ = g.Wait()

	var all []chunker.CodeChunk
	for _, r := range results {
		all = append(all, r...)
	}
	return all
}

// embedChunks vectorizes every chunk's embedding text, preserving order;
// batching into requests of at most 100 inputs is the embed.Client's job.
func (idx *Indexer) embedChunks(ctx context.Context, chunks []chunker.CodeChunk) ([][]float32, error) {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = chunker.EmbeddingText(c)
	}
	return idx.embedder.EmbedBatch(ctx, texts)
}

func deriveChunkID(namespace, filePath string, startByte, endByte uint32, name, chunkType string) string {
	h := sha256.New()
	_, _ = fmt.Fprintf(h, "%s\x00%s\x00%d\x00%d\x00%s\x00%s", namespace, filePath, startByte, endByte, name, chunkType)
	return hex.EncodeToString(h.Sum(nil))
}

// RemoveVersion deletes a single Version: its chunk rows and the Version row
// together in one metadata transaction, then its vector namespace, then its
// blob prefix. The Version row is gone before the vector and blob deletions
// run.
func (idx *Indexer) RemoveVersion(registry, name, version string) error {
	pkg, err := idx.metadata.GetOrCreatePackage(registry, name)
	if err != nil {
		return fmt.Errorf("indexer: lookup package %s/%s: %w", registry, name, err)
	}
	v, err := idx.metadata.GetOrCreateVersion(pkg.ID, version)
	if err != nil {
		return fmt.Errorf("indexer: lookup version %s/%s@%s: %w", registry, name, version, err)
	}

	namespace := Namespace(registry, name, version)
	if err := idx.metadata.DeleteVersion(v.ID); err != nil {
		return fmt.Errorf("indexer: delete version rows %s: %w", namespace, err)
	}
	if err := idx.vectors.DeleteNamespace(namespace); err != nil {
		return fmt.Errorf("indexer: delete vector namespace %s: %w", namespace, err)
	}
	if err := idx.blobs.DeletePackage(registry, name, version); err != nil {
		return fmt.Errorf("indexer: delete blobs for %s: %w", namespace, err)
	}
	return nil
}

// RemovePackage deletes the vector namespace and then the blob prefix of
// every Version the package owns, then deletes every chunk row, every
// Version row and the Package row in one metadata transaction. It does not
// call RemoveVersion.
func (idx *Indexer) RemovePackage(registry, name string) error {
	pkg, err := idx.metadata.GetOrCreatePackage(registry, name)
	if err != nil {
		return fmt.Errorf("indexer: lookup package %s/%s: %w", registry, name, err)
	}
	versions, err := idx.metadata.ListVersions(pkg.ID)
	if err != nil {
		return fmt.Errorf("indexer: list versions for %s/%s: %w", registry, name, err)
	}
	for _, v := range versions {
		namespace := Namespace(registry, name, v.VersionString)
		if err := idx.vectors.DeleteNamespace(namespace); err != nil {
			return fmt.Errorf("indexer: delete vector namespace %s: %w", namespace, err)
		}
		if err := idx.blobs.DeletePackage(registry, name, v.VersionString); err != nil {
			return fmt.Errorf("indexer: delete blobs for %s: %w", namespace, err)
		}
	}
	if err := idx.metadata.DeletePackage(pkg.ID); err != nil {
		return fmt.Errorf("indexer: delete package %s/%s: %w", registry, name, err)
	}
	return nil
}

// Retry transitions a Failed or Skipped Version back to Pending and clears
// its error message, so a subsequent IndexVersion call proceeds from step 3.
func (idx *Indexer) Retry(registry, name, version string) error {
	pkg, err := idx.metadata.GetOrCreatePackage(registry, name)
	if err != nil {
		return fmt.Errorf("indexer: lookup package %s/%s: %w", registry, name, err)
	}
	v, err := idx.metadata.GetOrCreateVersion(pkg.ID, version)
	if err != nil {
		return fmt.Errorf("indexer: lookup version %s/%s@%s: %w", registry, name, version, err)
	}
	if v.Status != meta.StatusFailed && v.Status != meta.StatusSkipped {
		return fmt.Errorf("indexer: version %s/%s@%s is not failed or skipped (status=%s)", registry, name, version, v.Status)
	}
	if err := idx.metadata.ResolveVersion(v.ID, meta.StatusPending, 0, ""); err != nil {
		return fmt.Errorf("indexer: retry version %s/%s@%s: %w", registry, name, version, err)
	}
	return nil
}

// Skip marks a Version Skipped directly, without attempting to download or
// parse it. A subsequent `retry` transitions it back to Pending.
func (idx *Indexer) Skip(registry depreg.Registry, name, version string) error {
	pkg, err := idx.metadata.GetOrCreatePackage(string(registry), name)
	if err != nil {
		return fmt.Errorf("indexer: lookup package %s/%s: %w", registry, name, err)
	}
	v, err := idx.metadata.GetOrCreateVersion(pkg.ID, version)
	if err != nil {
		return fmt.Errorf("indexer: lookup version %s/%s@%s: %w", registry, name, version, err)
	}
	if err := idx.metadata.ResolveVersion(v.ID, meta.StatusSkipped, 0, "skipped by user"); err != nil {
		return fmt.Errorf("indexer: skip version %s/%s@%s: %w", registry, name, version, err)
	}
	return nil
}

// PruneVectors lists every vector-store namespace and drops any with no
// corresponding chunk rows, reaping the orphan window the spec's partial
// cross-store-failure open question accepts (step 8 can succeed while
// step 9 fails). Returns the namespaces it removed.
func (idx *Indexer) PruneVectors() ([]string, error) {
	namespaces := idx.vectors.ListNamespaces()
	var pruned []string
	for _, ns := range namespaces {
		hasChunks, err := idx.metadata.NamespaceHasChunks(ns)
		if err != nil {
			return pruned, fmt.Errorf("indexer: check namespace %s: %w", ns, err)
		}
		if hasChunks {
			continue
		}
		if err := idx.vectors.DeleteNamespace(ns); err != nil {
			return pruned, fmt.Errorf("indexer: prune namespace %s: %w", ns, err)
		}
		pruned = append(pruned, ns)
	}
	return pruned, nil
}
