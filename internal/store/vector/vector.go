// Package vector is a per-namespace approximate-nearest-neighbor store over
// fixed-dimension f32 embeddings, backed by chromem-go.
package vector

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	chromem "github.com/philippgille/chromem-go"
	"github.com/sirupsen/logrus"
)

// Record is one embedded chunk as stored in a namespace's collection.
type Record struct {
	ChunkID     string
	ContentHash string
	Vector      []float32
}

// Hit is one similarity search result.
type Hit struct {
	Namespace string
	ChunkID   string
	Distance  float64
}

// Score converts a Hit's L2 distance to the caller-facing score in (0, 1],
// monotonically decreasing in distance (spec §4.7).
func Score(distance float64) float64 {
	return 1 / (1 + distance)
}

// Store is the per-namespace vector index. Unlike the teacher's
// vectorstore.Store (one fixed "code-search" collection), this store
// allocates one chromem collection per namespace, created lazily on first
// insert and tracked in a sidecar manifest for restart-safe ListNamespaces.
type Store struct {
	mu      sync.RWMutex
	root    string
	db      *chromem.DB
	known   map[string]bool // escaped namespace -> present
	logger  *logrus.Logger
}

const manifestFile = "namespaces.json"

// New opens (or creates) a persistent vector store rooted at dir, e.g.
// "{index_root}/vectors".
func New(dir string, logger *logrus.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("vector: create store dir: %w", err)
	}
	dbPath := filepath.Join(dir, "chromem.gob")
	db, err := chromem.NewPersistentDB(dbPath, false)
	if err != nil {
		return nil, fmt.Errorf("vector: open chromem db: %w", err)
	}

	s := &Store{root: dir, db: db, known: map[string]bool{}, logger: logger}
	if err := s.loadManifest(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) manifestPath() string {
	return filepath.Join(s.root, manifestFile)
}

func (s *Store) loadManifest() error {
	data, err := os.ReadFile(s.manifestPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("vector: read namespace manifest: %w", err)
	}
	var escaped []string
	if err := json.Unmarshal(data, &escaped); err != nil {
		return fmt.Errorf("vector: parse namespace manifest: %w", err)
	}
	for _, e := range escaped {
		s.known[e] = true
	}
	return nil
}

func (s *Store) persistManifest() error {
	escaped := make([]string, 0, len(s.known))
	for e := range s.known {
		escaped = append(escaped, e)
	}
	sort.Strings(escaped)
	data, err := json.Marshal(escaped)
	if err != nil {
		return fmt.Errorf("vector: marshal namespace manifest: %w", err)
	}
	if err := os.WriteFile(s.manifestPath(), data, 0o600); err != nil {
		return fmt.Errorf("vector: write namespace manifest: %w", err)
	}
	return nil
}

func noOpEmbeddingFunc() chromem.EmbeddingFunc {
	return func(_ context.Context, _ string) ([]float32, error) {
		return nil, fmt.Errorf("vector: embeddings must be pre-computed")
	}
}

func (s *Store) collectionFor(namespace string) (*chromem.Collection, error) {
	esc := EscapeNamespace(namespace)
	coll, err := s.db.GetOrCreateCollection(esc, nil, noOpEmbeddingFunc())
	if err != nil {
		return nil, fmt.Errorf("vector: get or create collection %s: %w", namespace, err)
	}
	return coll, nil
}

// Insert appends records to namespace's collection; no replace semantics at
// the record level (spec §4.7).
func (s *Store) Insert(ctx context.Context, namespace string, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	coll, err := s.collectionFor(namespace)
	if err != nil {
		return err
	}

	docs := make([]chromem.Document, len(records))
	for i, r := range records {
		docs[i] = chromem.Document{
			ID:        r.ChunkID,
			Content:   r.ContentHash,
			Embedding: r.Vector,
			Metadata:  map[string]string{"content_hash": r.ContentHash},
		}
	}
	if err := coll.AddDocuments(ctx, docs, 1); err != nil {
		return fmt.Errorf("vector: add documents to %s: %w", namespace, err)
	}

	esc := EscapeNamespace(namespace)
	if !s.known[esc] {
		s.known[esc] = true
		if err := s.persistManifest(); err != nil {
			return err
		}
	}
	return nil
}

// Search returns the k most similar records in namespace, nearest first.
// Returns an empty slice with no error if namespace does not exist.
func (s *Store) Search(ctx context.Context, namespace string, query []float32, k int) ([]Hit, error) {
	s.mu.RLock()
	esc := EscapeNamespace(namespace)
	exists := s.known[esc]
	s.mu.RUnlock()
	if !exists || k <= 0 {
		return nil, nil
	}

	coll, err := s.collectionFor(namespace)
	if err != nil {
		return nil, err
	}
	n := coll.Count()
	if n == 0 {
		return nil, nil
	}
	if k > n {
		k = n
	}

	results, err := coll.QueryEmbedding(ctx, query, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("vector: query %s: %w", namespace, err)
	}
	hits := make([]Hit, len(results))
	for i, r := range results {
		// chromem-go stores and queries unit-normalised embeddings and reports
		// their cosine similarity; for unit vectors the L2 distance is
		// sqrt(2 - 2*similarity).
		distance := math.Sqrt(max(0, 2-2*float64(r.Similarity)))
		hits[i] = Hit{Namespace: namespace, ChunkID: r.ID, Distance: distance}
	}
	return hits, nil
}

// SearchMulti searches every namespace, merges, sorts ascending by
// distance, and truncates to k. The merge is stable: ties preserve the
// order hits were produced in (namespace order, then per-namespace rank).
func (s *Store) SearchMulti(ctx context.Context, namespaces []string, query []float32, k int) ([]Hit, error) {
	var all []Hit
	for _, ns := range namespaces {
		hits, err := s.Search(ctx, ns, query, k)
		if err != nil {
			return nil, err
		}
		all = append(all, hits...)
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Distance < all[j].Distance
	})
	if len(all) > k {
		all = all[:k]
	}
	return all, nil
}

// DeleteNamespace idempotently drops namespace's collection.
func (s *Store) DeleteNamespace(namespace string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	esc := EscapeNamespace(namespace)
	if !s.known[esc] {
		return nil
	}
	if err := s.db.DeleteCollection(esc); err != nil {
		return fmt.Errorf("vector: delete namespace %s: %w", namespace, err)
	}
	delete(s.known, esc)
	return s.persistManifest()
}

// ListNamespaces returns every known namespace, unescaped, sorted.
func (s *Store) ListNamespaces() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.known))
	for esc := range s.known {
		out = append(out, UnescapeNamespace(esc))
	}
	sort.Strings(out)
	return out
}

// EscapeNamespace makes a "{registry}/{name}/{version}" namespace string
// safe as a chromem collection name by escaping the reserved characters it
// may contain ('/' and '@'), plus the escape marker itself so the mapping
// is reversible.
func EscapeNamespace(ns string) string {
	ns = strings.ReplaceAll(ns, "~", "~t~")
	ns = strings.ReplaceAll(ns, "/", "~s~")
	ns = strings.ReplaceAll(ns, "@", "~a~")
	return ns
}

// UnescapeNamespace inverts EscapeNamespace.
func UnescapeNamespace(esc string) string {
	esc = strings.ReplaceAll(esc, "~a~", "@")
	esc = strings.ReplaceAll(esc, "~s~", "/")
	esc = strings.ReplaceAll(esc, "~t~", "~")
	return esc
}
