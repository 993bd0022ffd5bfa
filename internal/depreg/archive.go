package depreg

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/mholt/archives"
)

// Format identifies the archive container a registry delivers source in.
type Format int

const (
	FormatTarGz Format = iota
	FormatZip
)

// ExtractArchive streams every file entry out of an in-memory archive,
// strips the given leading path prefix (empty for Maven JARs), decodes each
// entry as UTF-8 and drops anything that isn't valid text, and applies the
// caller-supplied indexable-file predicate before returning it.
//
// Grounded on the teacher's archive-centric tools (which stage to disk via
// anchore/archiver); this is adapted to mholt/archives' streaming Extract so
// registry downloads never touch disk.
func ExtractArchive(ctx context.Context, format Format, data []byte, stripPrefix string, include func(path string) bool) ([]PackageFile, error) {
	var format_ archives.Extractor
	switch format {
	case FormatTarGz:
		format_ = archives.CompressedArchive{Compression: archives.Gz{}, Archival: archives.Tar{}}
	case FormatZip:
		format_ = archives.Zip{}
	default:
		return nil, fmt.Errorf("unknown archive format %d", format)
	}

	var files []PackageFile
	err := format_.Extract(ctx, bytes.NewReader(data), func(ctx context.Context, f archives.FileInfo) error {
		if f.IsDir() {
			return nil
		}
		path := normalizeArchivePath(f.NameInArchive, stripPrefix)
		if path == "" {
			return nil
		}
		if include != nil && !include(path) {
			return nil
		}

		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("open archive entry %s: %w", f.NameInArchive, err)
		}
		defer func() { _ = rc.Close() }()

		content, err := io.ReadAll(rc)
		if err != nil {
			return fmt.Errorf("read archive entry %s: %w", f.NameInArchive, err)
		}

		if !utf8.Valid(content) {
			return nil
		}

		files = append(files, PackageFile{Path: path, Content: string(content)})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// normalizeArchivePath strips the ecosystem-specific leading directory
// (e.g. "package/", "axios-1.7.9/", "github.com/BurntSushi/toml@v0.3.1/")
// from an archive entry path. An entry outside the prefix is dropped.
func normalizeArchivePath(entryPath, stripPrefix string) string {
	entryPath = strings.TrimPrefix(entryPath, "./")
	if stripPrefix == "" {
		return entryPath
	}
	if !strings.HasPrefix(entryPath, stripPrefix) {
		return ""
	}
	return strings.TrimPrefix(entryPath, stripPrefix)
}
