// Package meta is the relational store over Package, Version, and Chunk,
// backed by gorm and a pure-Go (cgo-free) SQLite driver.
package meta

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// VersionStatus is the state machine over a Version's indexing progress.
type VersionStatus string

const (
	StatusPending VersionStatus = "pending"
	StatusIndexed VersionStatus = "indexed"
	StatusFailed  VersionStatus = "failed"
	StatusSkipped VersionStatus = "skipped"

	// StatusInProgress is the additional state the spec's own open-question
	// discussion proposes for the concurrent-writer race: a Version claimed
	// by ClaimPending sits here until ResolveVersion moves it to Indexed,
	// Failed, or Skipped, so a second concurrent indexer's claim attempt
	// fails instead of racing past get_or_create_version.
	StatusInProgress VersionStatus = "in_progress"
)

// Package identifies a (registry, name) pair. Versions are separate
// entities; a Package persists when all of its Versions are deleted.
type Package struct {
	ID          uint   `gorm:"primaryKey"`
	Registry    string `gorm:"not null;uniqueIndex:idx_package_identity"`
	Name        string `gorm:"not null;uniqueIndex:idx_package_identity"`
	Description string
	CreatedAt   time.Time

	Versions []Version `gorm:"foreignKey:PackageID"`
}

// Version identifies a (package_id, version_string) pair and carries the
// state-machine status for one indexing attempt.
type Version struct {
	ID            uint          `gorm:"primaryKey"`
	PackageID     uint          `gorm:"not null;uniqueIndex:idx_version_identity;index"`
	VersionString string        `gorm:"not null;uniqueIndex:idx_version_identity"`
	Status        VersionStatus `gorm:"not null;index"`
	ErrorMessage  string
	ChunkCount    int
	IndexedAt     *time.Time
	CreatedAt     time.Time

	Chunks []Chunk `gorm:"foreignKey:VersionID"`
}

// Chunk is one stored extraction result: a named code declaration or
// Markdown code block, with its embedding packed alongside the row so the
// chunk table alone can rebuild the vector index.
type Chunk struct {
	ID            uint   `gorm:"primaryKey"`
	ChunkID       string `gorm:"not null;uniqueIndex"`
	VersionID     uint   `gorm:"not null;index"`
	Namespace     string `gorm:"not null;index"`
	ChunkType     string `gorm:"not null"`
	Name          string `gorm:"not null"`
	FilePath      string `gorm:"not null"`
	StartLine     int
	EndLine       int
	Visibility    string `gorm:"not null"`
	Signature     string
	Docstring     string
	Snippet       string `gorm:"not null"`
	StorageKey    string `gorm:"not null"`
	ContentHash   string `gorm:"not null;index"`
	EmbeddingData []byte `gorm:"column:embedding"`
}

// Store wraps a gorm.DB over the three tables.
type Store struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// Open opens (or creates) the SQLite database at path and runs migrations.
func Open(path string, logger *logrus.Logger) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("meta: open database: %w", err)
	}
	s := &Store{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

// migrate runs the current schema's AutoMigrate. Future schema versions
// should add a dedicated migration step here rather than rewriting this
// one, keeping migrations additive and ordered.
func (s *Store) migrate() error {
	if err := s.db.AutoMigrate(&Package{}, &Version{}, &Chunk{}); err != nil {
		return fmt.Errorf("meta: migrate schema: %w", err)
	}
	return nil
}

// PackFloat32 serializes an embedding vector as packed little-endian f32.
func PackFloat32(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// UnpackFloat32 inverts PackFloat32.
func UnpackFloat32(data []byte) []float32 {
	n := len(data) / 4
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return out
}

// GetOrCreatePackage returns the Package for (registry, name), creating it
// if absent. Packages are never automatically removed.
func (s *Store) GetOrCreatePackage(registry, name string) (*Package, error) {
	var pkg Package
	err := s.db.Where("registry = ? AND name = ?", registry, name).First(&pkg).Error
	if err == nil {
		return &pkg, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("meta: lookup package %s/%s: %w", registry, name, err)
	}

	pkg = Package{Registry: registry, Name: name, CreatedAt: time.Now()}
	if err := s.db.Create(&pkg).Error; err != nil {
		// Lost a create race against another writer; re-fetch.
		var existing Package
		if lookupErr := s.db.Where("registry = ? AND name = ?", registry, name).First(&existing).Error; lookupErr == nil {
			return &existing, nil
		}
		return nil, fmt.Errorf("meta: create package %s/%s: %w", registry, name, err)
	}
	return &pkg, nil
}

// GetOrCreateVersion returns the Version for (packageID, version), creating
// it in StatusPending if absent. An existing Version is returned unchanged
// whatever its status; a Failed or Skipped one is not reset here (that is
// Indexer.Retry's job) — callers decide whether to proceed based on the
// returned status.
//
// The transition that actually claims a version for indexing is
// ClaimPending, a single-row compare-and-set so two concurrent index
// invocations for the same version cannot both proceed past it.
func (s *Store) GetOrCreateVersion(packageID uint, version string) (*Version, error) {
	var v Version
	err := s.db.Where("package_id = ? AND version_string = ?", packageID, version).First(&v).Error
	if err == nil {
		return &v, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("meta: lookup version %d/%s: %w", packageID, version, err)
	}

	v = Version{PackageID: packageID, VersionString: version, Status: StatusPending, CreatedAt: time.Now()}
	if err := s.db.Create(&v).Error; err != nil {
		var existing Version
		if lookupErr := s.db.Where("package_id = ? AND version_string = ?", packageID, version).First(&existing).Error; lookupErr == nil {
			return &existing, nil
		}
		return nil, fmt.Errorf("meta: create version %d/%s: %w", packageID, version, err)
	}
	return &v, nil
}

// ClaimPending atomically transitions a Version from Pending to InProgress.
// Callers that win the claim (rowsAffected == 1) are the sole indexer for
// this version; the rest must back off rather than proceed to extraction.
func (s *Store) ClaimPending(versionID uint) (bool, error) {
	result := s.db.Model(&Version{}).
		Where("id = ? AND status = ?", versionID, StatusPending).
		Update("status", StatusInProgress)
	if result.Error != nil {
		return false, fmt.Errorf("meta: claim version %d: %w", versionID, result.Error)
	}
	return result.RowsAffected == 1, nil
}

// ResolveVersion finalizes a claimed Version's status (Indexed, Failed, or
// Skipped), recording chunk_count, indexed_at, and error_message as
// applicable.
func (s *Store) ResolveVersion(versionID uint, status VersionStatus, chunkCount int, errMsg string) error {
	updates := map[string]any{
		"status":        status,
		"chunk_count":   chunkCount,
		"error_message": errMsg,
	}
	if status == StatusIndexed {
		now := time.Now()
		updates["indexed_at"] = &now
	}
	if err := s.db.Model(&Version{}).Where("id = ?", versionID).Updates(updates).Error; err != nil {
		return fmt.Errorf("meta: resolve version %d: %w", versionID, err)
	}
	return nil
}

// ReleaseClaim reverts a claimed Version back to Pending, used when a
// claimant fails before reaching ResolveVersion (e.g. a crash mid-index).
func (s *Store) ReleaseClaim(versionID uint) error {
	if err := s.db.Model(&Version{}).
		Where("id = ? AND status = ?", versionID, StatusInProgress).
		Update("status", StatusPending).Error; err != nil {
		return fmt.Errorf("meta: release claim on version %d: %w", versionID, err)
	}
	return nil
}

// InsertChunks atomically inserts a batch of chunk rows for a Version.
func (s *Store) InsertChunks(chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	if err := s.db.Create(&chunks).Error; err != nil {
		return fmt.Errorf("meta: insert %d chunks: %w", len(chunks), err)
	}
	return nil
}

// GetChunkWithPackage hydrates a chunk row plus its owning Version and
// Package, for search-result assembly. Returns gorm.ErrRecordNotFound if
// the chunk has since been deleted (eventual-consistency defense against
// stale vector-store hits).
func (s *Store) GetChunkWithPackage(chunkID string) (*Chunk, *Version, *Package, error) {
	var chunk Chunk
	if err := s.db.Where("chunk_id = ?", chunkID).First(&chunk).Error; err != nil {
		return nil, nil, nil, err
	}
	var version Version
	if err := s.db.First(&version, chunk.VersionID).Error; err != nil {
		return nil, nil, nil, fmt.Errorf("meta: load version for chunk %s: %w", chunkID, err)
	}
	var pkg Package
	if err := s.db.First(&pkg, version.PackageID).Error; err != nil {
		return nil, nil, nil, fmt.Errorf("meta: load package for chunk %s: %w", chunkID, err)
	}
	return &chunk, &version, &pkg, nil
}

// DeleteVersion removes every Chunk row for versionID, then the Version
// row itself. Callers are responsible for deleting the corresponding
// vector-store namespace and blob prefix around this call, per the
// write-order discipline documented for indexer.RemoveVersion.
func (s *Store) DeleteVersion(versionID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("version_id = ?", versionID).Delete(&Chunk{}).Error; err != nil {
			return fmt.Errorf("meta: delete chunks for version %d: %w", versionID, err)
		}
		if err := tx.Delete(&Version{}, versionID).Error; err != nil {
			return fmt.Errorf("meta: delete version %d: %w", versionID, err)
		}
		return nil
	})
}

// DeletePackage removes every Version (and transitively every Chunk) owned
// by packageID, then the Package row. Vector namespaces and blob prefixes
// for each removed version are the caller's responsibility.
func (s *Store) DeletePackage(packageID uint) error {
	var versions []Version
	if err := s.db.Where("package_id = ?", packageID).Find(&versions).Error; err != nil {
		return fmt.Errorf("meta: list versions for package %d: %w", packageID, err)
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		for _, v := range versions {
			if err := tx.Where("version_id = ?", v.ID).Delete(&Chunk{}).Error; err != nil {
				return fmt.Errorf("meta: delete chunks for version %d: %w", v.ID, err)
			}
		}
		if err := tx.Where("package_id = ?", packageID).Delete(&Version{}).Error; err != nil {
			return fmt.Errorf("meta: delete versions for package %d: %w", packageID, err)
		}
		if err := tx.Delete(&Package{}, packageID).Error; err != nil {
			return fmt.Errorf("meta: delete package %d: %w", packageID, err)
		}
		return nil
	})
}

// ListVersionsByStatus returns every Version with the given status, for
// list/status/prune/retry commands. The owning Package rows are not loaded.
func (s *Store) ListVersionsByStatus(status VersionStatus) ([]Version, error) {
	var versions []Version
	if err := s.db.Where("status = ?", status).Find(&versions).Error; err != nil {
		return nil, fmt.Errorf("meta: list versions by status %s: %w", status, err)
	}
	return versions, nil
}

// NamespaceHasChunks reports whether any chunk row still references
// namespace, used by the vector-store orphan reaper (Indexer.PruneVectors).
func (s *Store) NamespaceHasChunks(namespace string) (bool, error) {
	var count int64
	if err := s.db.Model(&Chunk{}).Where("namespace = ?", namespace).Count(&count).Error; err != nil {
		return false, fmt.Errorf("meta: count chunks for namespace %s: %w", namespace, err)
	}
	return count > 0, nil
}

// GetPackage returns the Package with the given ID.
func (s *Store) GetPackage(id uint) (*Package, error) {
	var pkg Package
	if err := s.db.First(&pkg, id).Error; err != nil {
		return nil, fmt.Errorf("meta: load package %d: %w", id, err)
	}
	return &pkg, nil
}

// ListPackages returns every Package row.
func (s *Store) ListPackages() ([]Package, error) {
	var packages []Package
	if err := s.db.Find(&packages).Error; err != nil {
		return nil, fmt.Errorf("meta: list packages: %w", err)
	}
	return packages, nil
}

// ListVersions returns every Version owned by packageID.
func (s *Store) ListVersions(packageID uint) ([]Version, error) {
	var versions []Version
	if err := s.db.Where("package_id = ?", packageID).Find(&versions).Error; err != nil {
		return nil, fmt.Errorf("meta: list versions for package %d: %w", packageID, err)
	}
	return versions, nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("meta: get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}
