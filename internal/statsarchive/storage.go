// Package statsarchive archives periodic scheduler statistics snapshots to
// local disk or Tencent COS, independent of the in-memory scheduling tree
// itself. Archiving is best-effort observability tooling: the scheduler runs
// unchanged whether or not an archive backend is configured.
package statsarchive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/pktsched/pktsched/pkg/compression"
	"github.com/pktsched/pktsched/pkg/config"
)

// Storage defines the interface for object storage operations.
type Storage interface {
	// Upload uploads data from reader to the specified key.
	Upload(ctx context.Context, key string, reader io.Reader) error

	// UploadFile uploads a local file to the specified key.
	UploadFile(ctx context.Context, key string, localPath string) error

	// Download downloads data from the specified key.
	Download(ctx context.Context, key string) (io.ReadCloser, error)

	// DownloadFile downloads data from the specified key to a local file.
	DownloadFile(ctx context.Context, key string, localPath string) error

	// Delete deletes the object at the specified key.
	Delete(ctx context.Context, key string) error

	// Exists checks if an object exists at the specified key.
	Exists(ctx context.Context, key string) (bool, error)

	// GetURL returns the URL for the specified key (if applicable).
	GetURL(key string) string
}

// StorageType represents the type of storage backend.
type StorageType string

const (
	StorageTypeLocal StorageType = "local"
	StorageTypeCOS   StorageType = "cos"
)

// NewStorage creates a new Storage instance based on the configuration.
func NewStorage(cfg *config.StorageConfig) (Storage, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}

	switch StorageType(cfg.Type) {
	case StorageTypeLocal:
		return NewLocalStorage(cfg.LocalPath)
	case StorageTypeCOS:
		return NewCOSStorage(&COSConfig{
			Bucket:    cfg.Bucket,
			Region:    cfg.Region,
			SecretID:  cfg.SecretID,
			SecretKey: cfg.SecretKey,
			Domain:    cfg.Domain,
			Scheme:    cfg.Scheme,
		})
	default:
		return NewLocalStorage(cfg.LocalPath)
	}
}

// ValidateConfig validates the storage configuration.
func ValidateConfig(cfg *config.StorageConfig) error {
	if cfg == nil {
		return fmt.Errorf("storage config is nil")
	}

	storageType := StorageType(cfg.Type)

	// Empty type defaults to local
	if storageType == "" {
		storageType = StorageTypeLocal
	}

	if storageType != StorageTypeCOS && storageType != StorageTypeLocal {
		return fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}

	if storageType == StorageTypeCOS {
		if cfg.Bucket == "" {
			return fmt.Errorf("COS bucket is required")
		}
		if cfg.Region == "" {
			return fmt.Errorf("COS region is required")
		}
		if cfg.SecretID == "" || cfg.SecretKey == "" {
			return fmt.Errorf("COS credentials are required")
		}
	}

	if storageType == StorageTypeLocal {
		if cfg.LocalPath == "" {
			return fmt.Errorf("local storage path is required")
		}
	}

	return nil
}

// Archiver serializes and compresses periodic scheduler statistics snapshots
// and hands them to a Storage backend under a key derived from the tree name
// and the snapshot's sequence number.
type Archiver struct {
	backend    Storage
	compressor compression.Compressor
}

// NewArchiver wraps a Storage backend with the given compressor. A nil
// compressor disables compression.
func NewArchiver(backend Storage, compressor compression.Compressor) *Archiver {
	if compressor == nil {
		compressor = compression.NewNoOpCompressor()
	}
	return &Archiver{backend: backend, compressor: compressor}
}

// Snapshot is one archived record of a scheduling tree's statistics at a
// point in time.
type Snapshot struct {
	TreeName  string                 `json:"tree_name"`
	Sequence  uint64                 `json:"sequence"`
	TSC       uint64                 `json:"tsc"`
	Nodes     []NodeStatsSnapshot    `json:"nodes"`
	Extra     map[string]interface{} `json:"extra,omitempty"`
}

// NodeStatsSnapshot is the archived statistics of a single node.
type NodeStatsSnapshot struct {
	Name          string    `json:"name"`
	Policy        string    `json:"policy"`
	Blocked       bool      `json:"blocked"`
	CntThrottled  uint64    `json:"cnt_throttled"`
	Usage         [4]uint64 `json:"usage"`
}

// Archive compresses and uploads a snapshot under a deterministic key.
func (a *Archiver) Archive(ctx context.Context, snap Snapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	compressed, err := a.compressor.Compress(raw)
	if err != nil {
		return fmt.Errorf("failed to compress snapshot: %w", err)
	}

	key := fmt.Sprintf("%s/%020d.%s", snap.TreeName, snap.Sequence, a.compressor.Name())
	if err := a.backend.Upload(ctx, key, bytes.NewReader(compressed)); err != nil {
		return fmt.Errorf("failed to archive snapshot: %w", err)
	}
	return nil
}

// Fetch downloads and decompresses a previously archived snapshot.
func (a *Archiver) Fetch(ctx context.Context, treeName string, sequence uint64) (*Snapshot, error) {
	key := fmt.Sprintf("%s/%020d.%s", treeName, sequence, a.compressor.Name())
	rc, err := a.backend.Download(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch snapshot: %w", err)
	}
	defer rc.Close()

	compressed, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	raw, err := a.compressor.Decompress(compressed)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &snap, nil
}
