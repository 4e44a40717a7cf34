// Package journal persists finished edits to a lode dataset and reads them
// back for the history command.
//
// Records are JSONL, Hive-partitioned by operation, day and edit_id. The
// filesystem and S3 backends share one layout, so a journal written locally
// can be synced to a bucket and queried there.
package journal

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/justapithecus/lode/lode"

	"github.com/pithecene-io/keycut/metrics"
)

// DefaultDataset is the journal dataset ID.
const DefaultDataset = "keycut"

// Backend names.
const (
	BackendFS     = "fs"
	BackendS3     = "s3"
	BackendMemory = "memory"
)

// partitionKeys is the Hive layout shared by the write and read paths.
var partitionKeys = []string{"operation", "day", "edit_id"}

// Config selects the journal backend.
type Config struct {
	// Dataset is the lode dataset ID (default "keycut").
	Dataset string
	// Backend is "fs", "s3" or "memory".
	Backend string
	// Path is the root directory for fs, or "bucket/prefix" for s3.
	Path string
	// S3 holds the remaining S3 settings; Bucket and Prefix are taken from
	// Path when empty.
	S3 S3Config
}

// Journal writes and reads edit records.
type Journal struct {
	mu      sync.Mutex
	dataset lode.Dataset
	backend string
	metrics *metrics.Collector
}

// Open opens the journal described by cfg.
func Open(ctx context.Context, cfg Config, m *metrics.Collector) (*Journal, error) {
	if cfg.Dataset == "" {
		cfg.Dataset = DefaultDataset
	}

	var factory lode.StoreFactory
	switch cfg.Backend {
	case "", BackendFS:
		if cfg.Path == "" {
			return nil, fmt.Errorf("journal: fs backend requires a path")
		}
		if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
			return nil, wrap(err, "init", cfg.Path)
		}
		cfg.Backend = BackendFS
		factory = lode.NewFSFactory(cfg.Path)
	case BackendS3:
		s3cfg := cfg.S3
		if s3cfg.Bucket == "" {
			s3cfg.Bucket, s3cfg.Prefix = ParseS3Path(cfg.Path)
		}
		f, err := newS3Factory(ctx, s3cfg)
		if err != nil {
			return nil, wrap(err, "init", cfg.Dataset)
		}
		factory = f
	case BackendMemory:
		factory = lode.NewMemoryFactory()
	default:
		return nil, fmt.Errorf("journal: unknown backend %q (want fs, s3 or memory)", cfg.Backend)
	}

	j, err := NewWithFactory(cfg.Dataset, factory, m)
	if err != nil {
		return nil, err
	}
	j.backend = cfg.Backend
	return j, nil
}

// NewWithFactory creates a journal over a custom store factory.
// Use lode.NewMemoryFactory() for testing.
func NewWithFactory(dataset string, factory lode.StoreFactory, m *metrics.Collector) (*Journal, error) {
	ds, err := newDataset(dataset, factory)
	if err != nil {
		return nil, wrap(err, "init", dataset)
	}
	return &Journal{dataset: ds, backend: BackendMemory, metrics: m}, nil
}

func newDataset(dataset string, factory lode.StoreFactory) (lode.Dataset, error) {
	return lode.NewDataset(
		lode.DatasetID(dataset),
		factory,
		lode.WithHiveLayout(partitionKeys...),
		lode.WithCodec(lode.NewJSONLCodec()),
	)
}

// Backend returns the configured backend name.
func (j *Journal) Backend() string {
	return j.backend
}

// Dataset returns the underlying lode dataset.
func (j *Journal) Dataset() lode.Dataset {
	return j.dataset
}

// Record appends rec as one snapshot. The write outcome is counted on the
// journal's metrics collector.
func (j *Journal) Record(ctx context.Context, rec EditRecord) error {
	if rec.EditID == "" || rec.Operation == "" || rec.Day == "" {
		return fmt.Errorf("journal: record requires edit_id, operation and day")
	}
	item, err := rec.toMap()
	if err != nil {
		return err
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if _, err := j.dataset.Write(ctx, []any{item}, lode.Metadata{}); err != nil {
		j.metrics.IncJournalWriteFailure()
		return wrap(err, "write", string(j.dataset.ID()))
	}
	j.metrics.IncJournalWriteSuccess()
	return nil
}

// Close releases journal resources.
func (j *Journal) Close() error {
	return nil
}
