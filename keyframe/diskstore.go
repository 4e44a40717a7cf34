package keyframe

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/pithecene-io/keycut/types"
)

// diskFormatVersion is bumped whenever diskRecord changes shape.
const diskFormatVersion = 1

// diskRecord is the msgpack layout of one stored entry.
type diskRecord struct {
	Version     int      `msgpack:"v"`
	Path        string   `msgpack:"path"`
	Size        int64    `msgpack:"size"`
	ModTime     int64    `msgpack:"mtime"`
	Keyframes   []uint64 `msgpack:"keyframes"`
	Duration    uint64   `msgpack:"duration"`
	HasDuration bool     `msgpack:"has_duration"`
}

// DiskStore persists whole-file entries as msgpack files in a directory,
// one file per source path. A nil *DiskStore stores nothing.
type DiskStore struct {
	dir string
}

// NewDiskStore creates a store rooted at dir, creating it if needed.
func NewDiskStore(dir string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create keyframe cache dir: %w", err)
	}
	return &DiskStore{dir: dir}, nil
}

// Dir returns the store directory.
func (s *DiskStore) Dir() string {
	return s.dir
}

func (s *DiskStore) pathFor(id Identity) string {
	sum := sha256.Sum256([]byte(id.Path))
	return filepath.Join(s.dir, hex.EncodeToString(sum[:16])+".msgpack")
}

// Load returns the entry stored for id. Missing files, decode errors and
// records written for another version of the file all miss.
func (s *DiskStore) Load(id Identity) (Entry, bool) {
	if s == nil {
		return Entry{}, false
	}
	data, err := os.ReadFile(s.pathFor(id))
	if err != nil {
		return Entry{}, false
	}
	var rec diskRecord
	if err := msgpack.Unmarshal(data, &rec); err != nil {
		return Entry{}, false
	}
	if rec.Version != diskFormatVersion || rec.Path != id.Path || rec.Size != id.Size || rec.ModTime != id.ModTime {
		return Entry{}, false
	}

	keys := make(Sequence, len(rec.Keyframes))
	for i, k := range rec.Keyframes {
		keys[i] = types.Timestamp(k)
	}
	return Entry{
		Keyframes:   keys,
		Duration:    types.Timestamp(rec.Duration),
		HasDuration: rec.HasDuration,
	}, true
}

// Save writes e for id, replacing any earlier record for the same path.
// The write goes through a temp file and rename so readers never observe
// a partial record.
func (s *DiskStore) Save(id Identity, e Entry) error {
	if s == nil {
		return nil
	}
	rec := diskRecord{
		Version:     diskFormatVersion,
		Path:        id.Path,
		Size:        id.Size,
		ModTime:     id.ModTime,
		Keyframes:   make([]uint64, len(e.Keyframes)),
		Duration:    uint64(e.Duration),
		HasDuration: e.HasDuration,
	}
	for i, k := range e.Keyframes {
		rec.Keyframes[i] = uint64(k)
	}

	data, err := msgpack.Marshal(&rec)
	if err != nil {
		return fmt.Errorf("encode keyframe record: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, ".keyframes-*")
	if err != nil {
		return fmt.Errorf("write keyframe record: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write keyframe record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("write keyframe record: %w", err)
	}
	if err := os.Rename(tmpName, s.pathFor(id)); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("write keyframe record: %w", err)
	}
	return nil
}
