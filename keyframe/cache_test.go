package keyframe

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pithecene-io/keycut/types"
)

func writeSource(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "src.mkv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestIdentify(t *testing.T) {
	path := writeSource(t, "abc")
	id, err := Identify(path)
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(id.Path))
	assert.Equal(t, int64(3), id.Size)
	assert.NotZero(t, id.ModTime)

	_, err = Identify(filepath.Join(t.TempDir(), "missing.mkv"))
	assert.Error(t, err)

	_, err = Identify(t.TempDir())
	assert.Error(t, err)
}

func TestCache_PutReplacesOlderVersion(t *testing.T) {
	c := NewCache()
	old := Identity{Path: "/a.mkv", Size: 1, ModTime: 1}
	cur := Identity{Path: "/a.mkv", Size: 2, ModTime: 2}

	c.Put(old, Entry{Keyframes: Sequence{0}})
	c.Put(cur, Entry{Keyframes: Sequence{0, 1}})

	_, ok := c.Get(old)
	assert.False(t, ok, "stale identity should be gone")
	e, ok := c.Get(cur)
	require.True(t, ok)
	assert.Equal(t, Sequence{0, 1}, e.Keyframes)
	assert.Equal(t, 1, c.Len())
}

func TestCache_Invalidate(t *testing.T) {
	c := NewCache()
	c.Put(Identity{Path: "/a.mkv"}, Entry{})
	c.Put(Identity{Path: "/b.mkv"}, Entry{})

	c.Invalidate("/a.mkv")
	assert.Equal(t, 1, c.Len())
}

func TestCache_NilSafe(t *testing.T) {
	var c *Cache
	c.Put(Identity{Path: "/a"}, Entry{})
	c.Invalidate("/a")
	_, ok := c.Get(Identity{Path: "/a"})
	assert.False(t, ok)
	assert.Zero(t, c.Len())
}

func TestCache_ConcurrentAccess(t *testing.T) {
	c := NewCache()
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := Identity{Path: filepath.Join("/media", string(rune('a'+i)))}
			for range 100 {
				c.Put(id, Entry{Keyframes: Sequence{0}})
				c.Get(id)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 8, c.Len())
}

func TestDiskStore_RoundTrip(t *testing.T) {
	store, err := NewDiskStore(filepath.Join(t.TempDir(), "cache"))
	require.NoError(t, err)

	id, err := Identify(writeSource(t, "media"))
	require.NoError(t, err)
	entry := Entry{Keyframes: Sequence{0, 2_000_000}, Duration: 3_000_000, HasDuration: true}
	require.NoError(t, store.Save(id, entry))

	got, ok := store.Load(id)
	require.True(t, ok)
	assert.Equal(t, entry, got)
}

func TestDiskStore_IdentityMismatchMisses(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)

	id := Identity{Path: "/media/a.mkv", Size: 10, ModTime: 100}
	require.NoError(t, store.Save(id, Entry{Keyframes: Sequence{0}}))

	changed := id
	changed.ModTime = 200
	_, ok := store.Load(changed)
	assert.False(t, ok)
}

func TestDiskStore_CorruptRecordMisses(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)

	id := Identity{Path: "/media/a.mkv", Size: 10, ModTime: 100}
	require.NoError(t, os.WriteFile(store.pathFor(id), []byte{0xc1, 0xff, 0x00}, 0o644))

	_, ok := store.Load(id)
	assert.False(t, ok)
}

func TestIndex_DiskStoreSurvivesNewProcess(t *testing.T) {
	src := writeSource(t, "media")
	dir := t.TempDir()

	first, err := NewDiskStore(dir)
	require.NoError(t, err)
	stub := newStub(src, twoSecondGOPs, 9_000_000)
	_, err = NewIndex(stub, Options{FullScan: true, Store: first}).Lookup(t.Context(), src, types.Span{})
	require.NoError(t, err)

	// A fresh index with an empty memory cache reads the stored entry.
	second, err := NewDiskStore(dir)
	require.NoError(t, err)
	fresh := newStub(src, nil, 0)
	res, err := NewIndex(fresh, Options{FullScan: true, Store: second, Cache: NewCache()}).Lookup(t.Context(), src, types.Span{})
	require.NoError(t, err)
	assert.Empty(t, fresh.Calls)
	assert.Equal(t, Boundary(9_000_000), res.End)
}

func TestSummarize(t *testing.T) {
	s := Summarize(twoSecondGOPs, 10_000_000, true)
	assert.Equal(t, 5, s.Count)
	assert.InDelta(t, 2000.0, s.SpacingMs, 0.001)
	assert.InDelta(t, 2000.0, s.FrequencyMs, 0.001)
	assert.Equal(t, twoSecondGOPs[4], s.Last)

	empty := Summarize(nil, 0, false)
	assert.Zero(t, empty.Count)
	assert.Zero(t, empty.FrequencyMs)
}
