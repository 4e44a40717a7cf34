package keyframe

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pithecene-io/keycut/ffmpeg"
	"github.com/pithecene-io/keycut/metrics"
	"github.com/pithecene-io/keycut/types"
)

func newStub(file string, keys Sequence, duration types.Timestamp) *ffmpeg.StubTool {
	stub := ffmpeg.NewStubTool()
	stub.KeyframeTimes[file] = keys
	if duration > 0 {
		stub.Durations[file] = duration
	}
	return stub
}

func TestWindow(t *testing.T) {
	tests := []struct {
		name   string
		window types.Span
		pad    types.Timestamp
		want   types.Span
	}{
		{"open", types.Span{}, types.Second, types.Span{}},
		{"saturates at zero", types.NewSpan(types.At(1_000_000), types.At(2_000_000)), 5 * types.Second,
			types.NewSpan(nil, types.At(7_000_000))},
		{"both padded", types.NewSpan(types.At(10_000_000), types.At(20_000_000)), types.Second,
			types.NewSpan(types.At(9_000_000), types.At(21_000_000))},
		{"open end stays open", types.NewSpan(types.At(10_000_000), nil), types.Second,
			types.NewSpan(types.At(9_000_000), nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Window(tt.window, tt.pad))
		})
	}
}

func TestIndex_Fetch_SortsAndPads(t *testing.T) {
	stub := newStub("in.mkv", Sequence{8_000_000, 0, 4_000_000, 2_000_000, 6_000_000}, 0)
	x := NewIndex(stub, Options{})

	got, err := x.Fetch(t.Context(), "in.mkv", types.NewSpan(types.At(7_000_000), types.At(7_500_000)), types.Second)
	require.NoError(t, err)
	assert.Equal(t, Sequence{6_000_000, 8_000_000}, got)

	calls := stub.CallsFor(ffmpeg.OpProbe)
	require.Len(t, calls, 1)
	assert.Equal(t, types.NewSpan(types.At(6_000_000), types.At(8_500_000)), calls[0].Window)
}

func TestIndex_Lookup_Scenarios(t *testing.T) {
	tests := []struct {
		name      string
		span      types.Span
		wantStart Match
		wantEnd   Match
	}{
		{"A", types.NewSpan(types.At(1_500_000), types.At(2_500_000)),
			Between(0, 1_500_000, 2_000_000), Between(2_000_000, 2_500_000, 4_000_000)},
		{"B", types.NewSpan(types.At(2_000_000), types.At(2_500_000)),
			Exact(2_000_000), Between(2_000_000, 2_500_000, 4_000_000)},
		{"C", types.Span{}, Boundary(0), Boundary(8_000_000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x := NewIndex(newStub("in.mkv", twoSecondGOPs, 0), Options{})
			res, err := x.Lookup(t.Context(), "in.mkv", tt.span)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStart, res.Start)
			assert.Equal(t, tt.wantEnd, res.End)
			assert.False(t, res.Widened)
		})
	}
}

func TestIndex_Lookup_FinalGOPUsesStreamEnd(t *testing.T) {
	stub := newStub("in.mkv", twoSecondGOPs, 9_500_000)
	x := NewIndex(stub, Options{Padding: types.Second})

	res, err := x.Lookup(t.Context(), "in.mkv", types.NewSpan(types.At(7_000_000), types.At(9_000_000)))
	require.NoError(t, err)
	assert.Equal(t, Between(6_000_000, 7_000_000, 8_000_000), res.Start)
	assert.Equal(t, Between(8_000_000, 9_000_000, 9_500_000), res.End)
	assert.True(t, res.HasDuration)
	assert.Equal(t, types.Timestamp(9_500_000), res.Duration)
}

func TestIndex_Lookup_OpenEndPinsToDuration(t *testing.T) {
	x := NewIndex(newStub("in.mkv", twoSecondGOPs, 9_500_000), Options{})

	res, err := x.Lookup(t.Context(), "in.mkv", types.Span{})
	require.NoError(t, err)
	assert.Equal(t, Boundary(9_500_000), res.End)
}

func TestIndex_Lookup_DurationOutsideWindowIsIgnored(t *testing.T) {
	// A long stream: the window around 3s cannot see the end at 60s.
	stub := newStub("in.mkv", twoSecondGOPs, 60_000_000)
	x := NewIndex(stub, Options{Padding: types.Second})

	res, err := x.Lookup(t.Context(), "in.mkv", types.NewSpan(types.At(3_000_000), types.At(3_500_000)))
	require.NoError(t, err)
	assert.Equal(t, Between(2_000_000, 3_500_000, 4_000_000), res.End)
	assert.NotContains(t, res.Keyframes, types.Timestamp(60_000_000))
}

func TestIndex_Lookup_WidensOnce(t *testing.T) {
	// Keyframes every 10s; 2s padding cannot bracket 15s, 8s can.
	keys := Sequence{0, 10_000_000, 20_000_000, 30_000_000}
	m := metrics.NewCollector("extract", "", "", false)
	stub := newStub("in.mkv", keys, 0)
	x := NewIndex(stub, Options{Padding: 2 * types.Second, Metrics: m})

	res, err := x.Lookup(t.Context(), "in.mkv", types.NewSpan(types.At(15_000_000), types.At(16_000_000)))
	require.NoError(t, err)
	assert.True(t, res.Widened)
	assert.Equal(t, Between(10_000_000, 15_000_000, 20_000_000), res.Start)
	assert.Equal(t, Between(10_000_000, 16_000_000, 20_000_000), res.End)
	assert.Equal(t, int64(1), m.Snapshot().WindowsWidened)

	windows := stub.CallsFor(ffmpeg.OpProbe)
	require.GreaterOrEqual(t, len(windows), 2)
	last := windows[len(windows)-1].Window
	assert.Equal(t, types.NewSpan(types.At(7_000_000), types.At(24_000_000)), last)
}

func TestIndex_Lookup_FailureScenario(t *testing.T) {
	// The first keyframe sits far past the requested start.
	keys := Sequence{60_000_000, 62_000_000}
	x := NewIndex(newStub("in.mkv", keys, 0), Options{})

	_, err := x.Lookup(t.Context(), "in.mkv", types.NewSpan(types.At(2_000_000), types.At(61_000_000)))
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrNoBracketingKeyframe)
}

func TestIndex_Lookup_InvalidSpan(t *testing.T) {
	x := NewIndex(newStub("in.mkv", twoSecondGOPs, 0), Options{})
	_, err := x.Lookup(t.Context(), "in.mkv", types.NewSpan(types.At(5), types.At(1)))
	assert.ErrorIs(t, err, types.ErrInvalidSpan)
}

func TestIndex_Lookup_ProbeFailure(t *testing.T) {
	m := metrics.NewCollector("extract", "", "", false)
	x := NewIndex(ffmpeg.NewStubTool(), Options{Metrics: m})

	_, err := x.Lookup(t.Context(), "missing.mkv", types.NewSpan(types.At(1), types.At(2)))
	assert.ErrorIs(t, err, types.ErrProbeFailure)
	assert.Equal(t, int64(1), m.Snapshot().ProbeFailures)
}

func TestIndex_Lookup_DegenerateSpan(t *testing.T) {
	x := NewIndex(newStub("in.mkv", twoSecondGOPs, 0), Options{})

	res, err := x.Lookup(t.Context(), "in.mkv", types.NewSpan(types.At(3_000_000), types.At(3_000_000)))
	require.NoError(t, err)
	assert.Equal(t, res.Start.Target, res.End.Target)
}

func TestIndex_FullScan_UsesCache(t *testing.T) {
	src := filepath.Join(t.TempDir(), "in.mkv")
	require.NoError(t, os.WriteFile(src, []byte("media"), 0o644))

	stub := newStub(src, twoSecondGOPs, 9_000_000)
	m := metrics.NewCollector("extract", "", "", false)
	x := NewIndex(stub, Options{FullScan: true, Cache: NewCache(), Metrics: m})

	for range 3 {
		_, err := x.Lookup(t.Context(), src, types.NewSpan(types.At(1_000_000), types.At(3_000_000)))
		require.NoError(t, err)
	}

	// One keyframe probe and one duration probe, then cache hits.
	assert.Len(t, stub.CallsFor(ffmpeg.OpProbe), 2)
	assert.Equal(t, int64(2), m.Snapshot().CacheHits)
}

func TestIndex_FullScan_ModifiedFileMisses(t *testing.T) {
	src := filepath.Join(t.TempDir(), "in.mkv")
	require.NoError(t, os.WriteFile(src, []byte("media"), 0o644))

	stub := newStub(src, twoSecondGOPs, 0)
	x := NewIndex(stub, Options{FullScan: true, Cache: NewCache()})

	_, err := x.Lookup(t.Context(), src, types.Span{})
	require.NoError(t, err)

	// Rewrite with a new size and mtime; the cached entry must not be used.
	require.NoError(t, os.WriteFile(src, []byte("longer media"), 0o644))
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(src, future, future))
	stub.KeyframeTimes[src] = Sequence{0, 5_000_000}

	res, err := x.Lookup(t.Context(), src, types.Span{})
	require.NoError(t, err)
	assert.Equal(t, Boundary(5_000_000), res.End)
}

func TestIndex_Duration(t *testing.T) {
	x := NewIndex(newStub("in.mkv", twoSecondGOPs, 9_000_000), Options{})
	d, ok, err := x.Duration(t.Context(), "in.mkv")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, types.Timestamp(9_000_000), d)
}

func TestIndex_Lookup_ToolErrorIsWrapped(t *testing.T) {
	stub := newStub("in.mkv", twoSecondGOPs, 0)
	stub.Fail = func(ffmpeg.Call) error {
		return &ffmpeg.ToolError{Op: ffmpeg.OpProbe, Program: "ffprobe", ExitCode: 1, Stderr: "moov atom not found"}
	}
	x := NewIndex(stub, Options{})

	_, err := x.Lookup(t.Context(), "in.mkv", types.NewSpan(types.At(1), types.At(2)))
	var toolErr *ffmpeg.ToolError
	require.True(t, errors.As(err, &toolErr))
	assert.Contains(t, err.Error(), "moov atom not found")
}
