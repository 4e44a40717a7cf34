package keyframe

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/pithecene-io/keycut/metrics"
	"github.com/pithecene-io/keycut/types"
)

// DefaultPadding is how far beyond each requested edit point the probe
// window reaches by default.
const DefaultPadding = 5 * types.Second

// widenFactor multiplies the padding for the single retry after a
// bracketing miss.
const widenFactor = 4

// Prober lists keyframes and container durations.
// ffmpeg.Tool satisfies it.
type Prober interface {
	Keyframes(ctx context.Context, file string, window types.Span) ([]types.Timestamp, error)
	Duration(ctx context.Context, file string) (types.Timestamp, bool, error)
}

// Options configures an Index.
type Options struct {
	// Padding widens the probe window on both sides of the requested span.
	// Zero uses DefaultPadding.
	Padding types.Timestamp
	// FullScan probes whole files instead of padded windows. Combined with
	// a cache this trades one long probe for reuse across edits.
	FullScan bool
	// Cache holds whole-file sequences in memory. Optional.
	Cache *Cache
	// Store persists whole-file sequences across runs. Optional.
	Store *DiskStore
	// Metrics receives probe and cache counters. Optional.
	Metrics *metrics.Collector
}

// Index resolves requested spans against a file's keyframes.
type Index struct {
	prober  Prober
	padding types.Timestamp
	full    bool
	cache   *Cache
	store   *DiskStore
	metrics *metrics.Collector
}

// NewIndex creates an Index backed by prober.
func NewIndex(prober Prober, opts Options) *Index {
	if opts.Padding == 0 {
		opts.Padding = DefaultPadding
	}
	return &Index{
		prober:  prober,
		padding: opts.Padding,
		full:    opts.FullScan,
		cache:   opts.Cache,
		store:   opts.Store,
		metrics: opts.Metrics,
	}
}

// Padding returns the configured probe padding.
func (x *Index) Padding() types.Timestamp {
	return x.padding
}

// Resolution is the outcome of resolving a span against the index.
type Resolution struct {
	// Keyframes is the sequence the matches were computed against,
	// including the terminal cut point when one was appended.
	Keyframes Sequence
	Start     Match
	End       Match
	// Duration is the container duration, when it was needed and known.
	Duration    types.Timestamp
	HasDuration bool
	// Widened reports that the first window missed a bracketing keyframe
	// and the lookup was retried with a wider one.
	Widened bool
}

// Window returns window padded by padding on both sides. The start
// saturates at zero and is dropped there; an open end stays open.
func Window(window types.Span, padding types.Timestamp) types.Span {
	var out types.Span
	if window.Start != nil {
		if s := window.Start.SaturatingSub(padding); s > 0 {
			out.Start = types.At(s)
		}
	}
	if window.End != nil {
		out.End = types.At(window.End.SaturatingAdd(padding))
	}
	return out
}

// Fetch returns the sorted keyframes of file within window widened by
// padding. Unbounded windows go through the cache when one is configured.
func (x *Index) Fetch(ctx context.Context, file string, window types.Span, padding types.Timestamp) (Sequence, error) {
	probeWindow := Window(window, padding)
	if probeWindow.Start == nil && probeWindow.End == nil {
		entry, err := x.wholeFile(ctx, file)
		if err != nil {
			return nil, err
		}
		return entry.Keyframes, nil
	}
	return x.probe(ctx, file, probeWindow)
}

// Duration returns the container duration of file.
func (x *Index) Duration(ctx context.Context, file string) (types.Timestamp, bool, error) {
	if x.full {
		entry, err := x.wholeFile(ctx, file)
		if err != nil {
			return 0, false, err
		}
		return entry.Duration, entry.HasDuration, nil
	}
	if _, entry, ok := x.cached(file); ok {
		return entry.Duration, entry.HasDuration, nil
	}
	return x.duration(ctx, file)
}

// Lookup matches both ends of span against the keyframes of file.
//
// The first attempt probes with the configured padding. A bracketing miss
// is retried once with the padding multiplied by four before it is
// reported. When the probed window reaches the end of the stream and the
// container duration lies past the last keyframe, the duration is appended
// as a terminal cut point so targets in the final GOP still bracket.
func (x *Index) Lookup(ctx context.Context, file string, span types.Span) (*Resolution, error) {
	if err := span.Validate(); err != nil {
		return nil, err
	}

	if x.full {
		entry, err := x.wholeFile(ctx, file)
		if err != nil {
			return nil, err
		}
		return resolve(withTerminal(entry.Keyframes, entry.Duration, entry.HasDuration), span, entry)
	}

	res, err := x.lookup(ctx, file, span, x.padding)
	if err == nil || !errors.Is(err, types.ErrNoBracketingKeyframe) {
		return res, err
	}
	if span.Start == nil && span.End == nil {
		// Nothing to widen: the window was already the whole file.
		return nil, err
	}

	x.metrics.IncWindowWidened()
	padding := x.padding
	for range widenFactor - 1 {
		padding = padding.SaturatingAdd(x.padding)
	}
	res, err = x.lookup(ctx, file, span, padding)
	if err != nil {
		return nil, fmt.Errorf("after widening probe window to %s: %w", padding, err)
	}
	res.Widened = true
	return res, nil
}

func (x *Index) lookup(ctx context.Context, file string, span types.Span, padding types.Timestamp) (*Resolution, error) {
	window := Window(span, padding)
	if window.Start == nil && window.End == nil {
		entry, err := x.wholeFile(ctx, file)
		if err != nil {
			return nil, err
		}
		return resolve(withTerminal(entry.Keyframes, entry.Duration, entry.HasDuration), span, entry)
	}

	keys, err := x.probe(ctx, file, window)
	if err != nil {
		return nil, err
	}

	var entry Entry
	if needsDuration(keys, span, window) {
		d, ok, err := x.Duration(ctx, file)
		if err != nil {
			return nil, err
		}
		entry.Duration, entry.HasDuration = d, ok
		// Only a window that reaches the stream end may end at the duration.
		if ok && (window.End == nil || d <= *window.End) {
			keys = withTerminal(keys, d, ok)
		}
	}
	return resolve(keys, span, entry)
}

// needsDuration reports whether the stream end may be needed to bracket
// a target: the window is open-ended, or a target lies at or past the last
// fetched keyframe.
func needsDuration(keys Sequence, span types.Span, window types.Span) bool {
	if len(keys) == 0 {
		return false
	}
	last := keys[len(keys)-1]
	if window.End == nil {
		return true
	}
	if span.End != nil && *span.End > last {
		return true
	}
	return span.Start != nil && *span.Start > last
}

// withTerminal appends d when it lies past the last keyframe.
func withTerminal(keys Sequence, d types.Timestamp, ok bool) Sequence {
	if !ok || len(keys) == 0 || d <= keys[len(keys)-1] {
		return keys
	}
	out := make(Sequence, len(keys), len(keys)+1)
	copy(out, keys)
	return append(out, d)
}

func resolve(keys Sequence, span types.Span, entry Entry) (*Resolution, error) {
	start, err := MatchPoint(keys, span.Start, RoleStart)
	if err != nil {
		return nil, err
	}
	end, err := MatchPoint(keys, span.End, RoleEnd)
	if err != nil {
		return nil, err
	}
	for _, m := range []Match{start, end} {
		if err := m.Validate(); err != nil {
			return nil, err
		}
	}
	if end.Target < start.Target {
		return nil, fmt.Errorf("%w: start %s resolves after end %s", types.ErrInvalidSpan, start, end)
	}
	return &Resolution{
		Keyframes:   keys,
		Start:       start,
		End:         end,
		Duration:    entry.Duration,
		HasDuration: entry.HasDuration,
	}, nil
}

// wholeFile returns the whole-file entry for file, consulting the memory
// cache, then the disk store, then the prober.
func (x *Index) wholeFile(ctx context.Context, file string) (Entry, error) {
	id, entry, ok := x.cached(file)
	if ok {
		return entry, nil
	}

	keys, err := x.probe(ctx, file, types.Span{})
	if err != nil {
		return Entry{}, err
	}
	d, ok, err := x.duration(ctx, file)
	if err != nil {
		return Entry{}, err
	}
	entry = Entry{Keyframes: keys, Duration: d, HasDuration: ok}

	if id.Path != "" {
		x.cache.Put(id, entry)
		// A failed save only costs a future re-probe.
		_ = x.store.Save(id, entry)
	}
	return entry, nil
}

// cached looks file up in the memory cache, then the disk store. The
// returned identity is zero when no cache is configured or the file cannot
// be identified.
func (x *Index) cached(file string) (Identity, Entry, bool) {
	if x.cache == nil && x.store == nil {
		return Identity{}, Entry{}, false
	}
	id, err := Identify(file)
	if err != nil {
		// The probe reports the real problem.
		return Identity{}, Entry{}, false
	}
	if entry, ok := x.cache.Get(id); ok {
		x.metrics.IncCacheHit()
		return id, entry, true
	}
	if entry, ok := x.store.Load(id); ok {
		x.metrics.IncCacheHit()
		x.cache.Put(id, entry)
		return id, entry, true
	}
	return id, Entry{}, false
}

func (x *Index) probe(ctx context.Context, file string, window types.Span) (Sequence, error) {
	x.metrics.IncProbe()
	keys, err := x.prober.Keyframes(ctx, file, window)
	if err != nil {
		x.metrics.IncProbeFailure()
		return nil, fmt.Errorf("probing keyframes of %s: %w", file, err)
	}
	seq := Sequence(keys)
	slices.Sort(seq)
	return slices.Compact(seq), nil
}

func (x *Index) duration(ctx context.Context, file string) (types.Timestamp, bool, error) {
	x.metrics.IncProbe()
	d, ok, err := x.prober.Duration(ctx, file)
	if err != nil {
		x.metrics.IncProbeFailure()
		return 0, false, fmt.Errorf("probing duration of %s: %w", file, err)
	}
	return d, ok, nil
}
