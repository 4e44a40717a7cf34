// Package runtime executes edits: it resolves spans against the keyframe
// index, runs the planned steps, assembles pieces and renders fragment
// trees.
package runtime

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/pithecene-io/keycut/ffmpeg"
	"github.com/pithecene-io/keycut/iox"
	"github.com/pithecene-io/keycut/keyframe"
	"github.com/pithecene-io/keycut/log"
	"github.com/pithecene-io/keycut/metrics"
	"github.com/pithecene-io/keycut/plan"
	"github.com/pithecene-io/keycut/types"
)

// EngineConfig wires an Engine.
type EngineConfig struct {
	// Tool runs ffprobe and ffmpeg. Required.
	Tool ffmpeg.Tool
	// Index resolves spans. Defaults to an uncached index over Tool.
	Index *keyframe.Index
	// Parallel bounds concurrent sibling evaluation in fragment trees.
	Parallel int
	// Metrics receives counters. Optional.
	Metrics *metrics.Collector
	// Logger receives progress lines. Optional.
	Logger *log.Logger
}

// Engine exposes the produced edit operations. None of them modify the
// source file, and on failure none leave behind an output they wrote.
type Engine struct {
	index     *keyframe.Index
	executor  *Executor
	assembler *Assembler
	evaluator *Evaluator
	metrics   *metrics.Collector
	logger    *log.Logger
}

// NewEngine creates an engine.
func NewEngine(cfg EngineConfig) *Engine {
	if cfg.Index == nil {
		cfg.Index = keyframe.NewIndex(cfg.Tool, keyframe.Options{Metrics: cfg.Metrics})
	}
	e := &Engine{
		index:     cfg.Index,
		executor:  NewExecutor(cfg.Tool, cfg.Metrics, cfg.Logger),
		assembler: NewAssembler(cfg.Tool, cfg.Metrics, cfg.Logger),
		metrics:   cfg.Metrics,
		logger:    cfg.Logger,
	}
	e.evaluator = NewEvaluator(e, e.assembler, e.newScratch, cfg.Parallel, cfg.Logger)
	return e
}

func (e *Engine) newScratch() *Scratch {
	return NewScratch(e.metrics, e.logger)
}

// Index returns the engine's keyframe index.
func (e *Engine) Index() *keyframe.Index {
	return e.index
}

// Plan resolves span against file and plans its extraction into dest
// without running anything.
func (e *Engine) Plan(ctx context.Context, file string, span types.Span, dest string) (*plan.Plan, *keyframe.Resolution, error) {
	if err := checkOutput(file, dest); err != nil {
		return nil, nil, err
	}
	res, err := e.index.Lookup(ctx, file, span)
	if err != nil {
		return nil, nil, err
	}
	p, err := plan.Build(file, dest, res.Start, res.End)
	if err != nil {
		return nil, nil, err
	}
	return p, res, nil
}

// Extract writes span of file to dest.
func (e *Engine) Extract(ctx context.Context, file string, span types.Span, dest string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p, res, err := e.Plan(ctx, file, span, dest)
	if err != nil {
		return "", err
	}

	e.logger.Debug("planned extraction", map[string]any{
		"source":      file,
		"span":        span.String(),
		"start":       res.Start.String(),
		"end":         res.End.String(),
		"widened":     res.Widened,
		"steps":       len(p.Steps),
		"transcodes":  p.Count(plan.UnalignedTranscode),
		"pieces":      len(p.Pieces),
		"duration_us": uint64(p.Duration()),
	})
	return e.run(ctx, p)
}

// run executes p, assembling pieces when needed. Temps are removed on every
// path; an output this run wrote is removed when anything fails.
func (e *Engine) run(ctx context.Context, p *plan.Plan) (string, error) {
	mark := markOutput(p.Output)
	scratch := e.newScratch()
	scratch.Track(p.Temps...)
	defer func() {
		if err := scratch.Cleanup(); err != nil {
			e.logger.Warn("failed to remove temp artifacts", map[string]any{"error": err.Error()})
		}
	}()

	if err := e.executor.Run(ctx, p); err != nil {
		e.discardOutput(mark)
		return "", err
	}
	if p.NeedsConcat() {
		if _, err := e.assembler.Concat(ctx, p.Pieces, p.Output, scratch); err != nil {
			e.discardOutput(mark)
			return "", err
		}
	}
	return p.Output, nil
}

// SplitAt writes [begin, at) to first and [at, end) to second.
func (e *Engine) SplitAt(ctx context.Context, file string, at types.Timestamp, first, second string) ([]string, error) {
	parts := []struct {
		span types.Span
		dest string
	}{
		{types.NewSpan(nil, types.At(at)), first},
		{types.NewSpan(types.At(at), nil), second},
	}
	return e.extractAll(ctx, file, func(i int) (types.Span, string) { return parts[i].span, parts[i].dest }, len(parts))
}

// SplitEvery writes n parts of equal duration to dest with ".cut<i>"
// inserted before the extension, numbered from 1.
func (e *Engine) SplitEvery(ctx context.Context, file string, n int, dest string) ([]string, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: part count must be at least 1, got %d", types.ErrInvalidInput, n)
	}
	total, err := e.duration(ctx, file)
	if err != nil {
		return nil, err
	}
	step := total / types.Timestamp(n)
	if step == 0 {
		return nil, fmt.Errorf("%w: %s (%s) is too short for %d parts", types.ErrInvalidInput, file, total, n)
	}
	return e.splitBy(ctx, file, step, n, dest)
}

// SplitInterval writes consecutive parts of length interval to dest with
// ".cut<i>" inserted before the extension. The last part takes the rest.
func (e *Engine) SplitInterval(ctx context.Context, file string, interval types.Timestamp, dest string) ([]string, error) {
	if interval == 0 {
		return nil, fmt.Errorf("%w: split interval must be positive", types.ErrInvalidInput)
	}
	total, err := e.duration(ctx, file)
	if err != nil {
		return nil, err
	}
	n := int((total + interval - 1) / interval)
	if n < 1 {
		n = 1
	}
	return e.splitBy(ctx, file, interval, n, dest)
}

// CutPath returns the path of split part i (1-based) of dest.
func CutPath(dest string, i int) string {
	return iox.PathWithSuffix(dest, fmt.Sprintf("cut%d", i))
}

func (e *Engine) splitBy(ctx context.Context, file string, step types.Timestamp, n int, dest string) ([]string, error) {
	part := func(i int) (types.Span, string) {
		span := types.NewSpan(nil, nil)
		if i > 0 {
			span.Start = types.At(step * types.Timestamp(i))
		}
		if i < n-1 {
			span.End = types.At(step * types.Timestamp(i+1))
		}
		return span, CutPath(dest, i+1)
	}
	return e.extractAll(ctx, file, part, n)
}

// extractAll extracts n parts in order. A failure removes the parts
// already written by this call.
func (e *Engine) extractAll(ctx context.Context, file string, part func(int) (types.Span, string), n int) ([]string, error) {
	outs := make([]string, 0, n)
	marks := make([]outputMark, 0, n)
	for i := range n {
		span, dest := part(i)
		mark := markOutput(dest)
		out, err := e.Extract(ctx, file, span, dest)
		if err != nil {
			for _, done := range marks {
				e.discardOutput(done)
			}
			return nil, fmt.Errorf("part %d %s: %w", i+1, span, err)
		}
		marks = append(marks, mark)
		outs = append(outs, out)
	}
	return outs, nil
}

func (e *Engine) duration(ctx context.Context, file string) (types.Timestamp, error) {
	d, ok, err := e.index.Duration(ctx, file)
	if err != nil {
		return 0, err
	}
	if !ok || d == 0 {
		return 0, fmt.Errorf("%w: %s reports no duration", types.ErrProbeFailure, file)
	}
	return d, nil
}

// Evaluate renders fragment into dest. A whole-file root needs no work and
// returns its own path.
func (e *Engine) Evaluate(ctx context.Context, fragment types.Fragment, dest string) (string, error) {
	if err := fragment.Validate(); err != nil {
		return "", err
	}
	if fragment.Kind == types.FragmentWhole {
		return e.evaluator.Evaluate(ctx, fragment, dest)
	}
	if err := checkTreeOutput(fragment, dest); err != nil {
		return "", err
	}
	mark := markOutput(dest)
	out, err := e.evaluator.Evaluate(ctx, fragment, dest)
	if err != nil {
		e.discardOutput(mark)
		return "", err
	}
	return out, nil
}

// discardOutput removes the file at m's path if this edit wrote it. A file
// left untouched, as under a dry run, is kept.
func (e *Engine) discardOutput(m outputMark) {
	if !m.written() {
		return
	}
	e.removeOutput(m.path)
}

func (e *Engine) removeOutput(path string) {
	if _, err := iox.RemoveQuiet(path); err != nil {
		e.logger.Warn("failed to remove output after failure", map[string]any{"path": path, "error": err.Error()})
	}
}

// checkOutput rejects an output path that names the source.
func checkOutput(source, dest string) error {
	if dest == "" {
		return fmt.Errorf("%w: empty output path", types.ErrInvalidInput)
	}
	if samePath(source, dest) {
		return fmt.Errorf("%w: output %s would overwrite the source", types.ErrInvalidInput, dest)
	}
	return nil
}

// checkTreeOutput rejects an output path that names any file in the tree.
func checkTreeOutput(f types.Fragment, dest string) error {
	switch f.Kind {
	case types.FragmentSequence:
		for _, c := range f.Children {
			if err := checkTreeOutput(c, dest); err != nil {
				return err
			}
		}
		return nil
	default:
		return checkOutput(f.File, dest)
	}
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}
