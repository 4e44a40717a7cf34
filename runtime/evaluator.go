package runtime

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/pithecene-io/keycut/iox"
	"github.com/pithecene-io/keycut/log"
	"github.com/pithecene-io/keycut/types"
)

// SpanExtractor runs the single-span pipeline.
type SpanExtractor interface {
	Extract(ctx context.Context, file string, span types.Span, dest string) (string, error)
}

// Evaluator renders fragment trees depth-first.
type Evaluator struct {
	extractor SpanExtractor
	assembler *Assembler
	scratch   func() *Scratch
	parallel  int
	logger    *log.Logger
}

// NewEvaluator creates an evaluator. parallel bounds how many siblings of
// one sequence are evaluated at once; values below 2 evaluate in order.
func NewEvaluator(extractor SpanExtractor, assembler *Assembler, newScratch func() *Scratch, parallel int, logger *log.Logger) *Evaluator {
	if parallel < 1 {
		parallel = 1
	}
	return &Evaluator{
		extractor: extractor,
		assembler: assembler,
		scratch:   newScratch,
		parallel:  parallel,
		logger:    logger,
	}
}

// PartPath returns the intermediate output path of child i under hint.
func PartPath(hint string, i int) string {
	return iox.PathWithSuffix(hint, fmt.Sprintf("part%d", i))
}

// Evaluate renders f and returns the path holding the result. A whole
// fragment returns its own file; anything else is written to hint.
func (v *Evaluator) Evaluate(ctx context.Context, f types.Fragment, hint string) (string, error) {
	switch f.Kind {
	case types.FragmentWhole:
		return f.File, nil
	case types.FragmentSegment:
		return v.extractor.Extract(ctx, f.File, f.Span, hint)
	case types.FragmentSequence:
		return v.sequence(ctx, f.Children, hint)
	default:
		return "", fmt.Errorf("%w: unknown fragment kind %q", types.ErrInvalidInput, f.Kind)
	}
}

func (v *Evaluator) sequence(ctx context.Context, children []types.Fragment, hint string) (string, error) {
	scratch := v.scratch()
	defer func() {
		if err := scratch.Cleanup(); err != nil {
			v.logger.Warn("failed to remove intermediate parts", map[string]any{"error": err.Error()})
		}
	}()

	// Every part this sequence may create is owned before any child runs,
	// so a failing sibling cannot leave another's output behind.
	for i, child := range children {
		if child.Kind != types.FragmentWhole {
			scratch.Track(PartPath(hint, i))
		}
	}

	results := make([]string, len(children))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(v.parallel)
	for i, child := range children {
		g.Go(func() error {
			out, err := v.Evaluate(gctx, child, PartPath(hint, i))
			if err != nil {
				return fmt.Errorf("sequence part %d: %w", i, err)
			}
			results[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	v.logger.Debug("sequence parts ready", map[string]any{"dest": hint, "parts": len(results)})
	return v.assembler.Concat(ctx, results, hint, scratch)
}
