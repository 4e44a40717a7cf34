package runtime

import (
	"context"
	"fmt"
	"time"

	"github.com/pithecene-io/keycut/ffmpeg"
	"github.com/pithecene-io/keycut/log"
	"github.com/pithecene-io/keycut/metrics"
	"github.com/pithecene-io/keycut/plan"
)

// Executor runs plan steps against the media tool.
// Failures are reported as-is; nothing is retried.
type Executor struct {
	tool    ffmpeg.Tool
	metrics *metrics.Collector
	logger  *log.Logger
}

// NewExecutor creates an executor.
func NewExecutor(tool ffmpeg.Tool, m *metrics.Collector, logger *log.Logger) *Executor {
	return &Executor{tool: tool, metrics: m, logger: logger}
}

// Execute runs one step and returns the path it wrote.
func (e *Executor) Execute(ctx context.Context, step plan.Step) (string, error) {
	r := ffmpeg.Range{Start: step.Start, End: step.End, ToEnd: step.ToEnd}
	started := time.Now()

	var err error
	switch step.Kind {
	case plan.AlignedCopy:
		e.metrics.IncAlignedCopy()
		err = e.tool.Copy(ctx, step.Source, step.Dest, r)
	case plan.UnalignedTranscode:
		e.metrics.IncTranscode()
		err = e.tool.Transcode(ctx, step.Source, step.Dest, r)
	default:
		return "", fmt.Errorf("unknown step kind %s", step.Kind)
	}

	if err != nil {
		e.metrics.IncToolFailure()
		e.logger.Error("step failed", map[string]any{
			"role":  string(step.Role),
			"kind":  step.Kind.String(),
			"range": r.String(),
			"dest":  step.Dest,
			"error": err.Error(),
		})
		return "", fmt.Errorf("%s step %s: %w", step.Role, step.Kind, err)
	}

	e.logger.Info("step done", map[string]any{
		"role":        string(step.Role),
		"kind":        step.Kind.String(),
		"range":       r.String(),
		"dest":        step.Dest,
		"duration_ms": time.Since(started).Milliseconds(),
	})
	return step.Dest, nil
}

// Run executes the steps of p in order, stopping at the first failure.
func (e *Executor) Run(ctx context.Context, p *plan.Plan) error {
	for _, step := range p.Steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := e.Execute(ctx, step); err != nil {
			return err
		}
	}
	return nil
}
