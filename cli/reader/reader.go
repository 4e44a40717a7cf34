package reader

import (
	"context"
	"fmt"

	"github.com/pithecene-io/keycut/journal"
	"github.com/pithecene-io/keycut/keyframe"
	"github.com/pithecene-io/keycut/plan"
	"github.com/pithecene-io/keycut/runtime"
	"github.com/pithecene-io/keycut/types"
)

// Probe lists the keyframes of file inside window and summarizes them.
// An unbounded window probes the whole file through the index cache.
func Probe(ctx context.Context, idx *keyframe.Index, file string, window types.Span) (*ProbeResponse, error) {
	if err := window.Validate(); err != nil {
		return nil, err
	}
	keys, err := idx.Fetch(ctx, file, window, 0)
	if err != nil {
		return nil, err
	}
	d, hasDuration, err := idx.Duration(ctx, file)
	if err != nil {
		return nil, err
	}

	stats := keyframe.Summarize(keys, d, hasDuration)
	resp := &ProbeResponse{
		File:        file,
		Count:       stats.Count,
		FrequencyMs: stats.FrequencyMs,
		SpacingMs:   stats.SpacingMs,
		Window:      window.String(),
		Keyframes:   keys,
	}
	if resp.Keyframes == nil {
		resp.Keyframes = []types.Timestamp{}
	}
	if stats.Count > 0 {
		resp.FirstKeyframe = stats.First.Duration().String()
		resp.LastKeyframe = stats.Last.Duration().String()
	}
	if hasDuration {
		resp.Duration = d.Duration().String()
	}
	return resp, nil
}

// KeyframeRows expands a probe into one row per keyframe with the gap to
// its predecessor.
func KeyframeRows(p *ProbeResponse) []KeyframeRow {
	rows := make([]KeyframeRow, 0, len(p.Keyframes))
	for i, k := range p.Keyframes {
		row := KeyframeRow{Index: i, Time: k.Duration().String(), Micros: uint64(k)}
		if i > 0 {
			gap := k - p.Keyframes[i-1]
			row.GapMs = fmt.Sprintf("%.3f", float64(gap)/float64(types.Millisecond))
		}
		rows = append(rows, row)
	}
	return rows
}

// History returns journal records matching f, newest first, as thin items.
func History(ctx context.Context, j *journal.Journal, f journal.Filter) ([]HistoryItem, error) {
	records, err := j.History(ctx, f)
	if err != nil {
		return nil, err
	}
	items := make([]HistoryItem, 0, len(records))
	for _, r := range records {
		items = append(items, HistoryItem{
			EditID:     r.EditID,
			Operation:  r.Operation,
			Outcome:    string(r.Outcome),
			ExitCode:   r.ExitCode,
			StartedAt:  r.StartedAt,
			DurationMs: r.DurationMs,
			Source:     r.Source,
			Outputs:    len(r.Outputs),
			DryRun:     r.DryRun,
		})
	}
	return items, nil
}

// Plan resolves span against file and describes the steps that would
// write dest. Only probes run.
func Plan(ctx context.Context, engine *runtime.Engine, file string, span types.Span, dest string) (*PlanResponse, error) {
	p, res, err := engine.Plan(ctx, file, span, dest)
	if err != nil {
		return nil, err
	}

	resp := &PlanResponse{
		Source:     file,
		Output:     dest,
		Span:       span.String(),
		Start:      matchView(res.Start),
		End:        matchView(res.End),
		Widened:    res.Widened,
		Copies:     p.Count(plan.AlignedCopy),
		Transcodes: p.Count(plan.UnalignedTranscode),
		Duration:   p.Duration().Duration().String(),
		Steps:      make([]PlanStep, 0, len(p.Steps)),
		Pieces:     append([]string{}, p.Pieces...),
	}
	for _, s := range p.Steps {
		step := PlanStep{
			Role:   string(s.Role),
			Kind:   s.Kind.String(),
			Source: s.Source,
			Dest:   s.Dest,
			Start:  s.Start.Duration().String(),
			End:    s.End.Duration().String(),
		}
		if s.ToEnd {
			step.End = "end"
		}
		resp.Steps = append(resp.Steps, step)
	}
	return resp, nil
}

func matchView(m keyframe.Match) MatchView {
	v := MatchView{Kind: m.Kind.String(), Target: m.Target.Duration().String()}
	if m.Kind == keyframe.KindBetween {
		v.Before = m.Before.Duration().String()
		v.After = m.After.Duration().String()
	}
	return v
}
