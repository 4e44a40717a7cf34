// Package reader provides the read side of the keycut CLI: keyframe probes
// and edit journal queries, shaped for rendering.
//
// Read commands never modify media or the journal.
package reader

import "github.com/pithecene-io/keycut/types"

// ProbeResponse describes the keyframes of one file.
type ProbeResponse struct {
	File  string `json:"file" yaml:"file"`
	Count int    `json:"count" yaml:"count"`
	// FrequencyMs is the mean stream time per keyframe.
	FrequencyMs float64 `json:"frequency_ms" yaml:"frequency_ms"`
	// SpacingMs is the mean gap between consecutive keyframes.
	SpacingMs     float64 `json:"spacing_ms" yaml:"spacing_ms"`
	FirstKeyframe string  `json:"first_keyframe" yaml:"first_keyframe"`
	LastKeyframe  string  `json:"last_keyframe" yaml:"last_keyframe"`
	// Duration is empty when the container reports none.
	Duration string `json:"duration" yaml:"duration"`
	// Window is the probed range; "[begin, end)" for the whole file.
	Window string `json:"window" yaml:"window"`

	Keyframes []types.Timestamp `json:"keyframes_us" yaml:"keyframes_us"`
}

// KeyframeRow is one entry of a keyframe listing.
type KeyframeRow struct {
	Index  int    `json:"index" yaml:"index"`
	Time   string `json:"time" yaml:"time"`
	Micros uint64 `json:"us" yaml:"us"`
	GapMs  string `json:"gap_ms" yaml:"gap_ms"`
}

// HistoryItem is a thin edit summary for listings.
type HistoryItem struct {
	EditID     string `json:"edit_id" yaml:"edit_id"`
	Operation  string `json:"operation" yaml:"operation"`
	Outcome    string `json:"outcome" yaml:"outcome"`
	ExitCode   int    `json:"exit_code" yaml:"exit_code"`
	StartedAt  string `json:"started_at" yaml:"started_at"`
	DurationMs int64  `json:"duration_ms" yaml:"duration_ms"`
	Source     string `json:"source" yaml:"source"`
	Outputs    int    `json:"outputs" yaml:"outputs"`
	DryRun     bool   `json:"dry_run" yaml:"dry_run"`
}

// PlanResponse describes how an extraction would run without running it.
type PlanResponse struct {
	Source  string    `json:"source" yaml:"source"`
	Output  string    `json:"output" yaml:"output"`
	Span    string    `json:"span" yaml:"span"`
	Start   MatchView `json:"start" yaml:"start"`
	End     MatchView `json:"end" yaml:"end"`
	Widened bool      `json:"widened" yaml:"widened"`
	// Copies and Transcodes count steps by kind.
	Copies     int    `json:"copies" yaml:"copies"`
	Transcodes int    `json:"transcodes" yaml:"transcodes"`
	Duration   string `json:"duration" yaml:"duration"`

	Steps []PlanStep `json:"steps" yaml:"steps"`
	// Pieces are joined in this order; empty when one step writes the
	// output directly.
	Pieces []string `json:"pieces" yaml:"pieces"`
}

// MatchView is one edit point matched against keyframes. Before and After
// are set for between matches only.
type MatchView struct {
	Kind   string `json:"kind" yaml:"kind"`
	Target string `json:"target" yaml:"target"`
	Before string `json:"before,omitempty" yaml:"before,omitempty"`
	After  string `json:"after,omitempty" yaml:"after,omitempty"`
}

// PlanStep is one ffmpeg invocation of a plan. Times are relative to the
// step's own source.
type PlanStep struct {
	Role   string `json:"role" yaml:"role"`
	Kind   string `json:"kind" yaml:"kind"`
	Source string `json:"source" yaml:"source"`
	Dest   string `json:"dest" yaml:"dest"`
	Start  string `json:"start" yaml:"start"`
	// End is "end" when the copy runs to the end of the stream.
	End string `json:"end" yaml:"end"`
}
