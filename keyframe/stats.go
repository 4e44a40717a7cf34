package keyframe

import "github.com/pithecene-io/keycut/types"

// Stats summarizes a whole-file keyframe sequence.
type Stats struct {
	Count int `json:"count" yaml:"count"`
	// Frequency is the mean stream time per keyframe, measured over the
	// container duration when known.
	FrequencyMs float64 `json:"frequency_ms" yaml:"frequency_ms"`
	// Spacing is the mean gap between consecutive keyframes.
	SpacingMs   float64         `json:"spacing_ms" yaml:"spacing_ms"`
	First       types.Timestamp `json:"first_us" yaml:"first_us"`
	Last        types.Timestamp `json:"last_us" yaml:"last_us"`
	Duration    types.Timestamp `json:"duration_us" yaml:"duration_us"`
	HasDuration bool            `json:"has_duration" yaml:"has_duration"`
}

// Summarize computes Stats for keys and an optional duration.
func Summarize(keys Sequence, duration types.Timestamp, hasDuration bool) Stats {
	s := Stats{Count: len(keys), Duration: duration, HasDuration: hasDuration}
	if len(keys) == 0 {
		return s
	}
	s.First = keys[0]
	s.Last = keys[len(keys)-1]

	if len(keys) > 1 {
		s.SpacingMs = float64(s.Last-s.First) / float64(types.Millisecond) / float64(len(keys)-1)
	}
	span := s.Last
	if hasDuration && duration > span {
		span = duration
	}
	s.FrequencyMs = float64(span) / float64(types.Millisecond) / float64(len(keys))
	return s
}
