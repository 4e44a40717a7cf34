// Package types defines core domain types for keycut.
//
//nolint:revive // types is a common Go package naming convention
package types

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Timestamp is a count of microseconds since the start of a media stream.
type Timestamp uint64

// Common timestamp units.
const (
	Microsecond Timestamp = 1
	Millisecond           = 1000 * Microsecond
	Second                = 1000 * Millisecond
)

// String formats the timestamp in ffmpeg time-duration syntax ("1500000us").
func (t Timestamp) String() string {
	return strconv.FormatUint(uint64(t), 10) + "us"
}

// Duration converts the timestamp to a time.Duration.
func (t Timestamp) Duration() time.Duration {
	return time.Duration(t) * time.Microsecond
}

// Seconds returns the timestamp as fractional seconds.
func (t Timestamp) Seconds() float64 {
	return float64(t) / float64(Second)
}

// SaturatingSub returns t - d, or 0 if d > t.
func (t Timestamp) SaturatingSub(d Timestamp) Timestamp {
	if d > t {
		return 0
	}
	return t - d
}

// SaturatingAdd returns t + d, capped at the maximum Timestamp.
func (t Timestamp) SaturatingAdd(d Timestamp) Timestamp {
	if t > math.MaxUint64-d {
		return math.MaxUint64
	}
	return t + d
}

// FromDuration converts a time.Duration to a Timestamp.
// Negative durations map to zero.
func FromDuration(d time.Duration) Timestamp {
	if d < 0 {
		return 0
	}
	return Timestamp(d / time.Microsecond)
}

// ParseSeconds parses a decimal seconds value as printed by ffprobe
// (pts_time, format duration) into a Timestamp, rounding to the nearest
// microsecond.
func ParseSeconds(s string) (Timestamp, error) {
	s = strings.TrimSpace(s)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid seconds value %q: %w", s, err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0, fmt.Errorf("invalid seconds value %q: out of range", s)
	}
	us := math.Round(f * float64(Second))
	// float64(math.MaxUint64) rounds up to 2^64, which no Timestamp holds.
	if us >= float64(math.MaxUint64) {
		return 0, fmt.Errorf("invalid seconds value %q: out of range", s)
	}
	return Timestamp(us), nil
}

// ParseTimestamp parses a user-supplied time. Accepted forms are Go
// durations ("1m30.5s", "1500ms", "250us") and plain seconds ("90.5").
func ParseTimestamp(s string) (Timestamp, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty time value")
	}
	if d, err := time.ParseDuration(s); err == nil {
		if d < 0 {
			return 0, fmt.Errorf("negative time value %q", s)
		}
		return FromDuration(d), nil
	}
	return ParseSeconds(s)
}

// At returns a pointer to t, for building spans inline.
func At(t Timestamp) *Timestamp {
	return &t
}

// Span is a time range with optional bounds.
// A nil Start means the beginning of the stream, a nil End its end.
type Span struct {
	Start *Timestamp `yaml:"start,omitempty" json:"start,omitempty"`
	End   *Timestamp `yaml:"end,omitempty" json:"end,omitempty"`
}

// NewSpan builds a span from optional bounds.
func NewSpan(start, end *Timestamp) Span {
	return Span{Start: start, End: end}
}

// Validate returns ErrInvalidSpan when both bounds are set and start > end.
func (s Span) Validate() error {
	if s.Start != nil && s.End != nil && *s.Start > *s.End {
		return fmt.Errorf("%w: start %s is after end %s", ErrInvalidSpan, *s.Start, *s.End)
	}
	return nil
}

// String renders the span as "[start, end)", using "begin"/"end" for open bounds.
func (s Span) String() string {
	start, end := "begin", "end"
	if s.Start != nil {
		start = s.Start.String()
	}
	if s.End != nil {
		end = s.End.String()
	}
	return "[" + start + ", " + end + ")"
}
