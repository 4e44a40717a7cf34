// Package ffmpeg is the boundary to the external media tools.
//
// The edit engine addresses ffprobe and ffmpeg only through the Tool
// interface: enumerate keyframes in a window, read the stream duration,
// copy or re-encode a time range, and concatenate same-codec files.
// CLI is the process-backed implementation; StubTool is an in-memory
// stand-in for tests.
package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pithecene-io/keycut/types"
)

// Range is a [Start, End) time range within one input file.
// When ToEnd is set the range runs to the end of the input and End is
// informational only.
type Range struct {
	Start types.Timestamp
	End   types.Timestamp
	ToEnd bool
}

// Length returns End - Start, saturating at zero.
func (r Range) Length() types.Timestamp {
	return r.End.SaturatingSub(r.Start)
}

// String renders the range for log lines.
func (r Range) String() string {
	if r.ToEnd {
		return fmt.Sprintf("[%s, end)", r.Start)
	}
	return fmt.Sprintf("[%s, %s)", r.Start, r.End)
}

// Tool is the set of external media operations the engine needs.
type Tool interface {
	// Keyframes lists presentation timestamps of keyframes on the primary
	// video stream, restricted to the read window. Output order is not
	// guaranteed.
	Keyframes(ctx context.Context, file string, window types.Span) ([]types.Timestamp, error)

	// Duration returns the container duration. ok is false when the
	// container does not report one.
	Duration(ctx context.Context, file string) (d types.Timestamp, ok bool, err error)

	// Copy extracts r from src into dst without re-encoding.
	Copy(ctx context.Context, src, dst string, r Range) error

	// Transcode extracts r from src into dst, re-encoding video.
	Transcode(ctx context.Context, src, dst string, r Range) error

	// Concat joins the files listed in manifest into dst by stream copy.
	Concat(ctx context.Context, manifest, dst string) error
}

// Op names the tool operation that failed.
type Op string

// Tool operations.
const (
	OpProbe     Op = "probe"
	OpCopy      Op = "copy"
	OpTranscode Op = "transcode"
	OpConcat    Op = "concat"
)

// ToolError reports a failed external tool invocation.
// Stderr is the tool's diagnostic output, verbatim.
type ToolError struct {
	Op       Op
	Program  string
	ExitCode int
	Stderr   string
	// Err is set when the process could not be run at all.
	Err error
}

func (e *ToolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %v", e.Program, e.Op, e.Err)
	}
	msg := fmt.Sprintf("%s %s exited with code %d", e.Program, e.Op, e.ExitCode)
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		msg += ": " + stderr
	}
	return msg
}

// Unwrap returns the underlying start/wait error, if any.
func (e *ToolError) Unwrap() error {
	return e.Err
}

// Is classifies the failure onto the edit error sentinels.
func (e *ToolError) Is(target error) bool {
	return errors.Is(e.kind(), target)
}

func (e *ToolError) kind() error {
	switch e.Op {
	case OpProbe:
		return types.ErrProbeFailure
	case OpConcat:
		return types.ErrConcatFailure
	default:
		return types.ErrExternalToolFailure
	}
}
