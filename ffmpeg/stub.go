package ffmpeg

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/pithecene-io/keycut/types"
)

// Call is one recorded StubTool invocation.
type Call struct {
	Op     Op
	Src    string
	Dst    string
	Range  Range
	Window types.Span
	// Inputs lists the manifest entries for concat calls.
	Inputs []string
}

// StubTool is an in-memory Tool for testing.
// Copy and Transcode write a one-line description of the piece to dst;
// Concat writes the concatenated contents of its inputs, so tests can
// check both which pieces were produced and in which order they were joined.
type StubTool struct {
	mu sync.Mutex

	// KeyframeTimes maps a source file to its keyframe times.
	KeyframeTimes map[string][]types.Timestamp
	// Durations maps a source file to its container duration.
	Durations map[string]types.Timestamp
	// Fail, when set, is consulted before each call; a non-nil return
	// fails the call with that error.
	Fail func(c Call) error
	// DryRun records copy, transcode and concat calls without writing
	// anything, like CLI in dry-run mode.
	DryRun bool

	Calls []Call
}

// NewStubTool creates an empty stub tool.
func NewStubTool() *StubTool {
	return &StubTool{
		KeyframeTimes: make(map[string][]types.Timestamp),
		Durations:     make(map[string]types.Timestamp),
	}
}

// Keyframes implements Tool. Only keyframes inside window are returned.
func (s *StubTool) Keyframes(_ context.Context, file string, window types.Span) ([]types.Timestamp, error) {
	call := Call{Op: OpProbe, Src: file, Window: window}
	if err := s.record(call); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	all, ok := s.KeyframeTimes[file]
	if !ok {
		return nil, &ToolError{Op: OpProbe, Program: "ffprobe", ExitCode: 1, Stderr: file + ": No such file or directory"}
	}
	var out []types.Timestamp
	for _, t := range all {
		if window.Start != nil && t < *window.Start {
			continue
		}
		if window.End != nil && t > *window.End {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

// Duration implements Tool.
func (s *StubTool) Duration(_ context.Context, file string) (types.Timestamp, bool, error) {
	if err := s.record(Call{Op: OpProbe, Src: file}); err != nil {
		return 0, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.Durations[file]
	return d, ok, nil
}

// Copy implements Tool.
func (s *StubTool) Copy(_ context.Context, src, dst string, r Range) error {
	return s.writePiece(Call{Op: OpCopy, Src: src, Dst: dst, Range: r})
}

// Transcode implements Tool.
func (s *StubTool) Transcode(_ context.Context, src, dst string, r Range) error {
	return s.writePiece(Call{Op: OpTranscode, Src: src, Dst: dst, Range: r})
}

// Concat implements Tool.
func (s *StubTool) Concat(_ context.Context, manifest, dst string) error {
	data, err := os.ReadFile(manifest)
	if err != nil {
		return &ToolError{Op: OpConcat, Program: "ffmpeg", ExitCode: 1, Stderr: err.Error()}
	}
	inputs, err := ParseManifest(data)
	if err != nil {
		return &ToolError{Op: OpConcat, Program: "ffmpeg", ExitCode: 1, Stderr: err.Error()}
	}

	if err := s.record(Call{Op: OpConcat, Src: manifest, Dst: dst, Inputs: inputs}); err != nil {
		return err
	}
	if s.DryRun {
		return nil
	}

	var out bytes.Buffer
	for _, in := range inputs {
		content, err := os.ReadFile(in)
		if err != nil {
			return &ToolError{Op: OpConcat, Program: "ffmpeg", ExitCode: 1, Stderr: err.Error()}
		}
		out.Write(content)
	}
	return os.WriteFile(dst, out.Bytes(), 0o644)
}

// CallsFor returns the recorded calls for op, in order.
func (s *StubTool) CallsFor(op Op) []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Call
	for _, c := range s.Calls {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

func (s *StubTool) writePiece(call Call) error {
	if err := s.record(call); err != nil {
		return err
	}
	if s.DryRun {
		return nil
	}
	if _, err := os.Stat(call.Src); err != nil {
		return &ToolError{Op: call.Op, Program: "ffmpeg", ExitCode: 1, Stderr: call.Src + ": No such file or directory"}
	}
	line := fmt.Sprintf("%s %s %s\n", call.Op, call.Src, call.Range)
	return os.WriteFile(call.Dst, []byte(line), 0o644)
}

func (s *StubTool) record(call Call) error {
	s.mu.Lock()
	s.Calls = append(s.Calls, call)
	fail := s.Fail
	s.mu.Unlock()

	if fail != nil {
		return fail(call)
	}
	return nil
}

// ParseManifest parses a concat demuxer manifest written by the assembler.
func ParseManifest(data []byte) ([]string, error) {
	var paths []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		rest, ok := strings.CutPrefix(line, "file ")
		if !ok || len(rest) < 2 || rest[0] != '\'' || rest[len(rest)-1] != '\'' {
			return nil, fmt.Errorf("malformed manifest line %q", line)
		}
		paths = append(paths, strings.ReplaceAll(rest[1:len(rest)-1], `'\''`, `'`))
	}
	return paths, scanner.Err()
}

// Verify StubTool implements Tool.
var _ Tool = (*StubTool)(nil)
