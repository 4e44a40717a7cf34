package ffmpeg

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/pithecene-io/keycut/types"
)

// Default program names, resolved through PATH.
const (
	DefaultFFmpeg  = "ffmpeg"
	DefaultFFprobe = "ffprobe"
)

// commonArgs are passed to every ffmpeg invocation: print only errors and
// never prompt before overwriting the output.
var commonArgs = []string{"-loglevel", "error", "-y"}

// Config configures the process-backed tool.
type Config struct {
	// FFmpegPath is the ffmpeg binary (default "ffmpeg").
	FFmpegPath string
	// FFprobePath is the ffprobe binary (default "ffprobe").
	FFprobePath string
	// TranscodeArgs are extra output arguments for re-encoded pieces,
	// e.g. ["-c:v", "libx264", "-crf", "18"]. Empty uses ffmpeg defaults.
	TranscodeArgs []string
	// DryRun prints copy, transcode and concat commands instead of running
	// them. Probes still run.
	DryRun bool
	// DryRunOut receives dry-run command listings (default os.Stdout).
	DryRunOut io.Writer
}

// CLI runs ffprobe and ffmpeg as child processes.
type CLI struct {
	config Config
}

// NewCLI creates a process-backed tool.
func NewCLI(cfg Config) *CLI {
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = DefaultFFmpeg
	}
	if cfg.FFprobePath == "" {
		cfg.FFprobePath = DefaultFFprobe
	}
	if cfg.DryRunOut == nil {
		cfg.DryRunOut = os.Stdout
	}
	return &CLI{config: cfg}
}

// processResult holds the outcome of one child process.
type processResult struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
}

// run executes program with args and waits for it to exit.
// A non-nil error means the process could not be started or waited on;
// a non-zero exit is reported through ExitCode.
func run(ctx context.Context, program string, args []string) (*processResult, error) {
	cmd := exec.CommandContext(ctx, program, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := &processResult{
		Stdout: stdout.Bytes(),
		Stderr: stderr.Bytes(),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, err
		}
		result.ExitCode = exitErr.ExitCode()
		if result.ExitCode == 0 {
			// Terminated by signal.
			result.ExitCode = -1
		}
	}

	return result, nil
}

// invoke runs program and converts failures into a *ToolError.
func (c *CLI) invoke(ctx context.Context, op Op, program string, args []string) (*processResult, error) {
	res, err := run(ctx, program, args)
	if err != nil {
		return nil, &ToolError{Op: op, Program: program, Err: err}
	}
	if res.ExitCode != 0 {
		return nil, &ToolError{
			Op:       op,
			Program:  program,
			ExitCode: res.ExitCode,
			Stderr:   string(res.Stderr),
		}
	}
	return res, nil
}

// Keyframes implements Tool.
func (c *CLI) Keyframes(ctx context.Context, file string, window types.Span) ([]types.Timestamp, error) {
	res, err := c.invoke(ctx, OpProbe, c.config.FFprobePath, keyframeArgs(file, window))
	if err != nil {
		return nil, err
	}
	return ParseKeyframes(bytes.NewReader(res.Stdout))
}

// Duration implements Tool.
func (c *CLI) Duration(ctx context.Context, file string) (types.Timestamp, bool, error) {
	args := []string{
		"-loglevel", "error",
		"-show_entries", "format=duration",
		"-of", "csv=print_section=0",
		file,
	}
	res, err := c.invoke(ctx, OpProbe, c.config.FFprobePath, args)
	if err != nil {
		return 0, false, err
	}

	out := strings.TrimSpace(string(res.Stdout))
	if out == "" || out == "N/A" {
		return 0, false, nil
	}
	d, err := types.ParseSeconds(out)
	if err != nil {
		return 0, false, fmt.Errorf("%w: duration of %s: %v", types.ErrProbeFailure, file, err)
	}
	return d, true, nil
}

// Copy implements Tool.
func (c *CLI) Copy(ctx context.Context, src, dst string, r Range) error {
	args := append([]string{}, commonArgs...)
	args = append(args, "-i", src, "-vcodec", "copy", "-acodec", "copy")
	args = append(args, rangeArgs(r)...)
	args = append(args, dst)
	return c.exec(ctx, OpCopy, args)
}

// Transcode implements Tool.
// Audio is still stream-copied; only video is re-encoded.
func (c *CLI) Transcode(ctx context.Context, src, dst string, r Range) error {
	args := append([]string{}, commonArgs...)
	args = append(args, "-i", src, "-acodec", "copy")
	args = append(args, c.config.TranscodeArgs...)
	args = append(args, rangeArgs(r)...)
	args = append(args, dst)
	return c.exec(ctx, OpTranscode, args)
}

// Concat implements Tool.
func (c *CLI) Concat(ctx context.Context, manifest, dst string) error {
	args := append([]string{}, commonArgs...)
	args = append(args, "-f", "concat", "-safe", "0", "-i", manifest, "-c", "copy", dst)
	return c.exec(ctx, OpConcat, args)
}

// exec runs an ffmpeg invocation, or prints it in dry-run mode.
func (c *CLI) exec(ctx context.Context, op Op, args []string) error {
	if c.config.DryRun {
		PrintCommand(c.config.DryRunOut, c.config.FFmpegPath, args)
		return nil
	}
	_, err := c.invoke(ctx, op, c.config.FFmpegPath, args)
	return err
}

// keyframeArgs builds the ffprobe invocation that lists keyframe times,
// one per line, for the first video stream.
func keyframeArgs(file string, window types.Span) []string {
	args := []string{
		"-loglevel", "error",
		"-select_streams", "v:0",
		"-skip_frame", "nokey",
		"-show_frames",
		"-show_entries", "frame=pts_time",
		"-of", "csv=print_section=0",
	}
	if interval := readInterval(window); interval != "" {
		args = append(args, "-read_intervals", interval)
	}
	return append(args, file)
}

// readInterval renders a window as an ffprobe -read_intervals spec.
// An unbounded window yields "" (read the whole file).
func readInterval(window types.Span) string {
	start := window.Start != nil && *window.Start > 0
	if !start && window.End == nil {
		return ""
	}
	var b strings.Builder
	if start {
		b.WriteString(window.Start.String())
	}
	b.WriteByte('%')
	if window.End != nil {
		b.WriteString(window.End.String())
	}
	return b.String()
}

func rangeArgs(r Range) []string {
	args := []string{"-ss", r.Start.String()}
	if !r.ToEnd {
		args = append(args, "-to", r.End.String())
	}
	return args
}

// ParseKeyframes parses ffprobe csv output, one pts_time per line.
// Blank lines are ignored; any other unparseable line is fatal.
func ParseKeyframes(r io.Reader) ([]types.Timestamp, error) {
	var times []types.Timestamp
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimRight(strings.TrimSpace(scanner.Text()), ",")
		if text == "" {
			continue
		}
		t, err := types.ParseSeconds(text)
		if err != nil {
			return nil, fmt.Errorf("%w: keyframe line %d: %v", types.ErrProbeFailure, line, err)
		}
		times = append(times, t)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading keyframes: %v", types.ErrProbeFailure, err)
	}
	return times, nil
}

// PrintCommand writes a copy-able listing of a command, one argument per line.
func PrintCommand(w io.Writer, program string, args []string) {
	fmt.Fprintf(w, "(CMD) %q\n", program)
	for _, arg := range args {
		fmt.Fprintf(w, "      %q\n", arg)
	}
}

// Verify CLI implements Tool.
var _ Tool = (*CLI)(nil)
