package runtime

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/pithecene-io/keycut/ffmpeg"
	"github.com/pithecene-io/keycut/metrics"
	"github.com/pithecene-io/keycut/types"
)

var twoSecondGOPs = []types.Timestamp{0, 2_000_000, 4_000_000, 6_000_000, 8_000_000}

type testEnv struct {
	dir     string
	src     string
	stub    *ffmpeg.StubTool
	metrics *metrics.Collector
	engine  *Engine
}

func newTestEnv(t *testing.T, duration types.Timestamp, parallel int) *testEnv {
	t.Helper()
	dir := t.TempDir()
	src := filepath.Join(dir, "talk.mkv")
	if err := os.WriteFile(src, []byte("source media\n"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	stub := ffmpeg.NewStubTool()
	stub.KeyframeTimes[src] = twoSecondGOPs
	if duration > 0 {
		stub.Durations[src] = duration
	}
	m := metrics.NewCollector("test", "edit-1", "", false)

	return &testEnv{
		dir:     dir,
		src:     src,
		stub:    stub,
		metrics: m,
		engine:  NewEngine(EngineConfig{Tool: stub, Parallel: parallel, Metrics: m}),
	}
}

func (e *testEnv) path(name string) string {
	return filepath.Join(e.dir, name)
}

// files lists the names in the env dir, sorted.
func (e *testEnv) files(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(e.dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	var names []string
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	slices.Sort(names)
	return names
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
}

func assertFiles(t *testing.T, env *testEnv, want ...string) {
	t.Helper()
	slices.Sort(want)
	if got := env.files(t); !slices.Equal(got, want) {
		t.Errorf("files = %v, want %v", got, want)
	}
}

func TestEngine_Extract_ScenarioA(t *testing.T) {
	env := newTestEnv(t, 0, 1)
	dest := env.path("clip.mkv")

	out, err := env.engine.Extract(t.Context(), env.src, types.NewSpan(types.At(1_500_000), types.At(2_500_000)), dest)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if out != dest {
		t.Errorf("out = %q, want %q", out, dest)
	}

	want := []string{
		"transcode " + env.path("clip.head-temp.mkv") + " [1500000us, 2000000us)",
		"copy " + env.src + " [2000000us, 2000000us)",
		"transcode " + env.path("clip.tail-temp.mkv") + " [0us, 500000us)",
	}
	if got := readLines(t, dest); !slices.Equal(got, want) {
		t.Errorf("output pieces = %q, want %q", got, want)
	}

	assertFiles(t, env, "talk.mkv", "clip.mkv")

	s := env.metrics.Snapshot()
	if s.AlignedCopies != 3 || s.Transcodes != 2 || s.Concats != 1 {
		t.Errorf("copies/transcodes/concats = %d/%d/%d, want 3/2/1", s.AlignedCopies, s.Transcodes, s.Concats)
	}
	if s.TempCreated != 5 || s.TempRemoved != 5 {
		t.Errorf("temps created/removed = %d/%d, want 5/5", s.TempCreated, s.TempRemoved)
	}
}

func TestEngine_Extract_ScenarioB(t *testing.T) {
	env := newTestEnv(t, 0, 1)
	dest := env.path("clip.mkv")

	if _, err := env.engine.Extract(t.Context(), env.src, types.NewSpan(types.At(2_000_000), types.At(2_500_000)), dest); err != nil {
		t.Fatalf("Extract: %v", err)
	}

	lines := readLines(t, dest)
	if len(lines) != 2 {
		t.Fatalf("got %d pieces, want 2: %q", len(lines), lines)
	}
	if !strings.HasPrefix(lines[0], "copy ") || !strings.HasPrefix(lines[1], "transcode ") {
		t.Errorf("pieces = %q, want mid copy then tail transcode", lines)
	}
	assertFiles(t, env, "talk.mkv", "clip.mkv")
}

func TestEngine_Extract_ScenarioC(t *testing.T) {
	env := newTestEnv(t, 0, 1)
	dest := env.path("clip.mkv")

	if _, err := env.engine.Extract(t.Context(), env.src, types.Span{}, dest); err != nil {
		t.Fatalf("Extract: %v", err)
	}

	want := []string{"copy " + env.src + " [0us, end)"}
	if got := readLines(t, dest); !slices.Equal(got, want) {
		t.Errorf("output = %q, want %q", got, want)
	}
	if n := len(env.stub.CallsFor(ffmpeg.OpTranscode)); n != 0 {
		t.Errorf("transcodes = %d, want 0", n)
	}
	if n := len(env.stub.CallsFor(ffmpeg.OpConcat)); n != 0 {
		t.Errorf("concats = %d, want 0", n)
	}
}

func TestEngine_Extract_ToolFailureLeavesNothing(t *testing.T) {
	env := newTestEnv(t, 0, 1)
	env.stub.Fail = func(c ffmpeg.Call) error {
		if c.Op == ffmpeg.OpTranscode && strings.Contains(c.Src, "tail-temp") {
			return &ffmpeg.ToolError{Op: ffmpeg.OpTranscode, Program: "ffmpeg", ExitCode: 1, Stderr: "Conversion failed!"}
		}
		return nil
	}
	dest := env.path("clip.mkv")

	_, err := env.engine.Extract(t.Context(), env.src, types.NewSpan(types.At(1_500_000), types.At(2_500_000)), dest)
	if !errors.Is(err, types.ErrExternalToolFailure) {
		t.Fatalf("expected ErrExternalToolFailure, got %v", err)
	}
	if !strings.Contains(err.Error(), "Conversion failed!") {
		t.Errorf("error should carry tool stderr, got %v", err)
	}
	assertFiles(t, env, "talk.mkv")
}

func TestEngine_Extract_ConcatFailureLeavesNothing(t *testing.T) {
	env := newTestEnv(t, 0, 1)
	env.stub.Fail = func(c ffmpeg.Call) error {
		if c.Op == ffmpeg.OpConcat {
			return &ffmpeg.ToolError{Op: ffmpeg.OpConcat, Program: "ffmpeg", ExitCode: 1, Stderr: "Non-monotonous DTS"}
		}
		return nil
	}
	dest := env.path("clip.mkv")

	_, err := env.engine.Extract(t.Context(), env.src, types.NewSpan(types.At(1_500_000), types.At(2_500_000)), dest)
	if !errors.Is(err, types.ErrConcatFailure) {
		t.Fatalf("expected ErrConcatFailure, got %v", err)
	}
	assertFiles(t, env, "talk.mkv")
}

func TestEngine_Extract_NoBracketingKeyframe(t *testing.T) {
	env := newTestEnv(t, 0, 1)
	// Beyond the last keyframe with no stream duration to bracket against.
	_, err := env.engine.Extract(t.Context(), env.src, types.NewSpan(types.At(9_000_000), nil), env.path("clip.mkv"))
	if !errors.Is(err, types.ErrNoBracketingKeyframe) {
		t.Fatalf("expected ErrNoBracketingKeyframe, got %v", err)
	}
	assertFiles(t, env, "talk.mkv")
}

func TestEngine_Extract_FinalGOP(t *testing.T) {
	env := newTestEnv(t, 9_500_000, 1)
	dest := env.path("clip.mkv")

	if _, err := env.engine.Extract(t.Context(), env.src, types.NewSpan(types.At(6_000_000), types.At(9_000_000)), dest); err != nil {
		t.Fatalf("Extract: %v", err)
	}
	lines := readLines(t, dest)
	want := "transcode " + env.path("clip.tail-temp.mkv") + " [0us, 1000000us)"
	if lines[len(lines)-1] != want {
		t.Errorf("last piece = %q, want %q", lines[len(lines)-1], want)
	}
	copies := env.stub.CallsFor(ffmpeg.OpCopy)
	tailCopy := copies[len(copies)-1]
	if tailCopy.Range.End != 9_500_000 {
		t.Errorf("tail copy range = %s, want end at stream duration", tailCopy.Range)
	}
}

func TestEngine_Extract_RefusesToOverwriteSource(t *testing.T) {
	env := newTestEnv(t, 0, 1)
	_, err := env.engine.Extract(t.Context(), env.src, types.Span{}, env.src)
	if !errors.Is(err, types.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if lines := readLines(t, env.src); lines[0] != "source media" {
		t.Error("source was modified")
	}
}

func TestEngine_SplitAt(t *testing.T) {
	env := newTestEnv(t, 0, 1)
	a, b := env.path("a.mkv"), env.path("b.mkv")

	outs, err := env.engine.SplitAt(t.Context(), env.src, 4_000_000, a, b)
	if err != nil {
		t.Fatalf("SplitAt: %v", err)
	}
	if !slices.Equal(outs, []string{a, b}) {
		t.Errorf("outs = %v", outs)
	}
	if got := readLines(t, a); got[0] != "copy "+env.src+" [0us, 4000000us)" {
		t.Errorf("first part = %q", got)
	}
	if got := readLines(t, b); got[0] != "copy "+env.src+" [4000000us, end)" {
		t.Errorf("second part = %q", got)
	}
}

func TestEngine_SplitEvery(t *testing.T) {
	env := newTestEnv(t, 12_000_000, 1)
	env.stub.KeyframeTimes[env.src] = []types.Timestamp{0, 2_000_000, 4_000_000, 6_000_000, 8_000_000, 10_000_000}
	dest := env.path("part.mkv")

	outs, err := env.engine.SplitEvery(t.Context(), env.src, 3, dest)
	if err != nil {
		t.Fatalf("SplitEvery: %v", err)
	}
	want := []string{env.path("part.cut1.mkv"), env.path("part.cut2.mkv"), env.path("part.cut3.mkv")}
	if !slices.Equal(outs, want) {
		t.Errorf("outs = %v, want %v", outs, want)
	}
	if got := readLines(t, outs[1]); got[0] != "copy "+env.src+" [4000000us, 8000000us)" {
		t.Errorf("middle part = %q", got)
	}
	assertFiles(t, env, "talk.mkv", "part.cut1.mkv", "part.cut2.mkv", "part.cut3.mkv")
}

func TestEngine_SplitEvery_FailureRemovesEarlierParts(t *testing.T) {
	env := newTestEnv(t, 12_000_000, 1)
	env.stub.Fail = func(c ffmpeg.Call) error {
		if strings.Contains(c.Dst, "cut2") {
			return &ffmpeg.ToolError{Op: c.Op, Program: "ffmpeg", ExitCode: 1, Stderr: "disk full"}
		}
		return nil
	}

	_, err := env.engine.SplitEvery(t.Context(), env.src, 3, env.path("part.mkv"))
	if !errors.Is(err, types.ErrExternalToolFailure) {
		t.Fatalf("expected ErrExternalToolFailure, got %v", err)
	}
	assertFiles(t, env, "talk.mkv")
}

func TestEngine_SplitEvery_InvalidInput(t *testing.T) {
	env := newTestEnv(t, 0, 1)

	if _, err := env.engine.SplitEvery(t.Context(), env.src, 0, env.path("p.mkv")); !errors.Is(err, types.ErrInvalidInput) {
		t.Errorf("n=0: expected ErrInvalidInput, got %v", err)
	}
	// No duration reported by the container.
	if _, err := env.engine.SplitEvery(t.Context(), env.src, 2, env.path("p.mkv")); !errors.Is(err, types.ErrProbeFailure) {
		t.Errorf("no duration: expected ErrProbeFailure, got %v", err)
	}
}

func TestEngine_SplitInterval(t *testing.T) {
	env := newTestEnv(t, 9_000_000, 1)

	outs, err := env.engine.SplitInterval(t.Context(), env.src, 4_000_000, env.path("p.mkv"))
	if err != nil {
		t.Fatalf("SplitInterval: %v", err)
	}
	if len(outs) != 3 {
		t.Fatalf("got %d parts, want 3", len(outs))
	}
	if got := readLines(t, outs[2]); got[0] != "copy "+env.src+" [8000000us, end)" {
		t.Errorf("last part = %q", got)
	}
}

func TestEngine_Evaluate_WholeRootIsUnchanged(t *testing.T) {
	env := newTestEnv(t, 0, 1)

	out, err := env.engine.Evaluate(t.Context(), types.Whole(env.src), env.path("out.mkv"))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if out != env.src {
		t.Errorf("out = %q, want source path", out)
	}
	if len(env.stub.Calls) != 0 {
		t.Errorf("whole fragment should do no work, got %d calls", len(env.stub.Calls))
	}
}

func TestEngine_Evaluate_Sequence(t *testing.T) {
	env := newTestEnv(t, 0, 1)
	intro := env.path("intro.mkv")
	if err := os.WriteFile(intro, []byte("intro\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	dest := env.path("out.mkv")

	tree := types.Sequence(
		types.Whole(intro),
		types.Segment(env.src, types.NewSpan(types.At(2_000_000), types.At(4_000_000))),
		types.Sequence(
			types.Segment(env.src, types.NewSpan(types.At(6_000_000), types.At(8_000_000))),
		),
	)

	out, err := env.engine.Evaluate(t.Context(), tree, dest)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if out != dest {
		t.Errorf("out = %q, want %q", out, dest)
	}

	want := []string{
		"intro",
		"copy " + env.src + " [2000000us, 4000000us)",
		"copy " + env.src + " [6000000us, 8000000us)",
	}
	if got := readLines(t, dest); !slices.Equal(got, want) {
		t.Errorf("output = %q, want %q", got, want)
	}
	assertFiles(t, env, "talk.mkv", "intro.mkv", "out.mkv")
}

func TestEngine_Evaluate_ParallelKeepsOrder(t *testing.T) {
	env := newTestEnv(t, 0, 4)
	var children []types.Fragment
	for i := range 4 {
		start := types.Timestamp(i) * 2_000_000
		children = append(children, types.Segment(env.src, types.NewSpan(types.At(start), types.At(start+2_000_000))))
	}
	dest := env.path("out.mkv")

	if _, err := env.engine.Evaluate(t.Context(), types.Sequence(children...), dest); err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	lines := readLines(t, dest)
	for i, line := range lines {
		start := types.Timestamp(i) * 2_000_000
		want := "copy " + env.src + " [" + start.String() + ", " + (start + 2_000_000).String() + ")"
		if line != want {
			t.Errorf("part %d = %q, want %q", i, line, want)
		}
	}
	assertFiles(t, env, "talk.mkv", "out.mkv")
}

func TestEngine_Evaluate_ChildFailureCleansUp(t *testing.T) {
	env := newTestEnv(t, 0, 2)
	intro := env.path("intro.mkv")
	if err := os.WriteFile(intro, []byte("intro\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	env.stub.Fail = func(c ffmpeg.Call) error {
		if strings.Contains(c.Dst, "part2") {
			return &ffmpeg.ToolError{Op: c.Op, Program: "ffmpeg", ExitCode: 1, Stderr: "boom"}
		}
		return nil
	}

	tree := types.Sequence(
		types.Whole(intro),
		types.Segment(env.src, types.NewSpan(types.At(0), types.At(2_000_000))),
		types.Segment(env.src, types.NewSpan(types.At(2_000_000), types.At(4_000_000))),
	)

	_, err := env.engine.Evaluate(t.Context(), tree, env.path("out.mkv"))
	if !errors.Is(err, types.ErrExternalToolFailure) {
		t.Fatalf("expected ErrExternalToolFailure, got %v", err)
	}
	assertFiles(t, env, "talk.mkv", "intro.mkv")
}

func TestEngine_Evaluate_InvalidTree(t *testing.T) {
	env := newTestEnv(t, 0, 1)

	_, err := env.engine.Evaluate(t.Context(), types.Sequence(), env.path("out.mkv"))
	if !errors.Is(err, types.ErrInvalidInput) {
		t.Errorf("empty sequence: expected ErrInvalidInput, got %v", err)
	}

	_, err = env.engine.Evaluate(t.Context(), types.Sequence(types.Whole(env.src)), env.src)
	if !errors.Is(err, types.ErrInvalidInput) {
		t.Errorf("output naming a source: expected ErrInvalidInput, got %v", err)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func assertContent(t *testing.T, path, want string) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("%s: %v", path, err)
	}
	if string(data) != want {
		t.Errorf("%s = %q, want %q", filepath.Base(path), data, want)
	}
}

func TestEngine_DryRun_EvaluateFailureKeepsExistingOutput(t *testing.T) {
	env := newTestEnv(t, 0, 1)
	env.stub.DryRun = true
	dest := env.path("out.mkv")
	writeFile(t, dest, "earlier render\n")
	missing := env.path("missing.mkv")

	trees := map[string]types.Fragment{
		"segment": types.Segment(missing, types.NewSpan(types.At(0), types.At(2_000_000))),
		"sequence": types.Sequence(
			types.Segment(env.src, types.NewSpan(types.At(0), types.At(2_000_000))),
			types.Segment(missing, types.NewSpan(types.At(0), types.At(2_000_000))),
		),
	}
	for name, tree := range trees {
		t.Run(name, func(t *testing.T) {
			_, err := env.engine.Evaluate(t.Context(), tree, dest)
			if !errors.Is(err, types.ErrProbeFailure) {
				t.Fatalf("expected ErrProbeFailure, got %v", err)
			}
			assertContent(t, dest, "earlier render\n")
			assertFiles(t, env, "talk.mkv", "out.mkv")
		})
	}
}

func TestEngine_DryRun_SplitFailureKeepsExistingParts(t *testing.T) {
	env := newTestEnv(t, 0, 1)
	env.stub.DryRun = true
	env.stub.Fail = func(c ffmpeg.Call) error {
		if strings.HasSuffix(c.Dst, "b.mkv") {
			return &ffmpeg.ToolError{Op: c.Op, Program: "ffmpeg", ExitCode: 1, Stderr: "disk full"}
		}
		return nil
	}
	a, b := env.path("a.mkv"), env.path("b.mkv")
	writeFile(t, a, "earlier a\n")
	writeFile(t, b, "earlier b\n")

	_, err := env.engine.SplitAt(t.Context(), env.src, 4_000_000, a, b)
	if !errors.Is(err, types.ErrExternalToolFailure) {
		t.Fatalf("expected ErrExternalToolFailure, got %v", err)
	}
	assertContent(t, a, "earlier a\n")
	assertContent(t, b, "earlier b\n")
	if n := len(env.stub.CallsFor(ffmpeg.OpCopy)); n != 2 {
		t.Errorf("copies recorded = %d, want 2", n)
	}
}

func TestEngine_SplitFailureRemovesOnlyRewrittenParts(t *testing.T) {
	env := newTestEnv(t, 0, 1)
	env.stub.Fail = func(c ffmpeg.Call) error {
		if strings.HasSuffix(c.Dst, "b.mkv") {
			return &ffmpeg.ToolError{Op: c.Op, Program: "ffmpeg", ExitCode: 1, Stderr: "disk full"}
		}
		return nil
	}
	a, b := env.path("a.mkv"), env.path("b.mkv")
	writeFile(t, a, "earlier a\n")
	writeFile(t, b, "earlier b\n")

	if _, err := env.engine.SplitAt(t.Context(), env.src, 4_000_000, a, b); err == nil {
		t.Fatal("expected error")
	}
	// a.mkv was overwritten by this run and is removed; the failing copy
	// never touched b.mkv.
	assertFiles(t, env, "talk.mkv", "b.mkv")
	assertContent(t, b, "earlier b\n")
}

func TestOutputMark(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.mkv")

	fresh := markOutput(path)
	if fresh.written() {
		t.Error("absent file reported as written")
	}
	writeFile(t, path, "new\n")
	if !fresh.written() {
		t.Error("file created after marking should count as written")
	}

	kept := markOutput(path)
	if kept.written() {
		t.Error("untouched file reported as written")
	}
	writeFile(t, path, "rewritten output\n")
	if !kept.written() {
		t.Error("rewritten file should count as written")
	}
}
