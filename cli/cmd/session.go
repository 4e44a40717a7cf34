package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/keycut/adapter"
	"github.com/pithecene-io/keycut/adapter/redis"
	"github.com/pithecene-io/keycut/adapter/webhook"
	"github.com/pithecene-io/keycut/cli/config"
	"github.com/pithecene-io/keycut/ffmpeg"
	"github.com/pithecene-io/keycut/iox"
	"github.com/pithecene-io/keycut/journal"
	"github.com/pithecene-io/keycut/keyframe"
	"github.com/pithecene-io/keycut/log"
	"github.com/pithecene-io/keycut/metrics"
	"github.com/pithecene-io/keycut/runtime"
	"github.com/pithecene-io/keycut/types"
)

// defaultAdapterRetries applies when adapter.retries is omitted.
const defaultAdapterRetries = 3

// session carries everything one edit command needs, from the resolved
// config to the notification adapter.
type session struct {
	cfg     *config.Config
	meta    types.EditMeta
	dryRun  bool
	report  string
	metrics *metrics.Collector
	logger  *log.Logger
	engine  *runtime.Engine
	journal *journal.Journal
	notify  adapter.Adapter
	stdout  io.Writer
}

// loadConfig loads --config, or keycut.yaml from the working directory.
// A missing default file yields an empty config.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Discover(c.String("config"))
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = &config.Config{}
	}
	return cfg, nil
}

// resolveString returns the flag value when set on the command line, else
// the config value when non-empty, else the flag default.
func resolveString(c *cli.Context, name, cfgVal string) string {
	if c.IsSet(name) || cfgVal == "" {
		return c.String(name)
	}
	return cfgVal
}

// configVal reads a value from an optional config.
func configVal[T any](cfg *config.Config, get func(*config.Config) T) T {
	var zero T
	if cfg == nil {
		return zero
	}
	return get(cfg)
}

func appWriter(c *cli.Context) io.Writer {
	if c.App.Writer != nil {
		return c.App.Writer
	}
	return os.Stdout
}

func appErrWriter(c *cli.Context) io.Writer {
	if c.App.ErrWriter != nil {
		return c.App.ErrWriter
	}
	return os.Stderr
}

// newTool builds the process-backed media tool from flags and config.
func newTool(c *cli.Context, cfg *config.Config, dryRun bool) *ffmpeg.CLI {
	return ffmpeg.NewCLI(ffmpeg.Config{
		FFmpegPath:    resolveString(c, "ffmpeg", configVal(cfg, func(c *config.Config) string { return c.Tools.FFmpeg })),
		FFprobePath:   resolveString(c, "ffprobe", configVal(cfg, func(c *config.Config) string { return c.Tools.FFprobe })),
		TranscodeArgs: configVal(cfg, func(c *config.Config) []string { return c.Transcode.Args }),
		DryRun:        dryRun,
		DryRunOut:     appWriter(c),
	})
}

// newIndex builds the keyframe index, with a disk store when
// keyframes.cache_dir is configured.
func newIndex(tool keyframe.Prober, cfg *config.Config, m *metrics.Collector) (*keyframe.Index, error) {
	opts := keyframe.Options{
		Padding:  types.FromDuration(cfg.Keyframes.Padding.Duration),
		FullScan: cfg.Keyframes.FullScan,
		Cache:    keyframe.NewCache(),
		Metrics:  m,
	}
	if cfg.Keyframes.CacheDir != "" {
		store, err := keyframe.NewDiskStore(cfg.Keyframes.CacheDir)
		if err != nil {
			return nil, fmt.Errorf("keyframe cache: %w", err)
		}
		opts.Store = store
	}
	return keyframe.NewIndex(tool, opts), nil
}

// journalBackend names the configured journal backend for metrics.
func journalBackend(cfg *config.Config) string {
	if !cfg.Journal.Enabled() {
		return "none"
	}
	if cfg.Journal.Backend == "" {
		return journal.BackendFS
	}
	return cfg.Journal.Backend
}

// openJournal opens the configured journal, or returns nil when none is.
func openJournal(ctx context.Context, cfg *config.Config, m *metrics.Collector) (*journal.Journal, error) {
	if !cfg.Journal.Enabled() {
		return nil, nil
	}
	return journal.Open(ctx, journal.Config{
		Dataset: cfg.Journal.Dataset,
		Backend: journalBackend(cfg),
		Path:    cfg.Journal.Path,
		S3: journal.S3Config{
			Region:       cfg.Journal.Region,
			Endpoint:     cfg.Journal.Endpoint,
			UsePathStyle: cfg.Journal.S3PathStyle,
		},
	}, m)
}

// newAdapter builds the configured edit notification adapter, or returns
// nil when none is.
func newAdapter(cfg config.AdapterConfig) (adapter.Adapter, error) {
	retries := defaultAdapterRetries
	if cfg.Retries != nil {
		retries = *cfg.Retries
	}
	switch cfg.Type {
	case "":
		return nil, nil
	case "webhook":
		return webhook.New(webhook.Config{
			URL:     cfg.URL,
			Headers: cfg.Headers,
			Timeout: cfg.Timeout.Duration,
			Retries: retries,
		})
	case "redis":
		return redis.New(redis.Config{
			URL:       cfg.URL,
			Channel:   cfg.Channel,
			KeyPrefix: cfg.KeyPrefix,
			KeyTTL:    cfg.KeyTTL.Duration,
			Timeout:   cfg.Timeout.Duration,
			Retries:   retries,
		})
	default:
		return nil, fmt.Errorf("unknown adapter type %q", cfg.Type)
	}
}

// openSession resolves config and wires the engine for one edit.
// Setup errors are returned as cli exit errors with the invalid-input code.
func openSession(c *cli.Context, operation, source string) (*session, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, cli.Exit(err.Error(), runtime.ExitCodeInvalidInput)
	}

	level, err := log.ParseLevel(resolveString(c, "log-level", cfg.Log.Level))
	if err != nil {
		return nil, cli.Exit(err.Error(), runtime.ExitCodeInvalidInput)
	}

	dryRun := c.Bool("dry-run")
	meta := types.EditMeta{
		EditID:    uuid.NewString(),
		Operation: operation,
		Source:    source,
		StartedAt: time.Now(),
	}
	logger := log.NewLoggerWithWriter(log.Context{EditID: meta.EditID, Operation: operation}, level, appErrWriter(c))
	m := metrics.NewCollector(operation, meta.EditID, journalBackend(cfg), dryRun)

	tool := newTool(c, cfg, dryRun)
	index, err := newIndex(tool, cfg, m)
	if err != nil {
		return nil, cli.Exit(err.Error(), runtime.ExitCodeInvalidInput)
	}

	notify, err := newAdapter(cfg.Adapter)
	if err != nil {
		return nil, cli.Exit(fmt.Sprintf("invalid adapter config: %v", err), runtime.ExitCodeInvalidInput)
	}

	j, err := openJournal(c.Context, cfg, m)
	if err != nil {
		// The edit itself does not depend on the journal.
		logger.Warn("journal unavailable, edit will not be recorded", map[string]any{"error": err.Error()})
		j = nil
	}

	m.IncEditStarted()
	return &session{
		cfg:    cfg,
		meta:   meta,
		dryRun: dryRun,
		report: c.String("report"),
		engine: runtime.NewEngine(runtime.EngineConfig{
			Tool:     tool,
			Index:    index,
			Parallel: cfg.Parallel,
			Metrics:  m,
			Logger:   logger,
		}),
		metrics: m,
		logger:  logger,
		journal: j,
		notify:  notify,
		stdout:  appWriter(c),
	}, nil
}

// finish classifies the edit result, records and announces it, and maps it
// onto the process exit code. Journal, report and notification failures
// are logged and never change the exit code.
func (s *session) finish(ctx context.Context, outputs []string, editErr error) error {
	defer s.close()

	outcome, code := runtime.ClassifyOutcome(editErr)
	elapsed := time.Since(s.meta.StartedAt)

	fields := map[string]any{
		"outcome":     string(outcome.Status),
		"exit_code":   code,
		"duration_ms": elapsed.Milliseconds(),
	}
	if editErr == nil {
		s.metrics.IncEditSucceeded()
		fields["outputs"] = outputs
		s.logger.Info("edit completed", fields)
	} else {
		s.metrics.IncEditFailed()
		fields["error"] = editErr.Error()
		if outcome.Stderr != "" {
			fields["stderr"] = outcome.Stderr
		}
		s.logger.Error("edit failed", fields)
	}

	// Recording still runs after an interrupt.
	ctx = context.WithoutCancel(ctx)

	if s.journal != nil {
		snap := s.metrics.Snapshot()
		rec := journal.NewEditRecord(s.meta, outputs, outcome, code, elapsed, &snap)
		if err := s.journal.Record(ctx, rec); err != nil {
			s.logger.Warn("failed to record edit in journal", map[string]any{"error": err.Error()})
		}
	}

	if s.report != "" {
		report := runtime.BuildEditReport(s.meta, outputs, outcome, code, elapsed, s.metrics.Snapshot())
		if err := runtime.WriteEditReport(report, s.report); err != nil {
			s.logger.Warn("failed to write edit report", map[string]any{"error": err.Error()})
		}
	}

	if s.notify != nil {
		event := adapter.NewEditCompletedEvent(s.meta, outputs, outcome, code, time.Now(), s.dryRun)
		if err := s.notify.Publish(ctx, event); err != nil {
			s.logger.Warn("failed to publish edit notification", map[string]any{"error": err.Error()})
		}
	}

	if code == runtime.ExitCodeSuccess {
		for _, out := range outputs {
			fmt.Fprintln(s.stdout, out)
		}
		return nil
	}
	return cli.Exit(outcome.Message, code)
}

// close releases the journal and adapter. The logger is synced last and
// its error dropped, since stderr often rejects sync.
func (s *session) close() {
	var cs []io.Closer
	if s.journal != nil {
		cs = append(cs, s.journal)
	}
	if s.notify != nil {
		cs = append(cs, s.notify)
	}
	if err := iox.CloseAll(cs...); err != nil {
		s.logger.Warn("failed to release session resources", map[string]any{"error": err.Error()})
	}
	iox.DiscardClose(iox.CloserFunc(s.logger.Sync))
}

// invalidInput marks argument parsing errors as invalid input.
func invalidInput(err error) error {
	if err == nil || errors.Is(err, types.ErrInvalidInput) || errors.Is(err, types.ErrInvalidSpan) {
		return err
	}
	return fmt.Errorf("%w: %v", types.ErrInvalidInput, err)
}

// isStderrTTY reports whether stderr is a terminal.
func isStderrTTY() bool {
	info, err := os.Stderr.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
