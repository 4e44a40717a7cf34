package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/pithecene-io/keycut/log"
	"github.com/pithecene-io/keycut/types"
)

// DefaultFileName is the config file looked up in the working directory
// when --config is not given.
const DefaultFileName = "keycut.yaml"

// Config represents a keycut.yaml configuration file.
// All values are optional and act as defaults for command flags.
// CLI flags always override config values.
type Config struct {
	Tools     ToolsConfig     `yaml:"tools"`
	Keyframes KeyframesConfig `yaml:"keyframes"`
	Transcode TranscodeConfig `yaml:"transcode"`
	// Parallel bounds concurrent sibling evaluation in sequence trees.
	Parallel int           `yaml:"parallel"`
	Log      LogConfig     `yaml:"log"`
	Journal  JournalConfig `yaml:"journal"`
	Adapter  AdapterConfig `yaml:"adapter"`
}

// ToolsConfig locates the media tools.
type ToolsConfig struct {
	FFmpeg  string `yaml:"ffmpeg"`
	FFprobe string `yaml:"ffprobe"`
}

// KeyframesConfig tunes the keyframe index.
type KeyframesConfig struct {
	// Padding widens each probe window on both sides.
	Padding Duration `yaml:"padding"`
	// CacheDir persists whole-file keyframe sequences between runs.
	CacheDir string `yaml:"cache_dir"`
	// FullScan probes whole files instead of padded windows.
	FullScan bool `yaml:"full_scan"`
}

// TranscodeConfig holds the output arguments for re-encoded pieces.
type TranscodeConfig struct {
	Args []string `yaml:"args"`
}

// LogConfig holds logging defaults.
type LogConfig struct {
	Level string `yaml:"level"`
}

// JournalConfig enables the edit journal. An empty backend and path
// disables it.
type JournalConfig struct {
	Dataset     string `yaml:"dataset"`
	Backend     string `yaml:"backend"`
	Path        string `yaml:"path"`
	Region      string `yaml:"region"`
	Endpoint    string `yaml:"endpoint"`
	S3PathStyle bool   `yaml:"s3_path_style"`
}

// Enabled reports whether a journal is configured.
func (j JournalConfig) Enabled() bool {
	return j.Backend != "" || j.Path != ""
}

// AdapterConfig holds edit notification defaults.
type AdapterConfig struct {
	Type      string            `yaml:"type"`
	URL       string            `yaml:"url"`
	Channel   string            `yaml:"channel,omitempty"`
	KeyPrefix string            `yaml:"key_prefix,omitempty"`
	KeyTTL    Duration          `yaml:"key_ttl,omitempty"`
	Headers   map[string]string `yaml:"headers,omitempty"`
	Timeout   Duration          `yaml:"timeout,omitempty"`
	Retries   *int              `yaml:"retries,omitempty"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
// Plain numbers are read as seconds.
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "1.5".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	if parsed, err := time.ParseDuration(s); err == nil {
		d.Duration = parsed
		return nil
	}
	ts, err := types.ParseSeconds(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q", s)
	}
	d.Duration = ts.Duration()
	return nil
}

// Validate checks enumerated values and ranges.
func (c *Config) Validate() error {
	var errs []error
	if c.Parallel < 0 {
		errs = append(errs, fmt.Errorf("parallel must be >= 0, got %d", c.Parallel))
	}
	if c.Keyframes.Padding.Duration < 0 {
		errs = append(errs, fmt.Errorf("keyframes.padding must not be negative"))
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	switch c.Journal.Backend {
	case "", "fs", "s3":
	default:
		errs = append(errs, fmt.Errorf("journal.backend must be fs or s3, got %q", c.Journal.Backend))
	}
	switch c.Adapter.Type {
	case "", "webhook", "redis":
	default:
		errs = append(errs, fmt.Errorf("adapter.type must be webhook or redis, got %q", c.Adapter.Type))
	}
	if c.Adapter.Retries != nil && *c.Adapter.Retries < 0 {
		errs = append(errs, fmt.Errorf("adapter.retries must be >= 0, got %d", *c.Adapter.Retries))
	}
	return errors.Join(errs...)
}
