package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_FullConfig(t *testing.T) {
	yaml := `tools:
  ffmpeg: /opt/bin/ffmpeg
  ffprobe: /opt/bin/ffprobe

keyframes:
  padding: 30s
  cache_dir: /var/cache/keycut
  full_scan: true

transcode:
  args: ["-c:v", "libx264", "-crf", "18"]

parallel: 4

log:
  level: debug

journal:
  dataset: edits
  backend: s3
  path: my-bucket/prefix
  region: us-east-1
  endpoint: https://example.com
  s3_path_style: true

adapter:
  type: webhook
  url: https://hooks.example.com/keycut
  headers:
    Authorization: Bearer token123
  timeout: 10s
  retries: 3
`
	path := writeTemp(t, yaml)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	assertEqual(t, "tools.ffmpeg", cfg.Tools.FFmpeg, "/opt/bin/ffmpeg")
	assertEqual(t, "tools.ffprobe", cfg.Tools.FFprobe, "/opt/bin/ffprobe")

	if cfg.Keyframes.Padding.Duration != 30*time.Second {
		t.Errorf("keyframes.padding: got %v, want 30s", cfg.Keyframes.Padding.Duration)
	}
	assertEqual(t, "keyframes.cache_dir", cfg.Keyframes.CacheDir, "/var/cache/keycut")
	if !cfg.Keyframes.FullScan {
		t.Error("keyframes.full_scan: expected true")
	}

	if got := strings.Join(cfg.Transcode.Args, " "); got != "-c:v libx264 -crf 18" {
		t.Errorf("transcode.args: got %q", got)
	}
	if cfg.Parallel != 4 {
		t.Errorf("parallel: got %d, want 4", cfg.Parallel)
	}
	assertEqual(t, "log.level", cfg.Log.Level, "debug")

	assertEqual(t, "journal.dataset", cfg.Journal.Dataset, "edits")
	assertEqual(t, "journal.backend", cfg.Journal.Backend, "s3")
	assertEqual(t, "journal.path", cfg.Journal.Path, "my-bucket/prefix")
	assertEqual(t, "journal.region", cfg.Journal.Region, "us-east-1")
	assertEqual(t, "journal.endpoint", cfg.Journal.Endpoint, "https://example.com")
	if !cfg.Journal.S3PathStyle {
		t.Error("journal.s3_path_style: expected true")
	}
	if !cfg.Journal.Enabled() {
		t.Error("journal should be enabled")
	}

	assertEqual(t, "adapter.type", cfg.Adapter.Type, "webhook")
	assertEqual(t, "adapter.url", cfg.Adapter.URL, "https://hooks.example.com/keycut")
	assertEqual(t, "adapter.headers.Authorization", cfg.Adapter.Headers["Authorization"], "Bearer token123")
	if cfg.Adapter.Timeout.Duration != 10*time.Second {
		t.Errorf("adapter.timeout: got %v, want 10s", cfg.Adapter.Timeout.Duration)
	}
	if cfg.Adapter.Retries == nil || *cfg.Adapter.Retries != 3 {
		t.Errorf("adapter.retries: got %v, want 3", cfg.Adapter.Retries)
	}
}

func TestLoad_EmptyConfig(t *testing.T) {
	path := writeTemp(t, "")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed for empty config: %v", err)
	}
	if cfg.Tools.FFmpeg != "" || cfg.Parallel != 0 {
		t.Errorf("expected zero config, got %+v", cfg)
	}
	if cfg.Journal.Enabled() {
		t.Error("journal should be disabled by default")
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/keycut.yaml")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !strings.Contains(err.Error(), "config file not found") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeTemp(t, "tools: [unterminated")
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("KEYCUT_TEST_CACHE", "/tmp/kc-cache")

	path := writeTemp(t, "keyframes:\n  cache_dir: ${KEYCUT_TEST_CACHE}\nlog:\n  level: ${KEYCUT_TEST_LEVEL:-warn}\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	assertEqual(t, "keyframes.cache_dir", cfg.Keyframes.CacheDir, "/tmp/kc-cache")
	assertEqual(t, "log.level", cfg.Log.Level, "warn")
}

func TestLoad_UnknownKeyRejected(t *testing.T) {
	path := writeTemp(t, "parallel: 2\nbogus_key: should_fail\n")
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for unknown key, got nil")
	}
	if !strings.Contains(err.Error(), "bogus_key") {
		t.Errorf("error should mention the unknown key, got: %v", err)
	}
}

func TestLoad_UnknownNestedKeyRejected(t *testing.T) {
	yaml := `keyframes:
  padding: 5s
  unknown_field: bad
`
	path := writeTemp(t, yaml)
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for unknown nested key, got nil")
	}
	if !strings.Contains(err.Error(), "unknown_field") {
		t.Errorf("error should mention the unknown key, got: %v", err)
	}
}

func TestLoad_WhitespaceOnlyConfig(t *testing.T) {
	path := writeTemp(t, "   \n  \n  \n")
	if _, err := Load(path); err != nil {
		t.Fatalf("Load failed for whitespace-only config: %v", err)
	}
}

func TestLoad_CommentsOnlyConfig(t *testing.T) {
	path := writeTemp(t, "# This is a comment\n# Another comment\n")
	if _, err := Load(path); err != nil {
		t.Fatalf("Load failed for comments-only config: %v", err)
	}
}

func TestLoad_RetriesZeroDistinctFromNil(t *testing.T) {
	yaml := `adapter:
  type: webhook
  url: https://example.com
  retries: 0
`
	path := writeTemp(t, yaml)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Adapter.Retries == nil {
		t.Fatal("retries: 0 should parse as non-nil")
	}
	if *cfg.Adapter.Retries != 0 {
		t.Errorf("retries: got %d, want 0", *cfg.Adapter.Retries)
	}
}

func TestLoad_RetriesOmittedIsNil(t *testing.T) {
	path := writeTemp(t, "adapter:\n  type: webhook\n  url: https://example.com\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Adapter.Retries != nil {
		t.Errorf("retries omitted should be nil, got %d", *cfg.Adapter.Retries)
	}
}

func TestLoad_RedisAdapterConfig(t *testing.T) {
	yaml := `adapter:
  type: redis
  url: redis://localhost:6379/0
  channel: edits
  key_prefix: "keycut:edit:"
  key_ttl: 1h
`
	path := writeTemp(t, yaml)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	assertEqual(t, "adapter.type", cfg.Adapter.Type, "redis")
	assertEqual(t, "adapter.channel", cfg.Adapter.Channel, "edits")
	assertEqual(t, "adapter.key_prefix", cfg.Adapter.KeyPrefix, "keycut:edit:")
	if cfg.Adapter.KeyTTL.Duration != time.Hour {
		t.Errorf("adapter.key_ttl: got %v, want 1h", cfg.Adapter.KeyTTL.Duration)
	}
}

func TestLoad_ValidationFailures(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"negative parallel", "parallel: -1\n", "parallel"},
		{"bad log level", "log:\n  level: chatty\n", "log.level"},
		{"bad journal backend", "journal:\n  backend: ftp\n", "journal.backend"},
		{"bad adapter type", "adapter:\n  type: kafka\n", "adapter.type"},
		{"negative retries", "adapter:\n  type: webhook\n  retries: -2\n", "adapter.retries"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeTemp(t, tt.yaml)
			_, err := Load(path)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q should mention %q", err, tt.want)
			}
		})
	}
}

func TestDuration_InvalidFormat(t *testing.T) {
	path := writeTemp(t, "keyframes:\n  padding: soon\n")
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for invalid duration")
	}
	if !strings.Contains(err.Error(), "invalid duration") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestDuration_EmptyIsZero(t *testing.T) {
	path := writeTemp(t, "keyframes:\n  padding: \"\"\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Keyframes.Padding.Duration != 0 {
		t.Errorf("expected zero padding, got %v", cfg.Keyframes.Padding.Duration)
	}
}

func TestDuration_UnmarshalYAML(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"5m30s", 5*time.Minute + 30*time.Second},
		{"250ms", 250 * time.Millisecond},
		{"12", 12 * time.Second},
		{"1.5", 1500 * time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			path := writeTemp(t, "keyframes:\n  padding: \""+tt.in+"\"\n")
			cfg, err := Load(path)
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if cfg.Keyframes.Padding.Duration != tt.want {
				t.Errorf("got %v, want %v", cfg.Keyframes.Padding.Duration, tt.want)
			}
		})
	}
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	cfg, err := Discover("")
	if err != nil {
		t.Fatalf("Discover without a default file: %v", err)
	}
	if cfg != nil {
		t.Fatalf("expected nil config, got %+v", cfg)
	}

	if err := os.WriteFile(filepath.Join(dir, DefaultFileName), []byte("parallel: 3\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err = Discover("")
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if cfg == nil || cfg.Parallel != 3 {
		t.Fatalf("expected parallel 3 from %s, got %+v", DefaultFileName, cfg)
	}

	if _, err := Discover(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatal("explicit missing path should fail")
	}
}

// writeTemp writes content to a temp file and returns the path.
func writeTemp(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "keycut.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}

func assertEqual(t *testing.T, field, got, want string) {
	t.Helper()
	if got != want {
		t.Errorf("%s: got %q, want %q", field, got, want)
	}
}
