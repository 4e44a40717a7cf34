package runtime

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pithecene-io/keycut/ffmpeg"
	"github.com/pithecene-io/keycut/iox"
	"github.com/pithecene-io/keycut/log"
	"github.com/pithecene-io/keycut/metrics"
	"github.com/pithecene-io/keycut/types"
)

// Assembler joins pieces into one file by stream copy.
type Assembler struct {
	tool    ffmpeg.Tool
	metrics *metrics.Collector
	logger  *log.Logger
}

// NewAssembler creates an assembler.
func NewAssembler(tool ffmpeg.Tool, m *metrics.Collector, logger *log.Logger) *Assembler {
	return &Assembler{tool: tool, metrics: m, logger: logger}
}

// ManifestPath returns the concat manifest path used for dest. The
// output's extension stays in the name so outputs differing only in
// container get distinct manifests.
func ManifestPath(dest string) string {
	return iox.PathWithSuffix(dest, "manifest") + ".txt"
}

// Manifest renders the concat demuxer manifest for paths, one
// "file '<path>'" line each.
func Manifest(paths []string) (string, error) {
	var b strings.Builder
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return "", fmt.Errorf("resolve %s: %w", p, err)
		}
		b.WriteString("file '")
		b.WriteString(strings.ReplaceAll(abs, "'", `'\''`))
		b.WriteString("'\n")
	}
	return b.String(), nil
}

// Concat joins paths in order into dest. The manifest is always removed.
// Pieces owned by scratch are released once the concat has run, whether it
// succeeded or not; paths scratch does not own are never touched.
func (a *Assembler) Concat(ctx context.Context, paths []string, dest string, scratch *Scratch) (string, error) {
	if len(paths) == 0 {
		return "", fmt.Errorf("%w: nothing to concatenate into %s", types.ErrInvalidInput, dest)
	}
	if scratch != nil {
		defer func() {
			if err := scratch.Release(paths...); err != nil {
				a.logger.Warn("failed to remove consumed pieces", map[string]any{"error": err.Error()})
			}
		}()
	}

	manifest := ManifestPath(dest)
	body, err := Manifest(paths)
	if err != nil {
		return "", fmt.Errorf("%w: %v", types.ErrConcatFailure, err)
	}
	if err := os.WriteFile(manifest, []byte(body), 0o644); err != nil {
		return "", fmt.Errorf("%w: write manifest: %v", types.ErrConcatFailure, err)
	}
	defer func() {
		if _, err := iox.RemoveQuiet(manifest); err != nil {
			a.logger.Warn("failed to remove manifest", map[string]any{"path": manifest, "error": err.Error()})
		}
	}()

	a.metrics.IncConcat()
	if err := a.tool.Concat(ctx, manifest, dest); err != nil {
		a.metrics.IncToolFailure()
		a.logger.Error("concat failed", map[string]any{"dest": dest, "pieces": len(paths), "error": err.Error()})
		var toolErr *ffmpeg.ToolError
		if errors.As(err, &toolErr) {
			return "", fmt.Errorf("concat %d pieces into %s: %w", len(paths), dest, err)
		}
		return "", fmt.Errorf("%w: %v", types.ErrConcatFailure, err)
	}

	a.logger.Info("concat done", map[string]any{"dest": dest, "pieces": len(paths)})
	return dest, nil
}
