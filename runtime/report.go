package runtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pithecene-io/keycut/metrics"
	"github.com/pithecene-io/keycut/types"
)

// EditReport is the structured JSON report written by --report.
type EditReport struct {
	EditID     string              `json:"edit_id"`
	Operation  string              `json:"operation"`
	Source     string              `json:"source,omitempty"`
	Outputs    []string            `json:"outputs"`
	Outcome    types.OutcomeStatus `json:"outcome"`
	Message    string              `json:"message"`
	ExitCode   int                 `json:"exit_code"`
	DurationMs int64               `json:"duration_ms"`
	DryRun     bool                `json:"dry_run"`

	Metrics *metrics.Snapshot `json:"metrics"`

	Stderr string `json:"stderr,omitempty"`
}

// BuildEditReport composes an EditReport from the edit identity, its
// outcome and a metrics snapshot.
func BuildEditReport(meta types.EditMeta, outputs []string, outcome *types.EditOutcome, exitCode int, elapsed time.Duration, snap metrics.Snapshot) *EditReport {
	if outputs == nil {
		outputs = []string{}
	}
	return &EditReport{
		EditID:     meta.EditID,
		Operation:  meta.Operation,
		Source:     meta.Source,
		Outputs:    outputs,
		Outcome:    outcome.Status,
		Message:    outcome.Message,
		ExitCode:   exitCode,
		DurationMs: elapsed.Milliseconds(),
		DryRun:     snap.DryRun,
		Metrics:    &snap,
		Stderr:     outcome.Stderr,
	}
}

// WriteEditReport writes the report as JSON to the specified path.
// If path is "-", writes to stderr.
func WriteEditReport(report *EditReport, path string) error {
	if path == "" {
		return errors.New("report path must not be empty")
	}

	if path == "-" {
		if err := writeEditReportTo(report, os.Stderr); err != nil {
			return fmt.Errorf("failed to write report to stderr: %w", err)
		}
		return nil
	}

	data, err := marshalReport(report)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report to %s: %w", path, err)
	}
	return nil
}

// writeEditReportTo writes report JSON to any writer.
func writeEditReportTo(report *EditReport, w io.Writer) error {
	data, err := marshalReport(report)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func marshalReport(report *EditReport) ([]byte, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report: %w", err)
	}
	return append(data, '\n'), nil
}
