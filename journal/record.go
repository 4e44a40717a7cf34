package journal

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/pithecene-io/keycut/metrics"
	"github.com/pithecene-io/keycut/types"
)

// RecordKindEdit discriminates edit records in the journal dataset.
const RecordKindEdit = "edit"

// dayFormat is the day partition format (UTC).
const dayFormat = "2006-01-02"

// EditRecord is the stored form of one finished edit.
// Operation, Day and EditID are the Hive partition keys.
type EditRecord struct {
	RecordKind string `json:"record_kind"`

	EditID    string   `json:"edit_id"`
	Operation string   `json:"operation"`
	Day       string   `json:"day"`
	Source    string   `json:"source,omitempty"`
	Outputs   []string `json:"outputs"`

	Outcome    types.OutcomeStatus `json:"outcome"`
	Message    string              `json:"message"`
	ExitCode   int                 `json:"exit_code"`
	StartedAt  string              `json:"started_at"`
	DurationMs int64               `json:"duration_ms"`
	DryRun     bool                `json:"dry_run"`

	Metrics *metrics.Snapshot `json:"metrics,omitempty"`
}

// NewEditRecord builds the record for a finished edit.
func NewEditRecord(meta types.EditMeta, outputs []string, outcome *types.EditOutcome, exitCode int, elapsed time.Duration, snap *metrics.Snapshot) EditRecord {
	if outputs == nil {
		outputs = []string{}
	}
	started := meta.StartedAt.UTC()
	rec := EditRecord{
		RecordKind: RecordKindEdit,
		EditID:     meta.EditID,
		Operation:  meta.Operation,
		Day:        started.Format(dayFormat),
		Source:     meta.Source,
		Outputs:    outputs,
		Outcome:    outcome.Status,
		Message:    outcome.Message,
		ExitCode:   exitCode,
		StartedAt:  started.Format(time.RFC3339Nano),
		DurationMs: elapsed.Milliseconds(),
		Metrics:    snap,
	}
	if snap != nil {
		rec.DryRun = snap.DryRun
	}
	return rec
}

// toMap converts the record to the generic map the JSONL codec and the
// Hive layout operate on.
func (r EditRecord) toMap() (map[string]any, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode edit record %s: %w", r.EditID, err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("encode edit record %s: %w", r.EditID, err)
	}
	return m, nil
}

// recordFromMap decodes a stored item. ok is false for items that are not
// edit records.
func recordFromMap(item any) (EditRecord, bool) {
	m, isMap := item.(map[string]any)
	if !isMap || m["record_kind"] != RecordKindEdit {
		return EditRecord{}, false
	}
	data, err := json.Marshal(m)
	if err != nil {
		return EditRecord{}, false
	}
	var rec EditRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return EditRecord{}, false
	}
	return rec, true
}
