// Package adapter publishes edit completion notifications to downstream
// systems such as a webhook endpoint or a Redis channel.
//
// Notifications are best effort: a failed publish is logged by the caller
// and never changes the edit's outcome or exit code.
package adapter

import (
	"context"
	"time"

	"github.com/pithecene-io/keycut/types"
)

// EventTypeEditCompleted is the event_type of every notification.
const EventTypeEditCompleted = "edit_completed"

// EditCompletedEvent is the payload published when an edit finishes.
type EditCompletedEvent struct {
	ContractVersion string   `json:"contract_version"`
	EventType       string   `json:"event_type"`
	EditID          string   `json:"edit_id"`
	Operation       string   `json:"operation"`
	Source          string   `json:"source,omitempty"`
	Outputs         []string `json:"outputs"`
	Outcome         string   `json:"outcome"`
	Message         string   `json:"message,omitempty"`
	ExitCode        int      `json:"exit_code"`
	Day             string   `json:"day"`
	Timestamp       string   `json:"timestamp"` // RFC 3339, edit end
	DurationMs      int64    `json:"duration_ms"`
	DryRun          bool     `json:"dry_run"`
}

// NewEditCompletedEvent builds the notification for a finished edit.
func NewEditCompletedEvent(meta types.EditMeta, outputs []string, outcome *types.EditOutcome, exitCode int, finished time.Time, dryRun bool) *EditCompletedEvent {
	if outputs == nil {
		outputs = []string{}
	}
	finished = finished.UTC()
	return &EditCompletedEvent{
		ContractVersion: types.Version,
		EventType:       EventTypeEditCompleted,
		EditID:          meta.EditID,
		Operation:       meta.Operation,
		Source:          meta.Source,
		Outputs:         outputs,
		Outcome:         string(outcome.Status),
		Message:         outcome.Message,
		ExitCode:        exitCode,
		Day:             meta.StartedAt.UTC().Format("2006-01-02"),
		Timestamp:       finished.Format(time.RFC3339),
		DurationMs:      finished.Sub(meta.StartedAt).Milliseconds(),
		DryRun:          dryRun,
	}
}

// Adapter publishes edit completion events to a downstream system.
type Adapter interface {
	// Publish sends one event. Must respect context cancellation.
	Publish(ctx context.Context, event *EditCompletedEvent) error

	// Close releases adapter resources.
	Close() error
}
