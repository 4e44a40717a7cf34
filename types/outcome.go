package types

import (
	"errors"
	"fmt"
	"time"
)

// EditMeta identifies one edit invocation.
type EditMeta struct {
	// EditID is unique per invocation; it correlates log lines, journal
	// records and notifications.
	EditID string
	// Operation is the produced operation: extract, split, split-every or
	// sequence.
	Operation string
	// Source is the primary input file. Empty for fragment trees.
	Source string
	// StartedAt is when the edit began.
	StartedAt time.Time
}

// Validate checks that the edit is identified.
func (m *EditMeta) Validate() error {
	if m.EditID == "" {
		return errors.New("edit_id must be non-empty")
	}
	if m.Operation == "" {
		return fmt.Errorf("edit %s: operation must be non-empty", m.EditID)
	}
	return nil
}

// OutcomeStatus represents the final status of an edit.
type OutcomeStatus string

const (
	// OutcomeSuccess indicates every output was written.
	OutcomeSuccess OutcomeStatus = "success"
	// OutcomeToolFailure indicates a copy, transcode or concat failed.
	OutcomeToolFailure OutcomeStatus = "tool_failure"
	// OutcomeInvalidInput indicates an invalid span, fragment or argument.
	OutcomeInvalidInput OutcomeStatus = "invalid_input"
	// OutcomeNoKeyframe indicates an edit point could not be bracketed.
	OutcomeNoKeyframe OutcomeStatus = "no_keyframe"
	// OutcomeProbeFailure indicates ffprobe failed or its output was unusable.
	OutcomeProbeFailure OutcomeStatus = "probe_failure"
)

// EditOutcome represents the final outcome of an edit.
type EditOutcome struct {
	// Status is the outcome classification.
	Status OutcomeStatus
	// Message is a human-readable description.
	Message string
	// Stderr is the failing tool's diagnostic output, verbatim.
	Stderr string
}
