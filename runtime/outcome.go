package runtime

import (
	"context"
	"errors"

	"github.com/pithecene-io/keycut/ffmpeg"
	"github.com/pithecene-io/keycut/types"
)

// Process exit codes for edit outcomes.
const (
	ExitCodeSuccess      = 0 // every output written
	ExitCodeToolFailure  = 1 // copy, transcode or concat failed
	ExitCodeInvalidInput = 2 // invalid span, fragment or argument
	ExitCodeNoKeyframe   = 3 // edit point could not be bracketed
	ExitCodeProbeFailure = 4 // ffprobe failed or produced unusable output
)

// ClassifyOutcome maps an edit error onto an outcome and its exit code.
// A nil error is success. Unclassified errors count as tool failures.
func ClassifyOutcome(err error) (*types.EditOutcome, int) {
	if err == nil {
		return &types.EditOutcome{Status: types.OutcomeSuccess, Message: "edit completed successfully"}, ExitCodeSuccess
	}

	outcome := &types.EditOutcome{Message: err.Error()}
	var toolErr *ffmpeg.ToolError
	if errors.As(err, &toolErr) {
		outcome.Stderr = toolErr.Stderr
	}

	switch {
	case errors.Is(err, types.ErrInvalidSpan), errors.Is(err, types.ErrInvalidInput):
		outcome.Status = types.OutcomeInvalidInput
		return outcome, ExitCodeInvalidInput
	case errors.Is(err, types.ErrNoBracketingKeyframe):
		outcome.Status = types.OutcomeNoKeyframe
		return outcome, ExitCodeNoKeyframe
	case errors.Is(err, types.ErrProbeFailure):
		outcome.Status = types.OutcomeProbeFailure
		return outcome, ExitCodeProbeFailure
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		outcome.Status = types.OutcomeToolFailure
		outcome.Message = "edit interrupted: " + err.Error()
		return outcome, ExitCodeToolFailure
	default:
		outcome.Status = types.OutcomeToolFailure
		return outcome, ExitCodeToolFailure
	}
}
