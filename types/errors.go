package types

import "errors"

// Sentinel errors for edit failure classification.
// Use errors.Is(err, ErrXxx) for typed assertions.
var (
	// ErrProbeFailure indicates ffprobe exited non-zero or produced output
	// that could not be parsed.
	ErrProbeFailure = errors.New("probe failed")

	// ErrNoBracketingKeyframe indicates the keyframe sequence has no
	// keyframe on the side required to bracket a target timestamp.
	ErrNoBracketingKeyframe = errors.New("no bracketing keyframe")

	// ErrExternalToolFailure indicates a copy or transcode invocation failed.
	ErrExternalToolFailure = errors.New("external tool failed")

	// ErrConcatFailure indicates the concat invocation failed.
	ErrConcatFailure = errors.New("concat failed")

	// ErrInvalidSpan indicates a span whose start is after its end, or a
	// keyframe bracket with inverted ordering.
	ErrInvalidSpan = errors.New("invalid span")

	// ErrInvalidInput indicates an unusable request: a malformed fragment
	// tree, a zero part count, or an output path that names the source.
	ErrInvalidInput = errors.New("invalid input")
)
