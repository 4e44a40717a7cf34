// Package keyframe indexes keyframe timestamps of a source file and matches
// requested edit points against them.
package keyframe

import (
	"fmt"
	"sort"

	"github.com/pithecene-io/keycut/types"
)

// Sequence is an ascending list of keyframe timestamps for one source file,
// scoped to the window it was probed over.
type Sequence []types.Timestamp

// Role says which end of a span a point is matched for.
type Role int

// Match roles.
const (
	RoleStart Role = iota
	RoleEnd
)

func (r Role) String() string {
	if r == RoleStart {
		return "start"
	}
	return "end"
}

// Kind discriminates Match outcomes.
type Kind int

// Match kinds.
const (
	// KindExact means a keyframe equals the target.
	KindExact Kind = iota
	// KindBoundary means the target is the natural start or end of the
	// available sequence.
	KindBoundary
	// KindBetween means the target lies strictly between two keyframes.
	KindBetween
)

func (k Kind) String() string {
	switch k {
	case KindExact:
		return "exact"
	case KindBoundary:
		return "boundary"
	case KindBetween:
		return "between"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Match is the outcome of matching a target against a Sequence.
// For Exact and Boundary only Target is meaningful; Between also carries
// the bracketing keyframes.
type Match struct {
	Kind   Kind
	Before types.Timestamp
	Target types.Timestamp
	After  types.Timestamp
}

// Exact returns an exact keyframe match.
func Exact(t types.Timestamp) Match {
	return Match{Kind: KindExact, Target: t}
}

// Boundary returns a match pinned to the natural end of the sequence.
func Boundary(t types.Timestamp) Match {
	return Match{Kind: KindBoundary, Target: t}
}

// Between returns a match for a target strictly between two keyframes.
func Between(before, target, after types.Timestamp) Match {
	return Match{Kind: KindBetween, Before: before, Target: target, After: after}
}

// Aligned reports whether the match needs no re-encoding.
func (m Match) Aligned() bool {
	return m.Kind != KindBetween
}

// Validate checks the bracket ordering of a Between match.
func (m Match) Validate() error {
	if m.Kind == KindBetween && !(m.Before < m.Target && m.Target < m.After) {
		return fmt.Errorf("%w: inverted keyframe bracket %s", types.ErrInvalidSpan, m)
	}
	return nil
}

func (m Match) String() string {
	switch m.Kind {
	case KindBetween:
		return fmt.Sprintf("between(%s, %s, %s)", m.Before, m.Target, m.After)
	default:
		return fmt.Sprintf("%s(%s)", m.Kind, m.Target)
	}
}

// MatchPoint matches target against keys for the given role.
//
// A nil target is the natural end of the sequence: the first keyframe for
// RoleStart, the last for RoleEnd. Otherwise RoleStart looks for the closest
// keyframe not after the target and RoleEnd the closest not before it.
// ErrNoBracketingKeyframe is returned when keys has nothing on a required
// side, which means the probe window did not reach far enough.
func MatchPoint(keys Sequence, target *types.Timestamp, role Role) (Match, error) {
	if len(keys) == 0 {
		return Match{}, fmt.Errorf("%w: no keyframes in probe window", types.ErrNoBracketingKeyframe)
	}

	if target == nil {
		if role == RoleStart {
			return Boundary(keys[0]), nil
		}
		return Boundary(keys[len(keys)-1]), nil
	}
	t := *target

	switch role {
	case RoleStart:
		// i is the first keyframe after t.
		i := sort.Search(len(keys), func(i int) bool { return keys[i] > t })
		if i == 0 {
			return Match{}, fmt.Errorf("%w: no keyframe at or before start %s (first is %s)",
				types.ErrNoBracketingKeyframe, t, keys[0])
		}
		if keys[i-1] == t {
			return Exact(t), nil
		}
		if i == len(keys) {
			return Match{}, fmt.Errorf("%w: no keyframe after start %s (last is %s)",
				types.ErrNoBracketingKeyframe, t, keys[len(keys)-1])
		}
		return Between(keys[i-1], t, keys[i]), nil

	default:
		// i is the first keyframe at or after t.
		i := sort.Search(len(keys), func(i int) bool { return keys[i] >= t })
		if i == len(keys) {
			return Match{}, fmt.Errorf("%w: no keyframe at or after end %s (last is %s)",
				types.ErrNoBracketingKeyframe, t, keys[len(keys)-1])
		}
		if keys[i] == t {
			return Exact(t), nil
		}
		if i == 0 {
			return Match{}, fmt.Errorf("%w: no keyframe before end %s (first is %s)",
				types.ErrNoBracketingKeyframe, t, keys[0])
		}
		return Between(keys[i-1], t, keys[i]), nil
	}
}
