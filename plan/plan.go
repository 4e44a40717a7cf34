// Package plan decomposes a matched span into aligned copy and transcode
// steps plus the ordered pieces that make up the output.
package plan

import (
	"fmt"

	"github.com/pithecene-io/keycut/iox"
	"github.com/pithecene-io/keycut/keyframe"
	"github.com/pithecene-io/keycut/types"
)

// StepKind discriminates plan steps.
type StepKind int

// Step kinds.
const (
	// AlignedCopy copies streams between keyframes without re-encoding.
	AlignedCopy StepKind = iota
	// UnalignedTranscode re-encodes a range that does not start or end on
	// a keyframe.
	UnalignedTranscode
)

func (k StepKind) String() string {
	switch k {
	case AlignedCopy:
		return "aligned-copy"
	case UnalignedTranscode:
		return "unaligned-transcode"
	default:
		return fmt.Sprintf("step(%d)", int(k))
	}
}

// Role tags the artifact a step writes. Temp paths derive from the output
// path plus the role, so concurrent edits to different outputs never
// collide.
type Role string

// Artifact roles.
const (
	RoleWhole    Role = "whole"
	RoleHead     Role = "head"
	RoleHeadTemp Role = "head-temp"
	RoleMid      Role = "mid"
	RoleTail     Role = "tail"
	RoleTailTemp Role = "tail-temp"
	RoleTemp     Role = "temp"
)

// Path returns the artifact path for role derived from output.
func Path(output string, role Role) string {
	return iox.PathWithSuffix(output, string(role))
}

// Step is one external tool invocation. Start and End are relative to
// Source's own zero. ToEnd drops the end bound so the copy runs through
// the end of the stream.
type Step struct {
	Kind   StepKind
	Role   Role
	Source string
	Dest   string
	Start  types.Timestamp
	End    types.Timestamp
	ToEnd  bool
}

// Length returns the duration of the range the step writes.
func (s Step) Length() types.Timestamp {
	return s.End.SaturatingSub(s.Start)
}

func (s Step) String() string {
	end := s.End.String()
	if s.ToEnd {
		end = "end"
	}
	return fmt.Sprintf("%s %s [%s, %s) %s -> %s", s.Role, s.Kind, s.Start, end, s.Source, s.Dest)
}

// Plan is the full decomposition of one span.
type Plan struct {
	Source string
	Output string
	// Steps run in order; later steps may read what earlier ones wrote.
	Steps []Step
	// Pieces are concatenated in order into Output. Empty when the last
	// step writes Output directly.
	Pieces []string
	// Temps lists every intermediate path the plan writes, pieces
	// included. None of them survive a finished edit.
	Temps []string
}

// NeedsConcat reports whether the pieces must be assembled.
func (p *Plan) NeedsConcat() bool {
	return len(p.Pieces) > 0
}

// Count returns the number of steps of kind k.
func (p *Plan) Count(k StepKind) int {
	n := 0
	for _, s := range p.Steps {
		if s.Kind == k {
			n++
		}
	}
	return n
}

// Duration returns the summed length of the pieces that reach the output.
func (p *Plan) Duration() types.Timestamp {
	var d types.Timestamp
	for _, s := range p.Steps {
		if s.Dest == p.Output || p.isPiece(s.Dest) {
			d += s.Length()
		}
	}
	return d
}

func (p *Plan) isPiece(path string) bool {
	for _, piece := range p.Pieces {
		if piece == path {
			return true
		}
	}
	return false
}

// Build plans the extraction of [start, end] from source into output.
//
// Both ends aligned yields a single aligned copy written to output. A
// Between start adds a head piece: the surrounding GOP is copied and then
// trimmed by transcoding, with times rebased to the copy's own zero. A
// Between end adds a tail piece the same way. Whenever a head or tail
// exists the aligned middle piece is copied too, and the pieces are
// concatenated head, mid, tail. Both ends inside one GOP collapse into a
// single copy and trim.
func Build(source, output string, start, end keyframe.Match) (*Plan, error) {
	if err := start.Validate(); err != nil {
		return nil, err
	}
	if err := end.Validate(); err != nil {
		return nil, err
	}
	if end.Target < start.Target {
		return nil, fmt.Errorf("%w: start %s is after end %s", types.ErrInvalidSpan, start, end)
	}

	p := &Plan{Source: source, Output: output}

	switch {
	case start.Aligned() && end.Aligned():
		p.Steps = []Step{{
			Kind:   AlignedCopy,
			Role:   RoleWhole,
			Source: source,
			Dest:   output,
			Start:  start.Target,
			End:    end.Target,
			ToEnd:  end.Kind == keyframe.KindBoundary,
		}}

	case sameGOP(start, end):
		temp := Path(output, RoleTemp)
		p.Steps = []Step{
			{Kind: AlignedCopy, Role: RoleTemp, Source: source, Dest: temp, Start: start.Before, End: start.After},
			{Kind: UnalignedTranscode, Role: RoleWhole, Source: temp, Dest: output,
				Start: start.Target - start.Before, End: end.Target - start.Before},
		}
		p.Temps = []string{temp}

	default:
		p.split(start, end)
	}

	return p, nil
}

// sameGOP reports whether both ends fall strictly inside the same GOP.
func sameGOP(start, end keyframe.Match) bool {
	return start.Kind == keyframe.KindBetween && end.Kind == keyframe.KindBetween &&
		start.Before == end.Before && start.After == end.After
}

// split fills p with head, mid and tail pieces.
func (p *Plan) split(start, end keyframe.Match) {
	midStart, midEnd := start.Target, end.Target

	switch start.Kind {
	case keyframe.KindBetween:
		temp, head := Path(p.Output, RoleHeadTemp), Path(p.Output, RoleHead)
		p.Steps = append(p.Steps,
			Step{Kind: AlignedCopy, Role: RoleHeadTemp, Source: p.Source, Dest: temp, Start: start.Before, End: start.After},
			Step{Kind: UnalignedTranscode, Role: RoleHead, Source: temp, Dest: head,
				Start: start.Target - start.Before, End: start.After - start.Before},
		)
		p.Pieces = append(p.Pieces, head)
		p.Temps = append(p.Temps, temp, head)
		midStart = start.After
	case keyframe.KindExact, keyframe.KindBoundary:
	}

	mid := Path(p.Output, RoleMid)
	midStep := Step{Kind: AlignedCopy, Role: RoleMid, Source: p.Source, Dest: mid, Start: midStart}

	switch end.Kind {
	case keyframe.KindBetween:
		midEnd = end.Before
	case keyframe.KindBoundary:
		midStep.ToEnd = true
	case keyframe.KindExact:
	}
	midStep.End = midEnd
	p.Steps = append(p.Steps, midStep)
	p.Pieces = append(p.Pieces, mid)
	p.Temps = append(p.Temps, mid)

	if end.Kind == keyframe.KindBetween {
		temp, tail := Path(p.Output, RoleTailTemp), Path(p.Output, RoleTail)
		p.Steps = append(p.Steps,
			Step{Kind: AlignedCopy, Role: RoleTailTemp, Source: p.Source, Dest: temp, Start: end.Before, End: end.After},
			Step{Kind: UnalignedTranscode, Role: RoleTail, Source: temp, Dest: tail,
				Start: 0, End: end.Target - end.Before},
		)
		p.Pieces = append(p.Pieces, tail)
		p.Temps = append(p.Temps, temp, tail)
	}
}
