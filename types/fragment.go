package types

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// FragmentKind discriminates the Fragment variants.
type FragmentKind string

// Fragment kinds.
const (
	FragmentWhole    FragmentKind = "whole"
	FragmentSegment  FragmentKind = "segment"
	FragmentSequence FragmentKind = "sequence"
)

// Fragment describes a desired output: a whole file, a segment of a file,
// or an ordered sequence of sub-fragments. Fragments form a tree; children
// are owned by value and never shared.
type Fragment struct {
	Kind     FragmentKind
	File     string
	Span     Span
	Children []Fragment
}

// Whole returns a fragment that takes the entire file as-is.
func Whole(file string) Fragment {
	return Fragment{Kind: FragmentWhole, File: file}
}

// Segment returns a fragment that takes span out of file.
func Segment(file string, span Span) Fragment {
	return Fragment{Kind: FragmentSegment, File: file, Span: span}
}

// Sequence returns a fragment that concatenates children in order.
func Sequence(children ...Fragment) Fragment {
	return Fragment{Kind: FragmentSequence, Children: children}
}

// Validate checks the fragment tree recursively.
func (f Fragment) Validate() error {
	switch f.Kind {
	case FragmentWhole:
		if f.File == "" {
			return fmt.Errorf("%w: whole fragment requires a file", ErrInvalidInput)
		}
	case FragmentSegment:
		if f.File == "" {
			return fmt.Errorf("%w: segment fragment requires a file", ErrInvalidInput)
		}
		return f.Span.Validate()
	case FragmentSequence:
		if len(f.Children) == 0 {
			return fmt.Errorf("%w: sequence fragment requires at least one child", ErrInvalidInput)
		}
		for i, child := range f.Children {
			if err := child.Validate(); err != nil {
				return fmt.Errorf("sequence child %d: %w", i, err)
			}
		}
	default:
		return fmt.Errorf("%w: unknown fragment kind %q", ErrInvalidInput, f.Kind)
	}
	return nil
}

// fragmentNode is the YAML shape of a fragment. Exactly one key is set:
//
//	whole: intro.mkv
//	segment: {file: talk.mkv, start: 1m2s, end: "95.5"}
//	sequence: [...]
type fragmentNode struct {
	Whole    string       `yaml:"whole"`
	Segment  *segmentNode `yaml:"segment"`
	Sequence []Fragment   `yaml:"sequence"`
}

type segmentNode struct {
	File  string `yaml:"file"`
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

// UnmarshalYAML decodes a fragment from its YAML form.
func (f *Fragment) UnmarshalYAML(value *yaml.Node) error {
	var n fragmentNode
	if err := value.Decode(&n); err != nil {
		return err
	}

	set := 0
	if n.Whole != "" {
		set++
	}
	if n.Segment != nil {
		set++
	}
	if n.Sequence != nil {
		set++
	}
	if set != 1 {
		return fmt.Errorf("line %d: fragment must set exactly one of whole, segment, sequence", value.Line)
	}

	switch {
	case n.Whole != "":
		*f = Whole(n.Whole)
	case n.Segment != nil:
		span, err := parseSpanStrings(n.Segment.Start, n.Segment.End)
		if err != nil {
			return fmt.Errorf("line %d: %w", value.Line, err)
		}
		*f = Segment(n.Segment.File, span)
	default:
		*f = Sequence(n.Sequence...)
	}
	return nil
}

// ParseFragment decodes and validates a fragment tree from YAML.
func ParseFragment(data []byte) (Fragment, error) {
	var f Fragment
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Fragment{}, fmt.Errorf("%w: fragment YAML: %v", ErrInvalidInput, err)
	}
	if err := f.Validate(); err != nil {
		return Fragment{}, err
	}
	return f, nil
}

// ParseSpan builds a span from user-supplied bounds; empty strings are open.
func ParseSpan(start, end string) (Span, error) {
	span, err := parseSpanStrings(start, end)
	if err != nil {
		return Span{}, err
	}
	return span, span.Validate()
}

func parseSpanStrings(start, end string) (Span, error) {
	var span Span
	if start != "" {
		t, err := ParseTimestamp(start)
		if err != nil {
			return Span{}, fmt.Errorf("start: %w", err)
		}
		span.Start = &t
	}
	if end != "" {
		t, err := ParseTimestamp(end)
		if err != nil {
			return Span{}, fmt.Errorf("end: %w", err)
		}
		span.End = &t
	}
	return span, nil
}
