package runtime

import "github.com/pithecene-io/keycut/keyframe"

// outputMark records which file, if any, sat at an output path before an
// edit ran.
type outputMark struct {
	path    string
	existed bool
	prior   keyframe.Identity
}

func markOutput(path string) outputMark {
	id, err := keyframe.Identify(path)
	return outputMark{path: path, existed: err == nil, prior: id}
}

// written reports whether the file now at the path differs from the one
// marked: it is new, or it was rewritten in place.
func (m outputMark) written() bool {
	id, err := keyframe.Identify(m.path)
	if err != nil {
		return false
	}
	return !m.existed || id != m.prior
}
