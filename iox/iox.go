// Package iox holds the file and cleanup helpers shared by keycut packages.
package iox

import (
	"errors"
	"io"
)

// DiscardClose closes c and drops the error. Use it where a failed close
// cannot change the result, such as a fully read response body.
func DiscardClose(c io.Closer) { _ = c.Close() }

// CloserFunc adapts a release function, such as a flush, to io.Closer.
type CloserFunc func() error

// Close calls f.
func (f CloserFunc) Close() error { return f() }

// CloseAll closes every closer in order, skipping nil ones, and joins the
// errors. A failing closer does not stop the rest.
func CloseAll(cs ...io.Closer) error {
	var errs []error
	for _, c := range cs {
		if c == nil {
			continue
		}
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
