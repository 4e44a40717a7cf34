package runtime

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/pithecene-io/keycut/iox"
	"github.com/pithecene-io/keycut/log"
	"github.com/pithecene-io/keycut/metrics"
)

// Scratch is the set of intermediate files one edit owns. Tracked paths are
// removed by Release or Cleanup; Cleanup is meant to be deferred so temp
// state goes away on every exit path.
type Scratch struct {
	mu      sync.Mutex
	paths   []string
	metrics *metrics.Collector
	logger  *log.Logger
}

// NewScratch creates an empty scratch set.
func NewScratch(m *metrics.Collector, logger *log.Logger) *Scratch {
	return &Scratch{metrics: m, logger: logger}
}

// Track takes ownership of paths. Already tracked paths are ignored.
func (s *Scratch) Track(paths ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	added := 0
	for _, p := range paths {
		if !slices.Contains(s.paths, p) {
			s.paths = append(s.paths, p)
			added++
		}
	}
	s.metrics.AddTempCreated(added)
}

// Owns reports whether path is tracked.
func (s *Scratch) Owns(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Contains(s.paths, path)
}

// Forget gives up ownership of path without removing it.
func (s *Scratch) Forget(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paths = slices.DeleteFunc(s.paths, func(p string) bool { return p == path })
}

// Paths returns the tracked paths in tracking order.
func (s *Scratch) Paths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.paths)
}

// Release removes the given tracked paths now. Untracked paths are left
// alone.
func (s *Scratch) Release(paths ...string) error {
	s.mu.Lock()
	var owned []string
	for _, p := range paths {
		if slices.Contains(s.paths, p) {
			owned = append(owned, p)
		}
	}
	s.paths = slices.DeleteFunc(s.paths, func(p string) bool { return slices.Contains(owned, p) })
	s.mu.Unlock()

	return s.remove(owned)
}

// Cleanup removes every tracked path.
func (s *Scratch) Cleanup() error {
	s.mu.Lock()
	paths := s.paths
	s.paths = nil
	s.mu.Unlock()

	return s.remove(paths)
}

func (s *Scratch) remove(paths []string) error {
	var errs []error
	removed := 0
	for _, p := range paths {
		ok, err := iox.RemoveQuiet(p)
		if err != nil {
			errs = append(errs, fmt.Errorf("remove %s: %w", p, err))
			continue
		}
		if ok {
			removed++
			s.logger.Debug("removed temp artifact", map[string]any{"path": p})
		}
	}
	s.metrics.AddTempRemoved(removed)
	return errors.Join(errs...)
}
