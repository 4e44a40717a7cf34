// Package metrics provides per-invocation counters for keycut edits.
//
// The Collector accumulates counters during a single CLI invocation. It is a
// leaf package with no internal dependencies. All increment methods are
// nil-receiver safe so components can be constructed without a collector.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of all counters.
// Returned by Collector.Snapshot(). Safe to read concurrently after creation.
type Snapshot struct {
	// Edit lifecycle
	EditsStarted   int64 `json:"edits_started"`
	EditsSucceeded int64 `json:"edits_succeeded"`
	EditsFailed    int64 `json:"edits_failed"`

	// Keyframe index
	ProbesRun      int64 `json:"probes_run"`
	ProbeFailures  int64 `json:"probe_failures"`
	CacheHits      int64 `json:"cache_hits"`
	WindowsWidened int64 `json:"windows_widened"`

	// Pieces
	AlignedCopies int64 `json:"aligned_copies"`
	Transcodes    int64 `json:"transcodes"`
	Concats       int64 `json:"concats"`
	ToolFailures  int64 `json:"tool_failures"`

	// Temp artifacts
	TempCreated int64 `json:"temp_created"`
	TempRemoved int64 `json:"temp_removed"`

	// Journal
	JournalWriteSuccess int64 `json:"journal_write_success"`
	JournalWriteFailure int64 `json:"journal_write_failure"`

	// Dimensions (informational, set at construction)
	Operation      string `json:"operation"`
	EditID         string `json:"edit_id"`
	JournalBackend string `json:"journal_backend"`
	DryRun         bool   `json:"dry_run"`
}

// Collector accumulates metrics during a single invocation.
// Thread-safe via sync.Mutex. All increment methods are nil-receiver safe.
type Collector struct {
	mu sync.Mutex

	editsStarted   int64
	editsSucceeded int64
	editsFailed    int64

	probesRun      int64
	probeFailures  int64
	cacheHits      int64
	windowsWidened int64

	alignedCopies int64
	transcodes    int64
	concats       int64
	toolFailures  int64

	tempCreated int64
	tempRemoved int64

	journalWriteSuccess int64
	journalWriteFailure int64

	operation      string
	editID         string
	journalBackend string
	dryRun         bool
}

// NewCollector creates a Collector with dimension labels.
func NewCollector(operation, editID, journalBackend string, dryRun bool) *Collector {
	return &Collector{
		operation:      operation,
		editID:         editID,
		journalBackend: journalBackend,
		dryRun:         dryRun,
	}
}

// add increments a counter under the lock.
func (c *Collector) add(counter *int64, n int64) {
	c.mu.Lock()
	*counter += n
	c.mu.Unlock()
}

// --- Edit lifecycle ---

// IncEditStarted records an edit start.
func (c *Collector) IncEditStarted() {
	if c == nil {
		return
	}
	c.add(&c.editsStarted, 1)
}

// IncEditSucceeded records a successful edit.
func (c *Collector) IncEditSucceeded() {
	if c == nil {
		return
	}
	c.add(&c.editsSucceeded, 1)
}

// IncEditFailed records a failed edit.
func (c *Collector) IncEditFailed() {
	if c == nil {
		return
	}
	c.add(&c.editsFailed, 1)
}

// --- Keyframe index ---

// IncProbe records an ffprobe invocation.
func (c *Collector) IncProbe() {
	if c == nil {
		return
	}
	c.add(&c.probesRun, 1)
}

// IncProbeFailure records a failed ffprobe invocation.
func (c *Collector) IncProbeFailure() {
	if c == nil {
		return
	}
	c.add(&c.probeFailures, 1)
}

// IncCacheHit records a keyframe index answered from cache.
func (c *Collector) IncCacheHit() {
	if c == nil {
		return
	}
	c.add(&c.cacheHits, 1)
}

// IncWindowWidened records a probe window widened after a bracketing miss.
func (c *Collector) IncWindowWidened() {
	if c == nil {
		return
	}
	c.add(&c.windowsWidened, 1)
}

// --- Pieces ---

// IncAlignedCopy records an executed aligned copy step.
func (c *Collector) IncAlignedCopy() {
	if c == nil {
		return
	}
	c.add(&c.alignedCopies, 1)
}

// IncTranscode records an executed transcode step.
func (c *Collector) IncTranscode() {
	if c == nil {
		return
	}
	c.add(&c.transcodes, 1)
}

// IncConcat records an executed concat.
func (c *Collector) IncConcat() {
	if c == nil {
		return
	}
	c.add(&c.concats, 1)
}

// IncToolFailure records a failed copy, transcode or concat.
func (c *Collector) IncToolFailure() {
	if c == nil {
		return
	}
	c.add(&c.toolFailures, 1)
}

// --- Temp artifacts ---

// AddTempCreated records n temp artifacts handed to a scratch set.
func (c *Collector) AddTempCreated(n int) {
	if c == nil {
		return
	}
	c.add(&c.tempCreated, int64(n))
}

// AddTempRemoved records n temp artifacts removed from disk.
func (c *Collector) AddTempRemoved(n int) {
	if c == nil {
		return
	}
	c.add(&c.tempRemoved, int64(n))
}

// --- Journal ---
// Journal counters are per-call: one record per edit.

// IncJournalWriteSuccess records a successful journal write.
func (c *Collector) IncJournalWriteSuccess() {
	if c == nil {
		return
	}
	c.add(&c.journalWriteSuccess, 1)
}

// IncJournalWriteFailure records a failed journal write.
func (c *Collector) IncJournalWriteFailure() {
	if c == nil {
		return
	}
	c.add(&c.journalWriteFailure, 1)
}

// --- Snapshot ---

// Snapshot returns an immutable point-in-time view of all metrics.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	return Snapshot{
		EditsStarted:   c.editsStarted,
		EditsSucceeded: c.editsSucceeded,
		EditsFailed:    c.editsFailed,

		ProbesRun:      c.probesRun,
		ProbeFailures:  c.probeFailures,
		CacheHits:      c.cacheHits,
		WindowsWidened: c.windowsWidened,

		AlignedCopies: c.alignedCopies,
		Transcodes:    c.transcodes,
		Concats:       c.concats,
		ToolFailures:  c.toolFailures,

		TempCreated: c.tempCreated,
		TempRemoved: c.tempRemoved,

		JournalWriteSuccess: c.journalWriteSuccess,
		JournalWriteFailure: c.journalWriteFailure,

		Operation:      c.operation,
		EditID:         c.editID,
		JournalBackend: c.journalBackend,
		DryRun:         c.dryRun,
	}
}
