package journal

import (
	"context"
	"fmt"
	"strings"

	"github.com/justapithecus/lode/lode"

	"github.com/pithecene-io/keycut/types"
)

// Filter narrows a history query. Empty fields match everything.
type Filter struct {
	Operation string
	Day       string
	EditID    string
	Outcome   types.OutcomeStatus
	// Limit caps the number of records returned; 0 means no limit.
	Limit int
}

// History returns edit records newest first.
func (j *Journal) History(ctx context.Context, f Filter) ([]EditRecord, error) {
	return QueryHistory(ctx, j.dataset, f)
}

// QueryHistory reads edit records from ds, newest first.
// Partition paths pre-filter snapshots; record fields are authoritative.
func QueryHistory(ctx context.Context, ds lode.Dataset, f Filter) ([]EditRecord, error) {
	snapshots, err := ds.Snapshots(ctx)
	if err != nil {
		return nil, wrap(err, "read", string(ds.ID())+"/snapshots")
	}

	var out []EditRecord
	for i := len(snapshots) - 1; i >= 0; i-- {
		snap := snapshots[i]
		if !snapshotMatches(snap, "operation", f.Operation) ||
			!snapshotMatches(snap, "day", f.Day) ||
			!snapshotMatches(snap, "edit_id", f.EditID) {
			continue
		}

		items, err := ds.Read(ctx, snap.ID)
		if err != nil {
			return nil, wrap(err, "read", fmt.Sprintf("%s/snapshot/%s", ds.ID(), snap.ID))
		}
		for _, item := range items {
			rec, ok := recordFromMap(item)
			if !ok || !f.matches(rec) {
				continue
			}
			out = append(out, rec)
			if f.Limit > 0 && len(out) >= f.Limit {
				return out, nil
			}
		}
	}
	return out, nil
}

func (f Filter) matches(rec EditRecord) bool {
	return (f.Operation == "" || rec.Operation == f.Operation) &&
		(f.Day == "" || rec.Day == f.Day) &&
		(f.EditID == "" || rec.EditID == f.EditID) &&
		(f.Outcome == "" || rec.Outcome == f.Outcome)
}

// snapshotMatches reports whether any file of snap lies in the key=value
// partition. An empty value matches every snapshot.
func snapshotMatches(snap *lode.Snapshot, key, value string) bool {
	if value == "" {
		return true
	}
	for _, file := range snap.Manifest.Files {
		if hasPartition(file.Path, key, value) {
			return true
		}
	}
	return false
}

// hasPartition checks for an exact key=value path segment, so that
// edit_id=a does not match edit_id=ab.
func hasPartition(path, key, value string) bool {
	segment := key + "=" + value
	for part := range strings.SplitSeq(path, "/") {
		if part == segment {
			return true
		}
	}
	return false
}
