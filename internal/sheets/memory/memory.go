// Package memory keeps exported snapshots in process, for local runs
// without a spreadsheet.
package memory

import (
	"context"
	"fmt"
	"sync"

	"fintrack/internal/sheets"
)

type Writer struct {
	mu        sync.Mutex
	snapshots []sheets.Snapshot
}

var _ sheets.SnapshotWriter = (*Writer)(nil)

func New() *Writer { return &Writer{} }

func (w *Writer) WriteSnapshot(_ context.Context, s sheets.Snapshot) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.snapshots = append(w.snapshots, s)
	return fmt.Sprintf("mem:%d", len(w.snapshots)), nil
}

// Snapshots returns a copy of everything written so far, oldest first.
func (w *Writer) Snapshots() []sheets.Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]sheets.Snapshot, len(w.snapshots))
	copy(out, w.snapshots)
	return out
}
