package task

import (
	"time"
)

// ApplyStatus moves t to newStatus and maintains the derived timestamps:
//   - Started is set on the first move out of TODO and never overwritten.
//   - Completed is set on DONE; a direct move to DONE also sets Started.
//   - Completed is cleared when a done task is reopened.
//
// Updated is always bumped. Returns false when t already had newStatus.
func ApplyStatus(t *Task, newStatus Status, now time.Time) bool {
	oldStatus := t.Status
	if oldStatus == newStatus {
		return false
	}
	t.Status = newStatus
	t.Updated = now

	if t.Started == nil && oldStatus == StatusTodo && newStatus != StatusTodo && newStatus != StatusDeleted {
		started := now
		t.Started = &started
	}

	switch {
	case newStatus == StatusDone:
		completed := now
		t.Completed = &completed
		if t.Started == nil {
			started := now
			t.Started = &started
		}
	case oldStatus == StatusDone && newStatus != StatusDeleted:
		t.Completed = nil
	}
	return true
}
