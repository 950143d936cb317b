// Package drag turns pointer gestures into board move decisions.
//
// A Sensor decides when a press becomes a drag. An Interpreter follows the
// drag through IDLE -> DRAGGING -> IDLE and resolves the release into a
// single Decision. Neither depends on a particular event source: callers feed
// them the minimal {active, over} shape.
package drag

import (
	"fmt"

	"github.com/twiced-technology-gmbh/taskboard/internal/board"
	"github.com/twiced-technology-gmbh/taskboard/internal/task"
)

// Decision is the resolved outcome of a drag. The zero value is NO_OP.
type Decision struct {
	TaskID string
	Column board.ColumnID
}

// NoOp is the decision that changes nothing.
var NoOp = Decision{}

// IsNoOp reports whether d requests no change.
func (d Decision) IsNoOp() bool {
	return d.TaskID == "" || d.Column == board.Unmapped
}

// Status returns the status a task gets from this decision.
func (d Decision) Status() (task.Status, bool) {
	if d.IsNoOp() {
		return "", false
	}
	return board.ColumnToStatus(d.Column)
}

func (d Decision) String() string {
	if d.IsNoOp() {
		return "NO_OP"
	}
	return fmt.Sprintf("move %s -> %s", d.TaskID, d.Column)
}

// Event is the pointer-drag shape consumed from any gesture source. An empty
// OverID means no droppable is under the pointer.
type Event struct {
	ActiveID string
	OverID   string
}

// TaskLookup finds a task in the current snapshot.
type TaskLookup interface {
	Get(id string) (task.Task, bool)
}

// Resolve computes the decision for releasing activeID over overID.
func Resolve(lookup TaskLookup, activeID, overID string) Decision {
	if activeID == "" || overID == "" {
		return NoOp
	}

	target, ok := board.ParseColumn(overID)
	if !ok {
		over, found := lookup.Get(overID)
		if !found {
			return NoOp
		}
		target = board.StatusToColumn(over.Status)
		if target == board.Unmapped {
			return NoOp
		}
	}

	active, found := lookup.Get(activeID)
	if !found {
		return NoOp
	}
	if board.StatusToColumn(active.Status) == target {
		return NoOp
	}
	return Decision{TaskID: activeID, Column: target}
}
