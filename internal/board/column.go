package board

import (
	"github.com/twiced-technology-gmbh/taskboard/internal/task"
)

// ColumnID identifies a visible board column.
type ColumnID string

// The four visible columns. Unmapped is returned for statuses that have no
// column (DELETED); callers treat it as "exclude from board".
const (
	ColumnTodo       ColumnID = "todo"
	ColumnInProgress ColumnID = "in-progress"
	ColumnReview     ColumnID = "review"
	ColumnDone       ColumnID = "done"

	Unmapped ColumnID = ""
)

// Column is a presentational grouping of tasks. Not persisted.
type Column struct {
	ID      ColumnID
	Label   string
	Color   string // ANSI 256 colour code
	Ordinal int
}

var columns = []Column{
	{ID: ColumnTodo, Label: "To Do", Color: "252", Ordinal: 0},
	{ID: ColumnInProgress, Label: "In Progress", Color: "33", Ordinal: 1},
	{ID: ColumnReview, Label: "Review", Color: "62", Ordinal: 2},
	{ID: ColumnDone, Label: "Done", Color: "34", Ordinal: 3},
}

// Columns returns the visible columns in display order.
func Columns() []Column {
	return append([]Column(nil), columns...)
}

// ColumnIDs returns the visible column identifiers in display order.
func ColumnIDs() []ColumnID {
	ids := make([]ColumnID, len(columns))
	for i, c := range columns {
		ids[i] = c.ID
	}
	return ids
}

// ColumnByID returns the column with the given id.
func ColumnByID(id ColumnID) (Column, bool) {
	for _, c := range columns {
		if c.ID == id {
			return c, true
		}
	}
	return Column{}, false
}

// ParseColumn reports whether raw names a visible column.
func ParseColumn(raw string) (ColumnID, bool) {
	id := ColumnID(raw)
	if _, ok := ColumnByID(id); ok {
		return id, true
	}
	return Unmapped, false
}

// StatusToColumn maps a lifecycle status to its column. DELETED, and any
// value outside the enumeration, yields Unmapped.
func StatusToColumn(s task.Status) ColumnID {
	switch s {
	case task.StatusTodo:
		return ColumnTodo
	case task.StatusInProgress:
		return ColumnInProgress
	case task.StatusReviewed:
		return ColumnReview
	case task.StatusDone:
		return ColumnDone
	case task.StatusDeleted:
		return Unmapped
	}
	return Unmapped
}

// ColumnToStatus maps a column to the status a task gets when dropped there.
// ok is false for identifiers that are not visible columns.
func ColumnToStatus(c ColumnID) (task.Status, bool) {
	switch c {
	case ColumnTodo:
		return task.StatusTodo, true
	case ColumnInProgress:
		return task.StatusInProgress, true
	case ColumnReview:
		return task.StatusReviewed, true
	case ColumnDone:
		return task.StatusDone, true
	case Unmapped:
		return "", false
	}
	return "", false
}
