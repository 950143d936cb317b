package board

import (
	"github.com/twiced-technology-gmbh/taskboard/internal/task"
)

// Projection holds the rendered tasks of every visible column. All four
// column keys are always present; a column without tasks has a nil slice.
type Projection map[ColumnID][]task.Task

// Project filters tasks by c and groups the remainder by column. The order of
// tasks within a column follows the input order. Project performs no I/O and
// does not modify tasks.
func Project(tasks []task.Task, c Criteria) Projection {
	p := make(Projection, len(columns))
	for _, col := range columns {
		p[col.ID] = nil
	}
	for _, t := range Filter(tasks, c) {
		col := StatusToColumn(t.Status)
		if col == Unmapped {
			continue
		}
		p[col] = append(p[col], t)
	}
	return p
}

// Total returns the number of tasks across all columns.
func (p Projection) Total() int {
	n := 0
	for _, tasks := range p {
		n += len(tasks)
	}
	return n
}

// Find returns the column and row of the task with the given id.
func (p Projection) Find(id string) (ColumnID, int, bool) {
	for _, col := range columns {
		for i, t := range p[col.ID] {
			if t.ID == id {
				return col.ID, i, true
			}
		}
	}
	return Unmapped, -1, false
}

// ColumnSummary holds metrics for a single column.
type ColumnSummary struct {
	Column   ColumnID `json:"column"`
	Label    string   `json:"label"`
	Count    int      `json:"count"`
	WIPLimit int      `json:"wip_limit,omitempty"`
	Overdue  int      `json:"overdue"`
}

// Overview is the aggregate board overview.
type Overview struct {
	BoardName  string          `json:"board_name"`
	TotalTasks int             `json:"total_tasks"`
	Columns    []ColumnSummary `json:"columns"`
}
