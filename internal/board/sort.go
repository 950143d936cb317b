package board

import (
	"slices"
	"sort"

	"github.com/twiced-technology-gmbh/taskboard/internal/task"
)

const (
	fieldCreated = "created"
	fieldStatus  = "status"
)

// SortFields lists the accepted values of Sort's field argument.
var SortFields = []string{fieldCreated, "updated", fieldStatus, "due", "title"}

// Sort sorts tasks by the given field. Status uses lifecycle order, not
// alphabetical order.
func Sort(tasks []task.Task, field string, reverse bool) {
	sort.SliceStable(tasks, func(i, j int) bool {
		if reverse {
			return compareTasks(tasks[j], tasks[i], field)
		}
		return compareTasks(tasks[i], tasks[j], field)
	})
}

func compareTasks(a, b task.Task, field string) bool {
	switch field {
	case fieldStatus:
		return statusIndex(a.Status) < statusIndex(b.Status)
	case "updated":
		return a.Updated.Before(b.Updated)
	case "due":
		return compareDue(a, b)
	case "title":
		return a.Title < b.Title
	default:
		return a.Created.Before(b.Created)
	}
}

func statusIndex(s task.Status) int {
	return slices.Index(task.Statuses(), s)
}

func compareDue(a, b task.Task) bool {
	if a.Due == nil && b.Due == nil {
		return false
	}
	if a.Due == nil {
		return false // nil sorts last
	}
	if b.Due == nil {
		return true
	}
	return a.Due.Before(b.Due.Time)
}
