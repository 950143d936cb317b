package board

import (
	"time"

	"github.com/twiced-technology-gmbh/taskboard/internal/task"
)

// ListOptions controls how tasks are listed.
type ListOptions struct {
	Criteria Criteria
	SortBy   string
	Reverse  bool
	Limit    int
}

// List applies filters, sorting and the limit to an already loaded task set.
func List(tasks []task.Task, opts ListOptions) []task.Task {
	result := Filter(tasks, opts.Criteria)

	sortField := opts.SortBy
	if sortField == "" {
		sortField = fieldCreated
	}
	Sort(result, sortField, opts.Reverse)

	if opts.Limit > 0 && len(result) > opts.Limit {
		result = result[:opts.Limit]
	}
	return result
}

// Summarize computes per-column metrics from a projection. limits maps a
// status to its WIP limit; zero or missing means unlimited.
func Summarize(boardName string, p Projection, limits map[task.Status]int, now time.Time) Overview {
	summaries := make([]ColumnSummary, 0, len(columns))
	for _, col := range columns {
		status, _ := ColumnToStatus(col.ID)
		cs := ColumnSummary{
			Column:   col.ID,
			Label:    col.Label,
			Count:    len(p[col.ID]),
			WIPLimit: limits[status],
		}
		for _, t := range p[col.ID] {
			if t.Due != nil && !t.Status.Terminal() && t.Due.Overdue(now) {
				cs.Overdue++
			}
		}
		summaries = append(summaries, cs)
	}
	return Overview{
		BoardName:  boardName,
		TotalTasks: p.Total(),
		Columns:    summaries,
	}
}

// CheckWIPLimit verifies that moving a task into targetStatus would not
// exceed limit. currentStatus is the task's current status (empty for new
// tasks). A zero limit is unlimited.
func CheckWIPLimit(limit int, counts map[task.Status]int, targetStatus, currentStatus task.Status) error {
	if limit == 0 {
		return nil
	}

	// A task already in the target status does not add to the count.
	if currentStatus == targetStatus {
		return nil
	}

	count := counts[targetStatus]
	if count >= limit {
		return task.ValidateWIPLimit(targetStatus, limit, count)
	}
	return nil
}

// CountByStatus returns the number of tasks in each status.
func CountByStatus(tasks []*task.Task) map[task.Status]int {
	counts := make(map[task.Status]int)
	for _, t := range tasks {
		counts[t.Status]++
	}
	return counts
}
