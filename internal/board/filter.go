// Package board provides board-level operations on task collections: the
// status/column mapping, filtering, grouping and summaries.
package board

import (
	"strings"

	"github.com/twiced-technology-gmbh/taskboard/internal/task"
)

// Criteria defines which tasks render. Empty fields are not applied.
type Criteria struct {
	SearchText string // case-insensitive substring match across title, description, and tags
	AssigneeID string // task must list this assignee
	TaskType   string // case-insensitive equality with the task type
}

// IsZero reports whether no criterion is set.
func (c Criteria) IsZero() bool {
	return c.SearchText == "" && c.AssigneeID == "" && c.TaskType == ""
}

// Filter returns the tasks that render under c, in input order. DELETED
// tasks never render.
func Filter(tasks []task.Task, c Criteria) []task.Task {
	var result []task.Task
	for _, t := range tasks {
		if matchesFilter(t, c) {
			result = append(result, t)
		}
	}
	return result
}

func matchesFilter(t task.Task, c Criteria) bool {
	if t.Status == task.StatusDeleted {
		return false
	}
	if c.SearchText != "" && !matchesSearch(t, c.SearchText) {
		return false
	}
	if c.AssigneeID != "" && !t.HasAssignee(c.AssigneeID) {
		return false
	}
	if c.TaskType != "" && !strings.EqualFold(t.Type, c.TaskType) {
		return false
	}
	return true
}

// matchesSearch performs case-insensitive substring matching across title, description, and tags.
func matchesSearch(t task.Task, query string) bool {
	q := strings.ToLower(query)
	if strings.Contains(strings.ToLower(t.Title), q) {
		return true
	}
	if strings.Contains(strings.ToLower(t.Description), q) {
		return true
	}
	for _, tag := range t.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			return true
		}
	}
	return false
}
