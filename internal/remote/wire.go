// Package remote is the HTTP client for the taskboard server and holds the
// JSON shapes both sides exchange.
package remote

import (
	"github.com/twiced-technology-gmbh/taskboard/internal/board"
	"github.com/twiced-technology-gmbh/taskboard/internal/task"
)

// TasksResponse is the body of GET /api/boards/:board/tasks.
type TasksResponse struct {
	Tasks []task.Task `json:"tasks"`
}

// ActivityResponse is the body of GET /api/boards/:board/activity.
type ActivityResponse struct {
	Entries []board.LogEntry `json:"entries"`
}

// StatusRequest is the body of PUT /api/tasks/:id/status.
type StatusRequest struct {
	Status task.Status `json:"status"`
}

// CreateRequest is the body of POST /api/boards/:board/tasks.
type CreateRequest struct {
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	Type        string      `json:"type,omitempty"`
	Status      task.Status `json:"status,omitempty"`
	Due         string      `json:"due,omitempty"`
	Assignees   []string    `json:"assignees,omitempty"`
	Tags        []string    `json:"tags,omitempty"`
}

// UpdateRequest is the body of PATCH /api/tasks/:id. Nil fields are left
// unchanged; an empty Due clears the due date.
type UpdateRequest struct {
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	Type        *string   `json:"type,omitempty"`
	Due         *string   `json:"due,omitempty"`
	Assignees   *[]string `json:"assignees,omitempty"`
	Tags        *[]string `json:"tags,omitempty"`
}

// IsEmpty reports whether the request changes nothing.
func (r UpdateRequest) IsEmpty() bool {
	return r.Title == nil && r.Description == nil && r.Type == nil &&
		r.Due == nil && r.Assignees == nil && r.Tags == nil
}

// ErrorResponse is the error envelope of every non-2xx response.
type ErrorResponse struct {
	Error   string         `json:"error"`
	Code    string         `json:"code"`
	Details map[string]any `json:"details,omitempty"`
}
