package task

import (
	"strings"
)

// Status is the lifecycle state of a task.
type Status string

// The five lifecycle values. StatusDeleted marks a soft-deleted task.
const (
	StatusTodo       Status = "TODO"
	StatusInProgress Status = "IN_PROGRESS"
	StatusReviewed   Status = "REVIEWED"
	StatusDone       Status = "DONE"
	StatusDeleted    Status = "DELETED"
)

// Statuses returns every status in lifecycle order.
func Statuses() []Status {
	return []Status{StatusTodo, StatusInProgress, StatusReviewed, StatusDone, StatusDeleted}
}

// StatusNames returns the string form of Statuses.
func StatusNames() []string {
	all := Statuses()
	names := make([]string, len(all))
	for i, s := range all {
		names[i] = string(s)
	}
	return names
}

// Valid reports whether s is one of the five lifecycle values.
func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusReviewed, StatusDone, StatusDeleted:
		return true
	}
	return false
}

// Movable reports whether a task may be moved into s by a status update.
// Deletion goes through the delete path, never through a move.
func (s Status) Movable() bool {
	return s.Valid() && s != StatusDeleted
}

// Terminal reports whether s ends the active lifecycle.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusDeleted
}

// String implements fmt.Stringer.
func (s Status) String() string { return string(s) }

// ParseStatus accepts the canonical form as well as lower-case and
// hyphenated spellings ("in-progress", "reviewed").
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(raw), "-", "_")))
	if !s.Valid() {
		return "", ValidateStatus(raw)
	}
	return s, nil
}
