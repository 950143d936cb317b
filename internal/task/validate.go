package task

import (
	"strings"

	"github.com/twiced-technology-gmbh/taskboard/internal/clierr"
)

// ValidateStatus returns a structured error for an unknown status value.
func ValidateStatus(status string) *clierr.Error {
	return clierr.Newf(clierr.InvalidStatus, "invalid status %q", status).
		WithDetails(map[string]any{
			"status":  status,
			"allowed": StatusNames(),
		})
}

// ValidateMoveTarget checks that a status may be the target of a move.
func ValidateMoveTarget(status Status) error {
	if !status.Valid() {
		return ValidateStatus(string(status))
	}
	if !status.Movable() {
		return clierr.Newf(clierr.InvalidStatus, "cannot move a task to %s; use delete", status).
			WithDetails(map[string]any{"status": status})
	}
	return nil
}

// ValidateTitle rejects empty or whitespace-only titles.
func ValidateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return clierr.New(clierr.InvalidInput, "title must not be empty").
			WithDetails(map[string]any{"field": "title"})
	}
	return nil
}

// ValidateDate returns a structured error for invalid date input.
func ValidateDate(field, input string, err error) *clierr.Error {
	return clierr.Newf(clierr.InvalidDate, "invalid %s date: %v", field, err).
		WithDetails(map[string]any{
			"field": field,
			"input": input,
		})
}

// ValidateTaskID rejects empty or malformed task identifiers.
func ValidateTaskID(input string) error {
	if input == "" || strings.ContainsAny(input, "/\\ \t\n") {
		return clierr.Newf(clierr.InvalidTaskID, "invalid task ID %q", input).
			WithDetails(map[string]any{"input": input})
	}
	return nil
}

// ValidateDeletedMove returns a conflict error for status changes on a
// soft-deleted task.
func ValidateDeletedMove(id string) *clierr.Error {
	return clierr.Newf(clierr.StatusConflict, "task %s is deleted and cannot be moved", id).
		WithDetails(map[string]any{"id": id})
}

// ValidateWIPLimit returns a structured error for WIP limit violations.
func ValidateWIPLimit(status Status, limit, current int) *clierr.Error {
	return clierr.Newf(clierr.WIPLimitExceeded,
		"WIP limit reached for %s (%d/%d)", status, current, limit).
		WithDetails(map[string]any{
			"status":  status,
			"limit":   limit,
			"current": current,
		})
}

// Validate checks the invariants of a task record.
func Validate(t *Task) error {
	if err := ValidateTitle(t.Title); err != nil {
		return err
	}
	if !t.Status.Valid() {
		return ValidateStatus(string(t.Status))
	}
	return nil
}
