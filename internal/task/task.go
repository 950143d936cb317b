// Package task handles tasks, their lifecycle status and their file encoding.
package task

import (
	"slices"
	"time"

	"github.com/twiced-technology-gmbh/taskboard/internal/date"
)

// Task is a unit of work tracked on a board.
type Task struct {
	ID        string     `yaml:"id" json:"id"`
	Board     string     `yaml:"board" json:"board"`
	Title     string     `yaml:"title" json:"title"`
	Status    Status     `yaml:"status" json:"status"`
	Type      string     `yaml:"type,omitempty" json:"type,omitempty"`
	Due       *date.Date `yaml:"due,omitempty" json:"due,omitempty"`
	Assignees []string   `yaml:"assignees,omitempty" json:"assignees,omitempty"`
	Tags      []string   `yaml:"tags,omitempty" json:"tags,omitempty"`
	Created   time.Time  `yaml:"created" json:"created"`
	Updated   time.Time  `yaml:"updated" json:"updated"`
	Started   *time.Time `yaml:"started,omitempty" json:"started,omitempty"`
	Completed *time.Time `yaml:"completed,omitempty" json:"completed,omitempty"`

	// Description is the markdown content below the frontmatter (not in YAML).
	Description string `yaml:"-" json:"description,omitempty"`

	// File is the path to the task file on the server (not serialized).
	File string `yaml:"-" json:"-"`
}

// Clone returns a deep copy of t.
func (t Task) Clone() Task {
	c := t
	c.Assignees = slices.Clone(t.Assignees)
	c.Tags = slices.Clone(t.Tags)
	if t.Due != nil {
		d := *t.Due
		c.Due = &d
	}
	if t.Started != nil {
		s := *t.Started
		c.Started = &s
	}
	if t.Completed != nil {
		s := *t.Completed
		c.Completed = &s
	}
	return c
}

// HasAssignee reports whether id is among the task's assignees.
func (t Task) HasAssignee(id string) bool {
	return slices.Contains(t.Assignees, id)
}

// CloneAll deep-copies a task list.
func CloneAll(tasks []Task) []Task {
	if tasks == nil {
		return nil
	}
	out := make([]Task, len(tasks))
	for i, t := range tasks {
		out[i] = t.Clone()
	}
	return out
}
