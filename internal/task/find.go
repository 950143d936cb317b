package task

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/twiced-technology-gmbh/taskboard/internal/clierr"
)

// FindByID scans the tasks directory for the file holding the given ID.
// Returns the full path to the task file.
func FindByID(tasksDir, id string) (string, error) {
	if err := ValidateTaskID(id); err != nil {
		return "", err
	}
	entries, err := os.ReadDir(tasksDir)
	if err != nil && !os.IsNotExist(err) {
		return "", fmt.Errorf("reading tasks directory: %w", err)
	}

	suffix := "-" + id + ".md"
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".md") {
			continue
		}
		if name == id+".md" || strings.HasSuffix(name, suffix) {
			return filepath.Join(tasksDir, name), nil
		}
	}

	return "", NotFound(id)
}

// NotFound returns the structured error for a missing task.
func NotFound(id string) *clierr.Error {
	return clierr.Newf(clierr.TaskNotFound, "task not found: %s", id).
		WithDetails(map[string]any{"id": id})
}

// ReadWarning describes a file that could not be parsed during lenient reading.
type ReadWarning struct {
	File string // base filename
	Err  error
}

// ReadAllLenient reads all task files, skipping malformed files instead of aborting.
// Successfully parsed tasks are returned in creation order along with warnings
// for files that failed.
func ReadAllLenient(tasksDir string) ([]*Task, []ReadWarning, error) {
	entries, err := os.ReadDir(tasksDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("reading tasks directory: %w", err)
	}

	var tasks []*Task
	var warnings []ReadWarning
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".md" {
			continue
		}

		path := filepath.Join(tasksDir, entry.Name())
		t, readErr := Read(path)
		if readErr != nil {
			warnings = append(warnings, ReadWarning{File: entry.Name(), Err: readErr})
			continue
		}
		tasks = append(tasks, t)
	}

	// Directory order is by filename; boards render in creation order.
	sort.SliceStable(tasks, func(i, j int) bool {
		if tasks[i].Created.Equal(tasks[j].Created) {
			return tasks[i].ID < tasks[j].ID
		}
		return tasks[i].Created.Before(tasks[j].Created)
	})

	return tasks, warnings, nil
}
