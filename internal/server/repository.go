package server

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"github.com/twiced-technology-gmbh/taskboard/internal/filelock"
	"github.com/twiced-technology-gmbh/taskboard/internal/task"
)

const dirMode = 0o750

// FileRepository stores tasks as markdown files with YAML frontmatter in a
// single directory shared by all boards.
type FileRepository struct {
	dir    string
	logger *log.Logger
}

// NewFileRepository opens (and creates) the task directory.
func NewFileRepository(dir string, logger *log.Logger) (*FileRepository, error) {
	if err := os.MkdirAll(dir, dirMode); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return &FileRepository{dir: dir, logger: logger}, nil
}

// Dir returns the task directory.
func (r *FileRepository) Dir() string { return r.dir }

// ListTasks returns the tasks of a board in creation order. Unreadable
// files are logged and skipped.
func (r *FileRepository) ListTasks(_ context.Context, boardID string) ([]task.Task, error) {
	all, err := r.load()
	if err != nil {
		return nil, err
	}
	out := make([]task.Task, 0, len(all))
	for _, t := range all {
		if t.Board == boardID {
			out = append(out, *t)
		}
	}
	return out, nil
}

// Locked runs fn while holding the directory lock. Every read-modify-write
// goes through here.
func (r *FileRepository) Locked(fn func() error) error {
	return filelock.Do(filelock.PathFor(r.dir), fn)
}

// Board returns every task of a board, including deleted ones.
func (r *FileRepository) Board(boardID string) ([]*task.Task, error) {
	all, err := r.load()
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, t := range all {
		if t.Board == boardID {
			out = append(out, t)
		}
	}
	return out, nil
}

// Find reads a task by ID.
func (r *FileRepository) Find(id string) (*task.Task, error) {
	path, err := task.FindByID(r.dir, id)
	if err != nil {
		return nil, err
	}
	return task.Read(path)
}

// Save writes t. A task without a file gets one named after its title.
func (r *FileRepository) Save(t *task.Task) error {
	if t.File == "" {
		t.File = filepath.Join(r.dir, task.GenerateFilename(t.ID, task.GenerateSlug(t.Title)))
	}
	return task.Write(t.File, t)
}

// Remove deletes the file of t.
func (r *FileRepository) Remove(t *task.Task) error {
	if err := os.Remove(t.File); err != nil {
		return fmt.Errorf("deleting task file: %w", err)
	}
	return nil
}

func (r *FileRepository) load() ([]*task.Task, error) {
	tasks, warnings, err := task.ReadAllLenient(r.dir)
	if err != nil {
		return nil, err
	}
	for _, w := range warnings {
		r.logger.WithError(w.Err).WithField("file", w.File).Warn("skipping unreadable task file")
	}
	return tasks, nil
}
