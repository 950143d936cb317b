// Package store holds the board's in-memory task snapshot.
//
// The snapshot is the single source of truth rendered by the board. Only the
// mutation engine and the full-refetch path write to it; everything else
// reads copies.
package store

import (
	"sync"

	"github.com/twiced-technology-gmbh/taskboard/internal/task"
)

// Store is an ordered task snapshot safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	tasks   []task.Task
	index   map[string]int
	version uint64
}

// New returns a store holding a copy of tasks.
func New(tasks []task.Task) *Store {
	s := &Store{}
	s.replace(tasks)
	return s
}

// Read returns a deep copy of the snapshot in order.
func (s *Store) Read() []task.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return task.CloneAll(s.tasks)
}

// Get returns a copy of the task with the given id.
func (s *Store) Get(id string) (task.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[id]
	if !ok {
		return task.Task{}, false
	}
	return s.tasks[i].Clone(), true
}

// Len returns the number of tasks in the snapshot.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}

// Version increases on every mutation. Views use it to skip recomputing an
// unchanged snapshot.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// ReplaceAll swaps the whole snapshot in one step.
func (s *Store) ReplaceAll(tasks []task.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replace(tasks)
	s.version++
}

// PatchStatus overwrites one task's status and returns the status it had.
// ok is false when the task is not in the snapshot.
func (s *Store) PatchStatus(id string, status task.Status) (previous task.Status, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, found := s.index[id]
	if !found {
		return "", false
	}
	previous = s.tasks[i].Status
	s.tasks[i].Status = status
	s.version++
	return previous, true
}

// Remove drops a task from the snapshot.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, found := s.index[id]
	if !found {
		return false
	}
	s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
	s.reindex()
	s.version++
	return true
}

func (s *Store) replace(tasks []task.Task) {
	s.tasks = task.CloneAll(tasks)
	s.reindex()
}

func (s *Store) reindex() {
	s.index = make(map[string]int, len(s.tasks))
	for i, t := range s.tasks {
		s.index[t.ID] = i
	}
}
