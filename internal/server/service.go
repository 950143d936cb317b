package server

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/twiced-technology-gmbh/taskboard/internal/board"
	"github.com/twiced-technology-gmbh/taskboard/internal/clierr"
	"github.com/twiced-technology-gmbh/taskboard/internal/date"
	"github.com/twiced-technology-gmbh/taskboard/internal/remote"
	"github.com/twiced-technology-gmbh/taskboard/internal/task"
)

// Journal actions.
const (
	ActionCreate = "create"
	ActionEdit   = "edit"
	ActionMove   = "move"
	ActionDelete = "delete"
	ActionPurge  = "purge"
)

// Service applies the board rules on top of the repository: status
// transitions, WIP limits, lifecycle timestamps, cache eviction and the
// activity journal.
type Service struct {
	repo      *FileRepository
	cache     *Cache
	boards    []string
	wipLimits map[task.Status]int
	logger    *log.Logger
	now       func() time.Time
}

// ServiceOptions configures a Service.
type ServiceOptions struct {
	// Boards lists the board IDs served. Empty serves any board.
	Boards    []string
	WIPLimits map[task.Status]int
	Logger    *log.Logger
	Now       func() time.Time
}

// NewService creates a Service.
func NewService(repo *FileRepository, cache *Cache, opts ServiceOptions) *Service {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Service{
		repo:      repo,
		cache:     cache,
		boards:    opts.Boards,
		wipLimits: opts.WIPLimits,
		logger:    logger,
		now:       now,
	}
}

// ListTasks returns every task of a board, deleted ones included, in
// creation order.
func (s *Service) ListTasks(ctx context.Context, boardID string) ([]task.Task, error) {
	if err := s.checkBoard(boardID); err != nil {
		return nil, err
	}
	tasks, err := s.cache.ListTasks(ctx, boardID)
	if err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []task.Task{}
	}
	return tasks, nil
}

// GetTask returns a single task.
func (s *Service) GetTask(_ context.Context, id string) (*task.Task, error) {
	return s.repo.Find(id)
}

// CreateTask adds a task to a board.
func (s *Service) CreateTask(ctx context.Context, boardID string, req remote.CreateRequest) (*task.Task, error) {
	if err := s.checkBoard(boardID); err != nil {
		return nil, err
	}
	if err := task.ValidateTitle(req.Title); err != nil {
		return nil, err
	}
	status := req.Status
	if status == "" {
		status = task.StatusTodo
	}
	if err := task.ValidateMoveTarget(status); err != nil {
		return nil, err
	}
	due, err := date.ParseOptional(req.Due)
	if err != nil {
		return nil, task.ValidateDate("due", req.Due, err)
	}

	now := s.now()
	t := &task.Task{
		ID:          uuid.NewString(),
		Board:       boardID,
		Title:       strings.TrimSpace(req.Title),
		Status:      task.StatusTodo,
		Type:        req.Type,
		Due:         due,
		Assignees:   req.Assignees,
		Tags:        req.Tags,
		Created:     now,
		Updated:     now,
		Description: req.Description,
	}
	task.ApplyStatus(t, status, now)

	err = s.repo.Locked(func() error {
		if err := s.checkWIP(boardID, status, ""); err != nil {
			return err
		}
		return s.repo.Save(t)
	})
	if err != nil {
		return nil, err
	}

	s.mutated(ctx, boardID, ActionCreate, t.ID, fmt.Sprintf("created %q in %s", t.Title, t.Status))
	return t, nil
}

// UpdateTask applies a partial edit. Status changes go through SetStatus.
func (s *Service) UpdateTask(ctx context.Context, id string, req remote.UpdateRequest) (*task.Task, error) {
	if req.IsEmpty() {
		return nil, clierr.New(clierr.NoChanges, "no fields to update")
	}

	var updated *task.Task
	err := s.repo.Locked(func() error {
		t, err := s.repo.Find(id)
		if err != nil {
			return err
		}
		if err := applyUpdate(t, req); err != nil {
			return err
		}
		t.Updated = s.now()
		if err := s.repo.Save(t); err != nil {
			return err
		}
		updated = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.mutated(ctx, updated.Board, ActionEdit, updated.ID, strings.Join(updatedFields(req), ","))
	return updated, nil
}

// SetStatus moves a task. Moving a task to its current status succeeds
// without writing.
func (s *Service) SetStatus(ctx context.Context, id string, status task.Status) (*task.Task, error) {
	if err := task.ValidateMoveTarget(status); err != nil {
		return nil, err
	}

	var (
		moved   *task.Task
		prev    task.Status
		changed bool
	)
	err := s.repo.Locked(func() error {
		t, err := s.repo.Find(id)
		if err != nil {
			return err
		}
		if t.Status == task.StatusDeleted {
			return task.ValidateDeletedMove(id)
		}
		moved, prev = t, t.Status
		if t.Status == status {
			return nil
		}
		if err := s.checkWIP(t.Board, status, t.Status); err != nil {
			return err
		}
		changed = task.ApplyStatus(t, status, s.now())
		return s.repo.Save(t)
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.mutated(ctx, moved.Board, ActionMove, moved.ID, fmt.Sprintf("%s -> %s", prev, moved.Status))
	}
	return moved, nil
}

// DeleteTask soft-deletes a task by moving it to DELETED, or removes its
// file when hard is set. Soft-deleting a deleted task is a no-op.
func (s *Service) DeleteTask(ctx context.Context, id string, hard bool) error {
	var (
		deleted *task.Task
		action  string
	)
	err := s.repo.Locked(func() error {
		t, err := s.repo.Find(id)
		if err != nil {
			return err
		}
		if hard {
			action = ActionPurge
			deleted = t
			return s.repo.Remove(t)
		}
		if !task.ApplyStatus(t, task.StatusDeleted, s.now()) {
			return nil
		}
		action = ActionDelete
		deleted = t
		return s.repo.Save(t)
	})
	if err != nil || deleted == nil {
		return err
	}

	s.mutated(ctx, deleted.Board, action, deleted.ID, deleted.Title)
	return nil
}

// Activity returns the most recent journal entries.
func (s *Service) Activity(_ context.Context, boardID string, limit int) ([]board.LogEntry, error) {
	if err := s.checkBoard(boardID); err != nil {
		return nil, err
	}
	entries, err := board.ReadLog(s.repo.Dir(), limit)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []board.LogEntry{}
	}
	return entries, nil
}

// Invalidate drops every cached listing.
func (s *Service) Invalidate(ctx context.Context) {
	s.cache.EvictAll(ctx)
}

func (s *Service) checkBoard(boardID string) error {
	if boardID == "" || (len(s.boards) > 0 && !slices.Contains(s.boards, boardID)) {
		return clierr.Newf(clierr.BoardNotFound, "board not found: %s", boardID).
			WithDetails(map[string]any{"board": boardID})
	}
	return nil
}

// checkWIP must run under the repository lock.
func (s *Service) checkWIP(boardID string, target, current task.Status) error {
	limit := s.wipLimits[target]
	if limit == 0 {
		return nil
	}
	tasks, err := s.repo.Board(boardID)
	if err != nil {
		return err
	}
	return board.CheckWIPLimit(limit, board.CountByStatus(tasks), target, current)
}

func (s *Service) mutated(ctx context.Context, boardID, action, taskID, detail string) {
	s.cache.Evict(ctx, boardID)
	board.LogMutation(s.repo.Dir(), action, taskID, detail)
	s.logger.WithFields(log.Fields{
		"board":   boardID,
		"action":  action,
		"task_id": taskID,
	}).Info(detail)
}

func applyUpdate(t *task.Task, req remote.UpdateRequest) error {
	if req.Title != nil {
		if err := task.ValidateTitle(*req.Title); err != nil {
			return err
		}
		t.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		t.Description = *req.Description
	}
	if req.Type != nil {
		t.Type = *req.Type
	}
	if req.Due != nil {
		due, err := date.ParseOptional(*req.Due)
		if err != nil {
			return task.ValidateDate("due", *req.Due, err)
		}
		t.Due = due
	}
	if req.Assignees != nil {
		t.Assignees = *req.Assignees
	}
	if req.Tags != nil {
		t.Tags = *req.Tags
	}
	return nil
}

func updatedFields(req remote.UpdateRequest) []string {
	var fields []string
	if req.Title != nil {
		fields = append(fields, "title")
	}
	if req.Description != nil {
		fields = append(fields, "description")
	}
	if req.Type != nil {
		fields = append(fields, "type")
	}
	if req.Due != nil {
		fields = append(fields, "due")
	}
	if req.Assignees != nil {
		fields = append(fields, "assignees")
	}
	if req.Tags != nil {
		fields = append(fields, "tags")
	}
	return fields
}
