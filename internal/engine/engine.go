// Package engine applies board moves optimistically.
//
// A move patches the snapshot store before any network call, confirms the
// new status with the remote authority, then either reconciles the whole
// snapshot from a refetch or rolls the task back and raises a notification.
// Completions are serialized by the engine's mutex; nothing is retried.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/twiced-technology-gmbh/taskboard/internal/drag"
	"github.com/twiced-technology-gmbh/taskboard/internal/store"
	"github.com/twiced-technology-gmbh/taskboard/internal/task"
)

// DefaultTimeout bounds one confirm round trip (update plus refetch).
const DefaultTimeout = 10 * time.Second

const (
	tracerName         = "github.com/twiced-technology-gmbh/taskboard/internal/engine"
	confirmSpanName    = "engine.confirm_move"
	attrTaskID         = "task.id"
	attrStatusPrevious = "task.status.previous"
	attrStatusTarget   = "task.status.target"
)

// Authority is the remote service that owns the tasks.
type Authority interface {
	FetchTasks(ctx context.Context, boardID string) ([]task.Task, error)
	UpdateStatus(ctx context.Context, taskID string, status task.Status) error
}

// Options configures an Engine. Zero values select the defaults.
type Options struct {
	BoardID        string
	Policy         Policy
	Timeout        time.Duration
	Notifier       Notifier
	Logger         *log.Logger
	TracerProvider trace.TracerProvider
	Now            func() time.Time
}

// Engine owns all writes to a snapshot store.
type Engine struct {
	mu      sync.Mutex
	store   *store.Store
	auth    Authority
	boardID string
	policy  Policy
	timeout time.Duration
	notify  Notifier
	logger  *log.Logger
	tracer  trace.Tracer
	now     func() time.Time

	seq    uint64
	latest map[string]uint64 // newest move sequence per task
	wg     sync.WaitGroup
}

// New returns an engine writing to s and confirming against auth.
func New(s *store.Store, auth Authority, opts Options) *Engine {
	e := &Engine{
		store:   s,
		auth:    auth,
		boardID: opts.BoardID,
		policy:  opts.Policy,
		timeout: opts.Timeout,
		notify:  opts.Notifier,
		logger:  opts.Logger,
		now:     opts.Now,
		latest:  make(map[string]uint64),
	}
	if e.policy == "" {
		e.policy = PolicyLastWriteWins
	}
	if e.timeout <= 0 {
		e.timeout = DefaultTimeout
	}
	if e.notify == nil {
		e.notify = NotifierFunc(func(Notification) {})
	}
	if e.logger == nil {
		e.logger = log.StandardLogger()
	}
	if e.now == nil {
		e.now = time.Now
	}
	tp := opts.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	e.tracer = tp.Tracer(tracerName)
	return e
}

// Store returns the snapshot the engine writes to.
func (e *Engine) Store() *store.Store { return e.store }

// Policy returns the configured race policy.
func (e *Engine) Policy() Policy { return e.policy }

// ApplyMove performs the optimistic patch synchronously and confirms it in
// the background. It reports whether a move was started; NO_OP decisions
// and unknown tasks start nothing.
func (e *Engine) ApplyMove(ctx context.Context, d drag.Decision) bool {
	m, ok := e.Begin(d)
	if !ok {
		return false
	}
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.Complete(e.Confirm(ctx, m))
	}()
	return true
}

// Wait blocks until every move started by ApplyMove has completed.
func (e *Engine) Wait() {
	e.wg.Wait()
}

// Begin patches the snapshot with the decision's target status and returns
// the move to confirm.
func (e *Engine) Begin(d drag.Decision) (*Move, bool) {
	target, ok := d.Status()
	if !ok {
		return nil, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	current, found := e.store.Get(d.TaskID)
	if !found {
		e.logger.WithField("task_id", d.TaskID).Debug("move for unknown task ignored")
		return nil, false
	}
	previous, _ := e.store.PatchStatus(d.TaskID, target)

	e.seq++
	e.latest[d.TaskID] = e.seq
	m := &Move{
		TaskID:   d.TaskID,
		Title:    current.Title,
		Previous: previous,
		Target:   target,
		Seq:      e.seq,
		State:    StateOptimistic,
		Began:    e.now(),
	}
	e.moveLogger(m).Debug("optimistic move applied")
	return m, true
}

// Confirm sends the status update and, when it succeeds, refetches the
// board. It performs no local writes and may run on any goroutine.
func (e *Engine) Confirm(ctx context.Context, m *Move) Outcome {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	ctx, span := e.tracer.Start(ctx, confirmSpanName, trace.WithAttributes(
		attribute.String(attrTaskID, m.TaskID),
		attribute.String(attrStatusPrevious, string(m.Previous)),
		attribute.String(attrStatusTarget, string(m.Target)),
	))
	defer span.End()

	if err := e.auth.UpdateStatus(ctx, m.TaskID, m.Target); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update status")
		return Outcome{Move: m, UpdateErr: err}
	}

	tasks, err := e.auth.FetchTasks(ctx, e.boardID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "refetch")
		return Outcome{Move: m, RefetchErr: err}
	}
	span.SetStatus(codes.Ok, "")
	return Outcome{Move: m, Tasks: tasks}
}

// Complete applies a confirm outcome to the snapshot and returns the move's
// final state.
func (e *Engine) Complete(o Outcome) State {
	e.mu.Lock()
	defer e.mu.Unlock()

	m := o.Move
	logger := e.moveLogger(m)
	newest := e.latest[m.TaskID] == m.Seq
	if newest {
		delete(e.latest, m.TaskID)
	}

	if e.policy == PolicySequenced && !newest {
		m.State = StateSuperseded
		logger.Debug("stale move completion dropped")
		return m.State
	}

	switch {
	case o.UpdateErr != nil:
		e.store.PatchStatus(m.TaskID, m.Previous)
		m.State = StateRolledBack
		logger.WithError(o.UpdateErr).Warn("move rejected, rolled back")
		e.emit(KindMoveFailed, m.TaskID,
			fmt.Sprintf("Could not move %s to %s: %v", m.label(), m.Target, o.UpdateErr), o.UpdateErr)
	case o.RefetchErr != nil:
		m.State = StateConfirmed
		logger.WithError(o.RefetchErr).Warn("move confirmed, refetch failed")
		e.emit(KindRefetchFailed, m.TaskID,
			fmt.Sprintf("Moved %s but could not refresh the board: %v", m.label(), o.RefetchErr), o.RefetchErr)
	default:
		e.store.ReplaceAll(o.Tasks)
		m.State = StateConfirmed
		logger.WithField("elapsed", e.now().Sub(m.Began)).Debug("move confirmed")
	}
	return m.State
}

// Load fetches the board and replaces the snapshot. Failures are returned,
// not notified.
func (e *Engine) Load(ctx context.Context) error {
	tasks, err := e.Fetch(ctx)
	if err != nil {
		return err
	}
	e.replace(tasks)
	return nil
}

// Refetch reloads the snapshot after a collaborator changed the board.
// A failure leaves the snapshot as it is and raises a notification.
func (e *Engine) Refetch(ctx context.Context) error {
	tasks, err := e.Fetch(ctx)
	return e.Reconcile(tasks, err)
}

// Fetch reads the board from the authority without touching the snapshot.
func (e *Engine) Fetch(ctx context.Context) ([]task.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	tasks, err := e.auth.FetchTasks(ctx, e.boardID)
	if err != nil {
		return nil, fmt.Errorf("fetching board %s: %w", e.boardID, err)
	}
	return tasks, nil
}

// Reconcile applies the result of Fetch. It is the second half of Refetch
// for callers that run the network call elsewhere.
func (e *Engine) Reconcile(tasks []task.Task, fetchErr error) error {
	if fetchErr != nil {
		e.logger.WithError(fetchErr).Warn("refetch failed")
		e.mu.Lock()
		e.emit(KindRefetchFailed, "", fmt.Sprintf("Could not refresh the board: %v", fetchErr), fetchErr)
		e.mu.Unlock()
		return fetchErr
	}
	e.replace(tasks)
	return nil
}

func (e *Engine) replace(tasks []task.Task) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.store.ReplaceAll(tasks)
}

func (e *Engine) emit(kind Kind, taskID, message string, err error) {
	e.notify.Notify(Notification{
		Kind:    kind,
		TaskID:  taskID,
		Message: message,
		Err:     err,
		At:      e.now(),
	})
}

func (e *Engine) moveLogger(m *Move) *log.Entry {
	return e.logger.WithFields(log.Fields{
		"task_id": m.TaskID,
		"seq":     m.Seq,
		"from":    m.Previous,
		"to":      m.Target,
	})
}

func (m *Move) label() string {
	if m.Title != "" {
		return fmt.Sprintf("%q", m.Title)
	}
	return m.TaskID
}
