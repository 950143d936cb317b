package tui

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/twiced-technology-gmbh/taskboard/internal/board"
	"github.com/twiced-technology-gmbh/taskboard/internal/engine"
	"github.com/twiced-technology-gmbh/taskboard/internal/store"
	"github.com/twiced-technology-gmbh/taskboard/internal/task"
)

var testNow = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

// fakeRemote is an in-memory authority that can reject status changes.
type fakeRemote struct {
	mu      sync.Mutex
	tasks   []task.Task
	reject  error
	deleted []string
}

func (f *fakeRemote) FetchTasks(_ context.Context, _ string) ([]task.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return task.CloneAll(f.tasks), nil
}

func (f *fakeRemote) UpdateStatus(_ context.Context, taskID string, status task.Status) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.reject != nil {
		return f.reject
	}
	for i := range f.tasks {
		if f.tasks[i].ID == taskID {
			task.ApplyStatus(&f.tasks[i], status, testNow)
			return nil
		}
	}
	return errors.New("task not found")
}

func (f *fakeRemote) DeleteTask(_ context.Context, taskID string, _ bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, taskID)
	kept := f.tasks[:0]
	for _, t := range f.tasks {
		if t.ID != taskID {
			kept = append(kept, t)
		}
	}
	f.tasks = kept
	return nil
}

func seedTasks() []task.Task {
	return []task.Task{
		{ID: "a", Board: "team", Title: "Write docs", Status: task.StatusTodo, Created: testNow, Updated: testNow},
		{ID: "b", Board: "team", Title: "Fix login", Status: task.StatusTodo, Created: testNow, Updated: testNow},
		{ID: "c", Board: "team", Title: "Ship release", Status: task.StatusInProgress, Created: testNow, Updated: testNow},
	}
}

func newTestBoard(t *testing.T, remote *fakeRemote) *Board {
	t.Helper()
	logger, _ := test.NewNullLogger()
	inbox := engine.NewInbox()
	eng := engine.New(store.New(remote.tasks), remote, engine.Options{
		BoardID:  "team",
		Notifier: inbox,
		Logger:   logger,
		Now:      func() time.Time { return testNow },
	})
	b := NewBoard(eng, Options{
		BoardName:     "Team",
		DragThreshold: 2,
		Inbox:         inbox,
		Deleter:       remote,
		Logger:        logger,
		Now:           func() time.Time { return testNow },
	})
	b.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return b
}

func runCmd(t *testing.T, b *Board, cmd tea.Cmd) {
	t.Helper()
	if cmd == nil {
		t.Fatalf("expected a command")
	}
	b.Update(cmd())
}

func mouse(action tea.MouseAction, x, y int) tea.MouseMsg {
	return tea.MouseMsg{X: x, Y: y, Action: action, Button: tea.MouseButtonLeft}
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func statusOf(b *Board, id string) task.Status {
	got, _ := b.engine.Store().Get(id)
	return got.Status
}

// dragToInProgress presses on the first todo card and releases over the in-progress
// column header.
func dragToInProgress(b *Board) tea.Cmd {
	b.Update(mouse(tea.MouseActionPress, 2, 2))
	b.Update(mouse(tea.MouseActionMotion, 35, 0))
	_, cmd := b.Update(mouse(tea.MouseActionRelease, 35, 0))
	return cmd
}

func TestHitTestLayout(t *testing.T) {
	b := newTestBoard(t, &fakeRemote{tasks: seedTasks()})

	if h := b.hitTest(2, 0); h.col != 0 || h.taskID != "" {
		t.Fatalf("expected todo header, got %+v", h)
	}
	if h := b.hitTest(2, 1); h.taskID != "a" {
		t.Fatalf("expected first card, got %+v", h)
	}
	second := 1 + b.cardHeight(&b.columns[0].tasks[0], b.columnWidth())
	if h := b.hitTest(2, second); h.taskID != "b" {
		t.Fatalf("expected second card at y=%d, got %+v", second, h)
	}
	if h := b.hitTest(35, 1); h.col != 1 || h.taskID != "c" {
		t.Fatalf("expected in-progress card, got %+v", h)
	}
	if h := b.hitTest(2, 39); h.col != -1 {
		t.Fatalf("expected the status bar to be outside the board, got %+v", h)
	}
}

func TestDragConfirmsMove(t *testing.T) {
	remote := &fakeRemote{tasks: seedTasks()}
	b := newTestBoard(t, remote)

	cmd := dragToInProgress(b)
	if got := statusOf(b, "a"); got != task.StatusInProgress {
		t.Fatalf("expected optimistic IN_PROGRESS, got %s", got)
	}
	if col, _, _ := b.projection.Find("a"); col != board.ColumnInProgress {
		t.Fatalf("expected card rendered in in-progress, got %q", col)
	}

	runCmd(t, b, cmd)
	got, _ := b.engine.Store().Get("a")
	if got.Status != task.StatusInProgress || got.Started == nil {
		t.Fatalf("expected reconciled task with started set, got %+v", got)
	}
	if b.inbox.Len() != 0 {
		t.Fatalf("expected no notifications, got %d", b.inbox.Len())
	}
}

func TestDragRejectedRollsBackWithToast(t *testing.T) {
	remote := &fakeRemote{tasks: seedTasks(), reject: errors.New("wip limit reached")}
	b := newTestBoard(t, remote)

	cmd := dragToInProgress(b)
	if got := statusOf(b, "a"); got != task.StatusInProgress {
		t.Fatalf("expected optimistic IN_PROGRESS, got %s", got)
	}
	runCmd(t, b, cmd)

	if got := statusOf(b, "a"); got != task.StatusTodo {
		t.Fatalf("expected rollback to TODO, got %s", got)
	}
	if !strings.Contains(b.View(), "wip limit reached") {
		t.Fatalf("expected toast in view:\n%s", b.View())
	}

	b.Update(runes("x"))
	if b.inbox.Len() != 0 {
		t.Fatalf("expected toast dismissed, got %d", b.inbox.Len())
	}
}

func TestClickWithoutDragDoesNotMove(t *testing.T) {
	b := newTestBoard(t, &fakeRemote{tasks: seedTasks()})

	b.Update(mouse(tea.MouseActionPress, 2, 2))
	b.Update(mouse(tea.MouseActionMotion, 3, 2))
	_, cmd := b.Update(mouse(tea.MouseActionRelease, 3, 2))
	if cmd != nil {
		t.Fatalf("expected no move for a click")
	}
	if got := statusOf(b, "a"); got != task.StatusTodo {
		t.Fatalf("expected TODO, got %s", got)
	}
}

func TestDropOnOwnColumnIsNoOp(t *testing.T) {
	b := newTestBoard(t, &fakeRemote{tasks: seedTasks()})

	b.Update(mouse(tea.MouseActionPress, 2, 2))
	b.Update(mouse(tea.MouseActionMotion, 2, 10))
	_, cmd := b.Update(mouse(tea.MouseActionRelease, 2, 10))
	if cmd != nil {
		t.Fatalf("expected no move within the same column")
	}
}

func TestKeyboardMove(t *testing.T) {
	remote := &fakeRemote{tasks: seedTasks()}
	b := newTestBoard(t, remote)

	b.Update(runes("j"))
	_, cmd := b.Update(runes("L"))
	if got := statusOf(b, "b"); got != task.StatusInProgress {
		t.Fatalf("expected b moved to IN_PROGRESS, got %s", got)
	}
	if b.activeCol != 1 {
		t.Fatalf("expected selection to follow the card, got column %d", b.activeCol)
	}
	runCmd(t, b, cmd)

	if _, cmd := b.Update(runes("H")); cmd == nil {
		t.Fatalf("expected move back to todo")
	}
	if got := statusOf(b, "b"); got != task.StatusTodo {
		t.Fatalf("expected b back in TODO, got %s", got)
	}
}

func TestSearchFiltersColumns(t *testing.T) {
	b := newTestBoard(t, &fakeRemote{tasks: seedTasks()})

	b.Update(runes("/"))
	for _, r := range "login" {
		b.Update(runes(string(r)))
	}
	b.Update(tea.KeyMsg{Type: tea.KeyEnter})

	if b.searching {
		t.Fatalf("expected enter to leave search mode")
	}
	if got := b.projection.Total(); got != 1 {
		t.Fatalf("expected 1 match, got %d", got)
	}
	if _, _, ok := b.projection.Find("b"); !ok {
		t.Fatalf("expected b to match")
	}

	b.Update(runes("/"))
	b.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if got := b.projection.Total(); got != 3 {
		t.Fatalf("expected filter cleared, got %d", got)
	}
}

func TestDeleteConfirmFlow(t *testing.T) {
	remote := &fakeRemote{tasks: seedTasks()}
	b := newTestBoard(t, remote)

	b.Update(runes("d"))
	if b.view != viewConfirmDelete || !strings.Contains(b.View(), "Write docs") {
		t.Fatalf("expected delete confirmation:\n%s", b.View())
	}
	b.Update(runes("n"))
	if b.view != viewBoard || len(remote.deleted) != 0 {
		t.Fatalf("expected cancel to keep the task")
	}

	b.Update(runes("d"))
	_, cmd := b.Update(runes("y"))
	runCmd(t, b, cmd) // deletedMsg, returns a fetch
	if len(remote.deleted) != 1 || remote.deleted[0] != "a" {
		t.Fatalf("expected a deleted, got %v", remote.deleted)
	}
	_, fetch := b.Update(deletedMsg{id: "a"})
	runCmd(t, b, fetch)
	if _, ok := b.engine.Store().Get("a"); ok {
		t.Fatalf("expected a gone after refetch")
	}
}

func TestInitialFetchErrorShown(t *testing.T) {
	b := newTestBoard(t, &fakeRemote{tasks: seedTasks()})
	b.Update(fetchedMsg{err: errors.New("connection refused")})
	if !strings.Contains(b.View(), "connection refused") {
		t.Fatalf("expected error in view:\n%s", b.View())
	}
}

func TestViewShowsColumnsAndWIP(t *testing.T) {
	b := newTestBoard(t, &fakeRemote{tasks: seedTasks()})
	b.wipLimits = map[task.Status]int{task.StatusInProgress: 3}
	out := b.View()
	for _, want := range []string{"To Do (2)", "In Progress (1/3)", "Write docs", "Team | 3 tasks"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in view:\n%s", want, out)
		}
	}
}

func TestWrapTitle(t *testing.T) {
	lines := wrapTitle("one two three four five", 9, 2)
	if len(lines) != 2 || lines[0] != "one two" {
		t.Fatalf("unexpected wrap %q", lines)
	}
	if got := wrapTitle("short", 20, 3); len(got) != 1 {
		t.Fatalf("expected single line, got %q", got)
	}
}

// recordTicks replaces the board's timer with one that fires immediately and
// records every requested interval.
func recordTicks(b *Board) *[]time.Duration {
	var got []time.Duration
	b.tick = func(d time.Duration, fn func(time.Time) tea.Msg) tea.Cmd {
		got = append(got, d)
		return func() tea.Msg { return fn(testNow) }
	}
	return &got
}

func TestPollUsesRefreshInterval(t *testing.T) {
	b := newTestBoard(t, &fakeRemote{tasks: seedTasks()})
	b.refreshEvery = time.Hour
	ticks := recordTicks(b)

	b.Init()
	if len(*ticks) != 2 || (*ticks)[0] != tickInterval || (*ticks)[1] != time.Hour {
		t.Fatalf("expected restyle and poll timers, got %v", *ticks)
	}

	*ticks = nil
	if _, cmd := b.Update(TickMsg{}); cmd == nil {
		t.Fatalf("expected the restyle tick to reschedule")
	}
	if len(*ticks) != 1 || (*ticks)[0] != tickInterval {
		t.Fatalf("expected restyle tick only, got %v", *ticks)
	}

	*ticks = nil
	_, cmd := b.Update(PollMsg{})
	batch, ok := cmd().(tea.BatchMsg)
	if !ok || len(batch) != 2 {
		t.Fatalf("expected poll to reschedule and fetch, got %T", cmd())
	}
	if len(*ticks) != 1 || (*ticks)[0] != time.Hour {
		t.Fatalf("expected next poll in 1h, got %v", *ticks)
	}
	if _, ok := batch[1]().(fetchedMsg); !ok {
		t.Fatalf("expected a fetch alongside the poll")
	}
}

func TestPollDisabledByDefault(t *testing.T) {
	b := newTestBoard(t, &fakeRemote{tasks: seedTasks()})
	ticks := recordTicks(b)

	b.Init()
	if len(*ticks) != 1 || (*ticks)[0] != tickInterval {
		t.Fatalf("expected only the restyle timer, got %v", *ticks)
	}
}

func TestPollSkippedMidDrag(t *testing.T) {
	b := newTestBoard(t, &fakeRemote{tasks: seedTasks()})
	b.refreshEvery = time.Minute
	recordTicks(b)

	b.Update(mouse(tea.MouseActionPress, 2, 2))
	b.Update(mouse(tea.MouseActionMotion, 35, 0))
	_, cmd := b.Update(PollMsg{})
	if _, ok := cmd().(PollMsg); !ok {
		t.Fatalf("expected only the next poll while dragging")
	}
}

func TestDeleteFailureNotifies(t *testing.T) {
	b := newTestBoard(t, &fakeRemote{tasks: seedTasks()})

	if _, cmd := b.Update(deletedMsg{id: "a", err: errors.New("forbidden")}); cmd != nil {
		t.Fatalf("expected no refetch after a failed delete")
	}
	n, ok := b.Inbox().Latest()
	if !ok || n.Kind != engine.KindDeleteFailed || n.TaskID != "a" {
		t.Fatalf("expected delete_failed notification, got %+v", n)
	}
}

func TestStatusBarMarksFilteredView(t *testing.T) {
	b := newTestBoard(t, &fakeRemote{tasks: seedTasks()})
	if strings.Contains(b.renderStatusBar(), "(filtered)") {
		t.Fatalf("expected unfiltered status bar")
	}
	b.criteria.AssigneeID = "ana"
	b.rebuild()
	if !strings.Contains(b.renderStatusBar(), "(filtered)") {
		t.Fatalf("expected filtered marker, got %q", b.renderStatusBar())
	}
}
