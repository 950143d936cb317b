// Package tui implements the terminal board: a bubbletea view of the filter
// projection that turns mouse drags and move keys into optimistic engine
// moves.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	log "github.com/sirupsen/logrus"

	"github.com/twiced-technology-gmbh/taskboard/internal/board"
	"github.com/twiced-technology-gmbh/taskboard/internal/drag"
	"github.com/twiced-technology-gmbh/taskboard/internal/engine"
	"github.com/twiced-technology-gmbh/taskboard/internal/task"
)

// view represents the current screen state.
type view int

const (
	viewBoard view = iota
	viewConfirmDelete
)

const (
	keyEsc   = "esc"
	keyEnter = "enter"

	boardChrome  = 2 // blank line + status bar below the column area
	toastChrome  = 1
	searchChrome = 1
	tickInterval = 30 * time.Second
)

// Deleter removes tasks on the remote board. The board refetches after a
// successful delete.
type Deleter interface {
	DeleteTask(ctx context.Context, taskID string, hard bool) error
}

// Options configures a Board.
type Options struct {
	BoardName string
	// Criteria is the initial filter. The search text is editable in the UI.
	Criteria  board.Criteria
	WIPLimits map[task.Status]int
	// DragThreshold is the pointer travel, in cells, that starts a drag.
	DragThreshold int
	TitleLines    int
	// RefreshEvery polls the remote board. Zero disables polling.
	RefreshEvery time.Duration
	Inbox        *engine.Inbox
	Deleter      Deleter
	Logger       *log.Logger
	Context      context.Context
	Now          func() time.Time
}

// Board is the top-level bubbletea model.
type Board struct {
	engine    *engine.Engine
	inbox     *engine.Inbox
	deleter   Deleter
	logger    *log.Logger
	ctx       context.Context
	now       func() time.Time
	boardName string
	wipLimits map[task.Status]int

	criteria   board.Criteria
	projection board.Projection
	columns    []column
	activeCol  int
	activeRow  int
	titleLines int

	sensor *drag.Sensor
	interp *drag.Interpreter

	search    textinput.Model
	searching bool
	keys      keyMap
	help      help.Model

	view         view
	deleteID     string
	deleteTitle  string
	refreshEvery time.Duration
	loaded       bool
	tick         func(time.Duration, func(time.Time) tea.Msg) tea.Cmd

	width  int
	height int
	err    error
}

// column is one visible column of the projection.
type column struct {
	board.Column
	tasks     []task.Task
	scrollOff int // first visible row index
}

// NewBoard creates a Board over an engine. The snapshot is loaded by Init.
func NewBoard(eng *engine.Engine, opts Options) *Board {
	ti := textinput.New()
	ti.Prompt = "/"
	ti.Placeholder = "search title or description"
	ti.SetValue(opts.Criteria.SearchText)

	b := &Board{
		engine:       eng,
		inbox:        opts.Inbox,
		deleter:      opts.Deleter,
		logger:       opts.Logger,
		ctx:          opts.Context,
		now:          opts.Now,
		boardName:    opts.BoardName,
		wipLimits:    opts.WIPLimits,
		criteria:     opts.Criteria,
		titleLines:   opts.TitleLines,
		sensor:       drag.NewSensor(opts.DragThreshold),
		interp:       drag.NewInterpreter(eng.Store()),
		search:       ti,
		keys:         defaultKeyMap(),
		help:         help.New(),
		refreshEvery: opts.RefreshEvery,
		tick:         tea.Tick,
	}
	if b.inbox == nil {
		b.inbox = engine.NewInbox()
	}
	if b.logger == nil {
		b.logger = log.StandardLogger()
	}
	if b.ctx == nil {
		b.ctx = context.Background()
	}
	if b.now == nil {
		b.now = time.Now
	}
	if b.titleLines < 1 {
		b.titleLines = 1
	}
	for _, c := range board.Columns() {
		b.columns = append(b.columns, column{Column: c})
	}
	b.rebuild()
	return b
}

// Inbox returns the notification inbox the board displays.
func (b *Board) Inbox() *engine.Inbox { return b.inbox }

// Init implements tea.Model.
func (b *Board) Init() tea.Cmd {
	cmds := []tea.Cmd{b.fetchCmd(), b.restyleCmd()}
	if b.refreshEvery > 0 {
		cmds = append(cmds, b.pollCmd())
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (b *Board) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return b.handleKey(msg)
	case tea.MouseMsg:
		return b, b.handleMouse(msg)
	case tea.WindowSizeMsg:
		b.width = msg.Width
		b.height = msg.Height
		b.help.Width = msg.Width
		b.ensureVisible()
		return b, nil
	case moveDoneMsg:
		state := b.engine.Complete(msg.outcome)
		b.logger.WithFields(log.Fields{
			"task_id": msg.outcome.Move.TaskID,
			"state":   state.String(),
			"failed":  msg.outcome.Failed(),
		}).Debug("move completed")
		b.rebuild()
		return b, nil
	case fetchedMsg:
		b.applyFetch(msg)
		return b, nil
	case deletedMsg:
		if msg.err != nil {
			b.inbox.Notify(engine.Notification{
				Kind:    engine.KindDeleteFailed,
				TaskID:  msg.id,
				Message: "Could not delete task: " + msg.err.Error(),
				Err:     msg.err,
				At:      b.now(),
			})
			return b, nil
		}
		return b, b.fetchCmd()
	case RefreshMsg:
		return b, b.fetchCmd()
	case TickMsg:
		return b, b.restyleCmd()
	case PollMsg:
		if b.interp.State() != drag.Idle {
			return b, b.pollCmd()
		}
		return b, tea.Batch(b.pollCmd(), b.fetchCmd())
	}
	return b, nil
}

// View implements tea.Model.
func (b *Board) View() string {
	if b.width == 0 {
		return "Loading..."
	}
	if b.view == viewConfirmDelete {
		return b.viewDeleteConfirm()
	}
	return b.viewBoard()
}

func (b *Board) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return b, tea.Quit
	}

	if b.view == viewConfirmDelete {
		return b.handleDeleteKey(msg)
	}

	if b.searching {
		return b.handleSearchKey(msg)
	}

	switch {
	case key.Matches(msg, b.keys.Quit):
		return b, tea.Quit
	case msg.String() == keyEsc:
		if b.interp.State() == drag.Dragging {
			b.interp.Cancel()
			b.sensor.Release()
		}
	case key.Matches(msg, b.keys.Left):
		if b.activeCol > 0 {
			b.activeCol--
			b.clampRow()
		}
	case key.Matches(msg, b.keys.Right):
		if b.activeCol < len(b.columns)-1 {
			b.activeCol++
			b.clampRow()
		}
	case key.Matches(msg, b.keys.Down):
		if col := b.currentColumn(); col != nil && b.activeRow < len(col.tasks)-1 {
			b.activeRow++
			b.ensureVisible()
		}
	case key.Matches(msg, b.keys.Up):
		if b.activeRow > 0 {
			b.activeRow--
			b.ensureVisible()
		}
	case key.Matches(msg, b.keys.MoveLeft):
		return b, b.moveSelected(-1)
	case key.Matches(msg, b.keys.MoveRight):
		return b, b.moveSelected(1)
	case key.Matches(msg, b.keys.Search):
		b.searching = true
		return b, b.search.Focus()
	case key.Matches(msg, b.keys.Refresh):
		return b, b.fetchCmd()
	case key.Matches(msg, b.keys.Delete):
		b.startDelete()
	case key.Matches(msg, b.keys.Dismiss):
		if n, ok := b.inbox.Latest(); ok {
			b.inbox.Dismiss(n.ID)
		}
	}
	return b, nil
}

func (b *Board) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case keyEnter:
		b.searching = false
		b.search.Blur()
		return b, nil
	case keyEsc:
		b.searching = false
		b.search.Blur()
		b.search.SetValue("")
		b.setSearch("")
		return b, nil
	}
	var cmd tea.Cmd
	b.search, cmd = b.search.Update(msg)
	b.setSearch(b.search.Value())
	return b, cmd
}

func (b *Board) setSearch(q string) {
	if b.criteria.SearchText == q {
		return
	}
	b.criteria.SearchText = q
	b.rebuild()
}

func (b *Board) startDelete() {
	if b.deleter == nil {
		return
	}
	if t := b.selectedTask(); t != nil {
		b.deleteID = t.ID
		b.deleteTitle = t.Title
		b.view = viewConfirmDelete
	}
}

func (b *Board) handleDeleteKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		b.view = viewBoard
		return b, b.deleteCmd(b.deleteID)
	case "n", "N", keyEsc, "q":
		b.view = viewBoard
	}
	return b, nil
}

// moveSelected moves the selected card one column left or right. It is the
// keyboard equivalent of dropping the card on the neighbouring column.
func (b *Board) moveSelected(delta int) tea.Cmd {
	t := b.selectedTask()
	target := b.activeCol + delta
	if t == nil || target < 0 || target >= len(b.columns) {
		return nil
	}
	return b.apply(drag.Resolve(b.engine.Store(), t.ID, string(b.columns[target].ID)))
}

// apply starts an optimistic move and returns the command confirming it.
// The selection follows the moved card.
func (b *Board) apply(d drag.Decision) tea.Cmd {
	m, ok := b.engine.Begin(d)
	if !ok {
		return nil
	}
	b.rebuild()
	ctx := b.ctx
	eng := b.engine
	return func() tea.Msg {
		return moveDoneMsg{outcome: eng.Confirm(ctx, m)}
	}
}

func (b *Board) applyFetch(msg fetchedMsg) {
	if !b.loaded {
		if msg.err != nil {
			b.err = msg.err
			return
		}
		b.loaded = true
	}
	b.err = nil
	_ = b.engine.Reconcile(msg.tasks, msg.err)
	b.rebuild()
}

// rebuild recomputes the projection from the snapshot, keeping the selected
// card selected when it is still visible.
func (b *Board) rebuild() {
	var selected string
	if t := b.selectedTask(); t != nil {
		selected = t.ID
	}

	b.projection = board.Project(b.engine.Store().Read(), b.criteria)
	for i := range b.columns {
		b.columns[i].tasks = b.projection[b.columns[i].ID]
	}

	if selected != "" {
		b.follow(selected)
	}
	b.clampRow()
}

// follow selects the card with the given ID if it is visible.
func (b *Board) follow(id string) {
	colID, row, ok := b.projection.Find(id)
	if !ok {
		return
	}
	for i := range b.columns {
		if b.columns[i].ID == colID {
			b.activeCol = i
			b.activeRow = row
			b.ensureVisible()
			return
		}
	}
}

func (b *Board) currentColumn() *column {
	if b.activeCol >= 0 && b.activeCol < len(b.columns) {
		return &b.columns[b.activeCol]
	}
	return nil
}

func (b *Board) selectedTask() *task.Task {
	col := b.currentColumn()
	if col == nil || len(col.tasks) == 0 {
		return nil
	}
	if b.activeRow >= 0 && b.activeRow < len(col.tasks) {
		return &col.tasks[b.activeRow]
	}
	return nil
}

func (b *Board) clampRow() {
	col := b.currentColumn()
	if col == nil || len(col.tasks) == 0 {
		b.activeRow = 0
		return
	}
	if b.activeRow >= len(col.tasks) {
		b.activeRow = len(col.tasks) - 1
	}
	b.ensureVisible()
}

// --- Commands and messages ---

// RefreshMsg asks the board to refetch from the remote authority.
type RefreshMsg struct{}

// TickMsg is sent periodically to refresh due-date styling.
type TickMsg struct{}

// PollMsg is sent every RefreshEvery to refetch the board. A poll that
// arrives mid-drag is skipped.
type PollMsg struct{}

type moveDoneMsg struct {
	outcome engine.Outcome
}

type fetchedMsg struct {
	tasks []task.Task
	err   error
}

type deletedMsg struct {
	id  string
	err error
}

func (b *Board) fetchCmd() tea.Cmd {
	ctx := b.ctx
	eng := b.engine
	return func() tea.Msg {
		tasks, err := eng.Fetch(ctx)
		return fetchedMsg{tasks: tasks, err: err}
	}
}

func (b *Board) deleteCmd(id string) tea.Cmd {
	ctx := b.ctx
	deleter := b.deleter
	return func() tea.Msg {
		return deletedMsg{id: id, err: deleter.DeleteTask(ctx, id, false)}
	}
}

func (b *Board) restyleCmd() tea.Cmd {
	return b.tick(tickInterval, func(time.Time) tea.Msg { return TickMsg{} })
}

func (b *Board) pollCmd() tea.Cmd {
	return b.tick(b.refreshEvery, func(time.Time) tea.Msg { return PollMsg{} })
}
