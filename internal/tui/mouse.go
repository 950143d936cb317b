package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/twiced-technology-gmbh/taskboard/internal/board"
	"github.com/twiced-technology-gmbh/taskboard/internal/drag"
)

// hit is what lies under a pointer position.
type hit struct {
	col    int // -1 outside the columns
	row    int // -1 when not over a card
	taskID string
}

// droppable returns the drag target ID for h: the card's task ID, the
// column ID for a column's header or free space, or "" outside the board.
func (b *Board) droppable(h hit) string {
	if h.col < 0 {
		return ""
	}
	if h.taskID != "" {
		return h.taskID
	}
	return string(b.columns[h.col].ID)
}

// hitTest maps a cell position to a column and card, mirroring the layout
// of renderColumn.
func (b *Board) hitTest(x, y int) hit {
	outside := hit{col: -1, row: -1}
	colWidth := b.columnWidth()
	if x < 0 || y < 0 || colWidth <= 0 {
		return outside
	}
	ci := x / colWidth
	if ci >= len(b.columns) || (b.height > 0 && y >= b.boardHeight()) {
		return outside
	}

	col := &b.columns[ci]
	h := hit{col: ci, row: -1}

	lineY := y - 1 // header
	if col.scrollOff > 0 {
		lineY-- // "↑ N more" indicator
	}
	if lineY < 0 {
		return h
	}

	end := min(col.scrollOff+b.visibleCardsForColumn(col, colWidth), len(col.tasks))
	cardLine := 0
	for r := col.scrollOff; r < end; r++ {
		cardH := b.cardHeight(&col.tasks[r], colWidth)
		if lineY < cardLine+cardH {
			h.row = r
			h.taskID = col.tasks[r].ID
			return h
		}
		cardLine += cardH
	}
	return h
}

// handleMouse feeds mouse events through the sensor and the interpreter. A
// press selects the card under the pointer; moving past the threshold
// starts a drag; the release resolves it into at most one engine move.
func (b *Board) handleMouse(msg tea.MouseMsg) tea.Cmd {
	if b.view != viewBoard {
		return nil
	}
	p := drag.Point{X: msg.X, Y: msg.Y}
	h := b.hitTest(msg.X, msg.Y)

	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft {
			return nil
		}
		b.sensor.Press(p, h.taskID)
		if h.col >= 0 {
			b.activeCol = h.col
			if h.row >= 0 {
				b.activeRow = h.row
			}
			b.clampRow()
		}
	case tea.MouseActionMotion:
		if id, ok := b.sensor.Move(p); ok {
			b.interp.Start(id)
		}
		if b.interp.State() == drag.Dragging {
			b.interp.Handle(drag.Event{ActiveID: b.interp.ActiveID(), OverID: b.droppable(h)})
		}
	case tea.MouseActionRelease:
		if !b.sensor.Release() {
			b.interp.Cancel()
			return nil
		}
		d := b.interp.Drop(drag.Event{ActiveID: b.interp.ActiveID(), OverID: b.droppable(h)})
		b.logger.WithField("decision", d.String()).Debug("drag released")
		return b.apply(d)
	}
	return nil
}

// dropColumn returns the column the current drag would land in, or
// board.Unmapped.
func (b *Board) dropColumn() board.ColumnID {
	if b.interp.State() != drag.Dragging {
		return board.Unmapped
	}
	over := b.interp.OverID()
	if c, ok := board.ParseColumn(over); ok {
		return c
	}
	if c, _, ok := b.projection.Find(over); ok {
		return c
	}
	return board.Unmapped
}
