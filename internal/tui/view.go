package tui

import (
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/twiced-technology-gmbh/taskboard/internal/board"
	"github.com/twiced-technology-gmbh/taskboard/internal/task"
)

var (
	columnHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("252")).
				Background(lipgloss.Color("236")).
				Padding(0, 1)

	activeColumnHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("230")).
				Background(lipgloss.Color("62")).
				Padding(0, 1)

	dropColumnHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("16")).
				Background(lipgloss.Color("214")).
				Padding(0, 1)

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	activeCardStyle = cardStyle.BorderForeground(lipgloss.Color("226"))
	draggedCardStyle = cardStyle.
				BorderStyle(lipgloss.DoubleBorder()).
				BorderForeground(lipgloss.Color("214"))

	statusBarStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	toastStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("124"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	overdueStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))

	// tagColorPalette is a set of distinct, readable terminal colors for auto-coloring tags.
	tagColorPalette = []lipgloss.Color{"33", "36", "35", "32", "91", "34", "93", "96"}

	dialogStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2) //nolint:mnd // dialog padding
)

// tagStyle returns a consistent lipgloss style for a tag, derived by hashing
// the tag name into the tagColorPalette.
func tagStyle(tag string) lipgloss.Style {
	h := fnv.New32a()
	_, _ = h.Write([]byte(tag))
	color := tagColorPalette[h.Sum32()%uint32(len(tagColorPalette))]
	return lipgloss.NewStyle().Foreground(color)
}

func (b *Board) viewBoard() string {
	colWidth := b.columnWidth()
	drop := b.dropColumn()

	renderedCols := make([]string, len(b.columns))
	for i := range b.columns {
		renderedCols[i] = b.renderColumn(i, &b.columns[i], colWidth, drop)
	}
	boardView := lipgloss.JoinHorizontal(lipgloss.Top, renderedCols...)

	// At very small terminal sizes a single card can exceed the budget:
	// clamp from the bottom and pad if needed.
	targetHeight := b.boardHeight()
	if targetHeight > 0 {
		actual := strings.Count(boardView, "\n") + 1
		if actual > targetHeight {
			viewLines := strings.SplitN(boardView, "\n", targetHeight+1)
			boardView = strings.Join(viewLines[:targetHeight], "\n")
		} else if actual < targetHeight {
			boardView += strings.Repeat("\n", targetHeight-actual)
		}
	}

	parts := []string{boardView, ""}
	if b.searching || b.criteria.SearchText != "" {
		parts = append(parts, b.search.View())
	}
	if toast := b.renderToast(); toast != "" {
		parts = append(parts, toast)
	}
	parts = append(parts, b.renderStatusBar())
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// chromeHeight returns the number of lines below the column area.
func (b *Board) chromeHeight() int {
	h := boardChrome
	if b.searching || b.criteria.SearchText != "" {
		h += searchChrome
	}
	if b.inbox.Len() > 0 || b.err != nil {
		h += toastChrome
	}
	return h
}

func (b *Board) boardHeight() int {
	return b.height - b.chromeHeight()
}

func (b *Board) columnWidth() int {
	if b.width == 0 || len(b.columns) == 0 {
		return 30 //nolint:mnd // default column width
	}
	w := b.width / len(b.columns)
	const maxColWidth = 75
	return min(w, maxColWidth)
}

func (b *Board) renderColumn(colIdx int, col *column, width int, drop board.ColumnID) string {
	headerText := fmt.Sprintf("%s (%d)", col.Label, len(col.tasks))
	if status, ok := board.ColumnToStatus(col.ID); ok {
		if wip := b.wipLimits[status]; wip > 0 {
			headerText = fmt.Sprintf("%s (%d/%d)", col.Label, len(col.tasks), wip)
		}
	}
	const headerPad = 2
	headerText = truncate(headerText, width-headerPad)

	var header string
	switch {
	case drop != board.Unmapped && col.ID == drop:
		header = dropColumnHeaderStyle.Width(width).Render(headerText)
	case colIdx == b.activeCol:
		header = activeColumnHeaderStyle.Width(width).Render(headerText)
	default:
		header = columnHeaderStyle.Foreground(lipgloss.Color(col.Color)).Width(width).Render(headerText)
	}

	maxVis := b.visibleCardsForColumn(col, width)
	start := min(col.scrollOff, len(col.tasks))
	end := min(start+maxVis, len(col.tasks))

	parts := []string{header}
	if start > 0 {
		parts = append(parts, dimStyle.Width(width).Render(truncate(fmt.Sprintf("  ↑ %d more", start), width)))
	}
	if len(col.tasks) == 0 {
		parts = append(parts, dimStyle.Width(width).Render("  (empty)"))
	}
	for rowIdx := start; rowIdx < end; rowIdx++ {
		t := &col.tasks[rowIdx]
		active := colIdx == b.activeCol && rowIdx == b.activeRow
		parts = append(parts, b.renderCard(t, active, width))
	}
	if end < len(col.tasks) {
		indicator := fmt.Sprintf("  ↓ %d more", len(col.tasks)-end)
		parts = append(parts, dimStyle.Width(width).Render(truncate(indicator, width)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (b *Board) renderCard(t *task.Task, active bool, width int) string {
	content := strings.Join(b.cardContentLines(t, width), "\n")

	style := cardStyle
	if len(t.Tags) > 0 {
		h := fnv.New32a()
		_, _ = h.Write([]byte(t.Tags[0]))
		style = cardStyle.BorderForeground(tagColorPalette[h.Sum32()%uint32(len(tagColorPalette))])
	}
	switch {
	case t.ID == b.interp.ActiveID():
		style = draggedCardStyle
	case active:
		style = activeCardStyle
	}

	return style.Width(width - 2).Render(content) //nolint:mnd // border width
}

func (b *Board) cardHeight(t *task.Task, width int) int {
	return len(b.cardContentLines(t, width)) + 2 //nolint:mnd // top and bottom borders
}

func (b *Board) cardContentLines(t *task.Task, width int) []string {
	const cardChrome = 4 // border (2) + padding (2)
	cardWidth := max(width-cardChrome, 1)

	lines := wrapTitle(t.Title, cardWidth, b.titleLines)

	var meta []string
	if len(t.Assignees) > 0 {
		meta = append(meta, "@"+strings.Join(t.Assignees, " @"))
	}
	if t.Type != "" {
		meta = append(meta, t.Type)
	}
	if len(meta) > 0 {
		lines = append(lines, dimStyle.Render(truncate(strings.Join(meta, " · "), cardWidth)))
	}

	var extra []string
	if t.Due != nil {
		due := "due " + t.Due.String()
		if t.Due.Overdue(b.now()) && !t.Status.Terminal() {
			due = overdueStyle.Render(due)
		} else {
			due = dimStyle.Render(due)
		}
		extra = append(extra, due)
	}
	for _, tag := range t.Tags {
		extra = append(extra, tagStyle(tag).Render("#"+tag))
	}
	if len(extra) > 0 {
		line := strings.Join(extra, " ")
		if lipgloss.Width(line) > cardWidth {
			line = lipgloss.NewStyle().MaxWidth(cardWidth).Render(line)
		}
		lines = append(lines, line)
	}
	return lines
}

// visibleCardsForColumn returns the number of cards that fit in the column,
// accounting for the scroll indicator lines.
func (b *Board) visibleCardsForColumn(col *column, width int) int {
	if b.height == 0 {
		return max(len(col.tasks), 1)
	}
	avail := b.boardHeight() - 1 // header
	if avail < 1 {
		return 1
	}
	if col.scrollOff > 0 {
		avail--
	}

	n := b.fitCardsInHeight(col, avail, width)
	if col.scrollOff+n < len(col.tasks) {
		n = max(b.fitCardsInHeight(col, avail-1, width), 1)
	}
	return n
}

func (b *Board) fitCardsInHeight(col *column, avail, width int) int {
	if len(col.tasks) == 0 || avail < 1 {
		return 1
	}

	used, count := 0, 0
	for i := col.scrollOff; i < len(col.tasks); i++ {
		cardLines := b.cardHeight(&col.tasks[i], width)
		if count > 0 && used+cardLines > avail {
			break
		}
		count++
		used += cardLines
		if used >= avail {
			break
		}
	}
	return max(count, 1)
}

// ensureVisible adjusts the active column's scroll offset so the selected
// row is within the visible window.
func (b *Board) ensureVisible() {
	col := b.currentColumn()
	if col == nil {
		return
	}
	if len(col.tasks) == 0 {
		col.scrollOff = 0
		return
	}
	w := b.columnWidth()

	for range len(col.tasks) + 1 {
		maxVis := b.visibleCardsForColumn(col, w)
		switch {
		case b.activeRow >= col.scrollOff+maxVis:
			col.scrollOff = b.activeRow - maxVis + 1
		case b.activeRow < col.scrollOff:
			col.scrollOff = b.activeRow
		default:
			return
		}
	}
}

func (b *Board) renderToast() string {
	if b.err != nil {
		return errorStyle.Render(truncate("Error: "+b.err.Error(), b.width))
	}
	n, ok := b.inbox.Latest()
	if !ok {
		return ""
	}
	text := " " + n.Message
	if more := b.inbox.Len() - 1; more > 0 {
		text += fmt.Sprintf(" (+%d)", more)
	}
	text += "  [x] dismiss"
	return toastStyle.Render(truncate(text, b.width))
}

func (b *Board) renderStatusBar() string {
	status := fmt.Sprintf(" %s | %d tasks", b.boardName, b.projection.Total())
	if !b.criteria.IsZero() {
		status += " (filtered)"
	}
	if b.criteria.AssigneeID != "" {
		status += " | @" + b.criteria.AssigneeID
	}
	if b.criteria.TaskType != "" {
		status += " | type:" + b.criteria.TaskType
	}
	status += " | " + b.help.View(b.keys)
	return statusBarStyle.Render(truncate(status, b.width))
}

func (b *Board) viewDeleteConfirm() string {
	content := errorStyle.Render("Delete task?") + "\n\n" +
		"  " + b.deleteTitle + "\n" +
		dimStyle.Render("  "+b.deleteID) + "\n\n" +
		dimStyle.Render("y:yes  n:no")

	return dialogStyle.Render(content)
}

// wrapTitle splits a title across maxLines lines, word-wrapping at word
// boundaries. Each line is at most maxWidth characters.
func wrapTitle(title string, maxWidth, maxLines int) []string {
	if maxLines < 1 {
		maxLines = 1
	}
	if lipgloss.Width(title) <= maxWidth || maxLines == 1 {
		return []string{truncate(title, maxWidth)}
	}

	words := strings.Fields(title)
	lines := make([]string, 0, maxLines)
	var current strings.Builder

	for i, word := range words {
		if current.Len() == 0 {
			current.WriteString(word)
			continue
		}
		if lipgloss.Width(current.String())+1+lipgloss.Width(word) <= maxWidth {
			current.WriteByte(' ')
			current.WriteString(word)
			continue
		}
		lines = append(lines, truncate(current.String(), maxWidth))
		current.Reset()
		current.WriteString(word)
		if len(lines) == maxLines-1 {
			// Last line: append all remaining words.
			for _, w := range words[i+1:] {
				current.WriteByte(' ')
				current.WriteString(w)
			}
			break
		}
	}
	if current.Len() > 0 {
		lines = append(lines, truncate(current.String(), maxWidth))
	}
	return lines
}

func truncate(s string, maxLen int) string {
	if maxLen < 4 { //nolint:mnd // minimum length for truncation
		maxLen = 4
	}
	if lipgloss.Width(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	target := min(maxLen-3, len(runes)) //nolint:mnd // room for "..."
	for target > 0 && lipgloss.Width(string(runes[:target])) > maxLen-3 {
		target--
	}
	return string(runes[:target]) + "..."
}
