package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/twiced-technology-gmbh/taskboard/internal/board"
	"github.com/twiced-technology-gmbh/taskboard/internal/task"
)

const (
	timeLayout    = "2006-01-02 15:04"
	markdownWidth = 80
	maxTitleWidth = 48
	maxTagsWidth  = 30
)

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("244"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	tagStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("110"))
	assigneeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("44")).Bold(true)
	overdueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))

	// Status colours follow the column palette of the terminal board.
	statusStyles = statusPalette()

	// markdownStyle is the glamour style for descriptions. Empty picks dark
	// or light from the terminal background.
	markdownStyle = ""
)

func statusPalette() map[task.Status]lipgloss.Style {
	m := map[task.Status]lipgloss.Style{
		task.StatusDeleted: lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
	}
	for _, s := range task.Statuses() {
		if col, ok := board.ColumnByID(board.StatusToColumn(s)); ok {
			m[s] = lipgloss.NewStyle().Foreground(lipgloss.Color(col.Color))
		}
	}
	return m
}

// DisableColor strips all styling from output.
func DisableColor() {
	lipgloss.SetColorProfile(termenv.Ascii)
	headerStyle = lipgloss.NewStyle()
	dimStyle = lipgloss.NewStyle()
	tagStyle = lipgloss.NewStyle()
	assigneeStyle = lipgloss.NewStyle()
	overdueStyle = lipgloss.NewStyle()
	statusStyles = map[task.Status]lipgloss.Style{}
	markdownStyle = styles.NoTTYStyle
}

// TaskTable renders a list of tasks as a formatted table.
func TaskTable(w io.Writer, tasks []task.Task, now time.Time) {
	if len(tasks) == 0 {
		fmt.Fprintln(w, "No tasks found.")
		return
	}

	const pad = 2
	idW, statusW, titleW, assignW, tagsW, dueW := 4, 8, 7, 11, 6, 12
	for _, t := range tasks {
		idW = max(idW, len(t.ID)+pad)
		statusW = max(statusW, len(t.Status)+pad)
		titleW = max(titleW, min(len(t.Title), maxTitleWidth)+pad)
		assignW = max(assignW, len(assigneeDisplay(t))+pad)
		tagsW = max(tagsW, min(len(strings.Join(t.Tags, ",")), maxTagsWidth)+pad)
	}

	header := fmt.Sprintf("%-*s %-*s %-*s %-*s %-*s %-*s",
		idW, "ID", statusW, "STATUS", titleW, "TITLE",
		assignW, "ASSIGNEES", tagsW, "TAGS", dueW, "DUE")
	fmt.Fprintln(w, headerStyle.Render(strings.TrimRight(header, " ")))

	for _, t := range tasks {
		title := truncate(t.Title, maxTitleWidth)
		assignees := assigneeDisplay(t)
		if assignees == "" {
			assignees = dimStyle.Render("--")
		} else {
			assignees = assigneeStyle.Render(assignees)
		}
		tags := truncate(strings.Join(t.Tags, ","), maxTagsWidth)
		if tags == "" {
			tags = dimStyle.Render("--")
		} else {
			tags = tagStyle.Render(tags)
		}

		row := fmt.Sprintf("%-*s %s %s %s %s %s",
			idW, t.ID,
			padRight(styledStatus(t.Status), statusW),
			padRight(title, titleW),
			padRight(assignees, assignW),
			padRight(tags, tagsW),
			dueDisplay(t, now))
		fmt.Fprintln(w, strings.TrimRight(row, " "))
	}
}

// TaskDetail renders a single task with full detail. The description is
// rendered as markdown.
func TaskDetail(w io.Writer, t *task.Task, now time.Time) error {
	titleLine := "Task " + t.ID + ": " + t.Title
	fmt.Fprintln(w, lipgloss.NewStyle().Bold(true).Render(titleLine))
	fmt.Fprintln(w, strings.Repeat("─", lipgloss.Width(titleLine)))

	printField(w, "Board", t.Board)
	printField(w, "Status", styledStatus(t.Status))
	if col := board.StatusToColumn(t.Status); col != board.Unmapped {
		printField(w, "Column", string(col))
	}
	printField(w, "Type", stringOrDash(t.Type))
	printField(w, "Assignees", stringOrDash(assigneeDisplay(*t)))
	if len(t.Tags) > 0 {
		printField(w, "Tags", tagStyle.Render(strings.Join(t.Tags, ", ")))
	} else {
		printField(w, "Tags", dimStyle.Render("--"))
	}
	printField(w, "Due", dueDisplay(*t, now))
	printField(w, "Created", t.Created.Local().Format(timeLayout))
	printField(w, "Updated", t.Updated.Local().Format(timeLayout))
	if t.Started != nil {
		printField(w, "Started", t.Started.Local().Format(timeLayout))
	}
	if t.Completed != nil {
		printField(w, "Completed", t.Completed.Local().Format(timeLayout))
		printField(w, "Lead time", FormatDuration(t.Completed.Sub(t.Created)))
		if t.Started != nil {
			printField(w, "Cycle time", FormatDuration(t.Completed.Sub(*t.Started)))
		}
	}

	if strings.TrimSpace(t.Description) == "" {
		return nil
	}
	fmt.Fprintln(w)
	rendered, err := renderMarkdown(t.Description)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, rendered)
	return err
}

// OverviewTable renders a board summary as a formatted dashboard.
func OverviewTable(w io.Writer, s board.Overview) {
	fmt.Fprintln(w, lipgloss.NewStyle().Bold(true).Render(s.BoardName))
	fmt.Fprintf(w, "Total: %d tasks\n\n", s.TotalTasks)

	const colW = 16
	header := fmt.Sprintf("%-*s %6s %8s %8s", colW, "COLUMN", "COUNT", "WIP", "OVERDUE")
	fmt.Fprintln(w, headerStyle.Render(header))

	for _, cs := range s.Columns {
		wip := dimStyle.Render("--")
		if cs.WIPLimit > 0 {
			wip = strconv.Itoa(cs.Count) + "/" + strconv.Itoa(cs.WIPLimit)
		}
		label := cs.Label
		if st, ok := board.ColumnToStatus(cs.Column); ok {
			label = styledAs(st, cs.Label)
		}
		fmt.Fprintf(w, "%s %6d %s %8d\n",
			padRight(label, colW), cs.Count, padLeft(wip, 8), cs.Overdue) //nolint:mnd // column width
	}
}

// ActivityTable renders journal entries oldest first.
func ActivityTable(w io.Writer, entries []board.LogEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No activity.")
		return
	}
	const timeW, actionW = 17, 8
	header := fmt.Sprintf("%-*s %-*s %-38s %s", timeW, "TIME", actionW, "ACTION", "TASK", "DETAIL")
	fmt.Fprintln(w, headerStyle.Render(header))
	for _, e := range entries {
		fmt.Fprintf(w, "%-*s %-*s %-38s %s\n",
			timeW, e.Timestamp.Local().Format(timeLayout),
			actionW, e.Action, e.TaskID, e.Detail)
	}
}

// Messagef prints a simple formatted message line.
func Messagef(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, format+"\n", args...)
}

func markdownStyleName() string {
	if markdownStyle != "" {
		return markdownStyle
	}
	if lipgloss.HasDarkBackground() {
		return styles.DarkStyle
	}
	return styles.LightStyle
}

func renderMarkdown(md string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(markdownStyleName()),
		glamour.WithWordWrap(markdownWidth),
	)
	if err != nil {
		return "", fmt.Errorf("creating markdown renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return "", fmt.Errorf("rendering description: %w", err)
	}
	return out, nil
}

func printField(w io.Writer, label, value string) {
	fmt.Fprintf(w, "  %-12s %s\n", label+":", value)
}

// FormatDuration renders a duration as human-readable "Xd Yh" or "Xh Ym".
func FormatDuration(d time.Duration) string {
	const hoursPerDay = 24
	days := int(d.Hours()) / hoursPerDay
	hours := int(d.Hours()) % hoursPerDay
	if days > 0 {
		return strconv.Itoa(days) + "d " + strconv.Itoa(hours) + "h"
	}
	minutes := int(d.Minutes()) % 60 //nolint:mnd // 60 minutes per hour
	return strconv.Itoa(hours) + "h " + strconv.Itoa(minutes) + "m"
}

// padRight pads s with spaces to the given visible width, accounting for ANSI
// escape codes that are invisible but consume bytes.
func padRight(s string, width int) string {
	visible := lipgloss.Width(s)
	if visible >= width {
		return s
	}
	return s + strings.Repeat(" ", width-visible)
}

func padLeft(s string, width int) string {
	visible := lipgloss.Width(s)
	if visible >= width {
		return s
	}
	return strings.Repeat(" ", width-visible) + s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func stringOrDash(s string) string {
	if s == "" {
		return dimStyle.Render("--")
	}
	return s
}

func assigneeDisplay(t task.Task) string {
	if len(t.Assignees) == 0 {
		return ""
	}
	return "@" + strings.Join(t.Assignees, " @")
}

func dueDisplay(t task.Task, now time.Time) string {
	if t.Due == nil {
		return dimStyle.Render("--")
	}
	if t.Due.Overdue(now) && !t.Status.Terminal() {
		return overdueStyle.Render(t.Due.String())
	}
	return t.Due.String()
}

func styledStatus(s task.Status) string {
	return styledAs(s, string(s))
}

func styledAs(s task.Status, text string) string {
	if st, ok := statusStyles[s]; ok {
		return st.Render(text)
	}
	return text
}
