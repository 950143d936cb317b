package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/twiced-technology-gmbh/taskboard/internal/board"
	"github.com/twiced-technology-gmbh/taskboard/internal/task"
)

const dayLayout = "2006-01-02"

// TaskCompact renders a list of tasks in one-line-per-record compact format.
func TaskCompact(w io.Writer, tasks []task.Task) {
	if len(tasks) == 0 {
		fmt.Fprintln(w, "No tasks found.")
		return
	}

	for i := range tasks {
		fmt.Fprintln(w, formatTaskLine(&tasks[i]))
	}
}

// TaskDetailCompact renders a single task with detail in compact format.
func TaskDetailCompact(w io.Writer, t *task.Task) {
	fmt.Fprintln(w, formatTaskLine(t))

	ts := "  created:" + t.Created.Format(dayLayout) +
		" updated:" + t.Updated.Format(dayLayout)
	if t.Started != nil {
		ts += " started:" + t.Started.Format(dayLayout)
	}
	if t.Completed != nil {
		ts += " completed:" + t.Completed.Format(dayLayout)
	}
	fmt.Fprintln(w, ts)

	if t.Description != "" {
		for _, line := range strings.Split(strings.TrimRight(t.Description, "\n"), "\n") {
			fmt.Fprintln(w, "  "+line)
		}
	}
}

// OverviewCompact renders a board summary in compact format.
func OverviewCompact(w io.Writer, s board.Overview) {
	fmt.Fprintf(w, "%s (%d tasks)\n", s.BoardName, s.TotalTasks)

	for _, cs := range s.Columns {
		line := "  " + string(cs.Column) + ": " + strconv.Itoa(cs.Count)
		if cs.WIPLimit > 0 {
			line += "/" + strconv.Itoa(cs.WIPLimit)
		}
		if cs.Overdue > 0 {
			line += " (" + strconv.Itoa(cs.Overdue) + " overdue)"
		}
		fmt.Fprintln(w, line)
	}
}

// ActivityCompact renders journal entries one per line.
func ActivityCompact(w io.Writer, entries []board.LogEntry) {
	for _, e := range entries {
		fmt.Fprintf(w, "%s %s %s %s\n", e.Timestamp.Format("2006-01-02T15:04:05"), e.Action, e.TaskID, e.Detail)
	}
}

// formatTaskLine builds the one-line representation of a task.
func formatTaskLine(t *task.Task) string {
	line := t.ID + " [" + string(t.Status) + "] " + t.Title

	for _, a := range t.Assignees {
		line += " @" + a
	}
	if t.Type != "" {
		line += " <" + t.Type + ">"
	}
	if len(t.Tags) > 0 {
		line += " (" + strings.Join(t.Tags, ", ") + ")"
	}
	if t.Due != nil {
		line += " due:" + t.Due.String()
	}

	return line
}
