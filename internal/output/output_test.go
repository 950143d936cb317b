package output

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/glamour/styles"

	"github.com/twiced-technology-gmbh/taskboard/internal/board"
	"github.com/twiced-technology-gmbh/taskboard/internal/date"
	"github.com/twiced-technology-gmbh/taskboard/internal/task"
)

func init() {
	DisableColor()
}

var now = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

func sample() task.Task {
	due := date.New(2026, 10, 1)
	return task.Task{
		ID:          "t1",
		Board:       "team",
		Title:       "Fix auth bug",
		Status:      task.StatusInProgress,
		Type:        "bug",
		Due:         &due,
		Assignees:   []string{"ana"},
		Tags:        []string{"security"},
		Created:     now.Add(-48 * time.Hour),
		Updated:     now,
		Description: "# Notes\n\nRotate the **keys**.",
	}
}

func TestDetect(t *testing.T) {
	cases := []struct {
		json, table, compact bool
		env                  string
		want                 Format
	}{
		{want: FormatTable},
		{json: true, compact: true, want: FormatJSON},
		{compact: true, table: true, want: FormatCompact},
		{env: "json", want: FormatJSON},
		{env: "oneline", want: FormatCompact},
		{table: true, env: "json", want: FormatTable},
	}
	for _, tc := range cases {
		if got := detect(tc.json, tc.table, tc.compact, tc.env); got != tc.want {
			t.Fatalf("detect(%+v) = %v, want %v", tc, got, tc.want)
		}
	}
}

func TestTaskCompact(t *testing.T) {
	var buf bytes.Buffer
	TaskCompact(&buf, []task.Task{sample()})
	want := "t1 [IN_PROGRESS] Fix auth bug @ana <bug> (security) due:2026-10-01\n"
	if buf.String() != want {
		t.Fatalf("got %q, want %q", buf.String(), want)
	}
}

func TestTaskTableHasHeaderAndRow(t *testing.T) {
	var buf bytes.Buffer
	TaskTable(&buf, []task.Task{sample()}, now)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header and one row, got %q", buf.String())
	}
	if !strings.HasPrefix(lines[0], "ID") || !strings.Contains(lines[1], "Fix auth bug") {
		t.Fatalf("unexpected table %q", buf.String())
	}
}

func withMarkdownStyle(t *testing.T, style string) {
	t.Helper()
	old := markdownStyle
	markdownStyle = style
	t.Cleanup(func() { markdownStyle = old })
}

func TestTaskDetailRendersMarkdown(t *testing.T) {
	withMarkdownStyle(t, styles.DarkStyle)
	var buf bytes.Buffer
	tk := sample()
	if err := TaskDetail(&buf, &tk, now); err != nil {
		t.Fatalf("TaskDetail: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Task t1: Fix auth bug", "Column:", "in-progress", "Rotate the", "keys"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
	if strings.Contains(out, "**keys**") || strings.Contains(out, "# Notes") {
		t.Fatalf("expected markdown to be rendered:\n%s", out)
	}
}

func TestTaskDetailPlainWithoutColor(t *testing.T) {
	if markdownStyleName() != styles.NoTTYStyle {
		t.Fatalf("expected DisableColor to select the plain style, got %q", markdownStyleName())
	}
	var buf bytes.Buffer
	tk := sample()
	if err := TaskDetail(&buf, &tk, now); err != nil {
		t.Fatalf("TaskDetail: %v", err)
	}
	if !strings.Contains(buf.String(), "Rotate the") {
		t.Fatalf("expected plain description:\n%s", buf.String())
	}
}

func TestMarkdownStyleFollowsBackground(t *testing.T) {
	withMarkdownStyle(t, "")
	got := markdownStyleName()
	if got != styles.DarkStyle && got != styles.LightStyle {
		t.Fatalf("expected an explicit dark or light style, got %q", got)
	}
}

func TestOverviewCompact(t *testing.T) {
	tasks := []task.Task{sample()}
	ov := board.Summarize("Team", board.Project(tasks, board.Criteria{}),
		map[task.Status]int{task.StatusInProgress: 3}, now)

	var buf bytes.Buffer
	OverviewCompact(&buf, ov)
	if !strings.Contains(buf.String(), "in-progress: 1/3 (1 overdue)") {
		t.Fatalf("unexpected overview %q", buf.String())
	}
}

func TestJSONError(t *testing.T) {
	var buf bytes.Buffer
	JSONError(&buf, "TASK_NOT_FOUND", "task not found: t9", map[string]any{"id": "t9"})
	if !strings.Contains(buf.String(), `"code": "TASK_NOT_FOUND"`) {
		t.Fatalf("unexpected envelope %s", buf.String())
	}
}

func TestFormatDuration(t *testing.T) {
	if got := FormatDuration(50 * time.Hour); got != "2d 2h" {
		t.Fatalf("got %q", got)
	}
	if got := FormatDuration(90 * time.Minute); got != "1h 30m" {
		t.Fatalf("got %q", got)
	}
}
