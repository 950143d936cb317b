package board

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/twiced-technology-gmbh/taskboard/internal/clierr"
	"github.com/twiced-technology-gmbh/taskboard/internal/date"
	"github.com/twiced-technology-gmbh/taskboard/internal/task"
)

func sampleTasks() []task.Task {
	return []task.Task{
		{ID: "t1", Title: "Fix auth redirect", Status: task.StatusTodo, Type: "bug", Assignees: []string{"ana"}},
		{ID: "t2", Title: "Write docs", Status: task.StatusInProgress, Type: "Feature", Tags: []string{"docs"}},
		{ID: "t3", Title: "Rotate keys", Description: "OAuth client secrets expire", Status: task.StatusReviewed, Type: "chore", Assignees: []string{"ben"}},
		{ID: "t4", Title: "Ship release", Status: task.StatusDone, Type: "feature", Assignees: []string{"ana", "ben"}},
		{ID: "t5", Title: "Old auth flow", Status: task.StatusDeleted, Type: "bug", Tags: []string{"auth"}},
	}
}

func ids(tasks []task.Task) []string {
	out := make([]string, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.ID)
	}
	return out
}

func TestColumnRoundTrip(t *testing.T) {
	for _, c := range Columns() {
		s, ok := ColumnToStatus(c.ID)
		if !ok {
			t.Fatalf("ColumnToStatus(%q) not ok", c.ID)
		}
		if got := StatusToColumn(s); got != c.ID {
			t.Fatalf("StatusToColumn(ColumnToStatus(%q)) = %q", c.ID, got)
		}
	}
}

func TestDeletedIsUnmapped(t *testing.T) {
	if got := StatusToColumn(task.StatusDeleted); got != Unmapped {
		t.Fatalf("expected unmapped for DELETED, got %q", got)
	}
	if s, _ := ColumnToStatus(StatusToColumn(task.StatusDeleted)); s == task.StatusDeleted {
		t.Fatalf("expected the mapping to be asymmetric for DELETED")
	}
	if got := StatusToColumn(task.Status("ARCHIVED")); got != Unmapped {
		t.Fatalf("expected unmapped for unknown status, got %q", got)
	}
	if _, ok := ColumnToStatus("backlog"); ok {
		t.Fatalf("expected unknown column to be rejected")
	}
}

func TestParseColumn(t *testing.T) {
	if id, ok := ParseColumn("in-progress"); !ok || id != ColumnInProgress {
		t.Fatalf("got %q %v", id, ok)
	}
	if _, ok := ParseColumn("t1"); ok {
		t.Fatalf("task id must not parse as a column")
	}
	if _, ok := ParseColumn(""); ok {
		t.Fatalf("empty string must not parse as a column")
	}
}

func TestProjectSearch(t *testing.T) {
	p := Project(sampleTasks(), Criteria{SearchText: "AUTH"})

	if p.Total() != 2 {
		t.Fatalf("expected 2 tasks, got %d", p.Total())
	}
	if got := ids(p[ColumnTodo]); !reflect.DeepEqual(got, []string{"t1"}) {
		t.Fatalf("todo column: got %v", got)
	}
	if got := ids(p[ColumnReview]); !reflect.DeepEqual(got, []string{"t3"}) {
		t.Fatalf("review column: got %v", got)
	}
	if _, _, found := p.Find("t5"); found {
		t.Fatalf("deleted task must never render")
	}
}

func TestProjectHasAllColumns(t *testing.T) {
	p := Project(nil, Criteria{})
	for _, id := range ColumnIDs() {
		if _, ok := p[id]; !ok {
			t.Fatalf("missing column %q", id)
		}
	}
	if len(p) != 4 {
		t.Fatalf("expected 4 columns, got %d", len(p))
	}
}

func TestProjectAssigneeAndType(t *testing.T) {
	tasks := sampleTasks()

	got := Filter(tasks, Criteria{AssigneeID: "ben"})
	if !reflect.DeepEqual(ids(got), []string{"t3", "t4"}) {
		t.Fatalf("assignee filter: got %v", ids(got))
	}

	got = Filter(tasks, Criteria{TaskType: "FEATURE"})
	if !reflect.DeepEqual(ids(got), []string{"t2", "t4"}) {
		t.Fatalf("type filter: got %v", ids(got))
	}

	got = Filter(tasks, Criteria{TaskType: "bug", AssigneeID: "ana"})
	if !reflect.DeepEqual(ids(got), []string{"t1"}) {
		t.Fatalf("combined filter: got %v", ids(got))
	}
}

func TestProjectDeterministicAndStable(t *testing.T) {
	tasks := []task.Task{
		{ID: "c", Title: "c", Status: task.StatusTodo},
		{ID: "a", Title: "a", Status: task.StatusTodo},
		{ID: "b", Title: "b", Status: task.StatusTodo},
	}
	first := Project(tasks, Criteria{})
	second := Project(tasks, Criteria{})
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("projection is not deterministic")
	}
	if got := ids(first[ColumnTodo]); !reflect.DeepEqual(got, []string{"c", "a", "b"}) {
		t.Fatalf("expected input order, got %v", got)
	}
}

func TestProjectDoesNotMutateInput(t *testing.T) {
	tasks := sampleTasks()
	before := task.CloneAll(tasks)
	_ = Project(tasks, Criteria{SearchText: "docs"})
	if !reflect.DeepEqual(tasks, before) {
		t.Fatalf("input tasks were modified")
	}
}

func TestSummarize(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	past := date.New(2026, 3, 1)
	tasks := []task.Task{
		{ID: "a", Status: task.StatusInProgress, Due: &past},
		{ID: "b", Status: task.StatusInProgress},
		{ID: "c", Status: task.StatusDone, Due: &past},
	}
	limits := map[task.Status]int{task.StatusInProgress: 3}

	o := Summarize("Team", Project(tasks, Criteria{}), limits, now)
	if o.TotalTasks != 3 || o.BoardName != "Team" {
		t.Fatalf("unexpected overview %+v", o)
	}
	inProgress := o.Columns[1]
	if inProgress.Column != ColumnInProgress || inProgress.Count != 2 || inProgress.WIPLimit != 3 || inProgress.Overdue != 1 {
		t.Fatalf("unexpected in-progress summary %+v", inProgress)
	}
	if done := o.Columns[3]; done.Overdue != 0 {
		t.Fatalf("done tasks are never overdue, got %d", done.Overdue)
	}
}

func TestCheckWIPLimit(t *testing.T) {
	counts := map[task.Status]int{task.StatusInProgress: 2}

	if err := CheckWIPLimit(0, counts, task.StatusInProgress, task.StatusTodo); err != nil {
		t.Fatalf("zero limit must be unlimited: %v", err)
	}
	if err := CheckWIPLimit(2, counts, task.StatusInProgress, task.StatusInProgress); err != nil {
		t.Fatalf("task already in column must not count: %v", err)
	}
	err := CheckWIPLimit(2, counts, task.StatusInProgress, task.StatusTodo)
	if !clierr.HasCode(err, clierr.WIPLimitExceeded) {
		t.Fatalf("expected WIP_LIMIT_EXCEEDED, got %v", err)
	}
}

func TestListSortAndLimit(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tasks := []task.Task{
		{ID: "a", Title: "b", Status: task.StatusDone, Created: base},
		{ID: "b", Title: "a", Status: task.StatusTodo, Created: base.Add(time.Hour)},
		{ID: "c", Title: "c", Status: task.StatusReviewed, Created: base.Add(2 * time.Hour)},
	}

	got := List(tasks, ListOptions{SortBy: "status"})
	if !reflect.DeepEqual(ids(got), []string{"b", "c", "a"}) {
		t.Fatalf("status sort: got %v", ids(got))
	}
	got = List(tasks, ListOptions{Reverse: true, Limit: 2})
	if !reflect.DeepEqual(ids(got), []string{"c", "b"}) {
		t.Fatalf("reverse created with limit: got %v", ids(got))
	}
	got = List(tasks, ListOptions{SortBy: "title"})
	if !reflect.DeepEqual(ids(got), []string{"b", "a", "c"}) {
		t.Fatalf("title sort: got %v", ids(got))
	}
}

func TestActivityLog(t *testing.T) {
	dir := t.TempDir()
	LogMutation(dir, "move", "t1", "TODO -> DONE")
	LogMutation(dir, "delete", "t2", "soft")

	entries, err := ReadLog(dir, 1)
	if err != nil {
		t.Fatalf("ReadLog: %v", err)
	}
	if len(entries) != 1 || entries[0].TaskID != "t2" || entries[0].Action != "delete" {
		t.Fatalf("unexpected entries %+v", entries)
	}

	if _, err := os.Stat(filepath.Join(dir, logFileName)); err != nil {
		t.Fatalf("log file missing: %v", err)
	}
	empty, err := ReadLog(t.TempDir(), 0)
	if err != nil || empty != nil {
		t.Fatalf("missing log should be empty, got %v %v", empty, err)
	}
}
