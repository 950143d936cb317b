package server

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/twiced-technology-gmbh/taskboard/internal/clierr"
	"github.com/twiced-technology-gmbh/taskboard/internal/remote"
	"github.com/twiced-technology-gmbh/taskboard/internal/task"
)

var testSecret = []byte("test-secret")

type fixture struct {
	srv    *Server
	token  string
	hook   *test.Hook
	logger *log.Logger
}

func newFixture(t *testing.T, limits map[task.Status]int) *fixture {
	t.Helper()
	logger, hook := test.NewNullLogger()
	logger.SetLevel(log.DebugLevel)

	auth, err := NewAuth(testSecret, nil, "")
	if err != nil {
		t.Fatalf("NewAuth: %v", err)
	}
	srv, err := New(Options{
		DataDir:   t.TempDir(),
		Boards:    []string{"team"},
		WIPLimits: limits,
		Auth:      auth,
		Logger:    logger,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	token, err := IssueToken(testSecret, "user-1", "", time.Hour, time.Now())
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	return &fixture{srv: srv, token: token, hook: hook, logger: logger}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		data, err := sonic.ConfigStd.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		buf.Write(data)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if f.token != "" {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}
	rec := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := sonic.ConfigStd.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func (f *fixture) create(t *testing.T, title string, status task.Status) task.Task {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/api/boards/team/tasks", remote.CreateRequest{Title: title, Status: status})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	return decode[task.Task](t, rec)
}

func expectError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("expected %d, got %d: %s", status, rec.Code, rec.Body.String())
	}
	env := decode[remote.ErrorResponse](t, rec)
	if env.Code != code {
		t.Fatalf("expected code %s, got %+v", code, env)
	}
}

func TestHealthzNeedsNoAuth(t *testing.T) {
	f := newFixture(t, nil)
	f.token = ""
	if rec := f.do(t, http.MethodGet, "/healthz", nil); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestRejectsMissingAndBadTokens(t *testing.T) {
	f := newFixture(t, nil)

	f.token = ""
	expectError(t, f.do(t, http.MethodGet, "/api/boards/team/tasks", nil), http.StatusUnauthorized, clierr.Unauthorized)

	bad, err := IssueToken([]byte("other-secret"), "user-1", "", time.Hour, time.Now())
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	f.token = bad
	expectError(t, f.do(t, http.MethodGet, "/api/boards/team/tasks", nil), http.StatusUnauthorized, clierr.Unauthorized)

	expired, err := IssueToken(testSecret, "user-1", "", time.Minute, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	f.token = expired
	expectError(t, f.do(t, http.MethodGet, "/api/boards/team/tasks", nil), http.StatusUnauthorized, clierr.Unauthorized)
}

func TestAudienceChecked(t *testing.T) {
	auth, err := NewAuth(testSecret, nil, "taskboard")
	if err != nil {
		t.Fatalf("NewAuth: %v", err)
	}
	good, _ := IssueToken(testSecret, "u", "taskboard", time.Hour, time.Now())
	if sub, err := auth.SubjectFromAuthHeader("Bearer " + good); err != nil || sub != "u" {
		t.Fatalf("expected subject u, got %q (%v)", sub, err)
	}
	other, _ := IssueToken(testSecret, "u", "elsewhere", time.Hour, time.Now())
	if _, err := auth.SubjectFromAuthHeader("Bearer " + other); err == nil {
		t.Fatal("expected audience mismatch to fail")
	}
	if _, err := auth.SubjectFromAuthHeader("Token abc"); err != errBadAuthorization {
		t.Fatalf("expected bad header error, got %v", err)
	}
}

func TestNewAuthRequiresVerifier(t *testing.T) {
	if _, err := NewAuth(nil, nil, ""); err == nil {
		t.Fatal("expected error without secret or jwks")
	}
}

func TestCreateListAndGet(t *testing.T) {
	f := newFixture(t, nil)
	a := f.create(t, "Fix auth bug", "")
	b := f.create(t, "Write docs", task.StatusInProgress)

	if a.Status != task.StatusTodo || a.Board != "team" || a.ID == "" {
		t.Fatalf("unexpected created task %+v", a)
	}
	if b.Started == nil {
		t.Fatal("expected Started on a task created in progress")
	}

	rec := f.do(t, http.MethodGet, "/api/boards/team/tasks", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	resp := decode[remote.TasksResponse](t, rec)
	if len(resp.Tasks) != 2 || resp.Tasks[0].ID != a.ID || resp.Tasks[1].ID != b.ID {
		t.Fatalf("unexpected listing %+v", resp.Tasks)
	}

	got := decode[task.Task](t, f.do(t, http.MethodGet, "/api/tasks/"+a.ID, nil))
	if got.Title != "Fix auth bug" {
		t.Fatalf("unexpected task %+v", got)
	}
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t, nil)
	expectError(t, f.do(t, http.MethodPost, "/api/boards/team/tasks", remote.CreateRequest{Title: " "}),
		http.StatusBadRequest, clierr.InvalidInput)
	expectError(t, f.do(t, http.MethodPost, "/api/boards/team/tasks", remote.CreateRequest{Title: "x", Status: task.StatusDeleted}),
		http.StatusBadRequest, clierr.InvalidStatus)
	expectError(t, f.do(t, http.MethodPost, "/api/boards/team/tasks", remote.CreateRequest{Title: "x", Due: "soon"}),
		http.StatusBadRequest, clierr.InvalidDate)
	expectError(t, f.do(t, http.MethodPost, "/api/boards/other/tasks", remote.CreateRequest{Title: "x"}),
		http.StatusNotFound, clierr.BoardNotFound)
	expectError(t, f.do(t, http.MethodPost, "/api/boards/team/tasks", map[string]any{"title": "x", "bogus": 1}),
		http.StatusBadRequest, clierr.InvalidInput)
}

func TestSetStatusSideEffects(t *testing.T) {
	f := newFixture(t, nil)
	a := f.create(t, "Ship it", "")

	rec := f.do(t, http.MethodPut, "/api/tasks/"+a.ID+"/status", remote.StatusRequest{Status: task.StatusDone})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	done := decode[task.Task](t, rec)
	if done.Status != task.StatusDone || done.Completed == nil || done.Started == nil {
		t.Fatalf("expected derived fields on done, got %+v", done)
	}

	reopened := decode[task.Task](t, f.do(t, http.MethodPut, "/api/tasks/"+a.ID+"/status",
		remote.StatusRequest{Status: task.StatusInProgress}))
	if reopened.Completed != nil {
		t.Fatalf("expected Completed cleared on reopen, got %+v", reopened)
	}
}

func TestSetStatusRules(t *testing.T) {
	f := newFixture(t, map[task.Status]int{task.StatusInProgress: 1})
	a := f.create(t, "One", task.StatusInProgress)
	b := f.create(t, "Two", "")

	expectError(t, f.do(t, http.MethodPut, "/api/tasks/"+b.ID+"/status", remote.StatusRequest{Status: task.StatusInProgress}),
		http.StatusConflict, clierr.WIPLimitExceeded)

	// Same status is idempotent even at the limit.
	if rec := f.do(t, http.MethodPut, "/api/tasks/"+a.ID+"/status", remote.StatusRequest{Status: task.StatusInProgress}); rec.Code != http.StatusOK {
		t.Fatalf("expected idempotent 200, got %d: %s", rec.Code, rec.Body.String())
	}

	expectError(t, f.do(t, http.MethodPut, "/api/tasks/"+b.ID+"/status", remote.StatusRequest{Status: task.StatusDeleted}),
		http.StatusBadRequest, clierr.InvalidStatus)
	expectError(t, f.do(t, http.MethodPut, "/api/tasks/"+b.ID+"/status", remote.StatusRequest{Status: "LATER"}),
		http.StatusBadRequest, clierr.InvalidStatus)
	expectError(t, f.do(t, http.MethodPut, "/api/tasks/missing/status", remote.StatusRequest{Status: task.StatusDone}),
		http.StatusNotFound, clierr.TaskNotFound)

	if rec := f.do(t, http.MethodDelete, "/api/tasks/"+b.ID, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	expectError(t, f.do(t, http.MethodPut, "/api/tasks/"+b.ID+"/status", remote.StatusRequest{Status: task.StatusTodo}),
		http.StatusConflict, clierr.StatusConflict)
}

func TestUpdateTask(t *testing.T) {
	f := newFixture(t, nil)
	a := f.create(t, "Draft", "")

	title := "Final"
	due := "2026-11-01"
	tags := []string{"docs"}
	rec := f.do(t, http.MethodPatch, "/api/tasks/"+a.ID, remote.UpdateRequest{Title: &title, Due: &due, Tags: &tags})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	got := decode[task.Task](t, rec)
	if got.Title != "Final" || got.Due == nil || got.Due.String() != due || len(got.Tags) != 1 {
		t.Fatalf("unexpected update result %+v", got)
	}

	expectError(t, f.do(t, http.MethodPatch, "/api/tasks/"+a.ID, remote.UpdateRequest{}),
		http.StatusBadRequest, clierr.NoChanges)
}

func TestSoftAndHardDelete(t *testing.T) {
	f := newFixture(t, nil)
	a := f.create(t, "Old", "")

	if rec := f.do(t, http.MethodDelete, "/api/tasks/"+a.ID, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	got := decode[task.Task](t, f.do(t, http.MethodGet, "/api/tasks/"+a.ID, nil))
	if got.Status != task.StatusDeleted {
		t.Fatalf("expected DELETED, got %s", got.Status)
	}

	if rec := f.do(t, http.MethodDelete, "/api/tasks/"+a.ID+"?hard=true", nil); rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	expectError(t, f.do(t, http.MethodGet, "/api/tasks/"+a.ID, nil), http.StatusNotFound, clierr.TaskNotFound)
}

func TestActivityJournal(t *testing.T) {
	f := newFixture(t, nil)
	a := f.create(t, "Logged", "")
	f.do(t, http.MethodPut, "/api/tasks/"+a.ID+"/status", remote.StatusRequest{Status: task.StatusReviewed})

	resp := decode[remote.ActivityResponse](t, f.do(t, http.MethodGet, "/api/boards/team/activity?limit=10", nil))
	if len(resp.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %+v", resp.Entries)
	}
	if resp.Entries[0].Action != ActionCreate || resp.Entries[1].Action != ActionMove || resp.Entries[1].TaskID != a.ID {
		t.Fatalf("unexpected entries %+v", resp.Entries)
	}

	expectError(t, f.do(t, http.MethodGet, "/api/boards/team/activity?limit=x", nil),
		http.StatusBadRequest, clierr.InvalidInput)
}

func TestRequestsAreLogged(t *testing.T) {
	f := newFixture(t, nil)
	f.do(t, http.MethodGet, "/api/boards/team/tasks", nil)

	var found bool
	for _, entry := range f.hook.AllEntries() {
		if entry.Message == "request" && entry.Data["status"] == http.StatusOK && entry.Data["subject"] == "user-1" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a request log entry, got %d entries", len(f.hook.AllEntries()))
	}
}

func TestClientAgainstServer(t *testing.T) {
	f := newFixture(t, nil)
	ts := httptest.NewServer(f.srv.Handler())
	t.Cleanup(ts.Close)

	c, err := remote.New(ts.URL, remote.Options{Token: f.token, Logger: f.logger})
	if err != nil {
		t.Fatalf("remote.New: %v", err)
	}
	ctx := context.Background()
	created, err := c.CreateTask(ctx, "team", remote.CreateRequest{Title: "Round trip"})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if err := c.UpdateStatus(ctx, created.ID, task.StatusReviewed); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	tasks, err := c.FetchTasks(ctx, "team")
	if err != nil {
		t.Fatalf("FetchTasks: %v", err)
	}
	if len(tasks) != 1 || tasks[0].Status != task.StatusReviewed || tasks[0].Started == nil {
		t.Fatalf("unexpected tasks %+v", tasks)
	}
	if err := c.UpdateStatus(ctx, "nope", task.StatusDone); !clierr.HasCode(err, clierr.TaskNotFound) {
		t.Fatalf("expected TASK_NOT_FOUND, got %v", err)
	}
}
