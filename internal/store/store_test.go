package store

import (
	"sync"
	"testing"

	"github.com/twiced-technology-gmbh/taskboard/internal/task"
)

func seed() []task.Task {
	return []task.Task{
		{ID: "t1", Title: "one", Status: task.StatusTodo, Tags: []string{"a"}},
		{ID: "t2", Title: "two", Status: task.StatusInProgress},
		{ID: "t3", Title: "three", Status: task.StatusDone},
	}
}

func TestReadReturnsCopy(t *testing.T) {
	s := New(seed())
	got := s.Read()
	got[0].Status = task.StatusDone
	got[0].Tags[0] = "changed"

	again, _ := s.Get("t1")
	if again.Status != task.StatusTodo || again.Tags[0] != "a" {
		t.Fatalf("store was mutated through a read copy: %+v", again)
	}
}

func TestNewCopiesInput(t *testing.T) {
	in := seed()
	s := New(in)
	in[1].Status = task.StatusDeleted
	if got, _ := s.Get("t2"); got.Status != task.StatusInProgress {
		t.Fatalf("store aliases its input, got %q", got.Status)
	}
}

func TestPatchStatus(t *testing.T) {
	s := New(seed())
	v := s.Version()

	prev, ok := s.PatchStatus("t1", task.StatusReviewed)
	if !ok || prev != task.StatusTodo {
		t.Fatalf("got %q %v", prev, ok)
	}
	if got, _ := s.Get("t1"); got.Status != task.StatusReviewed {
		t.Fatalf("patch not applied, got %q", got.Status)
	}
	if s.Version() != v+1 {
		t.Fatalf("version not bumped")
	}

	if _, ok := s.PatchStatus("missing", task.StatusDone); ok {
		t.Fatalf("patching an unknown task must fail")
	}
	if s.Version() != v+1 {
		t.Fatalf("failed patch must not bump the version")
	}
}

func TestReplaceAllAndRemove(t *testing.T) {
	s := New(seed())
	s.ReplaceAll([]task.Task{{ID: "t9", Status: task.StatusTodo}})
	if s.Len() != 1 {
		t.Fatalf("expected 1 task, got %d", s.Len())
	}
	if _, ok := s.Get("t1"); ok {
		t.Fatalf("replaced task still present")
	}

	s.ReplaceAll(seed())
	if !s.Remove("t2") {
		t.Fatalf("Remove returned false")
	}
	if got, ok := s.Get("t3"); !ok || got.Title != "three" {
		t.Fatalf("index not rebuilt after remove: %+v %v", got, ok)
	}
	if s.Remove("t2") {
		t.Fatalf("second remove must report false")
	}
}

func TestConcurrentAccess(t *testing.T) {
	s := New(seed())
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.PatchStatus("t1", task.StatusDone)
			s.ReplaceAll(seed())
		}()
		go func() {
			defer wg.Done()
			for _, tk := range s.Read() {
				if !tk.Status.Valid() {
					t.Errorf("torn read: %+v", tk)
				}
			}
		}()
	}
	wg.Wait()
}
