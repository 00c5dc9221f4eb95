package registry

import (
	"testing"

	"github.com/fetchd/fetchd/internal/model"
)

func job(id, url string) *model.Job {
	j := model.NewJob(url)
	j.ID = id
	return j
}

func TestRegistry_InsertAndGet(t *testing.T) {
	r := New()
	r.Insert(job("a", "https://example.com/1"))

	got, ok := r.Get("a")
	if !ok {
		t.Fatal("Expected job to exist")
	}
	if got.SourceURL != "https://example.com/1" {
		t.Errorf("Expected URL to be preserved, got '%s'", got.SourceURL)
	}

	if _, ok := r.Get("missing"); ok {
		t.Error("Expected missing id to not exist")
	}
}

func TestRegistry_DuplicateInsertPanics(t *testing.T) {
	r := New()
	r.Insert(job("a", "https://example.com/1"))

	defer func() {
		if recover() == nil {
			t.Error("Expected panic on duplicate insert")
		}
	}()
	r.Insert(job("a", "https://example.com/2"))
}

func TestRegistry_ListInsertionOrder(t *testing.T) {
	r := New()
	ids := []string{"c", "a", "b"}
	for _, id := range ids {
		r.Insert(job(id, "https://example.com/"+id))
	}

	list := r.List()
	if len(list) != 3 {
		t.Fatalf("Expected 3 jobs, got %d", len(list))
	}
	for i, id := range ids {
		if list[i].ID != id {
			t.Errorf("Expected position %d to be %s, got %s", i, id, list[i].ID)
		}
	}
}

func TestRegistry_Remove(t *testing.T) {
	r := New()
	r.Insert(job("a", "https://example.com/1"))
	r.Insert(job("b", "https://example.com/2"))

	r.Remove("a")
	if _, ok := r.Get("a"); ok {
		t.Error("Expected removed job to not exist")
	}
	if r.Len() != 1 {
		t.Errorf("Expected 1 job, got %d", r.Len())
	}

	// Removing an unknown id is a no-op.
	r.Remove("missing")
	if r.Len() != 1 {
		t.Errorf("Expected 1 job after no-op remove, got %d", r.Len())
	}
}

func TestRegistry_FindAndCount(t *testing.T) {
	r := New()
	a := job("a", "https://example.com/1")
	b := job("b", "https://example.com/2")
	b.Status = model.StatusRunning
	r.Insert(a)
	r.Insert(b)

	running := func(j *model.Job) bool { return j.Status == model.StatusRunning }

	if n := r.Count(running); n != 1 {
		t.Errorf("Expected 1 running job, got %d", n)
	}

	found, ok := r.Find(running)
	if !ok || found.ID != "b" {
		t.Errorf("Expected to find job b, got %v ok=%v", found, ok)
	}

	pending := func(j *model.Job) bool { return j.Status == model.StatusPending }
	found, ok = r.Find(pending)
	if !ok || found.ID != "a" {
		t.Errorf("Expected to find job a, got %v ok=%v", found, ok)
	}
}

func TestRegistry_EachFiltered(t *testing.T) {
	r := New()
	for _, id := range []string{"a", "b", "c"} {
		r.Insert(job(id, "https://example.com/"+id))
	}

	var visited []string
	r.Each(func(j *model.Job) bool { return j.ID != "b" }, func(j *model.Job) {
		visited = append(visited, j.ID)
	})

	if len(visited) != 2 || visited[0] != "a" || visited[1] != "c" {
		t.Errorf("Expected [a c], got %v", visited)
	}
}
