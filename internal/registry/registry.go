package registry

import (
	"fmt"

	"github.com/fetchd/fetchd/internal/model"
)

// Registry is the authoritative in-memory map of queued jobs, kept in
// insertion order. It is not safe for concurrent use: all mutation must go
// through the queue's coordination loop.
type Registry struct {
	ids  []string
	jobs map[string]*model.Job
}

// New creates an empty registry
func New() *Registry {
	return &Registry{
		jobs: make(map[string]*model.Job),
	}
}

// Insert adds a job. Inserting an id that is already present is a programming
// error and panics.
func (r *Registry) Insert(job *model.Job) {
	if _, exists := r.jobs[job.ID]; exists {
		panic(fmt.Sprintf("registry: duplicate job id %s", job.ID))
	}
	r.ids = append(r.ids, job.ID)
	r.jobs[job.ID] = job
}

// Get returns the job with the given id
func (r *Registry) Get(id string) (*model.Job, bool) {
	job, ok := r.jobs[id]
	return job, ok
}

// List returns all jobs in insertion order
func (r *Registry) List() []*model.Job {
	out := make([]*model.Job, 0, len(r.ids))
	for _, id := range r.ids {
		out = append(out, r.jobs[id])
	}
	return out
}

// Remove deletes the job with the given id, if present
func (r *Registry) Remove(id string) {
	if _, ok := r.jobs[id]; !ok {
		return
	}
	delete(r.jobs, id)
	for i, v := range r.ids {
		if v == id {
			r.ids = append(r.ids[:i], r.ids[i+1:]...)
			break
		}
	}
}

// Each visits jobs in insertion order, calling fn for every job matching the
// predicate. A nil predicate matches everything.
func (r *Registry) Each(match func(*model.Job) bool, fn func(*model.Job)) {
	for _, id := range r.ids {
		job := r.jobs[id]
		if match == nil || match(job) {
			fn(job)
		}
	}
}

// Find returns the first job in insertion order matching the predicate
func (r *Registry) Find(match func(*model.Job) bool) (*model.Job, bool) {
	for _, id := range r.ids {
		if match(r.jobs[id]) {
			return r.jobs[id], true
		}
	}
	return nil, false
}

// Count returns the number of jobs matching the predicate
func (r *Registry) Count(match func(*model.Job) bool) int {
	n := 0
	for _, id := range r.ids {
		if match(r.jobs[id]) {
			n++
		}
	}
	return n
}

// Len returns the number of jobs in the registry
func (r *Registry) Len() int {
	return len(r.ids)
}
