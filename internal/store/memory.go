package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fetchd/fetchd/internal/model"
)

// Memory implements Store using an in-memory map. Used standalone and in
// tests when no Redis is configured.
type Memory struct {
	mu      sync.RWMutex
	records map[string]*model.Job
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{
		records: make(map[string]*model.Job),
	}
}

// CreateRecord adds a new record, overwriting nothing
func (m *Memory) CreateRecord(_ context.Context, job *model.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[job.ID] = job.Clone()
	return nil
}

// UpdateStatus records a status transition
func (m *Memory) UpdateStatus(_ context.Context, id string, status model.Status, upd StatusUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[id]
	if !ok {
		return ErrNotFound
	}
	if rec.Status == status && status.IsTerminal() {
		return nil
	}
	rec.Status = status
	if status.IsTerminal() {
		rec.FinishedAt = time.Now()
	}
	if upd.OutputFile != "" {
		rec.OutputFile = upd.OutputFile
	}
	if upd.FileSizeBytes > 0 {
		rec.FileSizeBytes = upd.FileSizeBytes
	}
	if upd.ThroughputBytesPerSecond > 0 {
		rec.ThroughputBytesPerSecond = upd.ThroughputBytesPerSecond
	}
	rec.ErrorDetail = upd.ErrorDetail
	return nil
}

// UpdateProgress records the latest progress percentage
func (m *Memory) UpdateProgress(_ context.Context, id string, percent float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[id]
	if !ok {
		return ErrNotFound
	}
	rec.ProgressPercent = percent
	return nil
}

// GetRecord returns a copy of the record for an id
func (m *Memory) GetRecord(_ context.Context, id string) (*model.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return rec.Clone(), nil
}

// FindActiveByURL returns a non-terminal record for the URL, or nil
func (m *Memory) FindActiveByURL(_ context.Context, url string) (*model.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, rec := range m.records {
		if rec.SourceURL == url && !rec.Status.IsTerminal() {
			return rec.Clone(), nil
		}
	}
	return nil, nil
}

// FindCompletedByURL returns a completed record for the URL, or nil
func (m *Memory) FindCompletedByURL(_ context.Context, url string) (*model.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, rec := range m.records {
		if rec.SourceURL == url && rec.Status == model.StatusCompleted {
			return rec.Clone(), nil
		}
	}
	return nil, nil
}

// ListByStatus returns all records with the given status, oldest first
func (m *Memory) ListByStatus(_ context.Context, status model.Status) ([]*model.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*model.Job
	for _, rec := range m.records {
		if rec.Status == status {
			out = append(out, rec.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].SubmittedAt.Before(out[j].SubmittedAt)
	})
	return out, nil
}
