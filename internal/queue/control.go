package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/fetchd/fetchd/internal/model"
	"github.com/fetchd/fetchd/internal/worker"
)

// Pause suspends a running job's worker process. Pausing anything but a
// running job is rejected with no state change.
func (s *Service) Pause(id string) error {
	var err error
	s.call(func() { err = s.pause(id) })
	return err
}

func (s *Service) pause(id string) error {
	job, ok := s.registry.Get(id)
	if !ok {
		return fmt.Errorf("job not found: %s", id)
	}
	if job.Status != model.StatusRunning {
		return fmt.Errorf("cannot pause job in status %s", job.Status)
	}
	handle, ok := s.handles[id]
	if !ok {
		return fmt.Errorf("job %s has no live worker", id)
	}
	if err := handle.Pause(); err != nil {
		return fmt.Errorf("suspend worker: %w", err)
	}

	// Progress freezes at its current value while paused.
	job.Status = model.StatusPaused
	s.persistStatus(job)
	s.emit(model.EventStatusChange, job)
	s.log.Info("job paused", "job", id)
	return nil
}

// Resume continues a paused job's worker process. Resuming anything but a
// paused job is rejected with no state change.
func (s *Service) Resume(id string) error {
	var err error
	s.call(func() { err = s.resume(id) })
	return err
}

func (s *Service) resume(id string) error {
	job, ok := s.registry.Get(id)
	if !ok {
		return fmt.Errorf("job not found: %s", id)
	}
	if job.Status != model.StatusPaused {
		return fmt.Errorf("cannot resume job in status %s", job.Status)
	}
	handle, ok := s.handles[id]
	if !ok {
		return fmt.Errorf("job %s has no live worker", id)
	}
	if err := handle.Resume(); err != nil {
		return fmt.Errorf("continue worker: %w", err)
	}

	job.Status = model.StatusRunning
	s.persistStatus(job)
	s.emit(model.EventStatusChange, job)
	s.log.Info("job resumed", "job", id)
	return nil
}

// Cancel stops a job. A pending job is cancelled and removed from the queue
// without any process involvement; an active job's worker is terminated and
// the cancelled transition lands when the process exits.
func (s *Service) Cancel(id string) error {
	var err error
	s.call(func() { err = s.cancel(id) })
	return err
}

func (s *Service) cancel(id string) error {
	job, ok := s.registry.Get(id)
	if !ok {
		return fmt.Errorf("job not found: %s", id)
	}

	switch {
	case job.Status == model.StatusPending:
		s.finalize(job, model.StatusCancelled, worker.Result{}, "")
		s.registry.Remove(id)
		s.emit(model.EventRemoved, job)
		return nil

	case job.Status.IsActive():
		handle, ok := s.handles[id]
		if !ok {
			return fmt.Errorf("job %s has no live worker", id)
		}
		if s.cancelling[id] {
			return nil
		}
		s.cancelling[id] = true
		if err := handle.Cancel(); err != nil {
			delete(s.cancelling, id)
			return fmt.Errorf("terminate worker: %w", err)
		}
		s.log.Info("job cancel requested", "job", id)
		return nil

	default:
		return fmt.Errorf("cannot cancel job in status %s", job.Status)
	}
}

// Retry resets a failed or cancelled job back to pending. It reads the
// durable record, not the in-memory one: the entry may already have been
// cleared from the queue.
func (s *Service) Retry(ctx context.Context, id string) (*model.Job, error) {
	rctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	rec, err := s.store.GetRecord(rctx, id)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("load record %s: %w", id, err)
	}
	if rec.Status != model.StatusError && rec.Status != model.StatusCancelled {
		return nil, fmt.Errorf("cannot retry job in status %s", rec.Status)
	}

	var out *model.Job
	s.call(func() {
		job, present := s.registry.Get(id)
		if present && !job.Status.IsTerminal() {
			err = fmt.Errorf("job %s is already active", id)
			return
		}
		if !present {
			job = rec.Clone()
			s.resetForRetry(job)
			s.registry.Insert(job)
			s.persistStatus(job)
			s.emit(model.EventAdded, job)
		} else {
			s.resetForRetry(job)
			s.persistStatus(job)
			s.emit(model.EventStatusChange, job)
		}
		s.log.Info("job retried", "job", id)
		out = job.Clone()
		s.runNext()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) resetForRetry(job *model.Job) {
	job.Status = model.StatusPending
	job.ProgressPercent = 0
	job.Converting = false
	job.ErrorDetail = ""
	job.OutputFile = ""
	job.FileSizeBytes = 0
	job.ThroughputBytesPerSecond = 0
	job.FinishedAt = time.Time{}
}

// ItemError reports one failed item of a batch control operation
type ItemError struct {
	ID  string `json:"id"`
	Err string `json:"error"`
}

// BatchResult aggregates a batch control operation; per-item failures never
// abort the rest
type BatchResult struct {
	Attempted int         `json:"attempted"`
	Succeeded int         `json:"succeeded"`
	Errors    []ItemError `json:"errors,omitempty"`
}

func (s *Service) batch(match func(*model.Job) bool, op func(string) error) BatchResult {
	var res BatchResult
	s.call(func() {
		var ids []string
		s.registry.Each(match, func(j *model.Job) {
			ids = append(ids, j.ID)
		})
		for _, id := range ids {
			res.Attempted++
			if err := op(id); err != nil {
				res.Errors = append(res.Errors, ItemError{ID: id, Err: err.Error()})
				continue
			}
			res.Succeeded++
		}
	})
	return res
}

// PauseAll suspends every running job
func (s *Service) PauseAll() BatchResult {
	return s.batch(func(j *model.Job) bool {
		return j.Status == model.StatusRunning
	}, s.pause)
}

// ResumeAll continues every paused job
func (s *Service) ResumeAll() BatchResult {
	return s.batch(func(j *model.Job) bool {
		return j.Status == model.StatusPaused
	}, s.resume)
}

// CancelAll cancels every non-terminal job
func (s *Service) CancelAll() BatchResult {
	return s.batch(func(j *model.Job) bool {
		return !j.Status.IsTerminal()
	}, s.cancel)
}

// RetryAll resets every failed job still in the queue
func (s *Service) RetryAll(ctx context.Context) BatchResult {
	var ids []string
	s.call(func() {
		s.registry.Each(func(j *model.Job) bool {
			return j.Status == model.StatusError
		}, func(j *model.Job) {
			ids = append(ids, j.ID)
		})
	})

	var res BatchResult
	for _, id := range ids {
		res.Attempted++
		if _, err := s.Retry(ctx, id); err != nil {
			res.Errors = append(res.Errors, ItemError{ID: id, Err: err.Error()})
			continue
		}
		res.Succeeded++
	}
	return res
}
