package queue

import (
	"context"
	"testing"
	"time"

	"github.com/fetchd/fetchd/internal/model"
	"github.com/fetchd/fetchd/internal/worker"
)

func TestPause_OnlyFromRunning(t *testing.T) {
	env := newTestEnv(t, 1, nil)

	a := submitOne(t, env, "https://example.com/a")
	b := submitOne(t, env, "https://example.com/b")
	waitStatus(t, env.svc, a.ID, model.StatusRunning)

	if err := env.svc.Pause(b.ID); err == nil {
		t.Error("Expected pause of pending job to be rejected")
	}
	if job, _ := env.svc.Get(b.ID); job.Status != model.StatusPending {
		t.Errorf("Expected rejected pause to leave status untouched, got %s", job.Status)
	}

	if err := env.svc.Pause("no-such-id"); err == nil {
		t.Error("Expected pause of unknown job to be rejected")
	}
}

func TestPauseResume_Roundtrip(t *testing.T) {
	env := newTestEnv(t, 1, nil)

	a := submitOne(t, env, "https://example.com/a")
	waitStatus(t, env.svc, a.ID, model.StatusRunning)

	if err := env.svc.Pause(a.ID); err != nil {
		t.Fatal(err)
	}
	waitStatus(t, env.svc, a.ID, model.StatusPaused)

	handle := env.worker.lastStart().handle
	handle.mu.Lock()
	paused := handle.paused
	handle.mu.Unlock()
	if !paused {
		t.Error("Expected pause signal delivered to the worker")
	}

	// Pausing an already paused job is rejected.
	if err := env.svc.Pause(a.ID); err == nil {
		t.Error("Expected double pause to be rejected")
	}

	if err := env.svc.Resume(a.ID); err != nil {
		t.Fatal(err)
	}
	waitStatus(t, env.svc, a.ID, model.StatusRunning)

	// Resuming a running job is rejected.
	if err := env.svc.Resume(a.ID); err == nil {
		t.Error("Expected resume of running job to be rejected")
	}
}

func TestPause_HoldsConcurrencySlot(t *testing.T) {
	env := newTestEnv(t, 1, nil)

	a := submitOne(t, env, "https://example.com/a")
	b := submitOne(t, env, "https://example.com/b")
	waitStatus(t, env.svc, a.ID, model.StatusRunning)

	if err := env.svc.Pause(a.ID); err != nil {
		t.Fatal(err)
	}
	waitStatus(t, env.svc, a.ID, model.StatusPaused)

	// A paused job keeps its slot so that resume can never exceed the limit.
	time.Sleep(50 * time.Millisecond)
	if job, _ := env.svc.Get(b.ID); job.Status != model.StatusPending {
		t.Errorf("Expected pending job to stay queued behind a paused one, got %s", job.Status)
	}
	if n := env.worker.startCount(); n != 1 {
		t.Errorf("Expected no new worker starts, got %d", n)
	}
}

func TestCancel_PendingJob(t *testing.T) {
	env := newTestEnv(t, 1, nil)

	a := submitOne(t, env, "https://example.com/a")
	b := submitOne(t, env, "https://example.com/b")
	waitStatus(t, env.svc, a.ID, model.StatusRunning)

	events, cancelSub := env.bus.Subscribe()
	defer cancelSub()

	if err := env.svc.Cancel(b.ID); err != nil {
		t.Fatal(err)
	}

	// Pending jobs transition immediately and leave the queue.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, ok := env.svc.Get(b.ID); !ok {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if _, ok := env.svc.Get(b.ID); ok {
		t.Fatal("Expected cancelled pending job removed from queue")
	}

	rec, err := env.store.GetRecord(context.Background(), b.ID)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Status != model.StatusCancelled {
		t.Errorf("Expected durable status cancelled, got %s", rec.Status)
	}

	var sawRemoved bool
	evDeadline := time.After(time.Second)
loop:
	for {
		select {
		case ev := <-events:
			if ev.Job.ID == b.ID && ev.Type == model.EventRemoved {
				sawRemoved = true
				break loop
			}
		case <-evDeadline:
			break loop
		}
	}
	if !sawRemoved {
		t.Error("Expected removed event for cancelled pending job")
	}
}

func TestCancel_RunningJob(t *testing.T) {
	env := newTestEnv(t, 1, nil)

	a := submitOne(t, env, "https://example.com/a")
	waitStatus(t, env.svc, a.ID, model.StatusRunning)

	if err := env.svc.Cancel(a.ID); err != nil {
		t.Fatal(err)
	}

	rec := env.worker.lastStart()
	rec.handle.mu.Lock()
	cancelled := rec.handle.cancelled
	rec.handle.mu.Unlock()
	if !cancelled {
		t.Fatal("Expected cancel signal delivered to the worker")
	}

	// The terminal transition lands when the process actually exits, and the
	// outcome is cancelled even though the exit looks like an error.
	rec.events.Done(worker.Result{}, context.Canceled)

	final := waitStatus(t, env.svc, a.ID, model.StatusCancelled)
	if final.ErrorDetail != "" {
		t.Errorf("Expected no error detail on cancellation, got '%s'", final.ErrorDetail)
	}
}

func TestCancel_PausedJob(t *testing.T) {
	env := newTestEnv(t, 1, nil)

	a := submitOne(t, env, "https://example.com/a")
	waitStatus(t, env.svc, a.ID, model.StatusRunning)

	if err := env.svc.Pause(a.ID); err != nil {
		t.Fatal(err)
	}
	waitStatus(t, env.svc, a.ID, model.StatusPaused)

	events, cancelSub := env.bus.Subscribe()
	defer cancelSub()

	if err := env.svc.Cancel(a.ID); err != nil {
		t.Fatal(err)
	}
	env.worker.lastStart().events.Done(worker.Result{}, context.Canceled)
	waitStatus(t, env.svc, a.ID, model.StatusCancelled)

	// The job must never re-surface as running on its way out.
	drain := time.After(200 * time.Millisecond)
	for {
		select {
		case ev := <-events:
			if ev.Job.ID == a.ID && ev.Type == model.EventStatusChange && ev.Job.Status == model.StatusRunning {
				t.Error("Expected paused job to go straight to cancelled, saw running")
			}
		case <-drain:
			return
		}
	}
}

func TestCancel_TerminalRejected(t *testing.T) {
	env := newTestEnv(t, 1, nil)

	a := submitOne(t, env, "https://example.com/a")
	waitStatus(t, env.svc, a.ID, model.StatusRunning)
	env.worker.lastStart().events.Done(worker.Result{}, nil)
	waitStatus(t, env.svc, a.ID, model.StatusCompleted)

	if err := env.svc.Cancel(a.ID); err == nil {
		t.Error("Expected cancel of completed job to be rejected")
	}
}

func TestRetry_FromError(t *testing.T) {
	env := newTestEnv(t, 1, nil)
	ctx := context.Background()

	a := submitOne(t, env, "https://example.com/a")
	waitStatus(t, env.svc, a.ID, model.StatusRunning)

	rec := env.worker.lastStart()
	rec.events.Progress(40, false)
	rec.events.Done(worker.Result{}, context.DeadlineExceeded)
	waitStatus(t, env.svc, a.ID, model.StatusError)

	retried, err := env.svc.Retry(ctx, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if retried.ID != a.ID {
		t.Errorf("Expected retry to keep id %s, got %s", a.ID, retried.ID)
	}
	if retried.ProgressPercent != 0 {
		t.Errorf("Expected progress reset, got %v", retried.ProgressPercent)
	}
	if retried.ErrorDetail != "" {
		t.Errorf("Expected error detail cleared, got '%s'", retried.ErrorDetail)
	}

	waitStatus(t, env.svc, a.ID, model.StatusRunning)
	if n := env.worker.startCount(); n != 2 {
		t.Errorf("Expected a fresh worker start, got %d", n)
	}
}

func TestRetry_FromCancelledAfterRemoval(t *testing.T) {
	env := newTestEnv(t, 1, nil)
	ctx := context.Background()

	a := submitOne(t, env, "https://example.com/a")
	b := submitOne(t, env, "https://example.com/b")
	waitStatus(t, env.svc, a.ID, model.StatusRunning)

	// Cancelling the pending job removes it from the queue entirely; retry
	// resurrects it from the durable record.
	if err := env.svc.Cancel(b.ID); err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, ok := env.svc.Get(b.ID); !ok {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	retried, err := env.svc.Retry(ctx, b.ID)
	if err != nil {
		t.Fatal(err)
	}
	if retried.Status != model.StatusPending {
		t.Errorf("Expected resurrected job pending, got %s", retried.Status)
	}
	if _, ok := env.svc.Get(b.ID); !ok {
		t.Error("Expected retried job back in the queue")
	}
}

func TestRetry_CompletedRejected(t *testing.T) {
	env := newTestEnv(t, 1, nil)

	a := submitOne(t, env, "https://example.com/a")
	waitStatus(t, env.svc, a.ID, model.StatusRunning)
	env.worker.lastStart().events.Done(worker.Result{}, nil)
	waitStatus(t, env.svc, a.ID, model.StatusCompleted)

	if _, err := env.svc.Retry(context.Background(), a.ID); err == nil {
		t.Error("Expected retry of completed job to be rejected")
	}
}

func TestRetry_UnknownID(t *testing.T) {
	env := newTestEnv(t, 1, nil)

	if _, err := env.svc.Retry(context.Background(), "no-such-id"); err == nil {
		t.Error("Expected retry of unknown id to be rejected")
	}
}

func TestBatch_PauseAllAndResumeAll(t *testing.T) {
	env := newTestEnv(t, 2, nil)

	a := submitOne(t, env, "https://example.com/a")
	b := submitOne(t, env, "https://example.com/b")
	c := submitOne(t, env, "https://example.com/c")
	waitStatus(t, env.svc, a.ID, model.StatusRunning)
	waitStatus(t, env.svc, b.ID, model.StatusRunning)

	res := env.svc.PauseAll()
	if res.Succeeded != 2 {
		t.Errorf("Expected 2 paused, got %d", res.Succeeded)
	}
	if len(res.Errors) != 0 {
		t.Errorf("Expected no per-item errors, got %+v", res.Errors)
	}
	waitStatus(t, env.svc, a.ID, model.StatusPaused)
	waitStatus(t, env.svc, b.ID, model.StatusPaused)
	if job, _ := env.svc.Get(c.ID); job.Status != model.StatusPending {
		t.Errorf("Expected pending job untouched by pause-all, got %s", job.Status)
	}

	res = env.svc.ResumeAll()
	if res.Succeeded != 2 {
		t.Errorf("Expected 2 resumed, got %d", res.Succeeded)
	}
	waitStatus(t, env.svc, a.ID, model.StatusRunning)
	waitStatus(t, env.svc, b.ID, model.StatusRunning)
}

func TestBatch_CancelAll(t *testing.T) {
	env := newTestEnv(t, 1, nil)

	a := submitOne(t, env, "https://example.com/a")
	b := submitOne(t, env, "https://example.com/b")
	waitStatus(t, env.svc, a.ID, model.StatusRunning)

	res := env.svc.CancelAll()
	if res.Succeeded != 2 {
		t.Errorf("Expected 2 cancellations requested, got %d", res.Succeeded)
	}

	// The running job needs its process exit to land.
	env.worker.startFor("https://example.com/a").events.Done(worker.Result{}, context.Canceled)
	waitStatus(t, env.svc, a.ID, model.StatusCancelled)

	rec, err := env.store.GetRecord(context.Background(), b.ID)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Status != model.StatusCancelled {
		t.Errorf("Expected pending job cancelled durably, got %s", rec.Status)
	}
}
