package queue

import (
	"context"
	"log/slog"
	"time"

	"github.com/fetchd/fetchd/internal/bus"
	"github.com/fetchd/fetchd/internal/config"
	"github.com/fetchd/fetchd/internal/model"
	"github.com/fetchd/fetchd/internal/playlist"
	"github.com/fetchd/fetchd/internal/registry"
	"github.com/fetchd/fetchd/internal/store"
	"github.com/fetchd/fetchd/internal/worker"
)

// MetadataFetcher refines a job's descriptive metadata off the coordination
// path. Optional; a nil fetcher leaves placeholder metadata in place.
type MetadataFetcher interface {
	FetchMetadata(ctx context.Context, url string) (worker.Metadata, error)
}

// Config wires the orchestrator's collaborators
type Config struct {
	Store    store.Store
	Bus      *bus.Bus
	Settings config.Provider
	Worker   worker.Worker
	Resolver playlist.Resolver
	Metadata MetadataFetcher
	Logger   *slog.Logger
}

// Service is the download queue orchestrator
type Service struct {
	store    store.Store
	bus      *bus.Bus
	settings config.Provider
	worker   worker.Worker
	resolver playlist.Resolver
	meta     MetadataFetcher
	log      *slog.Logger

	registry *registry.Registry
	handles  map[string]worker.Handle
	// jobs the user cancelled whose process has not exited yet
	cancelling map[string]bool

	commands chan func()
	quit     chan struct{}
	stopped  chan struct{}
}

// New creates a stopped service; call Start before use
func New(cfg Config) *Service {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store:      cfg.Store,
		bus:        cfg.Bus,
		settings:   cfg.Settings,
		worker:     cfg.Worker,
		resolver:   cfg.Resolver,
		meta:       cfg.Metadata,
		log:        log,
		registry:   registry.New(),
		handles:    make(map[string]worker.Handle),
		cancelling: make(map[string]bool),
		commands:   make(chan func(), 128),
		quit:       make(chan struct{}),
		stopped:    make(chan struct{}),
	}
}

// Start launches the coordination loop
func (s *Service) Start() {
	go s.loop()
}

// Stop terminates the coordination loop. Live worker processes are not
// touched; callers wanting a clean shutdown cancel jobs first.
func (s *Service) Stop() {
	close(s.quit)
	<-s.stopped
}

func (s *Service) loop() {
	defer close(s.stopped)
	for {
		select {
		case <-s.quit:
			return
		case cmd := <-s.commands:
			cmd()
		}
	}
}

// post schedules fn on the coordination loop without waiting
func (s *Service) post(fn func()) {
	select {
	case s.commands <- fn:
	case <-s.quit:
	}
}

// call runs fn on the coordination loop and waits for it. Must never be
// invoked from the loop itself.
func (s *Service) call(fn func()) {
	done := make(chan struct{})
	s.post(func() {
		defer close(done)
		fn()
	})
	select {
	case <-done:
	case <-s.quit:
	}
}

// Snapshot returns a copy of every queued job in insertion order. Transports
// replay it to newly connected clients.
func (s *Service) Snapshot() []*model.Job {
	var out []*model.Job
	s.call(func() {
		for _, job := range s.registry.List() {
			out = append(out, job.Clone())
		}
	})
	return out
}

// Get returns a copy of a queued job
func (s *Service) Get(id string) (*model.Job, bool) {
	var job *model.Job
	s.call(func() {
		if j, ok := s.registry.Get(id); ok {
			job = j.Clone()
		}
	})
	return job, job != nil
}

// emit publishes an event with a snapshot of the job
func (s *Service) emit(t model.EventType, job *model.Job) {
	s.bus.Publish(model.Event{Type: t, Job: job.Clone()})
}

// persistStatus mirrors a transition to the durable store before any event
// becomes visible
func (s *Service) persistStatus(job *model.Job) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := s.store.UpdateStatus(ctx, job.ID, job.Status, store.StatusUpdate{
		OutputFile:               job.OutputFile,
		FileSizeBytes:            job.FileSizeBytes,
		ThroughputBytesPerSecond: job.ThroughputBytesPerSecond,
		ErrorDetail:              job.ErrorDetail,
	})
	if err != nil {
		s.log.Error("persist status failed", "job", job.ID, "status", job.Status, "error", err)
	}
}

// runNext admits pending jobs while capacity remains. The concurrency limit
// is read fresh on every call so operators can change it live. Jobs with a
// live handle (running or paused) occupy a slot.
func (s *Service) runNext() {
	limit := s.settings.Settings().MaxParallel
	for len(s.handles) < limit {
		job, ok := s.registry.Find(func(j *model.Job) bool {
			return j.Status == model.StatusPending
		})
		if !ok {
			return
		}
		s.startJob(job)
	}
}

// startJob transitions a pending job to running by spawning its worker
func (s *Service) startJob(job *model.Job) {
	st := s.settings.Settings()
	opts := worker.Options{
		OutputDir:    st.OutputDir,
		Format:       st.OutputFormat,
		Quality:      string(st.Quality),
		EmbedArtwork: st.EmbedArtwork,
	}

	id := job.ID
	handle, err := s.worker.Start(job.SourceURL, opts, worker.Events{
		Progress: func(percent float64, converting bool) {
			s.post(func() { s.onProgress(id, percent, converting) })
		},
		Done: func(res worker.Result, err error) {
			s.post(func() { s.onDone(id, res, err) })
		},
	})
	if err != nil {
		s.log.Error("worker spawn failed", "job", id, "url", job.SourceURL, "error", err)
		s.finalize(job, model.StatusError, worker.Result{}, err.Error())
		return
	}

	// The handle must be reachable before the running transition is visible,
	// so pause/cancel racing with startup always find it.
	s.handles[id] = handle
	job.Status = model.StatusRunning
	s.persistStatus(job)
	s.emit(model.EventStatusChange, job)
	s.log.Info("job started", "job", id, "url", job.SourceURL)

	if s.meta != nil {
		go s.prefetchMetadata(id, job.SourceURL)
	}
}

// prefetchMetadata refines title/channel/thumbnail/duration off-path
func (s *Service) prefetchMetadata(id, url string) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	meta, err := s.meta.FetchMetadata(ctx, url)
	if err != nil {
		s.log.Warn("metadata prefetch failed", "job", id, "error", err)
		return
	}
	s.post(func() { s.onMetadata(id, meta) })
}

func (s *Service) onMetadata(id string, meta worker.Metadata) {
	job, ok := s.registry.Get(id)
	if !ok || job.Status.IsTerminal() {
		return
	}
	if meta.Title != "" {
		job.Title = meta.Title
	}
	job.Channel = meta.Channel
	job.Thumbnail = meta.Thumbnail
	job.DurationSeconds = meta.DurationSeconds

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.store.CreateRecord(ctx, job); err != nil {
		s.log.Warn("persist metadata failed", "job", id, "error", err)
	}
	s.emit(model.EventStatusChange, job)
}

func (s *Service) onProgress(id string, percent float64, converting bool) {
	job, ok := s.registry.Get(id)
	if !ok || job.Status != model.StatusRunning {
		// Late lines from a terminated or paused process carry no meaning.
		return
	}
	if percent <= job.ProgressPercent && converting == job.Converting {
		return
	}
	if percent > job.ProgressPercent {
		job.ProgressPercent = percent
	}
	job.Converting = converting

	// Progress mirroring is fire-and-forget; history may lag one write.
	go func(p float64) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.store.UpdateProgress(ctx, id, p); err != nil {
			s.log.Warn("persist progress failed", "job", id, "error", err)
		}
	}(job.ProgressPercent)

	s.emit(model.EventProgress, job)
}

func (s *Service) onDone(id string, res worker.Result, err error) {
	job, ok := s.registry.Get(id)
	if !ok || job.Status.IsTerminal() {
		delete(s.handles, id)
		delete(s.cancelling, id)
		return
	}

	delete(s.handles, id)
	cancelled := s.cancelling[id]
	delete(s.cancelling, id)

	switch {
	case cancelled:
		s.finalize(job, model.StatusCancelled, worker.Result{}, "")
	case err != nil:
		s.finalize(job, model.StatusError, worker.Result{}, err.Error())
	default:
		s.finalize(job, model.StatusCompleted, res, "")
	}
	s.runNext()
}

// finalize applies a terminal transition: persist first, then emit
func (s *Service) finalize(job *model.Job, status model.Status, res worker.Result, detail string) {
	job.Status = status
	job.FinishedAt = time.Now()
	job.Converting = false
	job.ErrorDetail = detail
	if status == model.StatusCompleted {
		job.ProgressPercent = 100
		job.OutputFile = res.OutputFile
		job.FileSizeBytes = res.FileSizeBytes
		job.ThroughputBytesPerSecond = res.ThroughputBytesPerSecond
	}

	s.persistStatus(job)
	s.emit(model.EventStatusChange, job)
	switch status {
	case model.StatusCompleted:
		s.emit(model.EventComplete, job)
		s.log.Info("job completed", "job", job.ID, "file", job.OutputFile)
	case model.StatusError:
		s.emit(model.EventError, job)
		s.log.Warn("job failed", "job", job.ID, "error", detail)
	case model.StatusCancelled:
		s.log.Info("job cancelled", "job", job.ID)
	}
}

// ClearFinished removes terminal jobs from the in-memory queue. Durable
// history keeps them.
func (s *Service) ClearFinished() int {
	var removed int
	s.call(func() {
		var ids []string
		s.registry.Each(func(j *model.Job) bool {
			return j.Status.IsTerminal()
		}, func(j *model.Job) {
			ids = append(ids, j.ID)
		})
		for _, id := range ids {
			job, _ := s.registry.Get(id)
			s.registry.Remove(id)
			s.emit(model.EventRemoved, job)
			removed++
		}
	})
	return removed
}
