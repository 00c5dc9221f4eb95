package store

import (
	"context"
	"errors"

	"github.com/fetchd/fetchd/internal/model"
)

// Package store implements the durable record of every job ever submitted.
// The queue mirrors significant transitions here; duplicate detection and
// retry read back through the same interface.

// ErrNotFound is returned when no record exists for an id
var ErrNotFound = errors.New("store: record not found")

// StatusUpdate carries the optional fields of a status transition
type StatusUpdate struct {
	OutputFile               string
	FileSizeBytes            int64
	ThroughputBytesPerSecond float64
	ErrorDetail              string
}

// Store is the persistence gateway contract. UpdateStatus must be idempotent
// when called repeatedly with the same terminal status for the same id.
type Store interface {
	// CreateRecord persists a newly submitted job
	CreateRecord(ctx context.Context, job *model.Job) error

	// UpdateStatus records a status transition and its side data
	UpdateStatus(ctx context.Context, id string, status model.Status, upd StatusUpdate) error

	// UpdateProgress records the latest progress percentage
	UpdateProgress(ctx context.Context, id string, percent float64) error

	// GetRecord returns the durable record for an id
	GetRecord(ctx context.Context, id string) (*model.Job, error)

	// FindActiveByURL returns a non-terminal record with the given source URL,
	// or nil when none exists
	FindActiveByURL(ctx context.Context, url string) (*model.Job, error)

	// FindCompletedByURL returns a completed record with the given source URL,
	// or nil when none exists
	FindCompletedByURL(ctx context.Context, url string) (*model.Job, error)

	// ListByStatus returns all records with the given status
	ListByStatus(ctx context.Context, status model.Status) ([]*model.Job, error)
}
