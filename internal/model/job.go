package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind distinguishes standalone submissions from collection members
type Kind string

const (
	// KindSingle is a job submitted as a standalone URL
	KindSingle Kind = "single"

	// KindCollectionMember is a job expanded from a collection (playlist) URL
	KindCollectionMember Kind = "collection-member"
)

// Job represents a single fetch-and-convert unit of work
type Job struct {
	ID        string `json:"id"`
	SourceURL string `json:"source_url"`

	// Descriptive metadata, placeholders until refined after the worker starts
	Title           string `json:"title"`
	Channel         string `json:"channel,omitempty"`
	Thumbnail       string `json:"thumbnail,omitempty"`
	DurationSeconds int    `json:"duration_seconds,omitempty"`

	Kind           Kind   `json:"kind"`
	CollectionID   string `json:"collection_id,omitempty"`
	CollectionName string `json:"collection_name,omitempty"`

	Status          Status  `json:"status"`
	ProgressPercent float64 `json:"progress_percent"`

	// Converting marks the finishing-up phase after the fetch reached 100%
	Converting bool `json:"converting,omitempty"`

	ErrorDetail string `json:"error_detail,omitempty"`

	OutputFile               string  `json:"output_file,omitempty"`
	FileSizeBytes            int64   `json:"file_size_bytes,omitempty"`
	ThroughputBytesPerSecond float64 `json:"throughput_bps,omitempty"`

	SubmittedAt time.Time `json:"submitted_at"`
	FinishedAt  time.Time `json:"finished_at,omitempty"`
}

// NewJob creates a pending job for the given URL
func NewJob(url string) *Job {
	return &Job{
		ID:          uuid.NewString(),
		SourceURL:   url,
		Title:       url,
		Kind:        KindSingle,
		Status:      StatusPending,
		SubmittedAt: time.Now(),
	}
}

// NewCollectionID creates an identifier shared by all members of one collection
func NewCollectionID() string {
	return uuid.NewString()
}

// Clone returns a copy of the job so callers can't mutate registry state
func (j *Job) Clone() *Job {
	c := *j
	return &c
}

// GetDisplayTitle returns the refined title, the output filename, or the URL
// in order of preference
func (j *Job) GetDisplayTitle() string {
	if j.Title != "" && !strings.HasPrefix(j.Title, "http") {
		return j.Title
	}

	if j.OutputFile != "" {
		parts := strings.FieldsFunc(j.OutputFile, func(r rune) bool {
			return r == '/' || r == '\\'
		})
		if len(parts) > 0 {
			filename := parts[len(parts)-1]
			if idx := strings.LastIndex(filename, "."); idx > 0 {
				filename = filename[:idx]
			}
			return filename
		}
	}

	return j.SourceURL
}
