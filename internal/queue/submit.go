package queue

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/fetchd/fetchd/internal/model"
)

// SkipReason explains why a submission did not create a job. Skips are not
// errors.
type SkipReason string

const (
	// SkipInQueue means a non-terminal job for the same URL already exists
	SkipInQueue SkipReason = "in_queue"

	// SkipAlreadyDownloaded means a durable completed record exists for the URL
	SkipAlreadyDownloaded SkipReason = "already_downloaded"
)

// Skip reports one skipped submission item
type Skip struct {
	URL        string     `json:"url"`
	Reason     SkipReason `json:"reason"`
	ExistingID string     `json:"existing_id"`
}

// Failure reports one submission item that could not be processed
type Failure struct {
	URL string `json:"url"`
	Err string `json:"error"`
}

// SubmitResult aggregates a batch submission. One failing URL never aborts
// the rest of the batch.
type SubmitResult struct {
	Created []*model.Job `json:"created"`
	Skipped []Skip       `json:"skipped"`
	Failed  []Failure    `json:"failed"`
}

// candidate is one URL ready for admission, after collection expansion
type candidate struct {
	url            string
	title          string
	kind           model.Kind
	collectionID   string
	collectionName string
}

// Submit processes a list of URLs sequentially: collection URLs are resolved
// to their members, every item passes duplicate detection, and admitted jobs
// enter the queue as pending. force bypasses both duplicate checks.
func (s *Service) Submit(ctx context.Context, urls []string, force bool) SubmitResult {
	var result SubmitResult

	for _, raw := range urls {
		u := strings.TrimSpace(raw)
		if u == "" {
			continue
		}
		if err := validateURL(u); err != nil {
			result.Failed = append(result.Failed, Failure{URL: u, Err: err.Error()})
			continue
		}

		candidates, err := s.expand(ctx, u)
		if err != nil {
			result.Failed = append(result.Failed, Failure{URL: u, Err: err.Error()})
			continue
		}
		s.call(func() {
			for _, c := range candidates {
				s.admit(ctx, c, force, &result)
			}
			s.runNext()
		})
	}
	return result
}

// validateURL rejects sources that can't possibly be fetched
func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported URL scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL has no host")
	}
	return nil
}

// expand resolves a collection URL into member candidates. Resolution blocks
// on the network and runs on the caller's goroutine, never on the loop.
func (s *Service) expand(ctx context.Context, u string) ([]candidate, error) {
	if s.resolver == nil || !s.resolver.IsCollectionURL(u) {
		return []candidate{{url: u, kind: model.KindSingle}}, nil
	}

	col, err := s.resolver.Resolve(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("resolve collection: %w", err)
	}
	if len(col.Items) == 0 {
		return nil, fmt.Errorf("collection %s has no items", u)
	}

	out := make([]candidate, 0, len(col.Items))
	for _, it := range col.Items {
		out = append(out, candidate{
			url:            it.URL,
			title:          it.Title,
			kind:           model.KindCollectionMember,
			collectionID:   col.ID,
			collectionName: col.Name,
		})
	}
	return out, nil
}

// admit runs the per-item submission algorithm on the coordination loop
func (s *Service) admit(ctx context.Context, c candidate, force bool, result *SubmitResult) {
	if !force {
		if existing, ok := s.registry.Find(func(j *model.Job) bool {
			return j.SourceURL == c.url && !j.Status.IsTerminal()
		}); ok {
			result.Skipped = append(result.Skipped, Skip{
				URL:        c.url,
				Reason:     SkipInQueue,
				ExistingID: existing.ID,
			})
			return
		}

		dctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		rec, err := s.store.FindCompletedByURL(dctx, c.url)
		cancel()
		if err != nil {
			s.log.Warn("completed-record lookup failed", "url", c.url, "error", err)
		} else if rec != nil {
			result.Skipped = append(result.Skipped, Skip{
				URL:        c.url,
				Reason:     SkipAlreadyDownloaded,
				ExistingID: rec.ID,
			})
			return
		}
	}

	job := model.NewJob(c.url)
	job.Kind = c.kind
	job.CollectionID = c.collectionID
	job.CollectionName = c.collectionName
	if c.title != "" {
		job.Title = c.title
	}

	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	err := s.store.CreateRecord(cctx, job)
	cancel()
	if err != nil {
		result.Failed = append(result.Failed, Failure{URL: c.url, Err: fmt.Sprintf("persist job: %v", err)})
		return
	}

	s.registry.Insert(job)
	s.emit(model.EventAdded, job)
	s.log.Info("job added", "job", job.ID, "url", c.url, "kind", c.kind)
	result.Created = append(result.Created, job.Clone())
}
