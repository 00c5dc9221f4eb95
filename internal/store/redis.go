package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/fetchd/fetchd/internal/model"
)

// Redis key layout:
//
//	job:<id>       => JSON(Job)
//	jobs           => sorted set of ids (score: submittedAt unix)
//	job:url:<url>  => set of ids ever submitted for that URL
type Redis struct {
	client *redis.Client
}

// NewRedis creates a Redis-backed store from an existing client
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

// NewRedisClient constructs a go-redis client for the given address
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
}

// Ping validates the connection
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func jobKey(id string) string  { return fmt.Sprintf("job:%s", id) }
func urlKey(url string) string { return fmt.Sprintf("job:url:%s", url) }

// CreateRecord persists a newly submitted job
func (r *Redis) CreateRecord(ctx context.Context, job *model.Job) error {
	b, err := json.Marshal(job)
	if err != nil {
		return err
	}
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, jobKey(job.ID), b, 0)
	pipe.ZAdd(ctx, "jobs", redis.Z{Score: float64(job.SubmittedAt.Unix()), Member: job.ID})
	pipe.SAdd(ctx, urlKey(job.SourceURL), job.ID)
	_, err = pipe.Exec(ctx)
	return err
}

func (r *Redis) get(ctx context.Context, id string) (*model.Job, error) {
	val, err := r.client.Get(ctx, jobKey(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var j model.Job
	if err := json.Unmarshal(val, &j); err != nil {
		return nil, err
	}
	return &j, nil
}

func (r *Redis) put(ctx context.Context, job *model.Job) error {
	b, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, jobKey(job.ID), b, 0).Err()
}

// UpdateStatus records a status transition
func (r *Redis) UpdateStatus(ctx context.Context, id string, status model.Status, upd StatusUpdate) error {
	rec, err := r.get(ctx, id)
	if err != nil {
		return err
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
	return r.put(ctx, rec)
}

// UpdateProgress records the latest progress percentage
func (r *Redis) UpdateProgress(ctx context.Context, id string, percent float64) error {
	rec, err := r.get(ctx, id)
	if err != nil {
		return err
	}
	rec.ProgressPercent = percent
	return r.put(ctx, rec)
}

// GetRecord returns the durable record for an id
func (r *Redis) GetRecord(ctx context.Context, id string) (*model.Job, error) {
	return r.get(ctx, id)
}

func (r *Redis) findByURL(ctx context.Context, url string, match func(*model.Job) bool) (*model.Job, error) {
	ids, err := r.client.SMembers(ctx, urlKey(url)).Result()
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		rec, err := r.get(ctx, id)
		if err != nil {
			continue
		}
		if match(rec) {
			return rec, nil
		}
	}
	return nil, nil
}

// FindActiveByURL returns a non-terminal record for the URL, or nil
func (r *Redis) FindActiveByURL(ctx context.Context, url string) (*model.Job, error) {
	return r.findByURL(ctx, url, func(j *model.Job) bool {
		return !j.Status.IsTerminal()
	})
}

// FindCompletedByURL returns a completed record for the URL, or nil
func (r *Redis) FindCompletedByURL(ctx context.Context, url string) (*model.Job, error) {
	return r.findByURL(ctx, url, func(j *model.Job) bool {
		return j.Status == model.StatusCompleted
	})
}

// ListByStatus returns all records with the given status, oldest first
func (r *Redis) ListByStatus(ctx context.Context, status model.Status) ([]*model.Job, error) {
	ids, err := r.client.ZRange(ctx, "jobs", 0, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]*model.Job, 0, len(ids))
	for _, id := range ids {
		rec, err := r.get(ctx, id)
		if err != nil {
			continue
		}
		if rec.Status == status {
			out = append(out, rec)
		}
	}
	return out, nil
}
