package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
)

// FetchMetadata asks the worker binary for the source's descriptive metadata
// without downloading anything. It blocks and is meant to run off the queue's
// coordination path.
func (y *YTDLP) FetchMetadata(ctx context.Context, url string) (Metadata, error) {
	cmd := exec.CommandContext(ctx, y.binary,
		"--dump-single-json",
		"--no-playlist",
		"--skip-download",
		"--no-warnings",
		url,
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return Metadata{}, fmt.Errorf("fetch metadata: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	var data struct {
		Title     string  `json:"title"`
		Channel   string  `json:"channel"`
		Uploader  string  `json:"uploader"`
		Thumbnail string  `json:"thumbnail"`
		Duration  float64 `json:"duration"`
	}
	if err := json.Unmarshal(stdout.Bytes(), &data); err != nil {
		return Metadata{}, fmt.Errorf("parse metadata JSON: %w", err)
	}

	channel := data.Channel
	if channel == "" {
		channel = data.Uploader
	}
	return Metadata{
		Title:           data.Title,
		Channel:         channel,
		Thumbnail:       data.Thumbnail,
		DurationSeconds: int(data.Duration),
	}, nil
}
