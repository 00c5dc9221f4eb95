package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Package config provides the settings the queue reads at runtime. Values
// come from environment variables (optionally loaded from a .env file by the
// daemon) and are cached briefly so operators can change limits live without
// a restart.

// QualityPreset selects the worker's format/quality flags
type QualityPreset string

const (
	QualityBest   QualityPreset = "best"
	QualityMedium QualityPreset = "medium"
	QualityAudio  QualityPreset = "audio"
)

// Environment variable names
const (
	EnvOutputDir    = "FETCHD_OUTPUT_DIR"
	EnvMaxParallel  = "FETCHD_MAX_PARALLEL"
	EnvQuality      = "FETCHD_QUALITY"
	EnvFormat       = "FETCHD_FORMAT"
	EnvEmbedArtwork = "FETCHD_EMBED_ARTWORK"
)

// Default values
const (
	DefaultMaxParallel = 2
	DefaultQuality     = QualityMedium
	DefaultFormat      = "mp4"
	MinParallel        = 1
	MaxParallel        = 10
)

// Settings is a point-in-time snapshot of the runtime configuration
type Settings struct {
	MaxParallel  int
	OutputFormat string
	Quality      QualityPreset
	OutputDir    string
	EmbedArtwork bool
}

// Provider yields the current settings. The queue reads through it on every
// admission decision.
type Provider interface {
	Settings() Settings
}

// EnvProvider reads settings from the environment with a short TTL cache
type EnvProvider struct {
	mu      sync.Mutex
	ttl     time.Duration
	fetched time.Time
	cached  Settings
}

// NewEnvProvider creates a provider refreshing at most every ttl
func NewEnvProvider(ttl time.Duration) *EnvProvider {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &EnvProvider{ttl: ttl}
}

// Settings returns the cached snapshot, re-reading the environment when the
// cache has expired
func (p *EnvProvider) Settings() Settings {
	p.mu.Lock()
	defer p.mu.Unlock()

	if time.Since(p.fetched) < p.ttl && !p.fetched.IsZero() {
		return p.cached
	}
	p.cached = readEnv()
	p.fetched = time.Now()
	return p.cached
}

func readEnv() Settings {
	s := Settings{
		MaxParallel:  DefaultMaxParallel,
		OutputFormat: DefaultFormat,
		Quality:      DefaultQuality,
		OutputDir:    defaultOutputDir(),
	}

	if v := os.Getenv(EnvMaxParallel); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			s.MaxParallel = clampParallel(n)
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvFormat)); v != "" {
		s.OutputFormat = strings.ToLower(v)
	}
	if v := strings.ToLower(strings.TrimSpace(os.Getenv(EnvQuality))); v != "" {
		switch QualityPreset(v) {
		case QualityBest, QualityMedium, QualityAudio:
			s.Quality = QualityPreset(v)
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvOutputDir)); v != "" {
		s.OutputDir = v
	}
	if v := os.Getenv(EnvEmbedArtwork); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			s.EmbedArtwork = b
		}
	}
	return s
}

func clampParallel(n int) int {
	if n < MinParallel {
		return MinParallel
	}
	if n > MaxParallel {
		return MaxParallel
	}
	return n
}

func defaultOutputDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "/tmp/downloads"
	}
	return filepath.Join(home, "Downloads")
}

// Static is a fixed-value Provider for tests
type Static struct {
	S Settings
}

// Settings returns the fixed snapshot
func (s Static) Settings() Settings {
	return s.S
}
