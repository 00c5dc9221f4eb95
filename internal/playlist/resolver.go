package playlist

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ytget/ytdlp/v2"
)

// Package playlist resolves a collection (playlist) URL into its member
// videos so the queue can admit them as individual jobs sharing one
// collection id.

// Timeout constants
const (
	DefaultResolveTimeout = 60 * time.Second
)

// URL parameters and separators
const (
	PlaylistParam  = "list="
	ParamSeparator = "&"
)

// Default values
const (
	DefaultCollectionName = "Unknown Playlist"
)

// URL templates
const (
	VideoURLTemplate = "https://www.youtube.com/watch?v=%s"
)

// Collection naming constants
const (
	MinPrefixLength  = 10
	CollectionSuffix = " Playlist"
)

// Item is one member of a resolved collection
type Item struct {
	URL   string
	Title string
}

// Collection is the result of resolving a collection URL
type Collection struct {
	ID    string
	Name  string
	Items []Item
}

// Resolver turns a collection URL into its members
type Resolver interface {
	// IsCollectionURL reports whether the URL refers to a collection
	IsCollectionURL(url string) bool

	// Resolve fetches the collection's member list
	Resolve(ctx context.Context, url string) (*Collection, error)
}

// YTDLPResolver resolves collections through the ytdlp library
type YTDLPResolver struct {
	timeout time.Duration
}

// NewYTDLPResolver creates a resolver with the default timeout
func NewYTDLPResolver() *YTDLPResolver {
	return &YTDLPResolver{
		timeout: DefaultResolveTimeout,
	}
}

// SetTimeout sets the timeout for resolve operations
func (r *YTDLPResolver) SetTimeout(timeout time.Duration) {
	r.timeout = timeout
}

// IsCollectionURL reports whether the URL carries a playlist parameter
func (r *YTDLPResolver) IsCollectionURL(url string) bool {
	return strings.Contains(url, PlaylistParam)
}

// Resolve fetches the playlist items and maps them to collection members
func (r *YTDLPResolver) Resolve(ctx context.Context, url string) (*Collection, error) {
	playlistID := extractPlaylistID(url)
	if playlistID == "" {
		return nil, fmt.Errorf("could not extract playlist ID from URL: %s", url)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	d := ytdlp.New()
	items, err := d.GetPlaylistItemsAll(ctx, playlistID, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to get playlist items: %w", err)
	}

	members := make([]Item, 0, len(items))
	for _, it := range items {
		members = append(members, Item{
			URL:   fmt.Sprintf(VideoURLTemplate, it.VideoID),
			Title: it.Title,
		})
	}

	return &Collection{
		ID:    playlistID,
		Name:  collectionName(members),
		Items: members,
	}, nil
}

// extractPlaylistID extracts the playlist ID from various URL formats
func extractPlaylistID(url string) string {
	if !strings.Contains(url, PlaylistParam) {
		return ""
	}
	parts := strings.Split(url, PlaylistParam)
	if len(parts) < 2 {
		return ""
	}
	id := parts[1]
	if strings.Contains(id, ParamSeparator) {
		id = strings.Split(id, ParamSeparator)[0]
	}
	return id
}

// collectionName derives a display name from member titles
func collectionName(items []Item) string {
	if len(items) == 0 {
		return DefaultCollectionName
	}
	if len(items) > 1 {
		prefix := commonPrefix(items[0].Title, items[1].Title)
		if len(prefix) > MinPrefixLength {
			return strings.TrimSpace(prefix) + CollectionSuffix
		}
	}
	return items[0].Title + CollectionSuffix
}

// commonPrefix finds the common prefix between two strings
func commonPrefix(s1, s2 string) string {
	minLen := min(len(s1), len(s2))
	for i := 0; i < minLen; i++ {
		if s1[i] != s2[i] {
			return s1[:i]
		}
	}
	return s1[:minLen]
}
