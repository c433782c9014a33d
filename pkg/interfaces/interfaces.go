// Package interfaces defines the core abstractions for the extraction framework.
// Site extractors implement Extractor and depend only on PageFetcher and
// FormatResolver for network work, which keeps the scraping logic testable.
package interfaces

import (
	"context"
	"net/http"

	"ertflix-extract/pkg/types"
)

// Extractor turns a video page URL into a metadata record.
// Each supported site has its own extractor implementation.
//
// To add a new extractor:
// 1. Create a new file in pkg/extractors/
// 2. Implement this interface
// 3. Register it in the ExtractorRegistry (see internal/app)
type Extractor interface {
	// Name returns a unique identifier for this extractor.
	Name() string

	// CanExtract returns true if this extractor can handle the given URL.
	CanExtract(url string) bool

	// Extract resolves the given URL to a metadata record.
	Extract(ctx context.Context, url string, opts types.ExtractOptions) (*types.InfoDict, error)

	// Close releases any resources held by the extractor.
	Close() error
}

// PageFetcher downloads an HTML document. videoID is used for diagnostics
// and as part of the cache key.
type PageFetcher interface {
	DownloadWebpage(ctx context.Context, url, videoID string, opts types.ExtractOptions) (string, error)
}

// FormatResolver parses a streaming manifest into playable formats.
type FormatResolver interface {
	// ExtractM3U8Formats parses the HLS playlist at manifestURL. When fatal is
	// false, failures are logged and a nil slice is returned.
	ExtractM3U8Formats(ctx context.Context, manifestURL, videoID, ext, m3u8ID string, fatal bool) ([]types.Format, error)
}

// HTTPClient abstracts HTTP operations for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// PageCache stores downloaded pages keyed by URL and video ID.
type PageCache interface {
	Get(ctx context.Context, url, videoID string) (string, bool, error)
	Put(ctx context.Context, url, videoID, body string) error
}

// Registry is a generic interface for component registries.
type Registry[T any] interface {
	// Register adds a component to the registry.
	Register(component T)

	// Get returns the appropriate component for the given URL.
	Get(url string) T

	// All returns all registered components.
	All() []T
}

// Logger defines the logging interface used throughout the application.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}
