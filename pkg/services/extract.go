// Package services holds the application logic shared by the API and CLI.
package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"ertflix-extract/pkg/logging"
	"ertflix-extract/pkg/registry"
	"ertflix-extract/pkg/types"
)

// ErrUnsupportedURL is returned when no extractor accepts a URL.
var ErrUnsupportedURL = errors.New("unsupported URL")

// ExtractService resolves page URLs to metadata records.
type ExtractService struct {
	log        *logging.Logger
	extractors *registry.ExtractorRegistry
}

// NewExtractService creates a new extract service.
func NewExtractService(log *logging.Logger, extractors *registry.ExtractorRegistry) *ExtractService {
	return &ExtractService{
		log:        log.WithComponent("extract-service"),
		extractors: extractors,
	}
}

// Extract decodes urlStr if needed and runs the matching extractor.
func (s *ExtractService) Extract(ctx context.Context, urlStr string, opts types.ExtractOptions) (*types.InfoDict, error) {
	urlStr = decodeURL(urlStr)

	extractor := s.extractors.Get(urlStr)
	if extractor == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedURL, urlStr)
	}

	log := s.log.WithURL(urlStr).With("extractor", extractor.Name())
	log.Debug("extracting")
	start := time.Now()

	info, err := extractor.Extract(ctx, urlStr, opts)
	if err != nil {
		log.WithDuration(time.Since(start)).Warn("extraction failed", "error", err)
		return nil, fmt.Errorf("extraction failed: %w", err)
	}

	log.WithDuration(time.Since(start)).Debug("extracted record",
		"id", info.ID,
		"title", info.Title,
		"uploader", deref(info.Uploader),
		"thumbnail", deref(info.Thumbnail),
		"is_live", deref(info.IsLive),
		"season_number", deref(info.SeasonNumber),
		"episode_number", deref(info.EpisodeNumber),
		"formats", len(info.Formats),
		"description", info.Description,
	)
	return info, nil
}

// Extractors returns the names of the registered extractors.
func (s *ExtractService) Extractors() []string {
	return s.extractors.Names()
}

// Close releases extractor resources.
func (s *ExtractService) Close() error {
	return s.extractors.Close()
}

// decodeURL accepts plain, percent-encoded or base64-encoded URLs.
func decodeURL(urlStr string) string {
	urlStr = strings.TrimSpace(urlStr)
	if urlStr == "" {
		return urlStr
	}

	if isHTTPURL(urlStr) {
		return urlStr
	}
	if decoded, err := url.QueryUnescape(urlStr); err == nil && isHTTPURL(decoded) {
		return decoded
	}

	padded := urlStr
	switch len(urlStr) % 4 {
	case 2:
		padded += "=="
	case 3:
		padded += "="
	}
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.URLEncoding} {
		if decoded, err := enc.DecodeString(padded); err == nil && isHTTPURL(string(decoded)) {
			return string(decoded)
		}
	}
	return urlStr
}

func isHTTPURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// deref returns the pointed-to value, or nil so optional fields log as null.
func deref[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}
