// Package extractors provides site extractor implementations.
// Each extractor turns a video page URL into a metadata record.
//
// To add a new extractor:
// 1. Create a new file (e.g., mysite.go)
// 2. Embed *BaseExtractor and implement the Extractor interface
// 3. Register it in the registry (see internal/app)
package extractors

import (
	"context"
	"io"
	"net/http"
	"unicode/utf8"

	"ertflix-extract/pkg/flaresolverr"
	"ertflix-extract/pkg/interfaces"
	"ertflix-extract/pkg/logging"
	"ertflix-extract/pkg/types"

	"github.com/pkg/errors"
	"golang.org/x/net/html/charset"
)

// BaseExtractor provides page fetching and pattern search shared by extractors.
type BaseExtractor struct {
	client interfaces.HTTPClient
	flare  *flaresolverr.Client
	cache  interfaces.PageCache
	log    *logging.Logger
}

// NewBaseExtractor creates a new base extractor.
func NewBaseExtractor(client interfaces.HTTPClient, log *logging.Logger) *BaseExtractor {
	return &BaseExtractor{
		client: client,
		log:    log,
	}
}

// WithFlareSolverr enables a FlareSolverr fallback for challenged pages.
func (b *BaseExtractor) WithFlareSolverr(c *flaresolverr.Client) *BaseExtractor {
	b.flare = c
	return b
}

// WithCache enables the page cache.
func (b *BaseExtractor) WithCache(c interfaces.PageCache) *BaseExtractor {
	b.cache = c
	return b
}

// Close releases resources.
func (b *BaseExtractor) Close() error {
	return nil
}

// DownloadWebpage fetches the HTML document at url. Pages answered with
// 403/503 are retried once through FlareSolverr when it is configured.
func (b *BaseExtractor) DownloadWebpage(ctx context.Context, url, videoID string, opts types.ExtractOptions) (string, error) {
	if b.cache != nil && !opts.ForceRefresh {
		body, ok, err := b.cache.Get(ctx, url, videoID)
		if err != nil {
			b.log.Warn("page cache lookup failed", "url", url, "error", err)
		} else if ok {
			b.log.Debug("page cache hit", "url", url, "video_id", videoID)
			return body, nil
		}
	}

	b.log.Debug("downloading webpage", "url", url, "video_id", videoID)
	body, err := b.fetch(ctx, url, opts.Headers)

	var statusErr *HTTPStatusError
	if err != nil && errors.As(err, &statusErr) && statusErr.Challenged() && b.flare.IsConfigured() {
		b.log.Info("page challenged, retrying through FlareSolverr", "url", url, "status", statusErr.StatusCode)
		body, err = b.flare.FetchPage(ctx, url)
	}
	if err != nil {
		return "", errors.Wrapf(err, "unable to download webpage %s", url)
	}

	if b.cache != nil {
		if err := b.cache.Put(ctx, url, videoID, body); err != nil {
			b.log.Warn("page cache store failed", "url", url, "error", err)
		}
	}
	return body, nil
}

func (b *BaseExtractor) fetch(ctx context.Context, url string, headers map[string]string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return "", &HTTPStatusError{URL: url, StatusCode: resp.StatusCode}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "failed to read response")
	}
	return decodePage(raw, resp.Header.Get("Content-Type"))
}

// decodePage converts raw to UTF-8 using the declared or sniffed charset.
// Undeclared pages default to UTF-8 rather than windows-1252.
func decodePage(raw []byte, contentType string) (string, error) {
	enc, name, certain := charset.DetermineEncoding(raw, contentType)
	if !certain && name == "windows-1252" && utf8.Valid(raw) {
		return string(raw), nil
	}
	body, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return "", errors.Wrapf(err, "failed to decode page as %s", name)
	}
	return string(body), nil
}

var _ interfaces.PageFetcher = (*BaseExtractor)(nil)
