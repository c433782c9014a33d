package extractors

import (
	"fmt"
	"net/http"
)

// ExtractorError is returned by extractors for any failed extraction.
// Expected marks failures caused by the page itself (layout change, missing
// video) rather than by a bug or the network.
type ExtractorError struct {
	Extractor string
	VideoID   string
	Msg       string
	Expected  bool
	Err       error
}

func (e *ExtractorError) Error() string {
	msg := e.Msg
	if e.VideoID != "" {
		msg = e.VideoID + ": " + msg
	}
	if e.Extractor != "" {
		msg = "[" + e.Extractor + "] " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ExtractorError) Unwrap() error { return e.Err }

// Cause lets github.com/pkg/errors walk through the error.
func (e *ExtractorError) Cause() error { return e.Err }

// RegexNotFoundError reports that no pattern of a fallback chain matched.
type RegexNotFoundError struct {
	Field string
}

func (e *RegexNotFoundError) Error() string {
	return fmt.Sprintf("unable to extract %s", e.Field)
}

// HTTPStatusError reports a non-2xx response to a page fetch.
type HTTPStatusError struct {
	URL        string
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("HTTP %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// Challenged reports whether the status looks like an anti-bot interstitial.
func (e *HTTPStatusError) Challenged() bool {
	return e.StatusCode == http.StatusForbidden || e.StatusCode == http.StatusServiceUnavailable
}
