package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"ertflix-extract/pkg/appctx"
	"ertflix-extract/pkg/config"
	"ertflix-extract/pkg/logging"
	"ertflix-extract/pkg/registry"
	"ertflix-extract/pkg/services"
	"ertflix-extract/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPageURL = "https://www.ertflix.gr/series/vod/froytopia-s1-ep2"

type stubExtractor struct {
	info *types.InfoDict
	err  error
	opts types.ExtractOptions
}

func (s *stubExtractor) Name() string { return "ertgr" }

func (s *stubExtractor) CanExtract(u string) bool { return strings.HasPrefix(u, "https://www.ertflix.gr/") }

func (s *stubExtractor) Extract(_ context.Context, _ string, opts types.ExtractOptions) (*types.InfoDict, error) {
	s.opts = opts
	return s.info, s.err
}

func (s *stubExtractor) Close() error { return nil }

func newTestHandlers(e *stubExtractor) (*Handlers, *http.ServeMux) {
	log := logging.Discard()
	cfg := &config.Config{BaseURL: "http://localhost:7860/"}

	r := registry.NewExtractorRegistry()
	r.Register(e)

	ctx := appctx.New(cfg, log).WithExtractService(services.NewExtractService(log, r))
	h := NewHandlers(ctx)
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	return h, mux
}

func doGet(mux *http.ServeMux, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func sampleInfo() *types.InfoDict {
	live := false
	season, episode := 1, 2
	return &types.InfoDict{
		ID:            "froytopia-s1-ep2",
		Title:         "Show Σ1:ΕΠ2",
		Description:   "text nested more",
		IsLive:        &live,
		SeasonNumber:  &season,
		EpisodeNumber: &episode,
		Formats: []types.Format{
			{FormatID: "hls-800", URL: "https://cdn.example/360p.m3u8", TBR: 800},
			{FormatID: "hls-2500", URL: "https://cdn.example/720p.m3u8", TBR: 2500},
		},
	}
}

func TestHandlers_Extractor(t *testing.T) {
	e := &stubExtractor{info: sampleInfo()}
	_, mux := newTestHandlers(e)

	query := url.Values{
		"url":       {testPageURL},
		"force":     {"true"},
		"h_Referer": {"https://www.ertflix.gr/"},
	}
	w := doGet(mux, "/extractor/video?"+query.Encode())
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "froytopia-s1-ep2", body["id"])
	assert.Equal(t, "text nested more", body["description"])
	assert.Equal(t, false, body["is_live"])
	assert.EqualValues(t, 1, body["season_number"])
	assert.EqualValues(t, 2, body["episode_number"])
	assert.NotContains(t, body, "uploader")
	assert.Len(t, body["formats"], 2)

	assert.True(t, e.opts.ForceRefresh)
	assert.Equal(t, "https://www.ertflix.gr/", e.opts.Headers["Referer"])
}

func TestHandlers_Extractor_Alias(t *testing.T) {
	_, mux := newTestHandlers(&stubExtractor{info: sampleInfo()})

	w := doGet(mux, "/extractor?d="+url.QueryEscape(testPageURL))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandlers_Extractor_Redirect(t *testing.T) {
	_, mux := newTestHandlers(&stubExtractor{info: sampleInfo()})

	w := doGet(mux, "/extractor/video?redirect_stream=true&url="+url.QueryEscape(testPageURL))
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "https://cdn.example/720p.m3u8", w.Header().Get("Location"))
}

func TestHandlers_Extractor_Errors(t *testing.T) {
	tests := []struct {
		name   string
		target string
		e      *stubExtractor
		status int
	}{
		{"missing url", "/extractor/video", &stubExtractor{}, http.StatusBadRequest},
		{"unsupported url", "/extractor/video?url=" + url.QueryEscape("https://example.com/v"), &stubExtractor{}, http.StatusNotFound},
		{"extraction failure", "/extractor/video?url=" + url.QueryEscape(testPageURL), &stubExtractor{err: errors.New("unable to extract m3u8 url")}, http.StatusBadGateway},
		{"redirect without formats", "/extractor/video?redirect_stream=true&url=" + url.QueryEscape(testPageURL), &stubExtractor{info: &types.InfoDict{ID: "x"}}, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, mux := newTestHandlers(tt.e)
			w := doGet(mux, tt.target)
			assert.Equal(t, tt.status, w.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestHandlers_IndexAndInfo(t *testing.T) {
	_, mux := newTestHandlers(&stubExtractor{})

	w := doGet(mux, "/")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"service":"ertflix-extract"`)

	w = doGet(mux, "/info")
	require.Equal(t, http.StatusOK, w.Code)
	var info map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	assert.Equal(t, appctx.Version, info["version"])
	assert.Equal(t, "http://localhost:7860", info["base_url"])
	assert.Equal(t, []any{"ertgr"}, info["extractors"])

	w = doGet(mux, "/nope")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandlers_writeError(t *testing.T) {
	h, _ := newTestHandlers(&stubExtractor{})

	w := httptest.NewRecorder()
	h.writeError(w, http.StatusBadRequest, "missing parameter")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"missing parameter"}`, w.Body.String())
}
