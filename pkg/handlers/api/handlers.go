// Package api provides HTTP handlers for the extraction API.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"ertflix-extract/pkg/appctx"
	"ertflix-extract/pkg/httpclient"
	"ertflix-extract/pkg/logging"
	"ertflix-extract/pkg/middleware"
	"ertflix-extract/pkg/services"
	"ertflix-extract/pkg/types"
)

const serviceName = "ertflix-extract"

// Handlers contains all API handlers.
type Handlers struct {
	ctx *appctx.Context
	log *logging.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(ctx *appctx.Context) *Handlers {
	return &Handlers{
		ctx: ctx,
		log: ctx.Log.WithComponent("api"),
	}
}

// RegisterRoutes registers all API routes.
func (h *Handlers) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.handleIndex)
	mux.HandleFunc("GET /info", h.handleInfo)
	mux.HandleFunc("GET /favicon.ico", h.handleFavicon)

	mux.HandleFunc("GET /extractor", h.handleExtractor)
	mux.HandleFunc("GET /extractor/video", h.handleExtractor)
}

func (h *Handlers) handleIndex(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{
		"service":   serviceName,
		"version":   appctx.Version,
		"status":    "ok",
		"endpoints": []string{"/info", "/extractor/video?url=<page url>"},
	})
}

func (h *Handlers) handleInfo(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{
		"name":       serviceName,
		"version":    appctx.Version,
		"base_url":   h.ctx.BaseURL,
		"extractors": h.ctx.ExtractService.Extractors(),
	})
}

func (h *Handlers) handleFavicon(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

// handleExtractor extracts the page given by the url (or d) parameter.
// redirect_stream=true redirects to the best format instead of returning JSON.
func (h *Handlers) handleExtractor(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	urlStr := query.Get("url")
	if urlStr == "" {
		urlStr = query.Get("d")
	}
	if urlStr == "" {
		h.writeError(w, http.StatusBadRequest, "url parameter required")
		return
	}

	log := h.log.WithRequestID(r.Header.Get(middleware.RequestIDHeader)).WithURL(urlStr)
	log.Debug("extract request")

	opts := types.ExtractOptions{
		Headers:      httpclient.ParseHeaderParams(query),
		ForceRefresh: query.Get("force") == "true",
	}

	info, err := h.ctx.ExtractService.Extract(r.Context(), urlStr, opts)
	switch {
	case errors.Is(err, services.ErrUnsupportedURL):
		h.writeError(w, http.StatusNotFound, err.Error())
		return
	case err != nil:
		log.Error("extraction failed", "error", err)
		h.writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	if query.Get("redirect_stream") == "true" {
		best, ok := info.BestFormat()
		if !ok {
			h.writeError(w, http.StatusBadGateway, "no formats found")
			return
		}
		http.Redirect(w, r, best.URL, http.StatusFound)
		return
	}

	h.writeJSON(w, http.StatusOK, info)
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Warn("failed to write response", "error", err)
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
