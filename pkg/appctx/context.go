// Package appctx provides the application context that holds all runtime dependencies.
package appctx

import (
	"strings"

	"ertflix-extract/pkg/config"
	"ertflix-extract/pkg/logging"
	"ertflix-extract/pkg/services"
)

// Version is reported by the API.
const Version = "1.0.0"

// Context holds all application runtime dependencies.
// Pass this single struct to components instead of individual parameters.
type Context struct {
	Config         *config.Config
	Log            *logging.Logger
	ExtractService *services.ExtractService
	BaseURL        string
}

// New creates a new application context.
func New(cfg *config.Config, log *logging.Logger) *Context {
	return &Context{
		Config:  cfg,
		Log:     log,
		BaseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
	}
}

// WithExtractService sets the extract service.
func (c *Context) WithExtractService(s *services.ExtractService) *Context {
	c.ExtractService = s
	return c
}
