// Package app provides the main application setup and dependency injection.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"ertflix-extract/pkg/appctx"
	"ertflix-extract/pkg/cache"
	"ertflix-extract/pkg/config"
	"ertflix-extract/pkg/extractors"
	"ertflix-extract/pkg/flaresolverr"
	"ertflix-extract/pkg/handlers/api"
	"ertflix-extract/pkg/httpclient"
	"ertflix-extract/pkg/interfaces"
	"ertflix-extract/pkg/logging"
	"ertflix-extract/pkg/manifest"
	"ertflix-extract/pkg/registry"
	"ertflix-extract/pkg/server"
	"ertflix-extract/pkg/services"
	"ertflix-extract/pkg/types"
)

// App is the main application container.
type App struct {
	Ctx          *appctx.Context
	Server       *server.Server
	HTTPClient   *httpclient.Client
	ExtractorReg *registry.ExtractorRegistry
	PageCache    *cache.PageCache
}

// New creates and initializes the application from the environment.
func New() (*App, error) {
	cfg := config.Load()
	log := logging.New(cfg.LogLevel, cfg.LogJSON, os.Stderr)
	return NewWithConfig(cfg, log)
}

// NewWithConfig creates and initializes the application.
func NewWithConfig(cfg *config.Config, log *logging.Logger) (*App, error) {
	log.Info("initializing ertflix-extract", "port", cfg.Port, "log_level", cfg.LogLevel)

	ctx := appctx.New(cfg, log)
	httpClient := httpclient.New(cfg, log)

	var pageCache *cache.PageCache
	if cfg.CachePath != "" {
		var err error
		pageCache, err = cache.Open(cfg.CachePath, cfg.CacheTTL, log)
		if err != nil {
			return nil, fmt.Errorf("failed to open page cache: %w", err)
		}
		if n, err := pageCache.Purge(context.Background()); err != nil {
			log.Warn("failed to purge page cache", "error", err)
		} else if n > 0 {
			log.Info("purged expired pages", "count", n)
		}
		log.Info("page cache enabled", "path", cfg.CachePath, "ttl", cfg.CacheTTL)
	}

	var flareClient *flaresolverr.Client
	if cfg.FlareSolverrURL != "" {
		flareClient = flaresolverr.NewClient(cfg.FlareSolverrURL, cfg.FlareSolverrTimeout, log)
		log.Info("FlareSolverr client enabled", "url", cfg.FlareSolverrURL)
	}

	var resolver interfaces.FormatResolver
	if cfg.ResolveFormats {
		resolver = manifest.NewHLSResolver(httpClient, log)
	}

	extractorReg := registry.NewExtractorRegistry()
	registerExtractors(extractorReg, httpClient, log, flareClient, pageCache, resolver)

	ctx.WithExtractService(services.NewExtractService(log, extractorReg))

	srv := server.New(cfg, log)
	api.NewHandlers(ctx).RegisterRoutes(srv.Router())

	return &App{
		Ctx:          ctx,
		Server:       srv,
		HTTPClient:   httpClient,
		ExtractorReg: extractorReg,
		PageCache:    pageCache,
	}, nil
}

// Run starts the API server and blocks until it stops.
func (a *App) Run(ctx context.Context) error {
	return a.Server.Start(ctx)
}

// ExtractTo extracts each URL and writes one indented JSON record per URL
// to w. It returns the number of failed extractions.
func (a *App) ExtractTo(ctx context.Context, w io.Writer, urls []string) int {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)

	failed := 0
	for _, u := range urls {
		info, err := a.Ctx.ExtractService.Extract(ctx, u, types.ExtractOptions{})
		if err != nil {
			a.Ctx.Log.Error("extraction failed", "url", u, "error", err)
			failed++
			continue
		}
		if err := enc.Encode(info); err != nil {
			a.Ctx.Log.Error("failed to write record", "url", u, "error", err)
			failed++
		}
	}
	return failed
}

// Shutdown releases application resources.
func (a *App) Shutdown() {
	a.Ctx.Log.Debug("shutting down application")

	if err := a.ExtractorReg.Close(); err != nil {
		a.Ctx.Log.Warn("failed to close extractors", "error", err)
	}
	if a.PageCache != nil {
		if err := a.PageCache.Close(); err != nil {
			a.Ctx.Log.Warn("failed to close page cache", "error", err)
		}
	}
}

// registerExtractors registers all site extractors.
// Add new extractors here by:
// 1. Creating a new extractor in pkg/extractors/
// 2. Registering it below
func registerExtractors(
	reg *registry.ExtractorRegistry,
	client *httpclient.Client,
	log *logging.Logger,
	flareClient *flaresolverr.Client,
	pageCache *cache.PageCache,
	resolver interfaces.FormatResolver,
) {
	base := extractors.NewBaseExtractor(client, log).WithFlareSolverr(flareClient)
	if pageCache != nil {
		base.WithCache(pageCache)
	}

	reg.Register(extractors.NewERTGRExtractor(base, resolver, log))

	log.Info("registered extractors", "names", reg.Names())
}
