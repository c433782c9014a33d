// Package httpclient provides the outbound HTTP client: per-URL proxy routes,
// browser TLS fingerprinting for selected hosts and an optional rate limit.
package httpclient

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"ertflix-extract/pkg/config"
	"ertflix-extract/pkg/logging"

	"golang.org/x/time/rate"
)

// Client routes requests to a direct, proxied or utls-backed http.Client.
type Client struct {
	defaultClient *http.Client
	utlsClient    *http.Client

	mu           sync.RWMutex
	proxyClients map[string]*http.Client

	routes        []config.TransportRoute
	globalProxies []string
	utlsDomains   []string
	userAgent     string
	timeout       time.Duration
	limiter       *rate.Limiter
	log           *logging.Logger
}

// New creates a new HTTP client with the given configuration.
func New(cfg *config.Config, log *logging.Logger) *Client {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = config.DefaultUserAgent
	}

	c := &Client{
		proxyClients:  make(map[string]*http.Client),
		routes:        cfg.TransportRoutes,
		globalProxies: cfg.GlobalProxies,
		utlsDomains:   cfg.UTLSDomains,
		userAgent:     userAgent,
		timeout:       timeout,
		log:           log.WithComponent("httpclient"),
	}

	if cfg.RateLimitRPS > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), max(1, int(cfg.RateLimitRPS)))
	}

	direct, _ := newTransport("", false, timeout)
	c.defaultClient = &http.Client{Transport: direct, Timeout: timeout}
	c.utlsClient = &http.Client{Transport: newUTLSTransport(), Timeout: timeout}
	return c
}

// UserAgent returns the User-Agent applied to requests that carry none.
func (c *Client) UserAgent() string {
	return c.userAgent
}

// Do waits for the rate limiter, fills in the User-Agent if missing and sends
// the request through the client selected for its URL.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return nil, err
		}
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	return c.getClientForURL(req.URL.String()).Do(req)
}

// Get issues a GET request with the given headers.
func (c *Client) Get(ctx context.Context, targetURL string, headers map[string]string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, err
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	return c.Do(req)
}

// getClientForURL picks the client for targetURL. utls hosts win, then the
// first matching transport route, then the first global proxy.
func (c *Client) getClientForURL(targetURL string) *http.Client {
	if c.needsUTLS(targetURL) {
		c.log.Debug("using utls client", "url", targetURL)
		return c.utlsClient
	}

	for _, route := range c.routes {
		if !strings.Contains(targetURL, route.URLPattern) {
			continue
		}
		c.log.Debug("matched transport route", "url", targetURL, "pattern", route.URLPattern, "direct", route.Direct)
		switch {
		case route.Direct || route.Proxy == "":
			if route.DisableSSL {
				return c.clientFor("", true)
			}
			if route.Direct {
				return c.defaultClient
			}
		default:
			return c.clientFor(route.Proxy, route.DisableSSL)
		}
	}

	if len(c.globalProxies) > 0 {
		return c.clientFor(c.globalProxies[0], false)
	}
	return c.defaultClient
}

func (c *Client) needsUTLS(targetURL string) bool {
	if len(c.utlsDomains) == 0 {
		return false
	}
	u, err := url.Parse(targetURL)
	if err != nil {
		return false
	}
	for _, domain := range c.utlsDomains {
		if hostMatches(u.Hostname(), domain) {
			return true
		}
	}
	return false
}

// clientFor returns the cached client for a proxy/TLS combination, creating
// it on first use. Unusable proxies fall back to the direct client.
func (c *Client) clientFor(proxyURL string, insecure bool) *http.Client {
	key := proxyURL
	if insecure {
		key += "#insecure"
	}

	c.mu.RLock()
	client, ok := c.proxyClients[key]
	c.mu.RUnlock()
	if ok {
		return client
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if client, ok := c.proxyClients[key]; ok {
		return client
	}

	transport, err := newTransport(proxyURL, insecure, c.timeout)
	if err != nil {
		c.log.Error("cannot use proxy, connecting directly", "proxy", proxyURL, "error", err)
		return c.defaultClient
	}
	client = &http.Client{Transport: transport, Timeout: c.timeout}
	c.proxyClients[key] = client
	c.log.Debug("created proxy client", "proxy", proxyURL, "insecure", insecure)
	return client
}

// ParseHeaderParams extracts headers from h_-prefixed query parameters,
// turning underscores into hyphens (h_User_Agent -> User-Agent).
func ParseHeaderParams(query url.Values) map[string]string {
	headers := make(map[string]string)
	for key, values := range query {
		if name, ok := strings.CutPrefix(key, "h_"); ok && name != "" && len(values) > 0 {
			headers[strings.ReplaceAll(name, "_", "-")] = values[0]
		}
	}
	return headers
}
