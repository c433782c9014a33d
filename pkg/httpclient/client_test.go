package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"ertflix-extract/pkg/config"
	"ertflix-extract/pkg/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHeaderParams(t *testing.T) {
	tests := []struct {
		name     string
		query    url.Values
		expected map[string]string
	}{
		{
			name:     "empty query",
			query:    url.Values{},
			expected: map[string]string{},
		},
		{
			name: "simple header",
			query: url.Values{
				"h_Referer": []string{"https://www.ertflix.gr/"},
			},
			expected: map[string]string{
				"Referer": "https://www.ertflix.gr/",
			},
		},
		{
			name: "underscore to hyphen conversion",
			query: url.Values{
				"h_User_Agent": []string{"Mozilla/5.0"},
			},
			expected: map[string]string{
				"User-Agent": "Mozilla/5.0",
			},
		},
		{
			name: "ignores non-header params",
			query: url.Values{
				"url":          []string{"https://www.ertflix.gr/archeio/froytopia-s1-ep2/"},
				"h_Referer":    []string{"https://www.ertflix.gr/"},
				"force":        []string{"true"},
				"api_password": []string{"secret"},
			},
			expected: map[string]string{
				"Referer": "https://www.ertflix.gr/",
			},
		},
		{
			name: "only first value used",
			query: url.Values{
				"h_Multi": []string{"first", "second"},
			},
			expected: map[string]string{
				"Multi": "first",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseHeaderParams(tt.query))
		})
	}
}

func TestGetClientForURL(t *testing.T) {
	log := logging.Discard()

	tests := []struct {
		name          string
		cfg           *config.Config
		targetURL     string
		expectDefault bool
		expectUTLS    bool
	}{
		{
			name: "uses global proxy when no transport routes match",
			cfg: &config.Config{
				GlobalProxies: []string{"socks5://proxy.example.com:1080"},
			},
			targetURL: "https://www.ertflix.gr/archeio/x/",
		},
		{
			name: "uses transport route when URL matches",
			cfg: &config.Config{
				GlobalProxies: []string{"socks5://global-proxy.example.com:1080"},
				TransportRoutes: []config.TransportRoute{
					{URLPattern: "ertflix.gr", Proxy: "socks5://gr-proxy.example.com:1080"},
				},
			},
			targetURL: "https://www.ertflix.gr/archeio/x/",
		},
		{
			name:          "uses default client when no proxy configured",
			cfg:           &config.Config{},
			targetURL:     "https://cdn.example.com/video.m3u8",
			expectDefault: true,
		},
		{
			name: "direct route bypasses global proxy",
			cfg: &config.Config{
				GlobalProxies:   []string{"socks5://global-proxy.example.com:1080"},
				TransportRoutes: []config.TransportRoute{{URLPattern: "cdn.example.com", Direct: true}},
			},
			targetURL:     "https://cdn.example.com/video.m3u8",
			expectDefault: true,
		},
		{
			name:       "utls domain wins over routes",
			cfg:        &config.Config{UTLSDomains: []string{"ERTFLIX.gr"}},
			targetURL:  "https://www.ertflix.gr/archeio/x/",
			expectUTLS: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := New(tt.cfg, log)
			httpClient := client.getClientForURL(tt.targetURL)

			assert.Equal(t, tt.expectDefault, httpClient == client.defaultClient)
			assert.Equal(t, tt.expectUTLS, httpClient == client.utlsClient)
		})
	}
}

func TestGetClientForURL_ProxyClientIsCached(t *testing.T) {
	client := New(&config.Config{GlobalProxies: []string{"http://proxy.example.com:8080"}}, logging.Discard())

	first := client.getClientForURL("https://a.example/")
	second := client.getClientForURL("https://b.example/")

	assert.Same(t, first, second)
	assert.Len(t, client.proxyClients, 1)
}

func TestDo_SetsUserAgent(t *testing.T) {
	var gotUA, gotReferer string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotReferer = r.Header.Get("Referer")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := New(&config.Config{UserAgent: "ertflix-test/1.0"}, logging.Discard())

	resp, err := client.Get(context.Background(), server.URL, map[string]string{"Referer": "https://www.ertflix.gr/"})
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "ertflix-test/1.0", gotUA)
	assert.Equal(t, "https://www.ertflix.gr/", gotReferer)
	assert.Equal(t, "ertflix-test/1.0", client.UserAgent())
}

func TestDo_RateLimiterHonoursContext(t *testing.T) {
	client := New(&config.Config{RateLimitRPS: 0.001}, logging.Discard())
	require.NotNil(t, client.limiter)

	// Drain the single burst token.
	require.True(t, client.limiter.Allow())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Get(ctx, "http://127.0.0.1:1/", nil)
	assert.Error(t, err)
}

func TestHostMatches(t *testing.T) {
	assert.True(t, hostMatches("www.ertflix.gr", "ertflix.gr"))
	assert.True(t, hostMatches("ertflix.gr", ".ERTFLIX.gr"))
	assert.False(t, hostMatches("notertflix.gr", "ertflix.gr"))
	assert.False(t, hostMatches("ertflix.gr", ""))
}

func TestNewTransport(t *testing.T) {
	tr, err := newTransport("", true, time.Second)
	require.NoError(t, err)
	assert.Nil(t, tr.Proxy)
	assert.True(t, tr.TLSClientConfig.InsecureSkipVerify)

	tr, err = newTransport("http://proxy.example.com:8080", false, time.Second)
	require.NoError(t, err)
	assert.NotNil(t, tr.Proxy)

	_, err = newTransport("socks5://proxy.example.com:1080", false, time.Second)
	assert.NoError(t, err)

	_, err = newTransport("ftp://proxy.example.com", false, time.Second)
	assert.ErrorContains(t, err, "unsupported proxy scheme")
}

func TestGetClientForURL_BadProxyFallsBackToDirect(t *testing.T) {
	client := New(&config.Config{GlobalProxies: []string{"ftp://proxy.example.com"}}, logging.Discard())

	assert.Same(t, client.defaultClient, client.getClientForURL("https://www.ertflix.gr/"))
	assert.Empty(t, client.proxyClients)
}
