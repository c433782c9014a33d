package httpclient

import (
	"bufio"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	utls "github.com/refraction-networking/utls"
	"golang.org/x/net/http2"
	"golang.org/x/net/proxy"
)

var dialer = &net.Dialer{
	Timeout:   30 * time.Second,
	KeepAlive: 60 * time.Second,
}

// dialTCP4 keeps outbound connections on IPv4; some CDNs publish broken AAAA records.
func dialTCP4(ctx context.Context, network, addr string) (net.Conn, error) {
	if network == "tcp" {
		network = "tcp4"
	}
	return dialer.DialContext(ctx, network, addr)
}

// newTransport builds a transport that goes through proxyURL ("" for direct).
// Supported proxy schemes are http, https, socks5 and socks5h.
func newTransport(proxyURL string, insecure bool, responseTimeout time.Duration) (*http.Transport, error) {
	t := &http.Transport{
		DialContext:           dialTCP4,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
		ResponseHeaderTimeout: responseTimeout,
	}
	if insecure {
		t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	if proxyURL == "" {
		return t, nil
	}

	u, err := url.Parse(proxyURL)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy URL %q: %w", proxyURL, err)
	}
	switch u.Scheme {
	case "http", "https":
		t.Proxy = http.ProxyURL(u)
	case "socks5", "socks5h":
		d, err := proxy.FromURL(u, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("socks proxy %q: %w", proxyURL, err)
		}
		cd, ok := d.(proxy.ContextDialer)
		if !ok {
			return nil, fmt.Errorf("socks proxy %q: dialer has no context support", proxyURL)
		}
		t.DialContext = cd.DialContext
	default:
		return nil, fmt.Errorf("unsupported proxy scheme %q", u.Scheme)
	}
	return t, nil
}

// utlsTransport performs the TLS handshake with a Chrome ClientHello so that
// fingerprinting CDNs treat requests like a browser. ALPN decides between
// HTTP/2 and HTTP/1.1. Plain http requests use the default transport.
type utlsTransport struct {
	hello utls.ClientHelloID
	h2    *http2.Transport
}

func newUTLSTransport() *utlsTransport {
	return &utlsTransport{
		hello: utls.HelloChrome_120,
		h2:    &http2.Transport{},
	}
}

func (t *utlsTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.URL.Scheme != "https" {
		return http.DefaultTransport.RoundTrip(req)
	}

	host := req.URL.Hostname()
	port := req.URL.Port()
	if port == "" {
		port = "443"
	}

	raw, err := dialTCP4(req.Context(), "tcp", net.JoinHostPort(host, port))
	if err != nil {
		return nil, err
	}

	conn := utls.UClient(raw, &utls.Config{ServerName: host}, t.hello)
	if err := conn.HandshakeContext(req.Context()); err != nil {
		raw.Close()
		return nil, fmt.Errorf("utls handshake with %s: %w", host, err)
	}

	if conn.ConnectionState().NegotiatedProtocol == http2.NextProtoTLS {
		cc, err := t.h2.NewClientConn(conn)
		if err != nil {
			conn.Close()
			return nil, err
		}
		return cc.RoundTrip(req)
	}
	return roundTripHTTP1(conn, req)
}

// roundTripHTTP1 sends a single request on conn. The connection is closed
// together with the response body.
func roundTripHTTP1(conn net.Conn, req *http.Request) (*http.Response, error) {
	if err := req.Write(conn); err != nil {
		conn.Close()
		return nil, err
	}
	resp, err := http.ReadResponse(bufio.NewReader(conn), req)
	if err != nil {
		conn.Close()
		return nil, err
	}
	resp.Body = &bodyWithConn{ReadCloser: resp.Body, conn: conn}
	return resp, nil
}

type bodyWithConn struct {
	io.ReadCloser
	conn net.Conn
}

func (b *bodyWithConn) Close() error {
	err := b.ReadCloser.Close()
	if cerr := b.conn.Close(); err == nil {
		err = cerr
	}
	return err
}

// hostMatches reports whether host equals domain or is a subdomain of it.
func hostMatches(host, domain string) bool {
	host = strings.ToLower(host)
	domain = strings.ToLower(strings.TrimPrefix(domain, "."))
	return domain != "" && (host == domain || strings.HasSuffix(host, "."+domain))
}
