// Package shortener talks to a third-party URL shortening service of the
// "GET {endpoint}?url={long}" kind (tinyurl, is.gd, v.gd and friends).
package shortener

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"
)

// DefaultEndpoint is used when no endpoint is configured.
const DefaultEndpoint = "https://tinyurl.com/api-create.php"

// maxBody caps the upstream response size; larger bodies are rejected.
const maxBody = 64 << 10

// ErrUpstream is returned when the shortening service cannot be reached or
// answers with a server error.
var ErrUpstream = errors.New("shortener: upstream failure")

// Response is the upstream answer, relayed verbatim to the caller.
type Response struct {
	Status      int
	ContentType string
	Body        []byte
}

// Client calls the shortening service. There are no retries.
type Client struct {
	endpoint string
	http     *http.Client
}

// Options configures a Client.
type Options struct {
	Endpoint string
	Timeout  time.Duration
	// Transport overrides the HTTP transport, mostly for tests.
	Transport http.RoundTripper
}

// New builds a Client with dial, TLS and header timeouts.
func New(opts Options) (*Client, error) {
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultEndpoint
	}
	u, err := url.Parse(opts.Endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("shortener: invalid endpoint %q", opts.Endpoint)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	transport := opts.Transport
	if transport == nil {
		transport = &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           (&net.Dialer{Timeout: 5 * time.Second}).DialContext,
			TLSHandshakeTimeout:   5 * time.Second,
			ResponseHeaderTimeout: opts.Timeout,
		}
	}
	return &Client{
		endpoint: opts.Endpoint,
		http:     &http.Client{Transport: transport, Timeout: opts.Timeout},
	}, nil
}

// Shorten asks the service to shorten long. Any upstream status below 500
// is returned as a Response; transport failures, 5xx answers and bodies
// larger than 64 KiB wrap ErrUpstream.
func (c *Client) Shorten(ctx context.Context, long string) (Response, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	q := u.Query()
	q.Set("url", long)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Response{}, fmt.Errorf("%w: new request: %v", ErrUpstream, err)
	}
	req.Header.Set("Accept", "text/plain, application/json;q=0.9, */*;q=0.5")
	resp, err := c.http.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody+1))
	if err != nil {
		return Response{}, fmt.Errorf("%w: read body: %v", ErrUpstream, err)
	}
	if len(body) > maxBody {
		return Response{}, fmt.Errorf("%w: response body over %d bytes", ErrUpstream, maxBody)
	}
	if resp.StatusCode >= 500 {
		return Response{}, fmt.Errorf("%w: http status %s", ErrUpstream, resp.Status)
	}
	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = "text/plain; charset=utf-8"
	}
	return Response{Status: resp.StatusCode, ContentType: ct, Body: body}, nil
}
