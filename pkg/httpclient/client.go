// Package httpclient holds the outbound HTTP client shared by every store
// scraper. The underlying connection pool is created on first use and released
// by Close when the process shuts down.
package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	maxBodyBytes = 10 * 1024 * 1024
)

// StatusError is returned for upstream 5xx responses, which count as a failure
// of the attempt. Lower statuses are handed back to the caller for parsing.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream %s returned %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// IsServerError reports whether err carries an upstream 5xx status.
func IsServerError(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode >= 500
}

type Request struct {
	URL     string
	Params  url.Values
	Headers map[string]string
	// Timeout bounds this call. Zero uses the client default.
	Timeout time.Duration
}

func (r Request) target() (string, error) {
	u, err := url.Parse(r.URL)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", r.URL, err)
	}
	if len(r.Params) > 0 {
		q := u.Query()
		for k, vs := range r.Params {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

type Response struct {
	URL        string
	StatusCode int
	Body       []byte
}

type Client struct {
	mu             sync.Mutex
	http           *http.Client
	defaultTimeout time.Duration
}

func New(defaultTimeout time.Duration) *Client {
	if defaultTimeout <= 0 {
		defaultTimeout = 10 * time.Second
	}
	return &Client{defaultTimeout: defaultTimeout}
}

// HTTP returns the pooled *http.Client, creating it on first call.
func (c *Client) HTTP() *http.Client {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.http == nil {
		c.http = &http.Client{
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				MaxIdleConns:          100,
				MaxIdleConnsPerHost:   10,
				IdleConnTimeout:       90 * time.Second,
				TLSHandshakeTimeout:   10 * time.Second,
				ExpectContinueTimeout: 1 * time.Second,
			},
		}
		logrus.WithField("component", "httpclient").Debug("Created shared HTTP client")
	}
	return c.http
}

// Close releases pooled connections. A later call re-creates the client.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.http == nil {
		return
	}
	c.http.CloseIdleConnections()
	c.http = nil
	logrus.WithField("component", "httpclient").Debug("Closed shared HTTP client")
}

func (c *Client) callTimeout(d time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return c.defaultTimeout
}

// Get performs a GET and reads the whole body. Transport errors, timeouts and
// 5xx statuses are returned as errors.
func (c *Client) Get(ctx context.Context, req Request) (*Response, error) {
	target, err := req.target()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.callTimeout(req.Timeout))
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build request %s: %w", target, err)
	}
	httpReq.Header.Set("User-Agent", UserAgent)
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.HTTP().Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, &StatusError{URL: target, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", target, err)
	}

	return &Response{URL: target, StatusCode: resp.StatusCode, Body: body}, nil
}
