package network

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/jgivc/rinupdate/internal/config"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout  = 30 * time.Second
	defaultInterval = time.Second
	maxBodySize     = 8 << 20
)

type HTTPError struct {
	StatusCode int
	URL        string
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s (URL: %s)", e.StatusCode, e.Message, e.URL)
}

type Response struct {
	URL         *url.URL // after redirects
	ContentType string
	Body        []byte
}

// Client keeps the session cookies and paces requests per host.
type Client struct {
	httpClient *http.Client
	userAgent  string

	mu              sync.Mutex
	limiters        map[string]*rate.Limiter
	perDomain       map[string]int
	defaultInterval time.Duration

	log *slog.Logger
}

func NewClient(cfg *config.NetworkConfig, log *slog.Logger) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("cannot create cookie jar: %w", err)
	}

	timeout := time.Duration(cfg.RequestTimeoutMillis) * time.Millisecond
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	interval := time.Duration(cfg.DefaultIntervalMillis) * time.Millisecond
	if interval <= 0 {
		interval = defaultInterval
	}

	return &Client{
		httpClient: &http.Client{
			Jar:     jar,
			Timeout: timeout,
		},
		userAgent:       cfg.UserAgent,
		limiters:        make(map[string]*rate.Limiter),
		perDomain:       cfg.PerDomainIntervalMillis,
		defaultInterval: interval,
		log:             log.With(slog.String("item", "NetworkClient")),
	}, nil
}

func (c *Client) Get(ctx context.Context, reqURL string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("cannot create GET request %s: %w", reqURL, err)
	}

	return c.do(req)
}

func (c *Client) PostForm(ctx context.Context, reqURL string, values url.Values) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, strings.NewReader(values.Encode()))
	if err != nil {
		return nil, fmt.Errorf("cannot create POST request %s: %w", reqURL, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return c.do(req)
}

func (c *Client) do(req *http.Request) (*Response, error) {
	if err := c.limiterFor(req.URL.Hostname()).Wait(req.Context()); err != nil {
		return nil, fmt.Errorf("cannot wait for rate limiter: %w", err)
	}

	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	c.log.Debug("Request", slog.String("method", req.Method), slog.String("url", req.URL.String()))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cannot send %s request %s: %w", req.Method, req.URL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &HTTPError{
			StatusCode: resp.StatusCode,
			URL:        req.URL.String(),
			Message:    http.StatusText(resp.StatusCode),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("cannot read response body: %w", err)
	}

	return &Response{
		URL:         resp.Request.URL,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

func (c *Client) limiterFor(host string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()

	if l, exists := c.limiters[host]; exists {
		return l
	}

	interval := c.defaultInterval
	if ms, ok := c.perDomain[host]; ok && ms > 0 {
		interval = time.Duration(ms) * time.Millisecond
	}

	l := rate.NewLimiter(rate.Every(interval), 1)
	c.limiters[host] = l

	return l
}
