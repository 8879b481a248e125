package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"CatalogSync/internal/domain"
	"CatalogSync/internal/metrics"
	"CatalogSync/internal/ports"
)

const maxBody = 32 << 20

// Config tunes remote retrieval.
type Config struct {
	Timeout   time.Duration
	Retries   int
	Backoff   time.Duration
	RPS       float64
	Burst     int
	UserAgent string
}

// Client retrieves remote documents with a per-attempt timeout, bounded
// retries and a shared rate limit.
type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

var _ ports.Fetcher = (*Client)(nil)

// NewClient creates a reusable HTTP client.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 500 * time.Millisecond
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	limit := rate.Inf
	if cfg.RPS > 0 {
		limit = rate.Limit(cfg.RPS)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:     cfg,
		http:    &http.Client{},
		limiter: rate.NewLimiter(limit, cfg.Burst),
		logger:  logger.With("component", "fetch"),
	}
}

// Fetch performs req, retrying timeouts, network failures, 429 and 5xx.
func (c *Client) Fetch(ctx context.Context, req ports.FetchRequest) (ports.FetchResponse, error) {
	var lastErr error
	for attempt := 0; attempt <= c.cfg.Retries; attempt++ {
		if attempt > 0 {
			wait := c.cfg.Backoff << (attempt - 1)
			select {
			case <-ctx.Done():
				return ports.FetchResponse{}, classify(req.URL, ctx.Err())
			case <-time.After(wait):
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return ports.FetchResponse{}, classify(req.URL, err)
		}

		resp, err := c.once(ctx, req)
		var fe *domain.FetchError
		if errors.As(err, &fe) {
			metrics.RecordFetch(fe.Status, err)
		} else {
			metrics.RecordFetch(resp.Status, err)
		}
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !errors.As(err, &fe) || !fe.Retryable() || ctx.Err() != nil {
			return ports.FetchResponse{}, err
		}
		c.logger.Debug("fetch attempt failed", "url", req.URL, "attempt", attempt+1, "error", err)
	}
	return ports.FetchResponse{}, lastErr
}

func (c *Client) once(ctx context.Context, r ports.FetchRequest) (ports.FetchResponse, error) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = c.cfg.Timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	method := r.Method
	if method == "" {
		method = http.MethodGet
	}
	req, err := http.NewRequestWithContext(ctx, method, r.URL, nil)
	if err != nil {
		return ports.FetchResponse{}, fmt.Errorf("%w: %v", domain.ErrInvalidLocator, err)
	}
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}
	for k, v := range r.Headers {
		req.Header.Set(k, v)
	}
	ApplyAuth(req, r.Auth)

	resp, err := c.http.Do(req)
	if err != nil {
		return ports.FetchResponse{}, classify(r.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return ports.FetchResponse{}, &domain.FetchError{Kind: domain.FetchStatus, URL: r.URL, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return ports.FetchResponse{}, classify(r.URL, err)
	}

	return ports.FetchResponse{Status: resp.StatusCode, Body: body, URL: resp.Request.URL.String()}, nil
}

// ApplyAuth sets credentials on an outgoing request.
func ApplyAuth(req *http.Request, auth domain.Credentials) {
	switch auth.Mode {
	case domain.AuthBearer:
		if auth.Token != "" {
			req.Header.Set("Authorization", "Bearer "+auth.Token)
		}
	case domain.AuthAPIKey:
		header := auth.Header
		if header == "" {
			header = "X-API-Key"
		}
		if auth.Token != "" {
			req.Header.Set(header, auth.Token)
		}
	case domain.AuthBasic:
		req.SetBasicAuth(auth.Username, auth.Password)
	}
}

func classify(url string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &domain.FetchError{Kind: domain.FetchTimeout, URL: url, Err: err}
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return &domain.FetchError{Kind: domain.FetchTimeout, URL: url, Err: err}
	}
	return &domain.FetchError{Kind: domain.FetchNetwork, URL: url, Err: err}
}
