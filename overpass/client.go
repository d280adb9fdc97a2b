package overpass

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/cenkalti/backoff.v1"

	"osm-route-server/routing"
)

const (
	DEFAULT_ENDPOINT     = "https://overpass-api.de/api/interpreter"
	DEFAULT_USER_AGENT   = "osm-route-server/1.0"
	DEFAULT_TIMEOUT      = 60 * time.Second
	DEFAULT_RETRY_WINDOW = 30 * time.Second
	DEFAULT_RETRY_DELAY  = 500 * time.Millisecond
	MAX_RESPONSE_BYTES   = 256 << 20
)

var ErrResponseTooLarge = errors.New("overpass response too large")

// Source returns raw OSM element JSON covering a bounding box.
type Source interface {
	Fetch(ctx context.Context, bbox routing.BoundingBox) ([]byte, error)
}

// StatusError is returned for HTTP statuses that are not worth retrying.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("overpass returned %d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.Body)
}

type Options struct {
	Endpoint         string
	UserAgent        string
	Timeout          time.Duration
	RetryWindow      time.Duration
	RetryDelay       time.Duration // first backoff interval
	MaxResponseBytes int64
}

type Client struct {
	endpoint         string
	userAgent        string
	retryWindow      time.Duration
	retryDelay       time.Duration
	maxResponseBytes int64
	httpClient       *http.Client
	logger           zerolog.Logger
}

func NewClient(opts Options, logger zerolog.Logger) *Client {
	if opts.Endpoint == "" {
		opts.Endpoint = DEFAULT_ENDPOINT
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DEFAULT_USER_AGENT
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DEFAULT_TIMEOUT
	}
	// a zero window would make the backoff retry forever
	if opts.RetryWindow <= 0 {
		opts.RetryWindow = DEFAULT_RETRY_WINDOW
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = DEFAULT_RETRY_DELAY
	}
	if opts.MaxResponseBytes <= 0 {
		opts.MaxResponseBytes = MAX_RESPONSE_BYTES
	}
	return &Client{
		endpoint:         opts.Endpoint,
		userAgent:        opts.UserAgent,
		retryWindow:      opts.RetryWindow,
		retryDelay:       opts.RetryDelay,
		maxResponseBytes: opts.MaxResponseBytes,
		httpClient:       &http.Client{Timeout: opts.Timeout},
		logger:           logger.With().Str("component", "overpass").Logger(),
	}
}

func (c *Client) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retryDelay
	b.MaxInterval = 10 * c.retryDelay
	b.MaxElapsedTime = c.retryWindow
	b.Reset()
	return b
}

// Fetch posts the highway query for bbox. Rate limiting, server errors and
// transport failures are retried with exponential backoff until the retry
// window elapses or ctx is done.
func (c *Client) Fetch(ctx context.Context, bbox routing.BoundingBox) ([]byte, error) {
	query := BuildQuery(bbox)
	b := c.newBackOff()

	attempt := 0
	for {
		attempt++
		body, retry, err := c.do(ctx, query)
		if err == nil {
			c.logger.Debug().
				Str("bbox", bbox.Key()).
				Int("attempt", attempt).
				Int("bytes", len(body)).
				Msg("overpass fetch done")
			return body, nil
		}
		if !retry {
			return nil, err
		}

		wait := b.NextBackOff()
		if wait == backoff.Stop {
			return nil, fmt.Errorf("giving up after %d attempts: %w", attempt, err)
		}
		c.logger.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", wait).Msg("overpass fetch failed")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func (c *Client) do(ctx context.Context, query string) (body []byte, retry bool, err error) {
	form := url.Values{"data": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		return nil, true, fmt.Errorf("overpass request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err = io.ReadAll(io.LimitReader(resp.Body, c.maxResponseBytes+1))
	if err != nil {
		return nil, true, fmt.Errorf("failed to read overpass response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		// a truncated body would otherwise surface later as invalid JSON
		if int64(len(body)) > c.maxResponseBytes {
			return nil, false, fmt.Errorf("%w: more than %d bytes", ErrResponseTooLarge, c.maxResponseBytes)
		}
		return body, false, nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, true, &StatusError{StatusCode: resp.StatusCode, Body: snippet(body)}
	default:
		return nil, false, &StatusError{StatusCode: resp.StatusCode, Body: snippet(body)}
	}
}

func snippet(body []byte) string {
	const max = 200
	s := strings.TrimSpace(string(body))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}

// FileSource serves the same OSM extract for every bounding box.
type FileSource struct {
	Path string
}

func (f FileSource) Fetch(ctx context.Context, _ routing.BoundingBox) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read offline extract: %w", err)
	}
	return data, nil
}
