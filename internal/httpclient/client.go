// Package httpclient is the JSON-over-HTTP transport shared by the
// OpenAI-compatible embedding and chat clients. It owns retry, backoff and
// client-side rate limiting so the pipeline core never retries.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout    = 60 * time.Second
	defaultMaxRetries = 5
)

// Options configures a Client. Zero values select defaults; a zero
// RequestsPerSecond disables rate limiting.
type Options struct {
	Timeout           time.Duration
	MaxRetries        int
	RequestsPerSecond float64
}

// Client posts JSON and decodes JSON replies.
type Client struct {
	http       *http.Client
	limiter    *rate.Limiter
	maxRetries int
	logger     *zap.Logger
	sleep      func(ctx context.Context, d time.Duration) error
}

func New(opts Options, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	retries := opts.MaxRetries
	if retries < 0 {
		retries = 0
	} else if retries == 0 {
		retries = defaultMaxRetries
	}
	c := &Client{
		http:       &http.Client{Timeout: timeout},
		maxRetries: retries,
		logger:     logger,
		sleep:      sleepCtx,
	}
	if opts.RequestsPerSecond > 0 {
		burst := int(opts.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}
	return c
}

// PostJSON sends body to url and decodes the reply into out. Network errors,
// 429 and 5xx replies are retried with backoff, honouring Retry-After.
// Other non-2xx replies fail immediately with a *StatusError.
func (c *Client) PostJSON(ctx context.Context, url string, headers map[string]string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			if err := c.sleep(ctx, c.backoff(attempt-1, lastErr)); err != nil {
				return err
			}
		}
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return err
			}
		}

		payload, err := c.do(ctx, url, headers, data)
		if err == nil {
			if out == nil {
				return nil
			}
			if err := json.Unmarshal(payload, out); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
			return nil
		}
		lastErr = err
		if ctx.Err() != nil || !retryable(err) {
			break
		}
		c.logger.Debug("retrying request",
			zap.String("url", url),
			zap.Int("attempt", attempt+1),
			zap.String("error_type", string(ClassifyError(err))),
			zap.Error(err))
	}
	c.logger.Warn("request failed",
		zap.String("url", url),
		zap.String("error_type", string(ClassifyError(lastErr))),
		zap.Error(lastErr))
	return lastErr
}

func (c *Client) do(ctx context.Context, url string, headers map[string]string, data []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &transportError{err: err}
	}
	payload, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, &StatusError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       truncate(string(payload), 512),
			retryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}
	if err != nil {
		return nil, &transportError{err: err}
	}
	return payload, nil
}

func (c *Client) backoff(attempt int, err error) time.Duration {
	var se *StatusError
	if errors.As(err, &se) && se.retryAfter > 0 {
		return se.retryAfter
	}
	return retryDelay(attempt)
}

func retryDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	base := 200 * time.Millisecond
	// exponential backoff capped at 5s
	d := base << attempt
	if d > 5*time.Second || d <= 0 {
		d = 5 * time.Second
	}
	return d
}

func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
