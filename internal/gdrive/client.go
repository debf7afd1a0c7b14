package gdrive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"
)

// DefaultBaseURL is the Drive v3 REST root.
const DefaultBaseURL = "https://www.googleapis.com/drive/v3"

const (
	baseBackoff      = 1 * time.Second
	maxBackoff       = 60 * time.Second
	defaultUserAgent = "drivegate/0.1"
)

// maxErrorBody caps how much of an error response is read into memory.
const maxErrorBody = 64 * 1024

// TokenSource provides OAuth2 bearer tokens. Defined at the consumer
// (gdrive.Client) so tests can substitute a static token.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Client is an HTTP client for the Google Drive v3 API.
// It handles request construction, authentication, optional retry with
// exponential backoff, and error classification.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      TokenSource
	logger     *slog.Logger
	userAgent  string

	// maxRetries is zero by default: copy and download callers expect a
	// failing call to surface immediately.
	maxRetries int

	// sleepFunc is called to wait between retries. Tests override it.
	sleepFunc func(ctx context.Context, d time.Duration) error
}

// NewClient creates a Drive API client. baseURL is typically DefaultBaseURL.
func NewClient(baseURL string, httpClient *http.Client, token TokenSource, logger *slog.Logger, userAgent string) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		token:      token,
		logger:     logger,
		userAgent:  userAgent,
		sleepFunc:  timeSleep,
	}
}

// SetMaxRetries enables retry of network errors and retryable HTTP statuses.
// Only the request/response exchange is retried, never a streamed body.
func (c *Client) SetMaxRetries(n int) {
	if n < 0 {
		n = 0
	}

	c.maxRetries = n
}

// Do executes an authenticated request against the Drive API. The path is
// appended to the base URL. A non-nil payload is sent as JSON. Extra headers
// are copied onto the request. On a 2xx answer the caller owns the response
// body; anything else is returned as *UpstreamError.
func (c *Client) Do(ctx context.Context, method, path string, payload []byte, header http.Header) (*http.Response, error) {
	url := c.baseURL + path

	for attempt := 0; ; attempt++ {
		resp, err := c.doOnce(ctx, method, url, payload, header)
		if err == nil {
			c.logger.Debug("drive request",
				slog.String("method", method),
				slog.String("path", path),
				slog.Int("status", resp.StatusCode),
			)

			return resp, nil
		}

		var (
			upErr *UpstreamError
			wait  time.Duration
		)

		switch {
		case ctx.Err() != nil:
			return nil, fmt.Errorf("gdrive: %s %s: %w", method, path, ctx.Err())
		case errors.Is(err, ErrAuth):
			return nil, err
		case errors.As(err, &upErr):
			if !upErr.retryable() || attempt >= c.maxRetries {
				c.logger.Warn("drive request failed",
					slog.String("method", method),
					slog.String("path", path),
					slog.Int("status", upErr.StatusCode),
					slog.String("reason", upErr.Reason),
					slog.Int("attempts", attempt+1),
				)

				return nil, upErr
			}

			wait = upErr.RetryAfter
		default:
			if attempt >= c.maxRetries {
				return nil, fmt.Errorf("gdrive: %s %s: %w", method, path, err)
			}
		}

		if wait <= 0 {
			wait = backoff(attempt)
		}

		c.logger.Warn("retrying drive request",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("attempt", attempt+1),
			slog.Duration("wait", wait),
			slog.String("error", err.Error()),
		)

		if err := c.sleepFunc(ctx, wait); err != nil {
			return nil, fmt.Errorf("gdrive: %s %s: %w", method, path, err)
		}
	}
}

// doJSON sends in (if non-nil) as a JSON body and decodes the response into out.
func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var payload []byte

	if in != nil {
		var err error

		payload, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("gdrive: marshaling request: %w", err)
		}
	}

	resp, err := c.Do(ctx, method, path, payload, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("gdrive: decoding response: %w", err)
	}

	return nil
}

// doOnce sends one request. A non-2xx answer is consumed and returned as
// *UpstreamError.
func (c *Client) doOnce(ctx context.Context, method, url string, payload []byte, header http.Header) (*http.Response, error) {
	var body io.Reader = http.NoBody
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	tok, err := c.token.Token(ctx)
	if err != nil {
		return nil, err
	}

	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("User-Agent", c.userAgent)

	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		defer resp.Body.Close()
		return nil, newUpstreamError(resp)
	}

	return resp, nil
}

// backoff is the delay before retry attempt+1: exponential from
// baseBackoff, capped at maxBackoff, with the upper half jittered.
func backoff(attempt int) time.Duration {
	d := maxBackoff
	if attempt < 6 {
		d = min(baseBackoff<<attempt, maxBackoff)
	}

	return d/2 + rand.N(d/2+1) //nolint:gosec // jitter does not need crypto rand
}

// timeSleep waits for the given duration or until the context is canceled.
func timeSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
