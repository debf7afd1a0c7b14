package gdrive

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticToken string

func (t staticToken) Token(context.Context) (string, error) { return string(t), nil }

type failingToken struct{}

func (failingToken) Token(context.Context) (string, error) {
	return "", &AuthError{Err: errors.New("invalid_grant")}
}

// newTestClient points a Client at url and records retry waits instead of
// sleeping.
func newTestClient(t *testing.T, url string) *Client {
	t.Helper()

	c := NewClient(url, http.DefaultClient, staticToken("test-token"), slog.Default(), "test-agent")
	c.sleepFunc = func(context.Context, time.Duration) error { return nil }

	return c
}

// scripted answers successive requests with the given handlers, repeating
// the last one, and counts calls.
func scripted(t *testing.T, steps ...http.HandlerFunc) (*httptest.Server, *atomic.Int32) {
	t.Helper()

	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(calls.Add(1)) - 1
		steps[min(n, len(steps)-1)](w, r)
	}))
	t.Cleanup(srv.Close)

	return srv, &calls
}

func status(code int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(code)
		_, _ = io.WriteString(w, body)
	}
}

func TestDo_SendsAuthAndPayload(t *testing.T) {
	srv, _ := scripted(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "bytes=0-9", r.Header.Get("Range"))

		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, `{"a":1}`, string(body))

		_, _ = io.WriteString(w, `{"id":"ok"}`)
	})

	resp, err := newTestClient(t, srv.URL).Do(context.Background(), http.MethodPost, "/files",
		[]byte(`{"a":1}`), http.Header{"Range": {"bytes=0-9"}})
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, `{"id":"ok"}`, string(body))
}

func TestDo_Classification(t *testing.T) {
	tests := []struct {
		code     int
		body     string
		sentinel error
		message  string
		reason   string
	}{
		{400, "bad", ErrBadRequest, "bad", ""},
		{401, "", ErrUnauthorized, "Unauthorized", ""},
		{403, `{"error":{"message":"Insufficient permissions","errors":[{"reason":"insufficientFilePermissions"}]}}`,
			ErrForbidden, "Insufficient permissions", "insufficientFilePermissions"},
		{403, `{"error":{"message":"User Rate Limit Exceeded","errors":[{"reason":"userRateLimitExceeded"}]}}`,
			ErrThrottled, "User Rate Limit Exceeded", "userRateLimitExceeded"},
		{404, `{"error":{"code":404,"message":"File not found: abc."}}`, ErrNotFound, "File not found: abc.", ""},
		{409, "dup", ErrConflict, "dup", ""},
		{416, "", ErrRangeNotSatisfiable, "Requested Range Not Satisfiable", ""},
		{429, "slow down", ErrThrottled, "slow down", ""},
		{502, "upstream", ErrServerError, "upstream", ""},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.code)+"/"+tt.reason, func(t *testing.T) {
			srv, _ := scripted(t, status(tt.code, tt.body))

			_, err := newTestClient(t, srv.URL).Do(context.Background(), http.MethodGet, "/files/abc", nil, nil)
			require.ErrorIs(t, err, tt.sentinel)

			var upErr *UpstreamError
			require.ErrorAs(t, err, &upErr)
			assert.Equal(t, tt.code, upErr.StatusCode)
			assert.Equal(t, tt.message, upErr.Message)
			assert.Equal(t, tt.reason, upErr.Reason)
		})
	}
}

func TestUpstreamError_Format(t *testing.T) {
	e := &UpstreamError{StatusCode: 404, Message: "File not found: abc.", Err: ErrNotFound}
	assert.Equal(t, "gdrive: HTTP 404: File not found: abc.", e.Error())
}

func TestDo_Retry(t *testing.T) {
	rateLimited := `{"error":{"message":"Rate Limit Exceeded","errors":[{"reason":"rateLimitExceeded"}]}}`

	tests := []struct {
		name       string
		maxRetries int
		steps      []http.HandlerFunc
		wantCalls  int32
		wantErr    error
	}{
		{"off by default", 0, []http.HandlerFunc{status(503, "")}, 1, ErrServerError},
		{"recovers from 5xx", 3, []http.HandlerFunc{status(500, ""), status(502, ""), status(200, "")}, 3, nil},
		{"exhausted", 2, []http.HandlerFunc{status(504, "")}, 3, ErrServerError},
		{"rate-limit 403", 1, []http.HandlerFunc{status(403, rateLimited), status(200, "")}, 2, nil},
		{"plain 403 is final", 5, []http.HandlerFunc{status(403, "")}, 1, ErrForbidden},
		{"501 is final", 5, []http.HandlerFunc{status(501, "")}, 1, ErrServerError},
		{"404 is final", 5, []http.HandlerFunc{status(404, "")}, 1, ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, calls := scripted(t, tt.steps...)

			c := newTestClient(t, srv.URL)
			c.SetMaxRetries(tt.maxRetries)

			resp, err := c.Do(context.Background(), http.MethodGet, "/x", nil, nil)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				resp.Body.Close()
			}

			assert.Equal(t, tt.wantCalls, calls.Load())
		})
	}
}

func TestDo_RetryResendsPayload(t *testing.T) {
	srv, _ := scripted(t, status(500, ""), func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, `{"x":1}`, string(body))
	})

	c := newTestClient(t, srv.URL)
	c.SetMaxRetries(1)

	resp, err := c.Do(context.Background(), http.MethodPost, "/x", []byte(`{"x":1}`), nil)
	require.NoError(t, err)
	resp.Body.Close()
}

func TestDo_HonorsRetryAfter(t *testing.T) {
	srv, _ := scripted(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
	}, status(200, ""))

	c := newTestClient(t, srv.URL)
	c.SetMaxRetries(1)

	var waits []time.Duration
	c.sleepFunc = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}

	resp, err := c.Do(context.Background(), http.MethodGet, "/x", nil, nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, []time.Duration{7 * time.Second}, waits)
}

func TestDo_AuthErrorNotRetried(t *testing.T) {
	srv, calls := scripted(t, status(200, ""))

	c := NewClient(srv.URL, http.DefaultClient, failingToken{}, nil, "")
	c.SetMaxRetries(5)

	_, err := c.Do(context.Background(), http.MethodGet, "/x", nil, nil)
	assert.ErrorIs(t, err, ErrAuth)
	assert.Zero(t, calls.Load())
}

func TestDo_ContextCanceled(t *testing.T) {
	srv, _ := scripted(t, status(200, ""))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestClient(t, srv.URL).Do(ctx, http.MethodGet, "/x", nil, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDo_CanceledDuringWait(t *testing.T) {
	srv, calls := scripted(t, status(503, ""))

	c := newTestClient(t, srv.URL)
	c.SetMaxRetries(3)
	c.sleepFunc = func(context.Context, time.Duration) error { return context.DeadlineExceeded }

	_, err := c.Do(context.Background(), http.MethodGet, "/x", nil, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int32(1), calls.Load())
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, 3*time.Second, parseRetryAfter("3", now))
	assert.Equal(t, 90*time.Second, parseRetryAfter(now.Add(90*time.Second).Format(http.TimeFormat), now))
	assert.Zero(t, parseRetryAfter(now.Add(-time.Minute).Format(http.TimeFormat), now))
	assert.Zero(t, parseRetryAfter("-4", now))
	assert.Zero(t, parseRetryAfter("soon", now))
	assert.Zero(t, parseRetryAfter("", now))
}

func TestBackoff_Bounds(t *testing.T) {
	for attempt := range 12 {
		want := maxBackoff
		if attempt < 6 {
			want = min(baseBackoff<<attempt, maxBackoff)
		}

		d := backoff(attempt)
		assert.GreaterOrEqual(t, d, want/2, "attempt %d", attempt)
		assert.LessOrEqual(t, d, want, "attempt %d", attempt)
	}
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient("", nil, staticToken("t"), nil, "")
	assert.Equal(t, DefaultBaseURL, c.baseURL)
	assert.Equal(t, defaultUserAgent, c.userAgent)
	assert.Zero(t, c.maxRetries)

	c.SetMaxRetries(-3)
	assert.Zero(t, c.maxRetries)
}
