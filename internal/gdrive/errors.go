// Package gdrive provides an HTTP client for the Google Drive v3 API with
// bearer-token authentication, optional retry, and error classification.
package gdrive

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Sentinel errors for HTTP status code classification.
// Use errors.Is(err, gdrive.ErrNotFound) to check.
var (
	ErrBadRequest          = errors.New("gdrive: bad request")
	ErrUnauthorized        = errors.New("gdrive: unauthorized")
	ErrForbidden           = errors.New("gdrive: forbidden")
	ErrNotFound            = errors.New("gdrive: not found")
	ErrConflict            = errors.New("gdrive: conflict")
	ErrRangeNotSatisfiable = errors.New("gdrive: range not satisfiable")
	ErrThrottled           = errors.New("gdrive: throttled")
	ErrServerError         = errors.New("gdrive: server error")
)

// ErrAuth is the sentinel wrapped by every AuthError.
var ErrAuth = errors.New("gdrive: authentication failed")

// UpstreamError is returned for any non-success response from the Drive API.
// Message carries Drive's own error message so it can be shown to callers.
type UpstreamError struct {
	StatusCode int
	Message    string
	Reason     string        // first errors[].reason, e.g. "notFound"
	RetryAfter time.Duration // server-requested delay on 429/503
	Err        error         // sentinel, for errors.Is()
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("gdrive: HTTP %d: %s", e.StatusCode, e.Message)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// AuthError reports a failed refresh-token exchange.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("gdrive: obtaining access token: %v", e.Err)
}

// Unwrap exposes both ErrAuth and the underlying oauth2 failure.
func (e *AuthError) Unwrap() []error {
	return []error{ErrAuth, e.Err}
}

// apiErrorBody is the JSON error envelope returned by Google APIs.
type apiErrorBody struct {
	Error struct {
		Message string `json:"message"`
		Errors  []struct {
			Reason string `json:"reason"`
		} `json:"errors"`
	} `json:"error"`
}

// Drive reports quota exhaustion as 403 with one of these reasons.
var rateLimitReasons = map[string]bool{
	"rateLimitExceeded":     true,
	"userRateLimitExceeded": true,
}

// newUpstreamError reads a failed response's body (bounded) and classifies
// it. Drive's own error.message replaces the raw body when present.
func newUpstreamError(resp *http.Response) *UpstreamError {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		body = nil
	}

	e := &UpstreamError{
		StatusCode: resp.StatusCode,
		Message:    strings.TrimSpace(string(body)),
		Err:        classifyStatus(resp.StatusCode),
	}

	var env apiErrorBody
	if json.Unmarshal(body, &env) == nil {
		if env.Error.Message != "" {
			e.Message = env.Error.Message
		}

		if len(env.Error.Errors) > 0 {
			e.Reason = env.Error.Errors[0].Reason
		}
	}

	if e.Message == "" {
		e.Message = http.StatusText(resp.StatusCode)
	}

	if rateLimitReasons[e.Reason] {
		e.Err = ErrThrottled
	}

	if e.StatusCode == http.StatusTooManyRequests || e.StatusCode == http.StatusServiceUnavailable {
		e.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"), time.Now())
	}

	return e
}

// parseRetryAfter accepts both delay-seconds and HTTP-date forms. Zero
// means absent or unusable.
func parseRetryAfter(v string, now time.Time) time.Duration {
	if v == "" {
		return 0
	}

	if secs, err := strconv.Atoi(v); err == nil {
		return max(time.Duration(secs)*time.Second, 0)
	}

	if t, err := http.ParseTime(v); err == nil {
		return max(t.Sub(now), 0)
	}

	return 0
}

// classifyStatus maps an HTTP status code to a sentinel error.
// Returns nil for codes without a sentinel.
func classifyStatus(code int) error {
	switch {
	case code == http.StatusBadRequest:
		return ErrBadRequest
	case code == http.StatusUnauthorized:
		return ErrUnauthorized
	case code == http.StatusForbidden:
		return ErrForbidden
	case code == http.StatusNotFound:
		return ErrNotFound
	case code == http.StatusConflict:
		return ErrConflict
	case code == http.StatusRequestedRangeNotSatisfiable:
		return ErrRangeNotSatisfiable
	case code == http.StatusTooManyRequests:
		return ErrThrottled
	case code >= http.StatusInternalServerError:
		return ErrServerError
	default:
		return nil
	}
}

// retryable reports whether repeating the request could succeed: timeouts,
// throttling (including Drive's rate-limit 403s) and server errors other
// than 501.
func (e *UpstreamError) retryable() bool {
	switch {
	case e.StatusCode == http.StatusRequestTimeout,
		errors.Is(e.Err, ErrThrottled):
		return true
	case e.StatusCode == http.StatusNotImplemented:
		return false
	default:
		return e.StatusCode >= http.StatusInternalServerError
	}
}
