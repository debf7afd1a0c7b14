package proxy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// ErrInvalidTarget is returned for a forward target that is not an absolute
// http or https URL.
var ErrInvalidTarget = errors.New("proxy: target must be an absolute http or https URL")

// ErrUpstreamFailed is returned when the target could not be reached. Nothing
// has been written to the client in that case.
var ErrUpstreamFailed = errors.New("proxy: upstream request failed")

// Forwarder relays a request to an arbitrary http(s) URL and streams the
// answer back as an attachment.
type Forwarder struct {
	client     *http.Client
	bufferSize int
	logger     *slog.Logger
}

// NewForwarder creates a Forwarder. The client follows redirects with the
// standard library policy.
func NewForwarder(client *http.Client, bufferSize int, logger *slog.Logger) *Forwarder {
	if logger == nil {
		logger = slog.Default()
	}

	if client == nil {
		client = http.DefaultClient
	}

	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}

	return &Forwarder{client: client, bufferSize: bufferSize, logger: logger}
}

// ParseTarget validates a forward target.
func ParseTarget(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTarget, raw)
	}

	return u, nil
}

// Forward sends r's method and headers (minus Host) to target and streams the
// response to w. ErrInvalidTarget and ErrUpstreamFailed are returned before
// anything is written, so the caller can still answer with an error body.
func (f *Forwarder) Forward(ctx context.Context, w http.ResponseWriter, r *http.Request, target string) (int64, error) {
	u, err := ParseTarget(target)
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, u.String(), r.Body)
	if err != nil {
		return 0, fmt.Errorf("%w: creating request: %w", ErrUpstreamFailed, err)
	}

	req.Header = r.Header.Clone()
	req.Header.Del("Host")
	req.ContentLength = r.ContentLength

	f.logger.Info("forwarding request",
		slog.String("method", r.Method),
		slog.String("host", u.Host),
	)

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrUpstreamFailed, u.Host, err)
	}
	defer resp.Body.Close()

	h := w.Header()
	for k, vs := range resp.Header {
		h[k] = vs
	}

	h.Set("Content-Disposition", ContentDisposition(targetFilename(u)))
	setCORS(h)

	w.WriteHeader(resp.StatusCode)

	n, err := copyBuffered(w, resp.Body, make([]byte, f.bufferSize))
	if err != nil {
		f.logger.Warn("forward stream ended early",
			slog.String("host", u.Host),
			slog.Int64("bytes_written", n),
			slog.String("error", err.Error()),
		)

		return n, err
	}

	return n, nil
}

// targetFilename is the last path segment of u, or "download" when the
// path ends in a slash.
func targetFilename(u *url.URL) string {
	name := u.Path[strings.LastIndexByte(u.Path, '/')+1:]
	if name == "" {
		return "download"
	}

	return name
}
