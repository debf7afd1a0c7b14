package proxy

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/tonimelisma/drivegate/internal/gdrive"
	"github.com/tonimelisma/drivegate/internal/metrics"
)

const defaultContentType = "application/octet-stream"

// MediaSource is the Drive surface a download needs. Satisfied by
// *gdrive.Client.
type MediaSource interface {
	GetItem(ctx context.Context, itemID string, fields ...string) (*gdrive.Item, error)
	FetchMedia(ctx context.Context, itemID, rangeHeader string) (*gdrive.Media, error)
}

// Downloader proxies Drive file content, passing client byte ranges through
// and telling clients whether ranges are usable for the file.
type Downloader struct {
	drive      MediaSource
	bufferSize int
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// NewDownloader creates a Downloader. bufferSize <= 0 uses DefaultBufferSize.
func NewDownloader(drive MediaSource, bufferSize int, m *metrics.Metrics, logger *slog.Logger) *Downloader {
	if logger == nil {
		logger = slog.Default()
	}

	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}

	return &Downloader{drive: drive, bufferSize: bufferSize, metrics: m, logger: logger}
}

// Response is a classified upstream download, ready to stream. Nothing has
// been written to the client yet, so a caller that decides not to stream
// must Close it.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       io.ReadCloser

	partial    bool
	bufferSize int
	metrics    *metrics.Metrics
	logger     *slog.Logger
	itemID     string
}

// Partial reports whether Drive honored the requested range.
func (r *Response) Partial() bool {
	return r.partial
}

// Close releases the upstream body.
func (r *Response) Close() error {
	return r.Body.Close()
}

// Download fetches metadata and then media for itemID, forwarding
// rangeHeader verbatim. The upstream body is bound to ctx, so canceling ctx
// (for example when the client disconnects) stops the upstream transfer.
// Any failure before streaming is returned; nothing is retried.
func (d *Downloader) Download(ctx context.Context, itemID, rangeHeader, displayName string) (*Response, error) {
	meta, err := d.drive.GetItem(ctx, itemID, "size", "mimeType")
	if err != nil {
		return nil, fmt.Errorf("proxy: reading metadata for %s: %w", itemID, err)
	}

	media, err := d.drive.FetchMedia(ctx, itemID, rangeHeader)
	if err != nil {
		return nil, fmt.Errorf("proxy: fetching media for %s: %w", itemID, err)
	}

	h := make(http.Header)

	if media.Partial() {
		h.Set("Content-Range", media.ContentRange)

		if media.ContentLength >= 0 {
			h.Set("Content-Length", strconv.FormatInt(media.ContentLength, 10))
		}

		h.Set("Accept-Ranges", "bytes")
	} else if length, ok := fullLength(meta, media); ok {
		// No Accept-Ranges: multi-segment clients must fall back to one stream.
		h.Set("Content-Length", strconv.FormatInt(length, 10))
	}

	contentType := meta.MimeType
	if contentType == "" {
		contentType = defaultContentType
	}

	h.Set("Content-Type", contentType)

	if displayName != "" {
		h.Set("Content-Disposition", ContentDisposition(displayName))
	}

	setCORS(h)

	d.logger.Debug("download classified",
		slog.String("item_id", itemID),
		slog.String("range", rangeHeader),
		slog.Int("status", media.StatusCode),
		slog.Bool("partial", media.Partial()),
	)

	return &Response{
		StatusCode: media.StatusCode,
		Header:     h,
		Body:       media.Body,
		partial:    media.Partial(),
		bufferSize: d.bufferSize,
		metrics:    d.metrics,
		logger:     d.logger,
		itemID:     itemID,
	}, nil
}

// fullLength picks the length to advertise for a whole-file response: the
// metadata size, or Drive's own Content-Length while the size is still
// being computed.
func fullLength(meta *gdrive.Item, media *gdrive.Media) (int64, bool) {
	if meta.HasSize {
		return meta.Size, true
	}

	if media.ContentLength >= 0 {
		return media.ContentLength, true
	}

	return 0, false
}

// Stream writes the headers and status to w and copies the body through a
// single fixed-size buffer. The body is always closed. Errors after the
// status line is written can only be reported to the caller, not the client.
func (r *Response) Stream(w http.ResponseWriter) (int64, error) {
	defer r.Body.Close()

	dst := w.Header()
	for k, vs := range r.Header {
		dst[k] = vs
	}

	w.WriteHeader(r.StatusCode)

	n, err := copyBuffered(w, r.Body, make([]byte, r.bufferSize))
	r.metrics.RecordDownload(r.partial, n)

	if err != nil {
		r.logger.Warn("download stream ended early",
			slog.String("item_id", r.itemID),
			slog.Int64("bytes_written", n),
			slog.String("error", err.Error()),
		)

		return n, err
	}

	r.logger.Debug("download streamed",
		slog.String("item_id", r.itemID),
		slog.Int64("bytes_written", n),
	)

	return n, nil
}
