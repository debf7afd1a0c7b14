package gdrive

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
)

// Media is an open media download. The caller must close Body.
type Media struct {
	// StatusCode is Drive's status, unmodified: 206 when a requested range was
	// honored, 200 when the whole file is being sent.
	StatusCode    int
	ContentRange  string
	ContentLength int64 // -1 if Drive did not send one
	AcceptRanges  string
	Body          io.ReadCloser
}

// Partial reports whether Drive answered with partial content.
func (m *Media) Partial() bool {
	return m.StatusCode == http.StatusPartialContent
}

// FetchMedia opens the byte stream of a file. rangeHeader, when non-empty,
// is passed to Drive verbatim as the Range header. The body is not read here;
// streaming is the caller's job so large files never sit in memory.
func (c *Client) FetchMedia(ctx context.Context, itemID, rangeHeader string) (*Media, error) {
	c.logger.Info("fetching media",
		slog.String("item_id", itemID),
		slog.String("range", rangeHeader),
	)

	// identity keeps the transport from transparently gunzipping, which would
	// drop Content-Length.
	header := http.Header{"Accept-Encoding": {"identity"}}
	if rangeHeader != "" {
		header.Set("Range", rangeHeader)
	}

	resp, err := c.Do(ctx, http.MethodGet, filePath(itemID, "", url.Values{"alt": {"media"}}), nil, header)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("media response",
		slog.String("item_id", itemID),
		slog.Int("status", resp.StatusCode),
		slog.Int64("content_length", resp.ContentLength),
	)

	return &Media{
		StatusCode:    resp.StatusCode,
		ContentRange:  resp.Header.Get("Content-Range"),
		ContentLength: resp.ContentLength,
		AcceptRanges:  resp.Header.Get("Accept-Ranges"),
		Body:          resp.Body,
	}, nil
}
