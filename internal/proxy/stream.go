// Package proxy streams remote bytes to HTTP clients: Drive file content
// with range passthrough, and arbitrary http(s) URLs.
package proxy

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// DefaultBufferSize is the fixed copy buffer used per stream.
const DefaultBufferSize = 256 * 1024

// copyBuffered copies src to dst through buf only, so memory per stream is
// bounded by len(buf) no matter what interfaces dst and src implement.
func copyBuffered(dst io.Writer, src io.Reader, buf []byte) (int64, error) {
	var written int64

	for {
		nr, rerr := src.Read(buf)
		if nr > 0 {
			nw, werr := dst.Write(buf[:nr])
			written += int64(nw)

			if werr != nil {
				return written, fmt.Errorf("proxy: writing to client: %w", werr)
			}

			if nw != nr {
				return written, fmt.Errorf("proxy: writing to client: %w", io.ErrShortWrite)
			}
		}

		if rerr == io.EOF {
			return written, nil
		}

		if rerr != nil {
			return written, fmt.Errorf("proxy: reading upstream: %w", rerr)
		}
	}
}

// setCORS allows cross-origin reads of the response and all its headers.
func setCORS(h http.Header) {
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Expose-Headers", "*")
}

// ContentDisposition returns an attachment Content-Disposition value for
// name, NFC-normalized and encoded as an RFC 5987 ext-value.
func ContentDisposition(name string) string {
	return "attachment; filename*=UTF-8''" + encodeExtValue(norm.NFC.String(name))
}

// encodeExtValue percent-encodes every byte outside RFC 5987 attr-char.
func encodeExtValue(s string) string {
	const hex = "0123456789ABCDEF"

	var b strings.Builder
	b.Grow(len(s))

	for i := range len(s) {
		c := s[i]
		if isAttrChar(c) {
			b.WriteByte(c)
			continue
		}

		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0f])
	}

	return b.String()
}

func isAttrChar(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}

	return strings.IndexByte("!#$&+-.^_`|~", c) >= 0
}
