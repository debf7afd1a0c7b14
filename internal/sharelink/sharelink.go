// Package sharelink extracts Drive item IDs from user-supplied share links.
// It is the only place the gateway derives an identifier rather than
// receiving one from Drive.
package sharelink

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Sentinel errors for errors.Is checks.
var (
	ErrEmptyLink        = errors.New("sharelink: link is empty")
	ErrUnrecognizedLink = errors.New("sharelink: unrecognized share link")
)

// ParseError reports a link that no known shape matched.
type ParseError struct {
	Link string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Link == "" {
		return e.Err.Error()
	}

	return fmt.Sprintf("%v: %q", e.Err, e.Link)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// patterns are tried in order; the first submatch is the item ID.
var patterns = []*regexp.Regexp{
	regexp.MustCompile(`drive\.google\.com/file/d/([A-Za-z0-9_-]+)`),
	regexp.MustCompile(`drive\.google\.com/uc\?id=([A-Za-z0-9_-]+)`),
	regexp.MustCompile(`drive\.google\.com/open\?id=([A-Za-z0-9_-]+)`),
	regexp.MustCompile(`drive\.google\.com/drive/folders/([A-Za-z0-9_-]+)`),
	regexp.MustCompile(`drive\.google\.com/drive/u/[0-9]+/folders/([A-Za-z0-9_-]+)`),
}

// Extract returns the item ID embedded in a share link.
func Extract(link string) (string, error) {
	link = strings.TrimSpace(link)
	if link == "" {
		return "", &ParseError{Err: ErrEmptyLink}
	}

	for _, re := range patterns {
		if m := re.FindStringSubmatch(link); m != nil {
			return m[1], nil
		}
	}

	return "", &ParseError{Link: link, Err: ErrUnrecognizedLink}
}
