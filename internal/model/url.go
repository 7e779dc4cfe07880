package model

import (
	"errors"
	"net/url"
	"strings"
)

// ErrInvalidURL is returned for URLs that are not absolute http(s) URLs
var ErrInvalidURL = errors.New("url must be an absolute http or https URL")

// ValidateVideoURL accepts only absolute http and https URLs. Anything else,
// including strings yt-dlp would read as options or local paths, is refused.
func ValidateVideoURL(raw string) error {
	if strings.HasPrefix(raw, "-") {
		return ErrInvalidURL
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ErrInvalidURL
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return nil
	default:
		return ErrInvalidURL
	}
}
