package model

import (
	"errors"
	"testing"
)

func TestValidateVideoURL(t *testing.T) {
	tests := []struct {
		name  string
		input string
		valid bool
	}{
		{"https", "https://www.youtube.com/watch?v=abc", true},
		{"http", "http://example.test/video/1", true},
		{"uppercase scheme", "HTTPS://example.test/v", true},
		{"option", "--batch-file=/etc/passwd", false},
		{"short option", "-a/etc/passwd", false},
		{"config option", "--config-locations=/tmp/cookies.txt", false},
		{"bare word", "not-a-video", false},
		{"local path", "/etc/passwd", false},
		{"file scheme", "file:///etc/passwd", false},
		{"ftp scheme", "ftp://example.test/v", false},
		{"missing host", "https:///watch", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateVideoURL(tt.input)
			if tt.valid && err != nil {
				t.Errorf("Expected %q to be accepted, got %v", tt.input, err)
			}
			if !tt.valid && !errors.Is(err, ErrInvalidURL) {
				t.Errorf("Expected ErrInvalidURL for %q, got %v", tt.input, err)
			}
		})
	}
}
