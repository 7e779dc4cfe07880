package engine

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/ytget/yt-web/internal/model"
)

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name     string
		stderr   string
		expected string
	}{
		{
			name:     "error line wins",
			stderr:   "WARNING: something\nERROR: [generic] Unsupported URL: https://example/x\n",
			expected: "[generic] Unsupported URL: https://example/x",
		},
		{
			name:     "last error line wins",
			stderr:   "ERROR: first\r\nERROR: second\r\n",
			expected: "second",
		},
		{
			name:     "falls back to last line",
			stderr:   "usage: yt-dlp [OPTIONS] URL\n\nyt-dlp: error: no such option\n",
			expected: "yt-dlp: error: no such option",
		},
		{
			name:     "empty",
			stderr:   "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ErrorMessage(tt.stderr); got != tt.expected {
				t.Errorf("ErrorMessage() = %q, expected %q", got, tt.expected)
			}
		})
	}
}

func TestErrorFormatting(t *testing.T) {
	cause := errors.New("exit status 1")

	withMessage := &Error{Op: "probe", Message: "Video unavailable", Err: cause}
	if withMessage.Error() != "Video unavailable" {
		t.Errorf("Expected tool message, got %q", withMessage.Error())
	}
	if !errors.Is(withMessage, cause) {
		t.Error("Expected Error to unwrap to its cause")
	}

	bare := &Error{Op: "download", Err: cause}
	if bare.Error() != "yt-dlp download failed: exit status 1" {
		t.Errorf("Unexpected message %q", bare.Error())
	}
}

func TestWrapKeepsContextError(t *testing.T) {
	e := New("", nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := e.wrap(ctx, "download", nil, errors.New("signal: killed"))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected wrapped error to match context.Canceled, got %v", err)
	}

	var engineErr *Error
	if !errors.As(err, &engineErr) || engineErr.Op != "download" {
		t.Errorf("Expected *Error for op download, got %T", err)
	}
}

func TestDownloadRequiresOutput(t *testing.T) {
	e := New("", nil)
	if err := e.Download(context.Background(), DownloadOptions{URL: "https://example/video/abc"}); err == nil {
		t.Error("Expected error without an output path")
	}
}

// flagValue returns the argument following flag in args
func flagValue(args []string, flag string) (string, bool) {
	i := slices.Index(args, flag)
	if i < 0 || i+1 >= len(args) {
		return "", false
	}
	return args[i+1], true
}

// assertTrailingURL checks the URL comes last, after the end of options
func assertTrailingURL(t *testing.T, args []string, url string) {
	t.Helper()
	n := len(args)
	if n < 2 || args[n-2] != "--" || args[n-1] != url {
		t.Errorf("Expected args to end with [-- %s], got %q", url, args)
	}
	if i := slices.Index(args, url); i != n-1 {
		t.Errorf("Expected URL only in the final position, found at %d in %q", i, args)
	}
}

func TestInfoCommandArgs(t *testing.T) {
	e := New("/bin/true", nil)
	const url = "https://example.test/watch?v=abc"
	cookies := model.CookiesFromPairs([]model.CookiePair{{Name: "SID", Value: "1"}})

	args := e.infoCommand(cookies).BuildCommand(context.Background(), urlArgs(url)...).Args

	if args[0] != "/bin/true" {
		t.Errorf("Expected configured executable, got %s", args[0])
	}
	for _, flag := range []string{"--dump-single-json", "--no-playlist", "--no-warnings"} {
		if !slices.Contains(args, flag) {
			t.Errorf("Expected %s in %q", flag, args)
		}
	}
	if v, ok := flagValue(args, "--add-headers"); !ok || v != "Cookie:SID=1" {
		t.Errorf("Expected cookie header, got %q", v)
	}
	assertTrailingURL(t, args, url)
}

func TestInfoCommandWithoutCookies(t *testing.T) {
	e := New("/bin/true", nil)

	args := e.infoCommand(model.NoCookies()).BuildCommand(context.Background(), urlArgs("https://example.test/v")...).Args

	if slices.Contains(args, "--add-headers") {
		t.Errorf("Expected no header without cookies, got %q", args)
	}
}

func TestDownloadCommandArgs(t *testing.T) {
	e := New("/bin/true", nil)
	opts := DownloadOptions{
		URL:         "https://example.test/watch?v=abc",
		Selector:    "137+bestaudio/best",
		Output:      "/tmp/scratch/0123456789abcdef0123456789abcdef.incomplete.mp4",
		MergeFormat: "mp4",
		Cookies:     model.CookiesFromPairs([]model.CookiePair{{Name: "SID", Value: "1"}}),
	}

	args := e.downloadCommand(opts).BuildCommand(context.Background(), urlArgs(opts.URL)...).Args

	expected := map[string]string{
		"--format":              opts.Selector,
		"--output":              opts.Output,
		"--merge-output-format": "mp4",
		"--add-headers":         "Cookie:SID=1",
	}
	for flag, want := range expected {
		if got, ok := flagValue(args, flag); !ok || got != want {
			t.Errorf("Expected %s %q, got %q (args %q)", flag, want, got, args)
		}
	}
	for _, flag := range []string{"--force-overwrites", "--no-playlist", "--no-warnings"} {
		if !slices.Contains(args, flag) {
			t.Errorf("Expected %s in %q", flag, args)
		}
	}
	if slices.Contains(args, "--dump-single-json") {
		t.Errorf("Download must not dump metadata, got %q", args)
	}
	assertTrailingURL(t, args, opts.URL)
}

func TestDownloadCommandWithoutMergeFormat(t *testing.T) {
	e := New("/bin/true", nil)
	opts := DownloadOptions{URL: "https://example.test/v", Selector: "18", Output: "/tmp/out.mp4"}

	args := e.downloadCommand(opts).BuildCommand(context.Background(), urlArgs(opts.URL)...).Args

	if slices.Contains(args, "--merge-output-format") {
		t.Errorf("Expected no merge format, got %q", args)
	}
}

func TestOptionLikeURLStaysPositional(t *testing.T) {
	e := New("/bin/true", nil)
	const input = "--batch-file=/etc/passwd"

	args := e.infoCommand(model.NoCookies()).BuildCommand(context.Background(), urlArgs(input)...).Args

	assertTrailingURL(t, args, input)
}
