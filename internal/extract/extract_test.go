package extract

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ytget/yt-web/internal/engine"
	"github.com/ytget/yt-web/internal/model"
)

type fakeSource struct {
	info    *engine.Info
	err     error
	url     string
	cookies model.CookieMaterial
	calls   int
}

func (f *fakeSource) Info(ctx context.Context, url string, cookies model.CookieMaterial) (*engine.Info, error) {
	f.calls++
	f.url = url
	f.cookies = cookies
	if f.err != nil {
		return nil, f.err
	}
	return f.info, nil
}

type blockingSource struct{}

func (blockingSource) Info(ctx context.Context, url string, cookies model.CookieMaterial) (*engine.Info, error) {
	<-ctx.Done()
	return nil, &engine.Error{Op: "probe", Err: errors.Join(errors.New("signal: killed"), ctx.Err())}
}

func strPtr(s string) *string { return &s }
func numPtr(n float64) *float64 { return &n }

func TestProbe_Demo(t *testing.T) {
	source := &fakeSource{info: &engine.Info{
		Title: "Demo",
		Formats: []engine.Format{
			{FormatID: "140", Ext: "m4a", VCodec: strPtr("none")},
			{FormatID: "137", Ext: "mp4", VCodec: strPtr("avc1.640028"), Height: numPtr(1080), FileSize: numPtr(52428800)},
			{FormatID: "248", Ext: "webm", VCodec: strPtr("vp9"), Height: numPtr(1080)},
		},
	}}
	adapter := NewAdapter(source, "mp4", time.Second, nil)

	result, err := adapter.Probe(context.Background(), "https://example/video/abc", model.NoCookies())
	if err != nil {
		t.Fatalf("Probe failed: %v", err)
	}

	if result.Title != "Demo" {
		t.Errorf("Expected title Demo, got %q", result.Title)
	}
	if len(result.Formats) != 1 {
		t.Fatalf("Expected 1 format, got %d: %+v", len(result.Formats), result.Formats)
	}

	f := result.Formats[0]
	if f.FormatID != "137" || f.Resolution != "1080p" || f.Container != "mp4" {
		t.Errorf("Unexpected descriptor %+v", f)
	}
	if f.SizeBytes == nil || *f.SizeBytes != 52428800 {
		t.Errorf("Expected filesize 52428800, got %v", f.SizeBytes)
	}
	if !result.HasFormat("137") || result.HasFormat("140") {
		t.Error("HasFormat does not match the filtered list")
	}
}

func TestProbe_ForwardsCookies(t *testing.T) {
	source := &fakeSource{info: &engine.Info{Title: "x"}}
	adapter := NewAdapter(source, "mp4", 0, nil)

	cookies := model.CookiesFromHeader("SID=abc")
	if _, err := adapter.Probe(context.Background(), "  https://example/video/abc ", cookies); err != nil {
		t.Fatalf("Probe failed: %v", err)
	}

	if source.url != "https://example/video/abc" {
		t.Errorf("Expected trimmed URL, got %q", source.url)
	}
	if source.cookies.HeaderValue() != "SID=abc" {
		t.Errorf("Cookies were not forwarded, got %q", source.cookies.HeaderValue())
	}
}

func TestProbe_EmptyURL(t *testing.T) {
	source := &fakeSource{}
	adapter := NewAdapter(source, "mp4", 0, nil)

	_, err := adapter.Probe(context.Background(), " ", model.NoCookies())
	if !errors.Is(err, ErrURLRequired) {
		t.Errorf("Expected ErrURLRequired, got %v", err)
	}
	if source.calls != 0 {
		t.Error("Source should not be called without a URL")
	}
}

func TestAdapter_RejectsInvalidURL(t *testing.T) {
	for _, input := range []string{"--batch-file=/etc/passwd", "-o/tmp/x", "file:///etc/passwd", "not-a-video"} {
		t.Run(input, func(t *testing.T) {
			source := &fakeSource{}
			adapter := NewAdapter(source, "mp4", 0, nil)

			_, err := adapter.Probe(context.Background(), input, model.NoCookies())
			if !errors.Is(err, model.ErrInvalidURL) {
				t.Errorf("Expected ErrInvalidURL, got %v", err)
			}
			if source.calls != 0 {
				t.Error("Source should not be called for an invalid URL")
			}
		})
	}
}

func TestProbe_RejectedURL(t *testing.T) {
	cause := &engine.Error{Op: "probe", Message: "[generic] Unsupported URL: https://example/nothing"}
	adapter := NewAdapter(&fakeSource{err: cause}, "mp4", 0, nil)

	_, err := adapter.Probe(context.Background(), "https://example/nothing", model.NoCookies())

	var extractErr *Error
	if !errors.As(err, &extractErr) {
		t.Fatalf("Expected *extract.Error, got %T (%v)", err, err)
	}
	if extractErr.Message != cause.Message {
		t.Errorf("Expected tool message to be surfaced, got %q", extractErr.Message)
	}
	if !errors.Is(err, cause) {
		t.Error("Expected extract error to unwrap to the engine error")
	}
}

func TestProbe_Timeout(t *testing.T) {
	adapter := NewAdapter(blockingSource{}, "mp4", 20*time.Millisecond, nil)

	_, err := adapter.Probe(context.Background(), "https://example/slow", model.NoCookies())

	var extractErr *Error
	if !errors.As(err, &extractErr) {
		t.Fatalf("Expected *extract.Error, got %T", err)
	}
	if extractErr.Message != "probe timed out" {
		t.Errorf("Expected timeout message, got %q", extractErr.Message)
	}
}

func TestFilterFormats(t *testing.T) {
	formats := []engine.Format{
		{FormatID: "a", Ext: "mp4", VCodec: strPtr("avc1"), Resolution: strPtr("1280x720")},
		{FormatID: "b", Ext: "MP4", VCodec: strPtr("avc1"), Height: numPtr(480)},
		{FormatID: "c", Ext: "mp4", VCodec: strPtr("avc1")},
		{FormatID: "d", Ext: "mp4"},
		{FormatID: "e", Ext: "mp4", VCodec: strPtr("none")},
		{FormatID: "f", Ext: "webm", VCodec: strPtr("vp9")},
		{FormatID: "g", Ext: "mp4", VCodec: strPtr("avc1"), Resolution: strPtr(" "), Height: numPtr(144)},
	}

	got := FilterFormats(formats, "mp4")

	expected := []struct {
		id         string
		resolution string
	}{
		{"a", "1280x720"},
		{"b", "480p"},
		{"c", AudioResolution},
		{"g", "144p"},
	}
	if len(got) != len(expected) {
		t.Fatalf("Expected %d formats, got %d: %+v", len(expected), len(got), got)
	}
	for i, want := range expected {
		if got[i].FormatID != want.id || got[i].Resolution != want.resolution {
			t.Errorf("Format %d: got %s/%s, expected %s/%s", i, got[i].FormatID, got[i].Resolution, want.id, want.resolution)
		}
		if got[i].Container != "mp4" {
			t.Errorf("Format %d: container %q is not the accepted one", i, got[i].Container)
		}
		if got[i].SizeBytes != nil {
			t.Errorf("Format %d: size should be omitted when not reported", i)
		}
	}
}

func TestFilterFormats_Invariant(t *testing.T) {
	codecs := []*string{nil, strPtr(""), strPtr("none"), strPtr("avc1"), strPtr("vp9")}
	exts := []string{"mp4", "webm", "m4a", ""}

	var formats []engine.Format
	for _, ext := range exts {
		for _, codec := range codecs {
			formats = append(formats, engine.Format{FormatID: ext, Ext: ext, VCodec: codec})
		}
	}

	for _, container := range []string{"mp4", "webm"} {
		for _, f := range FilterFormats(formats, container) {
			if f.Container != container {
				t.Errorf("Container %s: got entry with container %q", container, f.Container)
			}
		}
		if got := len(FilterFormats(formats, container)); got != 2 {
			t.Errorf("Container %s: expected 2 entries with a video codec, got %d", container, got)
		}
	}
}
