package engine

import "testing"

const sampleInfo = `{
  "id": "abc",
  "title": "Demo",
  "formats": [
    {"format_id": "140", "ext": "m4a", "vcodec": "none", "acodec": "mp4a.40.2", "resolution": "audio only", "filesize": 3145728},
    {"format_id": "137", "ext": "mp4", "vcodec": "avc1.640028", "acodec": "none", "height": 1080, "resolution": "1920x1080", "filesize": 52428800},
    {"format_id": "sb0", "ext": "mhtml", "vcodec": "none", "acodec": "none"},
    {"format_id": "18", "ext": "mp4", "vcodec": "avc1.42001E", "height": 360, "filesize_approx": 1048576.6}
  ]
}`

func TestParseInfo(t *testing.T) {
	info, err := ParseInfo([]byte(sampleInfo))
	if err != nil {
		t.Fatalf("ParseInfo failed: %v", err)
	}

	if info.Title != "Demo" {
		t.Errorf("Expected title Demo, got %q", info.Title)
	}
	if len(info.Formats) != 4 {
		t.Fatalf("Expected 4 formats, got %d", len(info.Formats))
	}

	if info.Formats[0].HasVideo() {
		t.Error("Audio-only format should not report video")
	}
	if !info.Formats[1].HasVideo() {
		t.Error("Format 137 should report video")
	}

	if size, ok := info.Formats[1].Size(); !ok || size != 52428800 {
		t.Errorf("Expected exact size 52428800, got %d (%v)", size, ok)
	}
	if size, ok := info.Formats[3].Size(); !ok || size != 1048576 {
		t.Errorf("Expected approximate size 1048576, got %d (%v)", size, ok)
	}
	if _, ok := info.Formats[2].Size(); ok {
		t.Error("Format without size should report none")
	}
}

func TestParseInfoErrors(t *testing.T) {
	if _, err := ParseInfo(nil); err == nil {
		t.Error("Expected error for empty output")
	}
	if _, err := ParseInfo([]byte("not json")); err == nil {
		t.Error("Expected error for invalid JSON")
	}
}

func TestFormatHasVideoAbsentCodec(t *testing.T) {
	empty := ""
	tests := []struct {
		name   string
		format Format
		want   bool
	}{
		{"absent", Format{}, false},
		{"empty", Format{VCodec: &empty}, false},
	}
	for _, tt := range tests {
		if got := tt.format.HasVideo(); got != tt.want {
			t.Errorf("%s: HasVideo() = %v, expected %v", tt.name, got, tt.want)
		}
	}
}
