package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// CodecNone is the codec value yt-dlp reports for a missing track
const CodecNone = "none"

// Info is the subset of yt-dlp's single-video JSON the service consumes
type Info struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Formats []Format `json:"formats"`
}

// Format is one entry of Info.Formats. Pointer fields distinguish "absent"
// from zero values.
type Format struct {
	FormatID       string   `json:"format_id"`
	Ext            string   `json:"ext"`
	VCodec         *string  `json:"vcodec"`
	ACodec         *string  `json:"acodec"`
	Height         *float64 `json:"height"`
	Resolution     *string  `json:"resolution"`
	FormatNote     string   `json:"format_note"`
	FileSize       *float64 `json:"filesize"`
	FileSizeApprox *float64 `json:"filesize_approx"`
}

// HasVideo reports whether the format declares a video codec
func (f Format) HasVideo() bool {
	if f.VCodec == nil {
		return false
	}
	codec := strings.TrimSpace(*f.VCodec)
	return codec != "" && codec != CodecNone
}

// Size returns the reported size in bytes, preferring the exact value
func (f Format) Size() (int64, bool) {
	switch {
	case f.FileSize != nil && *f.FileSize > 0:
		return int64(*f.FileSize), true
	case f.FileSizeApprox != nil && *f.FileSizeApprox > 0:
		return int64(*f.FileSizeApprox), true
	default:
		return 0, false
	}
}

// ParseInfo decodes the output of --dump-single-json
func ParseInfo(data []byte) (*Info, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, errors.New("empty output")
	}

	var info Info
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("decode info json: %w", err)
	}
	return &info, nil
}
