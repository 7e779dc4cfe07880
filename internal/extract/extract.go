// Package extract lists the formats a client may pick for a URL. It asks the
// engine for metadata and keeps only entries in the accepted container that
// carry a video track.
package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ytget/yt-web/internal/engine"
	"github.com/ytget/yt-web/internal/logging"
	"github.com/ytget/yt-web/internal/model"
)

// AudioResolution labels entries that report neither a resolution nor a height
const AudioResolution = "audio"

// ErrURLRequired is returned when Probe is called without a URL
var ErrURLRequired = errors.New("url is required")

// InfoSource dumps metadata for a single video
type InfoSource interface {
	Info(ctx context.Context, url string, cookies model.CookieMaterial) (*engine.Info, error)
}

// Error is the single opaque extraction failure class
type Error struct {
	URL     string
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Adapter probes URLs for selectable formats
type Adapter struct {
	source    InfoSource
	container string
	timeout   time.Duration
	logger    *slog.Logger
}

// NewAdapter creates a probe adapter accepting only the given container.
// A non-positive timeout disables the probe deadline.
func NewAdapter(source InfoSource, container string, timeout time.Duration, logger *slog.Logger) *Adapter {
	return &Adapter{
		source:    source,
		container: strings.ToLower(container),
		timeout:   timeout,
		logger:    logging.Ensure(logger).With("component", "extract"),
	}
}

// Probe returns the title and the filtered format list for url
func (a *Adapter) Probe(ctx context.Context, url string, cookies model.CookieMaterial) (*model.ProbeResult, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, ErrURLRequired
	}
	if err := model.ValidateVideoURL(url); err != nil {
		return nil, err
	}

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	info, err := a.source.Info(ctx, url, cookies)
	if err != nil {
		a.logger.Warn("probe failed", "url", url, "cookies", cookies.String(), "error", err)
		return nil, &Error{URL: url, Message: message(err), Err: err}
	}

	result := &model.ProbeResult{
		Title:   info.Title,
		Formats: FilterFormats(info.Formats, a.container),
	}
	a.logger.Info("probe finished", "url", url, "formats", len(result.Formats), "reported", len(info.Formats))
	return result, nil
}

// FilterFormats keeps entries in container that declare a video codec, in
// upstream order.
func FilterFormats(formats []engine.Format, container string) []model.FormatDescriptor {
	out := make([]model.FormatDescriptor, 0, len(formats))
	for _, f := range formats {
		if !strings.EqualFold(f.Ext, container) || !f.HasVideo() {
			continue
		}

		desc := model.FormatDescriptor{
			FormatID:   f.FormatID,
			Container:  strings.ToLower(f.Ext),
			Resolution: resolutionLabel(f),
		}
		if size, ok := f.Size(); ok {
			desc.SizeBytes = &size
		}
		out = append(out, desc)
	}
	return out
}

// resolutionLabel prefers the upstream label, then "<height>p", then "audio"
func resolutionLabel(f engine.Format) string {
	if f.Resolution != nil && strings.TrimSpace(*f.Resolution) != "" {
		return *f.Resolution
	}
	if f.Height != nil && *f.Height > 0 {
		return fmt.Sprintf("%dp", int(*f.Height))
	}
	return AudioResolution
}

func message(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "probe timed out"
	}
	var engineErr *engine.Error
	if errors.As(err, &engineErr) {
		return engineErr.Error()
	}
	return err.Error()
}
