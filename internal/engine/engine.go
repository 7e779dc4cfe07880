package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lrstanley/go-ytdlp"

	"github.com/ytget/yt-web/internal/logging"
	"github.com/ytget/yt-web/internal/model"
)

// Header and message constants
const (
	CookieHeaderName = "Cookie"
	errorLinePrefix  = "ERROR:"
	endOfOptions     = "--"
)

// DownloadOptions describes one download invocation
type DownloadOptions struct {
	URL         string
	Selector    string // yt-dlp format selection expression
	Output      string // exact output path, no template fields
	MergeFormat string // container used when streams are merged
	Cookies     model.CookieMaterial
}

// Error is a failure reported by the extraction tool
type Error struct {
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("yt-dlp %s failed: %v", e.Op, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Engine runs yt-dlp commands
type Engine struct {
	executable string
	logger     *slog.Logger
}

// New creates an engine. An empty executable resolves yt-dlp from PATH or the
// go-ytdlp cache.
func New(executable string, logger *slog.Logger) *Engine {
	return &Engine{
		executable: executable,
		logger:     logging.Ensure(logger).With("component", "engine"),
	}
}

// Install downloads a yt-dlp release into the go-ytdlp cache when none is available
func (e *Engine) Install(ctx context.Context) error {
	start := time.Now()
	if _, err := ytdlp.Install(ctx, nil); err != nil {
		return fmt.Errorf("install yt-dlp: %w", err)
	}
	e.logger.Info("yt-dlp available", "elapsed", time.Since(start))
	return nil
}

// command builds the base command shared by every invocation
func (e *Engine) command(cookies model.CookieMaterial) *ytdlp.Command {
	cmd := ytdlp.New().
		NoPlaylist().
		NoWarnings()

	if e.executable != "" {
		cmd = cmd.SetExecutable(e.executable)
	}
	if header := cookies.HeaderValue(); header != "" {
		cmd = cmd.AddHeaders(CookieHeaderName + ":" + header)
	}
	return cmd
}

// urlArgs ends option parsing so the URL is never read as a flag
func urlArgs(url string) []string {
	return []string{endOfOptions, url}
}

// infoCommand builds the metadata dump invocation
func (e *Engine) infoCommand(cookies model.CookieMaterial) *ytdlp.Command {
	return e.command(cookies).DumpSingleJSON()
}

// downloadCommand builds the download invocation for opts
func (e *Engine) downloadCommand(opts DownloadOptions) *ytdlp.Command {
	cmd := e.command(opts.Cookies).
		ForceOverwrites().
		Format(opts.Selector).
		Output(opts.Output)
	if opts.MergeFormat != "" {
		cmd = cmd.MergeOutputFormat(opts.MergeFormat)
	}
	return cmd
}

// Info dumps metadata for a single video without downloading anything
func (e *Engine) Info(ctx context.Context, url string, cookies model.CookieMaterial) (*Info, error) {
	start := time.Now()
	res, err := e.infoCommand(cookies).Run(ctx, urlArgs(url)...)
	if err != nil {
		return nil, e.wrap(ctx, "probe", res, err)
	}

	info, err := ParseInfo([]byte(res.Stdout))
	if err != nil {
		return nil, &Error{Op: "probe", Message: "unreadable metadata: " + err.Error(), Err: err}
	}

	e.logger.Debug("probe finished",
		"url", url,
		"cookies", cookies.String(),
		"formats", len(info.Formats),
		"elapsed", time.Since(start))
	return info, nil
}

// Download runs a download and blocks until yt-dlp exits
func (e *Engine) Download(ctx context.Context, opts DownloadOptions) error {
	if opts.Output == "" {
		return errors.New("download: output path is required")
	}

	start := time.Now()
	res, err := e.downloadCommand(opts).Run(ctx, urlArgs(opts.URL)...)
	if err != nil {
		return e.wrap(ctx, "download", res, err)
	}

	e.logger.Debug("download finished",
		"url", opts.URL,
		"selector", opts.Selector,
		"cookies", opts.Cookies.String(),
		"elapsed", time.Since(start))
	return nil
}

// wrap converts a failed run into an *Error carrying the tool's own message
func (e *Engine) wrap(ctx context.Context, op string, res *ytdlp.Result, err error) error {
	// a killed process reports a signal, keep the context error visible to errors.Is
	if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
		err = errors.Join(err, ctxErr)
	}
	var stderr string
	if res != nil {
		stderr = res.Stderr
	}
	return &Error{Op: op, Message: ErrorMessage(stderr), Err: err}
}

// ErrorMessage extracts the most useful line from yt-dlp's stderr: the last
// "ERROR:" line if any, otherwise the last non-empty line.
func ErrorMessage(stderr string) string {
	lines := strings.Split(strings.ReplaceAll(stderr, "\r\n", "\n"), "\n")
	var last string
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, errorLinePrefix) {
			return strings.TrimSpace(strings.TrimPrefix(line, errorLinePrefix))
		}
		if last == "" {
			last = line
		}
	}
	return last
}
