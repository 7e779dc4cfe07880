package platform

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ytget/ytdlp/v2"

	"github.com/ytget/yt-web/internal/model"
)

// Timeout constants
const (
	DefaultPlaylistParseTimeout = 60 * time.Second
)

// URL parameters and separators
const (
	PlaylistParam  = "list="
	ParamSeparator = "&"
	PlaylistQuery  = "list"
)

// Default values
const (
	DefaultPlaylistTitle = "Untitled Playlist"
	PlaylistSuffix       = " Playlist"
	MinPrefixLength      = 10
	MaxTitleLength       = 50
	TitleTruncateSuffix  = "..."
)

// URL templates
const (
	YouTubeVideoURLTemplate = "https://www.youtube.com/watch?v=%s"
)

// Playlist errors
var (
	ErrNotPlaylist     = errors.New("invalid playlist URL")
	ErrEmptyPlaylistID = errors.New("empty playlist ID")
)

// PlaylistItem is one video reported by the playlist library
type PlaylistItem struct {
	VideoID string
	Title   string
}

// PlaylistFetcher lists every item of a playlist
type PlaylistFetcher interface {
	Items(ctx context.Context, playlistID string) ([]PlaylistItem, error)
}

// libraryFetcher lists playlists through github.com/ytget/ytdlp
type libraryFetcher struct{}

func (libraryFetcher) Items(ctx context.Context, playlistID string) ([]PlaylistItem, error) {
	d := ytdlp.New()
	items, err := d.GetPlaylistItemsAll(ctx, playlistID, 0)
	if err != nil {
		return nil, err
	}

	out := make([]PlaylistItem, 0, len(items))
	for _, it := range items {
		out = append(out, PlaylistItem{VideoID: it.VideoID, Title: it.Title})
	}
	return out, nil
}

// PlaylistParserService handles listing of YouTube playlists
type PlaylistParserService struct {
	timeout time.Duration
	fetcher PlaylistFetcher
}

// NewPlaylistParserService creates a parser backed by the ytdlp library
func NewPlaylistParserService() *PlaylistParserService {
	return NewPlaylistParserServiceWithFetcher(libraryFetcher{})
}

// NewPlaylistParserServiceWithFetcher creates a parser using fetcher
func NewPlaylistParserServiceWithFetcher(fetcher PlaylistFetcher) *PlaylistParserService {
	return &PlaylistParserService{
		timeout: DefaultPlaylistParseTimeout,
		fetcher: fetcher,
	}
}

// SetTimeout sets the timeout for playlist parsing
func (p *PlaylistParserService) SetTimeout(timeout time.Duration) {
	p.timeout = timeout
}

// ParsePlaylist lists the entries of a playlist URL
func (p *PlaylistParserService) ParsePlaylist(ctx context.Context, rawURL string) (*model.Playlist, error) {
	if !p.isValidPlaylistURL(rawURL) {
		return nil, fmt.Errorf("%w: %s", ErrNotPlaylist, rawURL)
	}

	playlistID, err := p.extractPlaylistID(rawURL)
	if err != nil {
		return nil, err
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	items, err := p.fetcher.Items(ctx, playlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to get playlist items: %w", err)
	}

	playlist := model.NewPlaylist(rawURL)
	playlist.ID = playlistID
	for _, it := range items {
		if it.VideoID == "" {
			continue
		}
		playlist.AddEntry(&model.PlaylistEntry{
			ID:    it.VideoID,
			Title: it.Title,
			URL:   fmt.Sprintf(YouTubeVideoURLTemplate, it.VideoID),
		})
	}
	playlist.Title = p.extractPlaylistTitle(playlist.Entries)

	return playlist, nil
}

// isValidPlaylistURL checks if the URL carries a playlist parameter
func (p *PlaylistParserService) isValidPlaylistURL(rawURL string) bool {
	return strings.Contains(rawURL, PlaylistParam)
}

// extractPlaylistID extracts the playlist ID from various URL formats:
//   - https://www.youtube.com/watch?v=VIDEO_ID&list=PLAYLIST_ID&start_radio=1
//   - https://www.youtube.com/playlist?list=PLAYLIST_ID
func (p *PlaylistParserService) extractPlaylistID(rawURL string) (string, error) {
	if u, err := url.Parse(rawURL); err == nil {
		if id := u.Query().Get(PlaylistQuery); id != "" {
			return id, nil
		}
	}

	// not a parseable URL, fall back to splitting on the parameter
	parts := strings.SplitN(rawURL, PlaylistParam, 2)
	if len(parts) < 2 {
		return "", ErrNotPlaylist
	}
	playlistID := strings.Split(parts[1], ParamSeparator)[0]
	if playlistID == "" {
		return "", ErrEmptyPlaylistID
	}
	return playlistID, nil
}

// extractPlaylistTitle derives a title from the common prefix of the first
// two entries, or the first entry's title.
func (p *PlaylistParserService) extractPlaylistTitle(entries []*model.PlaylistEntry) string {
	if len(entries) == 0 {
		return DefaultPlaylistTitle
	}
	if len(entries) > 1 {
		commonPrefix := p.findCommonPrefix(entries[0].Title, entries[1].Title)
		if len(commonPrefix) > MinPrefixLength {
			return strings.TrimSpace(commonPrefix) + PlaylistSuffix
		}
	}

	firstTitle := entries[0].Title
	if len(firstTitle) > MaxTitleLength {
		firstTitle = firstTitle[:MaxTitleLength] + TitleTruncateSuffix
	}
	return firstTitle + PlaylistSuffix
}

// findCommonPrefix finds the common prefix between two strings
func (p *PlaylistParserService) findCommonPrefix(s1, s2 string) string {
	minLen := min(len(s1), len(s2))
	for i := 0; i < minLen; i++ {
		if s1[i] != s2[i] {
			return s1[:i]
		}
	}
	return s1[:minLen]
}
