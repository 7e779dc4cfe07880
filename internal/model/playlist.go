package model

import (
	"time"
)

// PlaylistEntry represents a single video listed in a playlist
type PlaylistEntry struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Duration string `json:"duration,omitempty"`
	URL      string `json:"url"`
}

// Playlist represents a playlist listing. Entries can be probed and fetched
// individually through their URL.
type Playlist struct {
	ID        string           `json:"id"`
	Title     string           `json:"title"`
	URL       string           `json:"url"`
	Entries   []*PlaylistEntry `json:"entries"`
	Total     int              `json:"total"`
	CreatedAt time.Time        `json:"created_at"`
}

// NewPlaylist creates a new playlist instance
func NewPlaylist(url string) *Playlist {
	return &Playlist{
		URL:       url,
		Entries:   make([]*PlaylistEntry, 0),
		CreatedAt: time.Now(),
	}
}

// AddEntry appends an entry, skipping IDs already present
func (p *Playlist) AddEntry(entry *PlaylistEntry) {
	if p.HasEntry(entry.ID) {
		return
	}
	p.Entries = append(p.Entries, entry)
	p.Total = len(p.Entries)
}

// RemoveEntry removes an entry by ID
func (p *Playlist) RemoveEntry(id string) {
	for i, entry := range p.Entries {
		if entry.ID == id {
			p.Entries = append(p.Entries[:i], p.Entries[i+1:]...)
			p.Total = len(p.Entries)
			break
		}
	}
}

// HasEntry checks whether an entry with the given ID is listed
func (p *Playlist) HasEntry(id string) bool {
	for _, entry := range p.Entries {
		if entry.ID == id {
			return true
		}
	}
	return false
}
