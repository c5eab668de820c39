// Package sources holds the search providers that turn free text into
// candidate media pages.
package sources

import (
	"strings"
	"time"
)

const (
	SourceYouTubeMusic = "ytmusic"
	SourceYouTube      = "youtube"
	SourceSpotify      = "spotify"
	SourceRadio        = "radio"
)

// Result is one search hit. URL points at a page that still has to be
// extracted into a stream.
type Result struct {
	URL      string
	Title    string
	Artist   string
	Duration time.Duration
	Source   string
}

// DisplayTitle joins title and artist when the artist is not already part of it.
func (r Result) DisplayTitle() string {
	if r.Artist == "" || strings.Contains(strings.ToLower(r.Title), strings.ToLower(r.Artist)) {
		return r.Title
	}
	return r.Title + " - " + r.Artist
}

// IsURL reports whether s looks like an http(s) link.
func IsURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
