// Package parsers extracts stream URLs from media pages. The decoder later
// reads the stream URL directly.
package parsers

import (
	"github.com/JeudiD/Ningyo/internal/music/track"
)

const (
	ExtractorKkdai  = "kkdai"
	ExtractorYtdlp  = "ytdlp"
	ExtractorDirect = "ffmpeg"
)

// Extraction is the result of a successful extraction. Duration is in
// seconds, zero when unknown.
type Extraction struct {
	StreamURL  string
	Title      string
	Artist     string
	WebpageURL string
	Duration   float64
	Thumbnail  string
	Extractor  string
}

// Track builds a track descriptor. fallbackTitle is used when the extractor
// could not determine a title.
func (e *Extraction) Track(fallbackTitle, source string, requester *track.Requester) *track.Track {
	title := e.Title
	if title == "" {
		title = fallbackTitle
	}
	if title == "" {
		title = e.WebpageURL
	}
	duration := e.Duration
	if duration < 0 {
		duration = 0
	}
	return &track.Track{
		StreamURL:  e.StreamURL,
		Title:      title,
		WebpageURL: e.WebpageURL,
		Duration:   duration,
		Thumbnail:  e.Thumbnail,
		Source:     source,
		Requester:  requester,
	}
}
