// Package track holds the resolved, playable description of one piece of media.
package track

import (
	"fmt"
	"time"
)

// Requester identifies who asked for a track.
type Requester struct {
	ID   string
	Name string
}

// Mention renders the requester as a Discord user mention.
func (r *Requester) Mention() string {
	if r == nil || r.ID == "" {
		return "unknown"
	}
	return "<@" + r.ID + ">"
}

// Track is immutable once resolved. Duration is in seconds; zero means unknown
// (live streams, radio).
type Track struct {
	StreamURL  string
	Title      string
	WebpageURL string
	Duration   float64
	Thumbnail  string
	Source     string
	Requester  *Requester
}

// Length returns Duration as a time.Duration.
func (t *Track) Length() time.Duration {
	if t == nil || t.Duration <= 0 {
		return 0
	}
	return time.Duration(t.Duration * float64(time.Second))
}

// Live reports whether the track has no known end.
func (t *Track) Live() bool {
	return t.Duration <= 0
}

// Link returns the best URL to show to users.
func (t *Track) Link() string {
	if t.WebpageURL != "" {
		return t.WebpageURL
	}
	return t.StreamURL
}

// FormatDuration renders d as m:ss or h:mm:ss.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Round(time.Second) / time.Second)
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
