package youtube

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	youtubeRegex = regexp.MustCompile(`^(?:https?://)?(?:www\.|m\.|music\.)?(youtube\.com|youtu\.be)/\S+`)
	videoIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]{11}$`)
)

// IsYouTubeURL reports whether input points at youtube.com, music.youtube.com or youtu.be.
func IsYouTubeURL(input string) bool {
	return youtubeRegex.MatchString(input)
}

// WatchURL builds the canonical watch link for a video ID.
func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}

// ExtractVideoID returns the 11 character video ID of a YouTube link.
func ExtractVideoID(raw string) (string, bool) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}

	var id string
	switch host := strings.TrimPrefix(u.Hostname(), "www."); host {
	case "youtu.be":
		id = strings.Trim(u.Path, "/")
	case "youtube.com", "m.youtube.com", "music.youtube.com":
		switch {
		case u.Path == "/watch":
			id = u.Query().Get("v")
		case strings.HasPrefix(u.Path, "/shorts/"), strings.HasPrefix(u.Path, "/embed/"), strings.HasPrefix(u.Path, "/live/"):
			parts := strings.Split(strings.Trim(u.Path, "/"), "/")
			if len(parts) == 2 {
				id = parts[1]
			}
		}
	}

	if !videoIDRegex.MatchString(id) {
		return "", false
	}
	return id, true
}

// CleanVideoURL strips playlist, timestamp and tracking parameters from a
// video link. Links that are not single videos are returned unchanged.
func CleanVideoURL(raw string) string {
	id, ok := ExtractVideoID(raw)
	if !ok {
		return raw
	}
	return WatchURL(id)
}

// ParseDurationColon parses "3:20" or "1:05:20".
func ParseDurationColon(s string) time.Duration {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0
	}

	total := 0
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0
		}
		total = total*60 + n
	}
	return time.Duration(total) * time.Second
}
