// Package radio recognises direct media links (internet radio, plain audio
// files, HLS playlists) that can be handed to the decoder as-is.
package radio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"
)

var validContentTypes = []string{
	"audio/",
	"video/",
	"application/vnd.apple.mpegurl",
	"application/x-mpegurl",
	"application/ogg",
	"application/x-scpls",
	"application/xspf+xml",
	"application/octet-stream",
}

var ErrNotStream = errors.New("not a media stream")

// Resolver validates streaming links by checking headers and extension heuristics.
type Resolver struct {
	Client *http.Client
}

func NewResolver() *Resolver {
	return &Resolver{
		Client: &http.Client{
			Timeout: 5 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
	}
}

// Probe returns the content type and final URL of a playable stream, or
// ErrNotStream when the server answers with something else.
func (r *Resolver) Probe(ctx context.Context, rawURL string) (contentType, finalURL string, err error) {
	contentType, finalURL, err = r.fetchContentType(ctx, rawURL)
	if err != nil {
		return "", "", fmt.Errorf("fetch content type: %w", err)
	}

	if isAllowedType(contentType) || isLikelyPlaylist(finalURL) || hasMediaExtension(finalURL) {
		return contentType, finalURL, nil
	}
	return contentType, finalURL, fmt.Errorf("%w: content-type %q, url %s", ErrNotStream, contentType, finalURL)
}

func (r *Resolver) fetchContentType(ctx context.Context, rawURL string) (string, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return "", "", fmt.Errorf("request creation failed: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := r.Client.Do(req)
	if err == nil && resp.StatusCode < 400 {
		resp.Body.Close()
		return resp.Header.Get("Content-Type"), resp.Request.URL.String(), nil
	}
	if resp != nil {
		resp.Body.Close()
	}

	// some radio servers reject HEAD; a GET is cut off after the headers
	req, err = http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", "", fmt.Errorf("request creation failed: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err = r.Client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("GET fallback failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.CopyN(io.Discard, resp.Body, 512)

	if resp.StatusCode >= 400 {
		return "", "", fmt.Errorf("GET fallback failed: status %d", resp.StatusCode)
	}
	return resp.Header.Get("Content-Type"), resp.Request.URL.String(), nil
}

func isAllowedType(contentType string) bool {
	if idx := strings.Index(contentType, ";"); idx != -1 {
		contentType = contentType[:idx]
	}
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	for _, allowed := range validContentTypes {
		if strings.HasPrefix(contentType, allowed) {
			return true
		}
	}
	return false
}

func isLikelyPlaylist(rawURL string) bool {
	switch urlExt(rawURL) {
	case ".m3u", ".m3u8", ".pls", ".xspf", ".asx":
		return true
	}
	return false
}

func hasMediaExtension(rawURL string) bool {
	switch urlExt(rawURL) {
	case ".mp3", ".ogg", ".opus", ".flac", ".wav", ".m4a", ".aac", ".webm":
		return true
	}
	return false
}

func urlExt(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(path.Ext(u.Path))
}

// TitleFromURL derives a display title from the last path segment.
func TitleFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	base := path.Base(u.Path)
	if base == "." || base == "/" || base == "" {
		return u.Host
	}
	if unescaped, err := url.PathUnescape(base); err == nil {
		base = unescaped
	}
	return base
}
