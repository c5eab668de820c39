// Package kkdai extracts YouTube audio stream URLs natively, without spawning
// yt-dlp.
package kkdai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/JeudiD/Ningyo/internal/music/parsers"
	ytsrc "github.com/JeudiD/Ningyo/internal/music/sources/youtube"
	_ "github.com/bdandy/go-socks4"
	youtube "github.com/kkdai/youtube/v2"
	"github.com/rs/zerolog"
	"golang.org/x/net/proxy"
)

var ErrNoAudioFormats = errors.New("no audio formats found for video")

type Extractor struct {
	client *youtube.Client
}

// New returns an extractor whose HTTP traffic goes through proxyStr when set
// (http, https, socks5 or socks4 scheme).
func New(proxyStr string, logger zerolog.Logger) *Extractor {
	return &Extractor{client: NewClient(proxyStr, logger)}
}

func (e *Extractor) Name() string { return parsers.ExtractorKkdai }

func (e *Extractor) Supports(rawURL string) bool {
	_, ok := ytsrc.ExtractVideoID(rawURL)
	return ok
}

func (e *Extractor) Extract(ctx context.Context, rawURL string) (*parsers.Extraction, error) {
	videoID, ok := ytsrc.ExtractVideoID(rawURL)
	if !ok {
		return nil, fmt.Errorf("[kkdai] unsupported URL %q", rawURL)
	}

	video, err := e.client.GetVideoContext(ctx, videoID)
	if err != nil {
		return nil, fmt.Errorf("[kkdai] youtube client error: %w", err)
	}

	formats := audioFormats(video.Formats)
	if len(formats) == 0 {
		return nil, ErrNoAudioFormats
	}

	link, err := e.client.GetStreamURLContext(ctx, video, &formats[0])
	if err != nil {
		return nil, fmt.Errorf("[kkdai] get stream URL error: %w", err)
	}

	ex := &parsers.Extraction{
		StreamURL:  link,
		Title:      video.Title,
		Artist:     video.Author,
		WebpageURL: ytsrc.WatchURL(videoID),
		Duration:   video.Duration.Seconds(),
		Extractor:  parsers.ExtractorKkdai,
	}
	if n := len(video.Thumbnails); n > 0 {
		ex.Thumbnail = video.Thumbnails[n-1].URL
	}
	return ex, nil
}

// audioFormats prefers audio-only formats with the highest bitrate and falls
// back to muxed formats that carry audio.
func audioFormats(all youtube.FormatList) youtube.FormatList {
	withAudio := all.WithAudioChannels()

	var audioOnly youtube.FormatList
	for _, f := range withAudio {
		if strings.HasPrefix(f.MimeType, "audio/") {
			audioOnly = append(audioOnly, f)
		}
	}
	if len(audioOnly) == 0 {
		return withAudio
	}

	sort.SliceStable(audioOnly, func(i, j int) bool {
		return audioOnly[i].Bitrate > audioOnly[j].Bitrate
	})
	return audioOnly
}

// NewClient builds a youtube client, optionally behind a proxy.
func NewClient(proxyStr string, logger zerolog.Logger) *youtube.Client {
	plain := &youtube.Client{HTTPClient: &http.Client{Timeout: 15 * time.Second}}
	if proxyStr == "" {
		return plain
	}

	proxyURL, err := url.Parse(proxyStr)
	if err != nil {
		logger.Warn().Err(err).Msg("Invalid proxy, using direct connection")
		return plain
	}

	transport, err := proxyTransport(proxyURL)
	if err != nil {
		logger.Warn().Err(err).Str("scheme", proxyURL.Scheme).Msg("Proxy unusable, using direct connection")
		return plain
	}

	logger.Info().Str("scheme", proxyURL.Scheme).Str("host", proxyURL.Host).Msg("Using proxy for YouTube extraction")
	return &youtube.Client{
		HTTPClient: &http.Client{Timeout: 15 * time.Second, Transport: transport},
	}
}

// proxyTransport supports http, https, socks5 and socks4 proxies.
func proxyTransport(proxyURL *url.URL) (*http.Transport, error) {
	forward := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 10 * time.Second,
	}

	switch proxyURL.Scheme {
	case "http", "https":
		return &http.Transport{Proxy: http.ProxyURL(proxyURL)}, nil
	case "socks5":
		var auth *proxy.Auth
		if proxyURL.User != nil {
			auth = &proxy.Auth{User: proxyURL.User.Username()}
			auth.Password, _ = proxyURL.User.Password()
		}
		dialer, err := proxy.SOCKS5("tcp", proxyURL.Host, auth, forward)
		if err != nil {
			return nil, fmt.Errorf("socks5 dialer: %w", err)
		}
		return dialerTransport(dialer), nil
	case "socks4":
		// the scheme is registered with x/net/proxy by go-socks4
		dialer, err := proxy.FromURL(proxyURL, forward)
		if err != nil {
			return nil, fmt.Errorf("socks4 dialer: %w", err)
		}
		return dialerTransport(dialer), nil
	default:
		return nil, fmt.Errorf("unsupported proxy scheme %q", proxyURL.Scheme)
	}
}

func dialerTransport(dialer proxy.Dialer) *http.Transport {
	return &http.Transport{
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			if cd, ok := dialer.(proxy.ContextDialer); ok {
				return cd.DialContext(ctx, network, addr)
			}
			return dialer.Dial(network, addr)
		},
	}
}
