// Package ytdlp extracts stream URLs from any site yt-dlp understands.
package ytdlp

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/JeudiD/Ningyo/internal/music/parsers"
	"github.com/JeudiD/Ningyo/internal/music/sources"
	"github.com/lrstanley/go-ytdlp"
)

const printTemplate = "%(url)s\t%(title)s\t%(uploader)s\t%(duration)s\t%(thumbnail)s\t%(webpage_url)s"

var ErrEmptyOutput = errors.New("yt-dlp returned no stream")

type Extractor struct {
	proxy string
}

func New(proxy string) *Extractor {
	return &Extractor{proxy: proxy}
}

func (e *Extractor) Name() string { return parsers.ExtractorYtdlp }

func (e *Extractor) Supports(url string) bool {
	return sources.IsURL(url)
}

func (e *Extractor) Extract(ctx context.Context, url string) (*parsers.Extraction, error) {
	cmd := ytdlp.New().
		Quiet().
		NoWarnings().
		IgnoreConfig().
		NoPlaylist().
		Format("bestaudio/best").
		Print(printTemplate)
	if e.proxy != "" {
		cmd.Proxy(e.proxy)
	}

	res, err := cmd.Run(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("[ytdlp] %w", err)
	}

	ex, err := parsePrint(res.Stdout)
	if err != nil {
		return nil, err
	}
	if ex.WebpageURL == "" {
		ex.WebpageURL = url
	}
	return ex, nil
}

// parsePrint reads the first usable line produced by printTemplate.
func parsePrint(stdout string) (*parsers.Extraction, error) {
	for _, line := range strings.Split(strings.TrimSpace(stdout), "\n") {
		parts := strings.Split(strings.TrimRight(line, "\r"), "\t")
		if len(parts) < 6 {
			continue
		}
		link := field(parts[0])
		if link == "" {
			continue
		}

		duration, _ := strconv.ParseFloat(field(parts[3]), 64)
		return &parsers.Extraction{
			StreamURL:  link,
			Title:      field(parts[1]),
			Artist:     field(parts[2]),
			Duration:   max(duration, 0),
			Thumbnail:  field(parts[4]),
			WebpageURL: field(parts[5]),
			Extractor:  parsers.ExtractorYtdlp,
		}, nil
	}
	return nil, ErrEmptyOutput
}

// field maps yt-dlp's "NA" placeholder to an empty string.
func field(s string) string {
	s = strings.TrimSpace(s)
	if s == "NA" {
		return ""
	}
	return s
}
