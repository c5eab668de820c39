// Package ffmpeg handles direct media links and runs the decoder process
// that turns any stream URL into raw PCM.
package ffmpeg

import (
	"context"
	"fmt"

	"github.com/JeudiD/Ningyo/internal/music/parsers"
	"github.com/JeudiD/Ningyo/internal/music/sources"
	"github.com/JeudiD/Ningyo/internal/music/sources/radio"
)

// Extractor accepts links that already point at audio (radio streams, files,
// HLS playlists). The URL is played as-is.
type Extractor struct {
	resolver *radio.Resolver
}

func New() *Extractor {
	return &Extractor{resolver: radio.NewResolver()}
}

func (e *Extractor) Name() string { return parsers.ExtractorDirect }

func (e *Extractor) Supports(url string) bool {
	return sources.IsURL(url)
}

func (e *Extractor) Extract(ctx context.Context, url string) (*parsers.Extraction, error) {
	_, finalURL, err := e.resolver.Probe(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("[ffmpeg] %w", err)
	}
	return &parsers.Extraction{
		StreamURL:  finalURL,
		Title:      radio.TitleFromURL(finalURL),
		WebpageURL: url,
		Extractor:  parsers.ExtractorDirect,
	}, nil
}
