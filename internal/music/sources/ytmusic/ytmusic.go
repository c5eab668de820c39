// Package ytmusic is the primary search provider, backed by the YouTube Music
// search-as-you-type API.
package ytmusic

import (
	"context"
	"fmt"

	"github.com/JeudiD/Ningyo/internal/music/sources"
	"github.com/JeudiD/Ningyo/internal/music/sources/youtube"
	"github.com/raitonoberu/ytmusic"
)

type Source struct{}

func New() *Source {
	return &Source{}
}

func (s *Source) Name() string {
	return sources.SourceYouTubeMusic
}

type searchResult struct {
	results []sources.Result
	err     error
}

// Search returns track results for query. The underlying client has no
// context support, so the call runs in its own goroutine and ctx only bounds
// how long we wait for it.
func (s *Source) Search(ctx context.Context, query string) ([]sources.Result, error) {
	ch := make(chan searchResult, 1)
	go func() {
		res, err := ytmusic.TrackSearch(query).Next()
		if err != nil {
			ch <- searchResult{err: err}
			return
		}

		out := make([]sources.Result, 0, len(res.Tracks))
		for _, t := range res.Tracks {
			if t.VideoID == "" {
				continue
			}
			r := sources.Result{
				URL:    youtube.WatchURL(t.VideoID),
				Title:  t.Title,
				Source: sources.SourceYouTubeMusic,
			}
			if len(t.Artists) > 0 {
				r.Artist = t.Artists[0].Name
			}
			out = append(out, r)
		}
		ch <- searchResult{results: out}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.err != nil {
			return nil, fmt.Errorf("ytmusic search: %w", r.err)
		}
		return r.results, nil
	}
}
