package youtube

import (
	"context"
	"fmt"

	"github.com/JeudiD/Ningyo/internal/music/sources"
	"github.com/ppalone/ytsearch"
)

// Source searches regular YouTube. It is the fallback provider.
type Source struct {
	client *ytsearch.Client
}

func New() *Source {
	return &Source{client: ytsearch.NewClient(nil)}
}

func (y *Source) Name() string {
	return sources.SourceYouTube
}

// Search returns the video results for query in provider order.
func (y *Source) Search(ctx context.Context, query string) ([]sources.Result, error) {
	res, err := y.client.Search(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("youtube search: %w", err)
	}

	out := make([]sources.Result, 0, len(res.Results))
	for _, v := range res.Results {
		if v.VideoID == "" {
			continue
		}
		out = append(out, sources.Result{
			URL:      WatchURL(v.VideoID),
			Title:    v.Title,
			Artist:   v.Channel,
			Duration: ParseDurationColon(v.Duration),
			Source:   sources.SourceYouTube,
		})
	}
	return out, nil
}
