// Package source_resolver turns a user query (free text, page URL or share
// link) into a playable track.
package source_resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/JeudiD/Ningyo/internal/music/parsers"
	"github.com/JeudiD/Ningyo/internal/music/sources"
	"github.com/JeudiD/Ningyo/internal/music/sources/youtube"
	"github.com/JeudiD/Ningyo/internal/music/track"
	"github.com/JeudiD/Ningyo/pkg/retrylimit"
	"github.com/rs/zerolog"
)

var (
	ErrNoResults  = errors.New("no results")
	ErrEmptyQuery = errors.New("empty query")
)

// Searcher finds candidate pages for free text.
type Searcher interface {
	Name() string
	Search(ctx context.Context, query string) ([]sources.Result, error)
}

// Translator rewrites third-party share links into a free-text query.
type Translator interface {
	Match(input string) bool
	Translate(ctx context.Context, link string) (string, error)
}

type Config struct {
	// Timeout bounds every provider call, retries included. Zero disables it.
	Timeout time.Duration
	Retry   retrylimit.RetryConfig
	Limiter *retrylimit.AdaptiveLimiter
	Logger  zerolog.Logger
}

type SourceResolver struct {
	cfg        Config
	searchers  []Searcher
	extractors []parsers.Extractor
	translator Translator
}

// New builds a resolver. Searchers are tried in order (primary first) and so
// are extractors. translator may be nil.
func New(cfg Config, searchers []Searcher, extractors []parsers.Extractor, translator Translator) *SourceResolver {
	return &SourceResolver{
		cfg:        cfg,
		searchers:  searchers,
		extractors: extractors,
		translator: translator,
	}
}

// Resolve returns the first playable match for query. It never touches any
// queue; failures are reported with ErrNoResults or the translation error.
func (r *SourceResolver) Resolve(ctx context.Context, query string, requester *track.Requester) (*track.Track, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	log := r.cfg.Logger.With().Str("query", query).Logger()

	if r.translator != nil && r.translator.Match(query) {
		var translated string
		err := r.call(ctx, func(ctx context.Context) error {
			var err error
			translated, err = r.translator.Translate(ctx, query)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("translate share link: %w", err)
		}
		log.Debug().Str("translated", translated).Msg("Share link translated")
		query = translated
	}

	if sources.IsURL(query) {
		ex, err := r.extract(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("%w for %s: %w", ErrNoResults, query, err)
		}
		return ex.Track(query, sourceForURL(query, ex), requester), nil
	}

	var errs []error
	for _, s := range r.searchers {
		var results []sources.Result
		err := r.call(ctx, func(ctx context.Context) error {
			var err error
			results, err = s.Search(ctx, query)
			return err
		})
		if err == nil && len(results) == 0 {
			err = fmt.Errorf("%s: empty result", s.Name())
		}
		if err != nil {
			log.Warn().Err(err).Str("provider", s.Name()).Msg("Search failed, trying next provider")
			errs = append(errs, err)
			continue
		}

		first := results[0]
		ex, err := r.extract(ctx, first.URL)
		if err != nil {
			log.Warn().Err(err).Str("provider", s.Name()).Str("url", first.URL).Msg("Extraction failed, trying next provider")
			errs = append(errs, err)
			continue
		}

		if ex.Duration == 0 && first.Duration > 0 {
			ex.Duration = first.Duration.Seconds()
		}
		if ex.WebpageURL == "" {
			ex.WebpageURL = first.URL
		}
		return ex.Track(first.DisplayTitle(), s.Name(), requester), nil
	}

	if err := ctx.Err(); err != nil {
		errs = append(errs, err)
	}
	return nil, fmt.Errorf("%w for %q: %w", ErrNoResults, query, errors.Join(errs...))
}

// extract runs the first extractor that supports url and succeeds.
func (r *SourceResolver) extract(ctx context.Context, url string) (*parsers.Extraction, error) {
	var errs []error
	for _, e := range r.extractors {
		if !e.Supports(url) {
			continue
		}

		var ex *parsers.Extraction
		err := r.call(ctx, func(ctx context.Context) error {
			var err error
			ex, err = e.Extract(ctx, url)
			return err
		})
		if err == nil && ex != nil && ex.StreamURL != "" {
			return ex, nil
		}
		if err == nil {
			err = errors.New("empty stream URL")
		}

		r.cfg.Logger.Debug().Err(err).Str("extractor", e.Name()).Str("url", url).Msg("Extractor failed")
		errs = append(errs, fmt.Errorf("%s: %w", e.Name(), err))
	}

	if len(errs) == 0 {
		return nil, fmt.Errorf("no extractor supports %s", url)
	}
	return nil, errors.Join(errs...)
}

func (r *SourceResolver) call(ctx context.Context, fn func(ctx context.Context) error) error {
	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}
	return retrylimit.Do(ctx, r.cfg.Limiter, r.cfg.Retry, fn)
}

func sourceForURL(url string, ex *parsers.Extraction) string {
	if youtube.IsYouTubeURL(url) {
		return sources.SourceYouTube
	}
	if ex.Extractor == parsers.ExtractorDirect {
		return sources.SourceRadio
	}
	return ex.Extractor
}
