package source_resolver

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/JeudiD/Ningyo/internal/music/parsers"
	"github.com/JeudiD/Ningyo/internal/music/sources"
	"github.com/JeudiD/Ningyo/internal/music/track"
	"github.com/JeudiD/Ningyo/pkg/retrylimit"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSearcher struct {
	name    string
	results []sources.Result
	err     error
	block   bool

	mu      sync.Mutex
	queries []string
}

func (f *fakeSearcher) Name() string { return f.name }

func (f *fakeSearcher) Search(ctx context.Context, q string) ([]sources.Result, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	f.mu.Unlock()
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.results, f.err
}

func (f *fakeSearcher) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queries...)
}

type fakeExtractor struct {
	name     string
	supports func(string) bool
	err      error
	title    string
	calls    int
}

func (f *fakeExtractor) Name() string             { return f.name }
func (f *fakeExtractor) Supports(url string) bool { return f.supports == nil || f.supports(url) }

func (f *fakeExtractor) Extract(_ context.Context, url string) (*parsers.Extraction, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &parsers.Extraction{
		StreamURL:  "stream:" + url,
		Title:      f.title,
		WebpageURL: url,
		Duration:   180,
		Extractor:  f.name,
	}, nil
}

type fakeTranslator struct {
	query string
	err   error
}

func (f *fakeTranslator) Match(input string) bool { return strings.Contains(input, "open.spotify.com/track") }
func (f *fakeTranslator) Translate(context.Context, string) (string, error) {
	return f.query, f.err
}

func testConfig() Config {
	retry := retrylimit.DefaultRetryConfig()
	retry.MaxAttempts = 1
	return Config{Timeout: time.Second, Retry: retry, Logger: zerolog.Nop()}
}

func hit(url, title string) []sources.Result {
	return []sources.Result{{URL: url, Title: title}, {URL: url + "-second", Title: "second"}}
}

func TestResolveFallsBackToSecondary(t *testing.T) {
	primary := &fakeSearcher{name: "ytmusic", err: errors.New("network down")}
	secondary := &fakeSearcher{name: "youtube", results: hit("https://yt/1", "Song")}
	ext := &fakeExtractor{name: "ytdlp"}

	r := New(testConfig(), []Searcher{primary, secondary}, []parsers.Extractor{ext}, nil)
	req := &track.Requester{ID: "u1", Name: "alice"}

	tr, err := r.Resolve(context.Background(), "some song", req)
	require.NoError(t, err)
	assert.Equal(t, "stream:https://yt/1", tr.StreamURL)
	assert.Equal(t, "Song", tr.Title)
	assert.Equal(t, "youtube", tr.Source)
	assert.Equal(t, 180.0, tr.Duration)
	assert.Same(t, req, tr.Requester)
	assert.Equal(t, []string{"some song"}, primary.calls())
}

func TestResolveEmptyPrimaryFallsBack(t *testing.T) {
	primary := &fakeSearcher{name: "ytmusic"}
	secondary := &fakeSearcher{name: "youtube", results: hit("https://yt/2", "Other")}
	r := New(testConfig(), []Searcher{primary, secondary}, []parsers.Extractor{&fakeExtractor{name: "ytdlp", title: "Extracted"}}, nil)

	tr, err := r.Resolve(context.Background(), "q", nil)
	require.NoError(t, err)
	assert.Equal(t, "Extracted", tr.Title)
	assert.Equal(t, "https://yt/2", tr.WebpageURL)
}

func TestResolvePrimaryWins(t *testing.T) {
	primary := &fakeSearcher{name: "ytmusic", results: hit("https://ytm/1", "First")}
	secondary := &fakeSearcher{name: "youtube", results: hit("https://yt/1", "Nope")}
	r := New(testConfig(), []Searcher{primary, secondary}, []parsers.Extractor{&fakeExtractor{name: "kkdai"}}, nil)

	tr, err := r.Resolve(context.Background(), "q", nil)
	require.NoError(t, err)
	assert.Equal(t, "First", tr.Title)
	assert.Empty(t, secondary.calls())
}

func TestResolveNoResults(t *testing.T) {
	primary := &fakeSearcher{name: "ytmusic", err: errors.New("boom")}
	secondary := &fakeSearcher{name: "youtube"}
	r := New(testConfig(), []Searcher{primary, secondary}, []parsers.Extractor{&fakeExtractor{name: "ytdlp"}}, nil)

	_, err := r.Resolve(context.Background(), "nothing", nil)
	assert.ErrorIs(t, err, ErrNoResults)

	_, err = r.Resolve(context.Background(), "   ", nil)
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestResolveExtractionFailureFallsBack(t *testing.T) {
	primary := &fakeSearcher{name: "ytmusic", results: hit("https://ytm/bad", "Bad")}
	secondary := &fakeSearcher{name: "youtube", results: hit("https://yt/good", "Good")}
	ext := &fakeExtractor{name: "kkdai", supports: func(u string) bool { return !strings.Contains(u, "bad") }}

	r := New(testConfig(), []Searcher{primary, secondary}, []parsers.Extractor{ext}, nil)
	tr, err := r.Resolve(context.Background(), "q", nil)
	require.NoError(t, err)
	assert.Equal(t, "Good", tr.Title)
}

func TestResolveTranslatesShareLinks(t *testing.T) {
	primary := &fakeSearcher{name: "ytmusic", results: hit("https://ytm/1", "Never Gonna Give You Up")}
	r := New(testConfig(), []Searcher{primary}, []parsers.Extractor{&fakeExtractor{name: "kkdai"}}, &fakeTranslator{query: "Never Gonna Give You Up Rick Astley"})

	_, err := r.Resolve(context.Background(), "https://open.spotify.com/track/abc", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Never Gonna Give You Up Rick Astley"}, primary.calls())

	r = New(testConfig(), []Searcher{primary}, nil, &fakeTranslator{err: errors.New("api down")})
	_, err = r.Resolve(context.Background(), "https://open.spotify.com/track/abc", nil)
	assert.ErrorContains(t, err, "api down")
}

func TestResolveURLUsesExtractorsInOrder(t *testing.T) {
	search := &fakeSearcher{name: "ytmusic"}
	skipped := &fakeExtractor{name: "kkdai", supports: func(string) bool { return false }}
	failing := &fakeExtractor{name: "ytdlp", err: errors.New("unsupported site")}
	direct := &fakeExtractor{name: parsers.ExtractorDirect}

	r := New(testConfig(), []Searcher{search}, []parsers.Extractor{skipped, failing, direct}, nil)
	tr, err := r.Resolve(context.Background(), "https://radio.example.com/live", nil)
	require.NoError(t, err)

	assert.Equal(t, "stream:https://radio.example.com/live", tr.StreamURL)
	assert.Equal(t, sources.SourceRadio, tr.Source)
	assert.Equal(t, 0, skipped.calls)
	assert.Equal(t, 1, failing.calls)
	assert.Empty(t, search.calls())
}

func TestResolveTimesOutHungProvider(t *testing.T) {
	cfg := testConfig()
	cfg.Timeout = 20 * time.Millisecond

	hung := &fakeSearcher{name: "ytmusic", block: true}
	secondary := &fakeSearcher{name: "youtube", results: hit("https://yt/1", "Song")}
	r := New(cfg, []Searcher{hung, secondary}, []parsers.Extractor{&fakeExtractor{name: "ytdlp"}}, nil)

	start := time.Now()
	tr, err := r.Resolve(context.Background(), "q", nil)
	require.NoError(t, err)
	assert.Equal(t, "Song", tr.Title)
	assert.Less(t, time.Since(start), time.Second)
}
