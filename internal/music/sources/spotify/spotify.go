// Package spotify translates Spotify share links into a "<title> <artist>"
// search query. Spotify streams are DRM protected, so the actual audio is
// always found through the search providers.
package spotify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/JeudiD/Ningyo/pkg/retrylimit"
	spotifyapi "github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

var trackLinkRegex = regexp.MustCompile(`^https?://open\.spotify\.com/(?:intl-[a-z-]+/)?track/([A-Za-z0-9]+)`)

var ErrNotTrackLink = errors.New("not a spotify track link")

const requestTimeout = 15 * time.Second

// Translator resolves share links. With client credentials it uses the Web
// API (title and artists); without them it falls back to the public oEmbed
// endpoint, which only knows the title.
type Translator struct {
	clientID     string
	clientSecret string
	httpClient   *http.Client

	// TokenURL and APIURL point the Web API client elsewhere, APIURL with a
	// trailing slash.
	TokenURL  string
	APIURL    string
	OEmbedURL string

	once   sync.Once
	client *spotifyapi.Client
}

func New(clientID, clientSecret string) *Translator {
	return &Translator{
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   &http.Client{Timeout: requestTimeout},
		TokenURL:     spotifyauth.TokenURL,
		OEmbedURL:    "https://open.spotify.com/oembed",
	}
}

// Match reports whether input is a Spotify track share link.
func (t *Translator) Match(input string) bool {
	return trackLinkRegex.MatchString(strings.TrimSpace(input))
}

// TrackID extracts the track ID from a share link.
func TrackID(link string) (string, bool) {
	m := trackLinkRegex.FindStringSubmatch(strings.TrimSpace(link))
	if len(m) < 2 {
		return "", false
	}
	return m[1], true
}

// Translate turns a share link into a free-text query.
func (t *Translator) Translate(ctx context.Context, link string) (string, error) {
	id, ok := TrackID(link)
	if !ok {
		return "", ErrNotTrackLink
	}

	if t.clientID != "" && t.clientSecret != "" {
		return t.lookupTrack(ctx, id)
	}
	return t.lookupOEmbed(ctx, strings.TrimSpace(link))
}

// api lazily builds the Web API client. The token source caches the access
// token and refreshes it on expiry.
func (t *Translator) api() *spotifyapi.Client {
	t.once.Do(func() {
		cc := &clientcredentials.Config{
			ClientID:     t.clientID,
			ClientSecret: t.clientSecret,
			TokenURL:     t.TokenURL,
			AuthStyle:    oauth2.AuthStyleInHeader,
		}
		tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, t.httpClient)
		httpClient := cc.Client(tokenCtx)
		httpClient.Timeout = requestTimeout

		var opts []spotifyapi.ClientOption
		if t.APIURL != "" {
			opts = append(opts, spotifyapi.WithBaseURL(t.APIURL))
		}
		t.client = spotifyapi.New(httpClient, opts...)
	})
	return t.client
}

func (t *Translator) lookupTrack(ctx context.Context, id string) (string, error) {
	tr, err := t.api().GetTrack(ctx, spotifyapi.ID(id))
	if err != nil {
		return "", fmt.Errorf("spotify track %s: %w", id, statusError(err))
	}
	if tr.Name == "" {
		return "", fmt.Errorf("spotify track %s: empty name", id)
	}

	query := tr.Name
	if len(tr.Artists) > 0 && tr.Artists[0].Name != "" {
		query += " " + tr.Artists[0].Name
	}
	return query, nil
}

// statusError maps Web API errors onto retrylimit.StatusError so the
// resolver's limiter backs off on 429 and 5xx.
func statusError(err error) error {
	var apiErr spotifyapi.Error
	if errors.As(err, &apiErr) && apiErr.Status != 0 {
		return &retrylimit.StatusError{Code: apiErr.Status, Body: apiErr.Message}
	}
	var apiErrPtr *spotifyapi.Error
	if errors.As(err, &apiErrPtr) && apiErrPtr.Status != 0 {
		return &retrylimit.StatusError{Code: apiErrPtr.Status, Body: apiErrPtr.Message}
	}
	var oauthErr *oauth2.RetrieveError
	if errors.As(err, &oauthErr) && oauthErr.Response != nil {
		return &retrylimit.StatusError{Code: oauthErr.Response.StatusCode, Body: string(oauthErr.Body)}
	}
	return err
}

type oembedResponse struct {
	Title string `json:"title"`
}

func (t *Translator) lookupOEmbed(ctx context.Context, link string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.OEmbedURL+"?url="+url.QueryEscape(link), nil)
	if err != nil {
		return "", fmt.Errorf("create oembed request: %w", err)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("spotify oembed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("spotify oembed: %w", &retrylimit.StatusError{Code: resp.StatusCode, Body: string(body)})
	}

	var oe oembedResponse
	if err := json.NewDecoder(resp.Body).Decode(&oe); err != nil {
		return "", fmt.Errorf("spotify oembed: decode response: %w", err)
	}
	if oe.Title == "" {
		return "", errors.New("spotify oembed: empty title")
	}
	return oe.Title, nil
}
