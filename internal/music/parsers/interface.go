package parsers

import "context"

// Extractor turns a media page URL into a playable stream URL plus metadata.
type Extractor interface {
	Name() string
	Supports(url string) bool
	Extract(ctx context.Context, url string) (*Extraction, error)
}
