// Package torrent defines the provider abstraction for torrent sources:
// searching, detail pages and torrent-file downloads, plus the registry
// that holds the configured providers.
package torrent

import "context"

// RawResult is a provider-native search item, named exactly as the
// source site presents it. The ID is unique within one provider.
type RawResult struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Size  string `json:"size,omitempty"`
	Seeds int    `json:"seeds"`
	Peers int    `json:"peers"`
}

// Attribute is one key/value row from a detail page's technical block
// (video codec, audio tracks, duration and so on).
type Attribute struct {
	Key   string `json:"key"`
	Value string `json:"value,omitempty"`
}

// Ratings holds external rating figures scraped from a detail page.
type Ratings struct {
	IMDB      string `json:"imdb,omitempty"`
	Kinopoisk string `json:"kinopoisk,omitempty"`
}

// Detail is the parsed detail page for a single torrent.
type Detail struct {
	Name       string      `json:"name"`
	Year       string      `json:"year,omitempty"`
	Genres     []string    `json:"genres,omitempty"`
	Director   string      `json:"director,omitempty"`
	Actors     []string    `json:"actors,omitempty"`
	ImageURL   string      `json:"imageUrl,omitempty"`
	Ratings    Ratings     `json:"ratings"`
	Attributes []Attribute `json:"attributes,omitempty"`
}

// File is a torrent file fetched from a provider, stored on local disk
// for handoff to the download queue.
type File struct {
	Path string
	Name string
}

// Provider is a pluggable torrent source. Search must be safe to call
// concurrently; Detail and Download operate on IDs returned by Search
// and may require credentials supplied at construction time.
type Provider interface {
	Name() string
	Search(ctx context.Context, query string) ([]RawResult, error)
	Detail(ctx context.Context, id string) (*Detail, error)
	Download(ctx context.Context, id string) (*File, error)
}
