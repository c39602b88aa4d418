package domain

import (
	"strings"
)

// SearchSource is the Lavalink search prefix used for non-URL queries.
type SearchSource string

const (
	SourceYouTube      SearchSource = "ytsearch"
	SourceYouTubeMusic SearchSource = "ytmsearch"
	SourceSoundCloud   SearchSource = "scsearch"
	// SourceDirect marks a URL that is loaded as-is.
	SourceDirect SearchSource = ""
)

// ParseSearchSource converts a configured source name to a SearchSource.
// Unknown names fall back to YouTube search.
func ParseSearchSource(name string) SearchSource {
	switch SearchSource(strings.ToLower(strings.TrimSpace(name))) {
	case SourceYouTubeMusic:
		return SourceYouTubeMusic
	case SourceSoundCloud:
		return SourceSoundCloud
	default:
		return SourceYouTube
	}
}

// SearchQuery is a user query normalized for the track resolver.
type SearchQuery struct {
	Query  string
	Source SearchSource
	IsURL  bool
}

// NewSearchQuery normalizes user input.
// URLs are loaded directly, a query that already carries a known search
// prefix ("scsearch:foo") keeps it, anything else searches defaultSource.
func NewSearchQuery(input string, defaultSource SearchSource) SearchQuery {
	input = strings.TrimSpace(input)

	if isURL(input) {
		return SearchQuery{Query: input, Source: SourceDirect, IsURL: true}
	}

	if prefix, rest, ok := strings.Cut(input, ":"); ok {
		switch src := SearchSource(prefix); src {
		case SourceYouTube, SourceYouTubeMusic, SourceSoundCloud:
			return SearchQuery{Query: strings.TrimSpace(rest), Source: src}
		}
	}

	if defaultSource == SourceDirect {
		defaultSource = SourceYouTube
	}

	return SearchQuery{Query: input, Source: defaultSource}
}

// Identifier returns the string handed to the Lavalink loadtracks endpoint.
func (q SearchQuery) Identifier() string {
	if q.IsURL {
		return q.Query
	}
	return string(q.Source) + ":" + q.Query
}

// IsValid reports whether there is anything to search for.
func (q SearchQuery) IsValid() bool {
	return q.Query != ""
}

func isURL(input string) bool {
	return strings.HasPrefix(input, "http://") ||
		strings.HasPrefix(input, "https://") ||
		strings.HasPrefix(input, "www.")
}
