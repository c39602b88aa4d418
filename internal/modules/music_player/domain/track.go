package domain

import (
	"strconv"
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// Track is a resolved, playable audio reference plus display metadata.
// A Track is not modified after the resolver returns it; the controller
// stamps requester fields on a copy.
type Track struct {
	Encoded    string // opaque source handle (Lavalink encoded track data)
	Identifier string // source specific id, e.g. a YouTube video id
	Title      string
	Artist     string
	Duration   time.Duration // hint only, zero when unknown
	URI        string
	ArtworkURL string
	SourceName string // e.g., "youtube", "soundcloud"
	IsStream   bool

	RequesterID   snowflake.ID
	RequesterName string
}

// Source returns the parsed TrackSource for this track.
func (t *Track) Source() TrackSource {
	return ParseTrackSource(t.SourceName)
}

// IsValid returns true if the track has the minimum required fields.
func (t *Track) IsValid() bool {
	return t.Encoded != "" && t.Title != ""
}

// WithRequester returns a copy of the track attributed to the given user.
func (t Track) WithRequester(id snowflake.ID, name string) *Track {
	t.RequesterID = id
	t.RequesterName = name
	return &t
}

// FormattedDuration returns the duration as a human-readable string (mm:ss or hh:mm:ss).
func (t *Track) FormattedDuration() string {
	if t.IsStream {
		return "LIVE"
	}
	if t.Duration <= 0 {
		return "?"
	}

	totalSeconds := int(t.Duration.Seconds())
	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60
	seconds := totalSeconds % 60

	if hours > 0 {
		return pad(hours) + ":" + pad(minutes) + ":" + pad(seconds)
	}
	return pad(minutes) + ":" + pad(seconds)
}

func pad(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}
