package domain

// TrackSource represents the origin platform of a track.
type TrackSource string

const (
	TrackSourceYouTube    TrackSource = "youtube"
	TrackSourceSoundCloud TrackSource = "soundcloud"
	TrackSourceTwitch     TrackSource = "twitch"
	TrackSourceHTTP       TrackSource = "http"
	TrackSourceOther      TrackSource = "other"
)

// ParseTrackSource converts a Lavalink source name to a TrackSource.
func ParseTrackSource(name string) TrackSource {
	switch name {
	case "youtube":
		return TrackSourceYouTube
	case "soundcloud":
		return TrackSourceSoundCloud
	case "twitch":
		return TrackSourceTwitch
	case "http":
		return TrackSourceHTTP
	default:
		return TrackSourceOther
	}
}

// Color returns the embed accent color associated with the source.
func (s TrackSource) Color() int {
	switch s {
	case TrackSourceYouTube:
		return 0xFF0000
	case TrackSourceSoundCloud:
		return 0xFF5500
	case TrackSourceTwitch:
		return 0x9146FF
	default:
		return 0x5865F2
	}
}

// IconURL returns a small icon representing the source, or "" when there is none.
func (s TrackSource) IconURL() string {
	switch s {
	case TrackSourceYouTube:
		return "https://www.youtube.com/s/desktop/favicon.ico"
	case TrackSourceSoundCloud:
		return "https://a-v2.sndcdn.com/assets/images/sc-icons/favicon-2cadd14bdb.ico"
	case TrackSourceTwitch:
		return "https://static.twitchcdn.net/assets/favicon-32-e29e246c157142c94346.png"
	default:
		return ""
	}
}
