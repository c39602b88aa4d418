package infrastructure

import (
	"fmt"
	"time"

	"github.com/disgoorg/disgolink/v3/lavalink"
	"github.com/sglre6355/jukebot/internal/modules/music_player/domain"
)

// trackFromLoadResult picks the single track a load result stands for.
// Playlists contribute their selected track, or the first one.
func trackFromLoadResult(result *lavalink.LoadResult) (*domain.Track, error) {
	if result == nil {
		return nil, domain.ErrTrackNotFound
	}

	switch data := result.Data.(type) {
	case lavalink.Track:
		return convertTrack(data), nil

	case lavalink.Search:
		if len(data) == 0 {
			return nil, domain.ErrTrackNotFound
		}
		return convertTrack(data[0]), nil

	case lavalink.Playlist:
		if len(data.Tracks) == 0 {
			return nil, domain.ErrTrackNotFound
		}
		selected := data.Info.SelectedTrack
		if selected < 0 || selected >= len(data.Tracks) {
			selected = 0
		}
		return convertTrack(data.Tracks[selected]), nil

	case lavalink.Exception:
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedSource, data.Message)

	default:
		return nil, domain.ErrTrackNotFound
	}
}

// convertTrack converts a Lavalink track to a domain Track.
func convertTrack(track lavalink.Track) *domain.Track {
	info := track.Info

	return &domain.Track{
		Encoded:    track.Encoded,
		Identifier: info.Identifier,
		Title:      info.Title,
		Artist:     info.Author,
		Duration:   time.Duration(info.Length) * time.Millisecond,
		URI:        getStringPtr(info.URI),
		ArtworkURL: getStringPtr(info.ArtworkURL),
		SourceName: info.SourceName,
		IsStream:   info.IsStream,
	}
}

func getStringPtr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// outcomeForEndReason maps a Lavalink end reason to a playback outcome.
// ok is false for reasons caused by our own player updates.
func outcomeForEndReason(reason lavalink.TrackEndReason, exception string) (domain.PlaybackOutcome, bool) {
	switch reason {
	case lavalink.TrackEndReasonFinished:
		return domain.Completed(), true
	case lavalink.TrackEndReasonLoadFailed:
		if exception == "" {
			exception = "track failed to load"
		}
		return domain.Failed(fmt.Errorf("%w: %s", domain.ErrPlaybackFailed, exception)), true
	case lavalink.TrackEndReasonCleanup:
		return domain.Cancelled(), true
	default:
		// Stopped and replaced are initiated by this adapter.
		return domain.PlaybackOutcome{}, false
	}
}
