package ports

import (
	"context"

	"github.com/sglre6355/jukebot/internal/modules/music_player/domain"
)

// TrackResolver turns a URL or search query into a playable track.
// Implementations may be slow (network bound) and must honor ctx.
// Failures wrap domain.ErrTrackNotFound, domain.ErrResolverUnavailable
// or domain.ErrUnsupportedSource.
type TrackResolver interface {
	Resolve(ctx context.Context, query string) (*domain.Track, error)
}
