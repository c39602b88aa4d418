package ports

import (
	"context"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/jukebot/internal/modules/music_player/domain"
)

// AudioSink streams tracks into a guild's voice connection.
type AudioSink interface {
	// Play starts streaming track. The returned channel yields exactly one
	// outcome for this call. Cancelling ctx stops the stream best-effort and
	// yields domain.OutcomeCancelled.
	Play(ctx context.Context, guildID snowflake.ID, track *domain.Track) (<-chan domain.PlaybackOutcome, error)
}
