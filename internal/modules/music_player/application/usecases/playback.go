package usecases

import (
	"context"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/jukebot/internal/modules/music_player/domain"
)

// SkipInput contains the input for the Skip use case.
type SkipInput struct {
	GuildID               snowflake.ID
	NotificationChannelID snowflake.ID // Optional: updates notification channel if non-zero
}

// SkipOutput contains the result of the Skip use case.
type SkipOutput struct {
	Skipped domain.NowPlaying
	Next    *domain.QueueEntry // nil if the queue is empty
}

// Skip ends the current track and moves on to the next pending entry.
func (s *MusicService) Skip(ctx context.Context, input SkipInput) (*SkipOutput, error) {
	c, ok := s.registry.Get(input.GuildID)
	if !ok {
		return nil, ErrNotConnected
	}

	res, err := c.Skip(ctx, input.NotificationChannelID)
	if err != nil {
		return nil, notConnected(err)
	}

	return &SkipOutput{Skipped: res.Skipped, Next: res.Next}, nil
}
