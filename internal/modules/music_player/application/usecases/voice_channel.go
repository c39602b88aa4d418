package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/jukebot/internal/modules/music_player/application/player"
	"github.com/sglre6355/jukebot/internal/modules/music_player/domain"
)

// JoinInput contains the input for the Join use case.
type JoinInput struct {
	GuildID               snowflake.ID
	UserID                snowflake.ID
	NotificationChannelID snowflake.ID
	VoiceChannelID        snowflake.ID // Optional: specific channel to join (0 means use user's channel)
}

// JoinOutput contains the result of the Join use case.
type JoinOutput struct {
	VoiceChannelID snowflake.ID
	Moved          bool // true when the bot left another channel in the same guild
}

// BotVoiceStateChangeInput contains the input for handling bot voice state changes.
type BotVoiceStateChangeInput struct {
	GuildID      snowflake.ID
	NewChannelID *snowflake.ID // nil means disconnected
}

// Join joins the bot to a voice channel.
func (s *MusicService) Join(ctx context.Context, input JoinInput) (*JoinOutput, error) {
	voiceChannelID := input.VoiceChannelID
	if voiceChannelID == 0 {
		userChannel, err := s.userVoiceChannel(input.GuildID, input.UserID)
		if err != nil {
			return nil, err
		}
		voiceChannelID = userChannel
	}

	var lastErr error
	for range maxAttempts {
		c := s.registry.GetOrCreate(input.GuildID)

		moved, err := s.ensureVoice(ctx, c, voiceChannelID, input.NotificationChannelID)
		if errors.Is(err, domain.ErrControllerStopped) {
			lastErr = err
			continue
		}
		if err != nil {
			return nil, err
		}

		return &JoinOutput{VoiceChannelID: voiceChannelID, Moved: moved}, nil
	}

	return nil, notConnected(lastErr)
}

// Stop clears the queue and disconnects the bot.
func (s *MusicService) Stop(ctx context.Context, guildID snowflake.ID) error {
	c, ok := s.registry.Get(guildID)
	if !ok {
		return ErrNotConnected
	}

	if err := c.Stop(ctx); err != nil {
		if errors.Is(err, domain.ErrControllerStopped) {
			return ErrNotConnected
		}
		// The controller is gone regardless; only the disconnect failed.
		slog.Warn("stopped player but failed to disconnect", "guild", guildID, "error", err)
	}

	return nil
}

// HandleBotVoiceStateChange handles external voice state changes (bot moved or disconnected).
// This should be called when the bot's voice state changes due to external factors
// (e.g., being moved by a user or disconnected by Discord).
func (s *MusicService) HandleBotVoiceStateChange(ctx context.Context, input BotVoiceStateChangeInput) error {
	c, ok := s.registry.Get(input.GuildID)
	if !ok {
		// No player exists, nothing to do
		return nil
	}

	if input.NewChannelID == nil {
		return ignoreStopped(c.Disconnected(ctx))
	}

	// Bot was moved to a different channel; the queue follows it.
	return ignoreStopped(c.Attach(ctx, *input.NewChannelID, 0))
}

// ensureVoice connects the controller to voiceChannelID unless it already is.
// It reports whether the bot moved away from another channel.
func (s *MusicService) ensureVoice(
	ctx context.Context,
	c *player.Controller,
	voiceChannelID, notificationChannelID snowflake.ID,
) (bool, error) {
	snap, err := c.Snapshot(ctx)
	if err != nil {
		return false, err
	}

	if snap.VoiceChannelID == voiceChannelID {
		return false, c.Attach(ctx, voiceChannelID, notificationChannelID)
	}

	if err := s.voiceConnection.JoinChannel(ctx, c.GuildID(), voiceChannelID); err != nil {
		if snap.VoiceChannelID == 0 {
			// Another request may have connected this controller meanwhile;
			// only an unused one is dropped.
			if _, releaseErr := c.ReleaseIfUnused(ctx); ignoreStopped(releaseErr) != nil {
				slog.Warn("failed to release unused player", "guild", c.GuildID(), "error", releaseErr)
			}
		}
		return false, fmt.Errorf("failed to join voice channel: %w", err)
	}

	if err := c.Attach(ctx, voiceChannelID, notificationChannelID); err != nil {
		return false, err
	}

	return snap.VoiceChannelID != 0, nil
}

func (s *MusicService) userVoiceChannel(guildID, userID snowflake.ID) (snowflake.ID, error) {
	channelID, err := s.voiceState.GetUserVoiceChannel(guildID, userID)
	if err != nil {
		return 0, err
	}
	if channelID == 0 {
		return 0, ErrUserNotInVoice
	}
	return channelID, nil
}

func ignoreStopped(err error) error {
	if errors.Is(err, domain.ErrControllerStopped) {
		return nil
	}
	return err
}
