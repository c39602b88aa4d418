package ports

import (
	"context"

	"github.com/disgoorg/snowflake/v2"
)

// VoiceConnection moves the bot in and out of voice channels.
type VoiceConnection interface {
	// JoinChannel returns once the bot is connected and audio can be played.
	// Joining while already connected in the guild moves the bot.
	JoinChannel(ctx context.Context, guildID, channelID snowflake.ID) error

	// LeaveChannel disconnects the bot and releases the guild's audio player.
	LeaveChannel(ctx context.Context, guildID snowflake.ID) error
}
