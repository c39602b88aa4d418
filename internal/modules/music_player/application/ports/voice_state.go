package ports

import "github.com/disgoorg/snowflake/v2"

// VoiceStateProvider answers which voice channel a guild member sits in.
type VoiceStateProvider interface {
	// GetUserVoiceChannel returns 0 when the user is not in a voice channel.
	GetUserVoiceChannel(guildID, userID snowflake.ID) (snowflake.ID, error)
}
