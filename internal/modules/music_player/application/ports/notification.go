package ports

import (
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// NowPlayingInfo contains information for the "Now Playing" notification.
type NowPlayingInfo struct {
	Identifier    string
	Title         string
	Artist        string
	Duration      string
	URI           string
	ArtworkURL    string
	SourceName    string
	IsStream      bool
	RequesterID   snowflake.ID
	RequesterName string
	// RequesterAvatarURL is empty when the avatar could not be looked up.
	RequesterAvatarURL string
	EnqueuedAt         time.Time
}

// NotificationSender defines the interface for sending notifications to Discord channels.
type NotificationSender interface {
	// SendNowPlaying sends a "Now Playing" embed to the channel and returns the message ID.
	SendNowPlaying(channelID snowflake.ID, info *NowPlayingInfo) (messageID snowflake.ID, err error)

	// DeleteMessage deletes a message from the channel.
	DeleteMessage(channelID snowflake.ID, messageID snowflake.ID) error

	// SendError sends an error message embed to the channel.
	SendError(channelID snowflake.ID, message string) error

	// SendInfo sends a plain informational embed to the channel.
	SendInfo(channelID snowflake.ID, message string) error
}
