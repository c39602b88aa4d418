package ports

import (
	"github.com/disgoorg/snowflake/v2"
)

// UserInfo contains display information for a Discord user.
type UserInfo struct {
	DisplayName string
	AvatarURL   string
}

// UserInfoProvider defines the interface for fetching user display information.
type UserInfoProvider interface {
	// GetUserInfo returns display info for the given user in a guild.
	// Implementations fall back to a zero UserInfo on lookup failure
	// only when err is non-nil.
	GetUserInfo(guildID, userID snowflake.ID) (UserInfo, error)
}
