package infrastructure

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/jukebot/internal/modules/music_player/application/ports"
)

// Ensure DiscordUserInfoProvider implements ports.UserInfoProvider.
var (
	_ ports.UserInfoProvider = (*DiscordUserInfoProvider)(nil)
)

// memberFetcher is the REST call used when a member is not cached.
type memberFetcher func(guildID, userID string) (*discordgo.Member, error)

// DiscordUserInfoProvider implements ports.UserInfoProvider using a Discord session.
// Cached members are served from the state; others are fetched over REST.
type DiscordUserInfoProvider struct {
	state *discordgo.State
	fetch memberFetcher
}

// NewDiscordUserInfoProvider creates a new DiscordUserInfoProvider.
func NewDiscordUserInfoProvider(session *discordgo.Session) *DiscordUserInfoProvider {
	return &DiscordUserInfoProvider{
		state: session.State,
		fetch: func(guildID, userID string) (*discordgo.Member, error) {
			return session.GuildMember(guildID, userID)
		},
	}
}

// GetUserInfo fetches display info for a user in a guild.
func (p *DiscordUserInfoProvider) GetUserInfo(
	guildID, userID snowflake.ID,
) (ports.UserInfo, error) {
	member, err := p.state.Member(guildID.String(), userID.String())
	if err != nil || member.User == nil {
		member, err = p.fetch(guildID.String(), userID.String())
		if err != nil {
			return ports.UserInfo{}, fmt.Errorf("failed to fetch guild member: %w", err)
		}
	}

	if member.User == nil {
		return ports.UserInfo{}, fmt.Errorf("guild member %s has no user", userID)
	}

	return ports.UserInfo{
		DisplayName: getDisplayName(member),
		AvatarURL:   member.AvatarURL(""),
	}, nil
}

// getDisplayName returns the effective display name for a guild member.
// Priority: guild nickname > global display name > username.
func getDisplayName(member *discordgo.Member) string {
	if member.Nick != "" {
		return member.Nick
	}
	if member.User.GlobalName != "" {
		return member.User.GlobalName
	}
	return member.User.Username
}
