package discord

import (
	"context"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/jukebot/internal/modules/music_player/application/usecases"
)

const (
	testGuildID   = "100"
	testUserID    = "200"
	testChannelID = "300"
)

// mockMusicService records the last input of each use case.
type mockMusicService struct {
	joinInput usecases.JoinInput
	joinOut   *usecases.JoinOutput
	joinErr   error

	playInput usecases.PlayInput
	playOut   *usecases.PlayOutput
	playErr   error

	skipInput usecases.SkipInput
	skipOut   *usecases.SkipOutput
	skipErr   error

	queueGuild snowflake.ID
	queueOut   *usecases.QueueOutput
	queueErr   error

	stopGuild snowflake.ID
	stopErr   error

	calls []string
}

func (m *mockMusicService) Join(_ context.Context, input usecases.JoinInput) (*usecases.JoinOutput, error) {
	m.calls = append(m.calls, "join")
	m.joinInput = input
	return m.joinOut, m.joinErr
}

func (m *mockMusicService) Play(_ context.Context, input usecases.PlayInput) (*usecases.PlayOutput, error) {
	m.calls = append(m.calls, "play")
	m.playInput = input
	return m.playOut, m.playErr
}

func (m *mockMusicService) Skip(_ context.Context, input usecases.SkipInput) (*usecases.SkipOutput, error) {
	m.calls = append(m.calls, "skip")
	m.skipInput = input
	return m.skipOut, m.skipErr
}

func (m *mockMusicService) ShowQueue(_ context.Context, guildID snowflake.ID) (*usecases.QueueOutput, error) {
	m.calls = append(m.calls, "queue")
	m.queueGuild = guildID
	return m.queueOut, m.queueErr
}

func (m *mockMusicService) Stop(_ context.Context, guildID snowflake.ID) error {
	m.calls = append(m.calls, "stop")
	m.stopGuild = guildID
	return m.stopErr
}

// guildInteraction builds a slash command interaction issued in a guild.
func guildInteraction(
	name string,
	options ...*discordgo.ApplicationCommandInteractionDataOption,
) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			Type:      discordgo.InteractionApplicationCommand,
			GuildID:   testGuildID,
			ChannelID: testChannelID,
			Member: &discordgo.Member{
				Nick: "DJ",
				User: &discordgo.User{ID: testUserID, Username: "dj_user"},
			},
			Data: discordgo.ApplicationCommandInteractionData{
				Name:    name,
				Options: options,
			},
		},
	}
}

// dmInteraction builds a slash command interaction issued outside a guild.
func dmInteraction(name string) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			Type:      discordgo.InteractionApplicationCommand,
			ChannelID: testChannelID,
			User:      &discordgo.User{ID: testUserID, Username: "dj_user"},
			Data:      discordgo.ApplicationCommandInteractionData{Name: name},
		},
	}
}

func stringOption(name, value string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{
		Name:  name,
		Type:  discordgo.ApplicationCommandOptionString,
		Value: value,
	}
}

func integerOption(name string, value int) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{
		Name:  name,
		Type:  discordgo.ApplicationCommandOptionInteger,
		Value: float64(value),
	}
}

func channelOption(name, id string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{
		Name:  name,
		Type:  discordgo.ApplicationCommandOptionChannel,
		Value: id,
	}
}

func guildMessage(content string) *discordgo.Message {
	return &discordgo.Message{
		GuildID:   testGuildID,
		ChannelID: testChannelID,
		Content:   content,
		Author:    &discordgo.User{ID: testUserID, Username: "dj_user", GlobalName: "Deejay"},
		Member:    &discordgo.Member{},
	}
}

func mustParse(s string) snowflake.ID {
	id, err := snowflake.Parse(s)
	if err != nil {
		panic(err)
	}
	return id
}
