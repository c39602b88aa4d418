package discord

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/jukebot/internal/bot"
	"github.com/sglre6355/jukebot/internal/modules/music_player/application/usecases"
	"github.com/sglre6355/jukebot/internal/modules/music_player/domain"
)

// Embed colors.
const (
	colorSuccess = 0x08c404
	colorError   = 0xE74C3C
	colorQueue   = 0x5865F2
)

// commandTimeout bounds a single command, including a voice join.
const commandTimeout = 15 * time.Second

var errGuildOnly = errors.New("this command can only be used in a server")

// MusicService is the part of usecases.MusicService the command handlers use.
type MusicService interface {
	Join(ctx context.Context, input usecases.JoinInput) (*usecases.JoinOutput, error)
	Play(ctx context.Context, input usecases.PlayInput) (*usecases.PlayOutput, error)
	Skip(ctx context.Context, input usecases.SkipInput) (*usecases.SkipOutput, error)
	ShowQueue(ctx context.Context, guildID snowflake.ID) (*usecases.QueueOutput, error)
	Stop(ctx context.Context, guildID snowflake.ID) error
}

// commandContext identifies who issued a command and where.
type commandContext struct {
	guildID   snowflake.ID
	userID    snowflake.ID
	userName  string
	channelID snowflake.ID
}

// CommandHandlers holds all the command handlers. The same operations back
// both slash commands and prefixed message commands.
type CommandHandlers struct {
	music MusicService
}

// NewCommandHandlers creates new CommandHandlers.
func NewCommandHandlers(music MusicService) *CommandHandlers {
	return &CommandHandlers{music: music}
}

// HandleJoin handles the /join command.
func (h *CommandHandlers) HandleJoin(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	cc, err := contextFromInteraction(i)
	if err != nil {
		return respondFailure(r, err)
	}

	var voiceChannelID snowflake.ID
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name != "channel" {
			continue
		}
		raw, _ := opt.Value.(string)
		voiceChannelID, err = snowflake.Parse(raw)
		if err != nil {
			return respondError(r, "Invalid voice channel")
		}
	}

	return h.join(cc, voiceChannelID, r)
}

// HandlePlay handles the /play command.
func (h *CommandHandlers) HandlePlay(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	cc, err := contextFromInteraction(i)
	if err != nil {
		return respondFailure(r, err)
	}

	var query string
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == "query" {
			query = opt.StringValue()
		}
	}

	return h.play(cc, query, r)
}

// HandleSkip handles the /skip command.
func (h *CommandHandlers) HandleSkip(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	cc, err := contextFromInteraction(i)
	if err != nil {
		return respondFailure(r, err)
	}

	return h.skip(cc, r)
}

// HandleQueue handles the /queue command.
func (h *CommandHandlers) HandleQueue(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	cc, err := contextFromInteraction(i)
	if err != nil {
		return respondFailure(r, err)
	}

	page := 1
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == "page" {
			page = int(opt.IntValue())
		}
	}

	return h.queue(cc, page, r)
}

// HandleStop handles the /stop command.
func (h *CommandHandlers) HandleStop(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	cc, err := contextFromInteraction(i)
	if err != nil {
		return respondFailure(r, err)
	}

	return h.stop(cc, r)
}

func (h *CommandHandlers) join(cc commandContext, voiceChannelID snowflake.ID, r bot.Responder) error {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	output, err := h.music.Join(ctx, usecases.JoinInput{
		GuildID:               cc.guildID,
		UserID:                cc.userID,
		NotificationChannelID: cc.channelID,
		VoiceChannelID:        voiceChannelID,
	})
	if err != nil {
		return respondFailure(r, err)
	}

	description := fmt.Sprintf("Connected to <#%d>.", output.VoiceChannelID)
	if output.Moved {
		description = fmt.Sprintf("Moved to <#%d>.", output.VoiceChannelID)
	}

	return respondSuccess(r, description)
}

func (h *CommandHandlers) play(cc commandContext, query string, r bot.Responder) error {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	output, err := h.music.Play(ctx, usecases.PlayInput{
		GuildID:               cc.guildID,
		UserID:                cc.userID,
		UserName:              cc.userName,
		Query:                 query,
		NotificationChannelID: cc.channelID,
	})
	if err != nil {
		return respondFailure(r, err)
	}

	var description string
	if output.StartedImmediately {
		description = fmt.Sprintf("Loading **%s**.", output.Entry.Query)
	} else {
		description = fmt.Sprintf(
			"Added **%s** to the queue at position %d.",
			output.Entry.Query,
			output.Position,
		)
	}

	return respondSuccess(r, description)
}

func (h *CommandHandlers) skip(cc commandContext, r bot.Responder) error {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	output, err := h.music.Skip(ctx, usecases.SkipInput{
		GuildID:               cc.guildID,
		NotificationChannelID: cc.channelID,
	})
	if err != nil {
		return respondFailure(r, err)
	}

	description := fmt.Sprintf("Skipped **%s**.", output.Skipped.Title())
	if output.Next != nil {
		description += fmt.Sprintf(" Up next: **%s**.", output.Next.Query)
	}

	return respondSuccess(r, description)
}

func (h *CommandHandlers) queue(cc commandContext, page int, r bot.Responder) error {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	output, err := h.music.ShowQueue(ctx, cc.guildID)
	if err != nil {
		return respondFailure(r, err)
	}

	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{queueEmbed(output, page)},
		},
	})
}

func (h *CommandHandlers) stop(cc commandContext, r bot.Responder) error {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	if err := h.music.Stop(ctx, cc.guildID); err != nil {
		return respondFailure(r, err)
	}

	return respondSuccess(r, "Stopped playback and disconnected.")
}

// queueEmbed renders one page of the queue listing.
func queueEmbed(output *usecases.QueueOutput, page int) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: "Queue",
		Color: colorQueue,
	}

	if output.IsEmpty() {
		embed.Description = "Queue is empty."
		return embed
	}

	listing := output.Page(page, usecases.DefaultPageSize)

	var sb strings.Builder
	if np := output.NowPlaying; np != nil {
		sb.WriteString("**Now:** ")
		writeNowPlaying(&sb, np, output.State)
		sb.WriteString("\n")
	}

	if len(listing.Entries) > 0 && sb.Len() > 0 {
		sb.WriteString("\n")
	}
	for idx, entry := range listing.Entries {
		writeEntryLine(&sb, listing.Offset+idx+1, entry)
	}

	embed.Description = sb.String()
	embed.Footer = &discordgo.MessageEmbedFooter{
		Text: fmt.Sprintf(
			"Page %d/%d · %d queued",
			listing.CurrentPage,
			listing.TotalPages,
			listing.TotalEntries,
		),
	}

	return embed
}

func writeNowPlaying(sb *strings.Builder, np *domain.NowPlaying, state domain.PlaybackState) {
	track := np.Track
	switch {
	case track == nil || state == domain.StateResolving:
		fmt.Fprintf(sb, "%s (loading)", np.Title())
	case track.URI != "":
		fmt.Fprintf(sb, "[%s](%s)", track.Title, track.URI)
	default:
		sb.WriteString(track.Title)
	}
}

// writeEntryLine writes a single pending entry.
// Escapes period to prevent Discord markdown list formatting.
func writeEntryLine(sb *strings.Builder, displayIndex int, entry domain.QueueEntry) {
	fmt.Fprintf(sb, "%d\\. %s (by %s)\n", displayIndex, entry.Query, entry.RequesterName)
}

// failureMessage turns a use case error into the text shown to the user.
func failureMessage(err error) string {
	switch {
	case errors.Is(err, errGuildOnly):
		return "This command can only be used in a server."
	case errors.Is(err, domain.ErrUserNotInVoice):
		return "Join a voice channel first."
	case errors.Is(err, domain.ErrNotConnected):
		return "I'm not connected to a voice channel."
	case errors.Is(err, domain.ErrNothingToSkip):
		return "Nothing is playing."
	case errors.Is(err, domain.ErrQueueFull):
		return "The queue is full."
	case errors.Is(err, domain.ErrEmptyQuery):
		return "Give me a URL or search term to play."
	default:
		return err.Error()
	}
}

func contextFromInteraction(i *discordgo.InteractionCreate) (commandContext, error) {
	if i.GuildID == "" || i.Member == nil || i.Member.User == nil {
		return commandContext{}, errGuildOnly
	}

	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		return commandContext{}, fmt.Errorf("invalid guild: %w", err)
	}

	userID, err := snowflake.Parse(i.Member.User.ID)
	if err != nil {
		return commandContext{}, fmt.Errorf("invalid user: %w", err)
	}

	channelID, err := snowflake.Parse(i.ChannelID)
	if err != nil {
		return commandContext{}, fmt.Errorf("invalid notification channel: %w", err)
	}

	return commandContext{
		guildID:   guildID,
		userID:    userID,
		userName:  displayName(i.Member, i.Member.User),
		channelID: channelID,
	}, nil
}

func contextFromMessage(m *discordgo.Message) (commandContext, error) {
	if m.GuildID == "" || m.Author == nil {
		return commandContext{}, errGuildOnly
	}

	guildID, err := snowflake.Parse(m.GuildID)
	if err != nil {
		return commandContext{}, fmt.Errorf("invalid guild: %w", err)
	}

	userID, err := snowflake.Parse(m.Author.ID)
	if err != nil {
		return commandContext{}, fmt.Errorf("invalid user: %w", err)
	}

	channelID, err := snowflake.Parse(m.ChannelID)
	if err != nil {
		return commandContext{}, fmt.Errorf("invalid notification channel: %w", err)
	}

	return commandContext{
		guildID:   guildID,
		userID:    userID,
		userName:  displayName(m.Member, m.Author),
		channelID: channelID,
	}, nil
}

// displayName prefers the guild nickname, then the global display name.
// Message events carry a member without its user, so the user is passed separately.
func displayName(member *discordgo.Member, user *discordgo.User) string {
	if member != nil && member.Nick != "" {
		return member.Nick
	}
	if user.GlobalName != "" {
		return user.GlobalName
	}
	return user.Username
}

func respondSuccess(r bot.Responder, description string) error {
	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{
				{
					Description: description,
					Color:       colorSuccess,
				},
			},
		},
	})
}

func respondFailure(r bot.Responder, err error) error {
	return respondError(r, failureMessage(err))
}

func respondError(r bot.Responder, message string) error {
	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{
				{
					Title:       "Error",
					Description: message,
					Color:       colorError,
				},
			},
		},
	})
}
