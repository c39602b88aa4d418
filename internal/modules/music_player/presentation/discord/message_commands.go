package discord

import (
	"log/slog"
	"strconv"
	"strings"
	"unicode"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/jukebot/internal/bot"
)

// MessageCommands routes prefixed chat messages such as "!play <query>" to
// the same operations as the slash commands.
type MessageCommands struct {
	prefix   string
	handlers *CommandHandlers
}

// NewMessageCommands creates a router for messages starting with prefix.
func NewMessageCommands(prefix string, handlers *CommandHandlers) *MessageCommands {
	return &MessageCommands{
		prefix:   prefix,
		handlers: handlers,
	}
}

// HandleMessageCreate handles MessageCreate events.
func (m *MessageCommands) HandleMessageCreate(s *discordgo.Session, event *discordgo.MessageCreate) {
	if event.Author == nil || event.Author.Bot {
		return
	}

	name, args, ok := parseCommand(m.prefix, event.Content)
	if !ok {
		return
	}

	if err := m.dispatch(event.Message, name, args, bot.NewChannelResponder(s, event.Message)); err != nil {
		slog.Error("failed to handle message command", "command", name, "error", err)
	}
}

// dispatch runs the named command. Unknown names are ignored so the prefix
// can be shared with other bots.
func (m *MessageCommands) dispatch(msg *discordgo.Message, name, args string, r bot.Responder) error {
	switch name {
	case "join", "play", "skip", "queue", "stop":
	default:
		return nil
	}

	cc, err := contextFromMessage(msg)
	if err != nil {
		return respondFailure(r, err)
	}

	switch name {
	case "join":
		return m.handlers.join(cc, parseChannelMention(args), r)
	case "play":
		return m.handlers.play(cc, args, r)
	case "skip":
		return m.handlers.skip(cc, r)
	case "queue":
		page, err := strconv.Atoi(args)
		if err != nil {
			page = 1
		}
		return m.handlers.queue(cc, page, r)
	default:
		return m.handlers.stop(cc, r)
	}
}

// parseCommand splits "<prefix><name> <args>" at the first whitespace into a lowercase name and trimmed args.
func parseCommand(prefix, content string) (name, args string, ok bool) {
	if prefix == "" {
		return "", "", false
	}

	rest, found := strings.CutPrefix(content, prefix)
	if !found {
		return "", "", false
	}

	name, args = rest, ""
	if i := strings.IndexFunc(rest, unicode.IsSpace); i >= 0 {
		name, args = rest[:i], rest[i:]
	}
	if name == "" {
		return "", "", false
	}

	return strings.ToLower(name), strings.TrimSpace(args), true
}

// parseChannelMention accepts "<#id>" or a bare id and returns 0 otherwise.
func parseChannelMention(arg string) snowflake.ID {
	arg = strings.TrimSuffix(strings.TrimPrefix(arg, "<#"), ">")
	id, err := snowflake.Parse(arg)
	if err != nil {
		return 0
	}
	return id
}
