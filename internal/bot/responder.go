package bot

import (
	"sync"

	"github.com/bwmarrin/discordgo"
)

// Responder answers a command, whether it arrived as a slash command or as a
// prefixed chat message. Handlers build interaction responses; responders for
// other transports translate them.
type Responder interface {
	Respond(response *discordgo.InteractionResponse) error
}

// DiscordResponder answers a slash command interaction.
type DiscordResponder struct {
	session     *discordgo.Session
	interaction *discordgo.Interaction
}

// NewDiscordResponder creates a new DiscordResponder.
func NewDiscordResponder(s *discordgo.Session, i *discordgo.Interaction) *DiscordResponder {
	return &DiscordResponder{
		session:     s,
		interaction: i,
	}
}

// Respond sends a response to the interaction via Discord API.
func (r *DiscordResponder) Respond(response *discordgo.InteractionResponse) error {
	return r.session.InteractionRespond(r.interaction, response)
}

// ChannelResponder answers a chat message by replying in its channel.
type ChannelResponder struct {
	session *discordgo.Session
	message *discordgo.Message
}

// NewChannelResponder creates a ChannelResponder replying to m.
func NewChannelResponder(s *discordgo.Session, m *discordgo.Message) *ChannelResponder {
	return &ChannelResponder{
		session: s,
		message: m,
	}
}

// Respond posts the response content and embeds as a reply to the message.
func (r *ChannelResponder) Respond(response *discordgo.InteractionResponse) error {
	send := MessageFromResponse(response)
	if send == nil {
		return nil
	}
	send.Reference = r.message.Reference()

	_, err := r.session.ChannelMessageSendComplex(r.message.ChannelID, send)
	return err
}

// MessageFromResponse converts interaction response data into a channel message.
// It returns nil for responses without data, such as deferred acknowledgements.
func MessageFromResponse(response *discordgo.InteractionResponse) *discordgo.MessageSend {
	if response == nil || response.Data == nil {
		return nil
	}

	return &discordgo.MessageSend{
		Content:         response.Data.Content,
		Embeds:          response.Data.Embeds,
		AllowedMentions: response.Data.AllowedMentions,
	}
}

// MockResponder is a test double for Responder.
type MockResponder struct {
	mu           sync.Mutex
	LastResponse *discordgo.InteractionResponse
	Responses    []*discordgo.InteractionResponse
	Err          error
}

// Respond records the response for testing.
func (m *MockResponder) Respond(response *discordgo.InteractionResponse) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastResponse = response
	m.Responses = append(m.Responses, response)
	return m.Err
}

// LastEmbed returns the first embed of the last response, or nil.
func (m *MockResponder) LastEmbed() *discordgo.MessageEmbed {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LastResponse == nil || m.LastResponse.Data == nil || len(m.LastResponse.Data.Embeds) == 0 {
		return nil
	}
	return m.LastResponse.Data.Embeds[0]
}
