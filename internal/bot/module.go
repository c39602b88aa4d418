package bot

import "github.com/bwmarrin/discordgo"

// InteractionHandler answers one slash command. A non-nil error means no
// response was sent; the bot then replies with a generic error.
type InteractionHandler func(s *discordgo.Session, i *discordgo.InteractionCreate, r Responder) error

// EventHandler is any function discordgo accepts in Session.AddHandler,
// e.g. func(s *discordgo.Session, m *discordgo.MessageCreate).
type EventHandler any

// ModuleDependencies provides dependencies that modules may need during initialization.
type ModuleDependencies struct {
	// Session is already connected when Init runs, so State.User is populated.
	Session *discordgo.Session
}

// Module is a self-contained feature plugged into the bot.
//
// Lifecycle: LoadConfig (for ConfigurableModule) before connecting, Init
// after the gateway connection is open, then Commands, CommandHandlers and
// EventHandlers are collected once. Shutdown runs in reverse registration order.
type Module interface {
	// Name must be unique across registered modules.
	Name() string

	Commands() []*discordgo.ApplicationCommand

	// CommandHandlers maps command names from Commands to their handlers.
	CommandHandlers() map[string]InteractionHandler

	EventHandlers() []EventHandler

	Init(deps ModuleDependencies) error

	Shutdown() error
}

// ConfigurableModule is implemented by modules that read their own configuration.
// A LoadConfig error aborts startup before the Discord connection is opened.
type ConfigurableModule interface {
	LoadConfig() error
}
