package music_player

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sglre6355/jukebot/internal/bot"
	"github.com/sglre6355/jukebot/internal/modules/music_player/application"
	"github.com/sglre6355/jukebot/internal/modules/music_player/application/player"
	"github.com/sglre6355/jukebot/internal/modules/music_player/application/ports"
	"github.com/sglre6355/jukebot/internal/modules/music_player/application/usecases"
	"github.com/sglre6355/jukebot/internal/modules/music_player/domain"
	"github.com/sglre6355/jukebot/internal/modules/music_player/infrastructure"
	"github.com/sglre6355/jukebot/internal/modules/music_player/presentation/discord"
)

const (
	initTimeout     = 30 * time.Second
	shutdownTimeout = 15 * time.Second
)

func init() {
	bot.Register(&MusicPlayerModule{})
}

// Compile-time interface checks.
var _ bot.ConfigurableModule = (*MusicPlayerModule)(nil)

// MusicPlayerModule provides music playback commands.
type MusicPlayerModule struct {
	config          *Config
	commandHandlers *discord.CommandHandlers
	messageCommands *discord.MessageCommands
	eventHandlers   *discord.EventHandlers

	lavalinkAdapter *infrastructure.LavalinkAdapter
	redisClient     *redis.Client

	registry            *player.Registry
	eventBus            *infrastructure.ChannelEventBus
	notificationHandler *application.NotificationEventHandler
}

// Name returns the module name.
func (m *MusicPlayerModule) Name() string {
	return "music_player"
}

// Commands returns the slash commands for this module.
func (m *MusicPlayerModule) Commands() []*discordgo.ApplicationCommand {
	return discord.Commands()
}

// CommandHandlers returns the command handlers for this module.
func (m *MusicPlayerModule) CommandHandlers() map[string]bot.InteractionHandler {
	return map[string]bot.InteractionHandler{
		"join":  m.commandHandlers.HandleJoin,
		"play":  m.commandHandlers.HandlePlay,
		"skip":  m.commandHandlers.HandleSkip,
		"queue": m.commandHandlers.HandleQueue,
		"stop":  m.commandHandlers.HandleStop,
	}
}

// EventHandlers returns the event handlers for this module.
func (m *MusicPlayerModule) EventHandlers() []bot.EventHandler {
	return []bot.EventHandler{
		func(_ *discordgo.Session, event *discordgo.VoiceServerUpdate) {
			m.lavalinkAdapter.OnVoiceServerUpdate(event)
		},
		func(s *discordgo.Session, event *discordgo.VoiceStateUpdate) {
			m.lavalinkAdapter.OnVoiceStateUpdate(event)
			m.eventHandlers.HandleVoiceStateUpdate(s, event)
		},
		m.messageCommands.HandleMessageCreate,
	}
}

// LoadConfig loads module-specific configuration from environment variables.
func (m *MusicPlayerModule) LoadConfig() error {
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}
	m.config = cfg
	return nil
}

// Init connects to Lavalink (and Redis when configured) and wires the player.
func (m *MusicPlayerModule) Init(deps bot.ModuleDependencies) error {
	if deps.Session == nil {
		return errors.New("music_player module requires a Discord session")
	}
	if m.config == nil {
		return errors.New("music_player module config not loaded")
	}

	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()

	if err := m.init(ctx, deps.Session); err != nil {
		_ = m.closeClients()
		m.lavalinkAdapter, m.redisClient = nil, nil
		return err
	}

	slog.Info("music_player module initialized",
		"search_source", m.config.SearchSource,
		"resolve_cache", m.redisClient != nil,
		"command_prefix", m.config.CommandPrefix,
	)

	return nil
}

func (m *MusicPlayerModule) init(ctx context.Context, session *discordgo.Session) error {
	adapter, err := infrastructure.NewLavalinkAdapter(ctx, session, infrastructure.LavalinkConfig{
		Address:      m.config.LavalinkAddress,
		Password:     m.config.LavalinkPassword,
		Secure:       m.config.LavalinkSecure,
		SearchSource: domain.ParseSearchSource(m.config.SearchSource),
	})
	if err != nil {
		return err
	}
	m.lavalinkAdapter = adapter

	resolver, err := m.buildResolver(ctx, adapter)
	if err != nil {
		return err
	}

	m.eventBus = infrastructure.NewChannelEventBus(infrastructure.DefaultEventBufferSize)

	m.registry = player.NewRegistry(
		player.Dependencies{
			Resolver:  resolver,
			Sink:      adapter,
			Voice:     adapter,
			Publisher: m.eventBus,
		},
		player.Options{
			MaxQueueLength: m.config.MaxQueueLength,
			IdleTimeout:    m.config.IdleTimeout,
			ResolveTimeout: m.config.ResolveTimeout,
		},
	)

	music := usecases.NewMusicService(
		m.registry,
		adapter,
		infrastructure.NewVoiceStateProvider(session),
	)

	m.notificationHandler = application.NewNotificationEventHandler(
		m.eventBus,
		infrastructure.NewNotifier(session),
		infrastructure.NewDiscordUserInfoProvider(session),
	)
	if err := m.notificationHandler.Start(); err != nil {
		return err
	}

	botID, err := snowflake.Parse(session.State.User.ID)
	if err != nil {
		return fmt.Errorf("failed to parse bot ID: %w", err)
	}

	m.commandHandlers = discord.NewCommandHandlers(music)
	m.messageCommands = discord.NewMessageCommands(m.config.CommandPrefix, m.commandHandlers)
	m.eventHandlers = discord.NewEventHandlers(botID, music)

	return nil
}

// buildResolver wraps the Lavalink resolver with rate limiting. When Redis is
// configured the cache sits in front, so hits skip the limiter.
func (m *MusicPlayerModule) buildResolver(
	ctx context.Context,
	lavalink ports.TrackResolver,
) (ports.TrackResolver, error) {
	var resolver ports.TrackResolver = infrastructure.NewRateLimitedResolver(
		lavalink,
		m.config.ResolveRate,
		m.config.ResolveBurst,
	)

	if m.config.RedisAddress == "" {
		return resolver, nil
	}

	client, err := infrastructure.NewRedisClient(ctx, infrastructure.RedisConfig{
		Address:  m.config.RedisAddress,
		Password: m.config.RedisPassword,
		DB:       m.config.RedisDB,
	})
	if err != nil {
		return nil, err
	}
	m.redisClient = client

	cache := infrastructure.NewRedisResolveCache(client, m.config.ResolveCacheTTL)
	return infrastructure.NewCachingResolver(resolver, cache), nil
}

// Shutdown stops every guild player, flushes pending notifications and
// closes backend connections.
func (m *MusicPlayerModule) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	if m.registry != nil {
		if err := m.registry.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop players: %w", err))
		}
	}

	// Players publish their stop events during shutdown; drain them before
	// the Discord session goes away.
	if m.eventBus != nil {
		m.eventBus.Close()
	}

	if err := m.closeClients(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func (m *MusicPlayerModule) closeClients() error {
	if m.lavalinkAdapter != nil {
		m.lavalinkAdapter.Close()
	}

	if m.redisClient != nil {
		if err := m.redisClient.Close(); err != nil {
			return fmt.Errorf("failed to close redis client: %w", err)
		}
	}

	return nil
}
