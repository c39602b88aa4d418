package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/disgolink/v3/disgolink"
	"github.com/disgoorg/disgolink/v3/lavalink"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/jukebot/internal/modules/music_player/application/ports"
	"github.com/sglre6355/jukebot/internal/modules/music_player/domain"
)

const (
	// voiceConnectionTimeout is the maximum time to wait for voice connection to be established.
	voiceConnectionTimeout = 10 * time.Second

	playerUpdateTimeout = 5 * time.Second
)

// LavalinkAdapter wraps DisGoLink to implement the port interfaces.
// It resolves queries through the node's loadtracks endpoint, plays
// tracks on the guild's Lavalink player and forwards Discord voice events.
type LavalinkAdapter struct {
	link         disgolink.Client
	session      *discordgo.Session
	botID        snowflake.ID
	searchSource domain.SearchSource

	voice     *voiceHandshakes
	playbacks *playbackTracker
}

// LavalinkConfig contains Lavalink connection configuration.
type LavalinkConfig struct {
	Address      string
	Password     string
	Secure       bool
	SearchSource domain.SearchSource
}

// NewLavalinkAdapter creates a new LavalinkAdapter.
// The session must be open so the bot user is known.
func NewLavalinkAdapter(
	ctx context.Context,
	session *discordgo.Session,
	config LavalinkConfig,
) (*LavalinkAdapter, error) {
	if session.State == nil || session.State.User == nil {
		return nil, errors.New("discord session is not open")
	}

	botID, err := snowflake.Parse(session.State.User.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to parse bot ID: %w", err)
	}

	adapter := &LavalinkAdapter{
		session:      session,
		botID:        botID,
		searchSource: config.SearchSource,
		voice:        newVoiceHandshakes(),
		playbacks:    newPlaybackTracker(),
	}

	// Create DisGoLink client
	link := disgolink.New(botID,
		disgolink.WithListenerFunc(adapter.onTrackStart),
		disgolink.WithListenerFunc(adapter.onTrackEnd),
		disgolink.WithListenerFunc(adapter.onTrackException),
		disgolink.WithListenerFunc(adapter.onTrackStuck),
	)
	adapter.link = link

	// Add Lavalink node
	node, err := link.AddNode(ctx, disgolink.NodeConfig{
		Name:     "main",
		Address:  config.Address,
		Password: config.Password,
		Secure:   config.Secure,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add Lavalink node: %w", err)
	}

	slog.Info("connected to Lavalink", "node", node.Config().Name, "address", config.Address)

	return adapter, nil
}

// Close disconnects from all Lavalink nodes.
func (c *LavalinkAdapter) Close() {
	c.link.Close()
}

// JoinChannel asks Discord to move the bot into a voice channel and waits
// until both halves of the voice handshake have been handed to Lavalink.
func (c *LavalinkAdapter) JoinChannel(ctx context.Context, guildID, channelID snowflake.ID) error {
	ready, done := c.voice.expect(guildID)
	defer done()

	err := c.session.ChannelVoiceJoinManual(guildID.String(), channelID.String(), false, true)
	if err != nil {
		return fmt.Errorf("failed to join voice channel: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, voiceConnectionTimeout)
	defer cancel()

	select {
	case <-ready:
		return nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("timed out waiting for voice connection: %w", ctx.Err())
		}
		return fmt.Errorf("cancelled while waiting for voice connection: %w", ctx.Err())
	}
}

// LeaveChannel disconnects from the voice channel.
func (c *LavalinkAdapter) LeaveChannel(ctx context.Context, guildID snowflake.ID) error {
	c.playbacks.forget(guildID)

	// Destroy the player
	player := c.link.ExistingPlayer(guildID)
	if player != nil {
		if err := player.Destroy(ctx); err != nil {
			slog.Warn("failed to destroy player", "guild", guildID, "error", err)
		}
	}

	// Leave voice channel
	err := c.session.ChannelVoiceJoinManual(guildID.String(), "", false, false)
	if err != nil {
		return fmt.Errorf("failed to leave voice channel: %w", err)
	}
	return nil
}

// Resolve loads a query and returns the single track it stands for.
func (c *LavalinkAdapter) Resolve(ctx context.Context, query string) (*domain.Track, error) {
	q := domain.NewSearchQuery(query, c.searchSource)
	if !q.IsValid() {
		return nil, domain.ErrEmptyQuery
	}

	node := c.link.BestNode()
	if node == nil {
		return nil, fmt.Errorf("%w: no available Lavalink node", domain.ErrResolverUnavailable)
	}

	result, err := node.LoadTracks(ctx, q.Identifier())
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load tracks: %v", domain.ErrResolverUnavailable, err)
	}

	return trackFromLoadResult(result)
}

// Play starts track on the guild's player. The returned channel yields
// exactly one outcome. Cancelling ctx stops the player and yields Cancelled.
func (c *LavalinkAdapter) Play(
	ctx context.Context,
	guildID snowflake.ID,
	track *domain.Track,
) (<-chan domain.PlaybackOutcome, error) {
	lock := c.playbacks.guildLock(guildID)

	lock.Lock()
	p := c.playbacks.begin(guildID, track.Encoded)
	player := c.link.Player(guildID)
	// Use WithEncodedTrack to avoid userData:null issue
	err := player.Update(ctx, lavalink.WithEncodedTrack(track.Encoded))
	if err != nil {
		c.playbacks.abandon(guildID, p)
	}
	lock.Unlock()

	if err != nil {
		return nil, fmt.Errorf("failed to play track: %w", err)
	}

	go c.watchCancel(ctx, guildID, p)

	return p.out, nil
}

// watchCancel stops the player when ctx ends before the track does.
func (c *LavalinkAdapter) watchCancel(ctx context.Context, guildID snowflake.ID, p *pendingPlayback) {
	select {
	case <-p.done:
		// Delivered, or replaced by a newer Play call.
		return
	case <-ctx.Done():
	}

	lock := c.playbacks.guildLock(guildID)
	lock.Lock()
	defer lock.Unlock()

	// A newer Play call owns the player now.
	if !c.playbacks.abandon(guildID, p) {
		return
	}

	c.stopPlayer(guildID)
	p.deliver(domain.Cancelled())
}

// stopPlayer clears the current track. Callers hold the guild lock.
func (c *LavalinkAdapter) stopPlayer(guildID snowflake.ID) {
	player := c.link.ExistingPlayer(guildID)
	if player == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), playerUpdateTimeout)
	defer cancel()

	if err := player.Update(ctx, lavalink.WithNullTrack()); err != nil {
		slog.Warn("failed to stop playback", "guild", guildID, "error", err)
	}
}

// OnVoiceServerUpdate feeds a VoiceServerUpdate gateway event into the voice handshake.
func (c *LavalinkAdapter) OnVoiceServerUpdate(event *discordgo.VoiceServerUpdate) {
	guildID, err := snowflake.Parse(event.GuildID)
	if err != nil {
		slog.Error("failed to parse guild ID in voice server update", "error", err)
		return
	}

	if update, ok := c.voice.server(guildID, event.Token, event.Endpoint); ok {
		c.forwardVoiceUpdate(guildID, update)
	}
}

// OnVoiceStateUpdate feeds the bot's own VoiceStateUpdate events into the voice handshake.
// A disconnect is forwarded right away since Discord sends no server half for it.
func (c *LavalinkAdapter) OnVoiceStateUpdate(event *discordgo.VoiceStateUpdate) {
	if event.VoiceState == nil || event.UserID != c.botID.String() {
		return
	}

	guildID, err := snowflake.Parse(event.GuildID)
	if err != nil {
		slog.Error("failed to parse guild ID in voice state update", "error", err)
		return
	}

	if event.ChannelID == "" {
		c.voice.reset(guildID)
		c.link.OnVoiceStateUpdate(context.Background(), guildID, nil, event.SessionID)
		return
	}

	channelID, err := snowflake.Parse(event.ChannelID)
	if err != nil {
		slog.Error("failed to parse channel ID in voice state update", "error", err)
		return
	}

	if update, ok := c.voice.state(guildID, &channelID, event.SessionID); ok {
		c.forwardVoiceUpdate(guildID, update)
	}
}

// forwardVoiceUpdate hands a complete handshake to Lavalink, state first.
func (c *LavalinkAdapter) forwardVoiceUpdate(guildID snowflake.ID, update voiceUpdate) {
	slog.Debug("forwarding voice update to Lavalink",
		"guild", guildID,
		"channel", update.channelID,
		"has_session", update.sessionID != "",
	)

	c.link.OnVoiceStateUpdate(context.Background(), guildID, update.channelID, update.sessionID)
	c.link.OnVoiceServerUpdate(context.Background(), guildID, update.token, update.endpoint)
}

func (c *LavalinkAdapter) onTrackStart(player disgolink.Player, event lavalink.TrackStartEvent) {
	slog.Debug("track started", "guild", player.GuildID(), "track", event.Track.Info.Title)
}

func (c *LavalinkAdapter) onTrackEnd(player disgolink.Player, event lavalink.TrackEndEvent) {
	guildID := player.GuildID()

	slog.Debug("track ended", "guild", guildID, "reason", event.Reason)

	exception := c.playbacks.exception(guildID, event.Track.Encoded)
	outcome, ok := outcomeForEndReason(event.Reason, exception)
	if !ok {
		return
	}

	if !c.playbacks.complete(guildID, event.Track.Encoded, outcome) {
		slog.Debug("ignoring end of untracked track", "guild", guildID, "track", event.Track.Info.Title)
	}
}

func (c *LavalinkAdapter) onTrackException(
	player disgolink.Player,
	event lavalink.TrackExceptionEvent,
) {
	slog.Warn("track exception", "guild", player.GuildID(), "error", event.Exception.Message)

	c.playbacks.recordException(player.GuildID(), event.Track.Encoded, event.Exception.Message)
}

func (c *LavalinkAdapter) onTrackStuck(player disgolink.Player, event lavalink.TrackStuckEvent) {
	guildID := player.GuildID()

	slog.Warn("track stuck", "guild", guildID, "threshold", event.Threshold)

	lock := c.playbacks.guildLock(guildID)
	lock.Lock()
	defer lock.Unlock()

	outcome := domain.Failed(fmt.Errorf("%w: track got stuck", domain.ErrPlaybackFailed))
	if c.playbacks.complete(guildID, event.Track.Encoded, outcome) {
		c.stopPlayer(guildID)
	}
}

// Ensure LavalinkAdapter implements port interfaces.
var (
	_ ports.AudioSink       = (*LavalinkAdapter)(nil)
	_ ports.VoiceConnection = (*LavalinkAdapter)(nil)
	_ ports.TrackResolver   = (*LavalinkAdapter)(nil)
)
