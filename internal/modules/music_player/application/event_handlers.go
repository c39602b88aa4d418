package application

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/jukebot/internal/modules/music_player/application/ports"
	"github.com/sglre6355/jukebot/internal/modules/music_player/domain"
)

const (
	queueEndedMessage = "Queue is empty."
	idleLeftMessage   = "Left the voice channel after being idle."
)

type nowPlayingMessage struct {
	channelID snowflake.ID
	messageID snowflake.ID
}

// NotificationEventHandler turns playback events into Discord messages.
// It keeps the "Now Playing" message of each guild so it can be deleted
// when the track ends.
type NotificationEventHandler struct {
	subscriber       ports.EventSubscriber
	notifier         ports.NotificationSender
	userInfoProvider ports.UserInfoProvider

	mu         sync.Mutex
	nowPlaying map[snowflake.ID]nowPlayingMessage
}

// NewNotificationEventHandler creates a new NotificationEventHandler.
func NewNotificationEventHandler(
	subscriber ports.EventSubscriber,
	notifier ports.NotificationSender,
	userInfoProvider ports.UserInfoProvider,
) *NotificationEventHandler {
	return &NotificationEventHandler{
		subscriber:       subscriber,
		notifier:         notifier,
		userInfoProvider: userInfoProvider,
		nowPlaying:       make(map[snowflake.ID]nowPlayingMessage),
	}
}

// Start registers event handlers with the subscriber.
func (h *NotificationEventHandler) Start() error {
	subscriptions := []struct {
		eventType reflect.Type
		handler   func(context.Context, domain.Event)
	}{
		{
			reflect.TypeFor[domain.TrackStartedEvent](),
			func(ctx context.Context, e domain.Event) {
				h.handleTrackStarted(ctx, e.(domain.TrackStartedEvent))
			},
		},
		{
			reflect.TypeFor[domain.TrackEndedEvent](),
			func(ctx context.Context, e domain.Event) {
				h.handleTrackEnded(ctx, e.(domain.TrackEndedEvent))
			},
		},
		{
			reflect.TypeFor[domain.QueueEndedEvent](),
			func(ctx context.Context, e domain.Event) {
				h.handleQueueEnded(ctx, e.(domain.QueueEndedEvent))
			},
		},
		{
			reflect.TypeFor[domain.PlayerStoppedEvent](),
			func(ctx context.Context, e domain.Event) {
				h.handlePlayerStopped(ctx, e.(domain.PlayerStoppedEvent))
			},
		},
	}

	for _, s := range subscriptions {
		if err := h.subscriber.Subscribe(s.eventType, s.handler); err != nil {
			return err
		}
	}

	slog.Debug("notification event handlers properly registered")

	return nil
}

func (h *NotificationEventHandler) handleTrackStarted(_ context.Context, event domain.TrackStartedEvent) {
	// A previous message can survive if its end event was dropped.
	h.deleteNowPlaying(event.GuildID)

	if event.NotificationChannelID == 0 || event.Track == nil {
		return
	}

	info := h.nowPlayingInfo(event)

	slog.Debug(
		"sending now playing notification",
		"guild", event.GuildID,
		"title", info.Title,
	)

	messageID, err := h.notifier.SendNowPlaying(event.NotificationChannelID, info)
	if err != nil {
		slog.Error(
			"failed to send now playing notification",
			"guild", event.GuildID,
			"error", err,
		)
		return
	}

	h.mu.Lock()
	h.nowPlaying[event.GuildID] = nowPlayingMessage{
		channelID: event.NotificationChannelID,
		messageID: messageID,
	}
	h.mu.Unlock()
}

func (h *NotificationEventHandler) handleTrackEnded(_ context.Context, event domain.TrackEndedEvent) {
	h.deleteNowPlaying(event.GuildID)

	if !event.Reason.IsFailure() || event.NotificationChannelID == 0 {
		return
	}

	title := event.Entry.Query
	if event.Track != nil {
		title = event.Track.Title
	}

	message := fmt.Sprintf("Could not play **%s**: %v", title, event.Err)
	if err := h.notifier.SendError(event.NotificationChannelID, message); err != nil {
		slog.Warn(
			"failed to send track failure notification",
			"guild", event.GuildID,
			"reason", string(event.Reason),
			"error", err,
		)
	}
}

func (h *NotificationEventHandler) handleQueueEnded(_ context.Context, event domain.QueueEndedEvent) {
	if event.NotificationChannelID == 0 {
		return
	}

	if err := h.notifier.SendInfo(event.NotificationChannelID, queueEndedMessage); err != nil {
		slog.Warn(
			"failed to send queue ended notification",
			"guild", event.GuildID,
			"error", err,
		)
	}
}

func (h *NotificationEventHandler) handlePlayerStopped(_ context.Context, event domain.PlayerStoppedEvent) {
	h.deleteNowPlaying(event.GuildID)

	// Command stops are answered by the command itself.
	if event.Reason != domain.StopReasonIdle || event.NotificationChannelID == 0 {
		return
	}

	if err := h.notifier.SendInfo(event.NotificationChannelID, idleLeftMessage); err != nil {
		slog.Warn(
			"failed to send idle disconnect notification",
			"guild", event.GuildID,
			"error", err,
		)
	}
}

func (h *NotificationEventHandler) deleteNowPlaying(guildID snowflake.ID) {
	h.mu.Lock()
	msg, ok := h.nowPlaying[guildID]
	delete(h.nowPlaying, guildID)
	h.mu.Unlock()

	if !ok {
		return
	}

	if err := h.notifier.DeleteMessage(msg.channelID, msg.messageID); err != nil {
		slog.Warn(
			"failed to delete now playing message",
			"guild", guildID,
			"message", msg.messageID,
			"error", err,
		)
	}
}

func (h *NotificationEventHandler) nowPlayingInfo(event domain.TrackStartedEvent) *ports.NowPlayingInfo {
	track := event.Track

	info := &ports.NowPlayingInfo{
		Identifier:    track.Identifier,
		Title:         track.Title,
		Artist:        track.Artist,
		Duration:      track.FormattedDuration(),
		URI:           track.URI,
		ArtworkURL:    track.ArtworkURL,
		SourceName:    track.SourceName,
		IsStream:      track.IsStream,
		RequesterID:   event.Entry.RequesterID,
		RequesterName: event.Entry.RequesterName,
		EnqueuedAt:    event.Entry.EnqueuedAt,
	}

	if h.userInfoProvider == nil || event.Entry.RequesterID == 0 {
		return info
	}

	userInfo, err := h.userInfoProvider.GetUserInfo(event.GuildID, event.Entry.RequesterID)
	if err != nil {
		slog.Debug(
			"failed to look up requester",
			"guild", event.GuildID,
			"user", event.Entry.RequesterID,
			"error", err,
		)
		return info
	}

	if userInfo.DisplayName != "" {
		info.RequesterName = userInfo.DisplayName
	}
	info.RequesterAvatarURL = userInfo.AvatarURL

	return info
}
