package application

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/jukebot/internal/modules/music_player/application/ports"
	"github.com/sglre6355/jukebot/internal/modules/music_player/domain"
)

// mockSubscriber captures handlers so tests can deliver events synchronously.
type mockSubscriber struct {
	handlers map[reflect.Type][]func(context.Context, domain.Event)
	err      error
}

func newMockSubscriber() *mockSubscriber {
	return &mockSubscriber{handlers: make(map[reflect.Type][]func(context.Context, domain.Event))}
}

func (m *mockSubscriber) Subscribe(eventType reflect.Type, handler func(context.Context, domain.Event)) error {
	if m.err != nil {
		return m.err
	}
	m.handlers[eventType] = append(m.handlers[eventType], handler)
	return nil
}

func (m *mockSubscriber) deliver(event domain.Event) {
	for _, h := range m.handlers[reflect.TypeOf(event)] {
		h(context.Background(), event)
	}
}

type mockNotifier struct {
	mu                sync.Mutex
	sentNowPlaying    []*ports.NowPlayingInfo
	sentErrors        []string
	sentInfos         []string
	deletedMessages   []snowflake.ID
	sendNowPlayingErr error
	lastMessageID     snowflake.ID
}

func (m *mockNotifier) SendNowPlaying(_ snowflake.ID, info *ports.NowPlayingInfo) (snowflake.ID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendNowPlayingErr != nil {
		return 0, m.sendNowPlayingErr
	}
	m.sentNowPlaying = append(m.sentNowPlaying, info)
	m.lastMessageID++
	return m.lastMessageID, nil
}

func (m *mockNotifier) DeleteMessage(_ snowflake.ID, messageID snowflake.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletedMessages = append(m.deletedMessages, messageID)
	return nil
}

func (m *mockNotifier) SendError(_ snowflake.ID, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sentErrors = append(m.sentErrors, message)
	return nil
}

func (m *mockNotifier) SendInfo(_ snowflake.ID, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sentInfos = append(m.sentInfos, message)
	return nil
}

type mockUserInfoProvider struct {
	info ports.UserInfo
	err  error
}

func (m *mockUserInfoProvider) GetUserInfo(_, _ snowflake.ID) (ports.UserInfo, error) {
	return m.info, m.err
}

const (
	testGuild   = snowflake.ID(1)
	testChannel = snowflake.ID(2)
)

func newTestHandler(t *testing.T, users ports.UserInfoProvider) (*mockSubscriber, *mockNotifier) {
	t.Helper()

	sub := newMockSubscriber()
	notifier := &mockNotifier{}
	h := NewNotificationEventHandler(sub, notifier, users)
	if err := h.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	return sub, notifier
}

func startedEvent(title string) domain.TrackStartedEvent {
	entry := domain.NewQueueEntry(title, snowflake.ID(9), "listener")
	return domain.TrackStartedEvent{
		GuildID:               testGuild,
		Entry:                 entry,
		Track:                 &domain.Track{Encoded: "enc", Title: title, SourceName: "youtube"},
		NotificationChannelID: testChannel,
	}
}

func TestNotificationEventHandler_StartFails(t *testing.T) {
	sub := newMockSubscriber()
	sub.err = errors.New("closed")

	h := NewNotificationEventHandler(sub, &mockNotifier{}, nil)
	if err := h.Start(); err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestNotificationEventHandler_NowPlayingLifecycle(t *testing.T) {
	sub, notifier := newTestHandler(t, &mockUserInfoProvider{
		info: ports.UserInfo{DisplayName: "Listener", AvatarURL: "https://cdn/avatar.png"},
	})

	started := startedEvent("songA")
	sub.deliver(started)

	if len(notifier.sentNowPlaying) != 1 {
		t.Fatalf("now playing messages = %d, want 1", len(notifier.sentNowPlaying))
	}
	info := notifier.sentNowPlaying[0]
	if info.Title != "songA" || info.RequesterName != "Listener" || info.RequesterAvatarURL == "" {
		t.Errorf("info = %+v", info)
	}

	sub.deliver(domain.TrackEndedEvent{
		GuildID:               testGuild,
		Entry:                 started.Entry,
		Track:                 started.Track,
		Reason:                domain.TrackEndFinished,
		NotificationChannelID: testChannel,
	})

	if len(notifier.deletedMessages) != 1 || notifier.deletedMessages[0] != 1 {
		t.Errorf("deleted = %v, want [1]", notifier.deletedMessages)
	}
	if len(notifier.sentErrors) != 0 {
		t.Errorf("errors = %v, want none", notifier.sentErrors)
	}

	// Nothing left to delete.
	sub.deliver(domain.PlayerStoppedEvent{GuildID: testGuild, Reason: domain.StopReasonCommand})
	if len(notifier.deletedMessages) != 1 {
		t.Errorf("deleted = %v, want one deletion", notifier.deletedMessages)
	}
}

func TestNotificationEventHandler_UserLookupFailureKeepsRequesterName(t *testing.T) {
	sub, notifier := newTestHandler(t, &mockUserInfoProvider{err: errors.New("unknown member")})

	sub.deliver(startedEvent("songA"))

	if len(notifier.sentNowPlaying) != 1 || notifier.sentNowPlaying[0].RequesterName != "listener" {
		t.Errorf("sent = %+v", notifier.sentNowPlaying)
	}
}

func TestNotificationEventHandler_SendFailureIsNotTracked(t *testing.T) {
	sub, notifier := newTestHandler(t, nil)
	notifier.sendNowPlayingErr = errors.New("missing permissions")

	sub.deliver(startedEvent("songA"))
	sub.deliver(domain.TrackEndedEvent{GuildID: testGuild, Reason: domain.TrackEndFinished})

	if len(notifier.deletedMessages) != 0 {
		t.Errorf("deleted = %v, want none", notifier.deletedMessages)
	}
}

func TestNotificationEventHandler_TrackFailures(t *testing.T) {
	tests := []struct {
		name      string
		event     domain.TrackEndedEvent
		wantError string
	}{
		{
			name: "resolve failure names the query",
			event: domain.TrackEndedEvent{
				GuildID:               testGuild,
				Entry:                 domain.QueueEntry{Query: "missing song"},
				Reason:                domain.TrackEndResolveFailed,
				Err:                   domain.ErrTrackNotFound,
				NotificationChannelID: testChannel,
			},
			wantError: "missing song",
		},
		{
			name: "playback failure names the track",
			event: domain.TrackEndedEvent{
				GuildID:               testGuild,
				Entry:                 domain.QueueEntry{Query: "query"},
				Track:                 &domain.Track{Title: "Real Title"},
				Reason:                domain.TrackEndPlaybackFailed,
				Err:                   domain.ErrPlaybackFailed,
				NotificationChannelID: testChannel,
			},
			wantError: "Real Title",
		},
		{
			name: "skip is silent",
			event: domain.TrackEndedEvent{
				GuildID:               testGuild,
				Reason:                domain.TrackEndSkipped,
				NotificationChannelID: testChannel,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub, notifier := newTestHandler(t, nil)
			sub.deliver(tt.event)

			if tt.wantError == "" {
				if len(notifier.sentErrors) != 0 {
					t.Errorf("errors = %v, want none", notifier.sentErrors)
				}
				return
			}
			if len(notifier.sentErrors) != 1 || !strings.Contains(notifier.sentErrors[0], tt.wantError) {
				t.Errorf("errors = %v, want one mentioning %q", notifier.sentErrors, tt.wantError)
			}
		})
	}
}

func TestNotificationEventHandler_QueueEnded(t *testing.T) {
	sub, notifier := newTestHandler(t, nil)

	sub.deliver(domain.QueueEndedEvent{GuildID: testGuild})
	if len(notifier.sentInfos) != 0 {
		t.Errorf("infos without channel = %v, want none", notifier.sentInfos)
	}

	sub.deliver(domain.QueueEndedEvent{GuildID: testGuild, NotificationChannelID: testChannel})
	if len(notifier.sentInfos) != 1 || notifier.sentInfos[0] != queueEndedMessage {
		t.Errorf("infos = %v, want [%q]", notifier.sentInfos, queueEndedMessage)
	}
}

func TestNotificationEventHandler_PlayerStopped(t *testing.T) {
	tests := []struct {
		reason   domain.StopReason
		wantInfo bool
	}{
		{reason: domain.StopReasonCommand},
		{reason: domain.StopReasonIdle, wantInfo: true},
		{reason: domain.StopReasonDisconnected},
		{reason: domain.StopReasonShutdown},
	}

	for _, tt := range tests {
		t.Run(string(tt.reason), func(t *testing.T) {
			sub, notifier := newTestHandler(t, nil)
			sub.deliver(startedEvent("songA"))

			sub.deliver(domain.PlayerStoppedEvent{
				GuildID:               testGuild,
				Reason:                tt.reason,
				NotificationChannelID: testChannel,
			})

			if len(notifier.deletedMessages) != 1 {
				t.Errorf("deleted = %v, want the now playing message", notifier.deletedMessages)
			}
			if got := len(notifier.sentInfos) == 1; got != tt.wantInfo {
				t.Errorf("infos = %v, want info sent = %v", notifier.sentInfos, tt.wantInfo)
			}
		})
	}
}
