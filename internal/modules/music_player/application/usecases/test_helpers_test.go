package usecases

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/jukebot/internal/modules/music_player/application/player"
	"github.com/sglre6355/jukebot/internal/modules/music_player/domain"
)

type mockTrackResolver struct {
	err error
}

func (m *mockTrackResolver) Resolve(_ context.Context, query string) (*domain.Track, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &domain.Track{
		Encoded:  "encoded-" + query,
		Title:    "Track " + query,
		Artist:   "Artist",
		Duration: 3 * time.Minute,
	}, nil
}

// mockAudioSink plays until the context is cancelled.
type mockAudioSink struct{}

func (m *mockAudioSink) Play(
	ctx context.Context,
	_ snowflake.ID,
	_ *domain.Track,
) (<-chan domain.PlaybackOutcome, error) {
	out := make(chan domain.PlaybackOutcome, 1)
	go func() {
		<-ctx.Done()
		out <- domain.Cancelled()
	}()
	return out, nil
}

type mockVoiceConnection struct {
	mu        sync.Mutex
	joinErr   error
	leaveErr  error
	joins     []snowflake.ID
	leaves    int
	joinCalls int
	// onJoin, when set, runs outside the lock with the 0-based call number.
	onJoin func(call int) error
}

func (m *mockVoiceConnection) JoinChannel(_ context.Context, _, channelID snowflake.ID) error {
	m.mu.Lock()
	call := m.joinCalls
	m.joinCalls++
	onJoin := m.onJoin
	m.mu.Unlock()

	if onJoin != nil {
		if err := onJoin(call); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.joinErr != nil {
		return m.joinErr
	}
	m.joins = append(m.joins, channelID)
	return nil
}

func (m *mockVoiceConnection) LeaveChannel(_ context.Context, _ snowflake.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leaves++
	return m.leaveErr
}

func (m *mockVoiceConnection) joined() []snowflake.ID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]snowflake.ID(nil), m.joins...)
}

func (m *mockVoiceConnection) leaveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.leaves
}

type mockVoiceStateProvider struct {
	channels map[snowflake.ID]snowflake.ID // userID -> channelID
	err      error
}

func (m *mockVoiceStateProvider) GetUserVoiceChannel(
	_, userID snowflake.ID,
) (snowflake.ID, error) {
	if m.err != nil {
		return 0, m.err
	}
	return m.channels[userID], nil
}

type nopPublisher struct{}

func (nopPublisher) Publish(domain.Event) error { return nil }

const (
	guildID        = snowflake.ID(1)
	userID         = snowflake.ID(2)
	textChannelID  = snowflake.ID(3)
	voiceChannelID = snowflake.ID(4)
)

type fixture struct {
	service  *MusicService
	registry *player.Registry
	voice    *mockVoiceConnection
	state    *mockVoiceStateProvider
	resolver *mockTrackResolver
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		voice:    &mockVoiceConnection{},
		state:    &mockVoiceStateProvider{channels: map[snowflake.ID]snowflake.ID{userID: voiceChannelID}},
		resolver: &mockTrackResolver{},
	}
	f.registry = player.NewRegistry(player.Dependencies{
		Resolver:  f.resolver,
		Sink:      &mockAudioSink{},
		Voice:     f.voice,
		Publisher: nopPublisher{},
	}, player.Options{})
	f.service = NewMusicService(f.registry, f.voice, f.state)

	t.Cleanup(func() { _ = f.registry.Shutdown(context.Background()) })

	return f
}

func (f *fixture) play(t *testing.T, query string) *PlayOutput {
	t.Helper()
	out, err := f.service.Play(context.Background(), PlayInput{
		GuildID:               guildID,
		UserID:                userID,
		UserName:              "listener",
		Query:                 query,
		NotificationChannelID: textChannelID,
	})
	if err != nil {
		t.Fatalf("Play(%q) error = %v", query, err)
	}
	return out
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("timed out waiting for condition")
}
