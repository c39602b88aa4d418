package discord

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/jukebot/internal/bot"
	"github.com/sglre6355/jukebot/internal/modules/music_player/application/usecases"
	"github.com/sglre6355/jukebot/internal/modules/music_player/domain"
)

func TestHandlePlay_Queued(t *testing.T) {
	music := &mockMusicService{
		playOut: &usecases.PlayOutput{
			Entry:    domain.QueueEntry{Query: "never gonna give you up"},
			Position: 3,
		},
	}
	h := NewCommandHandlers(music)
	r := &bot.MockResponder{}

	err := h.HandlePlay(nil, guildInteraction("play", stringOption("query", "never gonna give you up")), r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := usecases.PlayInput{
		GuildID:               mustParse(testGuildID),
		UserID:                mustParse(testUserID),
		UserName:              "DJ",
		Query:                 "never gonna give you up",
		NotificationChannelID: mustParse(testChannelID),
	}
	if music.playInput != want {
		t.Errorf("expected input %+v, got %+v", want, music.playInput)
	}

	embed := r.LastEmbed()
	if embed == nil {
		t.Fatal("expected an embed response")
	}
	if embed.Color != colorSuccess {
		t.Errorf("expected success color, got %#x", embed.Color)
	}
	if !strings.Contains(embed.Description, "position 3") {
		t.Errorf("expected queue position in %q", embed.Description)
	}
}

func TestHandlePlay_StartedImmediately(t *testing.T) {
	music := &mockMusicService{
		playOut: &usecases.PlayOutput{
			Entry:              domain.QueueEntry{Query: "songA"},
			StartedImmediately: true,
		},
	}
	h := NewCommandHandlers(music)
	r := &bot.MockResponder{}

	if err := h.HandlePlay(nil, guildInteraction("play", stringOption("query", "songA")), r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := r.LastEmbed().Description; got != "Loading **songA**." {
		t.Errorf("unexpected description %q", got)
	}
}

func TestHandlers_ErrorMessages(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"not in voice", usecases.ErrUserNotInVoice, "Join a voice channel first."},
		{"not connected", usecases.ErrNotConnected, "I'm not connected to a voice channel."},
		{"queue full", usecases.ErrQueueFull, "The queue is full."},
		{"empty query", usecases.ErrEmptyQuery, "Give me a URL or search term to play."},
		{"wrapped join failure", fmt.Errorf("failed to join voice channel: %w", errors.New("timeout")),
			"failed to join voice channel: timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewCommandHandlers(&mockMusicService{playErr: tt.err})
			r := &bot.MockResponder{}

			if err := h.HandlePlay(nil, guildInteraction("play", stringOption("query", "x")), r); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			embed := r.LastEmbed()
			if embed.Color != colorError {
				t.Errorf("expected error color, got %#x", embed.Color)
			}
			if embed.Description != tt.want {
				t.Errorf("expected %q, got %q", tt.want, embed.Description)
			}
		})
	}
}

func TestHandlers_GuildOnly(t *testing.T) {
	music := &mockMusicService{}
	h := NewCommandHandlers(music)
	r := &bot.MockResponder{}

	if err := h.HandleStop(nil, dmInteraction("stop"), r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(music.calls) != 0 {
		t.Errorf("expected no service calls, got %v", music.calls)
	}
	if got := r.LastEmbed().Description; got != "This command can only be used in a server." {
		t.Errorf("unexpected description %q", got)
	}
}

func TestHandleJoin(t *testing.T) {
	tests := []struct {
		name        string
		options     []string
		out         usecases.JoinOutput
		wantChannel snowflake.ID
		want        string
	}{
		{
			name:        "caller's channel",
			out:         usecases.JoinOutput{VoiceChannelID: 400},
			wantChannel: 0,
			want:        "Connected to <#400>.",
		},
		{
			name:        "explicit channel",
			options:     []string{"500"},
			out:         usecases.JoinOutput{VoiceChannelID: 500, Moved: true},
			wantChannel: 500,
			want:        "Moved to <#500>.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			music := &mockMusicService{joinOut: &tt.out}
			h := NewCommandHandlers(music)
			r := &bot.MockResponder{}

			i := guildInteraction("join")
			if len(tt.options) > 0 {
				i = guildInteraction("join", channelOption("channel", tt.options[0]))
			}

			if err := h.HandleJoin(nil, i, r); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if music.joinInput.VoiceChannelID != tt.wantChannel {
				t.Errorf("expected voice channel %d, got %d", tt.wantChannel, music.joinInput.VoiceChannelID)
			}
			if got := r.LastEmbed().Description; got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestHandleSkip(t *testing.T) {
	next := domain.QueueEntry{Query: "songB"}
	music := &mockMusicService{
		skipOut: &usecases.SkipOutput{
			Skipped: domain.NowPlaying{
				Entry: domain.QueueEntry{Query: "songA"},
				Track: &domain.Track{Title: "Song A"},
			},
			Next: &next,
		},
	}
	h := NewCommandHandlers(music)
	r := &bot.MockResponder{}

	if err := h.HandleSkip(nil, guildInteraction("skip"), r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if music.skipInput.NotificationChannelID != mustParse(testChannelID) {
		t.Errorf("expected notification channel to be passed, got %d", music.skipInput.NotificationChannelID)
	}
	if got := r.LastEmbed().Description; got != "Skipped **Song A**. Up next: **songB**." {
		t.Errorf("unexpected description %q", got)
	}
}

func TestHandleSkip_NothingPlaying(t *testing.T) {
	h := NewCommandHandlers(&mockMusicService{skipErr: usecases.ErrNothingToSkip})
	r := &bot.MockResponder{}

	if err := h.HandleSkip(nil, guildInteraction("skip"), r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := r.LastEmbed().Description; got != "Nothing is playing." {
		t.Errorf("unexpected description %q", got)
	}
}

func TestHandleQueue_Empty(t *testing.T) {
	h := NewCommandHandlers(&mockMusicService{
		queueOut: &usecases.QueueOutput{State: domain.StateIdle},
	})
	r := &bot.MockResponder{}

	if err := h.HandleQueue(nil, guildInteraction("queue"), r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := r.LastEmbed().Description; got != "Queue is empty." {
		t.Errorf("unexpected description %q", got)
	}
}

func TestHandleQueue_Listing(t *testing.T) {
	output := &usecases.QueueOutput{
		State: domain.StatePlaying,
		NowPlaying: &domain.NowPlaying{
			Entry: domain.QueueEntry{Query: "songA"},
			Track: &domain.Track{Title: "Song A", URI: "https://example.com/a"},
		},
		Pending: []domain.QueueEntry{
			{Query: "songB", RequesterName: "alice"},
			{Query: "songC", RequesterName: "bob"},
		},
	}
	h := NewCommandHandlers(&mockMusicService{queueOut: output})
	r := &bot.MockResponder{}

	if err := h.HandleQueue(nil, guildInteraction("queue"), r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	embed := r.LastEmbed()
	want := "**Now:** [Song A](https://example.com/a)\n\n1\\. songB (by alice)\n2\\. songC (by bob)\n"
	if embed.Description != want {
		t.Errorf("expected description %q, got %q", want, embed.Description)
	}
	if embed.Footer == nil || !strings.HasPrefix(embed.Footer.Text, "Page 1/1") {
		t.Errorf("unexpected footer %+v", embed.Footer)
	}
}

func TestHandleQueue_SecondPage(t *testing.T) {
	pending := make([]domain.QueueEntry, usecases.DefaultPageSize+2)
	for i := range pending {
		pending[i] = domain.QueueEntry{Query: fmt.Sprintf("song%d", i+1), RequesterName: "alice"}
	}
	h := NewCommandHandlers(&mockMusicService{queueOut: &usecases.QueueOutput{
		State:      domain.StateResolving,
		NowPlaying: &domain.NowPlaying{Entry: domain.QueueEntry{Query: "song0"}},
		Pending:    pending,
	}})
	r := &bot.MockResponder{}

	if err := h.HandleQueue(nil, guildInteraction("queue", integerOption("page", 2)), r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	embed := r.LastEmbed()
	if !strings.HasPrefix(embed.Description, "**Now:** song0 (loading)\n") {
		t.Errorf("expected resolving now-playing line, got %q", embed.Description)
	}
	if !strings.Contains(embed.Description, "11\\. song11 (by alice)") {
		t.Errorf("expected numbering to continue on page 2, got %q", embed.Description)
	}
	if strings.Contains(embed.Description, "song1 (by") {
		t.Errorf("expected page 1 entries to be excluded, got %q", embed.Description)
	}
	if !strings.HasPrefix(embed.Footer.Text, "Page 2/2") {
		t.Errorf("unexpected footer %q", embed.Footer.Text)
	}
}

func TestHandleStop(t *testing.T) {
	music := &mockMusicService{}
	h := NewCommandHandlers(music)
	r := &bot.MockResponder{}

	if err := h.HandleStop(nil, guildInteraction("stop"), r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if music.stopGuild != mustParse(testGuildID) {
		t.Errorf("expected guild %s, got %d", testGuildID, music.stopGuild)
	}
	if got := r.LastEmbed().Description; got != "Stopped playback and disconnected." {
		t.Errorf("unexpected description %q", got)
	}
}

func TestHandlers_ReturnRespondError(t *testing.T) {
	wantErr := errors.New("interaction expired")
	h := NewCommandHandlers(&mockMusicService{})
	r := &bot.MockResponder{Err: wantErr}

	if err := h.HandleStop(nil, guildInteraction("stop"), r); !errors.Is(err, wantErr) {
		t.Errorf("expected %v, got %v", wantErr, err)
	}
}
