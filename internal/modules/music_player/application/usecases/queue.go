package usecases

import (
	"context"
	"errors"
	"strings"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/jukebot/internal/modules/music_player/domain"
)

const DefaultPageSize = 10

// PlayInput contains the input for the Play use case.
type PlayInput struct {
	GuildID               snowflake.ID
	UserID                snowflake.ID
	UserName              string
	Query                 string
	NotificationChannelID snowflake.ID
}

// PlayOutput contains the result of the Play use case.
type PlayOutput struct {
	Entry domain.QueueEntry
	// Position is 0 when the entry started right away, otherwise its 1-based
	// position among the pending entries.
	Position           int
	StartedImmediately bool
}

// QueueOutput is a read-only listing of a guild's queue.
type QueueOutput struct {
	State      domain.PlaybackState
	NowPlaying *domain.NowPlaying
	Pending    []domain.QueueEntry
}

// QueuePage is one page of pending entries.
type QueuePage struct {
	Entries      []domain.QueueEntry
	Offset       int // number of entries before this page
	TotalEntries int
	CurrentPage  int
	TotalPages   int
}

// Play enqueues a request, joining the caller's voice channel first when needed.
// It returns as soon as the entry is queued; resolution happens in the background.
func (s *MusicService) Play(ctx context.Context, input PlayInput) (*PlayOutput, error) {
	query := strings.TrimSpace(input.Query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	voiceChannelID, err := s.userVoiceChannel(input.GuildID, input.UserID)
	if err != nil {
		return nil, err
	}

	entry := domain.NewQueueEntry(query, input.UserID, input.UserName)

	var lastErr error
	for range maxAttempts {
		c := s.registry.GetOrCreate(input.GuildID)

		if _, err := s.ensureVoice(ctx, c, voiceChannelID, input.NotificationChannelID); err != nil {
			if errors.Is(err, domain.ErrControllerStopped) {
				lastErr = err
				continue
			}
			return nil, err
		}

		res, err := c.Enqueue(ctx, entry, input.NotificationChannelID)
		if errors.Is(err, domain.ErrControllerStopped) {
			lastErr = err
			continue
		}
		if err != nil {
			return nil, err
		}

		return &PlayOutput{
			Entry:              res.Entry,
			Position:           res.Position,
			StartedImmediately: res.StartedImmediately,
		}, nil
	}

	return nil, notConnected(lastErr)
}

// ShowQueue returns the now-playing entry and everything pending.
// It never creates a player; an unknown guild yields an empty listing.
func (s *MusicService) ShowQueue(ctx context.Context, guildID snowflake.ID) (*QueueOutput, error) {
	c, ok := s.registry.Get(guildID)
	if !ok {
		return &QueueOutput{State: domain.StateIdle}, nil
	}

	snap, err := c.Snapshot(ctx)
	if errors.Is(err, domain.ErrControllerStopped) {
		return &QueueOutput{State: domain.StateIdle}, nil
	}
	if err != nil {
		return nil, err
	}

	return &QueueOutput{
		State:      snap.State,
		NowPlaying: snap.NowPlaying,
		Pending:    snap.Pending,
	}, nil
}

// IsEmpty reports whether nothing is playing or pending.
func (q *QueueOutput) IsEmpty() bool {
	return q.NowPlaying == nil && len(q.Pending) == 0
}

// Page returns a 1-indexed page of pending entries. Out of range pages are clamped.
func (q *QueueOutput) Page(page, pageSize int) QueuePage {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if page <= 0 {
		page = 1
	}

	total := len(q.Pending)
	totalPages := (total + pageSize - 1) / pageSize
	if totalPages == 0 {
		totalPages = 1
	}
	page = min(page, totalPages)

	start := (page - 1) * pageSize
	end := min(start+pageSize, total)

	var entries []domain.QueueEntry
	if start < total {
		entries = q.Pending[start:end]
	}

	return QueuePage{
		Entries:      entries,
		Offset:       start,
		TotalEntries: total,
		CurrentPage:  page,
		TotalPages:   totalPages,
	}
}
