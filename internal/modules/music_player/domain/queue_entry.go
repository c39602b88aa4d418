package domain

import (
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/google/uuid"
)

// QueueEntry is a playback request waiting in a guild queue.
// It is resolved into a Track only when it reaches the head of the queue.
type QueueEntry struct {
	ID            string
	Query         string
	RequesterID   snowflake.ID
	RequesterName string
	EnqueuedAt    time.Time
}

// NewQueueEntry creates a QueueEntry with a fresh id and the current time as EnqueuedAt.
func NewQueueEntry(query string, requesterID snowflake.ID, requesterName string) QueueEntry {
	return QueueEntry{
		ID:            uuid.NewString(),
		Query:         query,
		RequesterID:   requesterID,
		RequesterName: requesterName,
		EnqueuedAt:    time.Now().UTC(),
	}
}

// NowPlaying is the content of a guild's now-playing slot.
// Track is nil while the entry is still being resolved.
type NowPlaying struct {
	Entry QueueEntry
	Track *Track
}

// Title returns the resolved title, or the raw query while resolving.
func (n *NowPlaying) Title() string {
	if n.Track != nil {
		return n.Track.Title
	}
	return n.Entry.Query
}
