package domain

// GuildQueue is the pending FIFO and now-playing slot of one guild.
// It is not safe for concurrent use; a playback controller owns it and
// mutates it from a single goroutine.
type GuildQueue struct {
	nowPlaying *NowPlaying
	pending    []QueueEntry
	maxLength  int
}

// QueueSnapshot is a read-only copy of a GuildQueue.
type QueueSnapshot struct {
	NowPlaying *NowPlaying
	Pending    []QueueEntry
}

// NewGuildQueue creates an empty queue. maxLength bounds the pending
// entries; zero or less means unbounded.
func NewGuildQueue(maxLength int) *GuildQueue {
	return &GuildQueue{
		pending:   make([]QueueEntry, 0),
		maxLength: maxLength,
	}
}

// Len returns the number of pending entries.
func (q *GuildQueue) Len() int {
	return len(q.pending)
}

// IsEmpty returns true if nothing is pending.
func (q *GuildQueue) IsEmpty() bool {
	return q.Len() == 0
}

// Enqueue appends an entry to the pending FIFO.
// Returns ErrQueueFull and discards the entry when the bound is reached.
func (q *GuildQueue) Enqueue(entry QueueEntry) error {
	if q.maxLength > 0 && len(q.pending) >= q.maxLength {
		return ErrQueueFull
	}
	q.pending = append(q.pending, entry)
	return nil
}

// PopNext removes and returns the head of the pending FIFO.
// It does not touch the now-playing slot.
func (q *GuildQueue) PopNext() (QueueEntry, bool) {
	if q.IsEmpty() {
		return QueueEntry{}, false
	}

	head := q.pending[0]
	q.pending[0] = QueueEntry{}
	q.pending = q.pending[1:]
	return head, true
}

// Peek returns a copy of the now-playing slot and pending order.
func (q *GuildQueue) Peek() QueueSnapshot {
	pending := make([]QueueEntry, len(q.pending))
	copy(pending, q.pending)

	var nowPlaying *NowPlaying
	if q.nowPlaying != nil {
		np := *q.nowPlaying
		nowPlaying = &np
	}

	return QueueSnapshot{
		NowPlaying: nowPlaying,
		Pending:    pending,
	}
}

// NowPlaying returns the current slot, or nil.
func (q *GuildQueue) NowPlaying() *NowPlaying {
	return q.nowPlaying
}

// SetNowPlaying places an entry in the now-playing slot with no resolved track yet.
func (q *GuildQueue) SetNowPlaying(entry QueueEntry) {
	q.nowPlaying = &NowPlaying{Entry: entry}
}

// SetNowPlayingTrack attaches the resolved track to the now-playing slot.
// Does nothing when the slot is empty.
func (q *GuildQueue) SetNowPlayingTrack(track *Track) {
	if q.nowPlaying == nil {
		return
	}
	q.nowPlaying.Track = track
}

// ClearNowPlaying empties the now-playing slot.
func (q *GuildQueue) ClearNowPlaying() {
	q.nowPlaying = nil
}

// Clear empties both the pending FIFO and the now-playing slot.
func (q *GuildQueue) Clear() {
	q.pending = make([]QueueEntry, 0)
	q.nowPlaying = nil
}
