package infrastructure

import (
	"sync"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/jukebot/internal/modules/music_player/domain"
)

// pendingPlayback is a track handed to Lavalink whose outcome is not known yet.
type pendingPlayback struct {
	encoded   string
	out       chan domain.PlaybackOutcome
	done      chan struct{}
	exception string
	once      sync.Once
}

func (p *pendingPlayback) deliver(outcome domain.PlaybackOutcome) {
	p.once.Do(func() {
		p.out <- outcome
		close(p.done)
	})
}

// playbackTracker matches Lavalink player events to the Play call that
// started the track. There is at most one pending playback per guild.
type playbackTracker struct {
	mu      sync.Mutex
	pending map[snowflake.ID]*pendingPlayback
	locks   map[snowflake.ID]*sync.Mutex
}

func newPlaybackTracker() *playbackTracker {
	return &playbackTracker{
		pending: make(map[snowflake.ID]*pendingPlayback),
		locks:   make(map[snowflake.ID]*sync.Mutex),
	}
}

// guildLock serializes player updates of one guild.
func (t *playbackTracker) guildLock(guildID snowflake.ID) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()

	l, ok := t.locks[guildID]
	if !ok {
		l = &sync.Mutex{}
		t.locks[guildID] = l
	}
	return l
}

// begin registers a new playback. A playback it replaces is reported as cancelled.
func (t *playbackTracker) begin(guildID snowflake.ID, encoded string) *pendingPlayback {
	p := &pendingPlayback{
		encoded: encoded,
		out:     make(chan domain.PlaybackOutcome, 1),
		done:    make(chan struct{}),
	}

	t.mu.Lock()
	prev := t.pending[guildID]
	t.pending[guildID] = p
	t.mu.Unlock()

	if prev != nil {
		prev.deliver(domain.Cancelled())
	}
	return p
}

// abandon removes p if it is still the guild's pending playback.
func (t *playbackTracker) abandon(guildID snowflake.ID, p *pendingPlayback) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.pending[guildID] != p {
		return false
	}
	delete(t.pending, guildID)
	return true
}

// recordException stores the message of a track exception until the
// matching end event arrives.
func (t *playbackTracker) recordException(guildID snowflake.ID, encoded, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if p := t.pending[guildID]; p != nil && p.encoded == encoded {
		p.exception = message
	}
}

// exception returns the recorded exception message for the pending playback.
func (t *playbackTracker) exception(guildID snowflake.ID, encoded string) string {
	t.mu.Lock()
	defer t.mu.Unlock()

	if p := t.pending[guildID]; p != nil && p.encoded == encoded {
		return p.exception
	}
	return ""
}

// complete delivers outcome to the pending playback of encoded.
// Events for any other track are ignored and false is returned.
func (t *playbackTracker) complete(guildID snowflake.ID, encoded string, outcome domain.PlaybackOutcome) bool {
	t.mu.Lock()
	p := t.pending[guildID]
	if p == nil || p.encoded != encoded {
		t.mu.Unlock()
		return false
	}
	delete(t.pending, guildID)
	t.mu.Unlock()

	p.deliver(outcome)
	return true
}

// forget drops all state of a guild, cancelling its pending playback.
func (t *playbackTracker) forget(guildID snowflake.ID) {
	t.mu.Lock()
	p := t.pending[guildID]
	delete(t.pending, guildID)
	t.mu.Unlock()

	if p != nil {
		p.deliver(domain.Cancelled())
	}
}
