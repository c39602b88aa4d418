package infrastructure

import (
	"sync"

	"github.com/disgoorg/snowflake/v2"
)

// voiceUpdate is a complete voice handshake, ready for Lavalink.
type voiceUpdate struct {
	channelID *snowflake.ID
	sessionID string
	token     string
	endpoint  string
}

// voiceHandshake is the part of a guild's handshake received so far.
type voiceHandshake struct {
	update     voiceUpdate
	haveState  bool
	haveServer bool

	// ready is closed once both halves arrive; nil while nobody is waiting.
	ready chan struct{}
}

// voiceHandshakes pairs the VoiceStateUpdate and VoiceServerUpdate Discord
// sends for every voice connection. The two arrive in either order and
// Lavalink rejects a partial voice state, so each guild's halves are held
// until both are present.
type voiceHandshakes struct {
	mu     sync.Mutex
	guilds map[snowflake.ID]*voiceHandshake
}

func newVoiceHandshakes() *voiceHandshakes {
	return &voiceHandshakes{guilds: make(map[snowflake.ID]*voiceHandshake)}
}

// expect returns a channel closed when the guild's next handshake completes.
// The returned func must be called once the caller stops waiting.
func (h *voiceHandshakes) expect(guildID snowflake.ID) (<-chan struct{}, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	hs := h.getOrCreate(guildID)
	if hs.ready == nil {
		hs.ready = make(chan struct{})
	}
	ready := hs.ready

	return ready, func() {
		h.mu.Lock()
		defer h.mu.Unlock()

		if hs, ok := h.guilds[guildID]; ok && hs.ready == ready {
			hs.ready = nil
			if !hs.haveState && !hs.haveServer {
				delete(h.guilds, guildID)
			}
		}
	}
}

// state records the voice state half. It returns the full update when the
// server half is already present.
func (h *voiceHandshakes) state(guildID snowflake.ID, channelID *snowflake.ID, sessionID string) (voiceUpdate, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	hs := h.getOrCreate(guildID)
	hs.haveState = true
	hs.update.channelID = channelID
	hs.update.sessionID = sessionID

	return h.completeLocked(guildID, hs)
}

// server records the voice server half. It returns the full update when the
// state half is already present.
func (h *voiceHandshakes) server(guildID snowflake.ID, token, endpoint string) (voiceUpdate, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	hs := h.getOrCreate(guildID)
	hs.haveServer = true
	hs.update.token = token
	hs.update.endpoint = endpoint

	return h.completeLocked(guildID, hs)
}

// reset drops any half-received handshake for the guild. Waiters stay registered.
func (h *voiceHandshakes) reset(guildID snowflake.ID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	hs, ok := h.guilds[guildID]
	if !ok {
		return
	}
	if hs.ready == nil {
		delete(h.guilds, guildID)
		return
	}
	h.guilds[guildID] = &voiceHandshake{ready: hs.ready}
}

func (h *voiceHandshakes) getOrCreate(guildID snowflake.ID) *voiceHandshake {
	hs, ok := h.guilds[guildID]
	if !ok {
		hs = &voiceHandshake{}
		h.guilds[guildID] = hs
	}
	return hs
}

func (h *voiceHandshakes) completeLocked(guildID snowflake.ID, hs *voiceHandshake) (voiceUpdate, bool) {
	if !hs.haveState || !hs.haveServer {
		return voiceUpdate{}, false
	}

	if hs.ready != nil {
		close(hs.ready)
	}
	delete(h.guilds, guildID)

	return hs.update, true
}
