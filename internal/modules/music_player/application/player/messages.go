package player

import (
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/jukebot/internal/modules/music_player/domain"
)

// message is anything delivered to a controller's inbox.
// Commands carry a reply channel with capacity 1 so the run loop never blocks.
type message interface {
	kind() string
}

type attachMsg struct {
	voiceChannelID        snowflake.ID
	notificationChannelID snowflake.ID
	reply                 chan struct{}
}

type enqueueMsg struct {
	entry                 domain.QueueEntry
	notificationChannelID snowflake.ID
	reply                 chan enqueueReply
}

type enqueueReply struct {
	result EnqueueResult
	err    error
}

type skipMsg struct {
	notificationChannelID snowflake.ID
	reply                 chan skipReply
}

type skipReply struct {
	result SkipResult
	err    error
}

type stopMsg struct {
	reason domain.StopReason
	leave  bool
	reply  chan error
}

type snapshotMsg struct {
	reply chan Snapshot
}

type releaseMsg struct {
	reply chan bool
}

// resolvedMsg carries a TrackResolver result back to the run loop.
type resolvedMsg struct {
	token uint64
	track *domain.Track
	err   error
}

// playbackDoneMsg carries the AudioSink outcome back to the run loop.
type playbackDoneMsg struct {
	token   uint64
	outcome domain.PlaybackOutcome
}

func (attachMsg) kind() string       { return "attach" }
func (enqueueMsg) kind() string      { return "enqueue" }
func (skipMsg) kind() string         { return "skip" }
func (stopMsg) kind() string         { return "stop" }
func (snapshotMsg) kind() string     { return "snapshot" }
func (releaseMsg) kind() string      { return "release" }
func (resolvedMsg) kind() string     { return "resolved" }
func (playbackDoneMsg) kind() string { return "playback_done" }
