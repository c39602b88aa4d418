package domain

import (
	"github.com/disgoorg/snowflake/v2"
)

// Event is a playback event published by a guild controller.
type Event interface {
	Guild() snowflake.ID
}

// TrackEndReason represents why a track left the now-playing slot.
type TrackEndReason string

const (
	// TrackEndFinished means the track played to its end.
	TrackEndFinished TrackEndReason = "finished"
	// TrackEndPlaybackFailed means the audio sink reported an error while streaming.
	TrackEndPlaybackFailed TrackEndReason = "playback_failed"
	// TrackEndResolveFailed means the request could not be turned into a track.
	TrackEndResolveFailed TrackEndReason = "resolve_failed"
	// TrackEndSkipped means the user skipped the track.
	TrackEndSkipped TrackEndReason = "skipped"
	// TrackEndCancelled means the sink cancelled the stream on its own.
	TrackEndCancelled TrackEndReason = "cancelled"
)

// IsFailure reports whether the reason should be surfaced as an error.
func (r TrackEndReason) IsFailure() bool {
	return r == TrackEndPlaybackFailed || r == TrackEndResolveFailed
}

// StopReason represents why a controller was torn down.
type StopReason string

const (
	StopReasonCommand      StopReason = "command"
	StopReasonIdle         StopReason = "idle"
	StopReasonDisconnected StopReason = "disconnected"
	StopReasonShutdown     StopReason = "shutdown"
)

// TrackStartedEvent is published when a resolved track is handed to the sink.
type TrackStartedEvent struct {
	GuildID               snowflake.ID
	Entry                 QueueEntry
	Track                 *Track
	NotificationChannelID snowflake.ID
}

// TrackEndedEvent is published exactly once per entry that left the now-playing slot.
// Track is nil when the entry never resolved.
type TrackEndedEvent struct {
	GuildID               snowflake.ID
	Entry                 QueueEntry
	Track                 *Track
	Reason                TrackEndReason
	Err                   error
	NotificationChannelID snowflake.ID
}

// QueueEndedEvent is published when the controller runs out of entries and goes idle.
type QueueEndedEvent struct {
	GuildID               snowflake.ID
	NotificationChannelID snowflake.ID
}

// PlayerStoppedEvent is published when a controller reaches the stopped state.
type PlayerStoppedEvent struct {
	GuildID               snowflake.ID
	Reason                StopReason
	NotificationChannelID snowflake.ID
}

func (e TrackStartedEvent) Guild() snowflake.ID  { return e.GuildID }
func (e TrackEndedEvent) Guild() snowflake.ID    { return e.GuildID }
func (e QueueEndedEvent) Guild() snowflake.ID    { return e.GuildID }
func (e PlayerStoppedEvent) Guild() snowflake.ID { return e.GuildID }
