package domain

// PlaybackState is the state of a guild's playback controller.
type PlaybackState int32

const (
	StateIdle      PlaybackState = iota // nothing resolving or playing
	StateResolving                      // now-playing entry is being resolved
	StatePlaying                        // now-playing track is streaming
	StateStopped                        // terminal, controller is torn down
)

// String returns the lowercase state name.
func (s PlaybackState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateResolving:
		return "resolving"
	case StatePlaying:
		return "playing"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// IsActive reports whether a track occupies the now-playing slot.
func (s PlaybackState) IsActive() bool {
	return s == StateResolving || s == StatePlaying
}
