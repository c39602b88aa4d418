package domain

import "errors"

var (
	// ErrQueueFull is returned when an enqueue would exceed the configured queue length.
	ErrQueueFull = errors.New("the queue is full")

	// ErrNotConnected is returned when a command needs a voice connection and there is none.
	ErrNotConnected = errors.New("not connected to a voice channel")

	// ErrNothingToSkip is returned by Skip when no track is resolving or playing.
	ErrNothingToSkip = errors.New("nothing is currently playing")

	// ErrControllerStopped is returned when a command reaches a controller after Stop.
	ErrControllerStopped = errors.New("player has been stopped")

	// ErrEmptyQuery is returned when a play request carries no query.
	ErrEmptyQuery = errors.New("a URL or search term is required")

	// ErrUserNotInVoice is returned when the caller is not in a voice channel.
	ErrUserNotInVoice = errors.New("join a voice channel first")

	// ErrTrackNotFound is returned by resolvers when a query yields no results.
	ErrTrackNotFound = errors.New("no results found")

	// ErrResolverUnavailable is returned by resolvers on network or backend failures.
	ErrResolverUnavailable = errors.New("track resolver unavailable")

	// ErrUnsupportedSource is returned by resolvers for sources they cannot load.
	ErrUnsupportedSource = errors.New("unsupported source")

	// ErrPlaybackFailed wraps errors reported by the audio sink while streaming.
	ErrPlaybackFailed = errors.New("playback failed")
)
