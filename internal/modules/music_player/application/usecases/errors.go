package usecases

import "github.com/sglre6355/jukebot/internal/modules/music_player/domain"

// Errors surfaced to the presentation layer. They alias the domain sentinels
// so callers can match with errors.Is without importing domain.
var (
	// ErrNotConnected is returned when an operation requires the bot to be in a voice channel.
	ErrNotConnected = domain.ErrNotConnected

	// ErrUserNotInVoice is returned when the user is not in a voice channel.
	ErrUserNotInVoice = domain.ErrUserNotInVoice

	// ErrNothingToSkip is returned by Skip when nothing is resolving or playing.
	ErrNothingToSkip = domain.ErrNothingToSkip

	// ErrQueueFull is returned when the guild queue has reached its bound.
	ErrQueueFull = domain.ErrQueueFull

	// ErrEmptyQuery is returned when Play is called without a query.
	ErrEmptyQuery = domain.ErrEmptyQuery
)
