package ports

import "github.com/sglre6355/jukebot/internal/modules/music_player/domain"

// EventPublisher defines the interface for publishing events asynchronously.
// Publish must not block the caller.
type EventPublisher interface {
	Publish(event domain.Event) error
}
