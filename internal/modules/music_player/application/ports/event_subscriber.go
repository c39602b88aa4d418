package ports

import (
	"context"
	"reflect"

	"github.com/sglre6355/jukebot/internal/modules/music_player/domain"
)

// EventSubscriber registers handlers for player events of a given concrete type.
// Handlers run on the subscriber's goroutine, never on the publisher's.
type EventSubscriber interface {
	Subscribe(eventType reflect.Type, handler func(context.Context, domain.Event)) error
}
