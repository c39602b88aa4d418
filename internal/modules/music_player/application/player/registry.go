package player

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/jukebot/internal/modules/music_player/domain"
)

// Registry owns at most one live Controller per guild.
type Registry struct {
	deps Dependencies
	opts Options

	mu          sync.Mutex
	controllers map[snowflake.ID]*Controller
}

// NewRegistry creates a Registry that builds controllers from deps and opts.
func NewRegistry(deps Dependencies, opts Options) *Registry {
	return &Registry{
		deps:        deps,
		opts:        opts,
		controllers: make(map[snowflake.ID]*Controller),
	}
}

// GetOrCreate returns the live controller for guildID, creating one if there
// is none or the stored one has stopped.
func (r *Registry) GetOrCreate(guildID snowflake.ID) *Controller {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.controllers[guildID]; ok && c.State() != domain.StateStopped {
		return c
	}

	c := newController(guildID, r.deps, r.opts, r.release)
	r.controllers[guildID] = c

	slog.Debug("created player", "guild", guildID)

	return c
}

// Get returns the live controller for guildID.
func (r *Registry) Get(guildID snowflake.ID) (*Controller, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.controllers[guildID]
	if !ok || c.State() == domain.StateStopped {
		return nil, false
	}
	return c, true
}

// Remove drops the controller for guildID if it has stopped.
// Live controllers are left in place and false is returned.
func (r *Registry) Remove(guildID snowflake.ID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.controllers[guildID]
	if !ok || c.State() != domain.StateStopped {
		return false
	}
	delete(r.controllers, guildID)
	return true
}

// Len returns the number of stored controllers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.controllers)
}

// Shutdown stops every controller and waits for their loops to exit.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	controllers := make([]*Controller, 0, len(r.controllers))
	for _, c := range r.controllers {
		controllers = append(controllers, c)
	}
	r.mu.Unlock()

	var errs []error
	for _, c := range controllers {
		if err := c.stop(ctx, domain.StopReasonShutdown, true); err != nil &&
			!errors.Is(err, domain.ErrControllerStopped) {
			errs = append(errs, err)
		}
		select {
		case <-c.Done():
		case <-ctx.Done():
			return errors.Join(append(errs, ctx.Err())...)
		}
	}

	return errors.Join(errs...)
}

// release is the onStopped hook of every controller. It only removes the
// exact controller passed in, so a replacement created in the meantime stays.
func (r *Registry) release(c *Controller) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cur, ok := r.controllers[c.guildID]; ok && cur == c {
		delete(r.controllers, c.guildID)
	}
}
