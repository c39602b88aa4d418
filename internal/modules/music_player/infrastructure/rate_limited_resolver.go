package infrastructure

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/sglre6355/jukebot/internal/modules/music_player/application/ports"
	"github.com/sglre6355/jukebot/internal/modules/music_player/domain"
)

// RateLimitedResolver paces calls to the wrapped resolver with a token bucket.
type RateLimitedResolver struct {
	next    ports.TrackResolver
	limiter *rate.Limiter
}

// NewRateLimitedResolver allows perSecond resolves per second with the given burst.
// A non-positive perSecond disables limiting.
func NewRateLimitedResolver(next ports.TrackResolver, perSecond float64, burst int) *RateLimitedResolver {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimitedResolver{
		next:    next,
		limiter: rate.NewLimiter(limit, burst),
	}
}

// Resolve waits for a token and delegates. A cancelled wait is reported
// as the context error so skips stay quiet.
func (r *RateLimitedResolver) Resolve(ctx context.Context, query string) (*domain.Track, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		// Wait would exceed the deadline.
		return nil, fmt.Errorf("%w: %v", domain.ErrResolverUnavailable, err)
	}
	return r.next.Resolve(ctx, query)
}

var _ ports.TrackResolver = (*RateLimitedResolver)(nil)
