package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sglre6355/jukebot/internal/modules/music_player/application/ports"
	"github.com/sglre6355/jukebot/internal/modules/music_player/domain"
)

// DefaultResolveCacheTTL is how long a resolved query stays cached.
const DefaultResolveCacheTTL = time.Hour

const resolveKeyPrefix = "jukebot:resolve:"

// ResolveCache stores resolved tracks by query.
// Get returns (nil, nil) on a miss.
type ResolveCache interface {
	Get(ctx context.Context, query string) (*domain.Track, error)
	Set(ctx context.Context, query string, track *domain.Track) error
}

// cachedTrack is the stored form of a track. Requester fields are
// per-request and never cached.
type cachedTrack struct {
	Encoded    string        `json:"encoded"`
	Identifier string        `json:"identifier"`
	Title      string        `json:"title"`
	Artist     string        `json:"artist"`
	Duration   time.Duration `json:"duration"`
	URI        string        `json:"uri,omitempty"`
	ArtworkURL string        `json:"artwork_url,omitempty"`
	SourceName string        `json:"source_name"`
	IsStream   bool          `json:"is_stream"`
}

func encodeTrack(track *domain.Track) ([]byte, error) {
	return json.Marshal(cachedTrack{
		Encoded:    track.Encoded,
		Identifier: track.Identifier,
		Title:      track.Title,
		Artist:     track.Artist,
		Duration:   track.Duration,
		URI:        track.URI,
		ArtworkURL: track.ArtworkURL,
		SourceName: track.SourceName,
		IsStream:   track.IsStream,
	})
}

func decodeTrack(data []byte) (*domain.Track, error) {
	var c cachedTrack
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	return &domain.Track{
		Encoded:    c.Encoded,
		Identifier: c.Identifier,
		Title:      c.Title,
		Artist:     c.Artist,
		Duration:   c.Duration,
		URI:        c.URI,
		ArtworkURL: c.ArtworkURL,
		SourceName: c.SourceName,
		IsStream:   c.IsStream,
	}, nil
}

func resolveCacheKey(query string) string {
	return resolveKeyPrefix + strings.TrimSpace(query)
}

// RedisResolveCache is a ResolveCache backed by Redis string keys with a TTL.
type RedisResolveCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisResolveCache creates a new RedisResolveCache.
func NewRedisResolveCache(client *redis.Client, ttl time.Duration) *RedisResolveCache {
	if ttl <= 0 {
		ttl = DefaultResolveCacheTTL
	}
	return &RedisResolveCache{client: client, ttl: ttl}
}

// Get returns the cached track for query, or nil on a miss.
func (c *RedisResolveCache) Get(ctx context.Context, query string) (*domain.Track, error) {
	data, err := c.client.Get(ctx, resolveCacheKey(query)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read resolve cache: %w", err)
	}

	track, err := decodeTrack(data)
	if err != nil {
		// Unreadable entries are treated as misses and overwritten later.
		return nil, nil
	}
	return track, nil
}

// Set stores track under query.
func (c *RedisResolveCache) Set(ctx context.Context, query string, track *domain.Track) error {
	data, err := encodeTrack(track)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, resolveCacheKey(query), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write resolve cache: %w", err)
	}
	return nil
}

// CachingResolver serves repeated queries from a ResolveCache.
// Cache failures are logged and fall through to the wrapped resolver.
type CachingResolver struct {
	next  ports.TrackResolver
	cache ResolveCache
}

// NewCachingResolver wraps next with cache.
func NewCachingResolver(next ports.TrackResolver, cache ResolveCache) *CachingResolver {
	return &CachingResolver{next: next, cache: cache}
}

// Resolve implements ports.TrackResolver.
func (r *CachingResolver) Resolve(ctx context.Context, query string) (*domain.Track, error) {
	track, err := r.cache.Get(ctx, query)
	if err != nil {
		slog.Debug("resolve cache lookup failed", "query", query, "error", err)
	}
	if track != nil && track.IsValid() {
		slog.Debug("resolve cache hit", "query", query)
		return track, nil
	}

	track, err = r.next.Resolve(ctx, query)
	if err != nil {
		return nil, err
	}

	if track != nil && track.IsValid() && !track.IsStream {
		if err := r.cache.Set(ctx, query, track); err != nil {
			slog.Warn("failed to cache resolved track", "query", query, "error", err)
		}
	}

	return track, nil
}

// Ensure the cache implementations satisfy their interfaces.
var (
	_ ResolveCache        = (*RedisResolveCache)(nil)
	_ ports.TrackResolver = (*CachingResolver)(nil)
)
