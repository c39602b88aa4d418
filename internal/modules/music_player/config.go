package music_player

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the music player module configuration.
type Config struct {
	LavalinkAddress  string `env:"LAVALINK_ADDRESS,notEmpty"`
	LavalinkPassword string `env:"LAVALINK_PASSWORD,notEmpty"`
	LavalinkSecure   bool   `env:"LAVALINK_SECURE" envDefault:"false"`

	CommandPrefix string `env:"COMMAND_PREFIX" envDefault:"!"`
	SearchSource  string `env:"SEARCH_SOURCE"  envDefault:"ytsearch"`

	// Zero disables the respective limit.
	MaxQueueLength int           `env:"MAX_QUEUE_LENGTH" envDefault:"500"`
	IdleTimeout    time.Duration `env:"IDLE_TIMEOUT"     envDefault:"5m"`

	ResolveTimeout time.Duration `env:"RESOLVE_TIMEOUT" envDefault:"15s"`
	ResolveRate    float64       `env:"RESOLVE_RATE"    envDefault:"5"`
	ResolveBurst   int           `env:"RESOLVE_BURST"   envDefault:"10"`

	// An empty RedisAddress disables the resolve cache.
	RedisAddress    string        `env:"REDIS_ADDRESS"`
	RedisPassword   string        `env:"REDIS_PASSWORD"`
	RedisDB         int           `env:"REDIS_DB"          envDefault:"0"`
	ResolveCacheTTL time.Duration `env:"RESOLVE_CACHE_TTL" envDefault:"1h"`
}

// LoadConfig parses the module configuration from the environment.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
