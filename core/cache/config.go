package cache

// Config holds configuration for the Redis cache.
type Config struct {
	// Enabled turns the cache on. When off, reads always go to the database.
	Enabled bool `mapstructure:"enabled" default:"false"`
	// Addr is the Redis host:port.
	Addr string `mapstructure:"addr" default:"localhost:6379"`
	// Password is the Redis password.
	Password string `mapstructure:"password" default:""`
	// DB is the Redis database index.
	DB int `mapstructure:"db" default:"0"`
	// TTLSeconds is how long cached views live.
	TTLSeconds int `mapstructure:"ttl_seconds" default:"300"`
	// Prefix namespaces every key.
	Prefix string `mapstructure:"prefix" default:"room-mapper:"`
}
