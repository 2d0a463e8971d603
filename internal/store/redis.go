package store

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisOptions selects the redis server shared by the revocation set and the
// notification queue.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// Redis holds the shared client.
type Redis struct {
	Client *redis.Client
}

// NewRedis builds a client with short dial and io timeouts. Blocking
// commands such as BRPOP extend the read deadline on their own.
func NewRedis(opts RedisOptions) *Redis {
	return &Redis{Client: redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})}
}

// Healthy pings redis.
func (r *Redis) Healthy(ctx context.Context) bool {
	if r == nil || r.Client == nil {
		return false
	}
	return r.Client.Ping(ctx).Err() == nil
}

// Close releases the connection pool.
func (r *Redis) Close() error {
	if r == nil || r.Client == nil {
		return nil
	}
	return r.Client.Close()
}
