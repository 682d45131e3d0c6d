package localstore

import (
	"context"
	"errors"
	"time"

	redisclient "github.com/angelmondragon/storefront-edge/pkg/redis"
)

type redisStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

type redisKeyer interface {
	LocalKey(parts ...string) string
}

// Redis stores entries as plain strings under the sf:local namespace.
type Redis struct {
	store redisStore
	keyer redisKeyer
	ttl   time.Duration
}

// NewRedis wraps the shared redis client. ttl bounds how long an abandoned
// session's entries survive; zero keeps them forever.
func NewRedis(client *redisclient.Client, ttl time.Duration) *Redis {
	return &Redis{store: client, keyer: client, ttl: ttl}
}

func (r *Redis) Get(ctx context.Context, key string) (string, error) {
	v, err := r.store.Get(ctx, r.keyer.LocalKey(key))
	if err != nil {
		if errors.Is(err, redisclient.ErrNil) {
			return "", ErrNotFound
		}
		return "", err
	}
	return v, nil
}

func (r *Redis) Set(ctx context.Context, key, value string) error {
	return r.store.Set(ctx, r.keyer.LocalKey(key), value, r.ttl)
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	return r.store.Del(ctx, r.keyer.LocalKey(key))
}
