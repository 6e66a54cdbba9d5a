package ratelimiter

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisOpTimeout = 250 * time.Millisecond

// hitScript starts the window on the first hit so every replica sees the
// same reset time.
var hitScript = redis.NewScript(`
local hits = redis.call("INCR", KEYS[1])
if hits == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {hits, redis.call("PTTL", KEYS[1])}
`)

type redisStore struct {
	client    *redis.Client
	keyPrefix string
}

func NewRedisStore(client *redis.Client, keyPrefix string) Store {
	return &redisStore{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  redisOpTimeout,
		WriteTimeout: redisOpTimeout,
	})
}

func (s *redisStore) Hit(ctx context.Context, key string, window time.Duration) (Window, error) {
	ctx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()

	res, err := hitScript.Run(ctx, s.client, []string{s.keyPrefix + key}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return Window{}, err
	}
	if len(res) != 2 {
		return Window{}, fmt.Errorf("rate limit script returned %d values", len(res))
	}

	resetIn := time.Duration(res[1]) * time.Millisecond
	if resetIn < 0 {
		// the key lost its expiry; treat it as a fresh window
		resetIn = window
	}
	return Window{Count: int(res[0]), ResetIn: resetIn}, nil
}

func (s *redisStore) Close() error {
	return s.client.Close()
}
