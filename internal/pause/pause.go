// Package pause provides the emergency stop switches consulted before every
// mutating call. Engaging and releasing the switch is an operator concern.
package pause

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/redis/go-redis/v9"
)

// Static is an in-process switch.
type Static struct {
	paused atomic.Bool
}

func NewStatic(paused bool) *Static {
	s := &Static{}
	s.paused.Store(paused)
	return s
}

func (s *Static) IsPaused(context.Context) (bool, error) {
	return s.paused.Load(), nil
}

// Set engages or releases the switch.
func (s *Static) Set(paused bool) {
	s.paused.Store(paused)
}

// Redis reads the switch from a key operators set with SET <key> 1.
// A missing key means not paused.
type Redis struct {
	rdb redis.Cmdable
	key string
}

func NewRedis(rdb redis.Cmdable, key string) *Redis {
	return &Redis{rdb: rdb, key: key}
}

func (r *Redis) IsPaused(ctx context.Context) (bool, error) {
	val, err := r.rdb.Get(ctx, r.key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read pause key %s: %w", r.key, err)
	}
	paused, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("pause key %s holds %q: %w", r.key, val, err)
	}
	return paused, nil
}
