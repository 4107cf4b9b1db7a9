package pause

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatic(t *testing.T) {
	s := NewStatic(false)
	paused, err := s.IsPaused(context.Background())
	require.NoError(t, err)
	assert.False(t, paused)

	s.Set(true)
	paused, _ = s.IsPaused(context.Background())
	assert.True(t, paused)
}

func TestRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	ctx := context.Background()
	sw := NewRedis(rdb, "matchwager:paused")

	paused, err := sw.IsPaused(ctx)
	require.NoError(t, err)
	assert.False(t, paused, "missing key")

	require.NoError(t, mr.Set("matchwager:paused", "1"))
	paused, err = sw.IsPaused(ctx)
	require.NoError(t, err)
	assert.True(t, paused)

	require.NoError(t, mr.Set("matchwager:paused", "false"))
	paused, err = sw.IsPaused(ctx)
	require.NoError(t, err)
	assert.False(t, paused)

	require.NoError(t, mr.Set("matchwager:paused", "maybe"))
	_, err = sw.IsPaused(ctx)
	assert.Error(t, err)
}

func TestRedis_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	mr.Close()

	_, err := NewRedis(rdb, "k").IsPaused(context.Background())
	assert.Error(t, err)
}
