//go:build integration

package testutil

import (
	"context"
	"time"
)

// CleanAll truncates every table and reseeds the game counter.
func (env *TestEnv) CleanAll() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tables := []string{
		"player_games",
		"token_games",
		"games",
		"matches",
		"query_whitelist",
		"roles",
		"event_outbox",
		"asset_operators",
		"assets",
	}
	for _, table := range tables {
		if _, err := env.Pool.Exec(ctx, "TRUNCATE TABLE "+table+" CASCADE"); err != nil {
			env.t.Fatalf("truncate %s: %v", table, err)
		}
	}
	if _, err := env.Pool.Exec(ctx, "UPDATE counters SET value = 0 WHERE name = 'games'"); err != nil {
		env.t.Fatalf("reset game counter: %v", err)
	}
}
