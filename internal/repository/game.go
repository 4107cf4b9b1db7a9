package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/attaboy/matchwager/internal/domain"
	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
)

func (t *pgTx) Game(ctx context.Context, id domain.GameID) (*domain.Game, error) {
	row := t.tx.QueryRow(ctx, `
		SELECT id, match_id, player1, p1_token_id, p1_prediction,
		       player2, p2_token_id, p2_prediction, state
		FROM games WHERE id = $1`, int64(id))
	return scanGame(row)
}

func (t *pgTx) NextGameID(ctx context.Context) (domain.GameID, error) {
	var next int64
	err := t.tx.QueryRow(ctx, `
		UPDATE counters SET value = value + 1 WHERE name = 'games' RETURNING value`).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("next game id: %w", err)
	}
	return domain.GameID(next), nil
}

func (t *pgTx) GameCount(ctx context.Context) (uint64, error) {
	var n int64
	err := t.tx.QueryRow(ctx, `SELECT value FROM counters WHERE name = 'games'`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("game count: %w", err)
	}
	return uint64(n), nil
}

func (t *pgTx) InsertGame(ctx context.Context, g *domain.Game) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO games (id, match_id, player1, p1_token_id, p1_prediction,
		                   player2, p2_token_id, p2_prediction, state)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		int64(g.ID), int64(g.MatchID), g.Player1.Bytes(), int64(g.P1TokenID), int16(g.P1Prediction),
		g.Player2.Bytes(), int64(g.P2TokenID), int16(g.P2Prediction), int16(g.State))
	if err != nil {
		return fmt.Errorf("insert game: %w", err)
	}
	return nil
}

func (t *pgTx) UpdateGame(ctx context.Context, g *domain.Game) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE games
		SET player2 = $2, p2_token_id = $3, p2_prediction = $4, state = $5, updated_at = now()
		WHERE id = $1`,
		int64(g.ID), g.Player2.Bytes(), int64(g.P2TokenID), int16(g.P2Prediction), int16(g.State))
	if err != nil {
		return fmt.Errorf("update game: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("update game %d: no row", g.ID)
	}
	return nil
}

func (t *pgTx) TokenGame(ctx context.Context, token domain.TokenID) (domain.GameID, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `SELECT game_id FROM token_games WHERE token_id = $1`, int64(token)).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("token game: %w", err)
	}
	return domain.GameID(id), nil
}

func (t *pgTx) SetTokenGame(ctx context.Context, token domain.TokenID, id domain.GameID) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO token_games (token_id, game_id) VALUES ($1, $2)
		ON CONFLICT (token_id) DO UPDATE SET game_id = EXCLUDED.game_id`,
		int64(token), int64(id))
	if err != nil {
		return fmt.Errorf("set token game: %w", err)
	}
	return nil
}

func (t *pgTx) ClearTokenGame(ctx context.Context, token domain.TokenID) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM token_games WHERE token_id = $1`, int64(token)); err != nil {
		return fmt.Errorf("clear token game: %w", err)
	}
	return nil
}

func (t *pgTx) AppendPlayerGame(ctx context.Context, player common.Address, id domain.GameID) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO player_games (player, game_id) VALUES ($1, $2)`,
		player.Bytes(), int64(id))
	if err != nil {
		return fmt.Errorf("append player game: %w", err)
	}
	return nil
}

func (t *pgTx) PlayerGames(ctx context.Context, player common.Address) ([]domain.GameID, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT game_id FROM player_games WHERE player = $1 ORDER BY seq ASC`, player.Bytes())
	if err != nil {
		return nil, fmt.Errorf("list player games: %w", err)
	}
	defer rows.Close()

	var ids []domain.GameID
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan player game: %w", err)
		}
		ids = append(ids, domain.GameID(id))
	}
	return ids, rows.Err()
}

func scanGame(row pgx.Row) (*domain.Game, error) {
	var (
		g                     domain.Game
		id, matchID, p1, p2   int64
		player1, player2      []byte
		p1Pred, p2Pred, state int16
	)
	err := row.Scan(&id, &matchID, &player1, &p1, &p1Pred, &player2, &p2, &p2Pred, &state)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan game: %w", err)
	}
	g.ID = domain.GameID(id)
	g.MatchID = domain.MatchID(matchID)
	g.Player1 = common.BytesToAddress(player1)
	g.P1TokenID = domain.TokenID(p1)
	g.P1Prediction = domain.Outcome(p1Pred)
	g.Player2 = common.BytesToAddress(player2)
	g.P2TokenID = domain.TokenID(p2)
	g.P2Prediction = domain.Outcome(p2Pred)
	g.State = domain.GameState(state)
	return &g, nil
}
