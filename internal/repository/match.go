package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/attaboy/matchwager/internal/domain"
	"github.com/jackc/pgx/v5"
)

const matchColumns = `id, predict_before, result_after, state, result, description, result_source`

func (t *pgTx) Match(ctx context.Context, id domain.MatchID) (*domain.Match, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+matchColumns+` FROM matches WHERE id = $1`, int64(id))
	return scanMatch(row)
}

func (t *pgTx) InsertMatch(ctx context.Context, m *domain.Match) error {
	// seq is a BIGSERIAL and provides the enumeration order.
	_, err := t.tx.Exec(ctx, `
		INSERT INTO matches (id, predict_before, result_after, state, result, description, result_source)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		int64(m.ID), m.PredictBefore, m.ResultAfter, int16(m.State), int16(m.Result),
		m.Description, m.ResultSource)
	if err != nil {
		return fmt.Errorf("insert match: %w", err)
	}
	return nil
}

func (t *pgTx) UpdateMatch(ctx context.Context, m *domain.Match) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE matches
		SET predict_before = $2, result_after = $3, state = $4, result = $5, updated_at = now()
		WHERE id = $1`,
		int64(m.ID), m.PredictBefore, m.ResultAfter, int16(m.State), int16(m.Result))
	if err != nil {
		return fmt.Errorf("update match: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("update match %d: no row", m.ID)
	}
	return nil
}

func (t *pgTx) MatchIDs(ctx context.Context) ([]domain.MatchID, error) {
	rows, err := t.tx.Query(ctx, `SELECT id FROM matches ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("list match ids: %w", err)
	}
	defer rows.Close()

	var ids []domain.MatchID
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan match id: %w", err)
		}
		ids = append(ids, domain.MatchID(id))
	}
	return ids, rows.Err()
}

func scanMatch(row pgx.Row) (*domain.Match, error) {
	var m domain.Match
	var id int64
	var state, result int16
	err := row.Scan(&id, &m.PredictBefore, &m.ResultAfter, &state, &result, &m.Description, &m.ResultSource)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan match: %w", err)
	}
	m.ID = domain.MatchID(id)
	m.State = domain.MatchState(state)
	m.Result = domain.Outcome(result)
	return &m, nil
}
