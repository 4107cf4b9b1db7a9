package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
)

func (t *pgTx) Oracle(ctx context.Context) (common.Address, error) {
	var raw []byte
	err := t.tx.QueryRow(ctx, `SELECT address FROM roles WHERE name = 'oracle'`).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return common.Address{}, nil
		}
		return common.Address{}, fmt.Errorf("load oracle: %w", err)
	}
	return common.BytesToAddress(raw), nil
}

func (t *pgTx) SetOracle(ctx context.Context, addr common.Address) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO roles (name, address) VALUES ('oracle', $1)
		ON CONFLICT (name) DO UPDATE SET address = EXCLUDED.address, updated_at = now()`,
		addr.Bytes())
	if err != nil {
		return fmt.Errorf("set oracle: %w", err)
	}
	return nil
}

func (t *pgTx) IsWhitelisted(ctx context.Context, addr common.Address) (bool, error) {
	var ok bool
	err := t.tx.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM query_whitelist WHERE address = $1)`, addr.Bytes()).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("check whitelist: %w", err)
	}
	return ok, nil
}

func (t *pgTx) SetWhitelisted(ctx context.Context, addr common.Address, allowed bool) error {
	var err error
	if allowed {
		_, err = t.tx.Exec(ctx, `
			INSERT INTO query_whitelist (address) VALUES ($1) ON CONFLICT (address) DO NOTHING`,
			addr.Bytes())
	} else {
		_, err = t.tx.Exec(ctx, `DELETE FROM query_whitelist WHERE address = $1`, addr.Bytes())
	}
	if err != nil {
		return fmt.Errorf("set whitelist: %w", err)
	}
	return nil
}
