package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/attaboy/matchwager/internal/domain"
	"github.com/attaboy/matchwager/internal/repository"
	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Postgres is an asset registry backed by the assets and asset_operators
// tables. Every call is its own statement and commits independently of the
// engine's unit of work. Per-token approvals record their grantor and only
// apply while the grantor owns the token.
type Postgres struct {
	db repository.DBTX
}

func NewPostgres(db repository.DBTX) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) Mint(ctx context.Context, owner common.Address, token domain.TokenID) error {
	_, err := p.db.Exec(ctx, `INSERT INTO assets (token_id, owner) VALUES ($1, $2)`,
		int64(token), owner.Bytes())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("mint %d: %w", token, ErrTokenExists)
		}
		return fmt.Errorf("mint %d: %w", token, err)
	}
	return nil
}

func (p *Postgres) Approve(ctx context.Context, owner, operator common.Address, token domain.TokenID) error {
	var approved, grantor []byte
	if operator != domain.ZeroAddress {
		approved, grantor = operator.Bytes(), owner.Bytes()
	}
	tag, err := p.db.Exec(ctx, `
		UPDATE assets SET approved = $3, approved_by = $4 WHERE token_id = $1 AND owner = $2`,
		int64(token), owner.Bytes(), approved, grantor)
	if err != nil {
		return fmt.Errorf("approve %d: %w", token, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("approve %d: %w", token, ErrNotTokenOwner)
	}
	return nil
}

func (p *Postgres) SetApprovalForAll(ctx context.Context, owner, operator common.Address, allowed bool) error {
	var err error
	if allowed {
		_, err = p.db.Exec(ctx, `
			INSERT INTO asset_operators (owner, operator) VALUES ($1, $2)
			ON CONFLICT DO NOTHING`, owner.Bytes(), operator.Bytes())
	} else {
		_, err = p.db.Exec(ctx, `DELETE FROM asset_operators WHERE owner = $1 AND operator = $2`,
			owner.Bytes(), operator.Bytes())
	}
	if err != nil {
		return fmt.Errorf("set approval for all: %w", err)
	}
	return nil
}

func (p *Postgres) OwnerOf(ctx context.Context, token domain.TokenID) (common.Address, error) {
	var owner []byte
	err := p.db.QueryRow(ctx, `SELECT owner FROM assets WHERE token_id = $1`, int64(token)).Scan(&owner)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ZeroAddress, nil
		}
		return domain.ZeroAddress, fmt.Errorf("owner of %d: %w", token, err)
	}
	return common.BytesToAddress(owner), nil
}

const authorizedClause = `(a.owner = $2 OR (a.approved = $2 AND a.approved_by = a.owner) OR EXISTS (
		SELECT 1 FROM asset_operators o WHERE o.owner = a.owner AND o.operator = $2))`

func (p *Postgres) IsAuthorizedToMove(ctx context.Context, operator common.Address, token domain.TokenID) (bool, error) {
	var ok bool
	err := p.db.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM assets a WHERE a.token_id = $1 AND `+authorizedClause+`)`,
		int64(token), operator.Bytes()).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("authorized to move %d: %w", token, err)
	}
	return ok, nil
}

func (p *Postgres) TransferCustody(ctx context.Context, operator, from, to common.Address, token domain.TokenID) error {
	tag, err := p.db.Exec(ctx, `
		UPDATE assets a SET owner = $4
		WHERE a.token_id = $1 AND a.owner = $3 AND `+authorizedClause,
		int64(token), operator.Bytes(), from.Bytes(), to.Bytes())
	if err != nil {
		return fmt.Errorf("transfer %d: %w", token, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("transfer %d from %s: %w", token, from.Hex(), ErrTransferRejected)
	}
	return nil
}
