package repository

import (
	"context"

	"github.com/attaboy/matchwager/internal/domain"
	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX abstracts pgx.Tx and pgxpool.Pool so repositories work with both.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// Store runs units of work against the match, game and index state.
// Everything done through the Tx passed to fn is committed together or not at
// all, and no other unit observes a partial effect.
type Store interface {
	// InTx runs fn as one serializable unit of work. fn may be invoked more
	// than once when the backing store retries a conflicting write, so it must
	// not have side effects outside tx that it cannot repeat.
	InTx(ctx context.Context, fn func(tx Tx) error) error

	// View runs fn against a consistent read-only snapshot.
	View(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the set of repositories visible inside a unit of work.
type Tx interface {
	MatchRepository
	GameRepository
	RoleRepository
	EventSink
}

// MatchRepository provides access to matches and their insertion order.
type MatchRepository interface {
	// Match returns nil, nil when the id is unknown.
	Match(ctx context.Context, id domain.MatchID) (*domain.Match, error)

	// InsertMatch stores a new match and appends its id to the ordered index.
	InsertMatch(ctx context.Context, m *domain.Match) error

	// UpdateMatch overwrites state, result and the prediction window.
	UpdateMatch(ctx context.Context, m *domain.Match) error

	// MatchIDs returns every match id in insertion order.
	MatchIDs(ctx context.Context) ([]domain.MatchID, error)
}

// GameRepository provides access to games, the token index and player history.
type GameRepository interface {
	// Game returns nil, nil when the id is unknown.
	Game(ctx context.Context, id domain.GameID) (*domain.Game, error)

	// NextGameID increments the game counter and returns the new value.
	NextGameID(ctx context.Context) (domain.GameID, error)

	// GameCount returns the number of games ever created.
	GameCount(ctx context.Context) (uint64, error)

	InsertGame(ctx context.Context, g *domain.Game) error
	UpdateGame(ctx context.Context, g *domain.Game) error

	// TokenGame returns the active game holding token, or 0 when free.
	TokenGame(ctx context.Context, token domain.TokenID) (domain.GameID, error)
	SetTokenGame(ctx context.Context, token domain.TokenID, id domain.GameID) error
	ClearTokenGame(ctx context.Context, token domain.TokenID) error

	// AppendPlayerGame records id in the player's game history.
	AppendPlayerGame(ctx context.Context, player common.Address, id domain.GameID) error
	PlayerGames(ctx context.Context, player common.Address) ([]domain.GameID, error)
}

// RoleRepository holds the mutable role state: the oracle principal and the
// query whitelist. The owner is fixed configuration and never stored.
type RoleRepository interface {
	// Oracle returns the zero address when no oracle has been recorded yet.
	Oracle(ctx context.Context) (common.Address, error)
	SetOracle(ctx context.Context, addr common.Address) error

	IsWhitelisted(ctx context.Context, addr common.Address) (bool, error)
	SetWhitelisted(ctx context.Context, addr common.Address, allowed bool) error
}

// EventSink appends events to the transactional outbox.
type EventSink interface {
	AppendEvents(ctx context.Context, drafts ...domain.OutboxDraft) error
}

// OutboxRepository provides the publisher's view of the event_outbox table.
type OutboxRepository interface {
	// Insert writes an outbox event (within the same transaction as the state change).
	Insert(ctx context.Context, db DBTX, draft domain.OutboxDraft) error

	// FetchUnpublished returns unpublished events for the outbox poller, oldest first.
	FetchUnpublished(ctx context.Context, db DBTX, limit int) ([]domain.OutboxRow, error)

	// MarkPublished deletes published events.
	MarkPublished(ctx context.Context, db DBTX, ids []int64) error
}
