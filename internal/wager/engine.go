// Package wager implements the two-party asset wager: player 1 records a
// prediction against a match, player 2 joins with a different prediction and
// both assets move into engine custody, and withdrawal settles the game once
// its Resolver can decide a terminal state.
package wager

import (
	"context"
	"log/slog"
	"time"

	"github.com/attaboy/matchwager/internal/domain"
	"github.com/attaboy/matchwager/internal/repository"
	"github.com/ethereum/go-ethereum/common"
)

// AssetRegistry is the external ledger of asset ownership. Every transfer is
// performed on behalf of operator, which must own or be authorized over the token.
type AssetRegistry interface {
	OwnerOf(ctx context.Context, token domain.TokenID) (common.Address, error)
	IsAuthorizedToMove(ctx context.Context, operator common.Address, token domain.TokenID) (bool, error)
	TransferCustody(ctx context.Context, operator, from, to common.Address, token domain.TokenID) error
}

// Engine runs the wager lifecycle.
type Engine struct {
	self     common.Address
	store    repository.Store
	registry AssetRegistry
	pause    domain.PauseSwitch
	resolver Resolver
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the wall clock used for deadline checks.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithResolver replaces the default MatchResolver.
func WithResolver(r Resolver) Option {
	return func(e *Engine) { e.resolver = r }
}

// NewEngine creates an Engine whose custody principal is self.
func NewEngine(self common.Address, store repository.Store, registry AssetRegistry,
	pause domain.PauseSwitch, logger *slog.Logger, opts ...Option) (*Engine, error) {
	if self == domain.ZeroAddress {
		return nil, domain.Reject(domain.ErrZeroAddress, "engine custody address")
	}
	e := &Engine{
		self:     self,
		store:    store,
		registry: registry,
		pause:    pause,
		resolver: MatchResolver{},
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Address returns the principal the engine holds custody as.
func (e *Engine) Address() common.Address {
	return e.self
}

// mutate runs fn as one unit of work with a fresh custody journal. Transfers
// recorded in the journal are reversed when fn fails or the unit of work does
// not commit, including before each retried attempt. Only transfers into
// engine custody are journaled; payouts are not reversible.
func (e *Engine) mutate(ctx context.Context, op string, fn func(tx repository.Tx, c *custody, now time.Time) error) error {
	if err := domain.RequireNotPaused(ctx, e.pause); err != nil {
		return err
	}

	var pending *custody
	err := e.store.InTx(ctx, func(tx repository.Tx) error {
		if pending != nil {
			if err := pending.revert(ctx); err != nil {
				return err
			}
		}
		pending = e.newCustody()
		if err := fn(tx, pending, e.now()); err != nil {
			if rerr := pending.revert(ctx); rerr != nil {
				return rerr
			}
			return err
		}
		return nil
	})
	if err != nil && pending != nil {
		if rerr := pending.revert(ctx); rerr != nil {
			err = rerr
		}
	}
	if err != nil {
		e.logger.Debug("wager call rejected", "op", op, "error", err)
	}
	return domain.WrapInternal(op, err)
}

func (e *Engine) loadGame(ctx context.Context, tx repository.Tx, id domain.GameID) (*domain.Game, error) {
	g, err := tx.Game(ctx, id)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, domain.Reject(domain.ErrInvalidGameID, "%d", id)
	}
	return g, nil
}

// checkStake applies the per-asset admission rules shared by both predictions.
func (e *Engine) checkStake(ctx context.Context, tx repository.Tx, caller common.Address,
	token domain.TokenID, prediction domain.Outcome) error {
	ok, err := e.registry.IsAuthorizedToMove(ctx, e.self, token)
	if err != nil {
		return err
	}
	if !ok {
		return domain.Reject(domain.ErrNftNotApproved, "token %d", token)
	}

	owner, err := e.registry.OwnerOf(ctx, token)
	if err != nil {
		return err
	}
	if owner != caller {
		return domain.Reject(domain.ErrNotNftOwner, "token %d", token)
	}

	playing, err := e.tokenPlaying(ctx, tx, token)
	if err != nil {
		return err
	}
	if playing != 0 {
		return domain.Reject(domain.ErrTokenAlreadyPlaying, "token %d is in game %d", token, playing)
	}

	return domain.ValidatePrediction(prediction)
}

// tokenPlaying returns the Open or PredictionsReceived game holding token, or 0.
func (e *Engine) tokenPlaying(ctx context.Context, tx repository.Tx, token domain.TokenID) (domain.GameID, error) {
	id, err := tx.TokenGame(ctx, token)
	if err != nil || id == 0 {
		return 0, err
	}
	g, err := tx.Game(ctx, id)
	if err != nil {
		return 0, err
	}
	if g == nil || !g.State.Active() {
		return 0, nil
	}
	return id, nil
}
