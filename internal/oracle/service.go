// Package oracle implements the match lifecycle: the oracle registers,
// postpones, cancels, restores and results matches, the owner governs the
// oracle and query whitelist roles, and whitelisted callers read match state.
package oracle

import (
	"context"
	"log/slog"
	"time"

	"github.com/attaboy/matchwager/internal/domain"
	"github.com/attaboy/matchwager/internal/repository"
	"github.com/ethereum/go-ethereum/common"
)

// Service is the match lifecycle authority.
type Service struct {
	owner  common.Address
	store  repository.Store
	pause  domain.PauseSwitch
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the wall clock used for deadline checks.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService validates the role principals and records oracle as the initial
// oracle unless one has already been persisted, in which case the persisted
// value wins.
func NewService(ctx context.Context, owner, oracle common.Address, store repository.Store,
	pause domain.PauseSwitch, logger *slog.Logger, opts ...Option) (*Service, error) {
	if owner == domain.ZeroAddress || oracle == domain.ZeroAddress {
		return nil, domain.Reject(domain.ErrZeroAddress, "owner and oracle are required")
	}
	if owner == oracle {
		return nil, domain.Reject(domain.ErrOracleEqOwner, "%s", owner.Hex())
	}

	s := &Service{owner: owner, store: store, pause: pause, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}

	err := store.InTx(ctx, func(tx repository.Tx) error {
		current, err := tx.Oracle(ctx)
		if err != nil {
			return err
		}
		if current != domain.ZeroAddress {
			if current != oracle {
				logger.Warn("configured oracle ignored; persisted oracle in effect",
					"configured", oracle.Hex(), "persisted", current.Hex())
			}
			return nil
		}
		return tx.SetOracle(ctx, oracle)
	})
	if err != nil {
		return nil, domain.WrapInternal("seed oracle", err)
	}
	return s, nil
}

// Owner returns the fixed owner principal.
func (s *Service) Owner() common.Address {
	return s.owner
}

// Oracle returns the current oracle principal.
func (s *Service) Oracle(ctx context.Context) (common.Address, error) {
	var oracle common.Address
	err := s.store.View(ctx, func(tx repository.Tx) error {
		var err error
		oracle, err = tx.Oracle(ctx)
		return err
	})
	return oracle, domain.WrapInternal("load oracle", err)
}

// asOracle runs fn in a unit of work after the pause and oracle checks.
func (s *Service) asOracle(ctx context.Context, op string, caller common.Address, fn func(tx repository.Tx, now time.Time) error) error {
	if err := domain.RequireNotPaused(ctx, s.pause); err != nil {
		return err
	}
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		oracle, err := tx.Oracle(ctx)
		if err != nil {
			return err
		}
		if caller != oracle {
			return domain.Reject(domain.ErrNotOracle, "%s", caller.Hex())
		}
		return fn(tx, s.now())
	})
	if err != nil {
		s.logger.Debug("oracle call rejected", "op", op, "caller", caller.Hex(), "error", err)
	}
	return domain.WrapInternal(op, err)
}

// asOwner runs fn in a unit of work after the pause and owner checks.
func (s *Service) asOwner(ctx context.Context, op string, caller common.Address, fn func(tx repository.Tx, now time.Time) error) error {
	if err := domain.RequireNotPaused(ctx, s.pause); err != nil {
		return err
	}
	if caller != s.owner {
		s.logger.Debug("owner call rejected", "op", op, "caller", caller.Hex())
		return domain.Reject(domain.ErrNotOwner, "%s", caller.Hex())
	}
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		return fn(tx, s.now())
	})
	return domain.WrapInternal(op, err)
}

// loadMatch returns MatchIDInvalid for unknown ids.
func loadMatch(ctx context.Context, tx repository.Tx, id domain.MatchID) (*domain.Match, error) {
	m, err := tx.Match(ctx, id)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, domain.Reject(domain.ErrMatchIDInvalid, "%d", id)
	}
	return m, nil
}
