package oracle

import (
	"context"
	"fmt"

	"github.com/attaboy/matchwager/internal/domain"
	"github.com/attaboy/matchwager/internal/repository"
	"github.com/ethereum/go-ethereum/common"
)

// Queries require a whitelisted caller and ignore the pause switch.

func (s *Service) asReader(ctx context.Context, op string, caller common.Address, fn func(tx repository.Tx) error) error {
	err := s.store.View(ctx, func(tx repository.Tx) error {
		ok, err := tx.IsWhitelisted(ctx, caller)
		if err != nil {
			return err
		}
		if !ok {
			return domain.Reject(domain.ErrNotWhitelisted, "%s", caller.Hex())
		}
		return fn(tx)
	})
	return domain.WrapInternal(op, err)
}

// Match returns the full match record.
func (s *Service) Match(ctx context.Context, caller common.Address, id domain.MatchID) (*domain.Match, error) {
	var m *domain.Match
	err := s.asReader(ctx, "get match", caller, func(tx repository.Tx) error {
		var err error
		m, err = loadMatch(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Service) MatchState(ctx context.Context, caller common.Address, id domain.MatchID) (domain.MatchState, error) {
	m, err := s.Match(ctx, caller, id)
	if err != nil {
		return domain.MatchUninitialised, err
	}
	return m.State, nil
}

// MatchResult returns Uninitialised until the match has been resulted.
func (s *Service) MatchResult(ctx context.Context, caller common.Address, id domain.MatchID) (domain.Outcome, error) {
	m, err := s.Match(ctx, caller, id)
	if err != nil {
		return domain.OutcomeUninitialised, err
	}
	return m.Result, nil
}

// IsBeforeMatchStartTime reports whether the prediction deadline is still ahead.
func (s *Service) IsBeforeMatchStartTime(ctx context.Context, caller common.Address, id domain.MatchID) (bool, error) {
	m, err := s.Match(ctx, caller, id)
	if err != nil {
		return false, err
	}
	return s.now().Before(m.PredictBefore), nil
}

// MatchIDs returns every registered match id in registration order.
func (s *Service) MatchIDs(ctx context.Context, caller common.Address) ([]domain.MatchID, error) {
	var ids []domain.MatchID
	err := s.asReader(ctx, "list matches", caller, func(tx repository.Tx) error {
		var err error
		ids, err = tx.MatchIDs(ctx)
		return err
	})
	return ids, err
}

// MatchIDAt returns the i-th registered match id.
func (s *Service) MatchIDAt(ctx context.Context, caller common.Address, i int) (domain.MatchID, error) {
	ids, err := s.MatchIDs(ctx, caller)
	if err != nil {
		return 0, err
	}
	if i < 0 || i >= len(ids) {
		return 0, domain.ErrNotFound("match index", fmt.Sprint(i))
	}
	return ids[i], nil
}
