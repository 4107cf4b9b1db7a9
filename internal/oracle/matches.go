package oracle

import (
	"context"
	"time"

	"github.com/attaboy/matchwager/internal/domain"
	"github.com/attaboy/matchwager/internal/repository"
	"github.com/ethereum/go-ethereum/common"
)

// AddMatchParams describes a new match.
type AddMatchParams struct {
	ID            domain.MatchID
	PredictBefore time.Time
	ResultAfter   time.Time
	Description   string
	ResultSource  string
}

// AddMatch registers a match as Upcoming.
func (s *Service) AddMatch(ctx context.Context, caller common.Address, p AddMatchParams) (*domain.Match, error) {
	var added *domain.Match
	err := s.asOracle(ctx, "add match", caller, func(tx repository.Tx, now time.Time) error {
		existing, err := tx.Match(ctx, p.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.Reject(domain.ErrMatchExists, "%d", p.ID)
		}
		if err := domain.ValidateMatchWindow(now, p.PredictBefore, p.ResultAfter); err != nil {
			return err
		}

		m := &domain.Match{
			ID:            p.ID,
			PredictBefore: p.PredictBefore,
			ResultAfter:   p.ResultAfter,
			State:         domain.MatchUpcoming,
			Description:   p.Description,
			ResultSource:  p.ResultSource,
		}
		if err := tx.InsertMatch(ctx, m); err != nil {
			return err
		}
		if err := tx.AppendEvents(ctx, domain.NewMatchAddedEvent(m, now)); err != nil {
			return err
		}
		added = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("match added", "match_id", added.ID,
		"predict_before", added.PredictBefore, "result_after", added.ResultAfter)
	return added, nil
}

// PostponeMatch moves an Upcoming match to Postponed.
func (s *Service) PostponeMatch(ctx context.Context, caller common.Address, id domain.MatchID) error {
	return s.leaveUpcoming(ctx, "postpone match", caller, id, domain.MatchPostponed, domain.EventMatchPostponed)
}

// CancelMatch moves an Upcoming match to the terminal Cancelled state.
func (s *Service) CancelMatch(ctx context.Context, caller common.Address, id domain.MatchID) error {
	return s.leaveUpcoming(ctx, "cancel match", caller, id, domain.MatchCancelled, domain.EventMatchCancelled)
}

func (s *Service) leaveUpcoming(ctx context.Context, op string, caller common.Address, id domain.MatchID,
	to domain.MatchState, evt domain.EventType) error {
	err := s.asOracle(ctx, op, caller, func(tx repository.Tx, now time.Time) error {
		m, err := loadMatch(ctx, tx, id)
		if err != nil {
			return err
		}
		if m.State != domain.MatchUpcoming {
			return domain.Reject(domain.ErrMatchNotUpcoming, "match %d is %s", id, m.State)
		}
		m.State = to
		if err := tx.UpdateMatch(ctx, m); err != nil {
			return err
		}
		return tx.AppendEvents(ctx, domain.NewMatchTransitionEvent(evt, id, now))
	})
	if err != nil {
		return err
	}
	s.logger.Info("match transitioned", "match_id", id, "state", to)
	return nil
}

// RestoreMatch returns a Postponed match to Upcoming with a fresh window.
func (s *Service) RestoreMatch(ctx context.Context, caller common.Address, id domain.MatchID,
	predictBefore, resultAfter time.Time) (*domain.Match, error) {
	var restored *domain.Match
	err := s.asOracle(ctx, "restore match", caller, func(tx repository.Tx, now time.Time) error {
		m, err := loadMatch(ctx, tx, id)
		if err != nil {
			return err
		}
		if m.State != domain.MatchPostponed {
			return domain.Reject(domain.ErrNotPostponed, "match %d is %s", id, m.State)
		}
		if err := domain.ValidateMatchWindow(now, predictBefore, resultAfter); err != nil {
			return err
		}
		m.PredictBefore = predictBefore
		m.ResultAfter = resultAfter
		m.State = domain.MatchUpcoming
		if err := tx.UpdateMatch(ctx, m); err != nil {
			return err
		}
		if err := tx.AppendEvents(ctx, domain.NewMatchRestoredEvent(m, now)); err != nil {
			return err
		}
		restored = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("match restored", "match_id", id,
		"predict_before", predictBefore, "result_after", resultAfter)
	return restored, nil
}

// ResultMatch records the outcome of an Upcoming match once its result
// window has opened.
func (s *Service) ResultMatch(ctx context.Context, caller common.Address, id domain.MatchID, outcome domain.Outcome) error {
	err := s.asOracle(ctx, "result match", caller, func(tx repository.Tx, now time.Time) error {
		m, err := loadMatch(ctx, tx, id)
		if err != nil {
			return err
		}
		if m.State != domain.MatchUpcoming {
			return domain.Reject(domain.ErrMatchNotUpcoming, "match %d is %s", id, m.State)
		}
		if !m.ResultWindowOpen(now) {
			return domain.Reject(domain.ErrResultWindowNotOpen, "match %d results after %s",
				id, m.ResultAfter.UTC().Format(time.RFC3339))
		}
		if !outcome.Valid() {
			return domain.Reject(domain.ErrInvalidMatchResultState, "%s", outcome)
		}
		m.State = domain.MatchResulted
		m.Result = outcome
		if err := tx.UpdateMatch(ctx, m); err != nil {
			return err
		}
		return tx.AppendEvents(ctx, domain.NewMatchOutcomeEvent(id, outcome, now))
	})
	if err != nil {
		return err
	}
	s.logger.Info("match resulted", "match_id", id, "result", outcome)
	return nil
}
