package wager

import (
	"context"
	"time"

	"github.com/attaboy/matchwager/internal/domain"
	"github.com/attaboy/matchwager/internal/repository"
	"github.com/ethereum/go-ethereum/common"
)

// MakeFirstPrediction opens a game against matchID. Player 1's token stays
// with its owner until a second player joins.
func (e *Engine) MakeFirstPrediction(ctx context.Context, caller common.Address, matchID domain.MatchID,
	token domain.TokenID, prediction domain.Outcome) (*domain.Game, error) {
	var created *domain.Game
	err := e.mutate(ctx, "make first prediction", func(tx repository.Tx, _ *custody, now time.Time) error {
		m, err := tx.Match(ctx, matchID)
		if err != nil {
			return err
		}
		if m == nil {
			return domain.Reject(domain.ErrMatchIDInvalid, "%d", matchID)
		}
		if m.State != domain.MatchUpcoming {
			return domain.Reject(domain.ErrMatchNotUpcoming, "match %d is %s", matchID, m.State)
		}
		if !m.AcceptsPredictions(now) {
			return domain.Reject(domain.ErrPastPredictionDeadline, "match %d closed at %s",
				matchID, m.PredictBefore.UTC().Format(time.RFC3339))
		}
		if err := e.checkStake(ctx, tx, caller, token, prediction); err != nil {
			return err
		}

		id, err := tx.NextGameID(ctx)
		if err != nil {
			return err
		}
		g := &domain.Game{
			ID:           id,
			MatchID:      matchID,
			Player1:      caller,
			P1TokenID:    token,
			P1Prediction: prediction,
			State:        domain.GameOpen,
		}
		if err := tx.InsertGame(ctx, g); err != nil {
			return err
		}
		if err := tx.SetTokenGame(ctx, token, id); err != nil {
			return err
		}
		if err := tx.AppendPlayerGame(ctx, caller, id); err != nil {
			return err
		}
		if err := tx.AppendEvents(ctx, domain.NewGameCreatedEvent(g, now)); err != nil {
			return err
		}
		created = g
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.logger.Info("game created", "game_id", created.ID, "match_id", matchID,
		"player1", caller.Hex(), "token_id", token, "prediction", prediction)
	return created, nil
}

// MakeSecondPrediction joins an open game and pulls both tokens into engine
// custody.
func (e *Engine) MakeSecondPrediction(ctx context.Context, caller common.Address, gameID domain.GameID,
	token domain.TokenID, prediction domain.Outcome) (*domain.Game, error) {
	var joined *domain.Game
	err := e.mutate(ctx, "make second prediction", func(tx repository.Tx, c *custody, now time.Time) error {
		g, err := tx.Game(ctx, gameID)
		if err != nil {
			return err
		}
		if g == nil || g.State != domain.GameOpen {
			return domain.Reject(domain.ErrInvalidGameID, "%d is not open", gameID)
		}

		m, err := tx.Match(ctx, g.MatchID)
		if err != nil {
			return err
		}
		if m == nil || !m.AcceptsPredictions(now) {
			return domain.Reject(domain.ErrMatchNotUpcoming, "match %d no longer accepts predictions", g.MatchID)
		}
		if err := e.checkStake(ctx, tx, caller, token, prediction); err != nil {
			return err
		}

		// Player 1 may have revoked approval or moved the token since opening.
		ok, err := e.registry.IsAuthorizedToMove(ctx, e.self, g.P1TokenID)
		if err != nil {
			return err
		}
		p1Owner, err := e.registry.OwnerOf(ctx, g.P1TokenID)
		if err != nil {
			return err
		}
		if !ok || p1Owner != g.Player1 {
			return domain.Reject(domain.ErrP1RevokedApproval, "token %d", g.P1TokenID)
		}

		if prediction == g.P1Prediction {
			return domain.Reject(domain.ErrP2PredictionInvalid, "%s", prediction)
		}

		if err := c.move(ctx, g.Player1, e.self, g.P1TokenID); err != nil {
			return err
		}
		if err := c.move(ctx, caller, e.self, token); err != nil {
			return err
		}

		g.Player2 = caller
		g.P2TokenID = token
		g.P2Prediction = prediction
		g.State = domain.GamePredictionsReceived
		if err := tx.UpdateGame(ctx, g); err != nil {
			return err
		}
		if err := tx.SetTokenGame(ctx, token, gameID); err != nil {
			return err
		}
		if err := tx.AppendPlayerGame(ctx, caller, gameID); err != nil {
			return err
		}
		if err := tx.AppendEvents(ctx, domain.NewPredictionsReceivedEvent(g, now)); err != nil {
			return err
		}
		joined = g
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.logger.Info("predictions received", "game_id", gameID,
		"player2", caller.Hex(), "token_id", token, "prediction", prediction)
	return joined, nil
}
