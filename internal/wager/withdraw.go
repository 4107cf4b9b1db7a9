package wager

import (
	"context"
	"fmt"
	"time"

	"github.com/attaboy/matchwager/internal/domain"
	"github.com/attaboy/matchwager/internal/repository"
	"github.com/ethereum/go-ethereum/common"
)

// Withdraw settles an escrowed game and releases both tokens. Any caller may
// trigger it; tokens only ever go to the players.
//
// Payouts roll forward: once a token has reached its recipient the engine no
// longer has authority to take it back, so a failed attempt leaves the paid
// tokens where they are and a later Withdraw finishes the rest.
func (e *Engine) Withdraw(ctx context.Context, caller common.Address, gameID domain.GameID) (*domain.Game, error) {
	var settled *domain.Game
	err := e.mutate(ctx, "withdraw", func(tx repository.Tx, _ *custody, now time.Time) error {
		g, err := e.loadGame(ctx, tx, gameID)
		if err != nil {
			return err
		}
		if g.State != domain.GamePredictionsReceived {
			return domain.Reject(domain.ErrPredictionsNotReceived, "game %d is %s", gameID, g.State)
		}

		state, err := e.resolver.Resolve(ctx, tx, g)
		if err != nil {
			return err
		}
		if !state.Terminal() {
			return fmt.Errorf("resolver returned non-terminal state %s for game %d", state, gameID)
		}

		for _, p := range payouts(g, state) {
			if err := e.pay(ctx, gameID, p); err != nil {
				return err
			}
		}

		g.State = state
		if err := tx.UpdateGame(ctx, g); err != nil {
			return err
		}
		if err := tx.ClearTokenGame(ctx, g.P1TokenID); err != nil {
			return err
		}
		if err := tx.ClearTokenGame(ctx, g.P2TokenID); err != nil {
			return err
		}
		if err := tx.AppendEvents(ctx, domain.NewGameFinishedEvent(g, now)); err != nil {
			return err
		}
		settled = g
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.logger.Info("game finished", "game_id", gameID, "state", settled.State, "caller", caller.Hex())
	return settled, nil
}

// pay releases one escrowed token. A token already held by its recipient was
// paid by an earlier attempt that did not commit.
func (e *Engine) pay(ctx context.Context, gameID domain.GameID, p payout) error {
	holder, err := e.registry.OwnerOf(ctx, p.token)
	if err != nil {
		return err
	}
	if holder == p.to {
		e.logger.Info("payout already delivered", "game_id", gameID, "token_id", p.token, "to", p.to.Hex())
		return nil
	}
	if err := e.registry.TransferCustody(ctx, e.self, e.self, p.to, p.token); err != nil {
		return fmt.Errorf("pay token %d to %s: %w", p.token, p.to.Hex(), err)
	}
	return nil
}
