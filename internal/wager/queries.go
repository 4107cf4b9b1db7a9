package wager

import (
	"context"

	"github.com/attaboy/matchwager/internal/domain"
	"github.com/attaboy/matchwager/internal/repository"
	"github.com/ethereum/go-ethereum/common"
)

// Game returns a game by id.
func (e *Engine) Game(ctx context.Context, id domain.GameID) (*domain.Game, error) {
	var g *domain.Game
	err := e.store.View(ctx, func(tx repository.Tx) error {
		var err error
		g, err = e.loadGame(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, domain.WrapInternal("get game", err)
	}
	return g, nil
}

// GameForToken returns the open or escrowed game holding token, or 0.
func (e *Engine) GameForToken(ctx context.Context, token domain.TokenID) (domain.GameID, error) {
	var id domain.GameID
	err := e.store.View(ctx, func(tx repository.Tx) error {
		var err error
		id, err = e.tokenPlaying(ctx, tx, token)
		return err
	})
	return id, domain.WrapInternal("get token game", err)
}

// PlayerGames returns every game player has joined, oldest first.
func (e *Engine) PlayerGames(ctx context.Context, player common.Address) ([]domain.GameID, error) {
	var ids []domain.GameID
	err := e.store.View(ctx, func(tx repository.Tx) error {
		var err error
		ids, err = tx.PlayerGames(ctx, player)
		return err
	})
	return ids, domain.WrapInternal("list player games", err)
}

// TotalGames returns the number of games ever created.
func (e *Engine) TotalGames(ctx context.Context) (uint64, error) {
	var n uint64
	err := e.store.View(ctx, func(tx repository.Tx) error {
		var err error
		n, err = tx.GameCount(ctx)
		return err
	})
	return n, domain.WrapInternal("count games", err)
}
