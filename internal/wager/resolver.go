package wager

import (
	"context"

	"github.com/attaboy/matchwager/internal/domain"
	"github.com/attaboy/matchwager/internal/repository"
	"github.com/ethereum/go-ethereum/common"
)

// Resolver decides the terminal state of an escrowed game. It returns an
// error when the game cannot be settled yet.
type Resolver interface {
	Resolve(ctx context.Context, tx repository.Tx, g *domain.Game) (domain.GameState, error)
}

// MatchResolver settles on the oracle's result for the game's match. A
// cancelled match closes the game so both assets go home.
type MatchResolver struct{}

func (MatchResolver) Resolve(ctx context.Context, tx repository.Tx, g *domain.Game) (domain.GameState, error) {
	m, err := tx.Match(ctx, g.MatchID)
	if err != nil {
		return domain.GameUninitialised, err
	}
	if m == nil {
		return domain.GameUninitialised, domain.Reject(domain.ErrMatchIDInvalid, "%d", g.MatchID)
	}

	switch m.State {
	case domain.MatchResulted:
		switch m.Result {
		case g.P1Prediction:
			return domain.GamePlayer1Win, nil
		case g.P2Prediction:
			return domain.GamePlayer2Win, nil
		default:
			return domain.GameNeitherPlayerWins, nil
		}
	case domain.MatchCancelled:
		return domain.GameClosed, nil
	default:
		return domain.GameUninitialised, domain.Reject(domain.ErrGameMatchResultNotReceived,
			"match %d is %s", g.MatchID, m.State)
	}
}

type payout struct {
	to    common.Address
	token domain.TokenID
}

// payouts lists where each escrowed token goes for a terminal state.
func payouts(g *domain.Game, state domain.GameState) []payout {
	switch state {
	case domain.GamePlayer1Win:
		return []payout{{g.Player1, g.P1TokenID}, {g.Player1, g.P2TokenID}}
	case domain.GamePlayer2Win:
		return []payout{{g.Player2, g.P1TokenID}, {g.Player2, g.P2TokenID}}
	default:
		return []payout{{g.Player1, g.P1TokenID}, {g.Player2, g.P2TokenID}}
	}
}
