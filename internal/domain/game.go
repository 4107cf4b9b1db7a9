package domain

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// GameID is the engine-assigned game counter value; the first game is 1.
type GameID uint64

// TokenID identifies a unique asset in the asset registry.
type TokenID uint64

// GameState tracks the lifecycle of a two-party wager.
type GameState uint8

const (
	GameUninitialised GameState = iota
	GameOpen
	GamePredictionsReceived
	GamePlayer1Win
	GamePlayer2Win
	GameNeitherPlayerWins
	GameClosed
)

var gameStateNames = [...]string{
	"uninitialised", "open", "predictions_received",
	"player1_win", "player2_win", "neither_player_wins", "closed",
}

func (s GameState) String() string {
	if int(s) < len(gameStateNames) {
		return gameStateNames[s]
	}
	return fmt.Sprintf("game_state(%d)", uint8(s))
}

// Active reports whether the game still holds a claim on its tokens.
func (s GameState) Active() bool {
	return s == GameOpen || s == GamePredictionsReceived
}

// Terminal reports whether the game has been settled.
func (s GameState) Terminal() bool {
	return s >= GamePlayer1Win
}

// Game is a two-party prediction wager against a match.
type Game struct {
	ID           GameID         `json:"id"`
	MatchID      MatchID        `json:"match_id"`
	Player1      common.Address `json:"player1"`
	P1TokenID    TokenID        `json:"p1_token_id"`
	P1Prediction Outcome        `json:"p1_prediction"`
	Player2      common.Address `json:"player2"`
	P2TokenID    TokenID        `json:"p2_token_id"`
	P2Prediction Outcome        `json:"p2_prediction"`
	State        GameState      `json:"state"`
}

// HasPlayer2 reports whether the second prediction has been accepted.
func (g *Game) HasPlayer2() bool {
	return g.Player2 != (common.Address{})
}
