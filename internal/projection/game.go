// Package projection maintains read-side summaries of games built from the
// published event stream.
package projection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/attaboy/matchwager/internal/domain"
)

// GameSummary is the cached view of one game.
type GameSummary struct {
	GameID    uint64    `json:"game_id"`
	MatchID   uint64    `json:"match_id"`
	Player1   string    `json:"player1"`
	P1TokenID uint64    `json:"p1_token_id"`
	Player2   string    `json:"player2,omitempty"`
	P2TokenID uint64    `json:"p2_token_id"`
	State     string    `json:"state"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Settled reports whether the game has reached a terminal state.
func (g *GameSummary) Settled() bool {
	switch g.State {
	case domain.GameOpen.String(), domain.GamePredictionsReceived.String(), "":
		return false
	}
	return true
}

// envelope mirrors the message published by the outbox relay.
type envelope struct {
	EventID       string          `json:"event_id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

type gamePayload struct {
	GameID  uint64 `json:"game_id"`
	MatchID uint64 `json:"match_id"`
	Player1 string `json:"player1"`
	Player2 string `json:"player2"`
	TokenID uint64 `json:"token_id"`
	State   string `json:"state"`
}

func gameKey(id uint64) string {
	return "projection:game:" + strconv.FormatUint(id, 10)
}

// Projector folds game events into GameSummary records.
type Projector struct {
	store  Store
	ttl    time.Duration
	logger *slog.Logger
}

// NewProjector creates a projector. A ttl of zero keeps summaries forever.
func NewProjector(store Store, ttl time.Duration, logger *slog.Logger) *Projector {
	return &Projector{store: store, ttl: ttl, logger: logger}
}

// Apply folds one published message. Events for other aggregates are
// ignored. Redelivered events are harmless and a settled game never moves
// back to an earlier state.
func (p *Projector) Apply(ctx context.Context, msg []byte) error {
	var env envelope
	if err := json.Unmarshal(msg, &env); err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}
	if env.AggregateType != string(domain.AggregateGame) {
		return nil
	}
	var pl gamePayload
	if err := json.Unmarshal(env.Payload, &pl); err != nil {
		return fmt.Errorf("decode %s payload: %w", env.EventType, err)
	}

	current, err := p.Game(ctx, pl.GameID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if current == nil {
		current = &GameSummary{GameID: pl.GameID}
	}
	if current.Settled() {
		p.logger.Debug("ignoring event for settled game", "game_id", pl.GameID, "event_type", env.EventType)
		return nil
	}

	switch domain.EventType(env.EventType) {
	case domain.EventGameCreated:
		current.MatchID = pl.MatchID
		current.Player1 = pl.Player1
		current.P1TokenID = pl.TokenID
		if current.State == "" {
			current.State = domain.GameOpen.String()
		}
	case domain.EventPredictionsReceived:
		current.MatchID = pl.MatchID
		current.Player2 = pl.Player2
		current.P2TokenID = pl.TokenID
		current.State = domain.GamePredictionsReceived.String()
	case domain.EventGameFinished:
		current.State = pl.State
	default:
		p.logger.Warn("unknown game event", "event_type", env.EventType, "event_id", env.EventID)
		return nil
	}
	current.UpdatedAt = env.OccurredAt

	if err := SetJSON(ctx, p.store, gameKey(pl.GameID), current, p.ttl); err != nil {
		return err
	}
	p.logger.Info("game projection updated", "game_id", pl.GameID, "state", current.State)
	return nil
}

// Game returns the cached summary for id.
func (p *Projector) Game(ctx context.Context, id uint64) (*GameSummary, error) {
	var g GameSummary
	if err := GetJSON(ctx, p.store, gameKey(id), &g); err != nil {
		return nil, err
	}
	return &g, nil
}
