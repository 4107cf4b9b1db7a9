package domain

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

func newDraft(agg AggregateType, aggID string, evt EventType, payload any, at time.Time) OutboxDraft {
	raw, _ := json.Marshal(payload)
	return OutboxDraft{
		EventID:       uuid.New(),
		AggregateType: agg,
		AggregateID:   aggID,
		EventType:     evt,
		PartitionKey:  aggID,
		Headers:       json.RawMessage(`{}`),
		Payload:       raw,
		OccurredAt:    at,
	}
}

func matchKey(id MatchID) string { return strconv.FormatUint(uint64(id), 10) }
func gameKey(id GameID) string   { return strconv.FormatUint(uint64(id), 10) }

// NewMatchAddedEvent records a newly registered match.
func NewMatchAddedEvent(m *Match, at time.Time) OutboxDraft {
	return newDraft(AggregateMatch, matchKey(m.ID), EventMatchAdded, map[string]any{
		"id":             m.ID,
		"predict_before": m.PredictBefore.Unix(),
		"result_after":   m.ResultAfter.Unix(),
		"description":    m.Description,
		"result_source":  m.ResultSource,
	}, at)
}

// NewMatchTransitionEvent covers the id-only lifecycle events
// (postponed, cancelled).
func NewMatchTransitionEvent(evt EventType, id MatchID, at time.Time) OutboxDraft {
	return newDraft(AggregateMatch, matchKey(id), evt, map[string]any{"id": id}, at)
}

// NewMatchRestoredEvent records a postponed match returning to upcoming.
func NewMatchRestoredEvent(m *Match, at time.Time) OutboxDraft {
	return newDraft(AggregateMatch, matchKey(m.ID), EventMatchRestored, map[string]any{
		"id":             m.ID,
		"predict_before": m.PredictBefore.Unix(),
		"result_after":   m.ResultAfter.Unix(),
	}, at)
}

// NewMatchOutcomeEvent records the oracle-supplied result.
func NewMatchOutcomeEvent(id MatchID, result Outcome, at time.Time) OutboxDraft {
	return newDraft(AggregateMatch, matchKey(id), EventMatchOutcome, map[string]any{
		"id":     id,
		"result": result.String(),
	}, at)
}

// NewOracleUpdatedEvent records an oracle reassignment.
func NewOracleUpdatedEvent(previous, current common.Address, at time.Time) OutboxDraft {
	return newDraft(AggregateRole, "oracle", EventOracleUpdated, map[string]any{
		"previous": previous.Hex(),
		"current":  current.Hex(),
	}, at)
}

// NewWhitelistEvent records a whitelist addition or removal.
func NewWhitelistEvent(addr common.Address, added bool, at time.Time) OutboxDraft {
	evt := EventNewWhitelist
	if !added {
		evt = EventWhitelistRemoved
	}
	return newDraft(AggregateRole, "whitelist", evt, map[string]any{"addr": addr.Hex()}, at)
}

// NewGameCreatedEvent records player 1's intent.
func NewGameCreatedEvent(g *Game, at time.Time) OutboxDraft {
	return newDraft(AggregateGame, gameKey(g.ID), EventGameCreated, map[string]any{
		"game_id":  g.ID,
		"match_id": g.MatchID,
		"player1":  g.Player1.Hex(),
		"token_id": g.P1TokenID,
	}, at)
}

// NewPredictionsReceivedEvent records that both tokens are now in escrow.
func NewPredictionsReceivedEvent(g *Game, at time.Time) OutboxDraft {
	return newDraft(AggregateGame, gameKey(g.ID), EventPredictionsReceived, map[string]any{
		"game_id":  g.ID,
		"match_id": g.MatchID,
		"player2":  g.Player2.Hex(),
		"token_id": g.P2TokenID,
	}, at)
}

// NewGameFinishedEvent records settlement and the terminal state.
func NewGameFinishedEvent(g *Game, at time.Time) OutboxDraft {
	return newDraft(AggregateGame, gameKey(g.ID), EventGameFinished, map[string]any{
		"game_id": g.ID,
		"state":   g.State.String(),
	}, at)
}
