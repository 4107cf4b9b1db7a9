package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType enumerates all domain event types.
type EventType string

const (
	EventMatchAdded          EventType = "wager.match.added"
	EventMatchPostponed      EventType = "wager.match.postponed"
	EventMatchCancelled      EventType = "wager.match.cancelled"
	EventMatchRestored       EventType = "wager.match.restored"
	EventMatchOutcome        EventType = "wager.match.outcome"
	EventOracleUpdated       EventType = "wager.role.oracle_updated"
	EventNewWhitelist        EventType = "wager.role.whitelisted"
	EventWhitelistRemoved    EventType = "wager.role.whitelist_removed"
	EventGameCreated         EventType = "wager.game.created"
	EventPredictionsReceived EventType = "wager.game.predictions_received"
	EventGameFinished        EventType = "wager.game.finished"
)

// AggregateType enumerates the aggregate root types for outbox events.
type AggregateType string

const (
	AggregateMatch AggregateType = "match"
	AggregateGame  AggregateType = "game"
	AggregateRole  AggregateType = "role"
)

// OutboxDraft is the payload written to the event_outbox table.
type OutboxDraft struct {
	EventID       uuid.UUID       `json:"eventId"`
	AggregateType AggregateType   `json:"aggregateType"`
	AggregateID   string          `json:"aggregateId"`
	EventType     EventType       `json:"eventType"`
	PartitionKey  string          `json:"partitionKey"`
	Headers       json.RawMessage `json:"headers"`
	Payload       json.RawMessage `json:"payload"`
	OccurredAt    time.Time       `json:"occurredAt"`
}

// OutboxRow is an OutboxDraft together with its store sequence number.
type OutboxRow struct {
	SeqID int64
	OutboxDraft
}
