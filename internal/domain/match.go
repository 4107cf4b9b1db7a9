package domain

import (
	"fmt"
	"time"
)

// MatchID is the externally chosen identifier of a real-world match.
type MatchID uint64

// MatchState tracks the lifecycle of a match.
type MatchState uint8

const (
	MatchUninitialised MatchState = iota
	MatchUpcoming
	MatchPostponed
	MatchCancelled
	MatchResulted
)

var matchStateNames = [...]string{"uninitialised", "upcoming", "postponed", "cancelled", "resulted"}

func (s MatchState) String() string {
	if int(s) < len(matchStateNames) {
		return matchStateNames[s]
	}
	return fmt.Sprintf("match_state(%d)", uint8(s))
}

// Outcome is the result of a match, and also what a player predicts.
type Outcome uint8

const (
	OutcomeUninitialised Outcome = iota
	OutcomeHomeWin
	OutcomeAwayWin
	OutcomeDraw
)

var outcomeNames = [...]string{"uninitialised", "home_win", "away_win", "draw"}

func (o Outcome) String() string {
	if int(o) < len(outcomeNames) {
		return outcomeNames[o]
	}
	return fmt.Sprintf("outcome(%d)", uint8(o))
}

// Valid reports whether o is one of the three real outcomes.
func (o Outcome) Valid() bool {
	return o >= OutcomeHomeWin && o <= OutcomeDraw
}

// ParseOutcome accepts the names produced by Outcome.String.
func ParseOutcome(s string) (Outcome, error) {
	for i, name := range outcomeNames {
		if name == s {
			return Outcome(i), nil
		}
	}
	return OutcomeUninitialised, fmt.Errorf("unknown outcome %q", s)
}

// Match is an externally-resulted event that games are wagered against.
type Match struct {
	ID            MatchID    `json:"id"`
	PredictBefore time.Time  `json:"predict_before"`
	ResultAfter   time.Time  `json:"result_after"`
	State         MatchState `json:"state"`
	Result        Outcome    `json:"result"`
	Description   string     `json:"description,omitempty"`
	ResultSource  string     `json:"result_source,omitempty"`
}

// AcceptsPredictions reports whether games may be created or joined at now.
func (m *Match) AcceptsPredictions(now time.Time) bool {
	return m.State == MatchUpcoming && now.Before(m.PredictBefore)
}

// ResultWindowOpen reports whether now is at or after ResultAfter.
func (m *Match) ResultWindowOpen(now time.Time) bool {
	return !now.Before(m.ResultAfter)
}
