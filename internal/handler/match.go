package handler

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/attaboy/matchwager/internal/domain"
	"github.com/attaboy/matchwager/internal/oracle"
	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
)

// MatchHandler exposes the match lifecycle.
type MatchHandler struct {
	oracle *oracle.Service
}

// NewMatchHandler creates a new MatchHandler.
func NewMatchHandler(svc *oracle.Service) *MatchHandler {
	return &MatchHandler{oracle: svc}
}

type matchResponse struct {
	ID            domain.MatchID `json:"id"`
	PredictBefore time.Time      `json:"predict_before"`
	ResultAfter   time.Time      `json:"result_after"`
	State         string         `json:"state"`
	Result        string         `json:"result"`
	Description   string         `json:"description,omitempty"`
	ResultSource  string         `json:"result_source,omitempty"`
}

func toMatchResponse(m *domain.Match) matchResponse {
	return matchResponse{
		ID:            m.ID,
		PredictBefore: m.PredictBefore.UTC(),
		ResultAfter:   m.ResultAfter.UTC(),
		State:         m.State.String(),
		Result:        m.Result.String(),
		Description:   m.Description,
		ResultSource:  m.ResultSource,
	}
}

type addMatchRequest struct {
	ID            *uint64   `json:"id"`
	PredictBefore time.Time `json:"predict_before"`
	ResultAfter   time.Time `json:"result_after"`
	Description   string    `json:"description"`
	ResultSource  string    `json:"result_source"`
}

// AddMatch handles POST /matches.
func (h *MatchHandler) AddMatch(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFromRequest(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	var req addMatchRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondError(w, err)
		return
	}
	if req.ID == nil || *req.ID > math.MaxInt64 {
		RespondError(w, domain.ErrValidation("id is required and must fit in 63 bits"))
		return
	}

	m, err := h.oracle.AddMatch(r.Context(), caller, oracle.AddMatchParams{
		ID:            domain.MatchID(*req.ID),
		PredictBefore: req.PredictBefore,
		ResultAfter:   req.ResultAfter,
		Description:   req.Description,
		ResultSource:  req.ResultSource,
	})
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusCreated, toMatchResponse(m))
}

type transitionResponse struct {
	ID     domain.MatchID `json:"id"`
	State  string         `json:"state"`
	Result string         `json:"result,omitempty"`
}

// PostponeMatch handles POST /matches/{id}/postpone.
func (h *MatchHandler) PostponeMatch(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.oracle.PostponeMatch, domain.MatchPostponed)
}

// CancelMatch handles POST /matches/{id}/cancel.
func (h *MatchHandler) CancelMatch(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.oracle.CancelMatch, domain.MatchCancelled)
}

func (h *MatchHandler) transition(w http.ResponseWriter, r *http.Request,
	op func(ctx context.Context, caller common.Address, id domain.MatchID) error, to domain.MatchState) {
	caller, err := callerFromRequest(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	id, err := pathMatchID(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	if err := op(r.Context(), caller, id); err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, transitionResponse{ID: id, State: to.String()})
}

type restoreMatchRequest struct {
	PredictBefore time.Time `json:"predict_before"`
	ResultAfter   time.Time `json:"result_after"`
}

// RestoreMatch handles POST /matches/{id}/restore.
func (h *MatchHandler) RestoreMatch(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFromRequest(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	id, err := pathMatchID(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	var req restoreMatchRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondError(w, err)
		return
	}

	m, err := h.oracle.RestoreMatch(r.Context(), caller, id, req.PredictBefore, req.ResultAfter)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, toMatchResponse(m))
}

type resultMatchRequest struct {
	Result string `json:"result"`
}

// ResultMatch handles POST /matches/{id}/result.
func (h *MatchHandler) ResultMatch(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFromRequest(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	id, err := pathMatchID(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	var req resultMatchRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondError(w, err)
		return
	}
	// unknown names become Uninitialised so the service reports them in order
	outcome, _ := domain.ParseOutcome(req.Result)

	if err := h.oracle.ResultMatch(r.Context(), caller, id, outcome); err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, transitionResponse{
		ID:     id,
		State:  domain.MatchResulted.String(),
		Result: outcome.String(),
	})
}

// ListMatches handles GET /matches.
func (h *MatchHandler) ListMatches(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFromRequest(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	ids, err := h.oracle.MatchIDs(r.Context(), caller)
	if err != nil {
		RespondError(w, err)
		return
	}
	if ids == nil {
		ids = []domain.MatchID{}
	}
	RespondJSON(w, http.StatusOK, map[string]any{"match_ids": ids, "count": len(ids)})
}

// MatchAt handles GET /matches/index/{index}.
func (h *MatchHandler) MatchAt(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFromRequest(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	i, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || i < 0 {
		RespondError(w, domain.ErrValidation("invalid index"))
		return
	}
	id, err := h.oracle.MatchIDAt(r.Context(), caller, i)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]any{"index": i, "match_id": id})
}

// GetMatch handles GET /matches/{id}.
func (h *MatchHandler) GetMatch(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFromRequest(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	id, err := pathMatchID(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	m, err := h.oracle.Match(r.Context(), caller, id)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, toMatchResponse(m))
}

// GetState handles GET /matches/{id}/state.
func (h *MatchHandler) GetState(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFromRequest(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	id, err := pathMatchID(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	state, err := h.oracle.MatchState(r.Context(), caller, id)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]any{"id": id, "state": state.String()})
}

// GetResult handles GET /matches/{id}/result.
func (h *MatchHandler) GetResult(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFromRequest(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	id, err := pathMatchID(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	result, err := h.oracle.MatchResult(r.Context(), caller, id)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]any{"id": id, "result": result.String()})
}

// IsOpen handles GET /matches/{id}/open.
func (h *MatchHandler) IsOpen(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFromRequest(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	id, err := pathMatchID(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	open, err := h.oracle.IsBeforeMatchStartTime(r.Context(), caller, id)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]any{"id": id, "before_start": open})
}
