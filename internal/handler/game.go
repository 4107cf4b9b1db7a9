package handler

import (
	"errors"
	"net/http"

	"github.com/attaboy/matchwager/internal/domain"
	"github.com/attaboy/matchwager/internal/wager"
)

// GameHandler exposes the wager engine.
type GameHandler struct {
	engine *wager.Engine
}

// NewGameHandler creates a new GameHandler.
func NewGameHandler(engine *wager.Engine) *GameHandler {
	return &GameHandler{engine: engine}
}

type gameResponse struct {
	ID           domain.GameID   `json:"id"`
	MatchID      domain.MatchID  `json:"match_id"`
	Player1      string          `json:"player1"`
	P1TokenID    domain.TokenID  `json:"p1_token_id"`
	P1Prediction string          `json:"p1_prediction"`
	Player2      string          `json:"player2,omitempty"`
	P2TokenID    *domain.TokenID `json:"p2_token_id,omitempty"`
	P2Prediction string          `json:"p2_prediction,omitempty"`
	State        string          `json:"state"`
}

func toGameResponse(g *domain.Game) gameResponse {
	resp := gameResponse{
		ID:           g.ID,
		MatchID:      g.MatchID,
		Player1:      g.Player1.Hex(),
		P1TokenID:    g.P1TokenID,
		P1Prediction: g.P1Prediction.String(),
		State:        g.State.String(),
	}
	if g.HasPlayer2() {
		resp.Player2 = g.Player2.Hex()
		token := g.P2TokenID
		resp.P2TokenID = &token
		resp.P2Prediction = g.P2Prediction.String()
	}
	return resp
}

type createGameRequest struct {
	MatchID    uint64 `json:"match_id"`
	TokenID    uint64 `json:"token_id"`
	Prediction string `json:"prediction"`
}

// CreateGame handles POST /games.
func (h *GameHandler) CreateGame(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFromRequest(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	var req createGameRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondError(w, err)
		return
	}
	if err := errors.Join(checkBodyID("match_id", req.MatchID), checkBodyID("token_id", req.TokenID)); err != nil {
		RespondError(w, err)
		return
	}
	prediction, err := parsePrediction(req.Prediction)
	if err != nil {
		RespondError(w, err)
		return
	}

	g, err := h.engine.MakeFirstPrediction(r.Context(), caller,
		domain.MatchID(req.MatchID), domain.TokenID(req.TokenID), prediction)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusCreated, toGameResponse(g))
}

type joinGameRequest struct {
	TokenID    uint64 `json:"token_id"`
	Prediction string `json:"prediction"`
}

// JoinGame handles POST /games/{id}/predictions.
func (h *GameHandler) JoinGame(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFromRequest(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	id, err := pathGameID(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	var req joinGameRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondError(w, err)
		return
	}
	if err := checkBodyID("token_id", req.TokenID); err != nil {
		RespondError(w, err)
		return
	}
	prediction, err := parsePrediction(req.Prediction)
	if err != nil {
		RespondError(w, err)
		return
	}

	g, err := h.engine.MakeSecondPrediction(r.Context(), caller, id, domain.TokenID(req.TokenID), prediction)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, toGameResponse(g))
}

// Withdraw handles POST /games/{id}/withdraw.
func (h *GameHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFromRequest(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	id, err := pathGameID(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	g, err := h.engine.Withdraw(r.Context(), caller, id)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, toGameResponse(g))
}

// GetGame handles GET /games/{id}.
func (h *GameHandler) GetGame(w http.ResponseWriter, r *http.Request) {
	id, err := pathGameID(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	g, err := h.engine.Game(r.Context(), id)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, toGameResponse(g))
}

// CountGames handles GET /games/count.
func (h *GameHandler) CountGames(w http.ResponseWriter, r *http.Request) {
	n, err := h.engine.TotalGames(r.Context())
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]uint64{"total": n})
}

// TokenGame handles GET /tokens/{tokenId}/game. A free token reports game 0.
func (h *GameHandler) TokenGame(w http.ResponseWriter, r *http.Request) {
	token, err := pathUint(r, "tokenId")
	if err != nil {
		RespondError(w, err)
		return
	}
	id, err := h.engine.GameForToken(r.Context(), domain.TokenID(token))
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]any{"token_id": token, "game_id": id})
}

// PlayerGames handles GET /players/{addr}/games.
func (h *GameHandler) PlayerGames(w http.ResponseWriter, r *http.Request) {
	player, err := pathAddress(r, "addr")
	if err != nil {
		RespondError(w, err)
		return
	}
	ids, err := h.engine.PlayerGames(r.Context(), player)
	if err != nil {
		RespondError(w, err)
		return
	}
	if ids == nil {
		ids = []domain.GameID{}
	}
	RespondJSON(w, http.StatusOK, map[string]any{"player": player.Hex(), "game_ids": ids})
}
