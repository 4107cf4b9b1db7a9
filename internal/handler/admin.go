package handler

import (
	"net/http"

	"github.com/attaboy/matchwager/internal/oracle"
)

// AdminHandler exposes owner governance of the oracle and query whitelist.
type AdminHandler struct {
	oracle *oracle.Service
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(svc *oracle.Service) *AdminHandler {
	return &AdminHandler{oracle: svc}
}

type rolesResponse struct {
	Owner  string `json:"owner"`
	Oracle string `json:"oracle"`
}

// GetRoles handles GET /admin/oracle.
func (h *AdminHandler) GetRoles(w http.ResponseWriter, r *http.Request) {
	current, err := h.oracle.Oracle(r.Context())
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, rolesResponse{
		Owner:  h.oracle.Owner().Hex(),
		Oracle: current.Hex(),
	})
}

type addressRequest struct {
	Address string `json:"address"`
}

// UpdateOracle handles PUT /admin/oracle.
func (h *AdminHandler) UpdateOracle(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFromRequest(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	var req addressRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondError(w, err)
		return
	}
	addr, err := parseAddressField("address", req.Address)
	if err != nil {
		RespondError(w, err)
		return
	}

	if err := h.oracle.UpdateOracle(r.Context(), caller, addr); err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, rolesResponse{
		Owner:  h.oracle.Owner().Hex(),
		Oracle: addr.Hex(),
	})
}

// Whitelist handles POST /admin/whitelist.
func (h *AdminHandler) Whitelist(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFromRequest(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	var req addressRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondError(w, err)
		return
	}
	addr, err := parseAddressField("address", req.Address)
	if err != nil {
		RespondError(w, err)
		return
	}

	if err := h.oracle.Whitelist(r.Context(), caller, addr); err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]any{"address": addr.Hex(), "whitelisted": true})
}

// RemoveWhitelist handles DELETE /admin/whitelist/{addr}.
func (h *AdminHandler) RemoveWhitelist(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFromRequest(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	addr, err := pathAddress(r, "addr")
	if err != nil {
		RespondError(w, err)
		return
	}

	if err := h.oracle.RemoveWhitelist(r.Context(), caller, addr); err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]any{"address": addr.Hex(), "whitelisted": false})
}
