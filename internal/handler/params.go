package handler

import (
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/attaboy/matchwager/internal/auth"
	"github.com/attaboy/matchwager/internal/domain"
	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
)

// callerFromRequest returns the authenticated principal.
func callerFromRequest(r *http.Request) (common.Address, error) {
	caller, ok := auth.CallerFromContext(r.Context())
	if !ok {
		return common.Address{}, domain.ErrUnauthorized("missing caller")
	}
	return caller, nil
}

// pathUint parses a positive id from the named URL parameter. Ids are kept
// within int64 so they fit a BIGINT column.
func pathUint(r *http.Request, name string) (uint64, error) {
	raw := chi.URLParam(r, name)
	n, err := strconv.ParseUint(raw, 10, 63)
	if err != nil {
		return 0, domain.ErrValidation(fmt.Sprintf("invalid %s %q", name, raw))
	}
	return n, nil
}

func pathMatchID(r *http.Request) (domain.MatchID, error) {
	n, err := pathUint(r, "id")
	return domain.MatchID(n), err
}

func pathGameID(r *http.Request) (domain.GameID, error) {
	n, err := pathUint(r, "id")
	return domain.GameID(n), err
}

func pathAddress(r *http.Request, name string) (common.Address, error) {
	addr, err := domain.ParseAddress(chi.URLParam(r, name))
	if err != nil {
		return common.Address{}, domain.ErrValidation(err.Error())
	}
	return addr, nil
}

// parseAddressField parses a request body address.
func parseAddressField(field, raw string) (common.Address, error) {
	addr, err := domain.ParseAddress(raw)
	if err != nil {
		return common.Address{}, domain.ErrValidation(fmt.Sprintf("%s: %v", field, err))
	}
	return addr, nil
}

// parsePrediction maps an outcome name onto the domain. Unknown names are
// invalid predictions.
func parsePrediction(raw string) (domain.Outcome, error) {
	o, err := domain.ParseOutcome(raw)
	if err != nil {
		return 0, domain.Reject(domain.ErrInvalidPrediction, "%q", raw)
	}
	return o, nil
}

// checkBodyID rejects body ids that do not fit a BIGINT column.
func checkBodyID(name string, v uint64) error {
	if v > math.MaxInt64 {
		return domain.ErrValidation(fmt.Sprintf("%s out of range", name))
	}
	return nil
}
