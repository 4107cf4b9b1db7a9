package domain

import (
	"errors"
	"fmt"
)

// AppError is the base domain error type.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Cause   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Cause }

// Is reports a match when target is an *AppError carrying the same Code, so
// callers can write errors.Is(err, domain.ErrMatchExists) through any wrapping.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Error kinds. These values are only ever compared against; operations return
// fresh copies via reject so the message can carry identifiers.
var (
	// role and authorization
	ErrNotOracle         = &AppError{Code: "NOT_ORACLE", Message: "caller is not the oracle", Status: 403}
	ErrNotOwner          = &AppError{Code: "NOT_OWNER", Message: "caller is not the owner", Status: 403}
	ErrNotWhitelisted    = &AppError{Code: "NOT_WHITELISTED", Message: "caller is not whitelisted", Status: 403}
	ErrNftNotApproved    = &AppError{Code: "NFT_NOT_APPROVED", Message: "engine is not approved to move the token", Status: 403}
	ErrNotNftOwner       = &AppError{Code: "NOT_NFT_OWNER", Message: "caller does not own the token", Status: 403}
	ErrP1RevokedApproval = &AppError{Code: "P1_REVOKED_APPROVAL", Message: "player 1 revoked approval for their token", Status: 409}

	// lifecycle state
	ErrMatchExists                = &AppError{Code: "MATCH_EXISTS", Message: "match already exists", Status: 409}
	ErrMatchNotUpcoming           = &AppError{Code: "MATCH_NOT_UPCOMING", Message: "match is not upcoming", Status: 409}
	ErrMatchIDInvalid             = &AppError{Code: "MATCH_ID_INVALID", Message: "invalid match id", Status: 404}
	ErrNotPostponed               = &AppError{Code: "NOT_POSTPONED", Message: "match is not postponed", Status: 409}
	ErrInvalidGameID              = &AppError{Code: "INVALID_GAME_ID", Message: "invalid game id", Status: 404}
	ErrPredictionsNotReceived     = &AppError{Code: "PREDICTIONS_NOT_RECEIVED", Message: "game is not receiving predictions", Status: 409}
	ErrGameMatchResultNotReceived = &AppError{Code: "GAME_MATCH_RESULT_NOT_RECEIVED", Message: "match result not yet received", Status: 409}
	ErrTokenAlreadyPlaying        = &AppError{Code: "TOKEN_ALREADY_PLAYING", Message: "token is already in an active game", Status: 409}

	// timing
	ErrPastPredictionDeadline        = &AppError{Code: "PAST_PREDICTION_DEADLINE", Message: "prediction deadline has passed", Status: 422}
	ErrPredictBeforeAfterResultAfter = &AppError{Code: "PREDICT_BEFORE_AFTER_RESULT_AFTER", Message: "predictBefore must be before resultAfter", Status: 422}
	ErrResultWindowNotOpen           = &AppError{Code: "RESULT_WINDOW_NOT_OPEN", Message: "result window is not open", Status: 422}

	// input validity
	ErrInvalidMatchResultState = &AppError{Code: "INVALID_MATCH_RESULT_STATE", Message: "invalid match result", Status: 400}
	ErrInvalidPrediction       = &AppError{Code: "INVALID_PREDICTION", Message: "invalid prediction", Status: 400}
	ErrP2PredictionInvalid     = &AppError{Code: "P2_PREDICTION_INVALID", Message: "player 2 prediction must differ from player 1", Status: 400}
	ErrZeroAddress             = &AppError{Code: "ZERO_ADDRESS", Message: "address must not be zero", Status: 400}
	ErrOracleEqOwner           = &AppError{Code: "ORACLE_EQ_OWNER", Message: "oracle must differ from owner", Status: 400}

	ErrPaused = &AppError{Code: "PAUSED", Message: "engine is paused", Status: 503}
)

// reject returns a copy of kind with an extra detail appended to the message.
func reject(kind *AppError, detail string) *AppError {
	e := *kind
	if detail != "" {
		e.Message = e.Message + ": " + detail
	}
	return &e
}

// Reject builds a detailed error of the given kind.
func Reject(kind *AppError, format string, args ...any) *AppError {
	return reject(kind, fmt.Sprintf(format, args...))
}

// IsCode reports whether err (or anything it wraps) is an AppError with code.
func IsCode(err error, code string) bool {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return false
	}
	return appErr.Code == code
}

// Standard domain error constructors.

func ErrNotFound(entity, id string) *AppError {
	return &AppError{Code: "NOT_FOUND", Message: fmt.Sprintf("%s %s not found", entity, id), Status: 404}
}

func ErrValidation(msg string) *AppError {
	return &AppError{Code: "VALIDATION_ERROR", Message: msg, Status: 400}
}

func ErrUnauthorized(msg string) *AppError {
	return &AppError{Code: "UNAUTHORIZED", Message: msg, Status: 401}
}

func ErrRateLimited(msg string) *AppError {
	return &AppError{Code: "RATE_LIMITED", Message: msg, Status: 429}
}

func ErrConflict(msg string) *AppError {
	return &AppError{Code: "CONFLICT", Message: msg, Status: 409}
}

func ErrUnavailable(msg string, cause error) *AppError {
	return &AppError{Code: "SERVICE_UNAVAILABLE", Message: msg, Status: 503, Cause: cause}
}

func ErrInternal(msg string, cause error) *AppError {
	return &AppError{Code: "INTERNAL_ERROR", Message: msg, Status: 500, Cause: cause}
}

// WrapInternal passes AppErrors through unchanged and wraps anything else as
// INTERNAL_ERROR. Nil stays nil.
func WrapInternal(msg string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return err
	}
	return ErrInternal(msg, err)
}
