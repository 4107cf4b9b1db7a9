package domain

import (
	"time"
)

// ValidateMatchWindow checks a (predictBefore, resultAfter) pair against now.
// It is used both when a match is added and when a postponed match is restored.
func ValidateMatchWindow(now, predictBefore, resultAfter time.Time) error {
	if !predictBefore.After(now) {
		return Reject(ErrPastPredictionDeadline, "predict_before %s is not after %s",
			predictBefore.UTC().Format(time.RFC3339), now.UTC().Format(time.RFC3339))
	}
	if !resultAfter.After(predictBefore) {
		return Reject(ErrPredictBeforeAfterResultAfter, "result_after %s is not after predict_before %s",
			resultAfter.UTC().Format(time.RFC3339), predictBefore.UTC().Format(time.RFC3339))
	}
	return nil
}

// ValidatePrediction rejects the Uninitialised outcome and unknown values.
func ValidatePrediction(p Outcome) error {
	if !p.Valid() {
		return Reject(ErrInvalidPrediction, "%s", p)
	}
	return nil
}
