package api

import (
	"encoding/json"
	"errors"
	"math/big"
	"net/http"

	"ogxd/config"
	"ogxd/native/issuer"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// writeEngineError maps the engine's error taxonomy onto HTTP statuses:
// policy rejections are 409, everything else is 500.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, issuer.ErrInvalidRate),
		errors.Is(err, issuer.ErrInsufficientCollateral),
		errors.Is(err, issuer.ErrMinStakeTimeNotReached),
		errors.Is(err, issuer.ErrNoDebt),
		errors.Is(err, issuer.ErrNothingToBurn),
		errors.Is(err, issuer.ErrNotLiquidatable),
		errors.Is(err, issuer.ErrNothingToLiquidate),
		errors.Is(err, issuer.ErrInsufficientBalance),
		errors.Is(err, issuer.ErrWaitingPeriodOwing):
		writeError(w, http.StatusConflict, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, requestLimit))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return false
	}
	return true
}

// parseOptionalAmount parses a decimal amount string. Empty means "not
// supplied" and returns a nil amount.
func parseOptionalAmount(w http.ResponseWriter, raw string) (*big.Int, bool) {
	if raw == "" {
		return nil, true
	}
	amount, err := config.ParseDecimal(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return nil, false
	}
	return amount, true
}
