package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/zatekoja/careslot/internal/api/middleware"
	"github.com/zatekoja/careslot/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/careslot/pkg/errors"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithJSON(w, statusCode, errorResponse{Error: message})
}

// respondWithAppError maps an error to its HTTP status. Internal details are
// logged, never returned.
func respondWithAppError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		observability.LoggerFromContext(r.Context()).Error().Err(err).Msg("unhandled error")
		respondWithError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	status := http.StatusInternalServerError
	message := appErr.Message
	switch appErr.Type {
	case apperrors.ErrorTypeNotFound:
		status = http.StatusNotFound
	case apperrors.ErrorTypeValidation:
		status = http.StatusBadRequest
	case apperrors.ErrorTypeConflict:
		status = http.StatusConflict
	case apperrors.ErrorTypeUnauthorized:
		status = http.StatusUnauthorized
	case apperrors.ErrorTypeExternal:
		status = http.StatusBadGateway
	default:
		observability.LoggerFromContext(r.Context()).Error().Err(err).Msg("internal error")
		message = "internal server error"
	}

	respondWithJSON(w, status, errorResponse{Error: message, Code: string(appErr.Code)})
}

func decodeJSON(r *http.Request, dest interface{}) error {
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(dest); err != nil {
		return apperrors.NewValidationError("invalid request payload")
	}
	return nil
}

// requesterID returns the caller identity resolved by middleware.Requester
func requesterID(r *http.Request) (string, error) {
	id := middleware.RequesterIDFromContext(r.Context())
	if id == "" {
		return "", apperrors.NewUnauthorizedError("requester identity is required")
	}
	return id, nil
}
