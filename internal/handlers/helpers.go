package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"tenxcards-backend/internal/models"
	"tenxcards-backend/internal/services"
)

// maxBodyBytes fits a 10,000 character input even when every character is
// sent as an escaped surrogate pair (12 bytes). Length itself is enforced by
// the services.
const maxBodyBytes = 256 << 10

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func errorResp(code, message string, r *http.Request) models.ErrorResponse {
	return models.ErrorResponse{
		Error: models.APIError{
			Code:      code,
			Message:   message,
			RequestID: r.Header.Get("X-Request-ID"),
		},
	}
}

func errorRespWithFields(code, message string, fields map[string]string, r *http.Request) models.ErrorResponse {
	return models.ErrorResponse{
		Error: models.APIError{
			Code:      code,
			Message:   message,
			Fields:    fields,
			RequestID: r.Header.Get("X-Request-ID"),
		},
	}
}

func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr *services.ValidationError
		cerr *services.ConflictError
		nerr *services.NotFoundError
		serr *services.InvalidStateError
		gerr *services.GenerationFailedError
	)
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", verr.Fields, r))
	case errors.As(err, &cerr):
		writeJSON(w, http.StatusConflict, errorResp("CONFLICT", cerr.Message, r))
	case errors.As(err, &nerr):
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", nerr.Message, r))
	case errors.As(err, &serr):
		writeJSON(w, http.StatusConflict, errorResp("INVALID_STATE", "Generation session is already finalized", r))
	case errors.As(err, &gerr):
		writeJSON(w, http.StatusInternalServerError, models.GenerationFailedResponse{
			Error:     "generation_failed",
			Message:   services.GenerationFailedMessage,
			SessionID: gerr.SessionID,
		})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "An unexpected error occurred", r))
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return false
	}
	return true
}

// idParam parses a positive integer URL parameter. Malformed ids read as not found.
func idParam(w http.ResponseWriter, r *http.Request, name, what string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", what+" not found", r))
		return 0, false
	}
	return id, true
}

func queryInt(r *http.Request, key string) int {
	n, _ := strconv.Atoi(r.URL.Query().Get(key))
	return n
}
