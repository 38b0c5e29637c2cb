package services

import (
	"fmt"

	"tenxcards-backend/internal/models"
)

// Custom errors
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string { return "Validation error" }

type ConflictError struct{ Message string }

func (e *ConflictError) Error() string { return e.Message }

type NotFoundError struct{ Message string }

func (e *NotFoundError) Error() string { return e.Message }

// InvalidStateError reports a session finalized twice.
type InvalidStateError struct {
	SessionID int64
	Status    models.SessionStatus
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("generation session %d is %s, not pending", e.SessionID, e.Status)
}

// Generation failure codes recorded on failed sessions.
const (
	CodeTimeout            = "timeout"
	CodeUpstreamError      = "upstream_error"
	CodeInvalidResponse    = "invalid_response"
	CodeEmptyResult        = "empty_result"
	CodeInsufficientResult = "insufficient_result"
	CodeInternalError      = "internal_error"
)

// GenerationFailedMessage is the only text users ever see for a failed generation.
const GenerationFailedMessage = "Couldn't generate flashcards right now. Please try again."

// GenerationFailedError carries the failure code and the diagnostic message
// stored on the session. SessionID is set once the failure has been recorded.
type GenerationFailedError struct {
	Code      string
	Message   string
	SessionID int64
	Err       error
}

func (e *GenerationFailedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("generation failed (%s): %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("generation failed (%s): %s", e.Code, e.Message)
}

func (e *GenerationFailedError) Unwrap() error { return e.Err }

func notFound(what string) *NotFoundError {
	return &NotFoundError{Message: what + " not found"}
}
