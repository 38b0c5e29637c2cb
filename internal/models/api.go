package models

import "github.com/google/uuid"

// WebSocket message types
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

const (
	EventGenerationCompleted = "generation_completed"
	EventGenerationFailed    = "generation_failed"
	EventProposalReviewed    = "proposal_reviewed"
)

type GenerationEvent struct {
	SessionID      int64  `json:"session_id"`
	Status         string `json:"status"`
	GeneratedCount int    `json:"generated_count"`
	ErrorCode      string `json:"error_code,omitempty"`
}

type ReviewEvent struct {
	SessionID   int64  `json:"session_id"`
	ProposalID  int64  `json:"proposal_id"`
	Accepted    bool   `json:"accepted"`
	FlashcardID *int64 `json:"flashcard_id,omitempty"`
}

type User struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
}

// API Error response
type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}
