package models

import (
	"time"

	"github.com/google/uuid"
)

const MaxInputTextLength = 10000

type SessionStatus string

const (
	SessionPending   SessionStatus = "pending"
	SessionCompleted SessionStatus = "completed"
	SessionFailed    SessionStatus = "failed"
)

func (s SessionStatus) Terminal() bool {
	return s == SessionCompleted || s == SessionFailed
}

// GenerationSession records one attempt to generate flashcards from a text blob.
// Sessions are kept for analytics and are never deleted by the application.
type GenerationSession struct {
	ID                int64         `json:"id"`
	UserID            uuid.UUID     `json:"-"`
	InputText         string        `json:"input_text"`
	Model             string        `json:"model"`
	Status            SessionStatus `json:"status"`
	GeneratedCount    int           `json:"generated_count"`
	ErrorCode         *string       `json:"error_code"`
	ErrorMessage      *string       `json:"-"`
	APIResponseTimeMs *int          `json:"api_response_time_ms"`
	CreatedAt         time.Time     `json:"created_at"`
}

// ProposalRecord is one AI-suggested flashcard belonging to a session.
type ProposalRecord struct {
	ID            int64      `json:"id"`
	SessionID     int64      `json:"session_id"`
	OriginalFront string     `json:"original_front"`
	OriginalBack  string     `json:"original_back"`
	EditedFront   *string    `json:"edited_front"`
	EditedBack    *string    `json:"edited_back"`
	WasAccepted   bool       `json:"was_accepted"`
	ReviewedAt    *time.Time `json:"reviewed_at"`
}

func (p *ProposalRecord) Reviewed() bool {
	return p.ReviewedAt != nil
}

func (p *ProposalRecord) WasEdited() bool {
	return p.EditedFront != nil || p.EditedBack != nil
}

// ProposalCandidate is a validated front/back pair produced by the generator.
type ProposalCandidate struct {
	Front string `json:"front"`
	Back  string `json:"back"`
}

// SessionStats is derived from persisted proposal rows only.
type SessionStats struct {
	Generated      int      `json:"generated"`
	Accepted       int      `json:"accepted"`
	Rejected       int      `json:"rejected"`
	Pending        int      `json:"pending"`
	AcceptanceRate *float64 `json:"acceptance_rate"`
}

// ComputeStats counts review decisions. The acceptance rate is nil when
// nothing was generated.
func ComputeStats(proposals []*ProposalRecord) SessionStats {
	var st SessionStats
	st.Generated = len(proposals)
	for _, p := range proposals {
		switch {
		case p.WasAccepted:
			st.Accepted++
		case p.Reviewed():
			st.Rejected++
		default:
			st.Pending++
		}
	}
	if st.Generated > 0 {
		rate := float64(st.Accepted) / float64(st.Generated)
		st.AcceptanceRate = &rate
	}
	return st
}

type GenerateRequest struct {
	InputText string `json:"input_text"`
}

type GenerateResponse struct {
	SessionID      int64               `json:"session_id"`
	GeneratedCount int                 `json:"generated_count"`
	Proposals      []ProposalCandidate `json:"generated_flashcards"`
	ProposalIDs    []int64             `json:"proposal_ids"`
}

type GenerationFailedResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	SessionID int64  `json:"session_id"`
}

type AcceptRequest struct {
	SessionID  int64  `json:"session_id"`
	ProposalID int64  `json:"proposal_id"`
	Front      string `json:"front"`
	Back       string `json:"back"`
}

type SessionReview struct {
	Session   *GenerationSession `json:"session"`
	Proposals []*ProposalRecord  `json:"proposals"`
	Stats     SessionStats       `json:"stats"`
}

type SessionPage struct {
	Count    int                  `json:"count"`
	Page     int                  `json:"page"`
	PageSize int                  `json:"page_size"`
	Results  []*GenerationSession `json:"results"`
}
