package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	MaxFrontLength = 200
	MaxBackLength  = 500
)

type CreationMethod string

const (
	CreationManual   CreationMethod = "manual"
	CreationAIFull   CreationMethod = "ai_full"   // accepted verbatim
	CreationAIEdited CreationMethod = "ai_edited" // edited before or after accepting
)

func (m CreationMethod) Valid() bool {
	switch m {
	case CreationManual, CreationAIFull, CreationAIEdited:
		return true
	}
	return false
}

func (m CreationMethod) IsAI() bool {
	return m == CreationAIFull || m == CreationAIEdited
}

type Flashcard struct {
	ID             int64          `json:"id"`
	UserID         uuid.UUID      `json:"-"`
	Front          string         `json:"front"`
	Back           string         `json:"back"`
	CreationMethod CreationMethod `json:"creation_method"`
	AISessionID    *int64         `json:"-"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

type FlashcardRequest struct {
	Front string `json:"front"`
	Back  string `json:"back"`
}

// FlashcardPage is one page of a user's collection.
type FlashcardPage struct {
	Count      int          `json:"count"`
	Page       int          `json:"page"`
	PageSize   int          `json:"page_size"`
	TotalPages int          `json:"total_pages"`
	Results    []*Flashcard `json:"results"`
}
