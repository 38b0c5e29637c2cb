package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tenxcards-backend/internal/models"
	"tenxcards-backend/internal/repository"
)

type SessionStore interface {
	CreateSession(ctx context.Context, s *models.GenerationSession) error
	FinalizeSession(ctx context.Context, sessionID int64, out repository.SessionOutcome) (models.SessionStatus, error)
}

// SessionHandle identifies an open generation attempt.
type SessionHandle struct {
	ID        int64
	UserID    uuid.UUID
	Status    models.SessionStatus
	InputText string
	OpenedAt  time.Time
}

// Tracker owns the pending → completed|failed lifecycle of generation sessions.
type Tracker struct {
	store SessionStore
	model string
	log   *zap.Logger
}

func NewTracker(store SessionStore, model string, log *zap.Logger) *Tracker {
	return &Tracker{store: store, model: model, log: log}
}

const finalizeTimeout = 5 * time.Second

// Open validates the input and records a pending session. Invalid input
// never creates a row.
func (t *Tracker) Open(ctx context.Context, userID uuid.UUID, inputText string) (*SessionHandle, error) {
	text, verr := validateInputText(inputText)
	if verr != nil {
		return nil, verr
	}

	s := &models.GenerationSession{
		UserID:    userID,
		InputText: text,
		Model:     t.model,
		Status:    models.SessionPending,
	}
	if err := t.store.CreateSession(ctx, s); err != nil {
		return nil, fmt.Errorf("create generation session: %w", err)
	}

	return &SessionHandle{
		ID:        s.ID,
		UserID:    userID,
		Status:    s.Status,
		InputText: text,
		OpenedAt:  time.Now(),
	}, nil
}

func (t *Tracker) Complete(ctx context.Context, h *SessionHandle, proposalCount int, latencyMs int) error {
	return t.finalize(ctx, h, repository.SessionOutcome{
		Status:         models.SessionCompleted,
		GeneratedCount: proposalCount,
		LatencyMs:      latencyMs,
	})
}

func (t *Tracker) Fail(ctx context.Context, h *SessionHandle, code, message string, latencyMs int) error {
	return t.finalize(ctx, h, repository.SessionOutcome{
		Status:       models.SessionFailed,
		ErrorCode:    &code,
		ErrorMessage: &message,
		LatencyMs:    latencyMs,
	})
}

func (t *Tracker) finalize(ctx context.Context, h *SessionHandle, out repository.SessionOutcome) error {
	if h.Status != models.SessionPending {
		return &InvalidStateError{SessionID: h.ID, Status: h.Status}
	}

	// The terminal write must land even if the client has gone away.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
	defer cancel()

	status, err := t.store.FinalizeSession(ctx, h.ID, out)
	switch {
	case errors.Is(err, repository.ErrSessionNotPending):
		h.Status = status
		return &InvalidStateError{SessionID: h.ID, Status: status}
	case errors.Is(err, repository.ErrNotFound):
		return notFound("generation session")
	case err != nil:
		t.log.Error("failed to finalize generation session",
			zap.Int64("session_id", h.ID),
			zap.String("status", string(out.Status)),
			zap.Error(err))
		return fmt.Errorf("finalize generation session %d: %w", h.ID, err)
	}

	h.Status = status
	return nil
}
