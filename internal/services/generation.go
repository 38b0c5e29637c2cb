package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tenxcards-backend/internal/logger"
	"tenxcards-backend/internal/metrics"
	"tenxcards-backend/internal/models"
	"tenxcards-backend/internal/repository"
)

type ProposalStore interface {
	InsertProposals(ctx context.Context, sessionID int64, candidates []models.ProposalCandidate) ([]*models.ProposalRecord, error)
	ListProposals(ctx context.Context, sessionID int64) ([]*models.ProposalRecord, error)
	GetSession(ctx context.Context, userID uuid.UUID, sessionID int64) (*models.GenerationSession, error)
	ListSessions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.GenerationSession, int, error)
}

// Generator produces candidates for one input text.
type Generator interface {
	Generate(ctx context.Context, inputText string) ([]models.ProposalCandidate, error)
}

type GenerationResult struct {
	SessionID int64
	Proposals []*models.ProposalRecord
	LatencyMs int
}

// GenerationService runs one generation attempt end to end:
// open session, generate, persist proposals, finalize session.
type GenerationService struct {
	tracker   *Tracker
	generator Generator
	store     ProposalStore
	events    EventPublisher
	log       *zap.Logger
}

func NewGenerationService(tracker *Tracker, generator Generator, store ProposalStore, events EventPublisher, log *zap.Logger) *GenerationService {
	if events == nil {
		events = NopPublisher
	}
	return &GenerationService{
		tracker:   tracker,
		generator: generator,
		store:     store,
		events:    events,
		log:       log,
	}
}

// Generate returns a *ValidationError before any session exists, or a
// *GenerationFailedError carrying the session id once the failure has been
// recorded on the session.
func (s *GenerationService) Generate(ctx context.Context, userID uuid.UUID, inputText string) (*GenerationResult, error) {
	handle, err := s.tracker.Open(ctx, userID, inputText)
	if err != nil {
		return nil, err
	}

	log := s.log.With(
		zap.String("user_id", userID.String()),
		zap.Int64("session_id", handle.ID))
	log.Info("generation started", zap.String("input_preview", logger.Preview(handle.InputText, 100)))

	start := time.Now()
	candidates, genErr := s.generator.Generate(ctx, handle.InputText)
	latency := time.Since(start)
	latencyMs := int(latency.Milliseconds())

	if genErr != nil {
		return nil, s.fail(ctx, log, handle, genErr, latency)
	}

	// Persisting must survive a client disconnect once the model has answered.
	persistCtx := context.WithoutCancel(ctx)
	records, err := s.store.InsertProposals(persistCtx, handle.ID, candidates)
	if err != nil {
		return nil, s.fail(ctx, log, handle, &GenerationFailedError{
			Code:    CodeInternalError,
			Message: "failed to store proposals",
			Err:     err,
		}, latency)
	}

	if err := s.complete(ctx, log, handle, len(records), latencyMs); err != nil {
		var ise *InvalidStateError
		if errors.As(err, &ise) {
			return nil, fmt.Errorf("complete generation session: %w", err)
		}
		return nil, s.fail(ctx, log, handle, &GenerationFailedError{
			Code:    CodeInternalError,
			Message: "failed to complete generation session",
			Err:     err,
		}, latency)
	}

	metrics.RecordGeneration(string(models.SessionCompleted), "", len(records), latency)
	log.Info("generation completed",
		zap.Int("generated_count", len(records)),
		zap.Int("latency_ms", latencyMs))

	s.events.Publish(persistCtx, userID, models.WSMessage{
		Type: models.EventGenerationCompleted,
		Payload: models.GenerationEvent{
			SessionID:      handle.ID,
			Status:         string(models.SessionCompleted),
			GeneratedCount: len(records),
		},
	})

	return &GenerationResult{SessionID: handle.ID, Proposals: records, LatencyMs: latencyMs}, nil
}

// complete retries a failed terminal write once before giving up.
func (s *GenerationService) complete(ctx context.Context, log *zap.Logger, h *SessionHandle, count, latencyMs int) error {
	err := s.tracker.Complete(ctx, h, count, latencyMs)
	var ise *InvalidStateError
	if err == nil || errors.As(err, &ise) {
		return err
	}
	log.Warn("retrying session completion", zap.Error(err))
	return s.tracker.Complete(ctx, h, count, latencyMs)
}

func (s *GenerationService) fail(ctx context.Context, log *zap.Logger, h *SessionHandle, cause error, latency time.Duration) error {
	var gfe *GenerationFailedError
	if !errors.As(cause, &gfe) {
		gfe = &GenerationFailedError{Code: CodeInternalError, Message: "unexpected generation error", Err: cause}
	}
	gfe.SessionID = h.ID

	log.Error("generation failed",
		zap.String("error_code", gfe.Code),
		zap.Int64("latency_ms", latency.Milliseconds()),
		zap.Error(cause))

	message := gfe.Message
	if gfe.Err != nil {
		message = fmt.Sprintf("%s: %v", gfe.Message, gfe.Err)
	}
	if err := s.tracker.Fail(ctx, h, gfe.Code, message, int(latency.Milliseconds())); err != nil {
		return fmt.Errorf("record generation failure: %w", err)
	}

	metrics.RecordGeneration(string(models.SessionFailed), gfe.Code, 0, latency)
	s.events.Publish(context.WithoutCancel(ctx), h.UserID, models.WSMessage{
		Type: models.EventGenerationFailed,
		Payload: models.GenerationEvent{
			SessionID: h.ID,
			Status:    string(models.SessionFailed),
			ErrorCode: gfe.Code,
		},
	})

	return gfe
}

// GetSession returns the review view of one session. Stats are derived from
// the persisted proposal rows.
func (s *GenerationService) GetSession(ctx context.Context, userID uuid.UUID, sessionID int64) (*models.SessionReview, error) {
	session, err := s.store.GetSession(ctx, userID, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("generation session")
		}
		return nil, err
	}

	proposals, err := s.store.ListProposals(ctx, session.ID)
	if err != nil {
		return nil, err
	}

	return &models.SessionReview{
		Session:   session,
		Proposals: proposals,
		Stats:     models.ComputeStats(proposals),
	}, nil
}

func (s *GenerationService) ListSessions(ctx context.Context, userID uuid.UUID, page, pageSize int) (*models.SessionPage, error) {
	page, pageSize = normalizePage(page, pageSize)

	sessions, total, err := s.store.ListSessions(ctx, userID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}

	return &models.SessionPage{
		Count:    total,
		Page:     page,
		PageSize: pageSize,
		Results:  sessions,
	}, nil
}
