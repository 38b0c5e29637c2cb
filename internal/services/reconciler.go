package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tenxcards-backend/internal/metrics"
	"tenxcards-backend/internal/models"
	"tenxcards-backend/internal/repository"
)

type ReviewStore interface {
	GetProposal(ctx context.Context, userID uuid.UUID, sessionID, proposalID int64) (*models.ProposalRecord, error)
	AcceptProposal(ctx context.Context, p repository.AcceptParams) (*models.ProposalRecord, error)
	RejectProposal(ctx context.Context, userID uuid.UUID, sessionID, proposalID int64) (*models.ProposalRecord, error)
}

// Reconciler applies per-proposal review decisions. The first decision on a
// proposal wins; any later accept or reject is a conflict.
type Reconciler struct {
	store  ReviewStore
	events EventPublisher
	log    *zap.Logger
}

func NewReconciler(store ReviewStore, events EventPublisher, log *zap.Logger) *Reconciler {
	if events == nil {
		events = NopPublisher
	}
	return &Reconciler{store: store, events: events, log: log}
}

// Accept turns a proposal into a permanent flashcard. Trimmed text equal to
// the proposed text yields ai_full, anything else ai_edited. Case is significant.
func (r *Reconciler) Accept(ctx context.Context, userID uuid.UUID, sessionID, proposalID int64, front, back string) (*models.Flashcard, error) {
	proposal, err := r.store.GetProposal(ctx, userID, sessionID, proposalID)
	if err != nil {
		return nil, r.mapErr(err)
	}

	front, back, verr := validateCard(front, back)
	if verr != nil {
		return nil, verr
	}

	if proposal.Reviewed() {
		return nil, &ConflictError{Message: "proposal already reviewed"}
	}

	var editedFront, editedBack *string
	if front != trimmed(proposal.OriginalFront) {
		editedFront = &front
	}
	if back != trimmed(proposal.OriginalBack) {
		editedBack = &back
	}

	method := models.CreationAIFull
	decision := metrics.DecisionAcceptedFull
	if editedFront != nil || editedBack != nil {
		method = models.CreationAIEdited
		decision = metrics.DecisionAcceptedEdited
	}

	card := &models.Flashcard{
		UserID:         userID,
		Front:          front,
		Back:           back,
		CreationMethod: method,
		AISessionID:    &sessionID,
	}

	if _, err := r.store.AcceptProposal(ctx, repository.AcceptParams{
		UserID:      userID,
		SessionID:   sessionID,
		ProposalID:  proposalID,
		EditedFront: editedFront,
		EditedBack:  editedBack,
		Card:        card,
	}); err != nil {
		return nil, r.mapErr(err)
	}

	metrics.RecordReview(decision)
	r.log.Info("proposal accepted",
		zap.String("user_id", userID.String()),
		zap.Int64("session_id", sessionID),
		zap.Int64("proposal_id", proposalID),
		zap.Int64("flashcard_id", card.ID),
		zap.String("creation_method", string(method)))

	r.events.Publish(context.WithoutCancel(ctx), userID, models.WSMessage{
		Type: models.EventProposalReviewed,
		Payload: models.ReviewEvent{
			SessionID:   sessionID,
			ProposalID:  proposalID,
			Accepted:    true,
			FlashcardID: &card.ID,
		},
	})

	return card, nil
}

// Reject records the decision so acceptance rates stay computable from rows.
func (r *Reconciler) Reject(ctx context.Context, userID uuid.UUID, sessionID, proposalID int64) (*models.ProposalRecord, error) {
	record, err := r.store.RejectProposal(ctx, userID, sessionID, proposalID)
	if err != nil {
		return nil, r.mapErr(err)
	}

	metrics.RecordReview(metrics.DecisionRejected)
	r.log.Info("proposal rejected",
		zap.String("user_id", userID.String()),
		zap.Int64("session_id", sessionID),
		zap.Int64("proposal_id", proposalID))

	r.events.Publish(context.WithoutCancel(ctx), userID, models.WSMessage{
		Type: models.EventProposalReviewed,
		Payload: models.ReviewEvent{
			SessionID:  sessionID,
			ProposalID: proposalID,
		},
	})

	return record, nil
}

func (r *Reconciler) mapErr(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return notFound("proposal")
	case errors.Is(err, repository.ErrAlreadyReviewed):
		return &ConflictError{Message: "proposal already reviewed"}
	default:
		return fmt.Errorf("review proposal: %w", err)
	}
}
