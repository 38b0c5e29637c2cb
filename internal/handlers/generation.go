package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"tenxcards-backend/internal/middleware"
	"tenxcards-backend/internal/models"
	"tenxcards-backend/internal/services"
)

type generationService interface {
	Generate(ctx context.Context, userID uuid.UUID, inputText string) (*services.GenerationResult, error)
	GetSession(ctx context.Context, userID uuid.UUID, sessionID int64) (*models.SessionReview, error)
	ListSessions(ctx context.Context, userID uuid.UUID, page, pageSize int) (*models.SessionPage, error)
}

type reviewService interface {
	Accept(ctx context.Context, userID uuid.UUID, sessionID, proposalID int64, front, back string) (*models.Flashcard, error)
	Reject(ctx context.Context, userID uuid.UUID, sessionID, proposalID int64) (*models.ProposalRecord, error)
}

type GenerationHandler struct {
	generations generationService
	reviews     reviewService
}

func NewGenerationHandler(generations *services.GenerationService, reviews *services.Reconciler) *GenerationHandler {
	return &GenerationHandler{generations: generations, reviews: reviews}
}

// POST /api/v1/generations
func (h *GenerationHandler) Generate(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req models.GenerateRequest
	if !decodeBody(w, r, &req) {
		return
	}

	res, err := h.generations.Generate(r.Context(), userID, req.InputText)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	resp := models.GenerateResponse{
		SessionID:      res.SessionID,
		GeneratedCount: len(res.Proposals),
		Proposals:      make([]models.ProposalCandidate, 0, len(res.Proposals)),
		ProposalIDs:    make([]int64, 0, len(res.Proposals)),
	}
	for _, p := range res.Proposals {
		resp.Proposals = append(resp.Proposals, models.ProposalCandidate{Front: p.OriginalFront, Back: p.OriginalBack})
		resp.ProposalIDs = append(resp.ProposalIDs, p.ID)
	}

	writeJSON(w, http.StatusCreated, resp)
}

// GET /api/v1/generations
func (h *GenerationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	page, err := h.generations.ListSessions(r.Context(), userID, queryInt(r, "page"), queryInt(r, "page_size"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// GET /api/v1/generations/{sessionID}
func (h *GenerationHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	sessionID, ok := idParam(w, r, "sessionID", "generation session")
	if !ok {
		return
	}

	review, err := h.generations.GetSession(r.Context(), userID, sessionID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, review)
}

type reviewRequest struct {
	Front string `json:"front"`
	Back  string `json:"back"`
}

// POST /api/v1/generations/{sessionID}/proposals/{proposalID}/accept
func (h *GenerationHandler) Accept(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := idParam(w, r, "sessionID", "proposal")
	if !ok {
		return
	}
	proposalID, ok := idParam(w, r, "proposalID", "proposal")
	if !ok {
		return
	}

	var req reviewRequest
	if !decodeBody(w, r, &req) {
		return
	}
	h.accept(w, r, sessionID, proposalID, req.Front, req.Back)
}

// POST /api/v1/generations/accept
func (h *GenerationHandler) AcceptDecision(w http.ResponseWriter, r *http.Request) {
	var req models.AcceptRequest
	if !decodeBody(w, r, &req) {
		return
	}

	fields := map[string]string{}
	if req.SessionID <= 0 {
		fields["session_id"] = "This field is required."
	}
	if req.ProposalID <= 0 {
		fields["proposal_id"] = "This field is required."
	}
	if len(fields) > 0 {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", fields, r))
		return
	}

	h.accept(w, r, req.SessionID, req.ProposalID, req.Front, req.Back)
}

func (h *GenerationHandler) accept(w http.ResponseWriter, r *http.Request, sessionID, proposalID int64, front, back string) {
	userID := middleware.GetUserID(r.Context())

	card, err := h.reviews.Accept(r.Context(), userID, sessionID, proposalID, front, back)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, card)
}

// POST /api/v1/generations/{sessionID}/proposals/{proposalID}/reject
func (h *GenerationHandler) Reject(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	sessionID, ok := idParam(w, r, "sessionID", "proposal")
	if !ok {
		return
	}
	proposalID, ok := idParam(w, r, "proposalID", "proposal")
	if !ok {
		return
	}

	record, err := h.reviews.Reject(r.Context(), userID, sessionID, proposalID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}
