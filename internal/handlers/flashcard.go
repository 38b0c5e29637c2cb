package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"tenxcards-backend/internal/middleware"
	"tenxcards-backend/internal/models"
	"tenxcards-backend/internal/services"
)

type flashcardService interface {
	Create(ctx context.Context, userID uuid.UUID, front, back string) (*models.Flashcard, error)
	Get(ctx context.Context, userID uuid.UUID, id int64) (*models.Flashcard, error)
	Update(ctx context.Context, userID uuid.UUID, id int64, front, back string) (*models.Flashcard, error)
	Delete(ctx context.Context, userID uuid.UUID, id int64) error
	List(ctx context.Context, userID uuid.UUID, params services.ListParams) (*models.FlashcardPage, error)
}

type FlashcardHandler struct {
	cards flashcardService
}

func NewFlashcardHandler(cards *services.FlashcardService) *FlashcardHandler {
	return &FlashcardHandler{cards: cards}
}

// GET /api/v1/flashcards?page=&page_size=&sort=
func (h *FlashcardHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	page, err := h.cards.List(r.Context(), userID, services.ListParams{
		Page:     queryInt(r, "page"),
		PageSize: queryInt(r, "page_size"),
		Sort:     r.URL.Query().Get("sort"),
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// POST /api/v1/flashcards
func (h *FlashcardHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req models.FlashcardRequest
	if !decodeBody(w, r, &req) {
		return
	}

	card, err := h.cards.Create(r.Context(), userID, req.Front, req.Back)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, card)
}

// GET /api/v1/flashcards/{id}
func (h *FlashcardHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	id, ok := idParam(w, r, "id", "flashcard")
	if !ok {
		return
	}

	card, err := h.cards.Get(r.Context(), userID, id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, card)
}

// PUT /api/v1/flashcards/{id}
func (h *FlashcardHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	id, ok := idParam(w, r, "id", "flashcard")
	if !ok {
		return
	}

	var req models.FlashcardRequest
	if !decodeBody(w, r, &req) {
		return
	}

	card, err := h.cards.Update(r.Context(), userID, id, req.Front, req.Back)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, card)
}

// DELETE /api/v1/flashcards/{id}
func (h *FlashcardHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	id, ok := idParam(w, r, "id", "flashcard")
	if !ok {
		return
	}

	if err := h.cards.Delete(r.Context(), userID, id); err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
