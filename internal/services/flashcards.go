package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"tenxcards-backend/internal/models"
	"tenxcards-backend/internal/repository"
)

const (
	DefaultPageSize = 25
	MaxPageSize     = 50
	DefaultSort     = "-created_at"
)

var allowedSorts = map[string]bool{
	"created_at":  true,
	"-created_at": true,
	"updated_at":  true,
	"-updated_at": true,
}

type FlashcardStore interface {
	Create(ctx context.Context, f *models.Flashcard) error
	GetByID(ctx context.Context, userID uuid.UUID, id int64) (*models.Flashcard, error)
	Update(ctx context.Context, f *models.Flashcard) error
	Delete(ctx context.Context, userID uuid.UUID, id int64) error
	ListByUser(ctx context.Context, userID uuid.UUID, sort string, limit, offset int) ([]*models.Flashcard, int, error)
}

type ListParams struct {
	Page     int
	PageSize int
	Sort     string
}

// FlashcardService is the owner-scoped CRUD layer over permanent flashcards.
type FlashcardService struct {
	store FlashcardStore
}

func NewFlashcardService(store FlashcardStore) *FlashcardService {
	return &FlashcardService{store: store}
}

func (s *FlashcardService) Create(ctx context.Context, userID uuid.UUID, front, back string) (*models.Flashcard, error) {
	front, back, verr := validateCard(front, back)
	if verr != nil {
		return nil, verr
	}

	card := &models.Flashcard{
		UserID:         userID,
		Front:          front,
		Back:           back,
		CreationMethod: models.CreationManual,
	}
	if err := s.store.Create(ctx, card); err != nil {
		return nil, fmt.Errorf("create flashcard: %w", err)
	}
	return card, nil
}

func (s *FlashcardService) Get(ctx context.Context, userID uuid.UUID, id int64) (*models.Flashcard, error) {
	card, err := s.store.GetByID(ctx, userID, id)
	if err != nil {
		return nil, mapFlashcardErr(err)
	}
	return card, nil
}

// Update saves new text. Saving an ai_full card always marks it ai_edited,
// even when the text is unchanged.
func (s *FlashcardService) Update(ctx context.Context, userID uuid.UUID, id int64, front, back string) (*models.Flashcard, error) {
	card, err := s.store.GetByID(ctx, userID, id)
	if err != nil {
		return nil, mapFlashcardErr(err)
	}

	front, back, verr := validateCard(front, back)
	if verr != nil {
		return nil, verr
	}

	card.Front = front
	card.Back = back
	if card.CreationMethod == models.CreationAIFull {
		card.CreationMethod = models.CreationAIEdited
	}

	if err := s.store.Update(ctx, card); err != nil {
		return nil, mapFlashcardErr(err)
	}
	return card, nil
}

func (s *FlashcardService) Delete(ctx context.Context, userID uuid.UUID, id int64) error {
	if err := s.store.Delete(ctx, userID, id); err != nil {
		return mapFlashcardErr(err)
	}
	return nil
}

func (s *FlashcardService) List(ctx context.Context, userID uuid.UUID, params ListParams) (*models.FlashcardPage, error) {
	page, pageSize := normalizePage(params.Page, params.PageSize)
	sort := strings.TrimSpace(params.Sort)
	if !allowedSorts[sort] {
		sort = DefaultSort
	}

	cards, total, err := s.store.ListByUser(ctx, userID, sort, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, fmt.Errorf("list flashcards: %w", err)
	}

	return &models.FlashcardPage{
		Count:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: (total + pageSize - 1) / pageSize,
		Results:    cards,
	}, nil
}

// normalizePage clamps page to >= 1 and page size to [DefaultPageSize, MaxPageSize].
func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	switch {
	case pageSize < DefaultPageSize:
		pageSize = DefaultPageSize
	case pageSize > MaxPageSize:
		pageSize = MaxPageSize
	}
	return page, pageSize
}

func mapFlashcardErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return notFound("flashcard")
	}
	return err
}

func trimmed(s string) string { return strings.TrimSpace(s) }
