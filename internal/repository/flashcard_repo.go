package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tenxcards-backend/internal/models"
)

type FlashcardRepo struct {
	pool *pgxpool.Pool
}

func NewFlashcardRepo(pool *pgxpool.Pool) *FlashcardRepo {
	return &FlashcardRepo{pool: pool}
}

const flashcardColumns = `id, user_id, front, back, creation_method, ai_session_id, created_at, updated_at`

var flashcardOrder = map[string]string{
	"created_at":  "created_at ASC, id ASC",
	"-created_at": "created_at DESC, id DESC",
	"updated_at":  "updated_at ASC, id ASC",
	"-updated_at": "updated_at DESC, id DESC",
}

func scanFlashcard(row pgx.Row) (*models.Flashcard, error) {
	f := &models.Flashcard{}
	err := row.Scan(&f.ID, &f.UserID, &f.Front, &f.Back, &f.CreationMethod, &f.AISessionID, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (r *FlashcardRepo) Create(ctx context.Context, f *models.Flashcard) error {
	return insertFlashcard(ctx, r.pool, f)
}

type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func insertFlashcard(ctx context.Context, q queryRower, f *models.Flashcard) error {
	query := `INSERT INTO flashcards (user_id, front, back, creation_method, ai_session_id)
		VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at, updated_at`

	return q.QueryRow(ctx, query,
		f.UserID, f.Front, f.Back, f.CreationMethod, f.AISessionID,
	).Scan(&f.ID, &f.CreatedAt, &f.UpdatedAt)
}

func (r *FlashcardRepo) GetByID(ctx context.Context, userID uuid.UUID, id int64) (*models.Flashcard, error) {
	query := `SELECT ` + flashcardColumns + ` FROM flashcards WHERE id = $1 AND user_id = $2`
	f, err := scanFlashcard(r.pool.QueryRow(ctx, query, id, userID))
	if err != nil {
		return nil, notFound(err)
	}
	return f, nil
}

func (r *FlashcardRepo) Update(ctx context.Context, f *models.Flashcard) error {
	query := `UPDATE flashcards SET front = $1, back = $2, creation_method = $3, updated_at = NOW()
		WHERE id = $4 AND user_id = $5 RETURNING updated_at`

	err := r.pool.QueryRow(ctx, query, f.Front, f.Back, f.CreationMethod, f.ID, f.UserID).Scan(&f.UpdatedAt)
	return notFound(err)
}

func (r *FlashcardRepo) Delete(ctx context.Context, userID uuid.UUID, id int64) error {
	tag, err := r.pool.Exec(ctx, "DELETE FROM flashcards WHERE id = $1 AND user_id = $2", id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByUser returns one page of the user's cards and the user's total count.
// Unknown sort keys fall back to newest first.
func (r *FlashcardRepo) ListByUser(ctx context.Context, userID uuid.UUID, sort string, limit, offset int) ([]*models.Flashcard, int, error) {
	order, ok := flashcardOrder[sort]
	if !ok {
		order = flashcardOrder["-created_at"]
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM flashcards WHERE user_id = $1", userID).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + flashcardColumns + ` FROM flashcards WHERE user_id = $1 ORDER BY ` + order + ` LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	cards := []*models.Flashcard{}
	for rows.Next() {
		f, err := scanFlashcard(rows)
		if err != nil {
			return nil, 0, err
		}
		cards = append(cards, f)
	}
	return cards, total, rows.Err()
}
