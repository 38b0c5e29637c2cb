package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tenxcards-backend/internal/models"
)

type GenerationRepo struct {
	pool *pgxpool.Pool
}

func NewGenerationRepo(pool *pgxpool.Pool) *GenerationRepo {
	return &GenerationRepo{pool: pool}
}

const sessionColumns = `id, user_id, input_text, model, status, generated_count,
	error_code, error_message, api_response_time_ms, created_at`

const proposalColumns = `id, session_id, original_front, original_back,
	edited_front, edited_back, was_accepted, reviewed_at`

func scanSession(row pgx.Row) (*models.GenerationSession, error) {
	s := &models.GenerationSession{}
	err := row.Scan(
		&s.ID, &s.UserID, &s.InputText, &s.Model, &s.Status, &s.GeneratedCount,
		&s.ErrorCode, &s.ErrorMessage, &s.APIResponseTimeMs, &s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func scanProposal(row pgx.Row) (*models.ProposalRecord, error) {
	p := &models.ProposalRecord{}
	err := row.Scan(
		&p.ID, &p.SessionID, &p.OriginalFront, &p.OriginalBack,
		&p.EditedFront, &p.EditedBack, &p.WasAccepted, &p.ReviewedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Session operations

func (r *GenerationRepo) CreateSession(ctx context.Context, s *models.GenerationSession) error {
	if s.Status == "" {
		s.Status = models.SessionPending
	}
	query := `INSERT INTO ai_generation_sessions (user_id, input_text, model, status)
		VALUES ($1, $2, $3, $4) RETURNING id, created_at`

	return r.pool.QueryRow(ctx, query, s.UserID, s.InputText, s.Model, s.Status).Scan(&s.ID, &s.CreatedAt)
}

// SessionOutcome is the terminal state written when a session leaves pending.
type SessionOutcome struct {
	Status         models.SessionStatus
	GeneratedCount int
	ErrorCode      *string
	ErrorMessage   *string
	LatencyMs      int
}

// FinalizeSession moves a pending session to its terminal state. When the
// session is no longer pending the current status is returned together with
// ErrSessionNotPending.
func (r *GenerationRepo) FinalizeSession(ctx context.Context, sessionID int64, out SessionOutcome) (models.SessionStatus, error) {
	query := `UPDATE ai_generation_sessions
		SET status = $2, generated_count = $3, error_code = $4, error_message = $5, api_response_time_ms = $6
		WHERE id = $1 AND status = 'pending'
		RETURNING status`

	var status models.SessionStatus
	err := r.pool.QueryRow(ctx, query,
		sessionID, out.Status, out.GeneratedCount, out.ErrorCode, out.ErrorMessage, out.LatencyMs,
	).Scan(&status)
	if err == nil {
		return status, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", err
	}

	err = r.pool.QueryRow(ctx, "SELECT status FROM ai_generation_sessions WHERE id = $1", sessionID).Scan(&status)
	if err != nil {
		return "", notFound(err)
	}
	return status, ErrSessionNotPending
}

func (r *GenerationRepo) GetSession(ctx context.Context, userID uuid.UUID, sessionID int64) (*models.GenerationSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM ai_generation_sessions WHERE id = $1 AND user_id = $2`
	s, err := scanSession(r.pool.QueryRow(ctx, query, sessionID, userID))
	if err != nil {
		return nil, notFound(err)
	}
	return s, nil
}

func (r *GenerationRepo) ListSessions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.GenerationSession, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM ai_generation_sessions WHERE user_id = $1", userID).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + sessionColumns + ` FROM ai_generation_sessions
		WHERE user_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	sessions := []*models.GenerationSession{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, 0, err
		}
		sessions = append(sessions, s)
	}
	return sessions, total, rows.Err()
}

// Proposal operations

// InsertProposals stores every candidate of a successful generation. The
// batch runs in one implicit transaction so a session never ends up with a
// partial set.
func (r *GenerationRepo) InsertProposals(ctx context.Context, sessionID int64, candidates []models.ProposalCandidate) ([]*models.ProposalRecord, error) {
	batch := &pgx.Batch{}
	for _, c := range candidates {
		batch.Queue(`INSERT INTO generated_flashcards (session_id, original_front, original_back)
			VALUES ($1, $2, $3) RETURNING `+proposalColumns, sessionID, c.Front, c.Back)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	records := make([]*models.ProposalRecord, 0, len(candidates))
	for i := range candidates {
		p, err := scanProposal(results.QueryRow())
		if err != nil {
			return nil, fmt.Errorf("insert proposal %d: %w", i, err)
		}
		records = append(records, p)
	}
	return records, nil
}

func (r *GenerationRepo) ListProposals(ctx context.Context, sessionID int64) ([]*models.ProposalRecord, error) {
	query := `SELECT ` + proposalColumns + ` FROM generated_flashcards WHERE session_id = $1 ORDER BY id`
	rows, err := r.pool.Query(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	proposals := []*models.ProposalRecord{}
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, err
		}
		proposals = append(proposals, p)
	}
	return proposals, rows.Err()
}

// GetProposal resolves a proposal through its session so a foreign session,
// a missing session and a proposal from another session all look the same.
func (r *GenerationRepo) GetProposal(ctx context.Context, userID uuid.UUID, sessionID, proposalID int64) (*models.ProposalRecord, error) {
	query := `SELECT g.id, g.session_id, g.original_front, g.original_back,
			g.edited_front, g.edited_back, g.was_accepted, g.reviewed_at
		FROM generated_flashcards g
		JOIN ai_generation_sessions s ON s.id = g.session_id
		WHERE g.id = $1 AND g.session_id = $2 AND s.user_id = $3`

	p, err := scanProposal(r.pool.QueryRow(ctx, query, proposalID, sessionID, userID))
	if err != nil {
		return nil, notFound(err)
	}
	return p, nil
}

// AcceptParams describes one accept decision. Card is inserted and filled in
// with its generated id and timestamps.
type AcceptParams struct {
	UserID      uuid.UUID
	SessionID   int64
	ProposalID  int64
	EditedFront *string
	EditedBack  *string
	Card        *models.Flashcard
}

// AcceptProposal stamps the review decision and creates the flashcard in one
// transaction. Only the first decision on a proposal wins.
func (r *GenerationRepo) AcceptProposal(ctx context.Context, p AcceptParams) (*models.ProposalRecord, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	query := `UPDATE generated_flashcards g
		SET was_accepted = TRUE, edited_front = $4, edited_back = $5, reviewed_at = NOW()
		FROM ai_generation_sessions s
		WHERE g.id = $1 AND g.session_id = $2 AND s.id = g.session_id AND s.user_id = $3
			AND g.reviewed_at IS NULL
		RETURNING g.id, g.session_id, g.original_front, g.original_back,
			g.edited_front, g.edited_back, g.was_accepted, g.reviewed_at`

	record, err := scanProposal(tx.QueryRow(ctx, query, p.ProposalID, p.SessionID, p.UserID, p.EditedFront, p.EditedBack))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, r.reviewConflict(ctx, tx, p.UserID, p.SessionID, p.ProposalID)
		}
		return nil, err
	}

	if err := insertFlashcard(ctx, tx, p.Card); err != nil {
		return nil, fmt.Errorf("insert flashcard: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return record, nil
}

// RejectProposal records a reject decision. Only the first decision on a
// proposal wins.
func (r *GenerationRepo) RejectProposal(ctx context.Context, userID uuid.UUID, sessionID, proposalID int64) (*models.ProposalRecord, error) {
	query := `UPDATE generated_flashcards g
		SET was_accepted = FALSE, reviewed_at = NOW()
		FROM ai_generation_sessions s
		WHERE g.id = $1 AND g.session_id = $2 AND s.id = g.session_id AND s.user_id = $3
			AND g.reviewed_at IS NULL
		RETURNING g.id, g.session_id, g.original_front, g.original_back,
			g.edited_front, g.edited_back, g.was_accepted, g.reviewed_at`

	record, err := scanProposal(r.pool.QueryRow(ctx, query, proposalID, sessionID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, r.reviewConflict(ctx, r.pool, userID, sessionID, proposalID)
		}
		return nil, err
	}
	return record, nil
}

// reviewConflict tells an unowned proposal apart from an already reviewed one
// after a guarded update matched nothing.
func (r *GenerationRepo) reviewConflict(ctx context.Context, q queryRower, userID uuid.UUID, sessionID, proposalID int64) error {
	var exists bool
	err := q.QueryRow(ctx, `SELECT EXISTS(
			SELECT 1 FROM generated_flashcards g
			JOIN ai_generation_sessions s ON s.id = g.session_id
			WHERE g.id = $1 AND g.session_id = $2 AND s.user_id = $3)`,
		proposalID, sessionID, userID,
	).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return ErrAlreadyReviewed
}
