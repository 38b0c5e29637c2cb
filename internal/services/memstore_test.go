package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tenxcards-backend/internal/models"
	"tenxcards-backend/internal/repository"
)

// memStore is an in-memory stand-in for the pgx repositories.
type memStore struct {
	mu        sync.Mutex
	nextID    int64
	sessions  map[int64]*models.GenerationSession
	proposals map[int64]*models.ProposalRecord
	cards     map[int64]*models.Flashcard

	insertErr error

	// finalizeFailures makes the next n FinalizeSession calls return errBoom.
	finalizeFailures int
	finalizeCalls    int
	createCalls      int
}

func newMemStore() *memStore {
	return &memStore{
		sessions:  map[int64]*models.GenerationSession{},
		proposals: map[int64]*models.ProposalRecord{},
		cards:     map[int64]*models.Flashcard{},
	}
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memStore) CreateSession(ctx context.Context, s *models.GenerationSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++
	s.ID = m.id()
	s.CreatedAt = time.Now()
	cp := *s
	m.sessions[s.ID] = &cp
	return nil
}

func (m *memStore) FinalizeSession(ctx context.Context, sessionID int64, out repository.SessionOutcome) (models.SessionStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finalizeCalls++
	if m.finalizeFailures > 0 {
		m.finalizeFailures--
		return "", errBoom
	}
	s, ok := m.sessions[sessionID]
	if !ok {
		return "", repository.ErrNotFound
	}
	if s.Status != models.SessionPending {
		return s.Status, repository.ErrSessionNotPending
	}
	s.Status = out.Status
	s.GeneratedCount = out.GeneratedCount
	s.ErrorCode = out.ErrorCode
	s.ErrorMessage = out.ErrorMessage
	latency := out.LatencyMs
	s.APIResponseTimeMs = &latency
	return s.Status, nil
}

func (m *memStore) GetSession(ctx context.Context, userID uuid.UUID, sessionID int64) (*models.GenerationSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok || s.UserID != userID {
		return nil, repository.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memStore) ListSessions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.GenerationSession, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []*models.GenerationSession
	for _, s := range m.sessions {
		if s.UserID == userID {
			cp := *s
			all = append(all, &cp)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	return page(all, limit, offset), len(all), nil
}

func (m *memStore) InsertProposals(ctx context.Context, sessionID int64, candidates []models.ProposalCandidate) ([]*models.ProposalRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return nil, m.insertErr
	}
	out := make([]*models.ProposalRecord, 0, len(candidates))
	for _, c := range candidates {
		p := &models.ProposalRecord{ID: m.id(), SessionID: sessionID, OriginalFront: c.Front, OriginalBack: c.Back}
		m.proposals[p.ID] = p
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memStore) ListProposals(ctx context.Context, sessionID int64) ([]*models.ProposalRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.ProposalRecord
	for _, p := range m.proposals {
		if p.SessionID == sessionID {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) ownedProposal(userID uuid.UUID, sessionID, proposalID int64) (*models.ProposalRecord, bool) {
	p, ok := m.proposals[proposalID]
	if !ok || p.SessionID != sessionID {
		return nil, false
	}
	s, ok := m.sessions[sessionID]
	if !ok || s.UserID != userID {
		return nil, false
	}
	return p, true
}

func (m *memStore) GetProposal(ctx context.Context, userID uuid.UUID, sessionID, proposalID int64) (*models.ProposalRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.ownedProposal(userID, sessionID, proposalID)
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) AcceptProposal(ctx context.Context, a repository.AcceptParams) (*models.ProposalRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.ownedProposal(a.UserID, a.SessionID, a.ProposalID)
	if !ok {
		return nil, repository.ErrNotFound
	}
	if p.ReviewedAt != nil {
		return nil, repository.ErrAlreadyReviewed
	}
	now := time.Now()
	p.WasAccepted = true
	p.EditedFront = a.EditedFront
	p.EditedBack = a.EditedBack
	p.ReviewedAt = &now

	a.Card.ID = m.id()
	a.Card.CreatedAt = now
	a.Card.UpdatedAt = now
	cp := *a.Card
	m.cards[cp.ID] = &cp

	rec := *p
	return &rec, nil
}

func (m *memStore) RejectProposal(ctx context.Context, userID uuid.UUID, sessionID, proposalID int64) (*models.ProposalRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.ownedProposal(userID, sessionID, proposalID)
	if !ok {
		return nil, repository.ErrNotFound
	}
	if p.ReviewedAt != nil {
		return nil, repository.ErrAlreadyReviewed
	}
	now := time.Now()
	p.ReviewedAt = &now
	rec := *p
	return &rec, nil
}

func (m *memStore) Create(ctx context.Context, f *models.Flashcard) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	f.ID = m.id()
	f.CreatedAt = now
	f.UpdatedAt = now
	cp := *f
	m.cards[f.ID] = &cp
	return nil
}

func (m *memStore) GetByID(ctx context.Context, userID uuid.UUID, id int64) (*models.Flashcard, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.cards[id]
	if !ok || f.UserID != userID {
		return nil, repository.ErrNotFound
	}
	cp := *f
	return &cp, nil
}

func (m *memStore) Update(ctx context.Context, f *models.Flashcard) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.cards[f.ID]
	if !ok || cur.UserID != f.UserID {
		return repository.ErrNotFound
	}
	f.UpdatedAt = time.Now()
	cp := *f
	m.cards[f.ID] = &cp
	return nil
}

func (m *memStore) Delete(ctx context.Context, userID uuid.UUID, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.cards[id]
	if !ok || f.UserID != userID {
		return repository.ErrNotFound
	}
	delete(m.cards, id)
	return nil
}

func (m *memStore) ListByUser(ctx context.Context, userID uuid.UUID, sortKey string, limit, offset int) ([]*models.Flashcard, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []*models.Flashcard
	for _, f := range m.cards {
		if f.UserID == userID {
			cp := *f
			all = append(all, &cp)
		}
	}
	asc := sortKey == "created_at" || sortKey == "updated_at"
	sort.Slice(all, func(i, j int) bool {
		if asc {
			return all[i].ID < all[j].ID
		}
		return all[i].ID > all[j].ID
	})
	return page(all, limit, offset), len(all), nil
}

func page[T any](all []T, limit, offset int) []T {
	if offset >= len(all) {
		return []T{}
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end]
}

func (m *memStore) session(id int64) *models.GenerationSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[id]
}

var errBoom = errors.New("boom")

// recordingPublisher captures published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []models.WSMessage
}

func (p *recordingPublisher) Publish(ctx context.Context, userID uuid.UUID, msg models.WSMessage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, msg)
}

func testLogger() *zap.Logger { return zap.NewNop() }
