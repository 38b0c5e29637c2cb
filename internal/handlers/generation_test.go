package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"tenxcards-backend/internal/middleware"
	"tenxcards-backend/internal/models"
	"tenxcards-backend/internal/services"
)

type stubGenerationService struct {
	result    *services.GenerationResult
	review    *models.SessionReview
	err       error
	lastUser  uuid.UUID
	lastInput string
}

func (s *stubGenerationService) Generate(ctx context.Context, userID uuid.UUID, inputText string) (*services.GenerationResult, error) {
	s.lastUser = userID
	s.lastInput = inputText
	return s.result, s.err
}

func (s *stubGenerationService) GetSession(ctx context.Context, userID uuid.UUID, sessionID int64) (*models.SessionReview, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.review, nil
}

func (s *stubGenerationService) ListSessions(ctx context.Context, userID uuid.UUID, page, pageSize int) (*models.SessionPage, error) {
	return &models.SessionPage{Page: page, PageSize: pageSize}, s.err
}

type stubReviewService struct {
	card         *models.Flashcard
	err          error
	gotSession   int64
	gotProposal  int64
	gotFront     string
	gotBack      string
	rejectCalled bool
}

func (s *stubReviewService) Accept(ctx context.Context, userID uuid.UUID, sessionID, proposalID int64, front, back string) (*models.Flashcard, error) {
	s.gotSession, s.gotProposal, s.gotFront, s.gotBack = sessionID, proposalID, front, back
	return s.card, s.err
}

func (s *stubReviewService) Reject(ctx context.Context, userID uuid.UUID, sessionID, proposalID int64) (*models.ProposalRecord, error) {
	s.rejectCalled = true
	s.gotSession, s.gotProposal = sessionID, proposalID
	if s.err != nil {
		return nil, s.err
	}
	now := time.Now()
	return &models.ProposalRecord{ID: proposalID, SessionID: sessionID, ReviewedAt: &now}, nil
}

func newRequest(method, target, body string, userID uuid.UUID, params map[string]string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	req = req.WithContext(context.WithValue(req.Context(), middleware.UserIDKey, userID))
	return req
}

func TestGenerationHandler_GenerateSuccess(t *testing.T) {
	gen := &stubGenerationService{result: &services.GenerationResult{
		SessionID: 12,
		Proposals: []*models.ProposalRecord{
			{ID: 1, SessionID: 12, OriginalFront: "Capital of France?", OriginalBack: "Paris"},
			{ID: 2, SessionID: 12, OriginalFront: "Capital of Spain?", OriginalBack: "Madrid"},
		},
	}}
	h := &GenerationHandler{generations: gen}
	userID := uuid.New()

	rr := httptest.NewRecorder()
	h.Generate(rr, newRequest(http.MethodPost, "/api/v1/generations", `{"input_text":"Geography notes."}`, userID, nil))

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d", http.StatusCreated, rr.Code)
	}
	if gen.lastUser != userID || gen.lastInput != "Geography notes." {
		t.Fatalf("unexpected call: user=%s input=%q", gen.lastUser, gen.lastInput)
	}

	var payload struct {
		SessionID           int64                      `json:"session_id"`
		GeneratedCount      int                        `json:"generated_count"`
		GeneratedFlashcards []models.ProposalCandidate `json:"generated_flashcards"`
		ProposalIDs         []int64                    `json:"proposal_ids"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if payload.SessionID != 12 || payload.GeneratedCount != 2 || len(payload.GeneratedFlashcards) != 2 {
		t.Fatalf("unexpected payload %+v", payload)
	}
	if payload.GeneratedFlashcards[1].Back != "Madrid" || payload.ProposalIDs[1] != 2 {
		t.Fatalf("unexpected proposal mapping %+v", payload)
	}
}

func TestGenerationHandler_GenerateAcceptsEscapedInputAtLimit(t *testing.T) {
	gen := &stubGenerationService{result: &services.GenerationResult{SessionID: 3}}
	h := &GenerationHandler{generations: gen}

	body := `{"input_text":"` + strings.Repeat(`\ud83d\ude00`, 10000) + `"}`
	rr := httptest.NewRecorder()
	h.Generate(rr, newRequest(http.MethodPost, "/api/v1/generations", body, uuid.New(), nil))

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, rr.Code, rr.Body.String())
	}
	if n := utf8.RuneCountInString(gen.lastInput); n != 10000 {
		t.Fatalf("expected 10000 characters to reach the service, got %d", n)
	}
}

func TestGenerationHandler_GenerateRejectsOversizedBody(t *testing.T) {
	gen := &stubGenerationService{}
	h := &GenerationHandler{generations: gen}

	body := `{"input_text":"` + strings.Repeat("a", maxBodyBytes) + `"}`
	rr := httptest.NewRecorder()
	h.Generate(rr, newRequest(http.MethodPost, "/api/v1/generations", body, uuid.New(), nil))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rr.Code)
	}
	if gen.lastInput != "" {
		t.Fatal("expected the service not to be called")
	}
}

func TestGenerationHandler_GenerateFailureShape(t *testing.T) {
	gen := &stubGenerationService{err: &services.GenerationFailedError{
		Code:      services.CodeTimeout,
		Message:   "text generation exceeded 30s",
		SessionID: 99,
	}}
	h := &GenerationHandler{generations: gen}

	rr := httptest.NewRecorder()
	h.Generate(rr, newRequest(http.MethodPost, "/api/v1/generations", `{"input_text":"notes"}`, uuid.New(), nil))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, rr.Code)
	}
	var payload map[string]interface{}
	json.NewDecoder(rr.Body).Decode(&payload)
	if payload["error"] != "generation_failed" {
		t.Fatalf("unexpected error field %v", payload["error"])
	}
	if payload["message"] != "Couldn't generate flashcards right now. Please try again." {
		t.Fatalf("unexpected message %v", payload["message"])
	}
	if payload["session_id"] != float64(99) {
		t.Fatalf("expected session id 99, got %v", payload["session_id"])
	}
	if strings.Contains(rr.Body.String(), "30s") {
		t.Fatal("internal detail leaked into response")
	}
}

func TestGenerationHandler_GenerateValidation(t *testing.T) {
	gen := &stubGenerationService{err: &services.ValidationError{Fields: map[string]string{"input_text": "This field may not be blank."}}}
	h := &GenerationHandler{generations: gen}

	rr := httptest.NewRecorder()
	h.Generate(rr, newRequest(http.MethodPost, "/api/v1/generations", `{"input_text":""}`, uuid.New(), nil))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rr.Code)
	}
	var payload models.ErrorResponse
	json.NewDecoder(rr.Body).Decode(&payload)
	if payload.Error.Fields["input_text"] == "" {
		t.Fatalf("expected input_text field error, got %+v", payload.Error)
	}
}

func TestGenerationHandler_GenerateBadBody(t *testing.T) {
	gen := &stubGenerationService{}
	h := &GenerationHandler{generations: gen}

	rr := httptest.NewRecorder()
	h.Generate(rr, newRequest(http.MethodPost, "/api/v1/generations", `{not json`, uuid.New(), nil))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rr.Code)
	}
	if gen.lastInput != "" || gen.lastUser != uuid.Nil {
		t.Fatal("service should not be called for malformed body")
	}
}

func TestGenerationHandler_AcceptPathForm(t *testing.T) {
	now := time.Now()
	reviews := &stubReviewService{card: &models.Flashcard{
		ID: 7, Front: "Capital of France?", Back: "Paris, France",
		CreationMethod: models.CreationAIEdited, CreatedAt: now, UpdatedAt: now,
	}}
	h := &GenerationHandler{reviews: reviews}

	req := newRequest(http.MethodPost, "/api/v1/generations/3/proposals/5/accept",
		`{"front":"Capital of France?","back":"Paris, France"}`, uuid.New(),
		map[string]string{"sessionID": "3", "proposalID": "5"})
	rr := httptest.NewRecorder()
	h.Accept(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d", http.StatusCreated, rr.Code)
	}
	if reviews.gotSession != 3 || reviews.gotProposal != 5 || reviews.gotBack != "Paris, France" {
		t.Fatalf("unexpected call %+v", reviews)
	}

	var payload map[string]interface{}
	json.NewDecoder(rr.Body).Decode(&payload)
	for _, key := range []string{"id", "front", "back", "creation_method", "created_at", "updated_at"} {
		if _, ok := payload[key]; !ok {
			t.Errorf("expected %q in response", key)
		}
	}
	if _, ok := payload["user_id"]; ok {
		t.Error("user_id must not be exposed")
	}
	if payload["creation_method"] != "ai_edited" {
		t.Fatalf("unexpected creation_method %v", payload["creation_method"])
	}
}

func TestGenerationHandler_AcceptDecisionBody(t *testing.T) {
	reviews := &stubReviewService{card: &models.Flashcard{ID: 1, CreationMethod: models.CreationAIFull}}
	h := &GenerationHandler{reviews: reviews}

	rr := httptest.NewRecorder()
	h.AcceptDecision(rr, newRequest(http.MethodPost, "/api/v1/generations/accept",
		`{"session_id":4,"proposal_id":8,"front":"Q?","back":"A"}`, uuid.New(), nil))

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d", http.StatusCreated, rr.Code)
	}
	if reviews.gotSession != 4 || reviews.gotProposal != 8 {
		t.Fatalf("unexpected ids %d/%d", reviews.gotSession, reviews.gotProposal)
	}

	rr = httptest.NewRecorder()
	h.AcceptDecision(rr, newRequest(http.MethodPost, "/api/v1/generations/accept", `{"front":"Q?","back":"A"}`, uuid.New(), nil))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d for missing ids, got %d", http.StatusBadRequest, rr.Code)
	}
}

func TestGenerationHandler_ReviewErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"not found", &services.NotFoundError{Message: "proposal not found"}, http.StatusNotFound},
		{"already reviewed", &services.ConflictError{Message: "proposal already reviewed"}, http.StatusConflict},
		{"validation", &services.ValidationError{Fields: map[string]string{"front": "blank"}}, http.StatusBadRequest},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := &GenerationHandler{reviews: &stubReviewService{err: tc.err}}
			params := map[string]string{"sessionID": "1", "proposalID": "2"}

			rr := httptest.NewRecorder()
			h.Accept(rr, newRequest(http.MethodPost, "/", `{"front":"Q","back":"A"}`, uuid.New(), params))
			if rr.Code != tc.wantStatus {
				t.Fatalf("accept: expected %d, got %d", tc.wantStatus, rr.Code)
			}

			rr = httptest.NewRecorder()
			h.Reject(rr, newRequest(http.MethodPost, "/", "", uuid.New(), params))
			if rr.Code != tc.wantStatus {
				t.Fatalf("reject: expected %d, got %d", tc.wantStatus, rr.Code)
			}
		})
	}
}

func TestGenerationHandler_MalformedIDIsNotFound(t *testing.T) {
	reviews := &stubReviewService{}
	h := &GenerationHandler{reviews: reviews}

	rr := httptest.NewRecorder()
	h.Reject(rr, newRequest(http.MethodPost, "/", "", uuid.New(), map[string]string{"sessionID": "abc", "proposalID": "2"}))

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, rr.Code)
	}
	if reviews.rejectCalled {
		t.Fatal("service should not be called for malformed id")
	}
}

func TestGenerationHandler_GetSession(t *testing.T) {
	rate := 0.5
	gen := &stubGenerationService{review: &models.SessionReview{
		Session:   &models.GenerationSession{ID: 3, Status: models.SessionCompleted},
		Proposals: []*models.ProposalRecord{},
		Stats:     models.SessionStats{Generated: 2, Accepted: 1, Rejected: 1, AcceptanceRate: &rate},
	}}
	h := &GenerationHandler{generations: gen}

	rr := httptest.NewRecorder()
	h.Get(rr, newRequest(http.MethodGet, "/api/v1/generations/3", "", uuid.New(), map[string]string{"sessionID": "3"}))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	var payload struct {
		Stats models.SessionStats `json:"stats"`
	}
	json.NewDecoder(rr.Body).Decode(&payload)
	if payload.Stats.AcceptanceRate == nil || *payload.Stats.AcceptanceRate != 0.5 {
		t.Fatalf("unexpected stats %+v", payload.Stats)
	}
}
