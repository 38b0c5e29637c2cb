package middleware

import (
	"context"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type UserUpserter interface {
	Upsert(ctx context.Context, id uuid.UUID, email string) error
}

// UserSync makes sure every authenticated caller has a local users row.
// Ids already synced by this process are skipped.
type UserSync struct {
	users UserUpserter
	log   *zap.Logger
	known sync.Map
}

func NewUserSync(users UserUpserter, log *zap.Logger) *UserSync {
	return &UserSync{users: users, log: log}
}

func (s *UserSync) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := GetUserID(r.Context())
		if userID == uuid.Nil {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing user identity", r)
			return
		}

		if _, ok := s.known.Load(userID); !ok {
			if err := s.users.Upsert(r.Context(), userID, GetEmail(r.Context())); err != nil {
				s.log.Error("user sync failed", zap.String("user_id", userID.String()), zap.Error(err))
				writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", r)
				return
			}
			s.known.Store(userID, struct{}{})
		}

		next.ServeHTTP(w, r)
	})
}
