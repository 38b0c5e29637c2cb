package repository

import (
	"errors"

	"github.com/jackc/pgx/v5"
)

var (
	// ErrNotFound is returned when a row does not exist or is not owned by the caller.
	ErrNotFound = errors.New("record not found")
	// ErrSessionNotPending is returned when finalizing a session that already left pending.
	ErrSessionNotPending = errors.New("generation session is not pending")
	// ErrAlreadyReviewed is returned when a proposal already carries a review decision.
	ErrAlreadyReviewed = errors.New("proposal already reviewed")
)

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
