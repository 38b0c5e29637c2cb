package services

import (
	"context"

	"github.com/google/uuid"

	"tenxcards-backend/internal/models"
)

// EventPublisher pushes realtime updates to a user's open connections.
// Delivery is best effort.
type EventPublisher interface {
	Publish(ctx context.Context, userID uuid.UUID, msg models.WSMessage)
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, uuid.UUID, models.WSMessage) {}

// NopPublisher drops every event.
var NopPublisher EventPublisher = nopPublisher{}
