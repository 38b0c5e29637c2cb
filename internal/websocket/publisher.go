package websocket

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"tenxcards-backend/internal/models"
)

// Channel is the Redis pub/sub channel carrying a user's realtime events.
func Channel(userID uuid.UUID) string {
	return "user_updates:" + userID.String()
}

// RedisPublisher publishes events for whichever server instance holds the
// user's websocket.
type RedisPublisher struct {
	client *redis.Client
	log    *zap.Logger
}

func NewRedisPublisher(client *redis.Client, log *zap.Logger) *RedisPublisher {
	return &RedisPublisher{client: client, log: log}
}

func (p *RedisPublisher) Publish(ctx context.Context, userID uuid.UUID, msg models.WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		p.log.Error("failed to encode event", zap.String("type", msg.Type), zap.Error(err))
		return
	}
	if err := p.client.Publish(ctx, Channel(userID), data).Err(); err != nil {
		p.log.Warn("failed to publish event",
			zap.String("type", msg.Type),
			zap.String("user_id", userID.String()),
			zap.Error(err))
	}
}
