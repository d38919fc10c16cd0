package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"script-backend/internal/models"
)

// EventPublisher fans per-user updates out over Redis pub/sub; the WebSocket
// hub forwards them to that user's open sockets. Best effort only.
type EventPublisher struct {
	redis *redis.Client
}

func NewEventPublisher(redisClient *redis.Client) *EventPublisher {
	return &EventPublisher{redis: redisClient}
}

// UserChannel names the pub/sub channel carrying one user's updates.
func UserChannel(userID uuid.UUID) string {
	return fmt.Sprintf("chat_updates:%s", userID.String())
}

func (p *EventPublisher) PublishChatUpdate(ctx context.Context, userID uuid.UUID, msg models.WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	if err := p.redis.Publish(ctx, UserChannel(userID), string(data)).Err(); err != nil {
		log.Printf("failed to publish chat update for user %s: %v", userID, err)
	}
}
