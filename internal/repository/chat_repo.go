package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"script-backend/internal/models"
)

type ChatRepo struct {
	pool *pgxpool.Pool
}

func NewChatRepo(pool *pgxpool.Pool) *ChatRepo {
	return &ChatRepo{pool: pool}
}

// GetByChatID looks up one conversation for (chatID, owner). A missing row is
// returned as (nil, nil): absence is a normal outcome for callers, not a fault.
func (r *ChatRepo) GetByChatID(ctx context.Context, userID uuid.UUID, chatID string) (*models.Chat, error) {
	c := &models.Chat{}
	var msgBytes []byte

	query := `SELECT id, user_id, chat_id, messages, created_at
		FROM chats WHERE chat_id = $1 AND user_id = $2`

	err := r.pool.QueryRow(ctx, query, chatID, userID).Scan(
		&c.ID, &c.UserID, &c.ChatID, &msgBytes, &c.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(msgBytes, &c.Messages); err != nil {
		return nil, fmt.Errorf("failed to decode messages for chat %s: %w", chatID, err)
	}
	return c, nil
}

func (r *ChatRepo) Insert(ctx context.Context, c *models.Chat) error {
	c.ID = uuid.New()
	msgBytes, err := json.Marshal(c.Messages)
	if err != nil {
		return fmt.Errorf("failed to encode messages: %w", err)
	}

	query := `INSERT INTO chats (id, user_id, chat_id, messages)
		VALUES ($1, $2, $3, $4) RETURNING created_at`

	return r.pool.QueryRow(ctx, query,
		c.ID, c.UserID, c.ChatID, msgBytes,
	).Scan(&c.CreatedAt)
}

// UpdateMessages replaces the stored transcript. Turns are append-only, so
// callers always pass the prior sequence plus the new pair.
func (r *ChatRepo) UpdateMessages(ctx context.Context, userID uuid.UUID, chatID string, messages []models.ChatMessage) error {
	msgBytes, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("failed to encode messages: %w", err)
	}

	_, err = r.pool.Exec(ctx,
		"UPDATE chats SET messages = $1 WHERE chat_id = $2 AND user_id = $3",
		msgBytes, chatID, userID,
	)
	return err
}

func (r *ChatRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Chat, error) {
	query := `SELECT id, user_id, chat_id, messages, created_at
		FROM chats WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chats []*models.Chat
	for rows.Next() {
		c := &models.Chat{}
		var msgBytes []byte
		if err := rows.Scan(&c.ID, &c.UserID, &c.ChatID, &msgBytes, &c.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(msgBytes, &c.Messages); err != nil {
			return nil, fmt.Errorf("failed to decode messages for chat %s: %w", c.ChatID, err)
		}
		chats = append(chats, c)
	}

	return chats, rows.Err()
}

// DeleteByChatIDs removes the given conversations and reports which chat ids
// were actually deleted. Rows are matched on both id and owner, so foreign ids
// are silently excluded rather than erroring.
func (r *ChatRepo) DeleteByChatIDs(ctx context.Context, userID uuid.UUID, chatIDs []string) ([]string, error) {
	placeholders := make([]string, len(chatIDs))
	args := []interface{}{userID}
	for i, id := range chatIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+2)
		args = append(args, id)
	}

	query := fmt.Sprintf(
		"DELETE FROM chats WHERE user_id = $1 AND chat_id IN (%s) RETURNING chat_id",
		strings.Join(placeholders, ","))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deleted []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		deleted = append(deleted, id)
	}

	return deleted, rows.Err()
}
