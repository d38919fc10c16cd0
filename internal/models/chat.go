package models

import (
	"time"

	"github.com/google/uuid"
)

// Roles a message can carry. Transcripts always alternate user → assistant.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage represents a single turn in a conversation.
type ChatMessage struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// Chat is one persisted conversation: an owner-scoped, ordered transcript
// addressed by a client-generated opaque chat_id.
type Chat struct {
	ID        uuid.UUID     `json:"-"`
	UserID    uuid.UUID     `json:"-"`
	ChatID    string        `json:"chat_id"`
	Messages  []ChatMessage `json:"messages"`
	CreatedAt time.Time     `json:"created_at"`
}

// HistoryEntry is the derived list projection of a chat. Computed per request,
// never stored.
type HistoryEntry struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// SendMessageRequest is the payload for appending a turn pair.
type SendMessageRequest struct {
	ChatID string `json:"chat_id"`
	Prompt string `json:"prompt"`
}

// SendMessageResponse echoes the prompt and returns the authoritative
// transcript after the append. Clients replace local state with Chat wholesale.
type SendMessageResponse struct {
	ChatID string `json:"chat_id"`
	Prompt string `json:"prompt"`
	Chat   *Chat  `json:"chat"`
}

// GetChatResponse is the read-side shape. A missing conversation is returned
// as an empty Messages slice, not an error.
type GetChatResponse struct {
	ChatID   string        `json:"chat_id"`
	Messages []ChatMessage `json:"messages"`
}

// HistoryResponse wraps the derived history list.
type HistoryResponse struct {
	Chats []HistoryEntry `json:"chats"`
}

// DeleteChatsRequest is the bulk-delete payload.
type DeleteChatsRequest struct {
	ChatIDs []string `json:"chatIds"`
}

// DeleteChatsResponse reports which of the requested ids were actually
// deleted; ids not owned by the caller are silently excluded.
type DeleteChatsResponse struct {
	Success        bool     `json:"success"`
	DeletedCount   int      `json:"deletedCount"`
	DeletedChatIDs []string `json:"deletedChatIds"`
}

// ErrorResponse is the error envelope for every non-2xx API response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// WSMessage is a per-user update pushed over Redis pub/sub and WebSocket.
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}
