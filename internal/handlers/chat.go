package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"script-backend/internal/middleware"
	"script-backend/internal/models"
)

type chatStore interface {
	GetByChatID(ctx context.Context, userID uuid.UUID, chatID string) (*models.Chat, error)
	Insert(ctx context.Context, c *models.Chat) error
	UpdateMessages(ctx context.Context, userID uuid.UUID, chatID string, messages []models.ChatMessage) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Chat, error)
	DeleteByChatIDs(ctx context.Context, userID uuid.UUID, chatIDs []string) ([]string, error)
}

type responseGenerator interface {
	GenerateChatResponse(ctx context.Context, prompt string, history []models.ChatMessage) (string, error)
}

type updatePublisher interface {
	PublishChatUpdate(ctx context.Context, userID uuid.UUID, msg models.WSMessage)
}

type ChatHandler struct {
	store     chatStore
	generator responseGenerator
	events    updatePublisher
}

func NewChatHandler(store chatStore, generator responseGenerator, events updatePublisher) *ChatHandler {
	return &ChatHandler{
		store:     store,
		generator: generator,
		events:    events,
	}
}

// GetChat returns the full transcript for one conversation. An id the owner
// has never written to yields an empty transcript, not an error: the client
// names a conversation before its first successful append.
func (h *ChatHandler) GetChat(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		writeJSON(w, http.StatusUnauthorized, errorResp("Unauthorized"))
		return
	}

	chatID := r.URL.Query().Get("chat_id")
	if chatID == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("chat_id is required"))
		return
	}

	chat, err := h.store.GetByChatID(r.Context(), userID, chatID)
	if err != nil {
		log.Printf("failed to load chat %s: %v", chatID, err)
		writeJSON(w, http.StatusInternalServerError, errorResp("Failed to load chat"))
		return
	}

	resp := models.GetChatResponse{ChatID: chatID, Messages: []models.ChatMessage{}}
	if chat != nil {
		resp.ChatID = chat.ChatID
		resp.Messages = chat.Messages
	}
	writeJSON(w, http.StatusOK, resp)
}

// SendMessage appends a user turn, generates the assistant turn, and persists
// both as one pair. The store is never touched before generation succeeds, so
// a generation failure leaves the conversation exactly as it was.
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		writeJSON(w, http.StatusUnauthorized, errorResp("Unauthorized"))
		return
	}

	var req models.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("Invalid request body"))
		return
	}

	chatID := strings.TrimSpace(req.ChatID)
	if chatID == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("chat_id is required"))
		return
	}
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("prompt is required"))
		return
	}

	// Not-found signals "create", not a failure.
	existing, err := h.store.GetByChatID(r.Context(), userID, chatID)
	if err != nil {
		log.Printf("failed to load chat %s: %v", chatID, err)
		writeJSON(w, http.StatusInternalServerError, errorResp("Failed to load chat"))
		return
	}

	var history []models.ChatMessage
	if existing != nil {
		history = existing.Messages
	}

	reply, err := h.generator.GenerateChatResponse(r.Context(), prompt, history)
	if err != nil {
		log.Printf("failed to generate response for chat %s: %v", chatID, err)
		writeJSON(w, http.StatusInternalServerError, errorResp("Failed to generate response"))
		return
	}

	newMessages := []models.ChatMessage{
		{Role: models.RoleUser, Content: prompt},
		{Role: models.RoleAssistant, Content: reply},
	}

	var chat *models.Chat
	if existing != nil {
		updated := append(existing.Messages, newMessages...)
		if err := h.store.UpdateMessages(r.Context(), userID, chatID, updated); err != nil {
			log.Printf("failed to update chat %s: %v", chatID, err)
			writeJSON(w, http.StatusInternalServerError, errorResp("Failed to save chat"))
			return
		}
		existing.Messages = updated
		chat = existing
	} else {
		chat = &models.Chat{
			UserID:   userID,
			ChatID:   chatID,
			Messages: newMessages,
		}
		if err := h.store.Insert(r.Context(), chat); err != nil {
			log.Printf("failed to create chat %s: %v", chatID, err)
			writeJSON(w, http.StatusInternalServerError, errorResp("Failed to save chat"))
			return
		}
		// A new conversation changes the history list of every open view.
		h.publishHistoryUpdate(r.Context(), userID)
	}

	writeJSON(w, http.StatusOK, models.SendMessageResponse{
		ChatID: chat.ChatID,
		Prompt: prompt,
		Chat:   chat,
	})
}

func (h *ChatHandler) publishHistoryUpdate(ctx context.Context, userID uuid.UUID) {
	if h.events == nil {
		return
	}
	h.events.PublishChatUpdate(ctx, userID, models.WSMessage{Type: "history_update"})
}

// Shared helpers

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func errorResp(message string) models.ErrorResponse {
	return models.ErrorResponse{Error: message}
}
