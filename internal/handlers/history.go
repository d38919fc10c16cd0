package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"script-backend/internal/middleware"
	"script-backend/internal/models"
)

const (
	titleMaxLen       = 50
	descriptionMaxLen = 100
	defaultTitle      = "New Project"
	defaultDesc       = "..."
)

type HistoryHandler struct {
	store  chatStore
	events updatePublisher
}

func NewHistoryHandler(store chatStore, events updatePublisher) *HistoryHandler {
	return &HistoryHandler{store: store, events: events}
}

// List returns the owner's conversations, newest first, projected to summary
// entries. Conversations without turns are filtered out; turns are only ever
// written in pairs, so an empty one should not exist, let alone be listed.
func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		writeJSON(w, http.StatusUnauthorized, errorResp("Unauthorized"))
		return
	}

	chats, err := h.store.ListByUser(r.Context(), userID)
	if err != nil {
		log.Printf("failed to list chats for user %s: %v", userID, err)
		writeJSON(w, http.StatusInternalServerError, errorResp("Failed to load chat history"))
		return
	}

	entries := []models.HistoryEntry{}
	for _, chat := range chats {
		if len(chat.Messages) == 0 {
			continue
		}
		entries = append(entries, historyEntryFromChat(chat))
	}

	writeJSON(w, http.StatusOK, models.HistoryResponse{Chats: entries})
}

// Delete removes the given conversations for the authenticated owner. Ids
// belonging to other owners are excluded by the store query, never deleted.
func (h *HistoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var req models.DeleteChatsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("chatIds array is required"))
		return
	}

	chatIDs := normalizeChatIDs(req.ChatIDs)
	if len(chatIDs) == 0 {
		writeJSON(w, http.StatusBadRequest, errorResp("chatIds array is required"))
		return
	}

	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		writeJSON(w, http.StatusUnauthorized, errorResp("Unauthorized"))
		return
	}

	deleted, err := h.store.DeleteByChatIDs(r.Context(), userID, chatIDs)
	if err != nil {
		log.Printf("failed to delete chats for user %s: %v", userID, err)
		writeJSON(w, http.StatusInternalServerError, errorResp("Failed to delete chats"))
		return
	}

	// A full miss is reported as an error; a partial miss is a success with
	// the matched subset.
	if len(deleted) == 0 {
		writeJSON(w, http.StatusNotFound, errorResp("No chats found to delete"))
		return
	}

	if h.events != nil {
		h.events.PublishChatUpdate(r.Context(), userID, models.WSMessage{Type: "history_update"})
	}

	writeJSON(w, http.StatusOK, models.DeleteChatsResponse{
		Success:        true,
		DeletedCount:   len(deleted),
		DeletedChatIDs: deleted,
	})
}

// normalizeChatIDs trims entries, drops blanks, and deduplicates while
// preserving order.
func normalizeChatIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func historyEntryFromChat(chat *models.Chat) models.HistoryEntry {
	firstUser := firstByRole(chat.Messages, models.RoleUser)
	firstAssistant := firstByRole(chat.Messages, models.RoleAssistant)

	title := defaultTitle
	if firstUser != "" {
		title = truncate(firstUser, titleMaxLen)
	}

	description := defaultDesc
	if firstAssistant != "" {
		description = truncate(firstAssistant, descriptionMaxLen)
	} else if firstUser != "" {
		description = truncate(firstUser, descriptionMaxLen)
	}

	return models.HistoryEntry{
		ID:          chat.ChatID,
		Title:       title,
		Description: description,
		CreatedAt:   chat.CreatedAt,
	}
}

func firstByRole(messages []models.ChatMessage, role string) string {
	for _, msg := range messages {
		if msg.Role == role {
			return msg.Content
		}
	}
	return ""
}

// truncate cuts text to max runes and appends an ellipsis when it was longer.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
