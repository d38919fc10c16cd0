package chatview

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"script-backend/internal/models"
)

// NewChatID addresses a conversation that has not been persisted yet. The
// view mints a real id on the first send.
const NewChatID = "new"

// ChatAPI is the server surface the view talks to.
type ChatAPI interface {
	GetChat(ctx context.Context, chatID string) (*models.GetChatResponse, error)
	SendMessage(ctx context.Context, chatID, prompt string) (*models.SendMessageResponse, error)
}

// Notifier surfaces transient success/failure notices to the user.
type Notifier interface {
	Success(message string)
	Error(message string)
}

// View holds the state of one open conversation: the transcript, the pending
// input text, and the in-flight flag. The transcript it renders is either the
// server's authoritative sequence or that sequence plus one optimistic
// user/placeholder pair while a send is in flight.
type View struct {
	api      ChatAPI
	notify   Notifier
	navigate func(chatID string)

	mu       sync.Mutex
	chatID   string
	messages []models.ChatMessage
	input    string
	sending  bool
	epoch    uint64 // bumped by Open; stale fetch/send results are discarded
}

// NewView creates a view for the given conversation id ("" or "new" starts a
// fresh conversation). navigate is invoked with the confirmed id when a send
// persists a new conversation; notify and navigate may be nil.
func NewView(api ChatAPI, chatID string, notify Notifier, navigate func(chatID string)) *View {
	v := &View{
		api:      api,
		notify:   notify,
		navigate: navigate,
	}
	v.Open(chatID)
	return v
}

// Open switches the view to another conversation. The transcript resets and
// any in-flight fetch or send result for the previous conversation will be
// discarded when it lands.
func (v *View) Open(chatID string) {
	if strings.TrimSpace(chatID) == "" {
		chatID = NewChatID
	}
	v.mu.Lock()
	v.chatID = chatID
	v.messages = nil
	v.sending = false
	v.epoch++
	v.mu.Unlock()
}

func (v *View) ChatID() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.chatID
}

// Messages returns a copy of the currently rendered transcript. An assistant
// turn with empty content is the pending placeholder and renders as a
// "thinking" indicator, not as an empty message.
func (v *View) Messages() []models.ChatMessage {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]models.ChatMessage, len(v.messages))
	copy(out, v.messages)
	return out
}

func (v *View) Input() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.input
}

func (v *View) SetInput(text string) {
	v.mu.Lock()
	v.input = text
	v.mu.Unlock()
}

// Sending reports whether an append is in flight; the input control is
// disabled while it is.
func (v *View) Sending() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.sending
}

// Refresh loads the transcript from the server. Safe to race with navigation:
// a result arriving after the view moved to another conversation is dropped.
func (v *View) Refresh(ctx context.Context) error {
	v.mu.Lock()
	chatID := v.chatID
	epoch := v.epoch
	v.mu.Unlock()

	if chatID == NewChatID {
		return nil
	}

	resp, err := v.api.GetChat(ctx, chatID)

	v.mu.Lock()
	if v.epoch != epoch {
		v.mu.Unlock()
		return nil
	}
	if err != nil {
		v.mu.Unlock()
		v.notifyError("Failed to load chat history")
		return err
	}
	v.messages = resp.Messages
	v.mu.Unlock()
	return nil
}

// Send submits the pending input. Empty input and overlapping sends are
// no-ops. The user turn and an empty assistant placeholder are appended and
// the input cleared before the request; on success the local transcript is
// replaced wholesale by the server's, on failure the placeholder pair is
// removed. The cleared input is not restored on failure.
func (v *View) Send(ctx context.Context) error {
	v.mu.Lock()
	prompt := strings.TrimSpace(v.input)
	if prompt == "" || v.sending {
		v.mu.Unlock()
		return nil
	}

	wasNew := v.chatID == NewChatID
	targetID := v.chatID
	if wasNew {
		targetID = uuid.NewString()
	}
	epoch := v.epoch

	v.messages = append(v.messages,
		models.ChatMessage{Role: models.RoleUser, Content: prompt},
		models.ChatMessage{Role: models.RoleAssistant, Content: ""},
	)
	v.input = ""
	v.sending = true
	v.mu.Unlock()

	resp, err := v.api.SendMessage(ctx, targetID, prompt)

	v.mu.Lock()
	if v.epoch != epoch {
		// The view moved to another conversation mid-send; Open already
		// reset the transcript, so there is nothing to reconcile or roll back.
		v.mu.Unlock()
		return err
	}
	v.sending = false

	if err != nil {
		if len(v.messages) >= 2 {
			v.messages = v.messages[:len(v.messages)-2]
		}
		v.mu.Unlock()
		v.notifyError(sendErrorMessage(err))
		return err
	}

	if resp.Chat != nil {
		v.messages = resp.Chat.Messages
	}
	if wasNew {
		v.chatID = resp.ChatID
	}
	v.mu.Unlock()

	if wasNew {
		if v.navigate != nil {
			v.navigate(resp.ChatID)
		}
		v.notifySuccess("Chat created successfully")
	}
	return nil
}

func sendErrorMessage(err error) string {
	if apiErr, ok := err.(*APIError); ok {
		return apiErr.Message
	}
	return "Network error. Please check your connection and try again."
}

func (v *View) notifySuccess(message string) {
	if v.notify != nil {
		v.notify.Success(message)
	}
}

func (v *View) notifyError(message string) {
	if v.notify != nil {
		v.notify.Error(message)
	}
}
