package chatview

import (
	"context"
	"errors"
	"testing"

	"script-backend/internal/models"
)

type stubAPI struct {
	chats    map[string][]models.ChatMessage
	getErr   error
	getHook  func(chatID string)
	getCalls int

	sendFn    func(chatID, prompt string) (*models.SendMessageResponse, error)
	sendHook  func()
	sendCalls int
}

func (s *stubAPI) GetChat(_ context.Context, chatID string) (*models.GetChatResponse, error) {
	s.getCalls++
	if s.getHook != nil {
		s.getHook(chatID)
	}
	if s.getErr != nil {
		return nil, s.getErr
	}
	return &models.GetChatResponse{ChatID: chatID, Messages: s.chats[chatID]}, nil
}

func (s *stubAPI) SendMessage(_ context.Context, chatID, prompt string) (*models.SendMessageResponse, error) {
	s.sendCalls++
	if s.sendHook != nil {
		s.sendHook()
	}
	if s.sendFn != nil {
		return s.sendFn(chatID, prompt)
	}
	return nil, errors.New("sendFn not configured")
}

func echoSend(reply string) func(chatID, prompt string) (*models.SendMessageResponse, error) {
	return func(chatID, prompt string) (*models.SendMessageResponse, error) {
		return &models.SendMessageResponse{
			ChatID: chatID,
			Prompt: prompt,
			Chat: &models.Chat{
				ChatID: chatID,
				Messages: []models.ChatMessage{
					{Role: models.RoleUser, Content: prompt},
					{Role: models.RoleAssistant, Content: reply},
				},
			},
		}, nil
	}
}

type stubNotifier struct {
	successes []string
	errors    []string
}

func (n *stubNotifier) Success(message string) { n.successes = append(n.successes, message) }
func (n *stubNotifier) Error(message string)   { n.errors = append(n.errors, message) }

func messageContents(messages []models.ChatMessage) []string {
	out := make([]string, len(messages))
	for i, m := range messages {
		out[i] = m.Content
	}
	return out
}

func TestView_SendIgnoresEmptyInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"whitespace only", "   \t\n"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			api := &stubAPI{}
			v := NewView(api, "c1", nil, nil)
			v.SetInput(tc.input)

			if err := v.Send(context.Background()); err != nil {
				t.Fatalf("Send returned error: %v", err)
			}
			if api.sendCalls != 0 {
				t.Error("No request must be issued for empty input")
			}
			if len(v.Messages()) != 0 {
				t.Error("No placeholder turns must be appended for empty input")
			}
		})
	}
}

func TestView_SendSerializedPerView(t *testing.T) {
	api := &stubAPI{}
	var v *View
	api.sendFn = echoSend("reply")
	api.sendHook = func() {
		// A second send issued while the first is in flight must be a no-op.
		v.SetInput("second")
		if err := v.Send(context.Background()); err != nil {
			t.Errorf("Nested send returned error: %v", err)
		}
	}
	v = NewView(api, "c1", nil, nil)
	v.SetInput("first")

	if err := v.Send(context.Background()); err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
	if api.sendCalls != 1 {
		t.Errorf("Expected exactly one in-flight send, got %d", api.sendCalls)
	}
}

func TestView_OptimisticAppendThenClearInput(t *testing.T) {
	api := &stubAPI{}
	var v *View
	api.sendFn = echoSend("reply")
	api.sendHook = func() {
		// Mid-flight: the optimistic pair is visible, input is already
		// cleared, and the view reports sending.
		msgs := v.Messages()
		if len(msgs) != 2 {
			t.Fatalf("Expected 2 optimistic turns mid-flight, got %d", len(msgs))
		}
		if msgs[0].Role != models.RoleUser || msgs[0].Content != "hello" {
			t.Errorf("Unexpected optimistic user turn: %+v", msgs[0])
		}
		if msgs[1].Role != models.RoleAssistant || msgs[1].Content != "" {
			t.Errorf("Expected empty assistant placeholder, got %+v", msgs[1])
		}
		if v.Input() != "" {
			t.Error("Input must be cleared before the request resolves")
		}
		if !v.Sending() {
			t.Error("View must report sending while the request is in flight")
		}
	}
	v = NewView(api, "c1", nil, nil)
	v.SetInput("  hello  ")

	if err := v.Send(context.Background()); err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
	if v.Sending() {
		t.Error("Sending flag must clear once the request resolves")
	}
}

func TestView_ReconciliationReplacesWholesale(t *testing.T) {
	api := &stubAPI{
		chats: map[string][]models.ChatMessage{
			"c1": {
				{Role: models.RoleUser, Content: "old-q"},
				{Role: models.RoleAssistant, Content: "old-a"},
			},
		},
	}
	authoritative := []models.ChatMessage{
		{Role: models.RoleUser, Content: "t1"},
		{Role: models.RoleAssistant, Content: "t2"},
		{Role: models.RoleUser, Content: "t3"},
		{Role: models.RoleAssistant, Content: "t4"},
	}
	api.sendFn = func(chatID, prompt string) (*models.SendMessageResponse, error) {
		return &models.SendMessageResponse{
			ChatID: chatID,
			Prompt: prompt,
			Chat:   &models.Chat{ChatID: chatID, Messages: authoritative},
		}, nil
	}

	v := NewView(api, "c1", nil, nil)
	if err := v.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh returned error: %v", err)
	}

	v.SetInput("t3")
	if err := v.Send(context.Background()); err != nil {
		t.Fatalf("Send returned error: %v", err)
	}

	got := messageContents(v.Messages())
	want := []string{"t1", "t2", "t3", "t4"}
	if len(got) != len(want) {
		t.Fatalf("Expected exactly the server transcript %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Turn %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestView_RollbackRemovesPlaceholderPair(t *testing.T) {
	api := &stubAPI{
		chats: map[string][]models.ChatMessage{
			"c1": {
				{Role: models.RoleUser, Content: "A"},
				{Role: models.RoleAssistant, Content: "B"},
			},
		},
	}
	api.sendFn = func(chatID, prompt string) (*models.SendMessageResponse, error) {
		return nil, &APIError{StatusCode: 500, Message: "Failed to generate response"}
	}
	notify := &stubNotifier{}

	v := NewView(api, "c1", notify, nil)
	if err := v.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh returned error: %v", err)
	}

	v.SetInput("C")
	if err := v.Send(context.Background()); err == nil {
		t.Fatal("Expected Send to return the failure")
	}

	got := messageContents(v.Messages())
	if len(got) != 2 || got[0] != "A" || got[1] != "B" {
		t.Errorf("Expected rollback to [A B], got %v", got)
	}
	// The typed text stays cleared after rollback.
	if v.Input() != "" {
		t.Errorf("Input must not be restored on failure, got %q", v.Input())
	}
	if v.Sending() {
		t.Error("Sending flag must clear after a failed send")
	}
	if len(notify.errors) != 1 || notify.errors[0] != "Failed to generate response" {
		t.Errorf("Expected one failure notification, got %v", notify.errors)
	}
}

func TestView_NewChatNavigatesOnSuccess(t *testing.T) {
	api := &stubAPI{}
	api.sendFn = echoSend("welcome")
	notify := &stubNotifier{}
	var navigatedTo string

	v := NewView(api, NewChatID, notify, func(chatID string) { navigatedTo = chatID })
	v.SetInput("hello")
	if err := v.Send(context.Background()); err != nil {
		t.Fatalf("Send returned error: %v", err)
	}

	if navigatedTo == "" {
		t.Fatal("Expected navigation to the confirmed chat id")
	}
	if navigatedTo == NewChatID {
		t.Error("Navigation target must be a real id, not the placeholder")
	}
	if v.ChatID() != navigatedTo {
		t.Errorf("View chat id %q must match navigation target %q", v.ChatID(), navigatedTo)
	}
	if len(notify.successes) != 1 {
		t.Errorf("Expected one success notification, got %v", notify.successes)
	}
}

func TestView_NewChatDoesNotNavigateOnFailure(t *testing.T) {
	api := &stubAPI{}
	api.sendFn = func(chatID, prompt string) (*models.SendMessageResponse, error) {
		return nil, errors.New("network down")
	}
	navigated := false

	v := NewView(api, NewChatID, nil, func(string) { navigated = true })
	v.SetInput("hello")
	if err := v.Send(context.Background()); err == nil {
		t.Fatal("Expected Send to fail")
	}

	if navigated {
		t.Error("Navigation must only happen on success")
	}
	if v.ChatID() != NewChatID {
		t.Errorf("Chat id must stay %q after rollback, got %q", NewChatID, v.ChatID())
	}
	if len(v.Messages()) != 0 {
		t.Errorf("Expected empty transcript after rollback, got %v", v.Messages())
	}
}

func TestView_StaleFetchDiscarded(t *testing.T) {
	api := &stubAPI{
		chats: map[string][]models.ChatMessage{
			"x": {
				{Role: models.RoleUser, Content: "x-q"},
				{Role: models.RoleAssistant, Content: "x-a"},
			},
			"y": {
				{Role: models.RoleUser, Content: "y-q"},
				{Role: models.RoleAssistant, Content: "y-a"},
			},
		},
	}
	var v *View
	api.getHook = func(chatID string) {
		// Navigate away while x's fetch is still in flight.
		if chatID == "x" {
			v.Open("y")
		}
	}
	v = NewView(api, "x", nil, nil)

	if err := v.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh returned error: %v", err)
	}
	if len(v.Messages()) != 0 {
		t.Errorf("Stale result for x must not be applied to the y view, got %v", messageContents(v.Messages()))
	}

	// The fetch for the current conversation still applies normally.
	if err := v.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh returned error: %v", err)
	}
	got := messageContents(v.Messages())
	if len(got) != 2 || got[0] != "y-q" {
		t.Errorf("Expected y's transcript, got %v", got)
	}
}

func TestView_SendResultDiscardedAfterNavigation(t *testing.T) {
	api := &stubAPI{}
	var v *View
	api.sendFn = echoSend("late reply")
	api.sendHook = func() {
		v.Open("elsewhere")
	}
	v = NewView(api, "c1", nil, nil)
	v.SetInput("hello")

	if err := v.Send(context.Background()); err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
	if v.ChatID() != "elsewhere" {
		t.Errorf("Expected view to stay on %q, got %q", "elsewhere", v.ChatID())
	}
	if len(v.Messages()) != 0 {
		t.Errorf("Late send result must not be applied to the new view, got %v", messageContents(v.Messages()))
	}
}

func TestView_RefreshSkipsUnsavedConversation(t *testing.T) {
	api := &stubAPI{}
	v := NewView(api, "", nil, nil)

	if v.ChatID() != NewChatID {
		t.Fatalf("Empty id must normalize to %q, got %q", NewChatID, v.ChatID())
	}
	if err := v.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh returned error: %v", err)
	}
	if api.getCalls != 0 {
		t.Error("No fetch must be issued for an unsaved conversation")
	}
}
