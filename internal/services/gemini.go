package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"script-backend/internal/models"
)

const chatSystemPrompt = "You are a helpful assistant. Answer the user's questions and assist with their tasks. " +
	"Be concise and to the point. Use simple text and avoid markdown. " +
	"Use the most appropriate emoji for the response. " +
	"Ask for follow up questions or necessary clarifications."

type GeminiService struct {
	client   *genai.Client
	model    *genai.GenerativeModel
	rateChan chan struct{} // Token bucket
}

func NewGeminiService(apiKey string, concurrentReqs int) (*GeminiService, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel("gemini-2.5-flash")
	model.SetTemperature(0.7)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(chatSystemPrompt)},
	}

	rateChan := make(chan struct{}, concurrentReqs)
	for i := 0; i < concurrentReqs; i++ {
		rateChan <- struct{}{}
	}

	return &GeminiService{
		client:   client,
		model:    model,
		rateChan: rateChan,
	}, nil
}

func (s *GeminiService) Close() {
	s.client.Close()
}

// acquireRate blocks until a rate slot is available
func (s *GeminiService) acquireRate(ctx context.Context) error {
	select {
	case <-s.rateChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Minute):
		return fmt.Errorf("timeout waiting for Gemini rate slot")
	}
}

func (s *GeminiService) releaseRate() {
	s.rateChan <- struct{}{}
}

// GenerateChatResponse produces the assistant reply for a new user prompt.
// History holds the conversation's prior turns in stored order and may be
// empty for a brand-new conversation.
func (s *GeminiService) GenerateChatResponse(ctx context.Context, prompt string, history []models.ChatMessage) (string, error) {
	if err := s.acquireRate(ctx); err != nil {
		return "", err
	}
	defer s.releaseRate()

	cs := s.model.StartChat()
	cs.History = convertHistory(history)

	resp, err := cs.SendMessage(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini chat request failed: %w", err)
	}

	reply := extractText(resp)
	if reply == "" {
		return "", fmt.Errorf("gemini returned an empty response")
	}
	return reply, nil
}

// convertHistory maps stored turns to the Gemini chat roles ("assistant"
// becomes "model").
func convertHistory(messages []models.ChatMessage) []*genai.Content {
	if len(messages) == 0 {
		return nil
	}

	history := make([]*genai.Content, 0, len(messages))
	for _, msg := range messages {
		role := "user"
		if msg.Role == models.RoleAssistant {
			role = "model"
		}
		history = append(history, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(msg.Content)},
		})
	}
	return history
}

func extractText(resp *genai.GenerateContentResponse) string {
	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				sb.WriteString(string(t))
			}
		}
		break // first candidate only
	}
	return strings.TrimSpace(sb.String())
}
