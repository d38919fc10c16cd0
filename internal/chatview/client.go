// Package chatview implements the dashboard chat view: a typed client for the
// chat/history API and the per-conversation state container that performs
// optimistic appends, wholesale reconciliation, and rollback.
package chatview

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"script-backend/internal/models"
)

// APIError carries a server-reported failure with its HTTP status.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("chatview: api error %d: %s", e.StatusCode, e.Message)
}

// Client is a minimal HTTP client for the chat session and history endpoints.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// GetChat loads one conversation's transcript. Unknown ids come back as an
// empty transcript, mirroring the server's not-found-means-empty policy.
func (c *Client) GetChat(ctx context.Context, chatID string) (*models.GetChatResponse, error) {
	path := "/api/v1/chat?chat_id=" + url.QueryEscape(chatID)
	var resp models.GetChatResponse
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SendMessage appends a turn pair and returns the authoritative transcript.
func (c *Client) SendMessage(ctx context.Context, chatID, prompt string) (*models.SendMessageResponse, error) {
	req := models.SendMessageRequest{ChatID: chatID, Prompt: prompt}
	var resp models.SendMessageResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/chat", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListHistory returns the owner's conversation summaries, newest first.
func (c *Client) ListHistory(ctx context.Context) ([]models.HistoryEntry, error) {
	var resp models.HistoryResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/history", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Chats, nil
}

// DeleteChats removes the given conversations and reports which ids were
// actually deleted.
func (c *Client) DeleteChats(ctx context.Context, chatIDs []string) (*models.DeleteChatsResponse, error) {
	req := models.DeleteChatsRequest{ChatIDs: chatIDs}
	var resp models.DeleteChatsResponse
	if err := c.doJSON(ctx, http.MethodDelete, "/api/v1/history", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("chatview: failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("chatview: failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("chatview: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errResp models.ErrorResponse
		message := http.StatusText(resp.StatusCode)
		if decodeErr := json.NewDecoder(resp.Body).Decode(&errResp); decodeErr == nil && errResp.Error != "" {
			message = errResp.Error
		}
		return &APIError{StatusCode: resp.StatusCode, Message: message}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("chatview: failed to decode response: %w", err)
	}
	return nil
}
