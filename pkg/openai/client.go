// Package openai implements the completion client against an
// OpenAI-compatible chat-completions endpoint.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/menta2k/carb-analyzer/pkg/client"
)

// DefaultBaseURL is the hosted endpoint used when no server URL is given.
const DefaultBaseURL = "https://api.openai.com"

// Sampling parameters fixed for nutrition analysis: low temperature for
// repeatable estimates, bounded output length.
const (
	temperature = 0.3
	maxTokens   = 800
)

// Client talks to an OpenAI-compatible chat-completions server.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Message in the chat-completions wire format.
type Message struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"` // string or []ContentPart
}

type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

type ImageURL struct {
	URL string `json:"url"`
}

type ChatCompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Stream      bool      `json:"stream"`
}

type ChatCompletionResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
}

type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason,omitempty"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// NewClient creates a client for the given server. An empty serverURL
// selects DefaultBaseURL. The API key is sent only as the Authorization
// header of completion requests.
func NewClient(serverURL, apiKey string) *Client {
	if serverURL == "" {
		serverURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimSuffix(serverURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 2 * time.Minute,
		},
	}
}

// Complete sends the system instruction plus a user turn combining the
// prompt text and the inline base64 image, and returns the raw text of
// the first completion choice.
func (c *Client) Complete(ctx context.Context, model, system, user, imgB64 string) (string, error) {
	if c.apiKey == "" {
		return "", client.ErrNoCredential
	}

	content := []ContentPart{
		{Type: "text", Text: user},
	}
	if imgB64 != "" {
		imageURL := imgB64
		if !strings.HasPrefix(imageURL, "data:") {
			imageURL = "data:image/jpeg;base64," + imgB64
		}
		content = append(content, ContentPart{
			Type:     "image_url",
			ImageURL: &ImageURL{URL: imageURL},
		})
	}

	req := ChatCompletionRequest{
		Model: model,
		Messages: []Message{
			{Role: "system", Content: system},
			{Role: "user", Content: content},
		},
		Temperature: temperature,
		MaxTokens:   maxTokens,
		Stream:      false,
	}

	respBody, err := c.sendRequest(ctx, "/v1/chat/completions", req)
	if err != nil {
		return "", err
	}

	var resp ChatCompletionResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	// Extract text from the response (handle both string and array formats)
	switch content := resp.Choices[0].Message.Content.(type) {
	case string:
		if content != "" {
			return content, nil
		}
	case []interface{}:
		for _, item := range content {
			if partMap, ok := item.(map[string]interface{}); ok {
				if text, ok := partMap["text"].(string); ok && text != "" {
					return text, nil
				}
			}
		}
	}

	return "", fmt.Errorf("no text content in response")
}

func (c *Client) sendRequest(ctx context.Context, endpoint string, payload interface{}) ([]byte, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &client.ServiceError{
			StatusCode: resp.StatusCode,
			Detail:     upstreamDetail(body),
		}
	}

	return body, nil
}

// upstreamDetail extracts the error message from an OpenAI-style error
// body, falling back to the raw body text.
func upstreamDetail(body []byte) string {
	var e apiError
	if err := json.Unmarshal(body, &e); err == nil && e.Error.Message != "" {
		return e.Error.Message
	}
	detail := strings.TrimSpace(string(body))
	if len(detail) > 500 {
		detail = detail[:500]
	}
	return detail
}
