package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ChatClient talks to an OpenAI-compatible chat-completions endpoint.
// Groq, SambaNova and Together all speak this wire format.
type ChatClient struct {
	HTTPClient *http.Client
	ProviderID string
	Endpoint   string
	APIKey     string
	Model      string

	MaxTokens   int
	Temperature float64
}

type chatCompletionsRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
	Stream      bool      `json:"stream,omitempty"`
}

type chatChoice struct {
	Index        int     `json:"index"`
	FinishReason string  `json:"finish_reason"`
	Message      Message `json:"message"`
}

type chatCompletionsResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
}

func newChatClient(providerID, endpoint, apiKey, model string) *ChatClient {
	return &ChatClient{
		HTTPClient:  &http.Client{Timeout: 10 * time.Second},
		ProviderID:  providerID,
		Endpoint:    endpoint,
		APIKey:      apiKey,
		Model:       model,
		MaxTokens:   150,
		Temperature: 0.3,
	}
}

// NewGroqClient creates the Groq provider adapter.
func NewGroqClient(apiKey, model string) *ChatClient {
	return newChatClient("groq", "https://api.groq.com/openai/v1/chat/completions", apiKey, model)
}

// NewSambaNovaClient creates the SambaNova provider adapter.
func NewSambaNovaClient(apiKey string) *ChatClient {
	return newChatClient("sambanova", "https://api.sambanova.ai/v1/chat/completions", apiKey, "Meta-Llama-3.1-405B-Instruct")
}

// NewTogetherClient creates the Together AI provider adapter.
func NewTogetherClient(apiKey string) *ChatClient {
	return newChatClient("together", "https://api.together.xyz/v1/chat/completions", apiKey, "meta-llama/Meta-Llama-3.1-70B-Instruct-Turbo")
}

func (c *ChatClient) Name() string { return c.ProviderID }

// Generate sends the message list and returns the first choice's content.
func (c *ChatClient) Generate(ctx context.Context, messages []Message) (string, error) {
	if c.APIKey == "" {
		return "", fmt.Errorf("%s api key missing", c.ProviderID)
	}

	reqBody, _ := json.Marshal(chatCompletionsRequest{
		Model:       c.Model,
		Messages:    messages,
		MaxTokens:   c.MaxTokens,
		Temperature: c.Temperature,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%s error: status=%d body=%s", c.ProviderID, resp.StatusCode, string(b))
	}
	var cr chatCompletionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", err
	}
	if len(cr.Choices) == 0 {
		return "", fmt.Errorf("%s: empty choices", c.ProviderID)
	}
	return strings.TrimSpace(cr.Choices[0].Message.Content), nil
}
