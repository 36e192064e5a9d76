package pkg

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

const defaultAPIURL = "https://api.openai.com/v1/chat/completions"

// Message roles understood by the completions API.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// RequestMessage is one turn of the prompt sent upstream.
type RequestMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func SystemMessage(content string) RequestMessage {
	return RequestMessage{Role: RoleSystem, Content: content}
}

func UserMessage(content string) RequestMessage {
	return RequestMessage{Role: RoleUser, Content: content}
}

func AssistantMessage(content string) RequestMessage {
	return RequestMessage{Role: RoleAssistant, Content: content}
}

// CompletionRequest is the request body for the chat completions endpoint.
type CompletionRequest struct {
	Model            string           `json:"model"`
	Messages         []RequestMessage `json:"messages"`
	Stream           bool             `json:"stream"`
	Temperature      float32          `json:"temperature"`
	TopP             float32          `json:"top_p"`
	FrequencyPenalty float32          `json:"frequency_penalty"`
	PresencePenalty  float32          `json:"presence_penalty"`
	ReplyCount       uint32           `json:"n"`
	MaxTokens        uint32           `json:"max_tokens"`
}

// Usage is the token accounting returned with a completion.
type Usage struct {
	PromptTokens     uint32 `json:"prompt_tokens"`
	CompletionTokens uint32 `json:"completion_tokens"`
	TotalTokens      uint32 `json:"total_tokens"`
}

// MessageChoice is one candidate completion.
type MessageChoice struct {
	Index        uint32         `json:"index"`
	Message      RequestMessage `json:"message"`
	FinishReason string         `json:"finish_reason"`
}

// CompletionResponse is a successful response from the API.
type CompletionResponse struct {
	ID      string          `json:"id"`
	Created uint64          `json:"created"`
	Model   string          `json:"model"`
	Usage   Usage           `json:"usage"`
	Choices []MessageChoice `json:"choices"`
}

// Content returns the text of the first completion choice.
func (r *CompletionResponse) Content() string {
	if len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].Message.Content
}

type apiErrorBody struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// UpstreamError is any failure of the completion call, classified by the
// API's error type where one was returned.
type UpstreamError struct {
	Type    string
	Message string
}

func (e *UpstreamError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("upstream completion failed: %s", e.Message)
	}
	return fmt.Sprintf("upstream completion failed (%s): %s", e.Type, e.Message)
}

// UserFacing is a short description safe to surface to the requesting user.
func (e *UpstreamError) UserFacing() string {
	switch e.Type {
	case "insufficient_quota":
		return "Boop bloop, out of credit."
	case "server_error":
		return "Boop bloop, server error."
	case "requests":
		return "Beep bloop, probably rate-limited."
	default:
		return "Boop beep, problem completing the request."
	}
}

// ChatClient talks to an OpenAI-compatible chat completions endpoint.
// It holds no conversation state; callers supply full histories.
type ChatClient struct {
	client *http.Client
	apiURL string
	apiKey string
}

// NewChatClient builds a client. apiURL may be empty to use the default
// endpoint, or point at a proxy.
func NewChatClient(apiKey, apiURL string) *ChatClient {
	if apiURL == "" {
		apiURL = defaultAPIURL
	}
	return &ChatClient{
		client: &http.Client{},
		apiURL: apiURL,
		apiKey: apiKey,
	}
}

// Send submits a conversation and returns the next message with its token
// usage. apiKey overrides the client's key when non-empty, for users with
// their own keys.
func (c *ChatClient) Send(ctx context.Context, request CompletionRequest, apiKey string) (*CompletionResponse, error) {
	request.Stream = false
	if request.ReplyCount == 0 {
		request.ReplyCount = 1
	}
	if request.TopP == 0 {
		request.TopP = 1.0
	}
	if apiKey == "" {
		apiKey = c.apiKey
	}

	jsonBody, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &UpstreamError{Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &UpstreamError{Message: err.Error()}
	}

	var apiError apiErrorBody
	if err := json.Unmarshal(body, &apiError); err == nil && apiError.Error.Type != "" {
		return nil, &UpstreamError{Type: apiError.Error.Type, Message: apiError.Error.Message}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &UpstreamError{Message: fmt.Sprintf("status %d: %s", resp.StatusCode, body)}
	}

	var response CompletionResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, &UpstreamError{Message: fmt.Sprintf("undecodable response: %v", err)}
	}
	if len(response.Choices) == 0 {
		return nil, &UpstreamError{Message: "response contained no choices"}
	}
	return &response, nil
}

// AsUpstreamError unwraps err as an UpstreamError if it is one.
func AsUpstreamError(err error) (*UpstreamError, bool) {
	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		return upstream, true
	}
	return nil, false
}
