// Package anthropic implements domain.Reasoner on top of the Anthropic Messages API.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/allergenscan/backend/internal/domain"
	"github.com/pkg/errors"
)

const (
	apiVersion       = "2023-06-01"
	defaultBaseURL   = "https://api.anthropic.com"
	defaultModel     = "claude-sonnet-4-20250514"
	defaultMaxTokens = 1024
)

// Config holds Messages API settings
type Config struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

// Client performs single Messages API round-trips
type Client struct {
	apiKey     string
	endpoint   string
	model      string
	maxTokens  int
	httpClient *http.Client
	logger     *slog.Logger
}

// APIError is a non-2xx answer from the Messages API
type APIError struct {
	StatusCode int
	Type       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("anthropic api error (status %d, %s): %s", e.StatusCode, e.Type, e.Message)
}

// NewClient creates a Messages API client
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("anthropic api key is required")
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		apiKey:     cfg.APIKey,
		endpoint:   baseURL + "/v1/messages",
		model:      model,
		maxTokens:  maxTokens,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}, nil
}

type apiRequest struct {
	Model      string       `json:"model"`
	MaxTokens  int          `json:"max_tokens"`
	System     string       `json:"system,omitempty"`
	Messages   []apiMessage `json:"messages"`
	Tools      []apiTool    `json:"tools,omitempty"`
	ToolChoice *toolChoice  `json:"tool_choice,omitempty"`
}

type apiMessage struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type string `json:"type"`

	// text
	Text string `json:"text,omitempty"`

	// tool_use
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`

	// tool_result
	ToolUseID string `json:"tool_use_id,omitempty"`
	Content   string `json:"content,omitempty"`
	IsError   bool   `json:"is_error,omitempty"`
}

type apiTool struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"input_schema"`
}

type toolChoice struct {
	Type string `json:"type"`
}

type apiResponse struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Role       string         `json:"role"`
	Content    []contentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
	Usage      *struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage,omitempty"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Complete sends one request and returns the text and tool calls of the reply
func (c *Client) Complete(ctx context.Context, req *domain.ReasoningRequest) (*domain.ReasoningReply, error) {
	payload, err := json.Marshal(c.buildRequest(req))
	if err != nil {
		return nil, errors.Wrap(err, "marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", apiVersion)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, "http request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read response")
	}

	var parsed apiResponse
	decodeErr := json.Unmarshal(body, &parsed)

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{StatusCode: resp.StatusCode, Type: "http_error", Message: string(body)}
		if decodeErr == nil && parsed.Error != nil {
			apiErr.Type = parsed.Error.Type
			apiErr.Message = parsed.Error.Message
		}
		return nil, apiErr
	}
	if decodeErr != nil {
		return nil, errors.Wrap(decodeErr, "unmarshal response")
	}
	if parsed.Error != nil {
		return nil, &APIError{StatusCode: resp.StatusCode, Type: parsed.Error.Type, Message: parsed.Error.Message}
	}

	reply := toReply(&parsed)

	attrs := []any{
		"model", c.model,
		"stop_reason", parsed.StopReason,
		"tool_calls", len(reply.ToolCalls),
		"duration", time.Since(start),
	}
	if parsed.Usage != nil {
		attrs = append(attrs, "input_tokens", parsed.Usage.InputTokens, "output_tokens", parsed.Usage.OutputTokens)
	}
	c.logger.Debug("Messages API call completed", attrs...)

	return reply, nil
}

func (c *Client) buildRequest(req *domain.ReasoningRequest) *apiRequest {
	out := &apiRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System:    req.System,
		Messages:  make([]apiMessage, 0, len(req.Messages)),
	}

	for _, msg := range req.Messages {
		out.Messages = append(out.Messages, toAPIMessage(msg))
	}

	for _, tool := range req.Tools {
		out.Tools = append(out.Tools, apiTool{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: tool.InputSchema,
		})
	}
	// Tool definitions stay so earlier tool_use blocks remain valid
	if req.DisableTools && len(out.Tools) > 0 {
		out.ToolChoice = &toolChoice{Type: "none"}
	}

	return out
}

func toAPIMessage(msg domain.ReasoningMessage) apiMessage {
	blocks := make([]contentBlock, 0, 1+len(msg.ToolCalls)+len(msg.ToolResults))

	for _, result := range msg.ToolResults {
		blocks = append(blocks, contentBlock{
			Type:      "tool_result",
			ToolUseID: result.CallID,
			Content:   result.Content,
			IsError:   result.IsError,
		})
	}
	if strings.TrimSpace(msg.Text) != "" {
		blocks = append(blocks, contentBlock{Type: "text", Text: msg.Text})
	}
	for _, call := range msg.ToolCalls {
		input := call.Input
		if len(input) == 0 {
			input = json.RawMessage(`{}`)
		}
		blocks = append(blocks, contentBlock{
			Type:  "tool_use",
			ID:    call.ID,
			Name:  call.Name,
			Input: input,
		})
	}

	return apiMessage{Role: msg.Role, Content: blocks}
}

func toReply(resp *apiResponse) *domain.ReasoningReply {
	reply := &domain.ReasoningReply{StopReason: resp.StopReason}

	var text []string
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			text = append(text, block.Text)
		case "tool_use":
			reply.ToolCalls = append(reply.ToolCalls, domain.ToolCall{
				ID:    block.ID,
				Name:  block.Name,
				Input: block.Input,
			})
		}
	}
	reply.Text = strings.Join(text, "\n")

	return reply
}
