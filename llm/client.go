/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package llm wraps the chat completion API that generates game content.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/Seednode/promptparty/metrics"
)

const (
	DefaultURL   = "https://api.groq.com/openai/v1"
	DefaultModel = "llama3-70b-8192"
)

// Roles understood by the completion API.
const (
	RoleSystem    = openai.ChatMessageRoleSystem
	RoleUser      = openai.ChatMessageRoleUser
	RoleAssistant = openai.ChatMessageRoleAssistant
)

// Message is one entry of a chat prompt.
type Message struct {
	Role    string
	Content string
}

// Completer returns the model's reply to a prompt. Replies are untrusted
// free-form text; callers parse them defensively.
//
//go:generate mockgen -package=mocks -destination=mocks/mock_completer.go github.com/Seednode/promptparty/llm Completer
type Completer interface {
	Complete(ctx context.Context, messages []Message, temperature float32, maxTokens int) (string, error)
}

// Error is returned when the API answers with a non-success status.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("completion API %d: %s", e.StatusCode, e.Message)
}

// ErrEmptyReply is returned when the API succeeds without any choices.
var ErrEmptyReply = errors.New("completion API returned no choices")

// Client is a Completer backed by an OpenAI-compatible endpoint.
type Client struct {
	api     *openai.Client
	model   string
	timeout time.Duration
	log     *zap.Logger
}

// NewClient builds a client for the endpoint at baseURL. A zero timeout
// leaves calls bounded only by the caller's context.
func NewClient(apiKey, baseURL, model string, timeout time.Duration, log *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	if model == "" {
		model = DefaultModel
	}
	if log == nil {
		log = zap.NewNop()
	}

	config := openai.DefaultConfig(apiKey)
	config.BaseURL = strings.TrimSuffix(baseURL, "/")
	config.HTTPClient = &http.Client{}

	return &Client{
		api:     openai.NewClientWithConfig(config),
		model:   model,
		timeout: timeout,
		log:     log,
	}
}

func (c *Client) Complete(ctx context.Context, messages []Message, temperature float32, maxTokens int) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    make([]openai.ChatCompletionMessage, 0, len(messages)),
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	startTime := time.Now()

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		metrics.GeneratorRequests.WithLabelValues("error").Inc()
		c.log.Warn("completion failed",
			zap.String("model", c.model),
			zap.Duration("elapsed", time.Since(startTime)),
			zap.Error(err))

		return "", translate(err)
	}

	metrics.GeneratorRequests.WithLabelValues("ok").Inc()

	if len(resp.Choices) == 0 {
		return "", ErrEmptyReply
	}

	c.log.Debug("completion done",
		zap.String("model", c.model),
		zap.Int("tokens", resp.Usage.TotalTokens),
		zap.Duration("elapsed", time.Since(startTime)))

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func translate(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &Error{StatusCode: apiErr.HTTPStatusCode, Message: apiErr.Message}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		msg := reqErr.Error()
		if reqErr.Err != nil {
			msg = reqErr.Err.Error()
		}
		return &Error{StatusCode: reqErr.HTTPStatusCode, Message: msg}
	}

	return fmt.Errorf("completion request: %w", err)
}

// System and User build prompt messages.
func System(content string) Message { return Message{Role: RoleSystem, Content: content} }

func User(content string) Message { return Message{Role: RoleUser, Content: content} }
