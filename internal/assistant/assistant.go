// Package assistant is the AI problem-solving collaborator: one chat
// completion per query, parsed into a structured answer. The package
// never returns a raised failure to its caller — any transport or parse
// problem yields the literal fallback record, with the underlying error
// alongside for the caller's bookkeeping.
package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const defaultModel = "gpt-4o-mini"

const systemPrompt = "You are a math problem-solving assistant. Solve the " +
	"user's problem and reply with a single JSON object with exactly these " +
	"fields: \"answer\" (the final answer, concise), \"explanation\" (a short " +
	"explanation of the approach), and \"steps\" (an array of strings, one " +
	"per solution step, in order)."

// Response is the structured answer for one query.
type Response struct {
	Answer      string   `json:"answer"`
	Explanation string   `json:"explanation"`
	Steps       []string `json:"steps"`
}

// Fallback is the well-formed record returned on any internal failure.
func Fallback() Response {
	return Response{
		Answer:      "Error",
		Explanation: "Failed to connect to AI assistant.",
		Steps:       []string{"Check your connection and try again."},
	}
}

// ChatCompleter is the slice of the OpenAI client this package uses.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type Client struct {
	chat   ChatCompleter
	model  string
	logger *zap.Logger
}

// New wires an explicit chat backend, used by tests and by NewFromEnv.
func New(chat ChatCompleter, model string, logger *zap.Logger) *Client {
	if model == "" {
		model = defaultModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{chat: chat, model: model, logger: logger}
}

// NewFromEnv builds a client from OPENAI_API_KEY, OPENAI_MODEL and
// OPENAI_BASE_URL. A missing key is not fatal: requests will fail and
// surface as the fallback record, and a local OPENAI_BASE_URL endpoint
// may not need a key at all.
func NewFromEnv(logger *zap.Logger) *Client {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		logger.Warn("OPENAI_API_KEY not set; ai requests will return the fallback answer")
	}

	cfg := openai.DefaultConfig(apiKey)
	if base := os.Getenv("OPENAI_BASE_URL"); base != "" {
		cfg.BaseURL = base
	}

	return New(openai.NewClientWithConfig(cfg), os.Getenv("OPENAI_MODEL"), logger)
}

// Solve answers one query. The returned Response is always well-formed;
// the error reports what went wrong when the Response is the fallback.
func (c *Client) Solve(ctx context.Context, query string) (Response, error) {
	resp, err := c.chat.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: query},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		c.logger.Warn("chat completion failed", zap.Error(err))
		return Fallback(), fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		c.logger.Warn("chat completion returned no choices")
		return Fallback(), errors.New("chat completion returned no choices")
	}

	parsed, err := parseAnswer(resp.Choices[0].Message.Content)
	if err != nil {
		c.logger.Warn("malformed assistant payload", zap.Error(err))
		return Fallback(), err
	}
	return parsed, nil
}

// parseAnswer decodes the model's JSON payload, tolerating a markdown
// code fence around it.
func parseAnswer(content string) (Response, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var r Response
	if err := json.Unmarshal([]byte(content), &r); err != nil {
		return Response{}, fmt.Errorf("decode assistant payload: %w", err)
	}
	if r.Answer == "" {
		return Response{}, errors.New("assistant payload missing answer")
	}
	if r.Steps == nil {
		r.Steps = []string{}
	}
	return r, nil
}
