package assistant

import (
	"context"
	"errors"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

type chatStub struct {
	content string
	err     error
	choices []openai.ChatCompletionChoice

	gotRequest openai.ChatCompletionRequest
}

func (c *chatStub) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	c.gotRequest = req
	if c.err != nil {
		return openai.ChatCompletionResponse{}, c.err
	}
	if c.choices != nil {
		return openai.ChatCompletionResponse{Choices: c.choices}, nil
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: c.content}},
		},
	}, nil
}

func TestSolveParsesStructuredAnswer(t *testing.T) {
	stub := &chatStub{content: `{"answer":"42","explanation":"multiply","steps":["6 * 7 = 42"]}`}
	c := New(stub, "test-model", zap.NewNop())

	resp, err := c.Solve(context.Background(), "what is six times seven?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.Answer != "42" {
		t.Fatalf("expected answer %q, got %q", "42", resp.Answer)
	}
	if resp.Explanation != "multiply" {
		t.Fatalf("expected explanation %q, got %q", "multiply", resp.Explanation)
	}
	if len(resp.Steps) != 1 || resp.Steps[0] != "6 * 7 = 42" {
		t.Fatalf("unexpected steps: %#v", resp.Steps)
	}

	if stub.gotRequest.Model != "test-model" {
		t.Fatalf("expected model %q, got %q", "test-model", stub.gotRequest.Model)
	}
	if len(stub.gotRequest.Messages) != 2 {
		t.Fatalf("expected system + user message, got %d messages", len(stub.gotRequest.Messages))
	}
	if got := stub.gotRequest.Messages[1].Content; got != "what is six times seven?" {
		t.Fatalf("expected query as user message, got %q", got)
	}
}

func TestSolveToleratesCodeFence(t *testing.T) {
	stub := &chatStub{content: "```json\n{\"answer\":\"8\",\"explanation\":\"\",\"steps\":[]}\n```"}
	c := New(stub, "", zap.NewNop())

	resp, err := c.Solve(context.Background(), "2^3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Answer != "8" {
		t.Fatalf("expected answer %q, got %q", "8", resp.Answer)
	}
}

func TestSolveFallsBack(t *testing.T) {
	tests := []struct {
		name string
		stub *chatStub
	}{
		{name: "transport error", stub: &chatStub{err: errors.New("connection refused")}},
		{name: "no choices", stub: &chatStub{choices: []openai.ChatCompletionChoice{}}},
		{name: "malformed payload", stub: &chatStub{content: "not json"}},
		{name: "missing answer", stub: &chatStub{content: `{"explanation":"x","steps":[]}`}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := New(tc.stub, "", zap.NewNop())

			resp, err := c.Solve(context.Background(), "anything")
			if err == nil {
				t.Fatal("expected an error alongside the fallback")
			}

			want := Fallback()
			if resp.Answer != want.Answer {
				t.Fatalf("expected fallback answer %q, got %q", want.Answer, resp.Answer)
			}
			if resp.Explanation != want.Explanation {
				t.Fatalf("expected fallback explanation %q, got %q", want.Explanation, resp.Explanation)
			}
			if len(resp.Steps) != 1 {
				t.Fatalf("expected one fallback step, got %#v", resp.Steps)
			}
		})
	}
}

func TestFallbackLiterals(t *testing.T) {
	f := Fallback()

	if f.Answer != "Error" {
		t.Fatalf("expected answer %q, got %q", "Error", f.Answer)
	}
	if f.Explanation != "Failed to connect to AI assistant." {
		t.Fatalf("expected explanation %q, got %q", "Failed to connect to AI assistant.", f.Explanation)
	}
}

func TestSolveRequestsJSONResponseFormat(t *testing.T) {
	stub := &chatStub{content: `{"answer":"1","explanation":"","steps":[]}`}
	c := New(stub, "", zap.NewNop())

	if _, err := c.Solve(context.Background(), "1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rf := stub.gotRequest.ResponseFormat
	if rf == nil || rf.Type != openai.ChatCompletionResponseFormatTypeJSONObject {
		t.Fatalf("expected json_object response format, got %#v", rf)
	}
}
