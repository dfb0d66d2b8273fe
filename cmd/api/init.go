package main

import (
	"context"
	"os"
	"time"

	"github.com/lokeshkarri54321-sys/Calculator/internal/assistant"
	"github.com/lokeshkarri54321-sys/Calculator/internal/calculator"
	"github.com/lokeshkarri54321-sys/Calculator/internal/observability"
	"github.com/lokeshkarri54321-sys/Calculator/internal/session"
)

// initMetrics initialises all metric providers and application-specific
// metric instruments. Add new domain InitMetrics calls here as the project grows.
func initMetrics(ctx context.Context) (func(context.Context) error, error) {
	shutdown, err := observability.InitMetrics(ctx)
	if err != nil {
		return nil, err
	}

	if err := calculator.InitMetrics(); err != nil {
		return nil, err
	}

	return shutdown, nil
}

// aiSolver adapts the assistant client to the session.Solver interface.
type aiSolver struct {
	client *assistant.Client
}

func newSolver(client *assistant.Client) session.Solver {
	return aiSolver{client: client}
}

func (s aiSolver) Solve(ctx context.Context, query string) (session.AIResponse, error) {
	resp, err := s.client.Solve(ctx, query)
	return session.AIResponse{
		Answer:      resp.Answer,
		Explanation: resp.Explanation,
		Steps:       resp.Steps,
	}, err
}

func listenAddr() string {
	if addr := os.Getenv("ADDR"); addr != "" {
		return addr
	}
	return ":8080"
}

// sessionTTL reads SESSION_TTL as a Go duration; zero falls back to the
// store's default.
func sessionTTL() time.Duration {
	raw := os.Getenv("SESSION_TTL")
	if raw == "" {
		return 0
	}
	ttl, err := time.ParseDuration(raw)
	if err != nil {
		observability.Logger.Warn("invalid SESSION_TTL, using default")
		return 0
	}
	return ttl
}
