package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lokeshkarri54321-sys/Calculator/internal/assistant"
	"github.com/lokeshkarri54321-sys/Calculator/internal/calculator"
	"github.com/lokeshkarri54321-sys/Calculator/internal/evaluator"
	"github.com/lokeshkarri54321-sys/Calculator/internal/observability"
	"github.com/lokeshkarri54321-sys/Calculator/internal/server"
	"github.com/lokeshkarri54321-sys/Calculator/internal/session"

	"go.uber.org/zap"
)

func main() {

	ctx := context.Background()

	if err := loadDotEnv(); err != nil {
		panic(err)
	}

	// Logger
	err := observability.InitLogger()
	if err != nil {
		panic(err)
	}
	defer observability.SyncLogger()

	// Tracing
	traceShutdown, err := observability.InitTracing(ctx)
	if err != nil {
		panic(err)
	}
	defer traceShutdown(ctx)

	// OTLP log export (tees the stdout logger with the otelzap core)
	logShutdown, err := observability.InitLogging(ctx)
	if err != nil {
		panic(err)
	}
	defer logShutdown(ctx)

	// Metrics
	metricShutdown, err := initMetrics(ctx)
	if err != nil {
		panic(err)
	}
	defer metricShutdown(ctx)

	// Domain wiring: evaluator + AI solver + session store
	solver := newSolver(assistant.NewFromEnv(observability.Logger))
	store := session.NewStore(evaluator.New(), solver, sessionTTL())
	defer store.Close()

	// Router
	router := server.NewRouter(calculator.NewAPI(store))

	srv := &http.Server{
		Addr:    listenAddr(),
		Handler: router,
	}

	go func() {
		observability.Logger.Info("server started", zap.String("addr", srv.Addr))

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			panic(err)
		}
	}()

	waitForShutdown(srv)
}

func waitForShutdown(srv *http.Server) {

	stop := make(chan os.Signal, 1)

	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	srv.Shutdown(ctx)
}
