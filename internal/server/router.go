package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lokeshkarri54321-sys/Calculator/internal/calculator"
	"github.com/lokeshkarri54321-sys/Calculator/internal/handlers"
	"github.com/lokeshkarri54321-sys/Calculator/internal/observability"
)

func NewRouter(api *calculator.API) http.Handler {

	r := chi.NewRouter()

	r.Use(observability.RequestIDMiddleware)
	r.Use(observability.TracingMiddleware)
	r.Use(observability.LoggingMiddleware)

	r.Get("/health", handlers.Health)

	r.Handle("/metrics", observability.PrometheusHandler())

	api.RegisterRoutes(r)

	return r
}
