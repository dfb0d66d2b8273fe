package calculator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/lokeshkarri54321-sys/Calculator/internal/handlers"
	"github.com/lokeshkarri54321-sys/Calculator/internal/observability"
	"github.com/lokeshkarri54321-sys/Calculator/internal/session"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// tracer is the calculator's dedicated OpenTelemetry tracer.
var tracer = otel.Tracer("calculator")

// API exposes one session store over HTTP.
type API struct {
	store *session.Store
}

func NewAPI(store *session.Store) *API {
	return &API{store: store}
}

// ---------------------------------------------------------------------------
// Handlers — session lifecycle
// ---------------------------------------------------------------------------

// CreateSession handles POST /calculator/sessions
func (a *API) CreateSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := observability.LoggerWithTrace(ctx)
	requestID := observability.RequestIDFromContext(ctx)

	ctx, span := tracer.Start(ctx, "calculator.session.create",
		trace.WithAttributes(attribute.String("request.id", requestID)),
	)
	defer span.End()

	s := a.store.Create()
	span.SetAttributes(attribute.String("calculator.session.id", s.ID))

	opsCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", "session.create")))
	sessionsGauge.Record(ctx, int64(a.store.Len()))

	logger.Info("session created",
		zap.String("session_id", s.ID),
		zap.String("request_id", requestID),
	)

	handlers.WriteJSON(w, http.StatusCreated, newStateResponse(s.ID, s.Snapshot()))
}

// GetSession handles GET /calculator/sessions/{sessionID}
func (a *API) GetSession(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "calculator.session.get")
	defer span.End()

	s, ok := a.lookup(ctx, span, w, r, "session.get")
	if !ok {
		return
	}

	handlers.WriteJSON(w, http.StatusOK, newStateResponse(s.ID, s.Snapshot()))
}

// DeleteSession handles DELETE /calculator/sessions/{sessionID}
func (a *API) DeleteSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := observability.LoggerWithTrace(ctx)

	ctx, span := tracer.Start(ctx, "calculator.session.delete")
	defer span.End()

	id := chi.URLParam(r, "sessionID")
	if err := a.store.Delete(id); err != nil {
		observability.RecordError(ctx, span, logger, errorCounter, "session.delete", "session not found", err, http.StatusNotFound, w)
		return
	}

	sessionsGauge.Record(ctx, int64(a.store.Len()))
	span.SetStatus(codes.Ok, "")
	w.WriteHeader(http.StatusNoContent)
}

// ---------------------------------------------------------------------------
// Handlers — expression buffer
// ---------------------------------------------------------------------------

// AppendToken handles POST /calculator/sessions/{sessionID}/input
func (a *API) AppendToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := observability.LoggerWithTrace(ctx)

	ctx, span := tracer.Start(ctx, "calculator.input.append")
	defer span.End()

	s, ok := a.lookup(ctx, span, w, r, "input.append")
	if !ok {
		return
	}

	var req TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		observability.RecordError(ctx, span, logger, errorCounter, "input.append", "invalid request body", err, http.StatusBadRequest, w)
		return
	}

	st := s.AppendToken(req.Token)
	span.SetAttributes(attribute.String("calculator.token", req.Token))
	opsCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", "input.append")))

	handlers.WriteJSON(w, http.StatusOK, newStateResponse(s.ID, st))
}

// DeleteLast handles DELETE /calculator/sessions/{sessionID}/input
func (a *API) DeleteLast(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "calculator.input.delete_last")
	defer span.End()

	s, ok := a.lookup(ctx, span, w, r, "input.delete_last")
	if !ok {
		return
	}

	st := s.DeleteLast()
	opsCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", "input.delete_last")))

	handlers.WriteJSON(w, http.StatusOK, newStateResponse(s.ID, st))
}

// Clear handles POST /calculator/sessions/{sessionID}/clear
func (a *API) Clear(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "calculator.input.clear")
	defer span.End()

	s, ok := a.lookup(ctx, span, w, r, "input.clear")
	if !ok {
		return
	}

	st := s.Clear()
	opsCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", "input.clear")))

	handlers.WriteJSON(w, http.StatusOK, newStateResponse(s.ID, st))
}

// PressKey handles POST /calculator/sessions/{sessionID}/keys — physical
// keyboard routing. Keys are ignored while the session is in ai mode.
func (a *API) PressKey(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := observability.LoggerWithTrace(ctx)

	ctx, span := tracer.Start(ctx, "calculator.input.key")
	defer span.End()

	s, ok := a.lookup(ctx, span, w, r, "input.key")
	if !ok {
		return
	}

	var req KeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		observability.RecordError(ctx, span, logger, errorCounter, "input.key", "invalid request body", err, http.StatusBadRequest, w)
		return
	}

	span.SetAttributes(attribute.String("calculator.key", req.Key))

	st, err := s.HandleKey(req.Key)
	if err != nil {
		// Enter triggered an evaluation that failed; policy already
		// applied to the state, the span just records it.
		span.RecordError(err)
		errorCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", "input.key")))
	}
	opsCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", "input.key")))

	handlers.WriteJSON(w, http.StatusOK, newStateResponse(s.ID, st))
}

// ---------------------------------------------------------------------------
// Handlers — calculation triggers
// ---------------------------------------------------------------------------

// Calculate handles POST /calculator/sessions/{sessionID}/calculate — the
// standard/scientific path. It demonstrates the full observability set:
// custom child spans, span attributes & events, custom metrics, and
// trace-correlated structured logging.
func (a *API) Calculate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := observability.LoggerWithTrace(ctx)
	requestID := observability.RequestIDFromContext(ctx)

	// --- 1. Custom child span ---
	ctx, span := tracer.Start(ctx, "calculator.calculate",
		trace.WithAttributes(attribute.String("request.id", requestID)),
	)
	defer span.End()

	s, ok := a.lookup(ctx, span, w, r, "calculate")
	if !ok {
		return
	}

	expression := s.Snapshot().Expression
	span.SetAttributes(attribute.String("calculator.expression", expression))

	// --- 2. Evaluate (timed for the histogram) ---
	start := time.Now()
	st, err := s.Calculate()
	elapsed := float64(time.Since(start).Microseconds()) / 1000.0 // ms

	attrs := metric.WithAttributes(attribute.String("operation", "calculate"))
	opsCounter.Add(ctx, 1, attrs)
	opsHistogram.Record(ctx, elapsed, attrs)
	historyGauge.Record(ctx, int64(len(st.History)))

	if err != nil {
		// Evaluation failure is not an HTTP failure: the result is the
		// error display value and the buffer survives for correction.
		span.RecordError(err)
		span.SetStatus(codes.Error, "evaluation failed")
		errorCounter.Add(ctx, 1, attrs)

		logger.Warn("evaluation failed",
			zap.String("expression", expression),
			zap.Error(err),
			zap.String("request_id", requestID),
		)

		handlers.WriteJSON(w, http.StatusOK, newStateResponse(s.ID, st))
		return
	}

	// --- 3. Span event with the result ---
	span.AddEvent("computation.complete", trace.WithAttributes(
		attribute.String("result", st.Result),
		attribute.Float64("duration_ms", elapsed),
	))
	span.SetAttributes(attribute.String("calculator.result", st.Result))
	span.SetStatus(codes.Ok, "")

	// --- 4. Structured log with trace correlation ---
	logger.Info("calculation completed",
		zap.String("expression", expression),
		zap.String("result", st.Result),
		zap.String("request_id", requestID),
		zap.Float64("duration_ms", elapsed),
	)

	handlers.WriteJSON(w, http.StatusOK, newStateResponse(s.ID, st))
}

// Solve handles POST /calculator/sessions/{sessionID}/solve — the AI
// path. The solver runs asynchronously: the response is 202 with the
// loading state, and the client polls GET for resolution. A second
// trigger while one is in flight is rejected with 409.
func (a *API) Solve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := observability.LoggerWithTrace(ctx)
	requestID := observability.RequestIDFromContext(ctx)

	ctx, span := tracer.Start(ctx, "calculator.solve",
		trace.WithAttributes(attribute.String("request.id", requestID)),
	)
	defer span.End()

	s, ok := a.lookup(ctx, span, w, r, "solve")
	if !ok {
		return
	}

	// The solver outlives this request; its context must not be the
	// request's, which is cancelled as soon as the 202 is written.
	st, err := s.Solve(context.WithoutCancel(ctx))
	if err != nil {
		if errors.Is(err, session.ErrBusy) {
			observability.RecordError(ctx, span, logger, errorCounter, "solve", "ai request already in flight", err, http.StatusConflict, w)
			return
		}
		observability.RecordError(ctx, span, logger, errorCounter, "solve", "dispatch failed", err, http.StatusInternalServerError, w)
		return
	}

	if !st.Loading {
		// Blank buffer: nothing was dispatched.
		span.SetStatus(codes.Ok, "")
		handlers.WriteJSON(w, http.StatusOK, newStateResponse(s.ID, st))
		return
	}

	aiCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "dispatched")))
	opsCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", "solve")))
	span.AddEvent("solver.dispatched")
	span.SetStatus(codes.Ok, "")

	logger.Info("ai request dispatched",
		zap.String("session_id", s.ID),
		zap.String("request_id", requestID),
	)

	handlers.WriteJSON(w, http.StatusAccepted, newStateResponse(s.ID, st))
}

// ---------------------------------------------------------------------------
// Handlers — mode and history
// ---------------------------------------------------------------------------

// SetMode handles PUT /calculator/sessions/{sessionID}/mode
func (a *API) SetMode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := observability.LoggerWithTrace(ctx)

	ctx, span := tracer.Start(ctx, "calculator.mode.set")
	defer span.End()

	s, ok := a.lookup(ctx, span, w, r, "mode.set")
	if !ok {
		return
	}

	var req ModeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		observability.RecordError(ctx, span, logger, errorCounter, "mode.set", "invalid request body", err, http.StatusBadRequest, w)
		return
	}

	mode, ok := session.ParseMode(req.Mode)
	if !ok {
		observability.RecordError(ctx, span, logger, errorCounter, "mode.set", "unknown mode", fmt.Errorf("mode %q", req.Mode), http.StatusBadRequest, w)
		return
	}

	st := s.SetMode(mode)
	span.SetAttributes(attribute.String("calculator.mode", req.Mode))
	opsCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", "mode.set")))

	handlers.WriteJSON(w, http.StatusOK, newStateResponse(s.ID, st))
}

// GetHistory handles GET /calculator/sessions/{sessionID}/history
func (a *API) GetHistory(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "calculator.history.list")
	defer span.End()

	s, ok := a.lookup(ctx, span, w, r, "history.list")
	if !ok {
		return
	}

	history := s.History()
	if history == nil {
		history = []session.Record{}
	}
	span.SetAttributes(attribute.Int("calculator.history.size", len(history)))

	handlers.WriteJSON(w, http.StatusOK, HistoryResponse{History: history})
}

// RestoreHistory handles POST /calculator/sessions/{sessionID}/history/{entryID}/restore
func (a *API) RestoreHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := observability.LoggerWithTrace(ctx)

	ctx, span := tracer.Start(ctx, "calculator.history.restore")
	defer span.End()

	s, ok := a.lookup(ctx, span, w, r, "history.restore")
	if !ok {
		return
	}

	entryID := chi.URLParam(r, "entryID")
	st, err := s.SelectHistory(entryID)
	if err != nil {
		observability.RecordError(ctx, span, logger, errorCounter, "history.restore", "history entry not found", err, http.StatusNotFound, w)
		return
	}

	span.SetAttributes(attribute.String("calculator.history.entry_id", entryID))
	opsCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", "history.restore")))

	handlers.WriteJSON(w, http.StatusOK, newStateResponse(s.ID, st))
}

// ClearHistory handles DELETE /calculator/sessions/{sessionID}/history
func (a *API) ClearHistory(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "calculator.history.clear")
	defer span.End()

	s, ok := a.lookup(ctx, span, w, r, "history.clear")
	if !ok {
		return
	}

	st := s.ClearHistory()
	opsCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", "history.clear")))
	historyGauge.Record(ctx, 0)

	handlers.WriteJSON(w, http.StatusOK, newStateResponse(s.ID, st))
}

// lookup resolves the sessionID route parameter, writing the 404 itself
// when the session is unknown or expired.
func (a *API) lookup(ctx context.Context, span trace.Span, w http.ResponseWriter, r *http.Request, opName string) (*session.Session, bool) {
	id := chi.URLParam(r, "sessionID")
	s, err := a.store.Get(id)
	if err != nil {
		logger := observability.LoggerWithTrace(ctx)
		observability.RecordError(ctx, span, logger, errorCounter, opName, "session not found", err, http.StatusNotFound, w)
		return nil, false
	}
	span.SetAttributes(attribute.String("calculator.session.id", id))
	return s, true
}
