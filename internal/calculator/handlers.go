package calculator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"forcecalc/internal/handlers"
	"forcecalc/internal/history"
	"forcecalc/internal/observability"

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

// Handler serves the calculator API.
type Handler struct {
	sessions *Sessions
	history  history.Store
}

// NewHandler returns a Handler over sessions and the history store.
func NewHandler(sessions *Sessions, store history.Store) *Handler {
	return &Handler{sessions: sessions, history: store}
}

// ---------------------------------------------------------------------------
// Handlers — sessions
// ---------------------------------------------------------------------------

// CreateSession handles POST /calculator/sessions. The body, if any, is the
// initial ForceConfig.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	ctx, span, logger := startSpan(r, "create_session")
	defer span.End()

	var cfg ForceConfig
	if err := decodeOptional(r.Body, &cfg); err != nil {
		observability.RecordError(ctx, span, logger, errorCounter, "create_session", "invalid request body", err, http.StatusBadRequest, w)
		return
	}

	s := h.sessions.Create(cfg)
	span.SetAttributes(attribute.String("calculator.session_id", s.ID()))

	logger.Info("session created",
		zap.String("session_id", s.ID()),
		zap.String("request_id", observability.RequestIDFromContext(ctx)),
	)

	handlers.WriteJSON(w, http.StatusCreated, s.View())
}

// GetSession handles GET /calculator/sessions/{sessionID}
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	ctx, span, logger := startSpan(r, "get_session")
	defer span.End()

	s, ok := h.lookupSession(ctx, span, logger, "get_session", w, r)
	if !ok {
		return
	}
	handlers.WriteJSON(w, http.StatusOK, s.View())
}

// DeleteSession handles DELETE /calculator/sessions/{sessionID}
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	ctx, span, logger := startSpan(r, "delete_session")
	defer span.End()

	if err := h.sessions.Delete(chi.URLParam(r, "sessionID")); err != nil {
		observability.RecordError(ctx, span, logger, errorCounter, "delete_session", err.Error(), err, statusFor(err), w)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetForce handles PUT /calculator/sessions/{sessionID}/force
func (h *Handler) SetForce(w http.ResponseWriter, r *http.Request) {
	ctx, span, logger := startSpan(r, "set_force")
	defer span.End()

	s, ok := h.lookupSession(ctx, span, logger, "set_force", w, r)
	if !ok {
		return
	}

	var cfg ForceConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		observability.RecordError(ctx, span, logger, errorCounter, "set_force", "invalid request body", err, http.StatusBadRequest, w)
		return
	}

	s.SetForceConfig(cfg)
	handlers.WriteJSON(w, http.StatusOK, cfg)
}

// ClosePanel handles POST /calculator/sessions/{sessionID}/panel/close
func (h *Handler) ClosePanel(w http.ResponseWriter, r *http.Request) {
	ctx, span, logger := startSpan(r, "close_panel")
	defer span.End()

	s, ok := h.lookupSession(ctx, span, logger, "close_panel", w, r)
	if !ok {
		return
	}
	s.ClosePanel()
	handlers.WriteJSON(w, http.StatusOK, s.View())
}

// ---------------------------------------------------------------------------
// Handlers — key events
// ---------------------------------------------------------------------------

// Tap handles POST /calculator/sessions/{sessionID}/keys/{key}
func (h *Handler) Tap(w http.ResponseWriter, r *http.Request) {
	h.handleKeyEvent(w, r, "tap", (*Session).Press)
}

// KeyDown handles POST /calculator/sessions/{sessionID}/keys/{key}/down
func (h *Handler) KeyDown(w http.ResponseWriter, r *http.Request) {
	h.handleKeyEvent(w, r, "key_down", (*Session).Down)
}

// KeyUp handles POST /calculator/sessions/{sessionID}/keys/{key}/up
func (h *Handler) KeyUp(w http.ResponseWriter, r *http.Request) {
	h.handleKeyEvent(w, r, "key_up", (*Session).Up)
}

// handleKeyEvent is the shared implementation for key events: child span,
// metrics, trace-correlated logging and a JSON view of the session.
func (h *Handler) handleKeyEvent(w http.ResponseWriter, r *http.Request, opName string, event func(*Session, context.Context, Key) (*history.Record, error)) {
	ctx, span, logger := startSpan(r, opName)
	defer span.End()

	s, ok := h.lookupSession(ctx, span, logger, opName, w, r)
	if !ok {
		return
	}

	raw, err := url.PathUnescape(chi.URLParam(r, "key"))
	if err != nil {
		observability.RecordError(ctx, span, logger, errorCounter, opName, "invalid key", err, http.StatusBadRequest, w)
		return
	}
	key, err := ParseKey(raw)
	if err != nil {
		observability.RecordError(ctx, span, logger, errorCounter, opName, err.Error(), err, http.StatusBadRequest, w)
		return
	}
	span.SetAttributes(attribute.String("calculator.key", key.String()))

	start := time.Now()
	rec, err := event(s, ctx, key)
	elapsed := float64(time.Since(start).Microseconds()) / 1000.0 // ms

	if err != nil {
		observability.RecordError(ctx, span, logger, errorCounter, opName, err.Error(), err, statusFor(err), w)
		return
	}

	opsHistogram.Record(ctx, elapsed, metric.WithAttributes(attribute.String("operation", opName)))

	view := s.View()
	span.SetAttributes(
		attribute.String("calculator.display", view.Display),
		attribute.String("calculator.phase", view.Phase.String()),
	)
	span.SetStatus(codes.Ok, "")

	fields := []zap.Field{
		zap.String("operation", opName),
		zap.String("session_id", s.ID()),
		zap.String("key", key.String()),
		zap.String("request_id", observability.RequestIDFromContext(ctx)),
		zap.Float64("duration_ms", elapsed),
	}
	if rec != nil {
		// The reported value stays out of the log; only the record ID is kept.
		fields = append(fields, zap.String("record_id", rec.ID), zap.String("operation_type", rec.OperationType))
	}
	logger.Info("key handled", fields...)

	handlers.WriteJSON(w, http.StatusOK, KeyResponse{View: view, Record: rec})
}

// ---------------------------------------------------------------------------
// Handler — key sequence (demonstrates nested spans)
// ---------------------------------------------------------------------------

// Evaluate handles POST /calculator/evaluate: taps a sequence of keys on a
// throwaway session, creating a child span for every key.
func (h *Handler) Evaluate(w http.ResponseWriter, r *http.Request) {
	ctx, span, logger := startSpan(r, "evaluate")
	defer span.End()

	var req EvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		observability.RecordError(ctx, span, logger, errorCounter, "evaluate", "invalid request body", err, http.StatusBadRequest, w)
		return
	}

	if len(req.Keys) == 0 {
		observability.RecordError(ctx, span, logger, errorCounter, "evaluate", "no keys provided", fmt.Errorf("keys array is empty"), http.StatusBadRequest, w)
		return
	}

	keys := make([]Key, len(req.Keys))
	for i, raw := range req.Keys {
		k, err := ParseKey(raw)
		if err != nil {
			observability.RecordError(ctx, span, logger, errorCounter, "evaluate", fmt.Sprintf("key %d: %v", i, err), err, http.StatusBadRequest, w)
			return
		}
		keys[i] = k
	}

	span.SetAttributes(attribute.Int("evaluate.keys_count", len(keys)))

	s := h.sessions.Scratch(req.Force)
	defer s.Close()

	steps := make([]EvaluateStep, 0, len(keys))
	records := []history.Record{}

	for i, k := range keys {
		stepCtx, stepSpan := tracer.Start(ctx, fmt.Sprintf("calculator.evaluate.key.%d", i),
			trace.WithAttributes(
				attribute.Int("evaluate.key.index", i),
				attribute.String("evaluate.key", k.String()),
			),
		)

		rec, err := s.Press(stepCtx, k)
		if err != nil {
			stepSpan.RecordError(err)
			stepSpan.SetStatus(codes.Error, err.Error())
			stepSpan.End()

			observability.RecordError(ctx, span, logger, errorCounter, "evaluate", fmt.Sprintf("failed at key %d", i), err, http.StatusInternalServerError, w)
			return
		}

		display := s.View().Display
		stepSpan.SetAttributes(attribute.String("evaluate.key.display", display))
		stepSpan.SetStatus(codes.Ok, "")
		stepSpan.End()

		if rec != nil {
			records = append(records, *rec)
		}
		steps = append(steps, EvaluateStep{Key: k.String(), Display: display})
	}

	final := s.View()
	span.AddEvent("evaluate.complete", trace.WithAttributes(
		attribute.Int("total_keys", len(keys)),
		attribute.Int("records", len(records)),
	))
	span.SetStatus(codes.Ok, "")

	logger.Info("key sequence evaluated",
		zap.Int("keys", len(keys)),
		zap.Int("records", len(records)),
		zap.String("request_id", observability.RequestIDFromContext(ctx)),
	)

	handlers.WriteJSON(w, http.StatusOK, EvaluateResponse{Steps: steps, Final: final, Records: records})
}

// ---------------------------------------------------------------------------
// Handlers — history
// ---------------------------------------------------------------------------

// ListHistory handles GET /calculator/history?limit=N
func (h *Handler) ListHistory(w http.ResponseWriter, r *http.Request) {
	ctx, span, logger := startSpan(r, "list_history")
	defer span.End()

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			observability.RecordError(ctx, span, logger, errorCounter, "list_history", "invalid limit", fmt.Errorf("limit=%q", v), http.StatusBadRequest, w)
			return
		}
		limit = n
	}

	records, err := h.history.List(ctx, limit)
	if err != nil {
		observability.RecordError(ctx, span, logger, errorCounter, "list_history", "history unavailable", err, http.StatusInternalServerError, w)
		return
	}
	if records == nil {
		records = []history.Record{}
	}

	span.SetAttributes(attribute.Int("history.records", len(records)))
	handlers.WriteJSON(w, http.StatusOK, HistoryResponse{Records: records})
}

// GetRecord handles GET /calculator/history/{recordID}
func (h *Handler) GetRecord(w http.ResponseWriter, r *http.Request) {
	ctx, span, logger := startSpan(r, "get_record")
	defer span.End()

	rec, err := h.history.Get(ctx, chi.URLParam(r, "recordID"))
	if err != nil {
		observability.RecordError(ctx, span, logger, errorCounter, "get_record", "record not found", err, statusFor(err), w)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, rec)
}

// ClearHistory handles DELETE /calculator/history
func (h *Handler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	ctx, span, logger := startSpan(r, "clear_history")
	defer span.End()

	if err := h.history.Clear(ctx); err != nil {
		observability.RecordError(ctx, span, logger, errorCounter, "clear_history", "history unavailable", err, http.StatusInternalServerError, w)
		return
	}

	logger.Info("history cleared", zap.String("request_id", observability.RequestIDFromContext(ctx)))
	w.WriteHeader(http.StatusNoContent)
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

func startSpan(r *http.Request, opName string) (context.Context, trace.Span, *zap.Logger) {
	ctx := r.Context()
	ctx, span := tracer.Start(ctx, "calculator."+opName,
		trace.WithAttributes(
			attribute.String("calculator.operation", opName),
			attribute.String("request.id", observability.RequestIDFromContext(ctx)),
		),
	)
	return ctx, span, observability.LoggerWithTrace(ctx)
}

func (h *Handler) lookupSession(ctx context.Context, span trace.Span, logger *zap.Logger, opName string, w http.ResponseWriter, r *http.Request) (*Session, bool) {
	id := chi.URLParam(r, "sessionID")
	span.SetAttributes(attribute.String("calculator.session_id", id))

	s, err := h.sessions.Get(id)
	if err != nil {
		observability.RecordError(ctx, span, logger, errorCounter, opName, err.Error(), err, statusFor(err), w)
		return nil, false
	}
	return s, true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrSessionNotFound), errors.Is(err, history.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrSessionClosed):
		return http.StatusGone
	case errors.Is(err, ErrUnknownKey):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// decodeOptional decodes a JSON body into dst; an empty body leaves dst untouched.
func decodeOptional(body io.Reader, dst any) error {
	err := json.NewDecoder(body).Decode(dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
