package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"forcecalc/internal/calculator"
	"forcecalc/internal/history"
	"forcecalc/internal/observability"
	"forcecalc/internal/testutil"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func newTestRouter(t *testing.T) (http.Handler, *history.Memory) {
	t.Helper()

	observability.Logger = zap.NewNop()
	if err := calculator.InitMetrics(); err != nil {
		t.Fatalf("initializing calculator metrics: %v", err)
	}

	store := history.NewMemory()
	sessions := calculator.NewSessions(calculator.Options{History: store})
	t.Cleanup(sessions.Close)

	return NewRouter(calculator.NewHandler(sessions, store)), store
}

func TestNewRouterHealthEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	if body := w.Body.String(); body != "ok" {
		t.Fatalf("expected body %q, got %q", "ok", body)
	}
}

func TestNewRouterSessionTapsSetHeaderAndOmitRequestIDInBody(t *testing.T) {
	router, store := newTestRouter(t)

	body := []byte(`{"forced_number":42}`)
	req := httptest.NewRequest(http.MethodPost, "/calculator/sessions", bytes.NewReader(body))
	w := testutil.ExecuteRequest(req, router)
	testutil.CheckResponseCode(t, http.StatusCreated, w.Code)

	var view calculator.View
	testutil.DecodeJSONBody(t, w.Body, &view)
	if view.Display != "0" {
		t.Fatalf("expected display 0, got %q", view.Display)
	}

	var payload map[string]any
	for _, key := range []string{"5", "+", "3", "="} {
		req := httptest.NewRequest(http.MethodPost, "/calculator/sessions/"+view.ID+"/keys/"+key, nil)
		w := testutil.ExecuteRequest(req, router)
		testutil.CheckResponseCode(t, http.StatusOK, w.Code)

		requestID := w.Result().Header.Get("X-Request-ID")
		if _, err := uuid.Parse(requestID); err != nil {
			t.Fatalf("expected valid UUID in X-Request-ID, got %q: %v", requestID, err)
		}

		payload = map[string]any{}
		testutil.DecodeJSONBody(t, w.Body, &payload)
	}

	if _, ok := payload["request_id"]; ok {
		t.Fatal("did not expect request_id field in success JSON body")
	}
	if got := payload["display"]; got != "42" {
		t.Fatalf("expected forced display 42, got %#v", got)
	}

	rec, ok := payload["record"].(map[string]any)
	if !ok {
		t.Fatalf("expected record in equals response, got %#v", payload["record"])
	}
	if rec["actualResult"] != float64(8) || rec["forced"] != true {
		t.Fatalf("expected actualResult 8 and forced, got %#v", rec)
	}

	records, _ := store.List(req.Context(), 0)
	if len(records) != 1 {
		t.Fatalf("expected 1 stored record, got %d", len(records))
	}
}

func TestNewRouterUnknownSessionReturns404(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/calculator/sessions/nope/keys/1", nil)
	w := testutil.ExecuteRequest(req, router)
	testutil.CheckResponseCode(t, http.StatusNotFound, w.Code)

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decoding JSON response: %v", err)
	}
	if body["error"] != calculator.ErrSessionNotFound.Error() {
		t.Fatalf("expected %q, got %q", calculator.ErrSessionNotFound.Error(), body["error"])
	}
}
