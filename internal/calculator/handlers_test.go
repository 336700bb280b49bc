package calculator

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"forcecalc/internal/history"
	"forcecalc/internal/observability"
	"forcecalc/internal/testutil"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func newTestAPI(t *testing.T) (http.Handler, *Sessions, *history.Memory) {
	t.Helper()

	observability.Logger = zap.NewNop()

	store := history.NewMemory()
	sessions := NewSessions(Options{History: store})
	t.Cleanup(sessions.Close)

	r := chi.NewRouter()
	RegisterRoutes(r, NewHandler(sessions, store))
	return r, sessions, store
}

func post(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	return testutil.ExecuteRequest(testutil.NewJSONRequest(http.MethodPost, path, body), h)
}

func TestEvaluateKeySequence(t *testing.T) {
	h, _, store := newTestAPI(t)

	w := post(t, h, "/calculator/evaluate", `{"keys":["7","+","3","="],"force":{"forced_number":42,"second_force_number":99,"second_force_trigger_number":7}}`)
	testutil.CheckResponseCode(t, http.StatusOK, w.Code)

	var resp EvaluateResponse
	testutil.DecodeJSONBody(t, w.Body, &resp)

	if len(resp.Steps) != 4 {
		t.Fatalf("expected 4 steps, got %d", len(resp.Steps))
	}
	if resp.Steps[2].Display != "3" {
		t.Fatalf("expected display 3 after third key, got %q", resp.Steps[2].Display)
	}
	if resp.Final.Display != "99" {
		t.Fatalf("expected forced display 99, got %q", resp.Final.Display)
	}
	if len(resp.Records) != 1 || resp.Records[0].ActualResult != 10 {
		t.Fatalf("expected one record with actual 10, got %+v", resp.Records)
	}

	stored, _ := store.List(context.Background(), 0)
	if len(stored) != 1 {
		t.Fatalf("expected evaluated record in history, got %d", len(stored))
	}
}

func TestEvaluateRejectsBadInput(t *testing.T) {
	h, _, _ := newTestAPI(t)

	tests := map[string]string{
		"empty keys":  `{"keys":[]}`,
		"unknown key": `{"keys":["1","^"]}`,
		"bad json":    `{"keys":`,
	}

	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			w := post(t, h, "/calculator/evaluate", body)
			testutil.CheckResponseCode(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestSessionKeyDownUpAndForce(t *testing.T) {
	h, _, _ := newTestAPI(t)

	w := post(t, h, "/calculator/sessions", "")
	testutil.CheckResponseCode(t, http.StatusCreated, w.Code)

	var view View
	testutil.DecodeJSONBody(t, w.Body, &view)
	base := "/calculator/sessions/" + view.ID

	req := testutil.NewJSONRequest(http.MethodPut, base+"/force", `{"forced_number":1089}`)
	testutil.CheckResponseCode(t, http.StatusOK, testutil.ExecuteRequest(req, h).Code)

	for _, step := range []string{"/keys/4", "/keys/+/down", "/keys/+/up", "/keys/5", "/keys/=/down", "/keys/=/up"} {
		w := post(t, h, base+step, "")
		testutil.CheckResponseCode(t, http.StatusOK, w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, base, nil)
	w = testutil.ExecuteRequest(req, h)
	testutil.CheckResponseCode(t, http.StatusOK, w.Code)
	testutil.DecodeJSONBody(t, w.Body, &view)

	if view.Display != "1089" {
		t.Fatalf("expected forced 1089, got %q", view.Display)
	}
}

func TestSessionEscapedOperatorKey(t *testing.T) {
	h, _, _ := newTestAPI(t)

	var view View
	testutil.DecodeJSONBody(t, post(t, h, "/calculator/sessions", "").Body, &view)
	base := "/calculator/sessions/" + view.ID

	post(t, h, base+"/keys/6", "")
	w := post(t, h, base+"/keys/"+url.PathEscape("×"), "")
	testutil.CheckResponseCode(t, http.StatusOK, w.Code)

	var resp KeyResponse
	testutil.DecodeJSONBody(t, w.Body, &resp)
	if resp.Operator == nil || *resp.Operator != OpMultiply {
		t.Fatalf("expected pending ×, got %v", resp.Operator)
	}
}

func TestSessionErrors(t *testing.T) {
	h, _, _ := newTestAPI(t)

	var view View
	testutil.DecodeJSONBody(t, post(t, h, "/calculator/sessions", "").Body, &view)
	base := "/calculator/sessions/" + view.ID

	testutil.CheckResponseCode(t, http.StatusBadRequest, post(t, h, base+"/keys/nope", "").Code)
	testutil.CheckResponseCode(t, http.StatusNotFound, post(t, h, "/calculator/sessions/missing/keys/1", "").Code)

	req := httptest.NewRequest(http.MethodDelete, base, nil)
	testutil.CheckResponseCode(t, http.StatusNoContent, testutil.ExecuteRequest(req, h).Code)
	testutil.CheckResponseCode(t, http.StatusNotFound, post(t, h, base+"/keys/1", "").Code)
}

func TestHistoryEndpoints(t *testing.T) {
	h, _, _ := newTestAPI(t)

	post(t, h, "/calculator/evaluate", `{"keys":["1","9","9","0","="]}`)
	post(t, h, "/calculator/evaluate", `{"keys":["2","+","2","="]}`)

	w := testutil.ExecuteRequest(httptest.NewRequest(http.MethodGet, "/calculator/history?limit=1", nil), h)
	testutil.CheckResponseCode(t, http.StatusOK, w.Code)

	var list HistoryResponse
	testutil.DecodeJSONBody(t, w.Body, &list)
	if len(list.Records) != 1 || list.Records[0].OperationType != "+" {
		t.Fatalf("expected newest record only, got %+v", list.Records)
	}

	id := list.Records[0].ID
	w = testutil.ExecuteRequest(httptest.NewRequest(http.MethodGet, "/calculator/history/"+id, nil), h)
	testutil.CheckResponseCode(t, http.StatusOK, w.Code)

	w = testutil.ExecuteRequest(httptest.NewRequest(http.MethodGet, "/calculator/history?limit=x", nil), h)
	testutil.CheckResponseCode(t, http.StatusBadRequest, w.Code)

	w = testutil.ExecuteRequest(httptest.NewRequest(http.MethodDelete, "/calculator/history", nil), h)
	testutil.CheckResponseCode(t, http.StatusNoContent, w.Code)

	w = testutil.ExecuteRequest(httptest.NewRequest(http.MethodGet, "/calculator/history/"+id, nil), h)
	testutil.CheckResponseCode(t, http.StatusNotFound, w.Code)

	w = testutil.ExecuteRequest(httptest.NewRequest(http.MethodGet, "/calculator/history", nil), h)
	testutil.DecodeJSONBody(t, w.Body, &list)
	if list.Records == nil || len(list.Records) != 0 {
		t.Fatalf("expected empty records array, got %#v", list.Records)
	}
}
