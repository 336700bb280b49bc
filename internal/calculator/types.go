package calculator

import "forcecalc/internal/history"

// KeyResponse is the JSON response for key events.
type KeyResponse struct {
	View
	Record *history.Record `json:"record,omitempty"`
}

// EvaluateRequest is the JSON body for POST /calculator/evaluate.
type EvaluateRequest struct {
	Keys  []string    `json:"keys"`
	Force ForceConfig `json:"force"`
}

// EvaluateStep records the display after one key.
type EvaluateStep struct {
	Key     string `json:"key"`
	Display string `json:"display"`
}

// EvaluateResponse is the JSON response for POST /calculator/evaluate.
type EvaluateResponse struct {
	Steps   []EvaluateStep   `json:"steps"`
	Final   View             `json:"final"`
	Records []history.Record `json:"records"`
}

// HistoryResponse is the JSON response for GET /calculator/history.
type HistoryResponse struct {
	Records []history.Record `json:"records"`
}
