// Package decision exposes the decision engine over HTTP.
package decision

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	coredecision "github.com/kilianp07/agriroute/core/decision"
	"github.com/kilianp07/agriroute/core/model"
)

// MaxBodyBytes bounds request bodies.
const MaxBodyBytes = 1 << 20

// MaxBatch bounds the number of requests in one batch call.
const MaxBatch = 100

// Decider is the engine seen by the handlers.
type Decider interface {
	Decide(ctx context.Context, req coredecision.Request) (coredecision.Response, error)
	DecideBatch(ctx context.Context, reqs []coredecision.Request) ([]coredecision.BatchItem, error)
}

// BatchRequest is the body of POST /api/decision/batch.
type BatchRequest struct {
	Requests []coredecision.Request `json:"requests"`
}

// BatchResponse answers a batch call in request order.
type BatchResponse struct {
	Results []coredecision.BatchItem `json:"results"`
}

type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// NewHandler serves POST /api/decision.
func NewHandler(d Decider) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req coredecision.Request
		if err := decode(w, r, &req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
			return
		}
		resp, err := d.Decide(r.Context(), req)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	})
}

// NewBatchHandler serves POST /api/decision/batch. Invalid entries are
// reported per item; the call itself succeeds.
func NewBatchHandler(d Decider) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var body BatchRequest
		if err := decode(w, r, &body); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
			return
		}
		if len(body.Requests) == 0 {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "requests must not be empty", Field: "requests"})
			return
		}
		if len(body.Requests) > MaxBatch {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: "too many requests", Field: "requests"})
			return
		}
		items, err := d.DecideBatch(r.Context(), body.Requests)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, BatchResponse{Results: items})
	})
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return errors.New("malformed JSON body")
	}
	return nil
}

func writeError(w http.ResponseWriter, err error) {
	var ve *model.ValidationError
	if errors.As(err, &ve) {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: ve.Error(), Field: ve.Field})
		return
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
