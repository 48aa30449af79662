// Package sms adapts inbound SMS webhooks to the quote processor.
//
// Gateways post form fields from and text; JSON bodies with the same keys
// are accepted too. The reply is JSON: {"response": {...}}.
package sms

import (
	"context"
	"encoding/json"
	"errors"
	"mime"
	"net/http"

	"github.com/kilianp07/agriroute/core/logger"
	"github.com/kilianp07/agriroute/core/model"
	coresms "github.com/kilianp07/agriroute/core/sms"
)

// Replier answers one inbound message.
type Replier interface {
	Handle(ctx context.Context, msg coresms.Message) (coresms.Reply, error)
}

type response struct {
	Response coresms.Reply `json:"response"`
	Error    string        `json:"error,omitempty"`
}

// NewHandler serves POST /sms.
func NewHandler(p Replier, log logger.Logger) http.Handler {
	log = logger.OrNop(log)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		msg, err := parse(w, r)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, response{Error: "invalid request"})
			return
		}
		reply, err := p.Handle(r.Context(), msg)
		if err != nil {
			var ve *model.ValidationError
			if errors.As(err, &ve) {
				writeJSON(w, http.StatusBadRequest, response{Error: ve.Error()})
				return
			}
			log.Errorf("sms from %s: %v", msg.From, err)
			writeJSON(w, http.StatusInternalServerError, response{
				Response: coresms.Reply{To: msg.From, Message: "Service temporarily unavailable", Status: coresms.StatusError},
			})
			return
		}
		writeJSON(w, http.StatusOK, response{Response: reply})
	})
}

func parse(w http.ResponseWriter, r *http.Request) (coresms.Message, error) {
	r.Body = http.MaxBytesReader(w, r.Body, 16<<10)
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "application/json" {
		var msg coresms.Message
		err := json.NewDecoder(r.Body).Decode(&msg)
		return msg, err
	}
	if err := r.ParseForm(); err != nil {
		return coresms.Message{}, err
	}
	return coresms.Message{From: r.PostForm.Get("from"), Text: r.PostForm.Get("text")}, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
