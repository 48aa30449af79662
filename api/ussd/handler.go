// Package ussd adapts USSD gateway callbacks to the session machine.
//
// Gateways post form fields sessionId, serviceCode, phoneNumber and text;
// JSON bodies with the same keys are accepted too. The reply is plain text
// starting with CON or END.
package ussd

import (
	"context"
	"encoding/json"
	"mime"
	"net/http"

	"github.com/kilianp07/agriroute/core/logger"
	"github.com/kilianp07/agriroute/core/model"
	"github.com/kilianp07/agriroute/core/session"
)

// TurnHandler advances one session by one turn.
type TurnHandler interface {
	Handle(ctx context.Context, t session.Turn) (session.Reply, error)
}

type callback struct {
	SessionID   string `json:"sessionId"`
	ServiceCode string `json:"serviceCode"`
	PhoneNumber string `json:"phoneNumber"`
	Text        string `json:"text"`
}

// NewHandler serves POST /ussd.
func NewHandler(m TurnHandler, log logger.Logger) http.Handler {
	log = logger.OrNop(log)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		cb, err := parse(w, r)
		if err != nil {
			http.Error(w, "END Invalid request", http.StatusBadRequest)
			return
		}
		reply, err := m.Handle(r.Context(), session.Turn{
			SessionID: cb.SessionID,
			Channel:   cb.PhoneNumber,
			Input:     cb.Text,
		})
		if err != nil {
			if model.IsValidation(err) {
				http.Error(w, session.PrefixEnd+err.Error(), http.StatusBadRequest)
				return
			}
			log.Errorf("ussd session %s: %v", cb.SessionID, err)
			http.Error(w, session.PrefixEnd+"Service unavailable", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(reply.Text))
	})
}

func parse(w http.ResponseWriter, r *http.Request) (callback, error) {
	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "application/json" {
		var cb callback
		err := json.NewDecoder(r.Body).Decode(&cb)
		return cb, err
	}
	if err := r.ParseForm(); err != nil {
		return callback{}, err
	}
	return callback{
		SessionID:   r.PostForm.Get("sessionId"),
		ServiceCode: r.PostForm.Get("serviceCode"),
		PhoneNumber: r.PostForm.Get("phoneNumber"),
		Text:        r.PostForm.Get("text"),
	}, nil
}
