package ussd

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/agriroute/core/model"
	"github.com/kilianp07/agriroute/core/session"
)

type fakeMachine struct {
	turns []session.Turn
	reply session.Reply
	err   error
}

func (f *fakeMachine) Handle(_ context.Context, t session.Turn) (session.Reply, error) {
	f.turns = append(f.turns, t)
	return f.reply, f.err
}

func TestHandlerForm(t *testing.T) {
	m := &fakeMachine{reply: session.Reply{Text: "CON Welcome"}}
	form := url.Values{"sessionId": {"s1"}, "phoneNumber": {"+263771"}, "text": {"1*2"}, "serviceCode": {"*384*765#"}}
	req := httptest.NewRequest(http.MethodPost, "/ussd", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	NewHandler(m, nil).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "CON Welcome", rr.Body.String())
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/plain")
	require.Len(t, m.turns, 1)
	assert.Equal(t, session.Turn{SessionID: "s1", Channel: "+263771", Input: "1*2"}, m.turns[0])
}

func TestHandlerJSON(t *testing.T) {
	m := &fakeMachine{reply: session.Reply{Text: "END Bye", Terminal: true}}
	req := httptest.NewRequest(http.MethodPost, "/ussd", strings.NewReader(`{"sessionId":"s2","phoneNumber":"+1","text":""}`))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	rr := httptest.NewRecorder()
	NewHandler(m, nil).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "END Bye", rr.Body.String())
	assert.Equal(t, "s2", m.turns[0].SessionID)
}

func TestHandlerErrors(t *testing.T) {
	rr := httptest.NewRecorder()
	NewHandler(&fakeMachine{}, nil).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ussd", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)

	req := httptest.NewRequest(http.MethodPost, "/ussd", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	rr = httptest.NewRecorder()
	NewHandler(&fakeMachine{}, nil).ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	req = httptest.NewRequest(http.MethodPost, "/ussd", strings.NewReader("text=1"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr = httptest.NewRecorder()
	NewHandler(&fakeMachine{err: model.NewValidationError("session_id", "is required")}, nil).ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.True(t, strings.HasPrefix(rr.Body.String(), session.PrefixEnd))

	req = httptest.NewRequest(http.MethodPost, "/ussd", strings.NewReader("sessionId=x"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr = httptest.NewRecorder()
	NewHandler(&fakeMachine{err: errors.New("boom")}, nil).ServeHTTP(rr, req)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}
