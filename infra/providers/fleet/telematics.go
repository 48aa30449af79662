package fleet

import (
	"context"
	"errors"
	"net/http"

	corefleet "github.com/kilianp07/agriroute/core/fleet"
	"github.com/kilianp07/agriroute/core/model"
	"github.com/kilianp07/agriroute/infra/httpclient"
)

// Authorizer decorates outgoing requests with credentials.
type Authorizer interface {
	SetAuthHeader(r *http.Request) error
}

// Telematics reads the fleet from a telematics provider returning a JSON
// array of vehicles.
type Telematics struct {
	hc     *httpclient.Client
	url    string
	apiKey string
	auth   Authorizer
}

// NewTelematics returns the telematics source.
func NewTelematics(hc *httpclient.Client, url, apiKey string) *Telematics {
	return &Telematics{hc: hc, url: url, apiKey: apiKey}
}

// WithAuth makes every request carry a bearer token from a.
func (t *Telematics) WithAuth(a Authorizer) *Telematics {
	t.auth = a
	return t
}

func (t *Telematics) Name() string { return "telematics" }

func (t *Telematics) Fetch(ctx context.Context, _ Query) ([]model.Vehicle, float64, error) {
	var recs []corefleet.Record
	err := t.hc.DoJSON(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		if t.apiKey != "" {
			req.Header.Set("X-API-Key", t.apiKey)
		}
		if t.auth != nil {
			if err := t.auth.SetAuthHeader(req); err != nil {
				return nil, err
			}
		}
		return req, nil
	}, &recs)
	if err != nil {
		return nil, 0, err
	}
	out := make([]model.Vehicle, 0, len(recs))
	for _, r := range recs {
		v, err := r.Vehicle()
		if err != nil {
			continue
		}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil, 0, errors.New("telematics: empty fleet")
	}
	return out, ConfidenceTelematics, nil
}
