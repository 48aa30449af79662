package fleet

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	corefleet "github.com/kilianp07/agriroute/core/fleet"
	"github.com/kilianp07/agriroute/core/model"
)

func seeded() *corefleet.Store {
	store := corefleet.NewStore(nil)
	store.Upsert(model.Vehicle{ID: "v1", CapacityKG: 1000, Status: model.StatusAvailable, Type: model.TypeGeneralTruck})
	store.Upsert(model.Vehicle{ID: "v2", CapacityKG: 500, Status: model.StatusBusy, Type: model.TypeVan})
	return store
}

func TestStatusHandler_Basic(t *testing.T) {
	h := NewStatusHandler(seeded())
	rr := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/fleet", nil)
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	var out []model.Vehicle
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 2 || out[0].ID != "v1" {
		t.Fatalf("unexpected output %#v", out)
	}
}

func TestStatusHandler_Filter(t *testing.T) {
	h := NewStatusHandler(seeded())
	rr := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/fleet?status=busy", nil)
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	var out []model.Vehicle
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 1 || out[0].ID != "v2" {
		t.Fatalf("unexpected filter result %#v", out)
	}
}

func TestStatusHandler_FilterType(t *testing.T) {
	h := NewStatusHandler(seeded())
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/api/fleet?type=general_truck", nil))
	var out []model.Vehicle
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 1 || out[0].ID != "v1" {
		t.Fatalf("unexpected filter result %#v", out)
	}
}

func TestStatusHandler_EmptyIsArray(t *testing.T) {
	h := NewStatusHandler(corefleet.NewStore(nil))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/api/fleet", nil))
	if got := rr.Body.String(); got != "[]\n" {
		t.Fatalf("unexpected body %q", got)
	}
}

func TestStatusHandler_BadRequest(t *testing.T) {
	h := NewStatusHandler(seeded())
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/api/fleet?status=flying", nil))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rr.Code)
	}
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("POST", "/api/fleet", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 got %d", rr.Code)
	}
}
