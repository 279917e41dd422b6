package insurance

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/mattw23n/emergency-dispatch-app/pkg/logging"
)

type memStore struct {
	policies map[string]Policy
}

func newMemStore(policies ...Policy) *memStore {
	m := &memStore{policies: make(map[string]Policy)}
	for _, p := range policies {
		m.policies[p.PatientID] = p
	}
	return m
}

func (m *memStore) GetPolicy(_ context.Context, patientID string) (Policy, error) {
	p, ok := m.policies[patientID]
	if !ok {
		return Policy{}, ErrNotFound
	}
	return p, nil
}

func (m *memStore) UpsertPolicy(_ context.Context, p Policy) error {
	m.policies[p.PatientID] = p
	return nil
}

func (m *memStore) DeletePolicy(_ context.Context, patientID string) error {
	if _, ok := m.policies[patientID]; !ok {
		return ErrNotFound
	}
	delete(m.policies, patientID)
	return nil
}

func (m *memStore) ListPolicies(context.Context) ([]Policy, error) {
	var out []Policy
	for _, p := range m.policies {
		out = append(out, p)
	}
	return out, nil
}

func testRouter(store Store) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := logging.NewLogger()
	logger.SetLevel(logging.ErrorLevel)

	router := gin.New()
	NewHandlers(store, logger).RegisterRoutes(router)
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestVerifyCovered(t *testing.T) {
	router := testRouter(newMemStore(Policy{
		PatientID: "P1", ProviderName: "MediShield", CoverageAmountCents: 500000, Active: true,
	}))

	w := doJSON(t, router, http.MethodPost, "/insurance/verify",
		`{"patient_id":"P1","incident_id":"inc-1","amount":150.00}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response: %v", err)
	}
	if resp["verified"] != true {
		t.Errorf("verified = %v, want true", resp["verified"])
	}
	if resp["provider_name"] != "MediShield" {
		t.Errorf("provider = %v, want MediShield", resp["provider_name"])
	}
}

func TestVerifyNoPolicy(t *testing.T) {
	router := testRouter(newMemStore())

	w := doJSON(t, router, http.MethodPost, "/insurance/verify",
		`{"patient_id":"P999","incident_id":"X","amount":50.00}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestVerifyInactivePolicyIsNotFound(t *testing.T) {
	router := testRouter(newMemStore(Policy{
		PatientID: "P2", ProviderName: "MediShield", CoverageAmountCents: 500000, Active: false,
	}))

	w := doJSON(t, router, http.MethodPost, "/insurance/verify",
		`{"patient_id":"P2","incident_id":"inc-1","amount":150.00}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestVerifyInsufficientCoverage(t *testing.T) {
	router := testRouter(newMemStore(Policy{
		PatientID: "P3", ProviderName: "BasicCare", CoverageAmountCents: 2000, Active: true,
	}))

	w := doJSON(t, router, http.MethodPost, "/insurance/verify",
		`{"patient_id":"P3","incident_id":"inc-1","amount":150.00}`)
	if w.Code != http.StatusPaymentRequired {
		t.Fatalf("status = %d, want 402", w.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response: %v", err)
	}
	if resp["coverage_amount"] != 20.0 {
		t.Errorf("coverage_amount = %v, want 20", resp["coverage_amount"])
	}
	if resp["billed_amount"] != 150.0 {
		t.Errorf("billed_amount = %v, want 150", resp["billed_amount"])
	}
}

func TestVerifyMissingFields(t *testing.T) {
	router := testRouter(newMemStore())

	w := doJSON(t, router, http.MethodPost, "/insurance/verify", `{"patient_id":"P1"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestPolicyCRUD(t *testing.T) {
	router := testRouter(newMemStore())

	w := doJSON(t, router, http.MethodPut, "/insurance/policies/P5",
		`{"provider_name":"MediShield","coverage_amount_cents":300000}`)
	if w.Code != http.StatusOK {
		t.Fatalf("upsert status = %d, want 200: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, router, http.MethodGet, "/insurance/policies/P5", "")
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d, want 200", w.Code)
	}
	var policy Policy
	if err := json.Unmarshal(w.Body.Bytes(), &policy); err != nil {
		t.Fatalf("bad policy response: %v", err)
	}
	if !policy.Active {
		t.Error("active should default to true")
	}

	w = doJSON(t, router, http.MethodDelete, "/insurance/policies/P5", "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204", w.Code)
	}

	w = doJSON(t, router, http.MethodGet, "/insurance/policies/P5", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("get after delete status = %d, want 404", w.Code)
	}
}
