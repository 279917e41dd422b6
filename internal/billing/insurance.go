package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/mattw23n/emergency-dispatch-app/pkg/events"
)

// VerifyCode classifies the insurance service's answer.
type VerifyCode int

const (
	VerifyOK VerifyCode = iota
	VerifyNoPolicy
	VerifyInsufficientCoverage
	VerifyServiceUnavailable
	VerifyServiceError
)

func (c VerifyCode) String() string {
	switch c {
	case VerifyOK:
		return "OK"
	case VerifyNoPolicy:
		return "NO_POLICY"
	case VerifyInsufficientCoverage:
		return "INSUFFICIENT_COVERAGE"
	case VerifyServiceUnavailable:
		return "SERVICE_UNAVAILABLE"
	default:
		return "SERVICE_ERROR"
	}
}

// VerifyOutcome carries the classification plus the service's message.
type VerifyOutcome struct {
	Code    VerifyCode
	Message string
}

// InsuranceVerifier answers coverage queries.
type InsuranceVerifier interface {
	Verify(ctx context.Context, patientID, incidentID string, amountCents int64) VerifyOutcome
}

// HTTPInsuranceClient calls the insurance service's verify endpoint.
type HTTPInsuranceClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewHTTPInsuranceClient(baseURL string) *HTTPInsuranceClient {
	return &HTTPInsuranceClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type verifyRequest struct {
	PatientID  string  `json:"patient_id"`
	IncidentID string  `json:"incident_id"`
	Amount     float64 `json:"amount"`
}

type verifyResponse struct {
	Verified bool   `json:"verified"`
	Message  string `json:"message"`
}

// Verify posts the claim and classifies the response. Network errors and
// timeouts map to SERVICE_UNAVAILABLE rather than an error return because
// every non-OK outcome takes the same compensation path.
func (c *HTTPInsuranceClient) Verify(ctx context.Context, patientID, incidentID string, amountCents int64) VerifyOutcome {
	body, err := json.Marshal(verifyRequest{
		PatientID:  patientID,
		IncidentID: incidentID,
		Amount:     events.CentsToDollars(amountCents),
	})
	if err != nil {
		return VerifyOutcome{VerifyServiceError, err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/insurance/verify", bytes.NewReader(body))
	if err != nil {
		return VerifyOutcome{VerifyServiceError, err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return VerifyOutcome{VerifyServiceUnavailable, err.Error()}
	}
	defer resp.Body.Close()

	var parsed verifyResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&parsed)

	switch resp.StatusCode {
	case http.StatusOK:
		if decodeErr != nil {
			return VerifyOutcome{VerifyServiceError, fmt.Sprintf("bad verify response: %v", decodeErr)}
		}
		if !parsed.Verified {
			return VerifyOutcome{VerifyServiceError, parsed.Message}
		}
		return VerifyOutcome{VerifyOK, parsed.Message}
	case http.StatusNotFound:
		return VerifyOutcome{VerifyNoPolicy, parsed.Message}
	case http.StatusPaymentRequired:
		return VerifyOutcome{VerifyInsufficientCoverage, parsed.Message}
	default:
		return VerifyOutcome{VerifyServiceError, fmt.Sprintf("insurance service returned status %d", resp.StatusCode)}
	}
}
