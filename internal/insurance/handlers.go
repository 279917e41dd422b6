// Package insurance answers coverage queries and manages policy records
// over HTTP.
package insurance

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mattw23n/emergency-dispatch-app/pkg/events"
	"github.com/mattw23n/emergency-dispatch-app/pkg/logging"
)

// Handlers serves the policy CRUD and verification endpoints.
type Handlers struct {
	store  Store
	logger logging.Logger
}

func NewHandlers(store Store, logger logging.Logger) *Handlers {
	return &Handlers{store: store, logger: logger}
}

// RegisterRoutes mounts the insurance API on the router.
func (h *Handlers) RegisterRoutes(r gin.IRouter) {
	r.POST("/insurance/verify", h.Verify)
	r.GET("/insurance/policies", h.ListPolicies)
	r.GET("/insurance/policies/:patient_id", h.GetPolicy)
	r.PUT("/insurance/policies/:patient_id", h.UpsertPolicy)
	r.DELETE("/insurance/policies/:patient_id", h.DeletePolicy)
}

type verifyRequest struct {
	PatientID  string  `json:"patient_id" binding:"required"`
	IncidentID string  `json:"incident_id" binding:"required"`
	Amount     float64 `json:"amount" binding:"required"`
}

// Verify checks coverage for a billed amount. 200 when covered, 404 when
// the patient has no active policy, 402 when coverage is insufficient.
func (h *Handlers) Verify(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "patient_id, incident_id and amount are required"})
		return
	}

	policy, err := h.store.GetPolicy(c.Request.Context(), req.PatientID)
	if err == ErrNotFound {
		c.JSON(http.StatusNotFound, gin.H{
			"verified": false,
			"message":  "no active policy for patient",
		})
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Policy lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "policy lookup failed"})
		return
	}
	if !policy.Active {
		c.JSON(http.StatusNotFound, gin.H{
			"verified": false,
			"message":  "policy is inactive",
		})
		return
	}

	billedCents := events.DollarsToCents(req.Amount)
	if policy.CoverageAmountCents < billedCents {
		c.JSON(http.StatusPaymentRequired, gin.H{
			"verified":        false,
			"message":         "coverage amount exceeded",
			"coverage_amount": events.CentsToDollars(policy.CoverageAmountCents),
			"billed_amount":   req.Amount,
		})
		return
	}

	h.logger.WithFields(logging.Fields{
		"patient_id":  req.PatientID,
		"incident_id": req.IncidentID,
	}).Info("Coverage verified")
	c.JSON(http.StatusOK, gin.H{
		"verified":        true,
		"coverage_amount": events.CentsToDollars(policy.CoverageAmountCents),
		"provider_name":   policy.ProviderName,
		"message":         "coverage verified",
	})
}

func (h *Handlers) ListPolicies(c *gin.Context) {
	policies, err := h.store.ListPolicies(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Policy list failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "policy list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"policies": policies})
}

func (h *Handlers) GetPolicy(c *gin.Context) {
	policy, err := h.store.GetPolicy(c.Request.Context(), c.Param("patient_id"))
	if err == ErrNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "policy not found"})
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Policy lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "policy lookup failed"})
		return
	}
	c.JSON(http.StatusOK, policy)
}

type upsertRequest struct {
	ProviderName        string `json:"provider_name" binding:"required"`
	CoverageAmountCents int64  `json:"coverage_amount_cents" binding:"required"`
	Active              *bool  `json:"active"`
}

func (h *Handlers) UpsertPolicy(c *gin.Context) {
	var req upsertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "provider_name and coverage_amount_cents are required"})
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}
	policy := Policy{
		PatientID:           c.Param("patient_id"),
		ProviderName:        req.ProviderName,
		CoverageAmountCents: req.CoverageAmountCents,
		Active:              active,
	}
	if err := h.store.UpsertPolicy(c.Request.Context(), policy); err != nil {
		h.logger.WithError(err).Error("Policy upsert failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "policy upsert failed"})
		return
	}
	c.JSON(http.StatusOK, policy)
}

func (h *Handlers) DeletePolicy(c *gin.Context) {
	err := h.store.DeletePolicy(c.Request.Context(), c.Param("patient_id"))
	if err == ErrNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "policy not found"})
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Policy delete failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "policy delete failed"})
		return
	}
	c.Status(http.StatusNoContent)
}
