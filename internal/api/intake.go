package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"raiserocket/internal/intake"
	"raiserocket/internal/metrics"
	"raiserocket/internal/models"
)

type intakeRequest struct {
	Method       string `json:"method"`
	OfferDetails string `json:"offerDetails"`
	FileName     string `json:"fileName"`
	Draft        bool   `json:"draft"`
}

func (r intakeRequest) record() *models.IntakeRecord {
	switch models.IntakeMethod(strings.ToLower(strings.TrimSpace(r.Method))) {
	case models.MethodManual:
		return models.ManualIntake(r.OfferDetails)
	case models.MethodUpload:
		return models.UploadIntake(baseName(r.FileName))
	default:
		return &models.IntakeRecord{Method: models.IntakeMethod(r.Method)}
	}
}

func (h *Handler) getIntake(c *gin.Context) {
	visitorID, ok := h.visitorID(c)
	if !ok {
		return
	}
	rec, found := h.intake.Slot(visitorID).Load(c.Request.Context())
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "no mission parameters saved"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"record": rec})
}

func (h *Handler) saveIntake(c *gin.Context) {
	visitorID, ok := h.visitorID(c)
	if !ok {
		return
	}
	var req intakeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	rec := req.record()
	if err := h.storeIntake(c, visitorID, rec, req.Draft); err != nil {
		h.respondError(c, err)
		return
	}
	if req.Draft {
		c.JSON(http.StatusOK, gin.H{"record": rec, "saved": true})
		return
	}
	c.JSON(http.StatusOK, gin.H{"record": rec, "redirect": "/offer-assessment"})
}

// storeIntake validates and persists rec. A rejected submission leaves the
// stored value untouched.
func (h *Handler) storeIntake(c *gin.Context, visitorID string, rec *models.IntakeRecord, draft bool) error {
	validate, kind := intake.ValidateSubmission, "submit"
	if draft {
		validate, kind = intake.ValidateDraft, "draft"
	}
	method := string(rec.Method)
	if rec.Method != models.MethodManual && rec.Method != models.MethodUpload {
		method = "unknown"
	}
	if err := validate(rec); err != nil {
		metrics.IntakeSubmissions.WithLabelValues(method, "rejected").Inc()
		return err
	}
	if err := h.intake.Slot(visitorID).Save(c.Request.Context(), rec); err != nil {
		metrics.IntakeSubmissions.WithLabelValues(method, "failed").Inc()
		return err
	}
	result := "saved"
	if draft {
		result = "draft"
	}
	metrics.IntakeSubmissions.WithLabelValues(method, result).Inc()
	h.log.Debug("intake stored", map[string]interface{}{"visitor": visitorID, "method": method, "kind": kind})
	return nil
}

// baseName keeps only the last path element of a client-supplied file name.
func baseName(name string) string {
	name = strings.TrimSpace(name)
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	return name
}
