package api

import (
	"embed"
	"html/template"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"raiserocket/internal/disclosure"
	"raiserocket/internal/intake"
	"raiserocket/internal/models"
	"raiserocket/internal/visitor"
	"raiserocket/internal/waitlist"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var pageTemplates = template.Must(template.New("pages").ParseFS(templateFS, "templates/*.tmpl"))

type landingData struct {
	CSRFToken string
	Email     string
	Error     string
	Joined    bool
	Already   bool
	Prompt    disclosure.Prompt
}

type uploadData struct {
	CSRFToken    string
	Method       string
	OfferDetails string
	FileName     string
	MinLength    int
	Error        string
	Notice       string
}

type assessmentData struct {
	CSRFToken string
	Tier      disclosure.Tier
	TierQuery string
	Scan      assessmentResponse
}

func (h *Handler) landingPage(c *gin.Context) {
	c.HTML(http.StatusOK, "index.tmpl", landingData{
		CSRFToken: visitor.CSRFTokenFromContext(c),
		Prompt:    disclosure.UpgradePrompt(),
	})
}

func (h *Handler) waitlistForm(c *gin.Context) {
	data := landingData{
		CSRFToken: visitor.CSRFTokenFromContext(c),
		Email:     c.PostForm("email"),
		Prompt:    disclosure.UpgradePrompt(),
	}
	_, already, err := h.waitlist.Join(c.Request.Context(), data.Email, "landing")
	switch {
	case err == nil:
		data.Joined, data.Already = true, already
		c.HTML(http.StatusOK, "index.tmpl", data)
	case waitlist.IsValidationError(err):
		data.Error = err.Error()
		c.HTML(http.StatusBadRequest, "index.tmpl", data)
	default:
		h.log.WithError(err).Error("waitlist join failed", nil)
		data.Error = errStorageUnavailable.Error()
		c.HTML(http.StatusServiceUnavailable, "index.tmpl", data)
	}
}

func (h *Handler) offerUploadPage(c *gin.Context) {
	visitorID, ok := h.visitorID(c)
	if !ok {
		return
	}
	data := uploadData{
		CSRFToken: visitor.CSRFTokenFromContext(c),
		Method:    string(models.MethodManual),
		MinLength: intake.MinOfferDetailsLength,
	}
	if rec, found := h.intake.Slot(visitorID).Load(c.Request.Context()); found {
		data.Method = string(rec.Method)
		data.OfferDetails = rec.OfferDetails
		data.FileName = rec.FileName
	}
	c.HTML(http.StatusOK, "offer-upload.tmpl", data)
}

// offerUploadForm handles both buttons of the intake form. Only the name of
// an uploaded file is kept; its content is never opened.
func (h *Handler) offerUploadForm(c *gin.Context) {
	visitorID, ok := h.visitorID(c)
	if !ok {
		return
	}
	req := intakeRequest{
		Method:       c.PostForm("method"),
		OfferDetails: c.PostForm("offerDetails"),
		Draft:        c.PostForm("action") == "save",
	}
	if header, err := c.FormFile("offerFile"); err == nil {
		req.FileName = header.Filename
	}
	rec := req.record()

	err := h.storeIntake(c, visitorID, rec, req.Draft)
	switch {
	case err == nil && req.Draft:
		h.renderUpload(c, http.StatusOK, req, "", "Progress saved!")
	case err == nil:
		c.Redirect(http.StatusSeeOther, "/offer-assessment")
	case intake.IsValidationError(err):
		h.renderUpload(c, http.StatusBadRequest, req, err.Error(), "")
	default:
		h.log.WithError(err).Error("intake save failed", map[string]interface{}{"visitor": visitorID})
		h.renderUpload(c, http.StatusServiceUnavailable, req, errStorageUnavailable.Error(), "")
	}
}

func (h *Handler) renderUpload(c *gin.Context, status int, req intakeRequest, errMsg, notice string) {
	method := strings.ToLower(strings.TrimSpace(req.Method))
	if method != string(models.MethodUpload) {
		method = string(models.MethodManual)
	}
	c.HTML(status, "offer-upload.tmpl", uploadData{
		CSRFToken:    visitor.CSRFTokenFromContext(c),
		Method:       method,
		OfferDetails: req.OfferDetails,
		FileName:     baseName(req.FileName),
		MinLength:    intake.MinOfferDetailsLength,
		Error:        errMsg,
		Notice:       notice,
	})
}

// offerAssessmentPage mounts the report view: no record means back to the
// intake view, otherwise the scan restarts from stage 0.
func (h *Handler) offerAssessmentPage(c *gin.Context) {
	visitorID, ok := h.visitorID(c)
	if !ok {
		return
	}
	rec, found := h.intake.Slot(visitorID).Load(c.Request.Context())
	if !found {
		c.Redirect(http.StatusFound, intakePath)
		return
	}
	tier := h.tier(c)
	snap := h.missions.Start(c.Request.Context(), visitorID, rec)
	tierQuery := ""
	if tier != disclosure.TierExplorer {
		tierQuery = "?tier=" + string(tier)
	}
	c.HTML(http.StatusOK, "offer-assessment.tmpl", assessmentData{
		CSRFToken: visitor.CSRFTokenFromContext(c),
		Tier:      tier,
		TierQuery: tierQuery,
		Scan:      newAssessmentResponse(snap, tier),
	})
}
