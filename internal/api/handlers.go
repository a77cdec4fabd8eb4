package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"raiserocket/internal/disclosure"
	"raiserocket/internal/intake"
	"raiserocket/internal/logger"
	"raiserocket/internal/mission"
	"raiserocket/internal/models"
	"raiserocket/internal/visitor"
	"raiserocket/internal/waitlist"
)

// maxRequestBytes caps request bodies, uploads included.
const maxRequestBytes = 10 << 20

type MissionManager interface {
	Start(ctx context.Context, visitorID string, record *models.IntakeRecord) mission.Snapshot
	Status(visitorID string) (mission.Snapshot, bool)
	Subscribe(visitorID string) (<-chan mission.Snapshot, func())
	Cancel(visitorID string, generation uint64) bool
}

// Handler wires HTTP routes to the intake store, the per-visitor scans and
// the waitlist.
type Handler struct {
	intake           *intake.Store
	missions         MissionManager
	waitlist         *waitlist.Service
	identity         *visitor.Identity
	log              logger.Logger
	allowTierPreview bool
}

// NewHandler constructs a Handler instance.
func NewHandler(store *intake.Store, missions MissionManager, wl *waitlist.Service, identity *visitor.Identity, log logger.Logger, allowTierPreview bool) *Handler {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Handler{
		intake:           store,
		missions:         missions,
		waitlist:         wl,
		identity:         identity,
		log:              log,
		allowTierPreview: allowTierPreview,
	}
}

// RegisterRoutes attaches all HTTP routes to the router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.SetHTMLTemplate(pageTemplates)
	router.GET("/healthz", h.healthz)

	site := router.Group("/", limitBody(maxRequestBytes), h.identity.Middleware(), h.identity.CSRFMiddleware())
	site.GET("/", h.landingPage)
	site.POST("/waitlist", h.waitlistForm)
	site.GET("/offer-upload", h.offerUploadPage)
	site.POST("/offer-upload", h.offerUploadForm)
	site.GET("/offer-assessment", h.offerAssessmentPage)

	api := site.Group("/api")
	api.GET("/intake", h.getIntake)
	api.POST("/intake", h.saveIntake)
	api.POST("/assessment", h.startAssessment)
	api.GET("/assessment", h.getAssessment)
	api.DELETE("/assessment", h.cancelAssessment)
	api.GET("/assessment/stream", h.streamAssessment)
	api.POST("/upgrade", h.upgrade)
	api.POST("/waitlist", h.joinWaitlist)
}

func (h *Handler) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) visitorID(c *gin.Context) (string, bool) {
	id, ok := visitor.IDFromContext(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "visitor cookie required"})
		return "", false
	}
	return id, true
}

// tier is explorer unless previews are enabled and ?tier= asks otherwise.
func (h *Handler) tier(c *gin.Context) disclosure.Tier {
	if !h.allowTierPreview {
		return disclosure.TierExplorer
	}
	t, err := disclosure.ParseTier(c.Query("tier"))
	if err != nil {
		return disclosure.TierExplorer
	}
	return t
}

var errStorageUnavailable = errors.New("storage unavailable, please retry")

// respondError maps validation failures to 400 and everything else to 503.
func (h *Handler) respondError(c *gin.Context, err error) {
	if intake.IsValidationError(err) || waitlist.IsValidationError(err) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	_ = c.Error(err)
	h.log.WithError(err).Error("request failed", map[string]interface{}{"path": c.FullPath()})
	c.JSON(http.StatusServiceUnavailable, gin.H{"error": errStorageUnavailable.Error()})
}

func limitBody(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		}
		c.Next()
	}
}
