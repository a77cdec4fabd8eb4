package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"raiserocket/internal/disclosure"
	"raiserocket/internal/metrics"
	"raiserocket/internal/mission"
)

const intakePath = "/offer-upload"

type assessmentResponse struct {
	Scan mission.Snapshot `json:"scan"`
	View *disclosure.View `json:"view,omitempty"`
}

func newAssessmentResponse(snap mission.Snapshot, tier disclosure.Tier) assessmentResponse {
	resp := assessmentResponse{Scan: snap}
	if snap.Status == mission.StatusComplete && snap.Report != nil {
		view := disclosure.Render(snap.Report, tier)
		resp.View = &view
	}
	return resp
}

type advanceEvent struct {
	Generation uint64 `json:"generation"`
	StageIndex int    `json:"stageIndex"`
	StageCount int    `json:"stageCount"`
	Message    string `json:"message"`
	Progress   int    `json:"progress"`
}

// startAssessment (re)starts the visitor's scan. Without an intake record
// nothing is started and the client is sent back to the intake view.
func (h *Handler) startAssessment(c *gin.Context) {
	visitorID, ok := h.visitorID(c)
	if !ok {
		return
	}
	rec, found := h.intake.Slot(visitorID).Load(c.Request.Context())
	if !found {
		c.JSON(http.StatusConflict, gin.H{"error": "no mission parameters saved", "redirect": intakePath})
		return
	}
	snap := h.missions.Start(c.Request.Context(), visitorID, rec)
	c.JSON(http.StatusAccepted, newAssessmentResponse(snap, h.tier(c)))
}

func (h *Handler) getAssessment(c *gin.Context) {
	visitorID, ok := h.visitorID(c)
	if !ok {
		return
	}
	snap, found := h.missions.Status(visitorID)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "no assessment started"})
		return
	}
	c.JSON(http.StatusOK, newAssessmentResponse(snap, h.tier(c)))
}

// cancelAssessment tears down the visitor's scan. The report view sends the
// generation it was rendered with; without one the current scan is stopped.
func (h *Handler) cancelAssessment(c *gin.Context) {
	visitorID, ok := h.visitorID(c)
	if !ok {
		return
	}
	var generation uint64
	if raw := c.Query("generation"); raw != "" {
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid generation"})
			return
		}
		generation = n
	}
	c.JSON(http.StatusOK, gin.H{"cancelled": h.missions.Cancel(visitorID, generation)})
}

// streamAssessment emits one advance event per stage and a single terminal
// event (complete, cancelled or error).
func (h *Handler) streamAssessment(c *gin.Context) {
	visitorID, ok := h.visitorID(c)
	if !ok {
		return
	}
	if _, found := h.missions.Status(visitorID); !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "no assessment started"})
		return
	}
	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming not supported"})
		return
	}
	tier := h.tier(c)

	updates, unsubscribe := h.missions.Subscribe(visitorID)
	defer unsubscribe()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	sendEvent := func(event string, payload interface{}) error {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", event, data); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}
	flusher.Flush()

	ctx := c.Request.Context()
	lastGen, lastStage := uint64(0), -1
	for {
		select {
		case <-ctx.Done():
			return
		case snap, open := <-updates:
			if !open {
				return
			}
			switch snap.Status {
			case mission.StatusScanning:
				// placeholder published before stage 0 fires
				if snap.Progress == 0 {
					continue
				}
				if snap.Generation == lastGen && snap.StageIndex == lastStage {
					continue
				}
				lastGen, lastStage = snap.Generation, snap.StageIndex
				if err := sendEvent("advance", advanceEvent{
					Generation: snap.Generation,
					StageIndex: snap.StageIndex,
					StageCount: snap.StageCount,
					Message:    snap.Message,
					Progress:   snap.Progress,
				}); err != nil {
					return
				}
			case mission.StatusComplete:
				_ = sendEvent("complete", newAssessmentResponse(snap, tier))
				return
			case mission.StatusCancelled:
				_ = sendEvent("cancelled", gin.H{"generation": snap.Generation})
				return
			case mission.StatusFailed:
				_ = sendEvent("error", gin.H{"message": snap.Error})
				return
			}
		}
	}
}

type upgradeRequest struct {
	Trigger string `json:"trigger"`
}

var upgradeTriggers = map[string]bool{
	"benchmark":   true,
	"opportunity": true,
	"risk":        true,
	"unlock":      true,
}

// upgrade opens the upgrade prompt. It is idempotent and never changes what
// the visitor can see.
func (h *Handler) upgrade(c *gin.Context) {
	var req upgradeRequest
	// an empty body, chunked or not, just means no trigger
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	trigger := req.Trigger
	if !upgradeTriggers[trigger] {
		trigger = "other"
	}
	metrics.UpgradePrompts.WithLabelValues(trigger).Inc()
	c.JSON(http.StatusOK, gin.H{"prompt": disclosure.UpgradePrompt()})
}
