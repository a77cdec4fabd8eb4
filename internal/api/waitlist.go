package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type waitlistRequest struct {
	Email  string `json:"email"`
	Source string `json:"source"`
}

func (h *Handler) joinWaitlist(c *gin.Context) {
	var req waitlistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Source == "" {
		req.Source = "api"
	}
	entry, already, err := h.waitlist.Join(c.Request.Context(), req.Email, req.Source)
	if err != nil {
		h.respondError(c, err)
		return
	}
	status := http.StatusCreated
	if already {
		status = http.StatusOK
	}
	c.JSON(status, gin.H{"entry": entry, "already": already})
}
