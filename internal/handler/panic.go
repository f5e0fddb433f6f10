package handlers

import (
	"net/http"

	"GuardianPath/internal/emergency"
	"GuardianPath/internal/listeners"
	"GuardianPath/internal/models"
	"GuardianPath/pkg/errors"
	"GuardianPath/pkg/logger"
	"GuardianPath/pkg/middleware"
	"GuardianPath/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const recentEventsLimit = 20

// base64 overhead plus room for the rest of the JSON body
func maxBodyBytes(maxPhoto int64) int64 {
	return maxPhoto/3*4 + 64<<10
}

func identityOf(c *gin.Context) emergency.Identity {
	user := models.CurrentUser(c)
	if user == nil {
		return emergency.Identity{}
	}
	return emergency.Identity{UserID: user.ID, Email: user.Email, Name: user.Name}
}

func (h *Handlers) handlePanicTrigger(c *gin.Context) {
	if h.opts.MaxPhotoBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes(h.opts.MaxPhotoBytes))
	}
	var req emergency.TriggerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.recordRejected()
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.AbortWithJSONError(c, http.StatusRequestEntityTooLarge, "Payload too large", "The photo exceeds the allowed size")
			return
		}
		response.AbortWithJSONError(c, http.StatusBadRequest, "Invalid request", err.Error())
		return
	}
	req.UserAgent = c.Request.UserAgent()
	req.Lang = middleware.Lang(c)

	resp, err := h.trigger.HandleTrigger(c.Request.Context(), identityOf(c), req)
	if err != nil {
		h.recordRejected()
		abortTrigger(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func abortTrigger(c *gin.Context, err error) {
	switch {
	case errors.Is(err, emergency.ErrUnauthenticated):
		response.AbortWithJSONError(c, http.StatusUnauthorized, "Authentication required", "Please sign in before triggering an alert")
	case errors.Is(err, emergency.ErrNoContacts):
		response.AbortWithJSONError(c, http.StatusBadRequest, "No emergency contacts", "Add at least one active emergency contact before using panic mode")
	default:
		logger.Error("panic trigger failed", zap.Int("code", errors.GetCode(err)), zap.Error(err))
		response.AbortWithJSONError(c, http.StatusInternalServerError, "Failed to process panic request", "An error occurred while activating emergency protocol")
	}
}

func (h *Handlers) recordRejected() {
	if h.opts.Metrics != nil {
		h.opts.Metrics.RecordTrigger("rejected")
	}
}

func (h *Handlers) handleListPanicEvents(c *gin.Context) {
	user := models.CurrentUser(c)
	events, err := h.history.RecentEvents(c.Request.Context(), user.ID, recentEventsLimit)
	if err != nil {
		logger.Error("list panic events", zap.Uint("user_id", user.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to fetch panic events",
			"message": "An error occurred while retrieving panic events",
		})
		return
	}
	if events == nil {
		events = []models.PanicEvent{}
	}
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"panicEvents": events,
		"count":       len(events),
	})
}

func (h *Handlers) handlePanicStream(c *gin.Context) {
	if h.opts.Hub == nil {
		response.AbortWithJSONError(c, http.StatusNotFound, "Not found", "Live progress is disabled")
		return
	}
	user := models.CurrentUser(c)
	h.opts.Hub.Serve(c, listeners.UserGroup(user.ID))
}
