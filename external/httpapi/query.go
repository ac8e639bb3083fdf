package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/foxseedlab/attendance/internal/apperror"
	"github.com/foxseedlab/attendance/internal/attendance"
	"github.com/gin-gonic/gin"
)

const healthTimeout = 2 * time.Second

func (h *Handler) listSessions(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(c, apperror.NewValidation("limit must be an integer", err))
			return
		}
		limit = n
	}
	rows, err := h.views.Sessions(c.Request.Context(), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toSessionSummaries(rows))
}

func (h *Handler) sessionDetails(c *gin.Context) {
	sessionID := c.Param("id")
	rows, err := h.views.SessionParticipants(c.Request.Context(), sessionID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessionDetailsResponse{SessionID: sessionID, Participants: toParticipants(rows)})
}

func (h *Handler) sessionSummary(c *gin.Context) {
	rows, err := h.views.SessionParticipants(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toParticipants(rows))
}

func (h *Handler) sessionCSV(c *gin.Context) {
	rows, err := h.views.SessionParticipants(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	data, err := attendance.BuildParticipantsCSV(rows)
	if err != nil {
		writeError(c, apperror.NewInternal("failed to render csv", err))
		return
	}
	c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
}

func (h *Handler) dailySummary(c *gin.Context) {
	_, rows, err := h.views.Daily(c.Request.Context(), c.Param("day"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toParticipants(rows))
}

func (h *Handler) health(c *gin.Context) {
	if h.store == nil {
		writeError(c, apperror.NewStoreUnavailable("DB not ready"))
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()
	if err := h.store.Ping(ctx); err != nil {
		writeError(c, apperror.NewStoreUnavailable("DB not ready", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
