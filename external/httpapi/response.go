package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/foxseedlab/attendance/internal/apperror"
	"github.com/foxseedlab/attendance/internal/logging"
	"github.com/foxseedlab/attendance/internal/repository"
	"github.com/gin-gonic/gin"
)

type webhookResponse struct {
	OK          bool   `json:"ok"`
	Ignored     bool   `json:"ignored,omitempty"`
	Action      string `json:"action,omitempty"`
	DurationSec *int64 `json:"duration_sec,omitempty"`
}

type sessionSummaryResponse struct {
	SessionID               string     `json:"session_id"`
	ParticipantCount        int64      `json:"participant_count"`
	TotalParticipantSeconds int64      `json:"total_participant_seconds"`
	FirstJoin               *time.Time `json:"first_join"`
	LastSeen                *time.Time `json:"last_seen"`
}

type participantResponse struct {
	UserID       string     `json:"user_id"`
	Segments     int64      `json:"segments"`
	TotalSeconds int64      `json:"total_seconds"`
	FirstJoin    *time.Time `json:"first_join"`
	LastSeen     *time.Time `json:"last_seen"`
}

type sessionDetailsResponse struct {
	SessionID    string                `json:"session_id"`
	Participants []participantResponse `json:"participants"`
}

func toSessionSummaries(rows []repository.SessionSummary) []sessionSummaryResponse {
	out := make([]sessionSummaryResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, sessionSummaryResponse{
			SessionID:               r.SessionID,
			ParticipantCount:        r.ParticipantCount,
			TotalParticipantSeconds: r.TotalParticipantSeconds,
			FirstJoin:               r.FirstJoin,
			LastSeen:                r.LastSeen,
		})
	}
	return out
}

func toParticipants(rows []repository.ParticipantSummary) []participantResponse {
	out := make([]participantResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, participantResponse{
			UserID:       r.UserID,
			Segments:     r.Segments,
			TotalSeconds: r.TotalSeconds,
			FirstJoin:    r.FirstJoin,
			LastSeen:     r.LastSeen,
		})
	}
	return out
}

func statusFor(kind apperror.Kind) int {
	switch kind {
	case apperror.KindInvalidTimestamp, apperror.KindInvalidDateFormat, apperror.KindValidation:
		return http.StatusBadRequest
	case apperror.KindUnauthorized:
		return http.StatusUnauthorized
	case apperror.KindStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError aborts the request with {"detail": message}.
func writeError(c *gin.Context, err error) {
	kind := apperror.KindOf(err)
	status := statusFor(kind)
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(c.Request.Context(), "request failed", "kind", kind.String(), logging.ErrKey, err)
	} else {
		slog.DebugContext(c.Request.Context(), "request rejected", "kind", kind.String(), logging.ErrKey, err)
	}
	c.AbortWithStatusJSON(status, gin.H{"detail": apperror.MessageOf(err)})
}
