package httpapi

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/foxseedlab/attendance/internal/apperror"
	"github.com/foxseedlab/attendance/internal/attendance"
	"github.com/foxseedlab/attendance/internal/event"
	"github.com/foxseedlab/attendance/internal/timestamp"
	"github.com/foxseedlab/attendance/internal/webhook"
	"github.com/gin-gonic/gin"
)

const (
	webhookResultIgnored    = "ignored"
	webhookResultHandshake  = "handshake"
	webhookResultAttendance = "attendance"
	webhookResultRejected   = "rejected"
	webhookResultFailed     = "failed"
)

func readDocument(c *gin.Context) ([]byte, event.Document, error) {
	body, err := c.GetRawData()
	if err != nil {
		return nil, nil, apperror.NewValidation("failed to read request body", err)
	}
	doc, err := event.Decode(body)
	if err != nil {
		return nil, nil, apperror.NewValidation("request body must be a JSON object", err)
	}
	return body, doc, nil
}

func (h *Handler) zoomWebhook(c *gin.Context) {
	ctx := c.Request.Context()
	body, doc, err := readDocument(c)
	if err != nil {
		h.metrics.RecordWebhook("", webhookResultRejected)
		writeError(c, err)
		return
	}

	res := h.normalizer.Normalize(ctx, doc)
	slog.InfoContext(ctx, "webhook received", "event_type", res.EventType)

	if res.Type == event.ResultHandshake {
		resp, err := webhook.Handshake(h.cfg.ZoomWebhookSecret, res.PlainToken)
		if err != nil {
			h.metrics.RecordWebhook(res.EventType, webhookResultRejected)
			writeError(c, err)
			return
		}
		h.metrics.RecordWebhook(res.EventType, webhookResultHandshake)
		c.JSON(http.StatusOK, resp)
		return
	}

	if h.cfg.ZoomVerifySignature {
		if err := h.signatures.Validate(body, c.GetHeader(webhook.SignatureHeader), c.GetHeader(webhook.TimestampHeader)); err != nil {
			h.metrics.RecordWebhook(res.EventType, webhookResultRejected)
			writeError(c, err)
			return
		}
	}

	if res.Type == event.ResultIgnored {
		h.metrics.RecordWebhook(res.EventType, webhookResultIgnored)
		c.JSON(http.StatusOK, webhookResponse{OK: true, Ignored: true})
		return
	}

	out, err := h.tracker.Apply(ctx, res.Event)
	if err != nil {
		h.metrics.RecordWebhook(res.EventType, webhookResultFailed)
		writeError(c, err)
		return
	}
	h.metrics.RecordWebhook(res.EventType, webhookResultAttendance)
	c.JSON(http.StatusOK, outcomeResponse(out))
}

// ingestEvent accepts an already-canonical event. Unlike the webhook path,
// every field is required and the timestamp must carry a zone.
func (h *Handler) ingestEvent(c *gin.Context) {
	_, doc, err := readDocument(c)
	if err != nil {
		writeError(c, err)
		return
	}

	ev, err := h.parseEvent(c.Request.Context(), doc)
	if err != nil {
		writeError(c, err)
		return
	}

	out, err := h.tracker.Apply(c.Request.Context(), ev)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, outcomeResponse(out))
}

func (h *Handler) parseEvent(ctx context.Context, doc event.Document) (attendance.Event, error) {
	for _, field := range []string{"event_type", "session_id", "user_id", "timestamp"} {
		if _, ok := doc.Value(field); !ok {
			return attendance.Event{}, apperror.NewValidation(field + " is required")
		}
	}
	kind, err := attendance.ParseKind(doc.Text("event_type"))
	if err != nil {
		return attendance.Event{}, apperror.NewValidation(err.Error())
	}
	sessionID, userID := doc.Text("session_id"), doc.Text("user_id")
	if sessionID == "" || userID == "" {
		return attendance.Event{}, apperror.NewValidation("session_id and user_id must be scalars")
	}
	raw, _ := doc.Value("timestamp")
	at, err := h.timestamps.Normalize(ctx, raw, timestamp.Strict)
	if err != nil {
		return attendance.Event{}, err
	}
	return attendance.Event{SessionID: sessionID, UserID: userID, Kind: kind, At: at}, nil
}

func outcomeResponse(out attendance.Outcome) webhookResponse {
	resp := webhookResponse{OK: true, Action: string(out.Action)}
	if out.Action == attendance.ActionSegmentClosed {
		d := out.DurationSec
		resp.DurationSec = &d
	}
	return resp
}
