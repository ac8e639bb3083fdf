package httpapi

import (
	"github.com/foxseedlab/attendance/external/metrics"
	"github.com/foxseedlab/attendance/internal/attendance"
	"github.com/foxseedlab/attendance/internal/config"
	"github.com/foxseedlab/attendance/internal/event"
	"github.com/foxseedlab/attendance/internal/repository"
	"github.com/foxseedlab/attendance/internal/timestamp"
	"github.com/foxseedlab/attendance/internal/webhook"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

const apiKeyHeader = "X-API-Key"

type Handler struct {
	cfg        *config.Config
	store      repository.Store
	tracker    *attendance.Tracker
	views      *attendance.Views
	timestamps *timestamp.Normalizer
	normalizer *event.Normalizer
	signatures *webhook.SignatureValidator
	metrics    *metrics.Metrics
}

func NewHandler(
	cfg *config.Config,
	store repository.Store,
	tracker *attendance.Tracker,
	views *attendance.Views,
	m *metrics.Metrics,
) *Handler {
	ts := timestamp.NewNormalizer()
	return &Handler{
		cfg:        cfg,
		store:      store,
		tracker:    tracker,
		views:      views,
		timestamps: ts,
		normalizer: event.NewNormalizer(ts),
		signatures: webhook.NewSignatureValidator(cfg.ZoomWebhookSecret),
		metrics:    m,
	}
}

// NewRouter wires every route onto a fresh gin engine.
func NewRouter(h *Handler) *gin.Engine {
	if h.cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", apiKeyHeader, requestIDHeader},
		AllowCredentials: false,
	}))
	r.Use(requestID(), requestLogger("/health", "/metrics"))

	r.POST("/webhooks/zoom", h.zoomWebhook)
	r.POST("/events", h.ingestEvent)
	r.GET("/health", h.health)
	r.GET("/metrics", gin.WrapH(h.metrics.Handler()))

	query := r.Group("/", apiKey(h.cfg.APIKey))
	query.GET("/sessions", h.listSessions)
	query.GET("/sessions/:id", h.sessionDetails)
	query.GET("/sessions/:id/summary", h.sessionSummary)
	query.GET("/sessions/:id/csv", h.sessionCSV)
	query.GET("/daily/:day/summary", h.dailySummary)

	return r
}
