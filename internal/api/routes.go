package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title Fleet Sync API
// @version 1.0
// @description Control plane for synchronizing fleet data from the onboarding portal into the maintenance portal
// @contact.name API Support
// @contact.url http://github.com/Kamar-Folarin
// @license.name MIT
// @license.url https://opensource.org/licenses/MIT
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the sync API token.

// RouterConfig holds what the router needs besides the handler
type RouterConfig struct {
	// APIToken protects every control endpoint except webhook receipt
	APIToken string
	// Metrics serves /metrics when set
	Metrics http.Handler
	Logger  *logrus.Logger
}

// SetupRouter configures the API routes
func SetupRouter(h *Handler, cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.Logger != nil {
		r.Use(RequestLogger(cfg.Logger))
	}

	// @Summary Health check
	// @Description Liveness including database connectivity
	// @Tags health
	// @Produce json
	// @Success 200 {object} HealthResponse
	// @Failure 503 {object} HealthResponse
	// @Router /health [get]
	r.GET("/health", h.Health)

	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics))
	}

	// API documentation
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := r.Group("/api/v1")
	{
		// @Summary Receive a webhook
		// @Description Accept a push notification from the onboarding portal. Deliveries are deduplicated by eventId and processed asynchronously.
		// @Tags webhooks
		// @Accept json
		// @Produce json
		// @Param request body WebhookRequest true "Webhook delivery"
		// @Success 200 {object} WebhookResponse
		// @Failure 400 {object} ErrorResponse
		// @Failure 500 {object} ErrorResponse
		// @Router /sync/webhook [post]
		v1.POST("/sync/webhook", h.ReceiveWebhook)

		sync := v1.Group("/sync")
		sync.Use(BearerAuth(cfg.APIToken))
		{
			// @Summary Trigger a full sync
			// @Description Start a full synchronization run in the background
			// @Tags sync
			// @Accept json
			// @Produce json
			// @Security ApiKeyAuth
			// @Param request body TriggerRequest false "Trigger options"
			// @Success 202 {object} TriggerResponse
			// @Failure 400 {object} ErrorResponse
			// @Failure 409 {object} ErrorResponse
			// @Failure 500 {object} ErrorResponse
			// @Router /sync/trigger [post]
			sync.POST("/trigger", h.TriggerSync)

			// @Summary Get sync status
			// @Description Get one run by id, or the busy flag and the latest run when no id is given
			// @Tags sync
			// @Produce json
			// @Security ApiKeyAuth
			// @Param syncId path string false "Sync run id"
			// @Success 200 {object} StatusResponse
			// @Failure 404 {object} ErrorResponse
			// @Failure 500 {object} ErrorResponse
			// @Router /sync/status/{syncId} [get]
			sync.GET("/status", h.GetSyncStatus)
			sync.GET("/status/:syncId", h.GetSyncStatus)

			// @Summary Get sync history
			// @Description Paged list of sync runs, newest first
			// @Tags sync
			// @Produce json
			// @Security ApiKeyAuth
			// @Param limit query int false "Number of runs to return" default(20)
			// @Param offset query int false "Number of runs to skip" default(0)
			// @Success 200 {object} models.SyncHistory
			// @Failure 400 {object} ErrorResponse
			// @Failure 500 {object} ErrorResponse
			// @Router /sync/history [get]
			sync.GET("/history", h.GetSyncHistory)

			// @Summary List webhook events
			// @Description List ingested webhook events, newest first
			// @Tags webhooks
			// @Produce json
			// @Security ApiKeyAuth
			// @Param status query string false "Filter by status" Enums(received, processing, processed, failed)
			// @Param limit query int false "Number of events to return" default(50)
			// @Success 200 {array} models.WebhookEvent
			// @Failure 400 {object} ErrorResponse
			// @Failure 500 {object} ErrorResponse
			// @Router /sync/webhooks [get]
			sync.GET("/webhooks", h.ListWebhooks)

			// @Summary List the sync queue
			// @Description Records that could not be reconciled because a parent entity was missing
			// @Tags sync
			// @Produce json
			// @Security ApiKeyAuth
			// @Param status query string false "Filter by status"
			// @Param limit query int false "Number of items to return" default(50)
			// @Success 200 {array} models.SyncQueueItem
			// @Failure 400 {object} ErrorResponse
			// @Failure 500 {object} ErrorResponse
			// @Router /sync/queue [get]
			sync.GET("/queue", h.ListSyncQueue)

			// @Summary Update sync settings
			// @Description Change the schedule and the onboarding endpoint without a restart
			// @Tags settings
			// @Accept json
			// @Produce json
			// @Security ApiKeyAuth
			// @Param request body SettingsRequest true "Settings"
			// @Success 200 {object} SettingsResponse
			// @Failure 400 {object} ErrorResponse
			// @Router /sync/settings [post]
			sync.POST("/settings", h.UpdateSettings)

			// @Summary Test the onboarding connection
			// @Description Check that the onboarding API is configured and reachable
			// @Tags settings
			// @Produce json
			// @Security ApiKeyAuth
			// @Success 200 {object} ConnectionResponse
			// @Router /sync/test-connection [get]
			sync.GET("/test-connection", h.TestConnection)

			// @Summary Stream sync updates
			// @Description Server-sent events mirroring sync progress, with periodic keep-alives
			// @Tags sync
			// @Produce text/event-stream
			// @Security ApiKeyAuth
			// @Success 200 {string} string "event stream"
			// @Router /sync/updates [get]
			sync.GET("/updates", h.StreamUpdates)
		}
	}

	return r
}
