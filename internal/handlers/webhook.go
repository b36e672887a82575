package handlers

import (
	"io"

	"github.com/gin-gonic/gin"
	"github.com/jayeworks/circledesk/internal/config"
	"github.com/jayeworks/circledesk/internal/middleware"
	"github.com/jayeworks/circledesk/internal/services/circle"
	"github.com/jayeworks/circledesk/pkg/response"
	"gorm.io/gorm"
)

// maxWebhookBody caps inbound webhook payloads at 10 MB.
const maxWebhookBody = 10 << 20

type WebhookHandler struct {
	circleService *circle.Service
	syncService   *circle.SyncService
	source        string
}

func NewWebhookHandler(db *gorm.DB, cfg *config.WebhookConfig) *WebhookHandler {
	circleService := circle.NewService(db)
	return &WebhookHandler{
		circleService: circleService,
		syncService:   circle.NewSyncService(circleService, cfg),
		source:        cfg.Source,
	}
}

// SyncService exposes the sync trigger for scheduler wiring at startup.
func (h *WebhookHandler) SyncService() *circle.SyncService {
	return h.syncService
}

// Receive ingests a webhook delivery of one message or an array of them.
// The response always reports per-item outcomes; a batch with failures
// still returns 200 so the sender does not retry the items that worked.
// POST /webhook/circle
func (h *WebhookHandler) Receive(c *gin.Context) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		response.BadRequest(c, "failed to read request body")
		return
	}
	if len(raw) == 0 {
		response.BadRequest(c, "empty request body")
		return
	}

	result := h.circleService.ProcessPayload(raw, h.source, middleware.GetActor(c))
	response.Success(c, result)
}

type syncRequest struct {
	Action string `json:"action"`
}

// TriggerSync asks the upstream workflow to push messages. Defaults to the
// full sync action; {"action":"test"} only checks reachability.
// POST /api/sync
func (h *WebhookHandler) TriggerSync(c *gin.Context) {
	req := syncRequest{Action: circle.SyncActionSync}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
		if req.Action == "" {
			req.Action = circle.SyncActionSync
		}
	}

	result, err := h.syncService.Trigger(req.Action, middleware.GetActor(c))
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, result)
}
