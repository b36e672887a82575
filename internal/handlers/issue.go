package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/jayeworks/circledesk/internal/middleware"
	"github.com/jayeworks/circledesk/internal/models"
	"github.com/jayeworks/circledesk/internal/services"
	"github.com/jayeworks/circledesk/pkg/response"
	"gorm.io/gorm"
)

type IssueHandler struct {
	issueService *services.IssueService
	statsService *services.StatsService
}

func NewIssueHandler(db *gorm.DB) *IssueHandler {
	return &IssueHandler{
		issueService: services.NewIssueService(db),
		statsService: services.NewStatsService(db),
	}
}

// List returns filtered, paginated issues
// GET /api/issues
func (h *IssueHandler) List(c *gin.Context) {
	var req services.IssueListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.issueService.List(&req)
	if err != nil {
		serviceError(c, err)
		return
	}
	response.Success(c, resp)
}

// GetByID returns one issue with its tags
// GET /api/issues/:id
func (h *IssueHandler) GetByID(c *gin.Context) {
	issue, err := h.issueService.GetByID(c.Param("id"))
	if err != nil {
		serviceError(c, err)
		return
	}
	response.Success(c, issue)
}

// Create files a new issue
// POST /api/issues
func (h *IssueHandler) Create(c *gin.Context) {
	var req services.CreateIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	issue, err := h.issueService.Create(&req)
	if err != nil {
		serviceError(c, err)
		return
	}
	response.Created(c, issue)
}

// Update edits title, description and/or status
// PUT /api/issues/:id
func (h *IssueHandler) Update(c *gin.Context) {
	var req services.UpdateIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	issue, err := h.issueService.Update(c.Param("id"), &req, middleware.GetActor(c))
	if err != nil {
		serviceError(c, err)
		return
	}
	response.Success(c, issue)
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateStatus moves an issue to a new lifecycle status
// PUT /api/issues/:id/status
func (h *IssueHandler) UpdateStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	status := models.IssueStatus(req.Status)
	if !status.Valid() {
		response.BadRequest(c, "unknown status: "+req.Status)
		return
	}

	issue, err := h.issueService.UpdateStatus(c.Param("id"), status, middleware.GetActor(c))
	if err != nil {
		serviceError(c, err)
		return
	}
	response.Success(c, issue)
}

type setReadyRequest struct {
	Ready *bool `json:"ready" binding:"required"`
}

// SetReady flips the ready-for-delivery flag
// PUT /api/issues/:id/ready
func (h *IssueHandler) SetReady(c *gin.Context) {
	var req setReadyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	issue, err := h.issueService.SetReadyForDelivery(c.Param("id"), *req.Ready)
	if err != nil {
		serviceError(c, err)
		return
	}
	response.Success(c, issue)
}

// StatusLogs returns the transition history for an issue
// GET /api/issues/:id/status-logs
func (h *IssueHandler) StatusLogs(c *gin.Context) {
	logs, err := h.issueService.StatusLogs(c.Param("id"))
	if err != nil {
		serviceError(c, err)
		return
	}
	response.Success(c, logs)
}

// Stats returns aggregate issue counts
// GET /api/issues/stats
func (h *IssueHandler) Stats(c *gin.Context) {
	stats, err := h.statsService.GetIssueStats()
	if err != nil {
		serviceError(c, err)
		return
	}
	response.Success(c, stats)
}

// PurgeTestData deletes all issues flagged as test data
// DELETE /api/issues/test-data
func (h *IssueHandler) PurgeTestData(c *gin.Context) {
	result, err := h.issueService.PurgeTestData()
	if err != nil {
		serviceError(c, err)
		return
	}
	response.Success(c, result)
}
