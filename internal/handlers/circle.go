package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/jayeworks/circledesk/internal/middleware"
	"github.com/jayeworks/circledesk/internal/services/circle"
	"github.com/jayeworks/circledesk/pkg/response"
	"gorm.io/gorm"
)

type CircleHandler struct {
	circleService *circle.Service
}

func NewCircleHandler(db *gorm.DB) *CircleHandler {
	return &CircleHandler{
		circleService: circle.NewService(db),
	}
}

// ListMessages returns imported community messages
// GET /api/circle/messages
func (h *CircleHandler) ListMessages(c *gin.Context) {
	var req circle.MessageListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	messages, err := h.circleService.ListMessages(&req)
	if err != nil {
		serviceError(c, err)
		return
	}
	response.Success(c, messages)
}

// GetMessage returns one imported message by its source id
// GET /api/circle/messages/:id
func (h *CircleHandler) GetMessage(c *gin.Context) {
	msg, err := h.circleService.GetByMessageID(c.Param("id"))
	if err != nil {
		serviceError(c, err)
		return
	}
	response.Success(c, msg)
}

// AddReply appends one reply to a stored thread. The :id matches either the
// chat thread id or the root message id. Redelivering the same reply is
// acknowledged without appending again.
// POST /api/circle/messages/:id/replies
func (h *CircleHandler) AddReply(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil || len(body) == 0 {
		response.BadRequest(c, "empty reply payload")
		return
	}

	added, err := h.circleService.AddReply(c.Param("id"), body)
	if err != nil {
		serviceError(c, err)
		return
	}
	if !added {
		response.Success(c, gin.H{"added": false})
		return
	}
	response.Created(c, gin.H{"added": true})
}

// Promote turns an imported message into a tracked issue. A message
// already promoted returns the existing issue with 200 instead of
// creating a duplicate.
// POST /api/circle/messages/:id/promote
func (h *CircleHandler) Promote(c *gin.Context) {
	actor := middleware.GetActor(c)
	issue, err := h.circleService.PromoteMessage(c.Param("id"), actor, false, "manual")
	if errors.Is(err, circle.ErrAlreadyPromoted) {
		response.Success(c, issue)
		return
	}
	if err != nil {
		serviceError(c, err)
		return
	}
	response.Created(c, issue)
}
