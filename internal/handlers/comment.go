package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/jayeworks/circledesk/internal/services"
	"github.com/jayeworks/circledesk/pkg/response"
	"gorm.io/gorm"
)

type CommentHandler struct {
	commentService *services.CommentService
}

func NewCommentHandler(db *gorm.DB) *CommentHandler {
	return &CommentHandler{
		commentService: services.NewCommentService(db),
	}
}

// List returns an issue's comments, oldest first
// GET /api/issues/:id/comments
func (h *CommentHandler) List(c *gin.Context) {
	comments, err := h.commentService.ListByIssue(c.Param("id"))
	if err != nil {
		serviceError(c, err)
		return
	}
	response.Success(c, comments)
}

// Create appends a comment to an issue
// POST /api/issues/:id/comments
func (h *CommentHandler) Create(c *gin.Context) {
	var req services.CreateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	comment, err := h.commentService.Add(c.Param("id"), &req)
	if err != nil {
		serviceError(c, err)
		return
	}
	response.Created(c, comment)
}
