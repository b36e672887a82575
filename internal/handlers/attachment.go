package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/jayeworks/circledesk/internal/services"
	"github.com/jayeworks/circledesk/pkg/response"
)

type AttachmentHandler struct {
	storage *services.StorageService
}

func NewAttachmentHandler(storage *services.StorageService) *AttachmentHandler {
	return &AttachmentHandler{storage: storage}
}

// Upload stores one attachment for an issue. Multipart form, field "file".
// POST /api/issues/:id/attachments
func (h *AttachmentHandler) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "file field is required")
		return
	}

	contentType := file.Header.Get("Content-Type")
	if _, err := services.ValidateAttachment(contentType, file.Size); err != nil {
		serviceError(c, err)
		return
	}

	src, err := file.Open()
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}
	defer src.Close()

	url, err := h.storage.Upload(c.Request.Context(), c.Param("id"), contentType, file.Size, src)
	if err != nil {
		serviceError(c, err)
		return
	}
	response.Created(c, gin.H{"url": url})
}

// List returns the attachment URLs stored for an issue
// GET /api/issues/:id/attachments
func (h *AttachmentHandler) List(c *gin.Context) {
	urls, err := h.storage.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, gin.H{"attachments": urls})
}

type deleteAttachmentRequest struct {
	Path string `json:"path" binding:"required"`
}

// Delete removes one attachment by object key or public URL
// DELETE /api/issues/:id/attachments
func (h *AttachmentHandler) Delete(c *gin.Context) {
	var req deleteAttachmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.storage.Delete(c.Request.Context(), req.Path); err != nil {
		serviceError(c, err)
		return
	}
	response.Success(c, gin.H{"deleted": req.Path})
}
