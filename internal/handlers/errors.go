package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/jayeworks/circledesk/internal/services"
	"github.com/jayeworks/circledesk/pkg/response"
)

// serviceError maps service-layer errors onto the API envelope: validation
// and payload-shape problems become 400, missing rows 404, everything
// else 500.
func serviceError(c *gin.Context, err error) {
	var verr *services.ValidationError
	if errors.As(err, &verr) {
		response.BadRequest(c, verr.Error())
		return
	}
	var nerr *services.NormalizationError
	if errors.As(err, &nerr) {
		response.BadRequest(c, nerr.Error())
		return
	}
	if services.IsNotFound(err) {
		response.NotFound(c, "not found")
		return
	}
	response.ServerError(c, err.Error())
}
