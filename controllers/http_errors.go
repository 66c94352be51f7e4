package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/restaurant-pos/services"
	"github.com/yeremiapane/restaurant-pos/utils"
)

var ErrNoPermission = errors.New("you don't have permission to access this resource")

// respondDomainError translates the service error kinds into HTTP
// status codes. Anything unrecognized is a storage or collaborator
// failure and surfaces as a 500.
func respondDomainError(c *gin.Context, err error) {
	var validation *services.ValidationError
	var notFound *services.NotFoundError
	var business *services.BusinessError
	var conflict *services.ConflictError

	switch {
	case errors.As(err, &validation):
		utils.RespondError(c, http.StatusBadRequest, err)
	case errors.As(err, &notFound):
		utils.RespondError(c, http.StatusNotFound, err)
	case errors.As(err, &business):
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  false,
			"message": business.Msg,
			"code":    business.Code,
		})
	case errors.As(err, &conflict):
		utils.RespondError(c, http.StatusConflict, err)
	default:
		utils.RespondError(c, http.StatusInternalServerError, err)
	}
}

// actorID reads the authenticated employee id placed in the context by
// the auth middleware.
func actorID(c *gin.Context) uint {
	if v, ok := c.Get("userID"); ok {
		if id, ok := v.(uint); ok {
			return id
		}
	}
	return 0
}
