package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/mamadbah2/farmhub/internal/domain/apperr"
	"github.com/mamadbah2/farmhub/internal/server/middleware"
)

const errInvalidBody = "Invalid request body"

// respondError writes the status and message carried by a classified error.
// Anything else is logged and answered with a generic 500.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	if appErr, ok := apperr.As(err); ok {
		if appErr.StatusCode() >= http.StatusInternalServerError {
			logger.Error("request failed",
				zap.String("kind", appErr.Kind.String()),
				zap.String("request_id", middleware.RequestID(c)),
				zap.Error(err))
		}
		c.JSON(appErr.StatusCode(), gin.H{"error": appErr.Message})
		return
	}

	logger.Error("unhandled error",
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.String("request_id", middleware.RequestID(c)),
		zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}

// bindJSON decodes the request body into dst. An empty body leaves dst zeroed
// so that the service reports which fields are missing.
func bindJSON(c *gin.Context, dst any) error {
	err := c.ShouldBindJSON(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	if appErr, ok := apperr.As(err); ok && appErr.Kind == apperr.KindValidation {
		return appErr
	}
	return apperr.Validation(errInvalidBody)
}

// owner returns the id of the authenticated user. Routes using it sit behind
// middleware.Authenticate.
func owner(c *gin.Context) primitive.ObjectID {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return primitive.NilObjectID
	}
	return user.ID
}
