package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorResponse is the uniform error payload every endpoint returns.
type ErrorResponse struct {
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// ErrorHandler converts handler panics into a plain 500 so a bug never
// leaks a stack trace or partial state to the guest.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				GetLogger().Error("panic recovered",
					zap.Any("panic", r),
					zap.String("method", c.Request.Method),
					zap.String("path", c.FullPath()))
				c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
					Message: "Something went wrong on our side. Please try again.",
				})
			}
		}()
		c.Next()
	}
}

// JSONError writes the uniform error payload at the given status and
// records the rejection.
func JSONError(c *gin.Context, status int, message, details string) {
	GetLogger().Warn("request rejected",
		zap.Int("status", status),
		zap.String("path", c.FullPath()),
		zap.String("message", message),
		zap.String("details", details))
	c.JSON(status, ErrorResponse{Message: message, Details: details})
}
