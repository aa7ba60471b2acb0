package middleware

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"

	apperrors "walletlens/internal/errors"
	"walletlens/internal/logger"
)

// ErrorHandler returns a Gin middleware that converts errors set on the Gin
// context into consistent JSON error responses. AppErrors are returned with
// their code and message, an expired request deadline becomes REQUEST_TIMEOUT,
// and anything else is logged and returned as a generic internal error.
// Responses a handler already wrote are left untouched.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		// Process the last error (most relevant in a middleware chain)
		err := c.Errors.Last().Err

		var appErr *apperrors.AppError
		switch {
		case errors.As(err, &appErr):
			if appErr.Internal != nil {
				logger.Get().Errorw("app error",
					"code", appErr.Code,
					"message", appErr.Message,
					"internal", appErr.Internal.Error(),
					"path", c.Request.URL.Path,
				)
			}
		case errors.Is(err, context.DeadlineExceeded):
			logger.Get().Warnw("request deadline exceeded", "path", c.Request.URL.Path)
			appErr = apperrors.ErrRequestTimeout
		default:
			logger.Get().Errorw("unexpected error",
				"error", err.Error(),
				"path", c.Request.URL.Path,
				"method", c.Request.Method,
			)
			appErr = apperrors.ErrInternalServer
		}
		abortWithError(c, appErr)
	}
}
