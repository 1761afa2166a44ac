package middleware

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GDG-UAM/website-sub002/internal/common/errors"
)

// RequireAuth rejects requests without an authenticated identity
func RequireAuth(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := GetUserID(c); !ok {
			sendErrorResponse(c, errors.NewUnauthorizedError("Telegram init data required"), log)
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireAdmin allows only the configured operator user ids
func RequireAdmin(adminIDs []string, log *zap.Logger) gin.HandlerFunc {
	admins := make(map[string]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		if id != "" {
			admins[id] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		userID, ok := GetUserID(c)
		if !ok {
			sendErrorResponse(c, errors.NewUnauthorizedError("Telegram init data required"), log)
			c.Abort()
			return
		}

		if _, isAdmin := admins[userID]; !isAdmin {
			sendErrorResponse(c, errors.NewForbiddenError("admin access required"), log)
			c.Abort()
			return
		}

		c.Next()
	}
}
