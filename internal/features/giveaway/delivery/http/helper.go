package http

import (
	"io"

	"github.com/gin-gonic/gin"

	"github.com/GDG-UAM/website-sub002/internal/common/middleware"
	"github.com/GDG-UAM/website-sub002/internal/features/giveaway/models"
)

// resolveIdentity picks the identity a request acts as: the authenticated
// Telegram user when present, otherwise the client supplied anonymous id.
func resolveIdentity(c *gin.Context, anonID string) models.Identity {
	if userID, ok := middleware.GetUserID(c); ok {
		return models.UserIdentity(userID)
	}
	if anonID == "" {
		return models.Identity{}
	}
	return models.AnonymousIdentity(anonID)
}

// setStreamHeaders prepares the response for Server-Sent Events and keeps
// reverse proxies from buffering it.
func setStreamHeaders(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
}

// writeHeartbeat sends an SSE comment line, ignored by EventSource clients
func writeHeartbeat(w io.Writer) error {
	_, err := io.WriteString(w, ": ping\n\n")
	return err
}
