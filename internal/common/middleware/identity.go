package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	initdata "github.com/telegram-mini-apps/init-data-golang"
	"go.uber.org/zap"

	"github.com/GDG-UAM/website-sub002/internal/common/errors"
	"github.com/GDG-UAM/website-sub002/internal/common/logger"
)

const (
	InitDataHeader  = "init_data"
	telegramUserKey = "telegram_user"
)

// TelegramIdentity resolves an optional authenticated Telegram user from Mini
// App init data. Requests without the header pass through anonymous;
// a header that fails validation is rejected with 401. A ttl of zero skips
// the expiration check.
func TelegramIdentity(botToken string, ttl time.Duration, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(InitDataHeader)
		if raw == "" {
			c.Next()
			return
		}

		if botToken == "" {
			reject(c, log, "init data is not accepted by this server")
			return
		}

		if err := initdata.Validate(raw, botToken, ttl); err != nil {
			logger.Debug().Err(err).Str("request_id", GetRequestID(c)).Msg("Init data rejected")
			reject(c, log, "invalid init data")
			return
		}

		parsed, err := initdata.Parse(raw)
		if err != nil || parsed.User.ID == 0 {
			reject(c, log, "init data carries no user")
			return
		}

		c.Set(telegramUserKey, parsed.User)
		c.Next()
	}
}

func reject(c *gin.Context, log *zap.Logger, reason string) {
	sendErrorResponse(c, errors.NewUnauthorizedError(reason), log)
	c.Abort()
}

// GetTelegramUser returns the Telegram user authenticated by init data.
func GetTelegramUser(c *gin.Context) (initdata.User, bool) {
	v, ok := c.Get(telegramUserKey)
	if !ok {
		return initdata.User{}, false
	}
	user, ok := v.(initdata.User)
	return user, ok
}

// GetUserID returns the authenticated Telegram user id in decimal form.
func GetUserID(c *gin.Context) (string, bool) {
	user, ok := GetTelegramUser(c)
	if !ok || user.ID == 0 {
		return "", false
	}
	return strconv.FormatInt(user.ID, 10), true
}
