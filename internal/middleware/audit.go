package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medhq/hms-core/pkg/messaging"
)

// AuditMiddleware logs every 403 and publishes it on the broker when
// permission auditing is enabled.
type AuditMiddleware struct {
	broker  messaging.Broker
	enabled bool
	logger  zerolog.Logger
}

func NewAuditMiddleware(broker messaging.Broker, enabled bool, logger zerolog.Logger) *AuditMiddleware {
	return &AuditMiddleware{broker: broker, enabled: enabled, logger: logger}
}

func (m *AuditMiddleware) Audit() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if !m.enabled || c.Writer.Status() != http.StatusForbidden {
			return
		}

		userID := "anonymous"
		if id := CurrentUserID(c); id != uuid.Nil {
			userID = id.String()
		}
		permission := c.GetString(ContextDeniedPermission)

		m.logger.Warn().
			Str("user_id", userID).
			Str("path", c.Request.URL.Path).
			Str("method", c.Request.Method).
			Str("permission", permission).
			Msg("access denied")

		if m.broker == nil {
			return
		}
		event := messaging.AccessDeniedEvent{
			UserID:     userID,
			Path:       c.Request.URL.Path,
			Method:     c.Request.Method,
			Permission: permission,
			Reason:     "permission denied",
			ClientIP:   c.ClientIP(),
			OccurredAt: time.Now().UTC().Format(time.RFC3339),
		}
		if err := m.broker.Publish(c.Request.Context(), messaging.ChannelAccessDenied, event); err != nil {
			m.logger.Error().Err(err).Msg("failed to publish access denied event")
		}
	}
}
