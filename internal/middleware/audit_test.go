package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medhq/hms-core/pkg/messaging"
)

type fakeBroker struct {
	messaging.Broker
	published []fakeMessage
}

type fakeMessage struct {
	channel string
	payload interface{}
}

func (f *fakeBroker) Publish(_ context.Context, channel string, message interface{}) error {
	f.published = append(f.published, fakeMessage{channel: channel, payload: message})
	return nil
}

func runAudited(mw *AuditMiddleware, userID uuid.UUID, status int, permission string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	_, r := gin.CreateTestContext(w)
	r.Use(mw.Audit())
	r.POST("/pharmacy/transfers/", func(c *gin.Context) {
		if userID != uuid.Nil {
			c.Set(ContextUserID, userID)
		}
		if permission != "" {
			c.Set(ContextDeniedPermission, permission)
		}
		c.Status(status)
	})
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/pharmacy/transfers/", nil))
	return w
}

func TestAuditPublishesDeniedAccess(t *testing.T) {
	broker := &fakeBroker{}
	mw := NewAuditMiddleware(broker, true, zerolog.Nop())
	userID := uuid.New()

	runAudited(mw, userID, http.StatusForbidden, "pharmacy.manage")

	require.Len(t, broker.published, 1)
	assert.Equal(t, messaging.ChannelAccessDenied, broker.published[0].channel)
	event, ok := broker.published[0].payload.(messaging.AccessDeniedEvent)
	require.True(t, ok)
	assert.Equal(t, userID.String(), event.UserID)
	assert.Equal(t, "/pharmacy/transfers/", event.Path)
	assert.Equal(t, http.MethodPost, event.Method)
	assert.Equal(t, "pharmacy.manage", event.Permission)
	assert.NotEmpty(t, event.OccurredAt)
}

func TestAuditIgnoresAllowedRequests(t *testing.T) {
	broker := &fakeBroker{}
	mw := NewAuditMiddleware(broker, true, zerolog.Nop())

	runAudited(mw, uuid.New(), http.StatusOK, "")

	assert.Empty(t, broker.published)
}

func TestAuditDisabled(t *testing.T) {
	broker := &fakeBroker{}
	mw := NewAuditMiddleware(broker, false, zerolog.Nop())

	runAudited(mw, uuid.Nil, http.StatusForbidden, "pharmacy.manage")

	assert.Empty(t, broker.published)
}

func TestAccessDeniedEventSerializes(t *testing.T) {
	event := messaging.AccessDeniedEvent{UserID: "anonymous", Path: "/billing/", Method: "GET"}
	raw, err := json.Marshal(event)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "anonymous")
}
