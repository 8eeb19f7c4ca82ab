package webhooks

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	dbutil "github.com/larkspur-kitchen/rewards/internal/db"
	relayhttp "github.com/larkspur-kitchen/rewards/internal/http"
	"github.com/larkspur-kitchen/rewards/internal/ingestion"
	"github.com/larkspur-kitchen/rewards/internal/models"
	internalsettings "github.com/larkspur-kitchen/rewards/internal/settings"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const webhookSecret = "whsec_http"

func setup(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	conn, errOpen := dbutil.Open(":memory:")
	require.NoError(t, errOpen)
	require.NoError(t, dbutil.Migrate(conn))
	internalsettings.StoreDBConfig(time.Now(), map[string]json.RawMessage{})

	svc := relayhttp.NewServices(conn, nil, nil, ingestion.NewHMACVerifier(webhookSecret, time.Minute))
	gin.SetMode(gin.TestMode)
	router := gin.New()
	RegisterWebhookRoutes(router, svc.Ingestion)
	return router, conn
}

func paymentPayload(t *testing.T, eventID string) []byte {
	t.Helper()
	raw, errMarshal := json.Marshal(map[string]any{
		"id":   eventID,
		"type": ingestion.EventCheckoutCompleted,
		"data": map[string]any{"object": map[string]any{
			"id":              "cs_" + eventID,
			"payment_intent":  "pi_" + eventID,
			"customer_email":  "grace@example.com",
			"amount_subtotal": 1800,
			"amount_total":    1800,
			"metadata":        map[string]string{"order_type": "pickup"},
			"line_items": map[string]any{"data": []map[string]any{
				{"description": "Veggie Burrito", "quantity": 2, "amount_total": 1800},
			}},
		}},
	})
	require.NoError(t, errMarshal)
	return raw
}

func post(router *gin.Engine, payload []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/v0/webhooks/payments", bytes.NewReader(payload))
	if signature != "" {
		req.Header.Set(ingestion.SignatureHeader, signature)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestWebhookCreatesOrderThenReplays(t *testing.T) {
	router, conn := setup(t)
	user := models.User{Email: "grace@example.com"}
	require.NoError(t, conn.Create(&user).Error)

	payload := paymentPayload(t, "evt_http_1")
	signature := ingestion.SignHeader(payload, webhookSecret, time.Now().Unix())

	rec := post(router, payload, signature)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var first map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &first))
	require.Equal(t, ingestion.MessageCreated, first["message"])
	require.EqualValues(t, 180, first["points_earned"])
	require.NotEmpty(t, first["pickup_code"])
	orderID := first["order_id"].(string)

	rec = post(router, payload, signature)
	require.Equal(t, http.StatusOK, rec.Code)
	var second map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &second))
	require.Equal(t, orderID, second["order_id"])
	require.Equal(t, true, second["replayed"])
	require.NotContains(t, second, "pickup_code")

	var orders int64
	require.NoError(t, conn.Model(&models.Order{}).Count(&orders).Error)
	require.EqualValues(t, 1, orders)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	router, conn := setup(t)
	payload := paymentPayload(t, "evt_http_2")

	rec := post(router, payload, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = post(router, payload, ingestion.SignHeader(payload, "wrong", time.Now().Unix()))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	stale := ingestion.SignHeader(payload, webhookSecret, time.Now().Add(-10*time.Minute).Unix())
	rec = post(router, payload, stale)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	var orders int64
	require.NoError(t, conn.Model(&models.Order{}).Count(&orders).Error)
	require.Zero(t, orders)
}
