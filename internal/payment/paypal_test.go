package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"checkout-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// paypalStub fakes the three REST endpoints the adapter touches.
type paypalStub struct {
	captureStatus string
	failCreate    int // HTTP status to return from order creation, 0 = success
	lastCreate    map[string]interface{}
}

func (s *paypalStub) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		if _, _, ok := r.BasicAuth(); !ok {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "test-token",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/v2/checkout/orders", func(w http.ResponseWriter, r *http.Request) {
		if s.failCreate != 0 {
			w.WriteHeader(s.failCreate)
			return
		}
		json.NewDecoder(r.Body).Decode(&s.lastCreate)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":     "ORDER-123",
			"status": "CREATED",
		})
	})
	mux.HandleFunc("/v2/checkout/orders/ORDER-123/capture", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":     "ORDER-123",
			"status": s.captureStatus,
			"purchase_units": []map[string]interface{}{
				{
					"reference_id": "ref-1",
					"payments": map[string]interface{}{
						"captures": []map[string]string{
							{"id": "CAPTURE-9", "status": s.captureStatus},
						},
					},
				},
			},
		})
	})
	return mux
}

func newPayPalFixture(t *testing.T, stub *paypalStub) *PayPalFlow {
	t.Helper()
	srv := httptest.NewServer(stub.handler())
	t.Cleanup(srv.Close)
	return NewPayPalFlow("client", "secret", srv.URL, "USD", 24_000)
}

func TestPayPalCreateIntent(t *testing.T) {
	stub := &paypalStub{captureStatus: "COMPLETED"}
	f := newPayPalFixture(t, stub)

	intentID, err := f.CreateIntent(context.Background(), 480_000, "ref-1")
	require.NoError(t, err)
	assert.Equal(t, "ORDER-123", intentID)

	require.NotNil(t, stub.lastCreate)
	assert.Equal(t, "CAPTURE", stub.lastCreate["intent"])

	units := stub.lastCreate["purchase_units"].([]interface{})
	unit := units[0].(map[string]interface{})
	amount := unit["amount"].(map[string]interface{})
	assert.Equal(t, "USD", amount["currency_code"])
	assert.Equal(t, "20.00", amount["value"], "480,000 at 24,000/USD")
}

func TestPayPalCaptureCompleted(t *testing.T) {
	f := newPayPalFixture(t, &paypalStub{captureStatus: "COMPLETED"})

	conf, err := f.Capture(context.Background(), "ORDER-123")
	require.NoError(t, err)
	assert.Equal(t, "CAPTURE-9", conf.TransactionID)
	assert.Equal(t, "COMPLETED", conf.ResponseCode)
}

func TestPayPalCaptureDeclined(t *testing.T) {
	f := newPayPalFixture(t, &paypalStub{captureStatus: "DECLINED"})

	_, err := f.Capture(context.Background(), "ORDER-123")

	ge, ok := models.AsGateway(err)
	require.True(t, ok)
	assert.True(t, ge.Declined)
	assert.Equal(t, "DECLINED", ge.Code)
}

func TestPayPalServerErrorIsFault(t *testing.T) {
	f := newPayPalFixture(t, &paypalStub{failCreate: http.StatusInternalServerError})

	_, err := f.CreateIntent(context.Background(), 1000, "ref-1")

	ge, ok := models.AsGateway(err)
	require.True(t, ok)
	assert.False(t, ge.Declined, "5xx is a transport fault, not a decline")
}

func TestPayPalClientErrorIsDecline(t *testing.T) {
	f := newPayPalFixture(t, &paypalStub{failCreate: http.StatusUnprocessableEntity})

	_, err := f.CreateIntent(context.Background(), 1000, "ref-1")

	ge, ok := models.AsGateway(err)
	require.True(t, ok)
	assert.True(t, ge.Declined)
	assert.Equal(t, "HTTP_422", ge.Code)
}

func TestPayPalUnreachableHostIsFault(t *testing.T) {
	f := NewPayPalFlow("client", "secret", "http://127.0.0.1:1", "USD", 24_000)

	_, err := f.CreateIntent(context.Background(), 1000, "ref-1")

	ge, ok := models.AsGateway(err)
	require.True(t, ok)
	assert.False(t, ge.Declined)
}

func TestUSDValueRounding(t *testing.T) {
	f := NewPayPalFlow("c", "s", "http://x", "USD", 24_000)

	assert.Equal(t, "20.00", f.usdValue(480_000))
	assert.Equal(t, "0.04", f.usdValue(1_000))
	assert.Equal(t, "4.17", f.usdValue(100_000)) // 4.1666 rounds up
	assert.Equal(t, "0.00", f.usdValue(0))
}
