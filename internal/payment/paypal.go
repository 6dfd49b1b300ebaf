package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"checkout-service/internal/models"
	"checkout-service/internal/util"

	"github.com/prometheus/client_golang/prometheus"
)

// PayPalFlow is the two-phase capture wallet: CreateIntent opens an order at
// the gateway, the client approves it out of process, and Capture settles it.
// Amounts are converted from the store's home currency with a configured
// rate; the rate is an input, never policy.
type PayPalFlow struct {
	clientID   string
	secret     string
	baseURL    string
	currency   string
	ratePerUSD int64
	httpClient *http.Client
}

// NewPayPalFlow creates the capture-wallet adapter. baseURL points at the
// sandbox or live REST host; tests point it at a local server.
func NewPayPalFlow(clientID, secret, baseURL, currency string, ratePerUSD int64) *PayPalFlow {
	return &PayPalFlow{
		clientID:   clientID,
		secret:     secret,
		baseURL:    strings.TrimRight(baseURL, "/"),
		currency:   currency,
		ratePerUSD: ratePerUSD,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

func (f *PayPalFlow) Method() string { return models.PaymentMethodPayPal }

func (f *PayPalFlow) Kind() FlowKind { return TwoPhaseCapture }

type paypalTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type paypalOrderResponse struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	PurchaseUnits []struct {
		ReferenceID string `json:"reference_id"`
		Payments    struct {
			Captures []struct {
				ID     string `json:"id"`
				Status string `json:"status"`
			} `json:"captures"`
		} `json:"payments"`
	} `json:"purchase_units"`
}

// CreateIntent opens a CAPTURE-intent order at the gateway and returns its
// id for the client-side approval step.
func (f *PayPalFlow) CreateIntent(ctx context.Context, amount int64, ref string) (string, error) {
	token, err := f.accessToken(ctx)
	if err != nil {
		return "", err
	}

	body := map[string]interface{}{
		"intent": "CAPTURE",
		"purchase_units": []map[string]interface{}{
			{
				"reference_id": ref,
				"amount": map[string]string{
					"currency_code": f.currency,
					"value":         f.usdValue(amount),
				},
			},
		},
	}

	var resp paypalOrderResponse
	if err := f.post(ctx, "/v2/checkout/orders", "create_order", token, body, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", &models.GatewayError{
			Gateway: f.Method(),
			Err:     fmt.Errorf("create order returned no id"),
		}
	}
	return resp.ID, nil
}

// Capture settles an approved intent. Anything other than COMPLETED is a
// decline; transport failures are gateway faults.
func (f *PayPalFlow) Capture(ctx context.Context, intentID string) (*Confirmation, error) {
	token, err := f.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	var resp paypalOrderResponse
	path := fmt.Sprintf("/v2/checkout/orders/%s/capture", intentID)
	if err := f.post(ctx, path, "capture", token, nil, &resp); err != nil {
		return nil, err
	}

	if resp.Status != "COMPLETED" {
		return nil, &models.GatewayError{
			Gateway:  f.Method(),
			Code:     resp.Status,
			Declined: true,
		}
	}

	txID := resp.ID
	if len(resp.PurchaseUnits) > 0 && len(resp.PurchaseUnits[0].Payments.Captures) > 0 {
		txID = resp.PurchaseUnits[0].Payments.Captures[0].ID
	}

	return &Confirmation{TransactionID: txID, ResponseCode: resp.Status}, nil
}

// accessToken fetches a client-credentials token for each call. The gateway
// caches tokens server-side; a local cache is not worth the staleness risk
// at checkout volume.
func (f *PayPalFlow) accessToken(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		f.baseURL+"/v1/oauth2/token",
		strings.NewReader("grant_type=client_credentials"))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.SetBasicAuth(f.clientID, f.secret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	timer := prometheus.NewTimer(util.GatewayRequestLatency.WithLabelValues(f.Method(), "token"))
	resp, err := f.httpClient.Do(req)
	timer.ObserveDuration()
	if err != nil {
		return "", &models.GatewayError{Gateway: f.Method(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &models.GatewayError{
			Gateway: f.Method(),
			Err:     fmt.Errorf("token request failed: status %d", resp.StatusCode),
		}
	}

	var token paypalTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", &models.GatewayError{Gateway: f.Method(), Err: err}
	}
	return token.AccessToken, nil
}

func (f *PayPalFlow) post(ctx context.Context, path, operation, token string, body, dest interface{}) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	timer := prometheus.NewTimer(util.GatewayRequestLatency.WithLabelValues(f.Method(), operation))
	resp, err := f.httpClient.Do(req)
	timer.ObserveDuration()
	if err != nil {
		return &models.GatewayError{Gateway: f.Method(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return &models.GatewayError{
			Gateway: f.Method(),
			Err:     fmt.Errorf("%s: status %d", path, resp.StatusCode),
		}
	}
	if resp.StatusCode >= 400 {
		return &models.GatewayError{
			Gateway:  f.Method(),
			Code:     fmt.Sprintf("HTTP_%d", resp.StatusCode),
			Declined: true,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return &models.GatewayError{Gateway: f.Method(), Err: err}
	}
	return nil
}

// usdValue converts a home-currency amount to a two-decimal USD string
// using the configured rate.
func (f *PayPalFlow) usdValue(amount int64) string {
	cents := (amount*100 + f.ratePerUSD/2) / f.ratePerUSD
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}
