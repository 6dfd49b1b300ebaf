package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"checkout-service/internal/models"
)

const (
	vnpVersion      = "2.1.0"
	vnpCommandPay   = "pay"
	vnpCodeSuccess  = "00"
	vnpDateFormat   = "20060102150405"
	vnpExpireWindow = 15 * time.Minute
)

// VNPayFlow is the redirect gateway: the customer is sent to the hosted
// payment page and confirmation comes back as an HMAC-SHA512 signed query
// string. No order exists until the callback verifies.
type VNPayFlow struct {
	tmnCode    string
	hashSecret string
	payURL     string
	returnURL  string
	now        func() time.Time
}

// NewVNPayFlow creates the redirect gateway adapter.
func NewVNPayFlow(tmnCode, hashSecret, payURL, returnURL string) *VNPayFlow {
	return &VNPayFlow{
		tmnCode:    tmnCode,
		hashSecret: hashSecret,
		payURL:     payURL,
		returnURL:  returnURL,
		now:        time.Now,
	}
}

func (f *VNPayFlow) Method() string { return models.PaymentMethodVNPay }

func (f *VNPayFlow) Kind() FlowKind { return Redirect }

// Initiate builds the signed hosted-payment URL. The gateway expects the
// amount multiplied by 100 and timestamps in its local date format.
func (f *VNPayFlow) Initiate(_ context.Context, req InitiateRequest) (string, error) {
	if req.Ref == "" {
		return "", fmt.Errorf("vnpay: missing transaction ref")
	}

	now := f.now()
	params := url.Values{}
	params.Set("vnp_Version", vnpVersion)
	params.Set("vnp_Command", vnpCommandPay)
	params.Set("vnp_TmnCode", f.tmnCode)
	params.Set("vnp_Amount", fmt.Sprintf("%d", req.Amount*100))
	params.Set("vnp_CreateDate", now.Format(vnpDateFormat))
	params.Set("vnp_ExpireDate", now.Add(vnpExpireWindow).Format(vnpDateFormat))
	params.Set("vnp_CurrCode", "VND")
	params.Set("vnp_IpAddr", req.ClientIP)
	params.Set("vnp_Locale", "vn")
	params.Set("vnp_OrderInfo", req.OrderInfo)
	params.Set("vnp_OrderType", "other")
	params.Set("vnp_ReturnUrl", f.returnURL)
	params.Set("vnp_TxnRef", req.Ref)

	signed := signQuery(params, f.hashSecret)
	return fmt.Sprintf("%s?%s", f.payURL, signed), nil
}

// ConfirmCallback verifies the signature on the return query before trusting
// anything in it, then maps the gateway response code. A bad signature or a
// missing ref is a gateway fault, a non-"00" code is a decline.
func (f *VNPayFlow) ConfirmCallback(params url.Values) (*Confirmation, string, error) {
	got := params.Get("vnp_SecureHash")
	if got == "" {
		return nil, "", &models.GatewayError{
			Gateway: f.Method(),
			Err:     fmt.Errorf("callback missing signature"),
		}
	}

	verify := url.Values{}
	for k, vs := range params {
		if k == "vnp_SecureHash" || k == "vnp_SecureHashType" {
			continue
		}
		for _, v := range vs {
			verify.Add(k, v)
		}
	}

	want := hashQuery(verify, f.hashSecret)
	if !hmac.Equal([]byte(strings.ToLower(got)), []byte(want)) {
		return nil, "", &models.GatewayError{
			Gateway: f.Method(),
			Err:     fmt.Errorf("callback signature mismatch"),
		}
	}

	ref := params.Get("vnp_TxnRef")
	if ref == "" {
		return nil, "", &models.GatewayError{
			Gateway: f.Method(),
			Err:     fmt.Errorf("callback missing vnp_TxnRef"),
		}
	}

	code := params.Get("vnp_ResponseCode")
	if code != vnpCodeSuccess {
		return nil, ref, &models.GatewayError{
			Gateway:  f.Method(),
			Code:     code,
			Declined: true,
		}
	}

	return &Confirmation{
		TransactionID: params.Get("vnp_TransactionNo"),
		ResponseCode:  code,
	}, ref, nil
}

// signQuery returns the encoded query with the vnp_SecureHash appended.
func signQuery(params url.Values, secret string) string {
	encoded := encodeSorted(params)
	return fmt.Sprintf("%s&vnp_SecureHash=%s", encoded, hmacSHA512(secret, encoded))
}

// hashQuery computes the signature over the sorted encoded params.
func hashQuery(params url.Values, secret string) string {
	return hmacSHA512(secret, encodeSorted(params))
}

// encodeSorted encodes params in key order, the byte layout the gateway
// signs on its side.
func encodeSorted(params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(params.Get(k)))
	}
	return b.String()
}

func hmacSHA512(secret, data string) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}
