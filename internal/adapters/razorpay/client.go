package razorpay

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/sevasangam/puja-bookings/internal/observability"
)

// Client talks to the payment gateway's REST API and verifies its callback
// signatures. Amounts cross the wire in paise; the domain works in rupees.
type Client struct {
	baseURL   string
	keyID     string
	keySecret string
	hc        *http.Client
	logger    observability.Logger
}

func NewClient(baseURL, keyID, keySecret string, hc *http.Client, logger observability.Logger) *Client {
	return &Client{
		baseURL:   baseURL,
		keyID:     keyID,
		keySecret: keySecret,
		hc:        hc,
		logger:    logger,
	}
}

type GatewayOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// CreateOrder registers a charge intent with the gateway for amount rupees.
func (c *Client) CreateOrder(ctx context.Context, amount int64, receipt string) (*GatewayOrder, error) {
	reqBody, _ := json.Marshal(map[string]interface{}{
		"amount":   amount * 100,
		"currency": "INR",
		"receipt":  receipt,
	})
	url := fmt.Sprintf("%s/v1/orders", c.baseURL)

	hr, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, err
	}
	hr.Header.Set("Content-Type", "application/json")
	hr.Header.Set("Authorization", "Basic "+basicAuth(c.keyID, c.keySecret))

	resp, err := c.hc.Do(hr)
	if err != nil {
		c.logger.WithError(err).Error("gateway order creation failed")
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := errors.Newf("gateway returned %d: %s", resp.StatusCode, string(respBody))
		c.logger.WithError(err).Error("gateway order creation failed")
		return nil, err
	}

	var order GatewayOrder
	if err := json.Unmarshal(respBody, &order); err != nil {
		return nil, err
	}
	order.Amount = order.Amount / 100
	return &order, nil
}

// VerifySignature recomputes the callback signature: HMAC-SHA256 over
// "<orderID>|<paymentID>" keyed with the shared secret, hex encoded. The
// comparison is constant time.
func (c *Client) VerifySignature(gatewayOrderID, gatewayPaymentID, signature string) bool {
	mac := hmac.New(sha256.New, []byte(c.keySecret))
	mac.Write([]byte(gatewayOrderID + "|" + gatewayPaymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// PublicKey is the key id the checkout page embeds.
func (c *Client) PublicKey() string {
	return c.keyID
}

func basicAuth(user, pass string) string {
	return base64.StdEncoding.EncodeToString([]byte(user + ":" + pass))
}
