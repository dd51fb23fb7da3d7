package razorpay_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sevasangam/puja-bookings/internal/adapters/razorpay"
	"github.com/sevasangam/puja-bookings/internal/observability"
)

func TestClient_CreateOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/orders" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "rzp_test_key" || pass != "secret" {
			t.Errorf("expected basic auth credentials, got %q/%q", user, pass)
		}

		var req struct {
			Amount   int64  `json:"amount"`
			Currency string `json:"currency"`
			Receipt  string `json:"receipt"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		if req.Amount != 125100 {
			t.Errorf("expected amount in paise 125100, got %d", req.Amount)
		}
		if req.Currency != "INR" {
			t.Errorf("expected INR, got %s", req.Currency)
		}

		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":       "order_xyz789",
			"amount":   req.Amount,
			"currency": req.Currency,
			"receipt":  req.Receipt,
			"status":   "created",
		})
	}))
	defer srv.Close()

	client := razorpay.NewClient(srv.URL, "rzp_test_key", "secret", srv.Client(), observability.NewLogger())

	order, err := client.CreateOrder(context.Background(), 1251, "rcpt-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if order.ID != "order_xyz789" {
		t.Errorf("expected order id order_xyz789, got %s", order.ID)
	}
	if order.Amount != 1251 {
		t.Errorf("expected amount converted back to rupees 1251, got %d", order.Amount)
	}
}

func TestClient_CreateOrder_GatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":"BAD_REQUEST_ERROR"}}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	client := razorpay.NewClient(srv.URL, "rzp_test_key", "secret", srv.Client(), observability.NewLogger())

	_, err := client.CreateOrder(context.Background(), 100, "rcpt-2")
	if err == nil {
		t.Fatal("expected error on non-2xx response")
	}
}

func TestClient_VerifySignature(t *testing.T) {
	client := razorpay.NewClient("http://unused", "rzp_test_key", "secret", http.DefaultClient, observability.NewLogger())

	mac := hmac.New(sha256.New, []byte("secret"))
	mac.Write([]byte("order_abc|pay_def"))
	good := hex.EncodeToString(mac.Sum(nil))

	if !client.VerifySignature("order_abc", "pay_def", good) {
		t.Error("expected valid signature to verify")
	}
	if client.VerifySignature("order_abc", "pay_def", "deadbeef") {
		t.Error("expected forged signature to fail")
	}
	if client.VerifySignature("order_abc", "pay_other", good) {
		t.Error("expected signature over different payment id to fail")
	}
}

func TestClient_PublicKey(t *testing.T) {
	client := razorpay.NewClient("http://unused", "rzp_test_key", "secret", http.DefaultClient, observability.NewLogger())
	if client.PublicKey() != "rzp_test_key" {
		t.Errorf("expected key id, got %s", client.PublicKey())
	}
}
