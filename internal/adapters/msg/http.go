package msg

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/sevasangam/puja-bookings/internal/observability"
)

// HTTPSender delivers through a WhatsApp/SMS provider's REST API.
type HTTPSender struct {
	baseURL string
	token   string
	sender  string
	hc      *http.Client
	logger  observability.Logger
}

func NewHTTPSender(baseURL, token, sender string, hc *http.Client, logger observability.Logger) *HTTPSender {
	return &HTTPSender{
		baseURL: baseURL,
		token:   token,
		sender:  sender,
		hc:      hc,
		logger:  logger,
	}
}

func (s *HTTPSender) Send(ctx context.Context, m Message) (Status, error) {
	reqBody, _ := json.Marshal(map[string]string{
		"from": s.sender,
		"to":   m.To,
		"body": m.Body,
	})
	url := fmt.Sprintf("%s/v1/messages", s.baseURL)

	hr, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(reqBody))
	if err != nil {
		return StatusError, err
	}
	hr.Header.Set("Content-Type", "application/json")
	hr.Header.Set("Authorization", "Bearer "+s.token)

	resp, err := s.hc.Do(hr)
	if err != nil {
		return StatusError, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(resp.Body)
		return StatusError, errors.Newf("message provider returned %d: %s", resp.StatusCode, string(respBody))
	}
	return StatusDelivered, nil
}
