package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const EventDistressDetected = "distress.detected"

// Dispatcher posts signed JSON events to a single endpoint.
type Dispatcher struct {
	url        string
	secret     string
	httpClient *http.Client
}

type DeliveryRequest struct {
	ID      uuid.UUID
	Event   string
	Payload []byte
}

// DeliveryResult describes one delivery attempt.
type DeliveryResult struct {
	URL         string
	Status      int
	DeliveredAt *time.Time
}

func NewDispatcher(url, secret string) *Dispatcher {
	return &Dispatcher{
		url:    url,
		secret: secret,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (d *Dispatcher) Enabled() bool { return d.url != "" }

// Deliver sends one event. Non-2xx responses are returned as errors so the
// caller's retry policy applies.
func (d *Dispatcher) Deliver(ctx context.Context, req DeliveryRequest) (DeliveryResult, error) {
	res := DeliveryResult{URL: d.url}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(req.Payload))
	if err != nil {
		return res, fmt.Errorf("build webhook request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Webhook-Event", req.Event)
	httpReq.Header.Set("X-Webhook-ID", req.ID.String())
	if d.secret != "" {
		httpReq.Header.Set("X-Webhook-Signature", Sign(req.Payload, d.secret))
	}

	resp, err := d.httpClient.Do(httpReq)
	if err != nil {
		return res, fmt.Errorf("webhook delivery: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	res.Status = resp.StatusCode
	if resp.StatusCode >= 300 {
		slog.Warn("webhook received non-success response", "status", resp.StatusCode, "webhook_id", req.ID)
		return res, fmt.Errorf("webhook endpoint returned status %d", resp.StatusCode)
	}

	now := time.Now()
	res.DeliveredAt = &now
	return res, nil
}

// Sign returns the X-Webhook-Signature value for payload.
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return fmt.Sprintf("sha256=%s", hex.EncodeToString(mac.Sum(nil)))
}

// Verify checks a signature produced by Sign in constant time.
func Verify(payload []byte, secret, signature string) bool {
	return hmac.Equal([]byte(Sign(payload, secret)), []byte(signature))
}
