package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nikhilbhutani/speakify/internal/converter"
)

// Webhook posts each notification to a URL from a background loop. Payloads
// are signed with HMAC-SHA256 when a secret is set.
type Webhook struct {
	url        string
	secret     string
	httpClient *http.Client
	deliveries chan delivery
	done       chan struct{}
	closeOnce  sync.Once
}

type delivery struct {
	ID      uuid.UUID
	Payload []byte
}

type webhookPayload struct {
	Event   string                     `json:"event"`
	Kind    converter.NotificationKind `json:"kind"`
	Message string                     `json:"message"`
	SentAt  time.Time                  `json:"sent_at"`
}

func NewWebhook(url, secret string) *Webhook {
	w := &Webhook{
		url:    url,
		secret: secret,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		deliveries: make(chan delivery, 256),
		done:       make(chan struct{}),
	}
	go w.processLoop()
	return w
}

func (w *Webhook) Notify(_ context.Context, n converter.Notification) {
	payload, err := json.Marshal(webhookPayload{
		Event:   "notification",
		Kind:    n.Kind,
		Message: n.Message,
		SentAt:  time.Now().UTC(),
	})
	if err != nil {
		slog.Error("marshal webhook payload", "error", err)
		return
	}

	select {
	case w.deliveries <- delivery{ID: uuid.New(), Payload: payload}:
	default:
		slog.Warn("webhook delivery queue full, dropping", "kind", n.Kind)
	}
}

// Close stops accepting deliveries and waits for queued ones to finish.
func (w *Webhook) Close() {
	w.closeOnce.Do(func() { close(w.deliveries) })
	<-w.done
}

func (w *Webhook) processLoop() {
	defer close(w.done)
	for d := range w.deliveries {
		w.deliver(d)
	}
}

func (w *Webhook) deliver(d delivery) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(d.Payload))
	if err != nil {
		slog.Error("webhook request creation failed", "error", err)
		return
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Event", "notification")
	req.Header.Set("X-Webhook-ID", d.ID.String())
	if w.secret != "" {
		req.Header.Set("X-Webhook-Signature", sign(d.Payload, w.secret))
	}

	resp, err := w.httpClient.Do(req)
	if err != nil {
		slog.Error("webhook delivery failed", "error", err, "delivery_id", d.ID)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		slog.Warn("webhook received non-success response", "status", resp.StatusCode, "delivery_id", d.ID)
	}
}

func sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return fmt.Sprintf("sha256=%s", hex.EncodeToString(mac.Sum(nil)))
}
