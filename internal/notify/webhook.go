// Package notify posts one-line incident summaries to a chat webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Message represents an outbound alert. BotID is only sent when set, which
// is what GroupMe-style bot endpoints expect.
type Message struct {
	Text  string `json:"text"`
	BotID string `json:"bot_id,omitempty"`
}

// Webhook posts messages to a fixed URL. A nil *Webhook is disabled.
type Webhook struct {
	url    string
	botID  string
	client *http.Client
}

// NewWebhook returns nil when url is empty.
func NewWebhook(url, botID string) *Webhook {
	if url == "" {
		return nil
	}
	return &Webhook{url: url, botID: botID, client: &http.Client{Timeout: 10 * time.Second}}
}

func (w *Webhook) Send(ctx context.Context, text string) error {
	if w == nil {
		return nil
	}
	buf, err := json.Marshal(Message{Text: text, BotID: w.botID})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook status %d", resp.StatusCode)
	}
	return nil
}
