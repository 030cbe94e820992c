// Package whatsapp implements the notify.Notifier against a bearer-token
// authenticated HTTP messaging relay.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// httpDoer abstracts the HTTP client, enabling test doubles.
type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client posts messages to the WhatsApp relay.
type Client struct {
	http     httpDoer
	relayURL string
	token    string
	number   string // destination ops number
}

// New creates a relay client. The relay call has its own timeout; no overall
// request deadline is layered on top.
func New(relayURL, token, number string) *Client {
	return &Client{
		http:     &http.Client{Timeout: 10 * time.Second},
		relayURL: relayURL,
		token:    token,
		number:   number,
	}
}

// payload is the relay's message envelope.
type payload struct {
	Number  string `json:"number"`
	Message string `json:"message"`
}

// Send delivers the text to the configured ops number via the relay.
func (c *Client) Send(ctx context.Context, text string) error {
	return c.SendTo(ctx, c.number, text)
}

// SendTo delivers the text to an explicit number via the relay.
func (c *Client) SendTo(ctx context.Context, number, text string) error {
	body, err := json.Marshal(payload{Number: number, Message: text})
	if err != nil {
		return fmt.Errorf("whatsapp: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.relayURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("whatsapp: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("whatsapp: relay call: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode >= http.StatusBadRequest {
		detail, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return fmt.Errorf("whatsapp: relay status %d: %s", res.StatusCode, detail)
	}

	// Drain so the keep-alive connection can be reused.
	io.Copy(io.Discard, res.Body)
	return nil
}
