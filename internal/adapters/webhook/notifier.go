// Package webhook POSTs manufacturing triggers to an external automation
// endpoint (an n8n workflow hook in the original deployment).
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"prospect/internal/ports"
)

type Notifier struct {
	url        string
	httpClient *http.Client
}

func New(url string) *Notifier {
	return &Notifier{
		url: url,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (n *Notifier) ValidationPassed(ctx context.Context, trig ports.ManufacturingTrigger) error {
	payload, err := json.Marshal(trig)
	if err != nil {
		return fmt.Errorf("marshal trigger: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post trigger: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("trigger webhook returned status %d", resp.StatusCode)
	}
	return nil
}
