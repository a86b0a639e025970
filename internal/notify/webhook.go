package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
)

// Webhook POSTs each alert as JSON to a URL.
type Webhook struct {
	HTTP *resty.Client
	URL  string
}

// NewWebhook builds a webhook notifier. headers are sent on every request,
// e.g. an Authorization header for the receiving service.
func NewWebhook(url string, headers map[string]string) *Webhook {
	r := resty.New().
		SetTimeout(10 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeaders(headers).
		SetJSONMarshaler(json.Marshal)

	return &Webhook{HTTP: r, URL: url}
}

func (w *Webhook) Deliver(ctx context.Context, device, localTimestamp string) error {
	resp, err := w.HTTP.R().
		SetContext(ctx).
		SetBody(newAlert(device, localTimestamp)).
		Post(w.URL)

	if err != nil {
		return &DeliveryError{Notifier: "webhook", Device: device, Err: err}
	}
	if resp.IsError() {
		return &DeliveryError{
			Notifier: "webhook",
			Device:   device,
			Err:      fmt.Errorf("status %s: %s", resp.Status(), resp.String()),
		}
	}
	return nil
}
