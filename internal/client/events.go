package client

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// OpenEventStream starts the server-push stream of device state. It returns
// as soon as the response headers arrive; the caller reads the body line by
// line and must close it.
func (c *NestClient) OpenEventStream(ctx context.Context, token string) (io.ReadCloser, error) {
	resp, err := c.HTTP.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		SetHeader("Accept", "text/event-stream").
		SetHeader("Cache-Control", "no-cache").
		SetAuthToken(token).
		Get("/")

	if err != nil {
		return nil, err
	}

	body := resp.RawBody()
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		snippet := ""
		if body != nil {
			b, _ := io.ReadAll(io.LimitReader(body, 512))
			_ = body.Close()
			snippet = strings.TrimSpace(string(b))
		}
		return nil, fmt.Errorf("event stream returned %s: %s", resp.Status(), snippet)
	}
	if body == nil {
		return nil, fmt.Errorf("event stream returned no body")
	}

	return body, nil
}
