package httpclient

import (
	"context"
	"encoding/json"
	"fmt"
)

// GetJSON performs a GET and decodes the body into v. JSON APIs are expected to
// answer 2xx; any other status is an error.
func (c *Client) GetJSON(ctx context.Context, req Request, v any) error {
	if req.Headers == nil {
		req.Headers = map[string]string{}
	}
	if _, ok := req.Headers["Accept"]; !ok {
		req.Headers["Accept"] = "application/json"
	}

	resp, err := c.Get(ctx, req)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("get %s: unexpected status %d", resp.URL, resp.StatusCode)
	}
	if err := json.Unmarshal(resp.Body, v); err != nil {
		return fmt.Errorf("decode %s: %w", resp.URL, err)
	}
	return nil
}
