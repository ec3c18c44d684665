package httpjson

import (
	"context"
	"fmt"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
	"io"
	"net/http"
	"time"
)

const maxBodySize = 16 << 20

type HTTPClient struct {
	client    *http.Client
	userAgent string
}

func NewHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client:    &http.Client{Timeout: timeout},
		userAgent: "cryptoconvert/1.0",
	}
}

// Get performs a GET request and returns the parsed JSON document.
func (c *HTTPClient) Get(ctx context.Context, url string) (gjson.Result, error) {
	const op = "httpjson.Get"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return gjson.Result{}, errors.Wrap(err, op+": create request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return gjson.Result{}, errors.Wrap(err, op+": do request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return gjson.Result{}, fmt.Errorf("%s: bad status: %s", op, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return gjson.Result{}, errors.Wrap(err, op+": read body")
	}

	if !gjson.ValidBytes(body) {
		return gjson.Result{}, fmt.Errorf("%s: invalid json from %s", op, url)
	}

	return gjson.ParseBytes(body), nil
}
