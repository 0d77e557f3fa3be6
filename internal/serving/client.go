package serving

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"

	"github.com/svanherk/bunqynab/pkg/bunq"
)

// Client calls a budget's model server to categorize a payment.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a prediction client for the model server at baseURL.
func NewClient(baseURL string) *Client {
	retry := retryablehttp.NewClient()
	retry.RetryMax = 3
	retry.Logger = nil
	return &Client{baseURL: baseURL, http: retry.StandardClient()}
}

// NewClientForPort targets a model server on localhost, as spawned by the
// serving supervisor.
func NewClientForPort(port int) *Client {
	return NewClient(fmt.Sprintf("http://127.0.0.1:%d", port))
}

// Predict posts the payment and returns the predicted category name.
func (c *Client) Predict(ctx context.Context, payment *bunq.Payment) (string, error) {
	body, err := json.Marshal(payment)
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal payment")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, "failed to create prediction request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "failed to call model server")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "failed to read prediction response")
	}
	if resp.StatusCode != http.StatusOK {
		return "", errors.Errorf("model server returned status %d", resp.StatusCode)
	}
	return string(data), nil
}
