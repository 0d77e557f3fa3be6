// Package ynab is a client for the YNAB REST API: budgets, accounts,
// categories and transaction writes. Responses are parsed into locally-owned
// structs at the boundary.
package ynab

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const (
	// DefaultBaseURL is the production API endpoint
	DefaultBaseURL = "https://api.ynab.com/v1"

	// DefaultTimeout is the default HTTP client timeout
	DefaultTimeout = 30 * time.Second
)

// Client is the YNAB API client
type Client struct {
	// Service interfaces
	Budgets      BudgetService
	Accounts     AccountService
	Categories   CategoryService
	Transactions TransactionService

	baseURL     string
	token       string
	httpClient  *http.Client
	retryClient *retryablehttp.Client
	logger      zerolog.Logger
}

// ClientOptions configures the client
type ClientOptions struct {
	// BaseURL overrides the default API base URL
	BaseURL string

	// Token is the personal access token
	Token string

	// HTTPClient allows using a custom HTTP client
	HTTPClient *http.Client

	// Timeout sets the HTTP client timeout
	Timeout time.Duration

	// RetryConfig configures retry behavior
	RetryConfig *RetryConfig

	// Logger for debug logging
	Logger zerolog.Logger
}

// NewClient creates a new YNAB client
func NewClient(opts *ClientOptions) *Client {
	if opts == nil {
		opts = &ClientOptions{}
	}

	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: DefaultTimeout}
	}
	if opts.Timeout > 0 {
		opts.HTTPClient.Timeout = opts.Timeout
	}

	var retryClient *retryablehttp.Client
	if opts.RetryConfig != nil {
		retryClient = retryablehttp.NewClient()
		retryClient.HTTPClient = opts.HTTPClient
		retryClient.RetryMax = opts.RetryConfig.MaxRetries
		retryClient.RetryWaitMin = opts.RetryConfig.RetryWait
		retryClient.RetryWaitMax = opts.RetryConfig.MaxWait
		retryClient.Logger = nil
	}

	c := &Client{
		baseURL:     opts.BaseURL,
		token:       opts.Token,
		httpClient:  opts.HTTPClient,
		retryClient: retryClient,
		logger:      opts.Logger,
	}
	c.Budgets = &budgetService{client: c}
	c.Accounts = &accountService{client: c}
	c.Categories = &categoryService{client: c}
	c.Transactions = &transactionService{client: c}
	return c
}

// dataEnvelope is the envelope every response is wrapped in.
type dataEnvelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		Detail string `json:"detail"`
	} `json:"error"`
}

// get performs a GET and unmarshals the data envelope into result.
func (c *Client) get(ctx context.Context, path string, result interface{}) error {
	return c.do(ctx, http.MethodGet, path, nil, result)
}

// post sends a JSON payload and unmarshals the data envelope into result.
func (c *Client) post(ctx context.Context, path string, payload, result interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "failed to marshal request")
	}
	return c.do(ctx, http.MethodPost, path, body, result)
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, result interface{}) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	c.logger.Debug().Str("method", method).Str("path", path).Msg("ynab request")

	resp, err := c.doRequest(req)
	if err != nil {
		return errors.Wrap(err, "request failed")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "failed to read response")
	}

	var envelope dataEnvelope
	_ = json.Unmarshal(respBody, &envelope)

	if resp.StatusCode >= 300 {
		apiErr := &Error{StatusCode: resp.StatusCode}
		if envelope.Error != nil {
			apiErr.ID = envelope.Error.ID
			apiErr.Name = envelope.Error.Name
			apiErr.Detail = envelope.Error.Detail
		}
		switch resp.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			apiErr.Err = ErrNotAuthenticated
		case http.StatusNotFound:
			apiErr.Err = ErrNotFound
		case http.StatusTooManyRequests:
			apiErr.Err = ErrRateLimited
		default:
			if resp.StatusCode >= 500 {
				apiErr.Err = ErrServerError
			}
		}
		return apiErr
	}

	if result != nil {
		if err := json.Unmarshal(envelope.Data, result); err != nil {
			return errors.Wrap(err, "failed to unmarshal result")
		}
	}
	return nil
}

func (c *Client) doRequest(req *http.Request) (*http.Response, error) {
	if c.retryClient != nil {
		retryReq, err := retryablehttp.FromRequest(req)
		if err != nil {
			return nil, err
		}
		return c.retryClient.Do(retryReq)
	}
	return c.httpClient.Do(req)
}
