// Package bunq is a client for the bunq REST API, covering the small surface
// this module needs: listing monetary accounts, paging through payments and
// managing webhook notification filters. API responses are parsed into
// locally-owned structs at the boundary.
package bunq

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultBaseURL is the production API endpoint
	DefaultBaseURL = "https://api.bunq.com/v1"

	// DefaultTimeout is the default HTTP client timeout
	DefaultTimeout = 30 * time.Second

	// pageSize is the maximum page size the API allows for listing payments
	pageSize = 200
)

// Client is the bunq API client
type Client struct {
	// Service interfaces
	Accounts  AccountService
	Payments  PaymentService
	Callbacks CallbackService

	transport *transport
	options   *ClientOptions
}

// ClientOptions configures the client
type ClientOptions struct {
	// BaseURL overrides the default API base URL
	BaseURL string

	// APIKey authenticates all requests
	APIKey string

	// HTTPClient allows using a custom HTTP client
	HTTPClient *http.Client

	// Timeout sets the HTTP client timeout
	Timeout time.Duration

	// RetryConfig configures retry behavior
	RetryConfig *RetryConfig

	// Logger for debug logging
	Logger zerolog.Logger
}

// NewClient creates a new bunq client
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

	c := &Client{
		transport: newTransport(opts),
		options:   opts,
	}
	c.Accounts = &accountService{client: c}
	c.Payments = &paymentService{client: c}
	c.Callbacks = &callbackService{client: c}
	return c
}
