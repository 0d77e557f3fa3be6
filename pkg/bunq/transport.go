package bunq

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const authHeaderKey = "X-Bunq-Client-Authentication"

// listResponse is the envelope the API wraps every collection response in.
// Each item holds exactly one key: the object type.
type listResponse struct {
	Response   []map[string]json.RawMessage `json:"Response"`
	Pagination *pagination                  `json:"Pagination"`
}

type pagination struct {
	OlderURL  *string `json:"older_url"`
	NewerURL  *string `json:"newer_url"`
	FutureURL *string `json:"future_url"`
}

type errorResponse struct {
	Error []struct {
		Description string `json:"error_description"`
	} `json:"Error"`
}

// transport performs authenticated REST calls against the API.
type transport struct {
	baseURL     string
	apiKey      string
	httpClient  *http.Client
	retryClient *retryablehttp.Client
	logger      zerolog.Logger
}

func newTransport(opts *ClientOptions) *transport {
	var retryClient *retryablehttp.Client
	if opts.RetryConfig != nil {
		retryClient = retryablehttp.NewClient()
		retryClient.HTTPClient = opts.HTTPClient
		retryClient.RetryMax = opts.RetryConfig.MaxRetries
		retryClient.RetryWaitMin = opts.RetryConfig.RetryWait
		retryClient.RetryWaitMax = opts.RetryConfig.MaxWait
		retryClient.Logger = nil
	}

	return &transport{
		baseURL:     opts.BaseURL,
		apiKey:      opts.APIKey,
		httpClient:  opts.HTTPClient,
		retryClient: retryClient,
		logger:      opts.Logger,
	}
}

// list performs a GET and decodes the collection envelope. path may already
// carry a query string (pagination URLs come back fully formed).
func (t *transport) list(ctx context.Context, path string, params url.Values) (*listResponse, error) {
	full := t.baseURL + path
	if len(params) > 0 {
		full += "?" + params.Encode()
	}

	body, err := t.do(ctx, http.MethodGet, full, nil)
	if err != nil {
		return nil, err
	}

	var result listResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, errors.Wrap(err, "failed to parse response")
	}
	return &result, nil
}

// post sends a JSON payload.
func (t *transport) post(ctx context.Context, path string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "failed to marshal request")
	}
	_, err = t.do(ctx, http.MethodPost, t.baseURL+path, body)
	return err
}

func (t *transport) do(ctx context.Context, method, fullURL string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(authHeaderKey, t.apiKey)

	t.logger.Debug().Str("method", method).Str("url", fullURL).Msg("bunq request")

	resp, err := t.doRequest(req)
	if err != nil {
		return nil, errors.Wrap(err, "request failed")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, t.handleHTTPError(resp.StatusCode, respBody)
	}
	return respBody, nil
}

func (t *transport) doRequest(req *http.Request) (*http.Response, error) {
	if t.retryClient != nil {
		retryReq, err := retryablehttp.FromRequest(req)
		if err != nil {
			return nil, err
		}
		return t.retryClient.Do(retryReq)
	}
	return t.httpClient.Do(req)
}

func (t *transport) handleHTTPError(statusCode int, body []byte) error {
	var errResp errorResponse
	_ = json.Unmarshal(body, &errResp)

	description := ""
	if len(errResp.Error) > 0 {
		description = errResp.Error[0].Description
	}

	apiErr := &Error{StatusCode: statusCode, Description: description}
	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		apiErr.Err = ErrNotAuthenticated
	case http.StatusNotFound:
		apiErr.Err = ErrNotFound
	case http.StatusTooManyRequests:
		apiErr.Err = ErrRateLimited
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		apiErr.Err = ErrTimeout
	default:
		if statusCode >= 500 {
			apiErr.Err = ErrServerError
		}
	}
	return apiErr
}
