package bunq

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/pkg/errors"
)

// paymentService implements the PaymentService interface
type paymentService struct {
	client *Client
}

// ListAll retrieves the full payment history of an account. The API returns
// payments newest first in pages of at most 200; older pages are fetched
// until the pagination runs out. Expensive on long histories, which is why
// callers cache the result.
func (s *paymentService) ListAll(ctx context.Context, accountID int64) ([]*Payment, error) {
	path := fmt.Sprintf("/user/monetary-account/%d/payment", accountID)

	params := url.Values{}
	params.Set("count", strconv.Itoa(pageSize))

	var payments []*Payment
	for {
		resp, err := s.client.transport.list(ctx, path, params)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to list payments for account %d", accountID)
		}

		page, err := parsePayments(resp)
		if err != nil {
			return nil, err
		}
		payments = append(payments, page...)

		if resp.Pagination == nil || resp.Pagination.OlderURL == nil {
			break
		}
		params, err = pageParams(*resp.Pagination.OlderURL)
		if err != nil {
			return nil, err
		}
	}
	return payments, nil
}

// Get retrieves a single payment by id
func (s *paymentService) Get(ctx context.Context, accountID, paymentID int64) (*Payment, error) {
	path := fmt.Sprintf("/user/monetary-account/%d/payment/%d", accountID, paymentID)
	resp, err := s.client.transport.list(ctx, path, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get payment %d", paymentID)
	}

	payments, err := parsePayments(resp)
	if err != nil {
		return nil, err
	}
	if len(payments) == 0 {
		return nil, ErrNotFound
	}
	return payments[0], nil
}

func parsePayments(resp *listResponse) ([]*Payment, error) {
	var payments []*Payment
	for _, item := range resp.Response {
		raw, ok := item["Payment"]
		if !ok {
			continue
		}
		var payment Payment
		if err := json.Unmarshal(raw, &payment); err != nil {
			return nil, errors.Wrap(err, "failed to parse payment")
		}
		payments = append(payments, &payment)
	}
	return payments, nil
}

// pageParams extracts the query parameters from a pagination URL. The API
// hands back fully formed URLs; only the query matters since the path does
// not change.
func pageParams(pageURL string) (url.Values, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse pagination url")
	}
	return parsed.Query(), nil
}
