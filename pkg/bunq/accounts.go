package bunq

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
)

// accountService implements the AccountService interface
type accountService struct {
	client *Client
}

// List retrieves all active monetary accounts. The API wraps each account in
// a type key (MonetaryAccountBank, MonetaryAccountSavings, ...); all variants
// share the fields this module reads.
func (s *accountService) List(ctx context.Context) ([]*MonetaryAccount, error) {
	resp, err := s.client.transport.list(ctx, "/user/monetary-account", nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list accounts")
	}

	var accounts []*MonetaryAccount
	for _, item := range resp.Response {
		for _, raw := range item {
			var account MonetaryAccount
			if err := json.Unmarshal(raw, &account); err != nil {
				return nil, errors.Wrap(err, "failed to parse account")
			}
			accounts = append(accounts, &account)
		}
	}
	return accounts, nil
}
