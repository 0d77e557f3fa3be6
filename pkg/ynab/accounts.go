package ynab

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

// accountService implements the AccountService interface
type accountService struct {
	client *Client
}

// ListByBudget retrieves all open accounts of a budget
func (s *accountService) ListByBudget(ctx context.Context, budgetID string) ([]*Account, error) {
	var result struct {
		Accounts []*Account `json:"accounts"`
	}
	path := fmt.Sprintf("/budgets/%s/accounts", budgetID)
	if err := s.client.get(ctx, path, &result); err != nil {
		return nil, errors.Wrapf(err, "failed to list accounts for budget %s", budgetID)
	}

	var accounts []*Account
	for _, account := range result.Accounts {
		if account.Closed {
			continue
		}
		account.BudgetID = budgetID
		accounts = append(accounts, account)
	}
	return accounts, nil
}

// FindByIBAN locates the account whose note field holds the given IBAN. The
// note-holds-IBAN convention is user-maintained; when nobody maintained it,
// this is where it shows up as ErrAccountNotFound.
func (s *accountService) FindByIBAN(ctx context.Context, iban string) (*Account, error) {
	budgets, err := s.client.Budgets.List(ctx)
	if err != nil {
		return nil, err
	}

	for _, budget := range budgets {
		accounts, err := s.ListByBudget(ctx, budget.ID)
		if err != nil {
			return nil, err
		}
		for _, account := range accounts {
			if account.IBAN() == iban {
				return account, nil
			}
		}
	}
	return nil, errors.Wrapf(ErrAccountNotFound, "iban %s", iban)
}
