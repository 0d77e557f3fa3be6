package ynab

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

// transactionService implements the TransactionService interface
type transactionService struct {
	client *Client
}

// ListByAccount retrieves all transactions of an account
func (s *transactionService) ListByAccount(ctx context.Context, budgetID, accountID string) ([]*Transaction, error) {
	var result struct {
		Transactions []*Transaction `json:"transactions"`
	}
	path := fmt.Sprintf("/budgets/%s/accounts/%s/transactions", budgetID, accountID)
	if err := s.client.get(ctx, path, &result); err != nil {
		return nil, errors.Wrapf(err, "failed to list transactions for account %s", accountID)
	}
	return result.Transactions, nil
}

// Create writes a new transaction to the budget
func (s *transactionService) Create(ctx context.Context, budgetID string, tx *SaveTransaction) (*Transaction, error) {
	payload := map[string]interface{}{"transaction": tx}

	var result struct {
		Transaction *Transaction `json:"transaction"`
	}
	path := fmt.Sprintf("/budgets/%s/transactions", budgetID)
	if err := s.client.post(ctx, path, payload, &result); err != nil {
		return nil, errors.Wrapf(err, "failed to create transaction in budget %s", budgetID)
	}
	return result.Transaction, nil
}
