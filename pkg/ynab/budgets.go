package ynab

import (
	"context"

	"github.com/pkg/errors"
)

// budgetService implements the BudgetService interface
type budgetService struct {
	client *Client
}

// List retrieves all budgets
func (s *budgetService) List(ctx context.Context) ([]*Budget, error) {
	var result struct {
		Budgets []*Budget `json:"budgets"`
	}
	if err := s.client.get(ctx, "/budgets", &result); err != nil {
		return nil, errors.Wrap(err, "failed to list budgets")
	}
	return result.Budgets, nil
}
