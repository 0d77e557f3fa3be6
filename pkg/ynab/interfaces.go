package ynab

import "context"

// BudgetService handles budget operations
type BudgetService interface {
	// List retrieves all budgets
	List(ctx context.Context) ([]*Budget, error)
}

// AccountService handles budget account operations
type AccountService interface {
	// ListByBudget retrieves all open accounts of a budget
	ListByBudget(ctx context.Context, budgetID string) ([]*Account, error)

	// FindByIBAN locates the account whose note field holds the given IBAN,
	// searching across all budgets. Returns ErrAccountNotFound when no
	// account matches.
	FindByIBAN(ctx context.Context, iban string) (*Account, error)
}

// CategoryService handles category operations
type CategoryService interface {
	// ListByBudget retrieves all categories of a budget, flattened across
	// category groups
	ListByBudget(ctx context.Context, budgetID string) ([]*Category, error)

	// FindByName locates a category by its display name. Returns
	// ErrCategoryNotFound when no category matches.
	FindByName(ctx context.Context, budgetID, name string) (*Category, error)
}

// TransactionService handles ledger transactions
type TransactionService interface {
	// ListByAccount retrieves all transactions of an account
	ListByAccount(ctx context.Context, budgetID, accountID string) ([]*Transaction, error)

	// Create writes a new transaction to the budget
	Create(ctx context.Context, budgetID string, tx *SaveTransaction) (*Transaction, error)
}
