package bunq

import "context"

// AccountService handles monetary account operations
type AccountService interface {
	// List retrieves all active monetary accounts
	List(ctx context.Context) ([]*MonetaryAccount, error)
}

// PaymentService handles payment operations
type PaymentService interface {
	// ListAll retrieves the full payment history of an account, following
	// pagination until exhausted. Ordering is newest first, as the API
	// returns it.
	ListAll(ctx context.Context, accountID int64) ([]*Payment, error)

	// Get retrieves a single payment by id
	Get(ctx context.Context, accountID, paymentID int64) (*Payment, error)
}

// CallbackService manages webhook notification filters
type CallbackService interface {
	// List retrieves all registered notification filters
	List(ctx context.Context) ([]*NotificationFilter, error)

	// Ensure registers the given callback URL for the category unless an
	// equivalent filter already exists
	Ensure(ctx context.Context, callbackURL, category string) error
}
