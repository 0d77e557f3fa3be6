package ynab

import (
	"strings"
	"time"
)

// SplitCategoryName is the sentinel category the API reports for
// transactions split over multiple categories. Not a real category: invalid
// as a training label and as a prediction.
const SplitCategoryName = "Split (Multiple Categories)..."

// Budget is a snapshot of one budget, immutable per load.
type Budget struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Account is a budget account. The free-text note field is repurposed by
// convention to hold the IBAN of the linked bank account.
type Account struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Note   string `json:"note"`
	Closed bool   `json:"closed"`

	// BudgetID is the owning budget, filled in by the account service.
	BudgetID string `json:"-"`
}

// IBAN returns the linked bank account's IBAN as maintained in the note
// field. The convention is user-maintained, not a structural guarantee.
func (a *Account) IBAN() string {
	return strings.TrimSpace(a.Note)
}

// Category is a budget category.
type Category struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Hidden  bool   `json:"hidden"`
	Deleted bool   `json:"deleted"`
}

// Transaction is a ledger entry. Amount is in milliunits: the real value is
// amount / 1000.
type Transaction struct {
	ID           string  `json:"id"`
	Date         string  `json:"date"`
	Amount       int64   `json:"amount"`
	Memo         string  `json:"memo"`
	PayeeName    string  `json:"payee_name"`
	CategoryID   string  `json:"category_id"`
	CategoryName *string `json:"category_name"`
}

// HasValidCategory reports whether the entry carries a single concrete
// category usable as a training label.
func (t *Transaction) HasValidCategory() bool {
	return t.CategoryName != nil && *t.CategoryName != "" && *t.CategoryName != SplitCategoryName
}

// SaveTransaction is the payload for creating a transaction.
type SaveTransaction struct {
	AccountID  string `json:"account_id"`
	Date       string `json:"date"`
	Amount     int64  `json:"amount"`
	PayeeName  string `json:"payee_name,omitempty"`
	CategoryID string `json:"category_id,omitempty"`
	Memo       string `json:"memo,omitempty"`
	FlagColor  string `json:"flag_color,omitempty"`
}

// RetryConfig configures transport-level retries.
type RetryConfig struct {
	MaxRetries int
	RetryWait  time.Duration
	MaxWait    time.Duration
}
