package dataset

import (
	"math"

	"github.com/svanherk/bunqynab/pkg/bunq"
	"github.com/svanherk/bunqynab/pkg/ynab"
)

// trivialAmountThreshold filters out entries that are very likely test
// transactions: anything at or below 5 cents absolute.
const trivialAmountThreshold = 0.05

// AccountPair is a bank account joined with a budget account by IBAN.
type AccountPair struct {
	Bank   *bunq.MonetaryAccount
	Budget *ynab.Account
}

// MatchedTransaction is a bank payment paired with the ledger entry it
// produced on the budget side.
type MatchedTransaction struct {
	Payment *bunq.Payment
	Entry   *ynab.Transaction
}

// MatchAccounts pairs budget accounts with bank accounts by exact IBAN
// equality against the budget account's note field. For each budget account
// the first matching bank account in input order wins; budget accounts
// without a match are dropped silently. Deterministic for a fixed input
// order.
func MatchAccounts(bankAccounts []*bunq.MonetaryAccount, budgetAccounts []*ynab.Account) []AccountPair {
	var pairs []AccountPair
	for _, budgetAccount := range budgetAccounts {
		iban := budgetAccount.IBAN()
		if iban == "" {
			continue
		}
		for _, bankAccount := range bankAccounts {
			if bankAccount.IBAN() == iban {
				pairs = append(pairs, AccountPair{Bank: bankAccount, Budget: budgetAccount})
				break
			}
		}
	}
	return pairs
}

// MatchTransactions pairs ledger entries with bank payments on date and
// amount. Greedy first-fit: entries are visited in input order, each takes
// the first remaining payment that matches and removes it from the pool, so
// no payment is consumed twice. Entries with no match are dropped silently.
//
// Matching same-day same-amount duplicates to the wrong payment is possible
// and accepted; the labels are identical in the common case and the noise is
// tolerable for training.
func MatchTransactions(payments []*bunq.Payment, entries []*ynab.Transaction) []MatchedTransaction {
	pool := make([]*bunq.Payment, len(payments))
	copy(pool, payments)

	var matched []MatchedTransaction
	for _, entry := range entries {
		if invalidEntry(entry) {
			continue
		}
		for i, payment := range pool {
			if entryMatchesPayment(entry, payment) {
				pool = append(pool[:i], pool[i+1:]...)
				matched = append(matched, MatchedTransaction{Payment: payment, Entry: entry})
				break
			}
		}
	}
	return matched
}

// invalidEntry reports whether a ledger entry is unusable for training:
// trivially small amounts are almost certainly test transactions, and
// entries without a single concrete category carry no label.
func invalidEntry(entry *ynab.Transaction) bool {
	if math.Abs(float64(entry.Amount)/1000) <= trivialAmountThreshold {
		return true
	}
	return !entry.HasValidCategory()
}

// entryMatchesPayment matches on calendar date plus amount, with the
// milliunit amount rounded to two decimals before comparing against the
// payment's decimal value.
func entryMatchesPayment(entry *ynab.Transaction, payment *bunq.Payment) bool {
	if entry.Date != payment.Date() {
		return false
	}
	entryAmount := math.Round(float64(entry.Amount)/1000*100) / 100
	return entryAmount == payment.Amount.Float()
}
