package dataset

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/svanherk/bunqynab/pkg/bunq"
	"github.com/svanherk/bunqynab/pkg/ynab"
)

func bankAccount(id int64, iban string) *bunq.MonetaryAccount {
	return &bunq.MonetaryAccount{
		ID:      id,
		Aliases: []bunq.Alias{{Type: "IBAN", Value: iban}},
	}
}

func budgetAccount(id, iban string) *ynab.Account {
	return &ynab.Account{ID: id, Note: iban}
}

func payment(id int64, date string, amount string) *bunq.Payment {
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		panic(err)
	}
	return &bunq.Payment{
		ID:      id,
		Amount:  bunq.Amount{Value: amount, Currency: "EUR"},
		Created: bunq.Timestamp{Time: day.Add(10 * time.Hour)},
	}
}

func entry(id, date string, milliunits int64, category string) *ynab.Transaction {
	return &ynab.Transaction{
		ID:           id,
		Date:         date,
		Amount:       milliunits,
		CategoryName: &category,
	}
}

func TestMatchAccounts(t *testing.T) {
	bank := []*bunq.MonetaryAccount{
		bankAccount(1, "NL01"),
		bankAccount(2, "NL02"),
	}
	budget := []*ynab.Account{
		budgetAccount("a", "NL02"),
		budgetAccount("b", "NL99"),
		budgetAccount("c", ""),
	}

	pairs := MatchAccounts(bank, budget)
	require.Len(t, pairs, 1)
	assert.Equal(t, int64(2), pairs[0].Bank.ID)
	assert.Equal(t, "a", pairs[0].Budget.ID)
}

func TestMatchAccounts_FirstBankAccountWins(t *testing.T) {
	// Duplicate IBANs across bank accounts: first in input order wins.
	bank := []*bunq.MonetaryAccount{
		bankAccount(1, "NL01"),
		bankAccount(2, "NL01"),
	}
	budget := []*ynab.Account{budgetAccount("a", "NL01")}

	pairs := MatchAccounts(bank, budget)
	require.Len(t, pairs, 1)
	assert.Equal(t, int64(1), pairs[0].Bank.ID)
}

func TestMatchTransactions_ExactMatch(t *testing.T) {
	payments := []*bunq.Payment{payment(1, "2024-01-05", "-15.00")}
	entries := []*ynab.Transaction{entry("e1", "2024-01-05", -15000, "Groceries")}

	matched := MatchTransactions(payments, entries)
	require.Len(t, matched, 1)
	assert.Equal(t, int64(1), matched[0].Payment.ID)
	assert.Equal(t, "e1", matched[0].Entry.ID)
}

func TestMatchTransactions_TrivialAmountRejected(t *testing.T) {
	// abs(30/1000) = 0.03 <= 0.05: entry excluded even with a matching payment.
	payments := []*bunq.Payment{payment(1, "2024-01-05", "0.03")}
	entries := []*ynab.Transaction{entry("e1", "2024-01-05", 30, "Groceries")}

	assert.Empty(t, MatchTransactions(payments, entries))
}

func TestMatchTransactions_SplitCategoryRejected(t *testing.T) {
	payments := []*bunq.Payment{payment(1, "2024-01-05", "-15.00")}
	entries := []*ynab.Transaction{entry("e1", "2024-01-05", -15000, ynab.SplitCategoryName)}

	assert.Empty(t, MatchTransactions(payments, entries))
}

func TestMatchTransactions_NoDoubleConsumption(t *testing.T) {
	// Two same-day same-amount entries, one payment: only one can match.
	payments := []*bunq.Payment{payment(1, "2024-01-05", "-15.00")}
	entries := []*ynab.Transaction{
		entry("e1", "2024-01-05", -15000, "Groceries"),
		entry("e2", "2024-01-05", -15000, "Dining"),
	}

	matched := MatchTransactions(payments, entries)
	require.Len(t, matched, 1)
	assert.Equal(t, "e1", matched[0].Entry.ID)

	// And with two payments, each is consumed exactly once.
	payments = []*bunq.Payment{
		payment(1, "2024-01-05", "-15.00"),
		payment(2, "2024-01-05", "-15.00"),
	}
	matched = MatchTransactions(payments, entries)
	require.Len(t, matched, 2)
	assert.NotEqual(t, matched[0].Payment.ID, matched[1].Payment.ID)
}

func TestMatchTransactions_DateMismatch(t *testing.T) {
	payments := []*bunq.Payment{payment(1, "2024-01-06", "-15.00")}
	entries := []*ynab.Transaction{entry("e1", "2024-01-05", -15000, "Groceries")}

	assert.Empty(t, MatchTransactions(payments, entries))
}

func TestMatchTransactions_Deterministic(t *testing.T) {
	payments := []*bunq.Payment{
		payment(1, "2024-01-05", "-15.00"),
		payment(2, "2024-01-05", "-15.00"),
		payment(3, "2024-01-06", "-7.50"),
	}
	entries := []*ynab.Transaction{
		entry("e1", "2024-01-05", -15000, "Groceries"),
		entry("e2", "2024-01-06", -7500, "Transport"),
	}

	first := MatchTransactions(payments, entries)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, MatchTransactions(payments, entries))
	}
}
