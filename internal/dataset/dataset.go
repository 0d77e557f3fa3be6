// Package dataset reconciles the two independently-paginated transaction
// streams (bank payments vs. budget-ledger entries) into a supervised
// learning dataset, one per budget.
package dataset

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/svanherk/bunqynab/internal/cache"
	"github.com/svanherk/bunqynab/pkg/bunq"
	"github.com/svanherk/bunqynab/pkg/ynab"
)

// Dataset is the training set for one budget: raw payments as items, encoded
// categories as labels. Feature extraction happens later, in the training
// pipeline.
type Dataset struct {
	Budget  *ynab.Budget
	X       []*bunq.Payment
	Y       []int
	Encoder *LabelEncoder
}

// Valid reports whether the dataset can be trained on. A budget with zero
// matched transactions yields an invalid dataset; callers must skip it.
func (d *Dataset) Valid() bool {
	return len(d.X) > 0
}

// Builder loads and matches both transaction streams. The matched account
// data is cached with a TTL since loading means paging through the full
// history on both sides.
type Builder struct {
	bankAccounts   bunq.AccountService
	bankPayments   bunq.PaymentService
	budgetAccounts ynab.AccountService
	budgetEntries  ynab.TransactionService
	cache          *cache.Cache
	logger         zerolog.Logger
}

// NewBuilder creates a dataset builder.
func NewBuilder(
	bankAccounts bunq.AccountService,
	bankPayments bunq.PaymentService,
	budgetAccounts ynab.AccountService,
	budgetEntries ynab.TransactionService,
	c *cache.Cache,
	logger zerolog.Logger,
) *Builder {
	return &Builder{
		bankAccounts:   bankAccounts,
		bankPayments:   bankPayments,
		budgetAccounts: budgetAccounts,
		budgetEntries:  budgetEntries,
		cache:          c,
		logger:         logger,
	}
}

// pairData is the cached form of a matched account pair with both full
// transaction histories loaded.
type pairData struct {
	Bank     *bunq.MonetaryAccount `json:"bank"`
	Budget   *ynab.Account         `json:"budget"`
	Payments []*bunq.Payment       `json:"payments"`
	Entries  []*ynab.Transaction   `json:"entries"`
}

// Build constructs the dataset for a budget: match accounts by IBAN, match
// transactions per pair, concatenate, encode labels.
func (b *Builder) Build(ctx context.Context, budget *ynab.Budget) (*Dataset, error) {
	pairs, err := b.loadAccountData(ctx, budget)
	if err != nil {
		return nil, err
	}

	var matched []MatchedTransaction
	for _, pair := range pairs {
		m := MatchTransactions(pair.Payments, pair.Entries)
		b.logger.Debug().
			Str("budget", budget.ID).
			Str("iban", pair.Budget.IBAN()).
			Int("matched", len(m)).
			Int("payments", len(pair.Payments)).
			Int("entries", len(pair.Entries)).
			Msg("matched transactions for account pair")
		matched = append(matched, m...)
	}

	dataset := &Dataset{Budget: budget}
	if len(matched) == 0 {
		return dataset, nil
	}

	categories := make([]string, len(matched))
	for i, m := range matched {
		categories[i] = *m.Entry.CategoryName
	}
	dataset.Encoder = FitLabels(categories)
	dataset.Y = dataset.Encoder.Transform(categories)
	dataset.X = make([]*bunq.Payment, len(matched))
	for i, m := range matched {
		dataset.X[i] = m.Payment
	}
	return dataset, nil
}

// loadAccountData matches accounts and loads both transaction histories per
// pair. Cached per budget: within the TTL window a rebuild reuses the
// previous fetch.
func (b *Builder) loadAccountData(ctx context.Context, budget *ynab.Budget) ([]pairData, error) {
	cacheKey := "account-data:" + budget.ID

	var pairs []pairData
	if b.cache != nil && b.cache.Get(cacheKey, &pairs) {
		return pairs, nil
	}

	bankAccounts, err := b.bankAccounts.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load bank accounts")
	}
	budgetAccounts, err := b.budgetAccounts.ListByBudget(ctx, budget.ID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load budget accounts")
	}

	for _, pair := range MatchAccounts(bankAccounts, budgetAccounts) {
		payments, err := b.bankPayments.ListAll(ctx, pair.Bank.ID)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to load payments for account %d", pair.Bank.ID)
		}
		entries, err := b.budgetEntries.ListByAccount(ctx, budget.ID, pair.Budget.ID)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to load entries for account %s", pair.Budget.ID)
		}
		pairs = append(pairs, pairData{
			Bank:     pair.Bank,
			Budget:   pair.Budget,
			Payments: payments,
			Entries:  entries,
		})
	}

	if b.cache != nil {
		if err := b.cache.Put(cacheKey, pairs); err != nil {
			b.logger.Warn().Err(err).Str("budget", budget.ID).Msg("failed to cache account data")
		}
	}
	return pairs, nil
}
