package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/svanherk/bunqynab/internal/logging"
	"github.com/svanherk/bunqynab/pkg/bunq"
	"github.com/svanherk/bunqynab/pkg/ynab"
)

type stubAccounts struct {
	account *ynab.Account
}

func (s *stubAccounts) ListByBudget(ctx context.Context, budgetID string) ([]*ynab.Account, error) {
	return nil, nil
}

func (s *stubAccounts) FindByIBAN(ctx context.Context, iban string) (*ynab.Account, error) {
	if s.account == nil || s.account.IBAN() != iban {
		return nil, errors.Wrapf(ynab.ErrAccountNotFound, "no account with iban %s", iban)
	}
	return s.account, nil
}

type stubCategories struct {
	categories map[string]string
}

func (s *stubCategories) ListByBudget(ctx context.Context, budgetID string) ([]*ynab.Category, error) {
	return nil, nil
}

func (s *stubCategories) FindByName(ctx context.Context, budgetID, name string) (*ynab.Category, error) {
	id, ok := s.categories[name]
	if !ok {
		return nil, errors.Wrapf(ynab.ErrCategoryNotFound, "no category named %s", name)
	}
	return &ynab.Category{ID: id, Name: name}, nil
}

type stubTransactions struct {
	created  []*ynab.SaveTransaction
	budgets  []string
	failures int
}

func (s *stubTransactions) ListByAccount(ctx context.Context, budgetID, accountID string) ([]*ynab.Transaction, error) {
	return nil, nil
}

func (s *stubTransactions) Create(ctx context.Context, budgetID string, tx *ynab.SaveTransaction) (*ynab.Transaction, error) {
	if s.failures > 0 {
		s.failures--
		return nil, ynab.ErrServerError
	}
	s.created = append(s.created, tx)
	s.budgets = append(s.budgets, budgetID)
	return &ynab.Transaction{ID: "t-1"}, nil
}

type stubPredictor struct {
	category string
	err      error
}

func (s *stubPredictor) Predict(ctx context.Context, payment *bunq.Payment) (string, error) {
	return s.category, s.err
}

type stubResolver struct {
	predictor Predictor
	err       error
}

func (s *stubResolver) Resolve(budgetID string) (Predictor, error) {
	return s.predictor, s.err
}

func testPayment() *bunq.Payment {
	return &bunq.Payment{
		ID:                42,
		MonetaryAccountID: 7,
		Amount:            bunq.Amount{Value: "-15.50", Currency: "EUR"},
		Description:       "Albert Heijn",
		Created:           bunq.Timestamp{Time: time.Date(2024, 1, 5, 9, 30, 0, 0, time.UTC)},
		Alias:             bunq.Alias{Type: "IBAN", Value: "NL01BANK0123456789"},
		CounterpartyAlias: bunq.Alias{Type: "IBAN", Value: "NL99SHOP", Name: "Albert Heijn BV"},
	}
}

type fixture struct {
	gateway      *Gateway
	transactions *stubTransactions
}

func newFixture(predictor Predictor) *fixture {
	transactions := &stubTransactions{}
	gateway := NewGateway(
		&stubAccounts{account: &ynab.Account{ID: "a-1", Note: "NL01BANK0123456789", BudgetID: "b-1"}},
		&stubCategories{categories: map[string]string{
			"Groceries":      "c-groceries",
			FallbackCategory: "c-inflow",
		}},
		transactions,
		&stubResolver{predictor: predictor},
		"EUR",
		logging.NewWithWriter(nil),
	)
	return &fixture{gateway: gateway, transactions: transactions}
}

func TestGateway_Process(t *testing.T) {
	f := newFixture(&stubPredictor{category: "Groceries"})

	require.NoError(t, f.gateway.Process(context.Background(), testPayment()))
	require.Len(t, f.transactions.created, 1)

	tx := f.transactions.created[0]
	assert.Equal(t, "b-1", f.transactions.budgets[0])
	assert.Equal(t, "a-1", tx.AccountID)
	assert.Equal(t, "2024-01-05", tx.Date)
	assert.Equal(t, int64(-15500), tx.Amount)
	assert.Equal(t, "Albert Heijn BV", tx.PayeeName)
	assert.Equal(t, "c-groceries", tx.CategoryID)
	assert.Empty(t, tx.Memo)
}

func TestGateway_Process_UnlinkedAccount(t *testing.T) {
	f := newFixture(&stubPredictor{category: "Groceries"})

	payment := testPayment()
	payment.Alias.Value = "NL00UNKNOWN"
	require.NoError(t, f.gateway.Process(context.Background(), payment))
	assert.Empty(t, f.transactions.created)
}

func TestGateway_Process_PredictionFailureFallsBack(t *testing.T) {
	f := newFixture(&stubPredictor{err: errors.New("model server down")})

	require.NoError(t, f.gateway.Process(context.Background(), testPayment()))
	require.Len(t, f.transactions.created, 1)
	assert.Equal(t, "c-inflow", f.transactions.created[0].CategoryID)
}

func TestGateway_Process_SplitPredictionFallsBack(t *testing.T) {
	f := newFixture(&stubPredictor{category: ynab.SplitCategoryName})

	require.NoError(t, f.gateway.Process(context.Background(), testPayment()))
	require.Len(t, f.transactions.created, 1)
	assert.Equal(t, "c-inflow", f.transactions.created[0].CategoryID)
}

func TestGateway_Process_UnknownCategoryFallsBack(t *testing.T) {
	f := newFixture(&stubPredictor{category: "Hovercrafts"})

	require.NoError(t, f.gateway.Process(context.Background(), testPayment()))
	require.Len(t, f.transactions.created, 1)
	assert.Equal(t, "c-inflow", f.transactions.created[0].CategoryID)
}

func TestGateway_Process_CurrencyMismatchNoted(t *testing.T) {
	f := newFixture(&stubPredictor{category: "Groceries"})

	payment := testPayment()
	payment.Amount = bunq.Amount{Value: "-12.00", Currency: "USD"}
	require.NoError(t, f.gateway.Process(context.Background(), payment))
	require.Len(t, f.transactions.created, 1)
	assert.Equal(t, "original amount: -12.00 USD", f.transactions.created[0].Memo)
}

func TestGateway_Process_RetriesTransientCreate(t *testing.T) {
	f := newFixture(&stubPredictor{category: "Groceries"})
	f.transactions.failures = 2

	require.NoError(t, f.gateway.Process(context.Background(), testPayment()))
	assert.Len(t, f.transactions.created, 1)
}

func TestGateway_Process_CreateFailureSurfaces(t *testing.T) {
	f := newFixture(&stubPredictor{category: "Groceries"})
	f.transactions.failures = 10

	assert.Error(t, f.gateway.Process(context.Background(), testPayment()))
	assert.Empty(t, f.transactions.created)
}

func TestGateway_Handler_AcknowledgesAndProcesses(t *testing.T) {
	f := newFixture(&stubPredictor{category: "Groceries"})
	ts := httptest.NewServer(f.gateway.Handler())
	defer ts.Close()

	paymentJSON, err := json.Marshal(testPayment())
	require.NoError(t, err)
	body := []byte(`{"NotificationUrl":{"category":"PAYMENT","object":{"Payment":` + string(paymentJSON) + `}}}`)

	resp, err := http.Post(ts.URL+"/receive-transaction", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	f.gateway.Wait()
	assert.Len(t, f.transactions.created, 1)
}

func TestGateway_Handler_IgnoresNonPaymentCallbacks(t *testing.T) {
	f := newFixture(&stubPredictor{category: "Groceries"})
	ts := httptest.NewServer(f.gateway.Handler())
	defer ts.Close()

	for _, body := range []string{
		`{"NotificationUrl":{"category":"CARD_TRANSACTION_FAILED","object":{"CardMessage":{}}}}`,
		`not json at all`,
	} {
		resp, err := http.Post(ts.URL+"/receive-transaction", "application/json", bytes.NewReader([]byte(body)))
		require.NoError(t, err)
		resp.Body.Close()
		// Always 200: bunq drops filters that keep failing.
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}

	f.gateway.Wait()
	assert.Empty(t, f.transactions.created)
}

func TestMilliunits(t *testing.T) {
	assert.Equal(t, int64(-15500), milliunits(bunq.Amount{Value: "-15.50"}))
	assert.Equal(t, int64(2000000), milliunits(bunq.Amount{Value: "2000.00"}))
	assert.Equal(t, int64(10), milliunits(bunq.Amount{Value: "0.01"}))
}
