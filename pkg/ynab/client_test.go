package ynab

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClient(&ClientOptions{
		BaseURL: server.URL,
		Token:   "test-token",
	})
}

func TestBudgetService_List(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/budgets", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"data": {"budgets": [{"id": "b-1", "name": "Household"}]}}`))
	}))

	budgets, err := client.Budgets.List(context.Background())
	require.NoError(t, err)
	require.Len(t, budgets, 1)
	assert.Equal(t, "Household", budgets[0].Name)
}

func TestAccountService_ListByBudget_SkipsClosed(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data": {"accounts": [
			{"id": "a-1", "name": "Checking", "note": " NL91ABNA0417164300 ", "closed": false},
			{"id": "a-2", "name": "Old", "note": "", "closed": true}
		]}}`))
	}))

	accounts, err := client.Accounts.ListByBudget(context.Background(), "b-1")
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "b-1", accounts[0].BudgetID)
	assert.Equal(t, "NL91ABNA0417164300", accounts[0].IBAN())
}

func TestAccountService_FindByIBAN_NotFound(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/budgets" {
			_, _ = w.Write([]byte(`{"data": {"budgets": [{"id": "b-1", "name": "Household"}]}}`))
			return
		}
		_, _ = w.Write([]byte(`{"data": {"accounts": []}}`))
	}))

	_, err := client.Accounts.FindByIBAN(context.Background(), "NL00MISSING")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestCategoryService_FindByName(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data": {"category_groups": [
			{"categories": [
				{"id": "c-1", "name": "Groceries", "deleted": false},
				{"id": "c-2", "name": "Gone", "deleted": true}
			]}
		]}}`))
	}))

	category, err := client.Categories.FindByName(context.Background(), "b-1", "Groceries")
	require.NoError(t, err)
	assert.Equal(t, "c-1", category.ID)

	_, err = client.Categories.FindByName(context.Background(), "b-1", "Gone")
	assert.ErrorIs(t, err, ErrCategoryNotFound)
}

func TestTransactionService_Create(t *testing.T) {
	var received map[string]*SaveTransaction
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/budgets/b-1/transactions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data": {"transaction": {"id": "t-1", "amount": -15000}}}`))
	}))

	tx, err := client.Transactions.Create(context.Background(), "b-1", &SaveTransaction{
		AccountID: "a-1",
		Date:      "2024-01-05",
		Amount:    -15000,
		PayeeName: "Cafe",
	})
	require.NoError(t, err)
	assert.Equal(t, "t-1", tx.ID)
	assert.Equal(t, int64(-15000), received["transaction"].Amount)
}

func TestClient_ErrorMapping(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": {"id": "401", "name": "unauthorized", "detail": "Unauthorized"}}`))
	}))

	_, err := client.Budgets.List(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestTransaction_HasValidCategory(t *testing.T) {
	groceries := "Groceries"
	split := SplitCategoryName

	assert.True(t, (&Transaction{CategoryName: &groceries}).HasValidCategory())
	assert.False(t, (&Transaction{CategoryName: &split}).HasValidCategory())
	assert.False(t, (&Transaction{CategoryName: nil}).HasValidCategory())
}
