package bunq

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient(&ClientOptions{
		BaseURL: server.URL,
		APIKey:  "test-key",
	})
	return client, server
}

func TestAccountService_List(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/user/monetary-account", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Bunq-Client-Authentication"))

		_, _ = w.Write([]byte(`{
			"Response": [
				{"MonetaryAccountBank": {
					"id": 42,
					"description": "Main",
					"status": "ACTIVE",
					"alias": [
						{"type": "EMAIL", "value": "a@b.c", "name": ""},
						{"type": "IBAN", "value": "NL91ABNA0417164300", "name": "J. Doe"}
					]
				}}
			]
		}`))
	}))

	accounts, err := client.Accounts.List(context.Background())
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, int64(42), accounts[0].ID)
	assert.Equal(t, "NL91ABNA0417164300", accounts[0].IBAN())
}

func TestPaymentService_ListAll_Paginates(t *testing.T) {
	var requests []string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests = append(requests, r.URL.RawQuery)

		if r.URL.Query().Get("older_id") == "" {
			_, _ = w.Write([]byte(`{
				"Response": [
					{"Payment": {
						"id": 2,
						"monetary_account_id": 42,
						"amount": {"value": "-15.00", "currency": "EUR"},
						"description": "Coffee",
						"created": "2024-01-05 09:30:00.000000",
						"counterparty_alias": {"type": "IBAN", "value": "NL00", "name": "Cafe"}
					}}
				],
				"Pagination": {"older_url": "/v1/user/monetary-account/42/payment?count=200&older_id=2"}
			}`))
			return
		}
		_, _ = w.Write([]byte(`{
			"Response": [
				{"Payment": {
					"id": 1,
					"monetary_account_id": 42,
					"amount": {"value": "-3.50", "currency": "EUR"},
					"description": "Tram",
					"created": "2024-01-04 08:00:00.000000",
					"counterparty_alias": {"type": "IBAN", "value": "NL01", "name": "GVB"}
				}}
			],
			"Pagination": {"older_url": null}
		}`))
	}))

	payments, err := client.Payments.ListAll(context.Background(), 42)
	require.NoError(t, err)
	require.Len(t, payments, 2)
	assert.Equal(t, int64(2), payments[0].ID)
	assert.Equal(t, int64(1), payments[1].ID)
	assert.Equal(t, "2024-01-05", payments[0].Date())
	assert.InDelta(t, -15.0, payments[0].Amount.Float(), 1e-9)
	assert.Len(t, requests, 2)
}

func TestPaymentService_Get_NotFound(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"Error": [{"error_description": "payment not found"}]}`))
	}))

	_, err := client.Payments.Get(context.Background(), 42, 999)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCallbackService_Ensure(t *testing.T) {
	t.Run("already registered", func(t *testing.T) {
		posts := 0
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPost {
				posts++
				_, _ = w.Write([]byte(`{"Response": []}`))
				return
			}
			_, _ = w.Write([]byte(`{
				"Response": [
					{"NotificationFilterUrl": {
						"category": "MUTATION",
						"notification_target": "https://example.com:8045/receive-transaction"
					}}
				]
			}`))
		}))

		err := client.Callbacks.Ensure(context.Background(), "https://example.com:8045/receive-transaction", "MUTATION")
		require.NoError(t, err)
		assert.Zero(t, posts)
	})

	t.Run("registers when missing", func(t *testing.T) {
		var posted map[string][]*NotificationFilter
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPost {
				require.NoError(t, json.NewDecoder(r.Body).Decode(&posted))
				_, _ = w.Write([]byte(`{"Response": []}`))
				return
			}
			_, _ = w.Write([]byte(`{"Response": []}`))
		}))

		err := client.Callbacks.Ensure(context.Background(), "https://example.com:8045/receive-transaction", "MUTATION")
		require.NoError(t, err)
		require.Len(t, posted["notification_filters"], 1)
		assert.Equal(t, "MUTATION", posted["notification_filters"][0].Category)
	})
}

func TestTimestamp_Unmarshal(t *testing.T) {
	var payment Payment
	err := json.Unmarshal([]byte(`{"created": "2024-03-01 18:45:10.123456"}`), &payment)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01", payment.Date())
	assert.Equal(t, 18, payment.Created.Hour())
}
