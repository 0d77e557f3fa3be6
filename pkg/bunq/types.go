package bunq

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Amount is a monetary amount as the API transmits it: a decimal string plus
// a currency code. The value is kept as a string on the wire and parsed to a
// float only when compared.
type Amount struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

// Float parses the decimal value. Invalid values parse as 0.
func (a Amount) Float() float64 {
	f, err := strconv.ParseFloat(a.Value, 64)
	if err != nil {
		return 0
	}
	return f
}

// Alias is a pointer to an account: an IBAN, email or phone number.
type Alias struct {
	Type  string `json:"type"`
	Value string `json:"value"`
	Name  string `json:"name"`
}

// MonetaryAccount is a bank account. Read-only to this module.
type MonetaryAccount struct {
	ID          int64   `json:"id"`
	Description string  `json:"description"`
	Status      string  `json:"status"`
	Aliases     []Alias `json:"alias"`
}

// IBAN returns the account's IBAN alias, or "" when it has none.
func (a *MonetaryAccount) IBAN() string {
	for _, alias := range a.Aliases {
		if alias.Type == "IBAN" {
			return alias.Value
		}
	}
	return ""
}

// Payment is a single bank transaction. Immutable once fetched.
type Payment struct {
	ID                int64     `json:"id"`
	MonetaryAccountID int64     `json:"monetary_account_id"`
	Amount            Amount    `json:"amount"`
	Description       string    `json:"description"`
	Created           Timestamp `json:"created"`
	// Alias points at the payment's own account, CounterpartyAlias at the
	// other side.
	Alias             Alias `json:"alias"`
	CounterpartyAlias Alias `json:"counterparty_alias"`
}

// Date returns the payment's calendar date as YYYY-MM-DD.
func (p *Payment) Date() string {
	return p.Created.Time.Format("2006-01-02")
}

// Timestamp handles the API's timestamp format, which carries microseconds
// but no timezone.
type Timestamp struct {
	time.Time
}

const timestampLayout = "2006-01-02 15:04:05.000000"

// UnmarshalJSON implements json.Unmarshaler for Timestamp
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	str := strings.Trim(string(data), `"`)
	if str == "" || str == "null" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range []string{timestampLayout, "2006-01-02 15:04:05", time.RFC3339} {
		parsed, err := time.Parse(layout, str)
		if err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("unable to parse timestamp: %s", str)
}

// MarshalJSON implements json.Marshaler for Timestamp
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.Time.IsZero() {
		return []byte("null"), nil
	}
	return []byte(fmt.Sprintf(`"%s"`, t.Time.Format(timestampLayout))), nil
}

// NotificationFilter is a registered webhook callback.
type NotificationFilter struct {
	Category           string `json:"category"`
	NotificationTarget string `json:"notification_target"`
}

// RetryConfig configures transport-level retries.
type RetryConfig struct {
	MaxRetries int
	RetryWait  time.Duration
	MaxWait    time.Duration
}
