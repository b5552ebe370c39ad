package money

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrCurrencyMismatch is returned when two Money values with different
// currency codes are combined. The public API validates currencies at the
// boundary, so seeing this error indicates an internal defect.
var ErrCurrencyMismatch = errors.New("currency mismatch")

// Currency is a 3-letter code from the closed list the application offers.
type Currency string

const (
	USD Currency = "USD"
	EUR Currency = "EUR"
	GBP Currency = "GBP"
	INR Currency = "INR"
	JPY Currency = "JPY"
	TWD Currency = "TWD"
	AUD Currency = "AUD"
	CAD Currency = "CAD"
	SGD Currency = "SGD"
	THB Currency = "THB"
)

// minorDigits maps each supported currency to the number of decimal digits
// of its minor unit.
var minorDigits = map[Currency]int32{
	USD: 2,
	EUR: 2,
	GBP: 2,
	INR: 2,
	JPY: 0,
	TWD: 0,
	AUD: 2,
	CAD: 2,
	SGD: 2,
	THB: 2,
}

// ParseCurrency validates a currency code against the supported list.
func ParseCurrency(s string) (Currency, error) {
	c := Currency(s)
	if !c.Valid() {
		return "", fmt.Errorf("unsupported currency code %q", s)
	}
	return c, nil
}

// Valid reports whether the currency is on the supported list.
func (c Currency) Valid() bool {
	_, ok := minorDigits[c]
	return ok
}

// Exponent returns the number of decimal digits of the currency's minor unit.
func (c Currency) Exponent() int32 {
	return minorDigits[c]
}

// Money is an exact fixed-point amount: an integer count of the currency's
// minor units. No floating-point representation is kept anywhere.
type Money struct {
	MinorUnits int64
	Currency   Currency
}

// New builds a Money value from integer minor units.
func New(minorUnits int64, c Currency) Money {
	return Money{MinorUnits: minorUnits, Currency: c}
}

// ParseAmount converts a decimal string like "250.00" into minor units.
// Amounts finer than the currency's minor unit are rejected rather than
// rounded.
func ParseAmount(s string, c Currency) (Money, error) {
	if !c.Valid() {
		return Money{}, fmt.Errorf("unsupported currency code %q", string(c))
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	shifted := d.Shift(c.Exponent())
	if !shifted.IsInteger() {
		return Money{}, fmt.Errorf("amount %q is finer than the minor unit of %s", s, c)
	}
	if !shifted.BigInt().IsInt64() {
		return Money{}, fmt.Errorf("amount %q out of range", s)
	}
	return Money{MinorUnits: shifted.IntPart(), Currency: c}, nil
}

// Add returns m + o, failing on mixed currencies.
func (m Money) Add(o Money) (Money, error) {
	if m.Currency != o.Currency {
		return Money{}, fmt.Errorf("add %s to %s: %w", o.Currency, m.Currency, ErrCurrencyMismatch)
	}
	return Money{MinorUnits: m.MinorUnits + o.MinorUnits, Currency: m.Currency}, nil
}

// Sub returns m - o, failing on mixed currencies.
func (m Money) Sub(o Money) (Money, error) {
	if m.Currency != o.Currency {
		return Money{}, fmt.Errorf("subtract %s from %s: %w", o.Currency, m.Currency, ErrCurrencyMismatch)
	}
	return Money{MinorUnits: m.MinorUnits - o.MinorUnits, Currency: m.Currency}, nil
}

// Neg returns the negated amount.
func (m Money) Neg() Money {
	return Money{MinorUnits: -m.MinorUnits, Currency: m.Currency}
}

// Cmp compares two amounts of the same currency: -1 if m < o, 0 if equal,
// 1 if m > o.
func (m Money) Cmp(o Money) (int, error) {
	if m.Currency != o.Currency {
		return 0, fmt.Errorf("compare %s with %s: %w", m.Currency, o.Currency, ErrCurrencyMismatch)
	}
	switch {
	case m.MinorUnits < o.MinorUnits:
		return -1, nil
	case m.MinorUnits > o.MinorUnits:
		return 1, nil
	}
	return 0, nil
}

// IsPositive reports whether the amount is strictly greater than zero.
func (m Money) IsPositive() bool {
	return m.MinorUnits > 0
}

// IsZero reports whether the amount is exactly zero.
func (m Money) IsZero() bool {
	return m.MinorUnits == 0
}

// Decimal renders the amount as a plain decimal string ("12.50", "400").
func (m Money) Decimal() string {
	return decimal.New(m.MinorUnits, -m.Currency.Exponent()).StringFixed(m.Currency.Exponent())
}

// String renders the amount with its currency code for logs and CLI output.
func (m Money) String() string {
	return m.Decimal() + " " + string(m.Currency)
}

type moneyJSON struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

// MarshalJSON renders the amount as a decimal string with its currency, so
// API clients never see raw minor units.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(moneyJSON{Amount: m.Decimal(), Currency: string(m.Currency)})
}

// UnmarshalJSON parses the decimal-string form produced by MarshalJSON.
func (m *Money) UnmarshalJSON(data []byte) error {
	var raw moneyJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	c, err := ParseCurrency(raw.Currency)
	if err != nil {
		return err
	}
	parsed, err := ParseAmount(raw.Amount, c)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
