// Package money implements a fixed-point amount tagged with a currency.
//
// Amounts are stored in minor units (cents) so that sums over many nights
// stay exact. Mixing currencies in arithmetic is a programming error and
// panics.
package money

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrNegativeAmount  = errors.New("amount cannot be negative")
	ErrInvalidCurrency = errors.New("currency must be a 3-letter ISO code")
	ErrInvalidAmount   = errors.New("invalid amount")
)

const DefaultCurrency = "USD"

type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

func New(amount int64, currency string) (Money, error) {
	if amount < 0 {
		return Money{}, ErrNegativeAmount
	}
	cur, err := normalizeCurrency(currency)
	if err != nil {
		return Money{}, err
	}
	return Money{Amount: amount, Currency: cur}, nil
}

// MustNew is New for constants and tests.
func MustNew(amount int64, currency string) Money {
	m, err := New(amount, currency)
	if err != nil {
		panic(err)
	}
	return m
}

func Zero(currency string) Money {
	return MustNew(0, currency)
}

// Parse reads a decimal string such as "149.90" into minor units.
func Parse(s, currency string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	whole, frac, hasFrac := strings.Cut(s, ".")
	if hasFrac && (len(frac) == 0 || len(frac) > 2) {
		return Money{}, ErrInvalidAmount
	}
	for len(frac) < 2 {
		frac += "0"
	}
	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return Money{}, fmt.Errorf("%w: %s", ErrInvalidAmount, s)
	}
	f, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return Money{}, fmt.Errorf("%w: %s", ErrInvalidAmount, s)
	}
	if w < 0 || strings.HasPrefix(whole, "-") {
		return Money{}, ErrNegativeAmount
	}
	return New(w*100+f, currency)
}

func (m Money) Add(o Money) Money {
	m.mustMatch(o, "add")
	return Money{Amount: m.Amount + o.Amount, Currency: m.Currency}
}

func (m Money) Sub(o Money) (Money, error) {
	m.mustMatch(o, "subtract")
	if o.Amount > m.Amount {
		return Money{}, ErrNegativeAmount
	}
	return Money{Amount: m.Amount - o.Amount, Currency: m.Currency}, nil
}

func (m Money) Mul(factor int64) Money {
	if factor < 0 {
		panic("money: negative factor")
	}
	return Money{Amount: m.Amount * factor, Currency: m.Currency}
}

// Div splits the amount into n parts, truncating the remainder.
func (m Money) Div(n int64) Money {
	if n <= 0 {
		panic("money: non-positive divisor")
	}
	return Money{Amount: m.Amount / n, Currency: m.Currency}
}

func (m Money) GreaterThan(o Money) bool {
	m.mustMatch(o, "compare")
	return m.Amount > o.Amount
}

func (m Money) Equal(o Money) bool {
	return m.Amount == o.Amount && m.Currency == o.Currency
}

func (m Money) IsZero() bool { return m.Amount == 0 }

// Decimal renders the amount without the currency, e.g. "149.90".
func (m Money) Decimal() string {
	return fmt.Sprintf("%d.%02d", m.Amount/100, m.Amount%100)
}

func (m Money) String() string {
	return m.Decimal() + " " + m.Currency
}

func (m Money) mustMatch(o Money, op string) {
	if m.Currency != o.Currency {
		panic(fmt.Sprintf("money: cannot %s %s and %s", op, m.Currency, o.Currency))
	}
}

func normalizeCurrency(c string) (string, error) {
	c = strings.ToUpper(strings.TrimSpace(c))
	if len(c) != 3 {
		return "", ErrInvalidCurrency
	}
	for _, r := range c {
		if r < 'A' || r > 'Z' {
			return "", ErrInvalidCurrency
		}
	}
	return c, nil
}
