package money

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidCurrency = errors.New("money: invalid currency code")

// Money is an amount in minor units (cents) of a three-letter currency.
type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

func New(amount int64, currency string) (Money, error) {
	code, ok := normalizeCode(currency)
	if !ok {
		return Money{}, ErrInvalidCurrency
	}
	return Money{Amount: amount, Currency: code}, nil
}

// Must is New for literals known to be valid.
func Must(amount int64, currency string) Money {
	m, err := New(amount, currency)
	if err != nil {
		panic(err)
	}
	return m
}

func Zero(currency string) Money {
	code, _ := normalizeCode(currency)
	return Money{Currency: code}
}

// ForDays prices a rental of days at m per day.
func (m Money) ForDays(days int) Money {
	if days < 0 {
		days = 0
	}
	return Money{Amount: m.Amount * int64(days), Currency: m.Currency}
}

func (m Money) IsNegative() bool {
	return m.Amount < 0
}

// String renders the amount with two decimals, e.g. "60.00 EUR".
func (m Money) String() string {
	sign := ""
	amount := m.Amount
	if amount < 0 {
		sign, amount = "-", -amount
	}
	return fmt.Sprintf("%s%d.%02d %s", sign, amount/100, amount%100, m.Currency)
}

func normalizeCode(currency string) (string, bool) {
	code := strings.ToUpper(strings.TrimSpace(currency))
	if len(code) != 3 {
		return code, false
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return code, false
		}
	}
	return code, true
}
