package domain

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)

// ParseCurrency normalises and validates an ISO-4217 style currency code.
func ParseCurrency(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if !currencyPattern.MatchString(code) {
		return "", fmt.Errorf("%w: %q", ErrInvalidCurrency, code)
	}
	return code, nil
}

// Money is a fixed-point amount tagged with its currency.
type Money struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

func NewMoney(amount decimal.Decimal, currency string) Money {
	return Money{
		Amount:   amount,
		Currency: currency,
	}
}

// ParseMoney builds Money from a decimal string such as "100.50".
func ParseMoney(amount string, currency string) (Money, error) {
	value, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	code, err := ParseCurrency(currency)
	if err != nil {
		return Money{}, err
	}
	return NewMoney(value, code), nil
}

// ZeroMoney returns an empty amount in the given currency.
func ZeroMoney(currency string) Money {
	return NewMoney(decimal.Zero, currency)
}

func (m Money) Add(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, fmt.Errorf("%w: cannot add %s to %s", ErrCurrencyMismatch, other.Currency, m.Currency)
	}
	return NewMoney(m.Amount.Add(other.Amount), m.Currency), nil
}

// Subtract may go below zero; callers enforce their own invariants.
func (m Money) Subtract(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, fmt.Errorf("%w: cannot subtract %s from %s", ErrCurrencyMismatch, other.Currency, m.Currency)
	}
	return NewMoney(m.Amount.Sub(other.Amount), m.Currency), nil
}

func (m Money) IsNegative() bool {
	return m.Amount.IsNegative()
}

func (m Money) IsPositive() bool {
	return m.Amount.IsPositive()
}

// Equal compares value and currency, ignoring trailing zeros.
func (m Money) Equal(other Money) bool {
	return m.Currency == other.Currency && m.Amount.Equal(other.Amount)
}

func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.Amount.String(), m.Currency)
}
