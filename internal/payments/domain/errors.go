package domain

import (
	"errors"
	"fmt"
)

var (
	ErrCardNotFound        = fmt.Errorf("card not found")
	ErrInsufficientBalance = fmt.Errorf("insufficient balance")
	ErrCurrencyMismatch    = fmt.Errorf("currency mismatch")
	ErrInvalidCurrency     = fmt.Errorf("invalid currency")
	ErrInvalidTransaction  = fmt.Errorf("invalid transaction")
	ErrDuplicateCardNumber = fmt.Errorf("card number already issued")
)

type CardError struct {
	ErrorObj   error
	CardNumber CardNumber
}

func (c *CardError) Error() string {
	return c.ErrorObj.Error()
}

func (c *CardError) Unwrap() error {
	return c.ErrorObj
}

func NewCardError(err error, number CardNumber) *CardError {
	return &CardError{
		ErrorObj:   err,
		CardNumber: number,
	}
}

// IsNotFound reports a lookup miss.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrCardNotFound)
}

// IsInvariantViolation reports a rejected business rule. These errors are
// deterministic and never worth retrying.
func IsInvariantViolation(err error) bool {
	return errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrCurrencyMismatch) ||
		errors.Is(err, ErrInvalidCurrency) ||
		errors.Is(err, ErrInvalidTransaction)
}
