package service

import (
	"context"
	"time"

	"github.com/SwiftFiat/SwiftFiat-Cards/internal/payments/domain"
)

type CardNumberGenerator interface {
	Next() (domain.CardNumber, error)
}

type DateTimeProvider interface {
	Now() time.Time
}

// TransactionAdded is published once for every accepted transaction, after
// the card holding it has been saved.
type TransactionAdded struct {
	CardNumber    string `json:"card_number"`
	TransactionID string `json:"transaction_id"`
	Type          string `json:"type"`
}

// TransactionEventPublisher delivers events without blocking the use case.
// Implementations log their own failures.
type TransactionEventPublisher interface {
	Publish(ctx context.Context, event TransactionAdded)
}
