package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CardNumber is assigned once when the card is created and never reused.
type CardNumber string

func (n CardNumber) String() string {
	return string(n)
}

type CardID uuid.UUID

func NewCardID() CardID {
	return CardID(uuid.New())
}

func (id CardID) String() string {
	return uuid.UUID(id).String()
}

type TransactionID uuid.UUID

func NewTransactionID() TransactionID {
	return TransactionID(uuid.New())
}

func (id TransactionID) String() string {
	return uuid.UUID(id).String()
}

type TransactionType string

const (
	Inflow  TransactionType = "INFLOW"
	Payment TransactionType = "PAYMENT"
)

// ParseTransactionType accepts both the canonical names and the short IN/OUT
// aliases used by the REST resources.
func ParseTransactionType(value string) (TransactionType, error) {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "INFLOW", "IN":
		return Inflow, nil
	case "PAYMENT", "OUT":
		return Payment, nil
	default:
		return "", fmt.Errorf("%w: unknown type %q", ErrInvalidTransaction, value)
	}
}

// Short returns the IN/OUT alias.
func (t TransactionType) Short() string {
	if t == Payment {
		return "OUT"
	}
	return "IN"
}

// Transaction is an appended fact. It is never mutated or removed.
type Transaction struct {
	ID        TransactionID   `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Amount    Money           `json:"amount"`
	Type      TransactionType `json:"type"`
}

func NewTransaction(id TransactionID, timestamp time.Time, amount Money, t TransactionType) Transaction {
	return Transaction{
		ID:        id,
		Timestamp: timestamp,
		Amount:    amount,
		Type:      t,
	}
}

// TransactionRegistered is raised by Card.RegisterTransaction for every
// accepted transaction. It is never persisted.
type TransactionRegistered struct {
	CardNumber  CardNumber
	Transaction Transaction
}

// Card owns its transaction history. The balance is derived from that history
// and must never go negative. Card does no locking; callers serialise access
// per card number.
type Card struct {
	id           CardID
	number       CardNumber
	expiration   time.Time
	currency     string
	transactions []Transaction
}

func NewCard(id CardID, number CardNumber, expiration time.Time, currency string) *Card {
	return &Card{
		id:         id,
		number:     number,
		expiration: expiration,
		currency:   currency,
	}
}

// RestoreCard rebuilds a persisted card. History is replayed without raising
// events so that reloading a card never re-publishes old transactions.
func RestoreCard(id CardID, number CardNumber, expiration time.Time, currency string, history []Transaction) (*Card, error) {
	card := NewCard(id, number, expiration, currency)
	for _, tx := range history {
		if err := card.apply(tx); err != nil {
			return nil, fmt.Errorf("restore card %s: %w", number, err)
		}
	}
	return card, nil
}

func (c *Card) ID() CardID            { return c.id }
func (c *Card) Number() CardNumber    { return c.number }
func (c *Card) Expiration() time.Time { return c.expiration }
func (c *Card) Currency() string      { return c.currency }

// Transactions returns a copy of the history in insertion order.
func (c *Card) Transactions() []Transaction {
	out := make([]Transaction, len(c.transactions))
	copy(out, c.transactions)
	return out
}

// Balance is the sum of inflows minus the sum of payments.
func (c *Card) Balance() Money {
	balance := ZeroMoney(c.currency)
	for _, tx := range c.transactions {
		switch tx.Type {
		case Inflow:
			balance.Amount = balance.Amount.Add(tx.Amount.Amount)
		case Payment:
			balance.Amount = balance.Amount.Sub(tx.Amount.Amount)
		}
	}
	return balance
}

// RegisterTransaction appends tx to the history and returns the events it
// raised. A rejected transaction leaves the card untouched.
func (c *Card) RegisterTransaction(tx Transaction) ([]TransactionRegistered, error) {
	if err := c.apply(tx); err != nil {
		return nil, NewCardError(err, c.number)
	}
	return []TransactionRegistered{{CardNumber: c.number, Transaction: tx}}, nil
}

func (c *Card) apply(tx Transaction) error {
	if tx.Amount.Currency != c.currency {
		return fmt.Errorf("%w: card holds %s, transaction is %s", ErrCurrencyMismatch, c.currency, tx.Amount.Currency)
	}
	if tx.Amount.IsNegative() {
		return fmt.Errorf("%w: negative amount %s", ErrInvalidTransaction, tx.Amount)
	}
	switch tx.Type {
	case Inflow:
	case Payment:
		prospective, err := c.Balance().Subtract(tx.Amount)
		if err != nil {
			return err
		}
		if prospective.IsNegative() {
			return ErrInsufficientBalance
		}
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidTransaction, tx.Type)
	}
	c.transactions = append(c.transactions, tx)
	return nil
}
