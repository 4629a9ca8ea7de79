package mapper

import (
	"encoding/json"
	"fmt"
	"time"

	db "github.com/SwiftFiat/SwiftFiat-Cards/db/sqlc"
	"github.com/SwiftFiat/SwiftFiat-Cards/internal/payments/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sqlc-dev/pqtype"
)

const DateLayout = "2006-01-02"

// CardRecord is the storage form of a card, shared by the memory and redis
// stores.
type CardRecord struct {
	ID           string              `json:"id"`
	Number       string              `json:"number"`
	Expiration   string              `json:"expiration"`
	CurrencyCode string              `json:"currency_code"`
	Transactions []TransactionRecord `json:"transactions"`
}

type TransactionRecord struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Amount    string    `json:"amount"`
	Currency  string    `json:"currency"`
	Type      string    `json:"type"`
}

func ToCardRecord(card *domain.Card) CardRecord {
	return CardRecord{
		ID:           card.ID().String(),
		Number:       card.Number().String(),
		Expiration:   card.Expiration().Format(DateLayout),
		CurrencyCode: card.Currency(),
		Transactions: ToTransactionRecords(card.Transactions()),
	}
}

func ToTransactionRecords(transactions []domain.Transaction) []TransactionRecord {
	records := make([]TransactionRecord, len(transactions))
	for i, tx := range transactions {
		records[i] = TransactionRecord{
			ID:        tx.ID.String(),
			Timestamp: tx.Timestamp,
			Amount:    tx.Amount.Amount.String(),
			Currency:  tx.Amount.Currency,
			Type:      string(tx.Type),
		}
	}
	return records
}

func ToDomainTransactions(records []TransactionRecord) ([]domain.Transaction, error) {
	transactions := make([]domain.Transaction, len(records))
	for i, r := range records {
		id, err := uuid.Parse(r.ID)
		if err != nil {
			return nil, fmt.Errorf("transaction id %q: %w", r.ID, err)
		}
		amount, err := decimal.NewFromString(r.Amount)
		if err != nil {
			return nil, fmt.Errorf("transaction amount %q: %w", r.Amount, err)
		}
		kind, err := domain.ParseTransactionType(r.Type)
		if err != nil {
			return nil, err
		}
		transactions[i] = domain.NewTransaction(
			domain.TransactionID(id),
			r.Timestamp,
			domain.NewMoney(amount, r.Currency),
			kind,
		)
	}
	return transactions, nil
}

func ToDomainCard(record CardRecord) (*domain.Card, error) {
	id, err := uuid.Parse(record.ID)
	if err != nil {
		return nil, fmt.Errorf("card id %q: %w", record.ID, err)
	}
	expiration, err := time.Parse(DateLayout, record.Expiration)
	if err != nil {
		return nil, fmt.Errorf("card expiration %q: %w", record.Expiration, err)
	}
	transactions, err := ToDomainTransactions(record.Transactions)
	if err != nil {
		return nil, err
	}
	return domain.RestoreCard(domain.CardID(id), domain.CardNumber(record.Number), expiration, record.CurrencyCode, transactions)
}

func EncodeTransactions(transactions []domain.Transaction) (pqtype.NullRawMessage, error) {
	raw, err := json.Marshal(ToTransactionRecords(transactions))
	if err != nil {
		return pqtype.NullRawMessage{}, err
	}
	return pqtype.NullRawMessage{RawMessage: raw, Valid: true}, nil
}

func DecodeTransactions(raw pqtype.NullRawMessage) ([]domain.Transaction, error) {
	if !raw.Valid || len(raw.RawMessage) == 0 {
		return nil, nil
	}
	var records []TransactionRecord
	if err := json.Unmarshal(raw.RawMessage, &records); err != nil {
		return nil, fmt.Errorf("decode transactions: %w", err)
	}
	return ToDomainTransactions(records)
}

func ToUpsertCardParams(card *domain.Card, now time.Time) (db.UpsertCardParams, error) {
	transactions, err := EncodeTransactions(card.Transactions())
	if err != nil {
		return db.UpsertCardParams{}, err
	}
	return db.UpsertCardParams{
		ID:           uuid.UUID(card.ID()),
		Number:       card.Number().String(),
		Expiration:   card.Expiration(),
		CurrencyCode: card.Currency(),
		Transactions: transactions,
		UpdatedAt:    now,
	}, nil
}

func FromCardRow(row db.Card) (*domain.Card, error) {
	transactions, err := DecodeTransactions(row.Transactions)
	if err != nil {
		return nil, err
	}
	expiration := time.Date(row.Expiration.Year(), row.Expiration.Month(), row.Expiration.Day(), 0, 0, 0, 0, time.UTC)
	return domain.RestoreCard(domain.CardID(row.ID), domain.CardNumber(row.Number), expiration, row.CurrencyCode, transactions)
}

func ToCardResponse(card *domain.Card) *domain.CardResponse {
	transactions := card.Transactions()
	response := &domain.CardResponse{
		Number:       card.Number().String(),
		Expiration:   card.Expiration().Format(DateLayout),
		Balance:      card.Balance().Amount.StringFixed(2),
		CurrencyCode: card.Currency(),
		Transactions: make([]domain.TransactionResponse, len(transactions)),
	}
	for i, tx := range transactions {
		response.Transactions[i] = domain.TransactionResponse{
			ID:        tx.ID.String(),
			Timestamp: tx.Timestamp.UTC(),
			Value:     tx.Amount.Amount.StringFixed(2),
			Type:      tx.Type.Short(),
		}
	}
	return response
}

func ToCardSummaryResponse(card *domain.Card) domain.CardSummaryResponse {
	return domain.CardSummaryResponse{
		Number:       card.Number().String(),
		Expiration:   card.Expiration().Format(DateLayout),
		Balance:      card.Balance().Amount.StringFixed(2),
		CurrencyCode: card.Currency(),
	}
}

func ToAddCardResponse(card *domain.Card) *domain.AddCardResponse {
	return &domain.AddCardResponse{
		Number:     card.Number().String(),
		Expiration: card.Expiration().Format(DateLayout),
	}
}
