package mapper

import (
	"testing"
	"time"

	db "github.com/SwiftFiat/SwiftFiat-Cards/db/sqlc"
	"github.com/SwiftFiat/SwiftFiat-Cards/internal/payments/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func newCardWithHistory(t *testing.T) *domain.Card {
	t.Helper()
	expiration := time.Date(2027, 10, 19, 0, 0, 0, 0, time.UTC)
	card := domain.NewCard(domain.NewCardID(), "0000000000000001", expiration, "PLN")
	at := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	for _, tx := range []domain.Transaction{
		domain.NewTransaction(domain.NewTransactionID(), at, domain.NewMoney(decimal.RequireFromString("200.10"), "PLN"), domain.Inflow),
		domain.NewTransaction(domain.NewTransactionID(), at.Add(time.Minute), domain.NewMoney(decimal.RequireFromString("100"), "PLN"), domain.Payment),
	} {
		if _, err := card.RegisterTransaction(tx); err != nil {
			t.Fatalf("RegisterTransaction: %v", err)
		}
	}
	return card
}

func TestCardRecordRestoresEquivalentCard(t *testing.T) {
	card := newCardWithHistory(t)

	restored, err := ToDomainCard(ToCardRecord(card))
	if err != nil {
		t.Fatalf("ToDomainCard: %v", err)
	}
	if restored.ID() != card.ID() || restored.Number() != card.Number() {
		t.Fatalf("identity: want=%s/%s got=%s/%s", card.ID(), card.Number(), restored.ID(), restored.Number())
	}
	if !restored.Expiration().Equal(card.Expiration()) {
		t.Fatalf("expiration: want=%v got=%v", card.Expiration(), restored.Expiration())
	}
	if !restored.Balance().Equal(card.Balance()) {
		t.Fatalf("balance: want=%s got=%s", card.Balance(), restored.Balance())
	}
	want, got := card.Transactions(), restored.Transactions()
	if len(got) != len(want) {
		t.Fatalf("transactions: want=%d got=%d", len(want), len(got))
	}
	for i := range want {
		if got[i].ID != want[i].ID || got[i].Type != want[i].Type || !got[i].Amount.Equal(want[i].Amount) {
			t.Fatalf("transaction %d: want=%+v got=%+v", i, want[i], got[i])
		}
	}
}

func TestCardRowRoundTripThroughJSONB(t *testing.T) {
	card := newCardWithHistory(t)

	params, err := ToUpsertCardParams(card, time.Now())
	if err != nil {
		t.Fatalf("ToUpsertCardParams: %v", err)
	}
	row := db.Card{
		ID:           params.ID,
		Number:       params.Number,
		Expiration:   params.Expiration,
		CurrencyCode: params.CurrencyCode,
		Transactions: params.Transactions,
	}

	restored, err := FromCardRow(row)
	if err != nil {
		t.Fatalf("FromCardRow: %v", err)
	}
	if restored.Balance().Amount.StringFixed(2) != "100.10" {
		t.Fatalf("balance: want=100.10 got=%s", restored.Balance().Amount.StringFixed(2))
	}
	if len(restored.Transactions()) != 2 {
		t.Fatalf("transactions: want=2 got=%d", len(restored.Transactions()))
	}
}

func TestDecodeTransactionsRejectsBadRecords(t *testing.T) {
	records := []TransactionRecord{{ID: uuid.NewString(), Amount: "abc", Currency: "PLN", Type: "INFLOW"}}
	if _, err := ToDomainTransactions(records); err == nil {
		t.Fatalf("expected error for malformed amount")
	}
	records = []TransactionRecord{{ID: "nope", Amount: "1", Currency: "PLN", Type: "INFLOW"}}
	if _, err := ToDomainTransactions(records); err == nil {
		t.Fatalf("expected error for malformed id")
	}
}

func TestToCardResponseUsesShortTypes(t *testing.T) {
	response := ToCardResponse(newCardWithHistory(t))
	if response.Balance != "100.10" {
		t.Fatalf("balance: want=100.10 got=%s", response.Balance)
	}
	if response.Transactions[0].Type != "IN" || response.Transactions[1].Type != "OUT" {
		t.Fatalf("types: got=%s,%s", response.Transactions[0].Type, response.Transactions[1].Type)
	}
	if response.Expiration != "2027-10-19" {
		t.Fatalf("expiration: want=2027-10-19 got=%s", response.Expiration)
	}
}
