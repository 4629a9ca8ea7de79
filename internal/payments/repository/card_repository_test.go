package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/SwiftFiat/SwiftFiat-Cards/internal/payments/domain"
	"github.com/shopspring/decimal"
)

func newCard(number string) *domain.Card {
	return domain.NewCard(domain.NewCardID(), domain.CardNumber(number), time.Date(2027, 10, 19, 0, 0, 0, 0, time.UTC), "PLN")
}

func inflow(t *testing.T, card *domain.Card, amount string) {
	t.Helper()
	tx := domain.NewTransaction(domain.NewTransactionID(), time.Now(), domain.NewMoney(decimal.RequireFromString(amount), "PLN"), domain.Inflow)
	if _, err := card.RegisterTransaction(tx); err != nil {
		t.Fatalf("RegisterTransaction: %v", err)
	}
}

func TestMemoryRepositoryFindByNumber(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryCardRepository()

	if _, err := repo.FindByNumber(ctx, "missing"); !errors.Is(err, domain.ErrCardNotFound) {
		t.Fatalf("missing card: want=%v got=%v", domain.ErrCardNotFound, err)
	}

	card := newCard("0001")
	inflow(t, card, "50")
	if _, err := repo.Save(ctx, card); err != nil {
		t.Fatalf("Save: %v", err)
	}

	found, err := repo.FindByNumber(ctx, "0001")
	if err != nil {
		t.Fatalf("FindByNumber: %v", err)
	}
	if found == card {
		t.Fatalf("repository returned the caller's aggregate")
	}
	if found.Balance().Amount.String() != "50" {
		t.Fatalf("balance: want=50 got=%s", found.Balance().Amount)
	}

	// mutating the loaded copy must not leak into storage until saved
	inflow(t, found, "10")
	again, _ := repo.FindByNumber(ctx, "0001")
	if again.Balance().Amount.String() != "50" {
		t.Fatalf("stored balance changed without save: got=%s", again.Balance().Amount)
	}
}

func TestMemoryRepositoryPaging(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryCardRepository()
	for i := 1; i <= 5; i++ {
		if _, err := repo.Save(ctx, newCard(fmt.Sprintf("%04d", i))); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}
	// re-saving keeps insertion order
	first, _ := repo.FindByNumber(ctx, "0001")
	if _, err := repo.Save(ctx, first); err != nil {
		t.Fatalf("Save: %v", err)
	}

	cases := []struct {
		page  PageSpec
		want  []string
		total int
	}{
		{PageSpec{Index: 0, Size: 2}, []string{"0001", "0002"}, 3},
		{PageSpec{Index: 2, Size: 2}, []string{"0005"}, 3},
		{PageSpec{Index: 3, Size: 2}, []string{}, 3},
		{PageSpec{Index: 0, Size: 10}, []string{"0001", "0002", "0003", "0004", "0005"}, 1},
	}
	for _, tc := range cases {
		page, err := repo.FindAll(ctx, tc.page)
		if err != nil {
			t.Fatalf("FindAll(%+v): %v", tc.page, err)
		}
		if page.PageSpec != tc.page {
			t.Fatalf("page spec: want=%+v got=%+v", tc.page, page.PageSpec)
		}
		if page.TotalPages != tc.total {
			t.Fatalf("total pages for %+v: want=%d got=%d", tc.page, tc.total, page.TotalPages)
		}
		if len(page.Content) != len(tc.want) {
			t.Fatalf("content for %+v: want=%d got=%d", tc.page, len(tc.want), len(page.Content))
		}
		for i, card := range page.Content {
			if card.Number().String() != tc.want[i] {
				t.Fatalf("content[%d] for %+v: want=%s got=%s", i, tc.page, tc.want[i], card.Number())
			}
		}
	}
}

func TestMapPageKeepsMetadata(t *testing.T) {
	page := NewResultPage([]*domain.Card{newCard("0001"), newCard("0002")}, PageSpec{Index: 1, Size: 2}, 5)
	mapped := MapPage(page, func(c *domain.Card) string { return c.Number().String() })
	if mapped.TotalPages != 3 || mapped.PageSpec != page.PageSpec {
		t.Fatalf("metadata: want=%+v/%d got=%+v/%d", page.PageSpec, page.TotalPages, mapped.PageSpec, mapped.TotalPages)
	}
	if mapped.Content[0] != "0001" || mapped.Content[1] != "0002" {
		t.Fatalf("content: got=%v", mapped.Content)
	}
}

type countingRepository struct {
	CardRepository
	finds int
}

func (r *countingRepository) FindByNumber(ctx context.Context, number domain.CardNumber) (*domain.Card, error) {
	r.finds++
	return r.CardRepository.FindByNumber(ctx, number)
}

func TestCachedRepositoryInvalidatesOnSave(t *testing.T) {
	ctx := context.Background()
	backing := &countingRepository{CardRepository: NewMemoryCardRepository()}
	repo := NewCachedCardRepository(backing, time.Minute)

	card := newCard("0001")
	if _, err := repo.Save(ctx, card); err != nil {
		t.Fatalf("Save: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := repo.FindByNumber(ctx, "0001"); err != nil {
			t.Fatalf("FindByNumber: %v", err)
		}
	}
	if backing.finds != 1 {
		t.Fatalf("backing finds: want=1 got=%d", backing.finds)
	}

	loaded, _ := repo.FindByNumber(ctx, "0001")
	inflow(t, loaded, "25")
	if _, err := repo.Save(ctx, loaded); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if repo.Len() != 0 {
		t.Fatalf("cache entries after save: want=0 got=%d", repo.Len())
	}

	fresh, err := repo.FindByNumber(ctx, "0001")
	if err != nil {
		t.Fatalf("FindByNumber: %v", err)
	}
	if fresh.Balance().Amount.String() != "25" {
		t.Fatalf("balance after save: want=25 got=%s", fresh.Balance().Amount)
	}
	if backing.finds != 2 {
		t.Fatalf("backing finds: want=2 got=%d", backing.finds)
	}
}

func TestCachedRepositoryDoesNotCacheMisses(t *testing.T) {
	ctx := context.Background()
	backing := &countingRepository{CardRepository: NewMemoryCardRepository()}
	repo := NewCachedCardRepository(backing, time.Minute)

	for i := 0; i < 2; i++ {
		if _, err := repo.FindByNumber(ctx, "0009"); !errors.Is(err, domain.ErrCardNotFound) {
			t.Fatalf("want=%v got=%v", domain.ErrCardNotFound, err)
		}
	}
	if backing.finds != 2 {
		t.Fatalf("backing finds: want=2 got=%d", backing.finds)
	}
}
