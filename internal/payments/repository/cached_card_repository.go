package repository

import (
	"context"
	"time"

	"github.com/SwiftFiat/SwiftFiat-Cards/internal/payments/domain"
	"github.com/SwiftFiat/SwiftFiat-Cards/internal/payments/mapper"
	"github.com/patrickmn/go-cache"
)

// CachedCardRepository is a read-through cache over FindByNumber. Entries are
// card records, never aggregates, and every Save drops the entry for the
// saved number. Paging always goes to the underlying repository.
type CachedCardRepository struct {
	next CardRepository
	c    *cache.Cache
}

var _ CardRepository = (*CachedCardRepository)(nil)

func NewCachedCardRepository(next CardRepository, ttl time.Duration) *CachedCardRepository {
	return &CachedCardRepository{
		next: next,
		c:    cache.New(ttl, 2*ttl),
	}
}

func (r *CachedCardRepository) Save(ctx context.Context, card *domain.Card) (*domain.Card, error) {
	saved, err := r.next.Save(ctx, card)
	r.c.Delete(card.Number().String())
	return saved, err
}

func (r *CachedCardRepository) FindAll(ctx context.Context, page PageSpec) (ResultPage[*domain.Card], error) {
	return r.next.FindAll(ctx, page)
}

func (r *CachedCardRepository) FindByNumber(ctx context.Context, number domain.CardNumber) (*domain.Card, error) {
	if val, found := r.c.Get(number.String()); found {
		if record, ok := val.(mapper.CardRecord); ok {
			return mapper.ToDomainCard(record)
		}
	}

	card, err := r.next.FindByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	r.c.Set(number.String(), mapper.ToCardRecord(card), cache.DefaultExpiration)
	return card, nil
}

func (r *CachedCardRepository) Len() int {
	return r.c.ItemCount()
}
