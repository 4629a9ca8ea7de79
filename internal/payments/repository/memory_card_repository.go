package repository

import (
	"context"
	"sync"

	"github.com/SwiftFiat/SwiftFiat-Cards/internal/payments/domain"
	"github.com/SwiftFiat/SwiftFiat-Cards/internal/payments/mapper"
)

// MemoryCardRepository keeps card records in process memory, in insertion
// order. Records are snapshots, so callers never share an aggregate.
type MemoryCardRepository struct {
	mu      sync.RWMutex
	cards   map[domain.CardNumber]mapper.CardRecord
	ordered []domain.CardNumber
}

var _ CardRepository = (*MemoryCardRepository)(nil)

func NewMemoryCardRepository() *MemoryCardRepository {
	return &MemoryCardRepository{
		cards: make(map[domain.CardNumber]mapper.CardRecord),
	}
}

func (r *MemoryCardRepository) Save(ctx context.Context, card *domain.Card) (*domain.Card, error) {
	record := mapper.ToCardRecord(card)

	r.mu.Lock()
	if _, ok := r.cards[card.Number()]; !ok {
		r.ordered = append(r.ordered, card.Number())
	}
	r.cards[card.Number()] = record
	r.mu.Unlock()

	return mapper.ToDomainCard(record)
}

func (r *MemoryCardRepository) FindAll(ctx context.Context, page PageSpec) (ResultPage[*domain.Card], error) {
	r.mu.RLock()
	start, end := window(page, len(r.ordered))
	records := make([]mapper.CardRecord, 0, end-start)
	for _, number := range r.ordered[start:end] {
		records = append(records, r.cards[number])
	}
	total := len(r.ordered)
	r.mu.RUnlock()

	cards := make([]*domain.Card, 0, len(records))
	for _, record := range records {
		card, err := mapper.ToDomainCard(record)
		if err != nil {
			return ResultPage[*domain.Card]{}, err
		}
		cards = append(cards, card)
	}
	return NewResultPage(cards, page, total), nil
}

func (r *MemoryCardRepository) FindByNumber(ctx context.Context, number domain.CardNumber) (*domain.Card, error) {
	r.mu.RLock()
	record, ok := r.cards[number]
	r.mu.RUnlock()
	if !ok {
		return nil, domain.ErrCardNotFound
	}
	return mapper.ToDomainCard(record)
}
