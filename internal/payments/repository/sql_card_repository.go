package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	db "github.com/SwiftFiat/SwiftFiat-Cards/db/sqlc"
	"github.com/SwiftFiat/SwiftFiat-Cards/internal/payments/domain"
	"github.com/SwiftFiat/SwiftFiat-Cards/internal/payments/mapper"
)

// SQLCardRepository stores cards in postgres with the transaction history as
// a jsonb document. It joins the transaction opened by db.Store.Begin.
type SQLCardRepository struct {
	store *db.Store
	now   func() time.Time
}

var _ CardRepository = (*SQLCardRepository)(nil)

func NewSQLCardRepository(store *db.Store) *SQLCardRepository {
	return &SQLCardRepository{store: store, now: time.Now}
}

func (r *SQLCardRepository) Save(ctx context.Context, card *domain.Card) (*domain.Card, error) {
	params, err := mapper.ToUpsertCardParams(card, r.now())
	if err != nil {
		return nil, fmt.Errorf("encode card %s: %w", card.Number(), err)
	}

	row, err := r.store.QueriesFor(ctx).UpsertCard(ctx, params)
	if err != nil {
		return nil, saveError(card.Number(), err)
	}
	return mapper.FromCardRow(row)
}

// saveError maps a unique violation on the card number, the only unique key
// besides the id the upsert resolves, to a duplicate number.
func saveError(number domain.CardNumber, err error) error {
	if db.IsDuplicateEntry(err) {
		return domain.NewCardError(domain.ErrDuplicateCardNumber, number)
	}
	return fmt.Errorf("save card %s: %w", number, err)
}

func (r *SQLCardRepository) FindAll(ctx context.Context, page PageSpec) (ResultPage[*domain.Card], error) {
	q := r.store.QueriesFor(ctx)

	total, err := q.CountCards(ctx)
	if err != nil {
		return ResultPage[*domain.Card]{}, fmt.Errorf("count cards: %w", err)
	}

	offset := page.Offset()
	if offset < 0 || offset > int(total) {
		offset = int(total)
	}
	rows, err := q.ListCards(ctx, db.ListCardsParams{
		Limit:  int32(page.Size),
		Offset: int32(offset),
	})
	if err != nil {
		return ResultPage[*domain.Card]{}, fmt.Errorf("list cards: %w", err)
	}

	cards := make([]*domain.Card, 0, len(rows))
	for _, row := range rows {
		card, err := mapper.FromCardRow(row)
		if err != nil {
			return ResultPage[*domain.Card]{}, err
		}
		cards = append(cards, card)
	}
	return NewResultPage(cards, page, int(total)), nil
}

func (r *SQLCardRepository) FindByNumber(ctx context.Context, number domain.CardNumber) (*domain.Card, error) {
	row, err := r.store.QueriesFor(ctx).GetCardByNumber(ctx, number.String())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrCardNotFound
		}
		return nil, fmt.Errorf("find card %s: %w", number, err)
	}
	return mapper.FromCardRow(row)
}
