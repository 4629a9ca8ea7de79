package repository

import (
	"context"

	"github.com/SwiftFiat/SwiftFiat-Cards/internal/payments/domain"
)

// CardRepository persists card aggregates. FindByNumber returns
// domain.ErrCardNotFound when no card carries the number. Implementations
// join the transaction carried by ctx when they support one.
type CardRepository interface {
	Save(ctx context.Context, card *domain.Card) (*domain.Card, error)
	FindAll(ctx context.Context, page PageSpec) (ResultPage[*domain.Card], error)
	FindByNumber(ctx context.Context, number domain.CardNumber) (*domain.Card, error)
}

type PageSpec struct {
	Index int `json:"page_number" validate:"gte=0,lte=1000000"`
	Size  int `json:"page_size" validate:"gte=1,lte=100"`
}

func (p PageSpec) Offset() int {
	return p.Index * p.Size
}

type ResultPage[T any] struct {
	Content    []T      `json:"content"`
	PageSpec   PageSpec `json:"page_spec"`
	TotalPages int      `json:"total_pages"`
}

func NewResultPage[T any](content []T, page PageSpec, totalItems int) ResultPage[T] {
	if content == nil {
		content = []T{}
	}
	return ResultPage[T]{
		Content:    content,
		PageSpec:   page,
		TotalPages: totalPages(totalItems, page.Size),
	}
}

// MapPage converts the content of a page, keeping its metadata.
func MapPage[T, O any](page ResultPage[T], mapper func(T) O) ResultPage[O] {
	content := make([]O, len(page.Content))
	for i, item := range page.Content {
		content[i] = mapper(item)
	}
	return ResultPage[O]{
		Content:    content,
		PageSpec:   page.PageSpec,
		TotalPages: page.TotalPages,
	}
}

func totalPages(totalItems, size int) int {
	if size <= 0 || totalItems <= 0 {
		return 0
	}
	return (totalItems + size - 1) / size
}

// window returns the [start, end) bounds of page within total items.
func window(page PageSpec, total int) (int, int) {
	start := page.Offset()
	if start > total || start < 0 {
		start = total
	}
	end := start + page.Size
	if end > total {
		end = total
	}
	return start, end
}
