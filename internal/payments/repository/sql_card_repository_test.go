package repository

import (
	"errors"
	"testing"

	"github.com/SwiftFiat/SwiftFiat-Cards/internal/payments/domain"
	"github.com/lib/pq"
)

func TestSaveErrorMapsUniqueNumberViolation(t *testing.T) {
	err := saveError("0001", &pq.Error{Code: "23505", Constraint: "cards_number_key"})
	if !errors.Is(err, domain.ErrDuplicateCardNumber) {
		t.Fatalf("unique violation: want=%v got=%v", domain.ErrDuplicateCardNumber, err)
	}

	deadlock := &pq.Error{Code: "40P01"}
	err = saveError("0001", deadlock)
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr != deadlock {
		t.Fatalf("other failures must keep the driver error: got=%v", err)
	}
}
