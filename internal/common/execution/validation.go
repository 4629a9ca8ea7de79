package execution

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Rule checks one constraint of a handler input.
type Rule[In any] func(in In) error

// MinLength requires the designated string argument to be at least min
// characters long.
func MinLength[In any](field string, value func(In) string, min int) Rule[In] {
	tag := fmt.Sprintf("min=%d", min)
	return func(in In) error {
		if err := validate.Var(value(in), tag); err != nil {
			return NewValidationError(FieldViolation{
				Field:      field,
				Constraint: "min",
				Param:      fmt.Sprint(min),
				Message:    fmt.Sprintf("Value is too short, minimum length is: %d", min),
			})
		}
		return nil
	}
}

// Struct validates the `validate` tags of a struct produced from the input.
func Struct[In any](value func(In) any) Rule[In] {
	return func(in In) error {
		err := validate.Struct(value(in))
		if err == nil {
			return nil
		}
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return NewValidationError(FieldViolation{Field: "input", Constraint: "struct", Message: err.Error()})
		}
		violations := make([]FieldViolation, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			violations = append(violations, FieldViolation{
				Field:      fe.Field(),
				Constraint: fe.Tag(),
				Param:      fe.Param(),
				Message:    fmt.Sprintf("failed on '%s' constraint", fe.Tag()),
			})
		}
		return NewValidationError(violations...)
	}
}

// Validate runs every rule before next. The first violation short-circuits
// the chain; next is never invoked.
func Validate[In, Out any](rules ...Rule[In]) Decorator[In, Out] {
	return func(_ string, next Handler[In, Out]) Handler[In, Out] {
		return func(ctx context.Context, in In) (Out, error) {
			for _, rule := range rules {
				if err := rule(in); err != nil {
					var zero Out
					return zero, err
				}
			}
			return next(ctx, in)
		}
	}
}
