package execution

import (
	"errors"
	"fmt"
	"strings"
)

// ErrValidation marks argument constraint failures.
var ErrValidation = errors.New("validation failed")

type FieldViolation struct {
	Field      string `json:"field"`
	Constraint string `json:"constraint"`
	Param      string `json:"param,omitempty"`
	Message    string `json:"message"`
}

// ValidationError is returned before the wrapped handler runs.
type ValidationError struct {
	Violations []FieldViolation
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Violations) == 0 {
		return ErrValidation.Error()
	}
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, fmt.Sprintf("%s - %s", v.Field, v.Message))
	}
	return fmt.Sprintf("%s: %s", ErrValidation.Error(), strings.Join(parts, ", "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func NewValidationError(violations ...FieldViolation) *ValidationError {
	return &ValidationError{Violations: violations}
}

// Kind classifies a failure for logs and retry decisions.
type Kind string

const (
	KindValidation         Kind = "validation"
	KindNotFound           Kind = "not_found"
	KindInvariantViolation Kind = "invariant_violation"
	KindTransient          Kind = "transient"
)

// Classifier maps an error to its Kind. Returning "" defers to the next
// classifier.
type Classifier func(err error) Kind

// Classify walks classifiers in order. Validation failures are recognised
// without help; anything unclaimed is transient.
func Classify(err error, classifiers ...Classifier) Kind {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrValidation) {
		return KindValidation
	}
	for _, c := range classifiers {
		if c == nil {
			continue
		}
		if kind := c(err); kind != "" {
			return kind
		}
	}
	return KindTransient
}
