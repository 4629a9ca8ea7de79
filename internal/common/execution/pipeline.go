// Package execution wraps use-case handlers with cross-cutting behaviour:
// argument validation, per-resource locking, transaction boundaries, retries
// and timing. Every concern is a Decorator; a Pipeline applies them in the
// order they were added, the first one ending up outermost.
package execution

import (
	"context"
	"strings"
)

// Handler is a single use-case invocation.
type Handler[In, Out any] func(ctx context.Context, in In) (Out, error)

// Decorator returns a handler with the same contract as next plus one extra
// behaviour. name identifies the pipeline in logs and timing reports.
type Decorator[In, Out any] func(name string, next Handler[In, Out]) Handler[In, Out]

type Pipeline[In, Out any] struct {
	name       string
	decorators []Decorator[In, Out]
}

func NewPipeline[In, Out any](name string) *Pipeline[In, Out] {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "pipeline"
	}
	return &Pipeline[In, Out]{name: name}
}

func (p *Pipeline[In, Out]) Name() string {
	return p.name
}

// Use appends decorators. Nil decorators are skipped so optional concerns can
// be passed through unconditionally.
func (p *Pipeline[In, Out]) Use(decorators ...Decorator[In, Out]) *Pipeline[In, Out] {
	for _, d := range decorators {
		if d != nil {
			p.decorators = append(p.decorators, d)
		}
	}
	return p
}

// Wrap composes the decorators around h.
func (p *Pipeline[In, Out]) Wrap(h Handler[In, Out]) Handler[In, Out] {
	wrapped := h
	for i := len(p.decorators) - 1; i >= 0; i-- {
		wrapped = p.decorators[i](p.name, wrapped)
	}
	return wrapped
}
