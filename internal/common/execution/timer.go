package execution

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/SwiftFiat/SwiftFiat-Cards/services/monitoring/logging"
	"github.com/sirupsen/logrus"
)

type TimeUnit string

const (
	Nanoseconds  TimeUnit = "ns"
	Milliseconds TimeUnit = "ms"
)

func ParseTimeUnit(value string) (TimeUnit, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "ns":
		return Nanoseconds, nil
	case "ms":
		return Milliseconds, nil
	default:
		return "", fmt.Errorf("unknown time unit %q", value)
	}
}

func (u TimeUnit) Convert(d time.Duration) int64 {
	if u == Milliseconds {
		return d.Milliseconds()
	}
	return d.Nanoseconds()
}

// TimingSink receives one report per timed call.
type TimingSink interface {
	Record(name string, elapsed time.Duration, unit TimeUnit, err error)
}

type SinkFunc func(name string, elapsed time.Duration, unit TimeUnit, err error)

func (f SinkFunc) Record(name string, elapsed time.Duration, unit TimeUnit, err error) {
	f(name, elapsed, unit, err)
}

type LogSink struct {
	Logger *logging.Logger
}

func (s LogSink) Record(name string, elapsed time.Duration, unit TimeUnit, err error) {
	if s.Logger == nil {
		return
	}
	fields := logrus.Fields{
		"operation": name,
		"elapsed":   unit.Convert(elapsed),
		"unit":      string(unit),
	}
	if err != nil {
		fields["error"] = err.Error()
	}
	s.Logger.WithFields(fields).Info(fmt.Sprintf("Method %s executes in %d %s", name, unit.Convert(elapsed), unit))
}

// Timer reports how long next took, retries included when placed outside
// Retry. The result and error of next pass through untouched.
func Timer[In, Out any](sink TimingSink, unit TimeUnit) Decorator[In, Out] {
	if unit == "" {
		unit = Nanoseconds
	}
	return func(name string, next Handler[In, Out]) Handler[In, Out] {
		return func(ctx context.Context, in In) (Out, error) {
			start := time.Now()
			out, err := next(ctx, in)
			if sink != nil {
				sink.Record(name, time.Since(start), unit, err)
			}
			return out, err
		}
	}
}
