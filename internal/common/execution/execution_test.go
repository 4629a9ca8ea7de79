package execution

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type spyTxManager struct {
	mu sync.Mutex

	FailBegin  error
	FailCommit error

	BeginCalls    int
	CommitCalls   int
	RollbackCalls int
	Options       []TxOptions
}

type spyTx struct{ ctx context.Context }

func (t spyTx) Context() context.Context { return t.ctx }

type txKey struct{}

func (m *spyTxManager) Begin(ctx context.Context, opts TxOptions) (Tx, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.BeginCalls++
	m.Options = append(m.Options, opts)
	if m.FailBegin != nil {
		return nil, m.FailBegin
	}
	return spyTx{ctx: context.WithValue(ctx, txKey{}, m.BeginCalls)}, nil
}

func (m *spyTxManager) Commit(Tx) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CommitCalls++
	return m.FailCommit
}

func (m *spyTxManager) MarkRollbackOnly(Tx) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RollbackCalls++
	return nil
}

func TestPipelineAppliesDecoratorsOutermostFirst(t *testing.T) {
	var trace []string
	mark := func(label string) Decorator[string, string] {
		return func(name string, next Handler[string, string]) Handler[string, string] {
			return func(ctx context.Context, in string) (string, error) {
				trace = append(trace, label+">")
				out, err := next(ctx, in)
				trace = append(trace, "<"+label)
				return out, err
			}
		}
	}

	h := NewPipeline[string, string]("test").
		Use(mark("a"), nil, mark("b")).
		Wrap(func(_ context.Context, in string) (string, error) {
			trace = append(trace, "handler")
			return strings.ToUpper(in), nil
		})

	out, err := h(context.Background(), "x")
	if err != nil || out != "X" {
		t.Fatalf("handler result: out=%q err=%v", out, err)
	}
	want := "a> b> handler <b <a"
	if got := strings.Join(trace, " "); got != want {
		t.Fatalf("order: want=%q got=%q", want, got)
	}
}

func TestValidateShortCircuits(t *testing.T) {
	calls := 0
	h := NewPipeline[string, int]("validate").
		Use(Validate[string, int](MinLength("cardNumber", func(s string) string { return s }, 16))).
		Wrap(func(context.Context, string) (int, error) {
			calls++
			return 1, nil
		})

	_, err := h(context.Background(), "123")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got=%v", err)
	}
	var vErr *ValidationError
	if !errors.As(err, &vErr) || vErr.Violations[0].Field != "cardNumber" || vErr.Violations[0].Param != "16" {
		t.Fatalf("unexpected validation error: %#v", err)
	}
	if calls != 0 {
		t.Fatalf("inner handler must not run, calls=%d", calls)
	}

	if _, err := h(context.Background(), "1234567890123456"); err != nil {
		t.Fatalf("valid input rejected: %v", err)
	}
	if calls != 1 {
		t.Fatalf("calls: want=1 got=%d", calls)
	}
}

func TestStructRuleReportsFields(t *testing.T) {
	type page struct {
		Index int `validate:"gte=0"`
		Size  int `validate:"gte=1,lte=100"`
	}
	rule := Struct(func(p page) any { return p })
	if err := rule(page{Index: 0, Size: 10}); err != nil {
		t.Fatalf("valid page rejected: %v", err)
	}
	err := rule(page{Index: -1, Size: 0})
	var vErr *ValidationError
	if !errors.As(err, &vErr) || len(vErr.Violations) != 2 {
		t.Fatalf("expected two violations, got=%v", err)
	}
}

func TestLockRegistrySerialisesWriters(t *testing.T) {
	registry := NewLockRegistry()
	var inside, maxInside int32
	h := NewPipeline[string, struct{}]("lock").
		Use(Lock[string, struct{}](registry, LockWrite, func(k string) string { return k })).
		Wrap(func(context.Context, string) (struct{}, error) {
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			return struct{}{}, nil
		})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = h(context.Background(), "card-1")
		}()
	}
	wg.Wait()

	if maxInside != 1 {
		t.Fatalf("writers overlapped: max concurrent=%d", maxInside)
	}
	if registry.Len() != 0 {
		t.Fatalf("idle lock entries leaked: %d", registry.Len())
	}
}

func TestLockRegistryAllowsConcurrentReaders(t *testing.T) {
	registry := NewLockRegistry()
	first := registry.Acquire("k", LockRead)
	acquired := make(chan struct{})
	go func() {
		release := registry.Acquire("k", LockRead)
		close(acquired)
		release()
	}()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatalf("second reader blocked behind first reader")
	}
	first()
}

func TestLockReleasedOnFailure(t *testing.T) {
	registry := NewLockRegistry()
	boom := errors.New("boom")
	h := NewPipeline[string, int]("lock").
		Use(Lock[string, int](registry, LockWrite, func(k string) string { return k })).
		Wrap(func(context.Context, string) (int, error) { return 0, boom })

	if _, err := h(context.Background(), "k"); !errors.Is(err, boom) {
		t.Fatalf("error: want=%v got=%v", boom, err)
	}
	release := registry.Acquire("k", LockWrite)
	release()
	if registry.Len() != 0 {
		t.Fatalf("lock entry leaked")
	}
}

func TestAtomicCommitsOnce(t *testing.T) {
	tm := &spyTxManager{}
	h := NewPipeline[int, int]("atomic").
		Use(Atomic[int, int](tm, TxOptions{Timeout: time.Second}, nil)).
		Wrap(func(ctx context.Context, in int) (int, error) {
			if ctx.Value(txKey{}) == nil {
				t.Fatalf("handler did not receive the transaction context")
			}
			return in * 2, nil
		})

	out, err := h(context.Background(), 21)
	if err != nil || out != 42 {
		t.Fatalf("result: out=%d err=%v", out, err)
	}
	if tm.BeginCalls != 1 || tm.CommitCalls != 1 || tm.RollbackCalls != 0 {
		t.Fatalf("calls: begin=%d commit=%d rollback=%d", tm.BeginCalls, tm.CommitCalls, tm.RollbackCalls)
	}
	if tm.Options[0].Timeout != time.Second {
		t.Fatalf("timeout not forwarded: %+v", tm.Options[0])
	}
}

type customErr struct{}

func (*customErr) Error() string { return "custom" }

func TestAtomicRollsBackAndPropagatesSameError(t *testing.T) {
	tm := &spyTxManager{}
	want := &customErr{}
	h := NewPipeline[int, int]("atomic").
		Use(Atomic[int, int](tm, TxOptions{}, nil)).
		Wrap(func(context.Context, int) (int, error) { return 0, want })

	_, err := h(context.Background(), 1)
	if err != want {
		t.Fatalf("error instance changed: want=%p got=%v", want, err)
	}
	if tm.CommitCalls != 0 || tm.RollbackCalls != 1 {
		t.Fatalf("calls: commit=%d rollback=%d", tm.CommitCalls, tm.RollbackCalls)
	}
}

func TestAtomicRollsBackWhenHandlerPanics(t *testing.T) {
	tm := &spyTxManager{}
	h := NewPipeline[int, int]("atomic").
		Use(Atomic[int, int](tm, TxOptions{}, nil)).
		Wrap(func(context.Context, int) (int, error) { panic("boom") })

	func() {
		defer func() {
			if r := recover(); r != "boom" {
				t.Fatalf("panic value: want=boom got=%v", r)
			}
		}()
		_, _ = h(context.Background(), 1)
	}()
	if tm.CommitCalls != 0 || tm.RollbackCalls != 1 {
		t.Fatalf("calls: commit=%d rollback=%d", tm.CommitCalls, tm.RollbackCalls)
	}
}

func TestAtomicBeginAndCommitFailures(t *testing.T) {
	beginErr := errors.New("no connection")
	tm := &spyTxManager{FailBegin: beginErr}
	calls := 0
	h := NewPipeline[int, int]("atomic").
		Use(Atomic[int, int](tm, TxOptions{}, nil)).
		Wrap(func(context.Context, int) (int, error) { calls++; return 1, nil })
	if _, err := h(context.Background(), 1); !errors.Is(err, beginErr) || calls != 0 {
		t.Fatalf("begin failure: err=%v calls=%d", err, calls)
	}

	commitErr := errors.New("serialization failure")
	tm = &spyTxManager{FailCommit: commitErr}
	h = NewPipeline[int, int]("atomic").
		Use(Atomic[int, int](tm, TxOptions{}, nil)).
		Wrap(func(context.Context, int) (int, error) { return 1, nil })
	if _, err := h(context.Background(), 1); !errors.Is(err, commitErr) {
		t.Fatalf("commit failure: err=%v", err)
	}
}

func TestRetrySucceedsOnNthAttempt(t *testing.T) {
	for n := 1; n <= 3; n++ {
		calls := 0
		h := NewPipeline[int, string]("retry").
			Use(Retry[int, string](RetryPolicy{MaxAttempts: 3}, nil)).
			Wrap(func(context.Context, int) (string, error) {
				calls++
				if calls < n {
					return "", errors.New("transient")
				}
				return "ok", nil
			})
		out, err := h(context.Background(), 0)
		if err != nil || out != "ok" {
			t.Fatalf("n=%d: out=%q err=%v", n, out, err)
		}
		if calls != n {
			t.Fatalf("n=%d: calls=%d", n, calls)
		}
	}
}

func TestRetryExhaustsAttemptsAndReturnsLastError(t *testing.T) {
	calls := 0
	var last error
	h := NewPipeline[int, int]("retry").
		Use(Retry[int, int](RetryPolicy{MaxAttempts: 4}, nil)).
		Wrap(func(context.Context, int) (int, error) {
			calls++
			last = errors.New("attempt failure")
			return 0, last
		})
	_, err := h(context.Background(), 0)
	if calls != 4 {
		t.Fatalf("calls: want=4 got=%d", calls)
	}
	if err != last {
		t.Fatalf("expected the last error instance, got=%v", err)
	}
}

func TestRetryStopsOnFatalError(t *testing.T) {
	fatal := errors.New("card not found")
	calls := 0
	h := NewPipeline[int, int]("retry").
		Use(Retry[int, int](RetryPolicy{
			MaxAttempts: 5,
			Retryable:   RetryUnless(func(err error) bool { return errors.Is(err, fatal) }),
		}, nil)).
		Wrap(func(context.Context, int) (int, error) {
			calls++
			return 0, fatal
		})
	if _, err := h(context.Background(), 0); err != fatal {
		t.Fatalf("error: want=%v got=%v", fatal, err)
	}
	if calls != 1 {
		t.Fatalf("fatal error retried: calls=%d", calls)
	}

	calls = 0
	h = NewPipeline[int, int]("retry").
		Use(Retry[int, int](RetryPolicy{MaxAttempts: 5}, nil)).
		Wrap(func(context.Context, int) (int, error) {
			calls++
			return 0, NewValidationError(FieldViolation{Field: "x"})
		})
	_, _ = h(context.Background(), 0)
	if calls != 1 {
		t.Fatalf("validation error retried: calls=%d", calls)
	}
}

func TestRetryGivesEachAttemptItsOwnTransaction(t *testing.T) {
	tm := &spyTxManager{}
	calls := 0
	h := NewPipeline[int, int]("retry+atomic").
		Use(
			Retry[int, int](RetryPolicy{MaxAttempts: 3}, nil),
			Atomic[int, int](tm, TxOptions{}, nil),
		).
		Wrap(func(context.Context, int) (int, error) {
			calls++
			if calls < 3 {
				return 0, errors.New("deadlock detected")
			}
			return 7, nil
		})
	if out, err := h(context.Background(), 0); err != nil || out != 7 {
		t.Fatalf("out=%d err=%v", out, err)
	}
	if tm.BeginCalls != 3 || tm.RollbackCalls != 2 || tm.CommitCalls != 1 {
		t.Fatalf("tx calls: begin=%d rollback=%d commit=%d", tm.BeginCalls, tm.RollbackCalls, tm.CommitCalls)
	}
}

func TestTimerReportsAndPassesThrough(t *testing.T) {
	var reports []string
	sink := SinkFunc(func(name string, elapsed time.Duration, unit TimeUnit, err error) {
		if elapsed < 0 {
			t.Fatalf("negative elapsed time")
		}
		status := "ok"
		if err != nil {
			status = err.Error()
		}
		reports = append(reports, name+":"+string(unit)+":"+status)
	})
	boom := errors.New("boom")
	fail := true
	h := NewPipeline[int, int]("timed").
		Use(Timer[int, int](sink, Milliseconds)).
		Wrap(func(context.Context, int) (int, error) {
			if fail {
				return 0, boom
			}
			return 5, nil
		})

	if _, err := h(context.Background(), 0); err != boom {
		t.Fatalf("error changed: %v", err)
	}
	fail = false
	if out, err := h(context.Background(), 0); err != nil || out != 5 {
		t.Fatalf("out=%d err=%v", out, err)
	}
	want := "timed:ms:boom timed:ms:ok"
	if got := strings.Join(reports, " "); got != want {
		t.Fatalf("reports: want=%q got=%q", want, got)
	}
}

func TestClassify(t *testing.T) {
	notFound := errors.New("missing")
	classifier := func(err error) Kind {
		if errors.Is(err, notFound) {
			return KindNotFound
		}
		return ""
	}
	if got := Classify(NewValidationError(), classifier); got != KindValidation {
		t.Fatalf("validation: got=%s", got)
	}
	if got := Classify(notFound, classifier); got != KindNotFound {
		t.Fatalf("not found: got=%s", got)
	}
	if got := Classify(errors.New("io"), classifier); got != KindTransient {
		t.Fatalf("transient: got=%s", got)
	}
}

func TestNoopTransactionManagerHonoursTimeout(t *testing.T) {
	tm := NoopTransactionManager{}
	tx, err := tm.Begin(context.Background(), TxOptions{Timeout: time.Millisecond})
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	<-tx.Context().Done()
	if err := tm.Commit(tx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Commit after timeout: want=DeadlineExceeded got=%v", err)
	}
}
