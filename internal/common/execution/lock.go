package execution

import (
	"context"
	"sync"
)

type LockMode int

const (
	LockRead LockMode = iota
	LockWrite
)

func (m LockMode) String() string {
	if m == LockWrite {
		return "write"
	}
	return "read"
}

type keyLock struct {
	sync.RWMutex
	refs int
}

// LockRegistry hands out one read/write lock per resource key. Entries are
// reference counted and dropped once nobody holds or waits for them.
type LockRegistry struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

func NewLockRegistry() *LockRegistry {
	return &LockRegistry{locks: make(map[string]*keyLock)}
}

// DefaultLockRegistry is shared by every pipeline in the process.
var DefaultLockRegistry = NewLockRegistry()

// Acquire blocks until the lock for key is held in mode and returns the
// matching release function.
func (r *LockRegistry) Acquire(key string, mode LockMode) (release func()) {
	r.mu.Lock()
	l, ok := r.locks[key]
	if !ok {
		l = &keyLock{}
		r.locks[key] = l
	}
	l.refs++
	r.mu.Unlock()

	if mode == LockWrite {
		l.Lock()
	} else {
		l.RLock()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			if mode == LockWrite {
				l.Unlock()
			} else {
				l.RUnlock()
			}
			r.mu.Lock()
			l.refs--
			if l.refs == 0 {
				delete(r.locks, key)
			}
			r.mu.Unlock()
		})
	}
}

// Len reports how many keys currently have a live lock entry.
func (r *LockRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.locks)
}

// Lock holds the lock for key(in) around next and releases it however next
// exits, panics included.
func Lock[In, Out any](registry *LockRegistry, mode LockMode, key func(In) string) Decorator[In, Out] {
	if registry == nil {
		registry = DefaultLockRegistry
	}
	return func(_ string, next Handler[In, Out]) Handler[In, Out] {
		return func(ctx context.Context, in In) (Out, error) {
			release := registry.Acquire(key(in), mode)
			defer release()
			return next(ctx, in)
		}
	}
}
