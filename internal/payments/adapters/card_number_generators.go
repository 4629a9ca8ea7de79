package adapters

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/SwiftFiat/SwiftFiat-Cards/internal/payments/domain"
	"github.com/speps/go-hashids/v2"
)

const (
	GeneratorSequential = "seq"
	GeneratorRandom     = "rnd"
	GeneratorHash       = "hash"

	hashAlphabet = "0123456789ABCDEFGHJKLMNPQRSTUVWXYZ"
)

// SequentialCardNumberGenerator yields 0..01, 0..02 and so on, zero padded to
// the configured length.
type SequentialCardNumberGenerator struct {
	mu      sync.Mutex
	length  int
	counter int64
}

func NewSequentialCardNumberGenerator(length int) (*SequentialCardNumberGenerator, error) {
	if length <= 0 {
		return nil, fmt.Errorf("length must be greater than zero")
	}
	return &SequentialCardNumberGenerator{length: length}, nil
}

// StartAfter moves the sequence past numbers that are already issued.
func (g *SequentialCardNumberGenerator) StartAfter(counter int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if counter > g.counter {
		g.counter = counter
	}
}

func (g *SequentialCardNumberGenerator) Next() (domain.CardNumber, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counter++
	return domain.CardNumber(fmt.Sprintf("%0*d", g.length, g.counter)), nil
}

type RandomCardNumberGenerator struct {
	mu     sync.Mutex
	length int
	rnd    *rand.Rand
}

func NewRandomCardNumberGenerator(length int) (*RandomCardNumberGenerator, error) {
	if length <= 0 {
		return nil, fmt.Errorf("length must be greater than zero")
	}
	return &RandomCardNumberGenerator{
		length: length,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

func (g *RandomCardNumberGenerator) Next() (domain.CardNumber, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	var b strings.Builder
	b.Grow(g.length)
	for i := 0; i < g.length; i++ {
		b.WriteByte(byte('0' + g.rnd.Intn(10)))
	}
	return domain.CardNumber(b.String()), nil
}

// HashCardNumberGenerator encodes a counter with hashids, so numbers are
// unique per salt but not guessable from their neighbours.
type HashCardNumberGenerator struct {
	mu      sync.Mutex
	hash    *hashids.HashID
	counter int64
}

func NewHashCardNumberGenerator(length int, salt string) (*HashCardNumberGenerator, error) {
	if length <= 0 {
		return nil, fmt.Errorf("length must be greater than zero")
	}
	hd := hashids.NewData()
	hd.Salt = salt
	hd.MinLength = length
	hd.Alphabet = hashAlphabet
	h, err := hashids.NewWithData(hd)
	if err != nil {
		return nil, fmt.Errorf("hash generator: %w", err)
	}
	return &HashCardNumberGenerator{hash: h}, nil
}

// StartAfter moves the encoded counter past numbers that are already issued.
func (g *HashCardNumberGenerator) StartAfter(counter int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if counter > g.counter {
		g.counter = counter
	}
}

func (g *HashCardNumberGenerator) Next() (domain.CardNumber, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counter++
	encoded, err := g.hash.EncodeInt64([]int64{g.counter})
	if err != nil {
		return "", err
	}
	return domain.CardNumber(encoded), nil
}

// GeneratorFactory builds a generator for a card number length and salt.
type GeneratorFactory func(length int, salt string) (CardNumberGenerator, error)

// CardNumberGenerator mirrors the service port so the registry does not
// depend on the service package.
type CardNumberGenerator interface {
	Next() (domain.CardNumber, error)
}

var generators = map[string]GeneratorFactory{
	GeneratorSequential: func(length int, _ string) (CardNumberGenerator, error) {
		return NewSequentialCardNumberGenerator(length)
	},
	GeneratorRandom: func(length int, _ string) (CardNumberGenerator, error) {
		return NewRandomCardNumberGenerator(length)
	},
	GeneratorHash: func(length int, salt string) (CardNumberGenerator, error) {
		return NewHashCardNumberGenerator(length, salt)
	},
}

// NewCardNumberGenerator selects a generator strategy by name.
func NewCardNumberGenerator(name string, length int, salt string) (CardNumberGenerator, error) {
	factory, ok := generators[name]
	if !ok {
		return nil, fmt.Errorf("unknown card number generator %q", name)
	}
	return factory(length, salt)
}
