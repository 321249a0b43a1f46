// Package random supplies the uniformly distributed 32-bit integers the game
// engine consumes. The engine never generates randomness itself.
package random

import (
	crand "crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"sync"
)

var (
	// ErrUnavailable is returned when a source cannot produce a value.
	ErrUnavailable = errors.New("random value unavailable")
	// ErrExhausted is returned by a Sequence with no values left.
	ErrExhausted = fmt.Errorf("sequence exhausted: %w", ErrUnavailable)
)

// Source yields uniformly distributed uint32 values.
type Source interface {
	Uint32() (uint32, error)
}

// CryptoSource reads from an entropy reader, crypto/rand by default.
type CryptoSource struct {
	r io.Reader
}

func NewCryptoSource() *CryptoSource {
	return &CryptoSource{r: crand.Reader}
}

func (s *CryptoSource) Uint32() (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(s.r, b[:]); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

// SeededSource is a deterministic PCG source. Safe for concurrent use.
type SeededSource struct {
	mu sync.Mutex
	r  *rand.Rand
}

func NewSeededSource(seed int64) *SeededSource {
	return &SeededSource{r: rand.New(rand.NewPCG(uint64(seed), 0))}
}

func (s *SeededSource) Uint32() (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.Uint32(), nil
}

// New returns a SeededSource for a non-zero seed and a CryptoSource otherwise.
func New(seed int64) Source {
	if seed != 0 {
		return NewSeededSource(seed)
	}
	return NewCryptoSource()
}
