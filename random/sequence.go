package random

import "sync"

// Sequence replays a fixed list of values and then fails with ErrExhausted.
type Sequence struct {
	mu   sync.Mutex
	vals []uint32
}

func NewSequence(vals ...uint32) *Sequence {
	return &Sequence{vals: append([]uint32(nil), vals...)}
}

func (s *Sequence) Uint32() (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.vals) == 0 {
		return 0, ErrExhausted
	}
	v := s.vals[0]
	s.vals = s.vals[1:]
	return v, nil
}

// Remaining reports how many values have not been drawn yet.
func (s *Sequence) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.vals)
}

// Counting wraps a Source and counts successful and failed draws.
type Counting struct {
	Source Source

	mu    sync.Mutex
	draws int
}

func (c *Counting) Uint32() (uint32, error) {
	c.mu.Lock()
	c.draws++
	c.mu.Unlock()
	return c.Source.Uint32()
}

// Draws returns the number of Uint32 calls made so far.
func (c *Counting) Draws() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draws
}
