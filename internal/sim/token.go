package sim

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// TokenSource generates run tokens: every started run gets a fresh token
// so observers can tell two runs of the same configuration apart.
// Implemented by UUIDv7Source (production) and SequenceSource (tests).
type TokenSource interface {
	Generate() string
}

// UUIDv7Source generates time-sortable UUIDv7 run tokens. UUIDv7 embeds
// a timestamp in the most significant bits, so tokens sort by start
// time, which is convenient in logs and traces.
//
// Stateless and safe for concurrent use.
type UUIDv7Source struct{}

// Generate returns a new hyphenated UUIDv7 string.
func (UUIDv7Source) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// SequenceSource returns "run-1", "run-2", ... for deterministic tests
// and golden traces.
type SequenceSource struct {
	mu sync.Mutex
	n  int
}

// Generate returns the next token in the sequence.
func (s *SequenceSource) Generate() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("run-%d", s.n)
}
