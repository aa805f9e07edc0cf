package peac

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// ReceiptIDGenerator generates unique receipt identifiers (the rid claim).
// Use DefaultIDGenerator for production and FixedIDGenerator for testing.
type ReceiptIDGenerator interface {
	// NewReceiptID generates a new unique receipt ID.
	NewReceiptID() (string, error)
}

// UUIDv7Generator generates UUIDv7 receipt IDs. UUIDv7 is timestamp-ordered,
// making receipts sortable by issuance time without a separate iat index.
type UUIDv7Generator struct{}

// NewUUIDv7Generator creates a UUIDv7-based receipt ID generator.
func NewUUIDv7Generator() *UUIDv7Generator {
	return &UUIDv7Generator{}
}

// NewReceiptID generates a new UUIDv7.
func (g *UUIDv7Generator) NewReceiptID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate uuidv7: %w", err)
	}
	return id.String(), nil
}

// FixedIDGenerator returns IDs from a predefined list.
// Use this for deterministic testing.
type FixedIDGenerator struct {
	mu    sync.Mutex
	ids   []string
	index int
}

// NewFixedIDGenerator creates a generator that returns IDs in order.
// When exhausted, it cycles back to the beginning.
func NewFixedIDGenerator(ids ...string) *FixedIDGenerator {
	if len(ids) == 0 {
		ids = []string{"01890a5d-ac96-774b-bcce-b302099a8057"}
	}
	return &FixedIDGenerator{ids: ids}
}

// NewReceiptID returns the next ID from the list.
func (g *FixedIDGenerator) NewReceiptID() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.ids[g.index]
	g.index = (g.index + 1) % len(g.ids)
	return id, nil
}

// SequentialIDGenerator returns IDs with a prefix and incrementing counter.
// Use this when you need unique but predictable IDs.
type SequentialIDGenerator struct {
	mu      sync.Mutex
	prefix  string
	counter int
}

// NewSequentialIDGenerator creates a generator with the given prefix.
func NewSequentialIDGenerator(prefix string) *SequentialIDGenerator {
	return &SequentialIDGenerator{prefix: prefix, counter: 1}
}

// NewReceiptID returns the next sequential ID.
func (g *SequentialIDGenerator) NewReceiptID() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := fmt.Sprintf("%s%03d", g.prefix, g.counter)
	g.counter++
	return id, nil
}

// DefaultIDGenerator returns the default receipt ID generator (UUIDv7).
func DefaultIDGenerator() ReceiptIDGenerator {
	return NewUUIDv7Generator()
}
