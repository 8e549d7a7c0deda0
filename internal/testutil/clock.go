package testutil

import (
	"strconv"
	"sync"
	"time"

	"notebox/internal/nb"
)

// fixedNow is 2024-01-15 10:30:00 UTC, the timestamp seeded pending-upload
// records carry (1705314600000 ms).
var fixedNow = time.UnixMilli(1705314600000).UTC()

// StubClock is an nb.Clock that only moves when told to. Safe for
// concurrent use.
type StubClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewStubClock(t time.Time) *StubClock {
	return &StubClock{now: t}
}

// FixedClock returns a StubClock at fixedNow.
func FixedClock() *StubClock {
	return NewStubClock(fixedNow)
}

func (c *StubClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *StubClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// StubIDGenerator hands out "id-1", "id-2", ... so relay links and item
// IDs are predictable.
type StubIDGenerator struct {
	mu sync.Mutex
	n  int
}

func NewStubIDGenerator() *StubIDGenerator {
	return &StubIDGenerator{}
}

func (g *StubIDGenerator) New() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return "id-" + strconv.Itoa(g.n)
}

var (
	_ nb.Clock       = (*StubClock)(nil)
	_ nb.IDGenerator = (*StubIDGenerator)(nil)
)
