package relay

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"channel-relay-bot/internal/database"
)

const serialDateLayout = "2006-01-02"

// SerialAllocator produces the date-scoped monotonic serials attached
// to every relayed unit, e.g. "2025-01-01_0001" or "SUB-2025-01-01_0001"
// for a prefixed stream. All reads and increments happen under one
// mutex; the counter resets on date rollover.
type SerialAllocator struct {
	mu      sync.Mutex
	prefix  string
	now     func() time.Time
	date    string
	counter int
}

// NewSerialAllocator creates an allocator for the given stream prefix
// (may be empty).
func NewSerialAllocator(prefix string) *SerialAllocator {
	return &SerialAllocator{prefix: prefix, now: time.Now}
}

// Recover initializes the counter from the highest persisted serial
// carrying today's prefix, so serials stay monotonic across restarts
// within the same day. Absence or an unparsable serial yields 0.
func (a *SerialAllocator) Recover(ctx context.Context, posts database.PostRepository) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	today := a.now().Format(serialDateLayout)
	latest, err := posts.FindLatestSerialByPrefix(ctx, a.prefix+today+"_")
	if err != nil {
		return fmt.Errorf("failed to recover serial counter: %w", err)
	}
	a.date = today
	a.counter = parseSerialIndex(latest)
	return nil
}

// Next returns the next serial for the current local date.
func (a *SerialAllocator) Next() string {
	a.mu.Lock()
	defer a.mu.Unlock()

	today := a.now().Format(serialDateLayout)
	if today != a.date {
		a.date = today
		a.counter = 0
	}
	a.counter++
	return fmt.Sprintf("%s%s_%04d", a.prefix, today, a.counter)
}

// parseSerialIndex extracts the numeric suffix after the last
// underscore. Anything malformed yields 0.
func parseSerialIndex(serial string) int {
	if serial == "" {
		return 0
	}
	idx := strings.LastIndex(serial, "_")
	if idx < 0 || idx == len(serial)-1 {
		return 0
	}
	n, err := strconv.Atoi(serial[idx+1:])
	if err != nil || n < 0 {
		return 0
	}
	return n
}
