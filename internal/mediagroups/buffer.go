package mediagroups

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/mymmrac/telego"
)

const (
	// DefaultFlushDelay is the debounce window: a group flushes this long
	// after its last observed item, not its first.
	DefaultFlushDelay = 2 * time.Second
	// DefaultMaxGroupSize limits the number of messages stored per group.
	DefaultMaxGroupSize = 100
	// processTimeout bounds a single flush, including the outbound sends.
	processTimeout = 60 * time.Second
)

// ProcessFunc handles a completed media group: the group ID and the
// buffered messages in arrival order.
type ProcessFunc func(ctx context.Context, groupID string, messages []telego.Message) error

type groupState struct {
	mu       sync.Mutex
	messages []telego.Message
	timer    *time.Timer
	flushed  bool
}

// Buffer coalesces the burst of individually delivered messages that
// make up one media group. Every append restarts the group's flush
// timer (last-write-wins debounce); the timer callback atomically takes
// ownership of the buffered list and hands it to the handler.
type Buffer struct {
	delay   time.Duration
	maxSize int
	handler ProcessFunc
	groups  sync.Map // map[string]*groupState
}

// NewBuffer creates a buffer flushing through handler after delay of
// inactivity per group.
func NewBuffer(delay time.Duration, maxSize int, handler ProcessFunc) *Buffer {
	if delay <= 0 {
		delay = DefaultFlushDelay
	}
	if maxSize <= 0 {
		maxSize = DefaultMaxGroupSize
	}
	return &Buffer{delay: delay, maxSize: maxSize, handler: handler}
}

// Append adds the message to its group's buffer, creating the buffer if
// absent, and reschedules the group's flush timer. A message appended
// concurrently with a flush of the same key starts a fresh buffer
// instead of resurrecting the flushed one.
func (b *Buffer) Append(message telego.Message) {
	groupID := message.MediaGroupID
	if groupID == "" {
		return
	}

	for {
		val, _ := b.groups.LoadOrStore(groupID, &groupState{})
		state := val.(*groupState)

		state.mu.Lock()
		if state.flushed {
			// Lost the race against flush; this state is dead. Retry so the
			// message lands in a fresh buffer.
			state.mu.Unlock()
			continue
		}
		if len(state.messages) >= b.maxSize {
			log.Printf("[MediaGroupBuffer Group:%s] Group limit (%d) reached, message %d dropped", groupID, b.maxSize, message.MessageID)
			state.mu.Unlock()
			return
		}
		state.messages = append(state.messages, message)
		if state.timer != nil {
			state.timer.Stop()
		}
		state.timer = time.AfterFunc(b.delay, func() { b.flush(groupID) })
		state.mu.Unlock()
		return
	}
}

// flush is invoked only by a group's timer. It removes the buffer from
// the map, takes a private copy of the list under the same lock Append
// uses, then processes unlocked.
func (b *Buffer) flush(groupID string) {
	val, loaded := b.groups.LoadAndDelete(groupID)
	if !loaded {
		return
	}
	state := val.(*groupState)

	state.mu.Lock()
	state.flushed = true
	if state.timer != nil {
		state.timer.Stop()
		state.timer = nil
	}
	messages := make([]telego.Message, len(state.messages))
	copy(messages, state.messages)
	state.mu.Unlock()

	if len(messages) == 0 {
		return
	}

	// The update context is long gone by flush time.
	ctx, cancel := context.WithTimeout(context.Background(), processTimeout)
	defer cancel()

	if err := b.handler(ctx, groupID, messages); err != nil {
		log.Printf("[MediaGroupBuffer Group:%s] Error processing group: %v", groupID, err)
	}
}

// Shutdown stops all pending flush timers without firing them.
func (b *Buffer) Shutdown() {
	stopped := 0
	b.groups.Range(func(key, value interface{}) bool {
		state := value.(*groupState)
		state.mu.Lock()
		if state.timer != nil {
			if state.timer.Stop() {
				stopped++
			}
			state.timer = nil
		}
		state.mu.Unlock()
		return true
	})
	log.Printf("[MediaGroupBuffer] Shutdown complete. Stopped %d pending timer(s).", stopped)
}
