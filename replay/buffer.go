package replay

import (
	"errors"
	"sync"
	"time"
)

// ErrAborted is returned from Buffer.Offer when a run is cancelled
// while the loader is blocked on back-pressure.
var ErrAborted = errors.New("replay aborted")

// Buffer is the bounded FIFO between loader and pacer. Exactly one
// producer and one consumer. Records arrive already sorted by trade
// time within each window and windows tile forward, so insertion order
// is emission order.
//
// Back-pressure is the sole loader throttle: Offer blocks while the
// buffer is at capacity and the depth never exceeds max.
type Buffer struct {
	mu      sync.Mutex
	notFull *sync.Cond

	items   []Record
	max     int
	closed  bool // producer finished
	aborted bool // run cancelled
}

// NewBuffer creates a buffer holding at most max records
func NewBuffer(max int) *Buffer {
	b := &Buffer{max: max}
	b.notFull = sync.NewCond(&b.mu)
	return b
}

// Offer enqueues a batch, blocking while the buffer is full. Batches
// larger than the capacity are admitted in chunks as the consumer
// drains, so the depth bound holds for any batch size. Returns
// ErrAborted if the run is cancelled while waiting.
func (b *Buffer) Offer(batch []Record) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	i := 0
	for i < len(batch) {
		for len(b.items) >= b.max && !b.aborted {
			b.notFull.Wait()
		}
		if b.aborted {
			return ErrAborted
		}
		n := b.max - len(b.items)
		if n > len(batch)-i {
			n = len(batch) - i
		}
		b.items = append(b.items, batch[i:i+n]...)
		i += n
	}
	return nil
}

// DrainDue removes and returns every buffered record with
// TradeTime <= virtualNow, in order. Never blocks.
func (b *Buffer) DrainDue(virtualNow time.Time) []Record {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := 0
	for n < len(b.items) && !b.items[n].TradeTime.After(virtualNow) {
		n++
	}
	if n == 0 {
		return nil
	}

	due := make([]Record, n)
	copy(due, b.items[:n])
	b.items = b.items[n:]
	b.notFull.Broadcast()
	return due
}

// PeekTime returns the trade time of the head record, if any
func (b *Buffer) PeekTime() (time.Time, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.items) == 0 {
		return time.Time{}, false
	}
	return b.items[0].TradeTime, true
}

// Close marks the producer side finished. Idempotent.
func (b *Buffer) Close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
}

// Drained reports whether the producer is done and everything has been
// consumed.
func (b *Buffer) Drained() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed && len(b.items) == 0
}

// Abort unblocks a waiting producer and makes further offers fail.
// Called on stop so cancellation reaches a loader stuck in Offer.
func (b *Buffer) Abort() {
	b.mu.Lock()
	b.aborted = true
	b.notFull.Broadcast()
	b.mu.Unlock()
}

// Len returns the current depth
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}
