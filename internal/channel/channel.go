package channel

import (
	"context"
	"sync"

	"github.com/kanalhq/kanal/internal/ring"
)

// Channel is one bounded byte stream. All fields are guarded by mu; the
// wait queues are plain channels that are closed and replaced on broadcast,
// so a waiter can select on cancellation while suspended (sync.Cond cannot).
type Channel struct {
	mu       sync.Mutex
	ring     *ring.Ring
	readable chan struct{}
	writable chan struct{}
}

// Stat is an instantaneous snapshot of a channel's fill level.
type Stat struct {
	Capacity int `json:"capacity"`
	Used     int `json:"used"`
	Free     int `json:"free"`
}

// New creates a channel with the given buffer capacity.
func New(capacity int) (*Channel, error) {
	r, err := ring.New(capacity)
	if err != nil {
		return nil, err
	}
	return &Channel{
		ring:     r,
		readable: make(chan struct{}),
		writable: make(chan struct{}),
	}, nil
}

// wakeReaders wakes every goroutine suspended on the readable queue.
// Callers must hold mu.
func (c *Channel) wakeReaders() {
	close(c.readable)
	c.readable = make(chan struct{})
}

// wakeWriters wakes every goroutine suspended on the writable queue.
// Callers must hold mu.
func (c *Channel) wakeWriters() {
	close(c.writable)
	c.writable = make(chan struct{})
}

// Read copies up to len(dst) buffered bytes into dst.
//
// With block set, Read suspends until at least one byte is buffered, then
// returns whatever is there; a short read is not an error. Without block it
// returns ErrWouldBlock when the channel is empty. Cancelling ctx while
// suspended returns (0, ErrInterrupted) with nothing consumed.
func (c *Channel) Read(ctx context.Context, dst []byte, block bool) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}

	c.mu.Lock()
	for c.ring.Used() == 0 {
		if !block {
			c.mu.Unlock()
			return 0, ErrWouldBlock
		}
		readable := c.readable
		c.mu.Unlock()
		select {
		case <-readable:
			// Woken; the predicate is re-checked under the lock. Spurious
			// and raced wakes fall through to another wait.
		case <-ctx.Done():
			return 0, ErrInterrupted
		}
		c.mu.Lock()
	}

	n := 0
	for n < len(dst) {
		run := c.ring.ReadInto(dst[n:])
		if run == 0 {
			break
		}
		n += run
	}
	// Space opened up; how many writers that satisfies is not 1:1 with the
	// bytes freed, so all of them get to re-check.
	c.wakeWriters()
	c.mu.Unlock()
	return n, nil
}

// Write commits src into the channel.
//
// With block set, Write suspends whenever the buffer is full and resumes as
// space opens, until all of src has been committed. Without block it commits
// what fits immediately and returns ErrWouldBlock only when not a single
// byte fit. Cancelling ctx while suspended returns ErrInterrupted together
// with the count of bytes already committed; a durably written prefix is
// never reported as total failure.
func (c *Channel) Write(ctx context.Context, src []byte, block bool) (int, error) {
	if len(src) == 0 {
		return 0, nil
	}

	written := 0
	c.mu.Lock()
	for written < len(src) {
		for c.ring.Free() == 0 {
			if !block {
				c.mu.Unlock()
				if written == 0 {
					return 0, ErrWouldBlock
				}
				return written, nil
			}
			writable := c.writable
			c.mu.Unlock()
			select {
			case <-writable:
			case <-ctx.Done():
				return written, ErrInterrupted
			}
			c.mu.Lock()
		}

		for written < len(src) {
			run := c.ring.WriteFrom(src[written:])
			if run == 0 {
				break
			}
			written += run
		}
		c.wakeReaders()

		if !block {
			break
		}
	}
	c.mu.Unlock()
	return written, nil
}
