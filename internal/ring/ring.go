// Package ring implements the resizable circular byte buffer backing a
// channel. It is pure bookkeeping: no locking, no blocking. Exclusive
// access must be guaranteed by the caller.
package ring

import "errors"

var (
	// ErrInvalidCapacity indicates a requested capacity below one byte.
	ErrInvalidCapacity = errors.New("ring: capacity must be at least 1")

	// ErrCapacityTooSmall indicates a resize that would drop unread bytes.
	ErrCapacityTooSmall = errors.New("ring: capacity smaller than unread data")
)

// Ring is a circular byte buffer addressed by a head index and a count of
// unread bytes. The tail is always derived as (head+used)%capacity; storing
// it separately is how head/tail implementations drift apart.
type Ring struct {
	buf  []byte
	head int
	used int
}

// New creates a ring with the given capacity in bytes.
func New(capacity int) (*Ring, error) {
	if capacity < 1 {
		return nil, ErrInvalidCapacity
	}
	return &Ring{buf: make([]byte, capacity)}, nil
}

// Capacity returns the total size of the buffer in bytes.
func (r *Ring) Capacity() int { return len(r.buf) }

// Used returns the number of unread bytes in the buffer.
func (r *Ring) Used() int { return r.used }

// Free returns the number of bytes that can be written before the ring is full.
func (r *Ring) Free() int { return len(r.buf) - r.used }

func (r *Ring) tail() int { return (r.head + r.used) % len(r.buf) }

// ReadInto copies at most one contiguous run of unread bytes into dst,
// starting at the head, and consumes them. It returns the number of bytes
// copied, which is zero when the ring is empty or dst is empty. Callers
// wanting more than one run loop until ReadInto returns zero.
func (r *Ring) ReadInto(dst []byte) int {
	n := len(dst)
	if n > r.used {
		n = r.used
	}
	if run := len(r.buf) - r.head; n > run {
		n = run
	}
	if n <= 0 {
		return 0
	}
	copy(dst, r.buf[r.head:r.head+n])
	r.head = (r.head + n) % len(r.buf)
	r.used -= n
	return n
}

// WriteFrom copies at most one contiguous run of src into the buffer at the
// tail and marks it unread. It returns the number of bytes copied, which is
// zero when the ring is full or src is empty.
func (r *Ring) WriteFrom(src []byte) int {
	n := len(src)
	if free := len(r.buf) - r.used; n > free {
		n = free
	}
	tail := r.tail()
	if run := len(r.buf) - tail; n > run {
		n = run
	}
	if n <= 0 {
		return 0
	}
	copy(r.buf[tail:tail+n], src)
	r.used += n
	return n
}

// Resize replaces the buffer with one of the given capacity, unwrapping the
// unread bytes into the new buffer starting at offset zero. The resize is
// refused outright when it would lose data; the ring is left untouched on
// any error.
func (r *Ring) Resize(capacity int) error {
	if capacity < 1 {
		return ErrInvalidCapacity
	}
	if capacity < r.used {
		return ErrCapacityTooSmall
	}
	buf := make([]byte, capacity)
	n := copy(buf, r.buf[r.head:r.head+min(r.used, len(r.buf)-r.head)])
	if n < r.used {
		copy(buf[n:], r.buf[:r.used-n])
	}
	r.buf = buf
	r.head = 0
	return nil
}
