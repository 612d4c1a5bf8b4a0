// Package channel implements the bounded byte channel shared by concurrent
// producers and consumers.
//
// A Channel wraps one ring.Ring with a single mutex and two broadcast wait
// queues ("readable" and "writable"). Read and Write are the only operations
// that may suspend, and they only suspend while waiting for data or space,
// never while holding the lock. The control surface (Capacity, SetCapacity,
// Used, Free) takes instantaneous snapshots or mutations under the same lock
// and never waits for data.
//
// Blocking semantics follow the pipe contract:
//   - Reads block until at least one byte is available, then return what is
//     there (short reads are legal).
//   - Writes block until the whole chunk has been committed, in partial runs
//     as space opens up. A chunk from one writer is never interleaved
//     byte-wise with another writer's chunk.
//   - Cancellation of a blocked operation returns ErrInterrupted together
//     with the honest count of bytes already transferred.
//
// Waiters are woken by broadcast and must re-check their predicate: a wake
// only means the state may have changed, which also covers capacity changes
// performed by SetCapacity while they slept.
package channel
