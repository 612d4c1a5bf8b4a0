package channel

import (
	"errors"

	"github.com/kanalhq/kanal/internal/ring"
)

var (
	// ErrWouldBlock is returned by non-blocking operations that cannot make
	// immediate progress. The caller retries later.
	ErrWouldBlock = errors.New("channel: operation would block")

	// ErrInterrupted is returned when a blocking wait is cancelled before
	// its predicate became true. Partial progress, if any, is reported via
	// the byte count alongside it.
	ErrInterrupted = errors.New("channel: blocking operation interrupted")

	// ErrInvalidCommand is returned by Control for an unknown command.
	ErrInvalidCommand = errors.New("channel: invalid control command")

	// ErrFault marks a caller-supplied buffer that could not be read or
	// written. Bytes transferred before the fault remain valid and counted.
	ErrFault = errors.New("channel: buffer fault")

	// ErrInvalidCapacity and ErrCapacityTooSmall are the ring's resize
	// failures, re-exported so callers depend on one package.
	ErrInvalidCapacity  = ring.ErrInvalidCapacity
	ErrCapacityTooSmall = ring.ErrCapacityTooSmall
)
