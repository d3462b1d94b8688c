package queue

import "errors"

var (
	// ErrClosed is reported when enqueueing on a closed queue.
	ErrClosed = errors.New("queue closed")

	// ErrFull is reported when the queue is at capacity.
	ErrFull = errors.New("queue full")
)
