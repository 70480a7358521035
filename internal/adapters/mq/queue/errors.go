package queue

import "errors"

// Sentinel errors returned by Enqueue.
var (
	ErrClosed = errors.New("beacon queue closed")
	ErrFull   = errors.New("beacon queue full")
)
