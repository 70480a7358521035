package transport

import (
	"errors"
	"fmt"

	"github.com/okian/watchtower/internal/adapters/mq/queue"
)

// Sentinel errors.
var (
	// ErrDelivery wraps every failed delivery.
	ErrDelivery = errors.New("delivery failed")
	// ErrQueueClosed is returned once the transport has been closed.
	ErrQueueClosed = queue.ErrClosed
	// ErrQueueFull is returned when the beacon queue has no room.
	ErrQueueFull = queue.ErrFull
	// ErrInvalidEndpoint is returned by New for a malformed endpoint.
	ErrInvalidEndpoint = errors.New("invalid endpoint")
)

// DeliveryError describes one failed request. It matches ErrDelivery and
// the underlying cause with errors.Is.
type DeliveryError struct {
	Path   string
	Op     string // "encode", "request" or "status"
	Status int    // HTTP status for Op "status"
	Err    error
}

func (e *DeliveryError) Error() string {
	if e.Op == "status" {
		return fmt.Sprintf("delivery to %s failed: unexpected status %d", e.Path, e.Status)
	}
	return fmt.Sprintf("delivery to %s failed during %s: %v", e.Path, e.Op, e.Err)
}

func (e *DeliveryError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrDelivery}
	}
	return []error{ErrDelivery, e.Err}
}
