package fingerprint

import "errors"

// Sentinel errors.
var (
	// ErrUnsupported is returned by a probe the host cannot provide.
	ErrUnsupported = errors.New("probe unsupported on this host")
	// ErrProbeTimeout marks a probe that did not settle in time.
	ErrProbeTimeout = errors.New("probe timed out")
	// ErrProbePanic marks a probe that panicked.
	ErrProbePanic = errors.New("probe panicked")
)
