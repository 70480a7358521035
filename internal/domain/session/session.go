// Package session issues the per-page correlation identifier.
package session

import "github.com/google/uuid"

// ID correlates the fingerprint and every trail batch of one page lifetime.
type ID string

// New returns a fresh random identifier. It is never persisted.
func New() ID {
	return ID(uuid.NewString())
}

// String returns the identifier.
func (id ID) String() string { return string(id) }
