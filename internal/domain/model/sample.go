// Package model contains domain models passed between layers.
package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Kind identifies the input device that produced a movement.
type Kind uint8

const (
	// Pointer is a mouse or pen movement.
	Pointer Kind = iota
	// Touch is a finger movement on a touch surface.
	Touch
)

// Wire names of each kind.
const (
	kindPointer = "mouse"
	kindTouch   = "touch"
)

// String returns the wire name of the kind.
func (k Kind) String() string {
	switch k {
	case Pointer:
		return kindPointer
	case Touch:
		return kindTouch
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// ParseKind maps a wire name back to a Kind. "pointer" is accepted as an
// alias of "mouse".
func ParseKind(s string) (Kind, error) {
	switch s {
	case kindPointer, "pointer":
		return Pointer, nil
	case kindTouch:
		return Touch, nil
	default:
		return 0, fmt.Errorf("unknown movement kind %q", s)
	}
}

// MarshalJSON encodes the kind as its wire name.
func (k Kind) MarshalJSON() ([]byte, error) {
	if k != Pointer && k != Touch {
		return nil, fmt.Errorf("cannot marshal %s", k)
	}
	return json.Marshal(k.String())
}

// UnmarshalJSON decodes a wire name.
func (k *Kind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseKind(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Sample is one recorded movement. OffsetMillis is relative to the
// moment the collector was created.
type Sample struct {
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
	Kind         Kind    `json:"type"`
	OffsetMillis int64   `json:"time"`
}

// timestampLayout matches JavaScript's Date.prototype.toISOString.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// FormatTimestamp renders t in UTC with millisecond precision.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}
