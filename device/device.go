// Package device defines the capability contract the pad adapters drive and
// the options used when a native virtual device is created.
package device

import "encoding"

// Button is a backend-native button identifier, usually a bit in the
// backend's button field.
type Button uint32

// Side selects the left or right stick or trigger.
type Side uint8

const (
	Left Side = iota
	Right
)

func (s Side) String() string {
	if s == Right {
		return "right"
	}
	return "left"
}

// Backend is a virtual controller whose state is staged by Press, Release,
// SetTrigger and SetStick and becomes visible to the host only on Commit.
// Implementations are not safe for concurrent use.
type Backend interface {
	Press(b Button)
	Release(b Button)
	// SetTrigger stages a trigger value in [0, 1].
	SetTrigger(side Side, v float64)
	// SetStick stages a stick position, both axes in [-1, 1].
	SetStick(side Side, x, y float64)
	// Commit sends the complete staged state in one report.
	Commit() error
	// Reset stages the neutral state and commits it.
	Reset() error
}

// HatBackend is a Backend whose d-pad is a single hat switch instead of four buttons.
type HatBackend interface {
	Backend
	SetDPad(d Direction)
}

// StateWriter sends an encoded input state to a device.
// apiclient.DeviceStream satisfies it.
type StateWriter interface {
	WriteBinary(v encoding.BinaryMarshaler) error
}

// CreateOptions overrides identifiers of a device when it is added to a bus.
type CreateOptions struct {
	IdVendor  *uint16
	IdProduct *uint16
	SubType   *uint8
}
