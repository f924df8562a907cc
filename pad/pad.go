// Package pad applies canonical input frames to a virtual controller.
//
// Each adapter remembers what it pressed on the previous Apply and only
// issues the press and release calls needed to reach the next frame, in
// sorted order. The whole state is committed to the backend once per Apply.
// Adapters are not safe for concurrent use; the bridge runtime serializes
// access with its lock.
package pad

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/aircontroller/padbridge/device"
	"github.com/aircontroller/padbridge/device/dualshock4"
	"github.com/aircontroller/padbridge/device/xbox360"
	"github.com/aircontroller/padbridge/input"
)

// Pad is a virtual controller adapter.
type Pad interface {
	Apply(f input.Frame) error
	// Reset releases everything and drives the device to neutral.
	Reset() error
}

// Kind selects the emulated controller.
type Kind string

const (
	KindXbox      Kind = "xbox"
	KindDualShock Kind = "ds4"
)

// ParseKind accepts "xbox", "ds4" and the VIIPER device type names.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "xbox", xbox360.DeviceType:
		return KindXbox, nil
	case "ds4", dualshock4.DeviceType:
		return KindDualShock, nil
	default:
		return "", fmt.Errorf("unknown virtual device %q (expected xbox or ds4)", s)
	}
}

// DeviceType is the VIIPER device type to create for k.
func (k Kind) DeviceType() string {
	if k == KindDualShock {
		return dualshock4.DeviceType
	}
	return xbox360.DeviceType
}

// Label is the upper-case name shown in the bridge display name.
func (k Kind) Label() string { return strings.ToUpper(string(k)) }

// NewNative creates the adapter for k on top of a device stream.
func NewNative(k Kind, w device.StateWriter) (Pad, error) {
	switch k {
	case KindXbox:
		return NewXbox(xbox360.NewBackend(w)), nil
	case KindDualShock:
		return NewDualShock(dualshock4.NewBackend(w)), nil
	default:
		return nil, fmt.Errorf("unknown virtual device %q", k)
	}
}

// tracker remembers the digital identifiers pressed by the previous frame.
type tracker[K cmp.Ordered] struct {
	pressed map[K]struct{}
}

// update replaces the pressed set with next and returns the sorted
// identifiers that have to be released and pressed to get there.
func (t *tracker[K]) update(next map[K]struct{}) (release, press []K) {
	for k := range t.pressed {
		if _, ok := next[k]; !ok {
			release = append(release, k)
		}
	}
	for k := range next {
		if _, ok := t.pressed[k]; !ok {
			press = append(press, k)
		}
	}
	slices.Sort(release)
	slices.Sort(press)
	t.pressed = next
	return release, press
}

func (t *tracker[K]) clear() { t.pressed = nil }

func (t *tracker[K]) sorted() []K {
	out := make([]K, 0, len(t.pressed))
	for k := range t.pressed {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// supported intersects actions with a button table.
func supported(actions input.ActionSet, table map[string]device.Button) map[device.Button]struct{} {
	out := make(map[device.Button]struct{}, len(actions))
	for a := range actions {
		if btn, ok := table[a]; ok {
			out[btn] = struct{}{}
		}
	}
	return out
}

// applyDigital issues the release and press calls for next.
func applyDigital(dev device.Backend, t *tracker[device.Button], next map[device.Button]struct{}) {
	release, press := t.update(next)
	for _, b := range release {
		dev.Release(b)
	}
	for _, b := range press {
		dev.Press(b)
	}
}
