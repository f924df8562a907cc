package dualshock4

import "github.com/aircontroller/padbridge/device"

// DPadBits converts a hat position into the InputState.DPad bitmask.
func DPadBits(d device.Direction) uint8 {
	var bits uint8
	if d.Up() {
		bits |= DPadUp
	}
	if d.Down() {
		bits |= DPadDown
	}
	if d.Left() {
		bits |= DPadLeft
	}
	if d.Right() {
		bits |= DPadRight
	}
	return bits
}

// Neutral returns a released controller lying flat.
func Neutral() InputState {
	return InputState{
		AccelX: DefaultAccelXRaw,
		AccelY: DefaultAccelYRaw,
		AccelZ: DefaultAccelZRaw,
	}
}
