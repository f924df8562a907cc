package dualshock4

import "github.com/aircontroller/padbridge/device"

// DeviceType is the VIIPER device type name.
const DeviceType = "dualshock4"

// Button bits of InputState.Buttons.
const (
	ButtonSquare   device.Button = 0x0010
	ButtonCross    device.Button = 0x0020
	ButtonCircle   device.Button = 0x0040
	ButtonTriangle device.Button = 0x0080

	ButtonL1      device.Button = 0x0100
	ButtonR1      device.Button = 0x0200
	ButtonL2      device.Button = 0x0400
	ButtonR2      device.Button = 0x0800
	ButtonShare   device.Button = 0x1000
	ButtonOptions device.Button = 0x2000
	ButtonL3      device.Button = 0x4000
	ButtonR3      device.Button = 0x8000

	ButtonPS            device.Button = 0x0001
	ButtonTouchpadClick device.Button = 0x0002
)

// D-pad bits of InputState.DPad.
const (
	DPadUp    uint8 = 0x01
	DPadDown  uint8 = 0x02
	DPadLeft  uint8 = 0x04
	DPadRight uint8 = 0x08
)

// Resting accelerometer vector of a controller lying flat. Accelerometer
// values are m/s² in fixed point with 512 counts per unit.
const (
	DefaultAccelXRaw int16 = 0
	DefaultAccelYRaw int16 = 0
	// -9.81 * 512
	DefaultAccelZRaw int16 = -5023
)
