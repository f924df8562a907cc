package xbox360

import "github.com/aircontroller/padbridge/device"

// DeviceType is the VIIPER device type name.
const DeviceType = "xbox360"

// Button bits of InputState.Buttons (XInput layout).
const (
	ButtonDPadUp    device.Button = 0x0001
	ButtonDPadDown  device.Button = 0x0002
	ButtonDPadLeft  device.Button = 0x0004
	ButtonDPadRight device.Button = 0x0008
	ButtonStart     device.Button = 0x0010
	ButtonBack      device.Button = 0x0020
	ButtonLThumb    device.Button = 0x0040
	ButtonRThumb    device.Button = 0x0080
	ButtonLShoulder device.Button = 0x0100
	ButtonRShoulder device.Button = 0x0200
	ButtonGuide     device.Button = 0x0400
	ButtonA         device.Button = 0x1000
	ButtonB         device.Button = 0x2000
	ButtonX         device.Button = 0x4000
	ButtonY         device.Button = 0x8000
)
