package pad

import (
	"github.com/aircontroller/padbridge/device"
	"github.com/aircontroller/padbridge/device/xbox360"
	"github.com/aircontroller/padbridge/input"
)

var xboxButtons = map[string]device.Button{
	input.South:     xbox360.ButtonA,
	input.East:      xbox360.ButtonB,
	input.West:      xbox360.ButtonX,
	input.North:     xbox360.ButtonY,
	input.LB:        xbox360.ButtonLShoulder,
	input.RB:        xbox360.ButtonRShoulder,
	input.Back:      xbox360.ButtonBack,
	input.Start:     xbox360.ButtonStart,
	input.LS:        xbox360.ButtonLThumb,
	input.RS:        xbox360.ButtonRThumb,
	input.Guide:     xbox360.ButtonGuide,
	input.DPadUp:    xbox360.ButtonDPadUp,
	input.DPadDown:  xbox360.ButtonDPadDown,
	input.DPadLeft:  xbox360.ButtonDPadLeft,
	input.DPadRight: xbox360.ButtonDPadRight,
}

// Xbox drives an XInput style controller. Its d-pad is four buttons and its
// stick Y axes are inverted relative to the phone client.
type Xbox struct {
	dev     device.Backend
	buttons tracker[device.Button]
}

func NewXbox(dev device.Backend) *Xbox {
	return &Xbox{dev: dev}
}

func (x *Xbox) Apply(f input.Frame) error {
	applyDigital(x.dev, &x.buttons, supported(f.Actions, xboxButtons))
	x.dev.SetTrigger(device.Left, f.LT)
	x.dev.SetTrigger(device.Right, f.RT)
	x.dev.SetStick(device.Left, f.LeftX, -f.LeftY)
	x.dev.SetStick(device.Right, f.RightX, -f.RightY)
	return x.dev.Commit()
}

func (x *Xbox) Reset() error {
	x.buttons.clear()
	return x.dev.Reset()
}
