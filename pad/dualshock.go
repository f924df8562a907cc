package pad

import (
	"github.com/aircontroller/padbridge/device"
	"github.com/aircontroller/padbridge/device/dualshock4"
	"github.com/aircontroller/padbridge/input"
)

var dualShockButtons = map[string]device.Button{
	input.South:    dualshock4.ButtonCross,
	input.East:     dualshock4.ButtonCircle,
	input.West:     dualshock4.ButtonSquare,
	input.North:    dualshock4.ButtonTriangle,
	input.LB:       dualshock4.ButtonL1,
	input.RB:       dualshock4.ButtonR1,
	input.Back:     dualshock4.ButtonShare,
	input.Start:    dualshock4.ButtonOptions,
	input.LS:       dualshock4.ButtonL3,
	input.RS:       dualshock4.ButtonR3,
	input.Guide:    dualshock4.ButtonPS,
	input.Touchpad: dualshock4.ButtonTouchpadClick,
}

// DualShock drives a DualShock 4 style controller. The d-pad actions are
// collapsed into one hat position and stick axes pass through unchanged.
type DualShock struct {
	dev     device.HatBackend
	buttons tracker[device.Button]
}

func NewDualShock(dev device.HatBackend) *DualShock {
	return &DualShock{dev: dev}
}

func (d *DualShock) Apply(f input.Frame) error {
	applyDigital(d.dev, &d.buttons, supported(f.Actions, dualShockButtons))
	d.dev.SetTrigger(device.Left, f.LT)
	d.dev.SetTrigger(device.Right, f.RT)
	d.dev.SetStick(device.Left, f.LeftX, f.LeftY)
	d.dev.SetStick(device.Right, f.RightX, f.RightY)
	d.dev.SetDPad(Direction(f.Actions))
	return d.dev.Commit()
}

func (d *DualShock) Reset() error {
	d.buttons.clear()
	return d.dev.Reset()
}

// Direction collapses the d-pad actions of a set into a hat position.
func Direction(actions input.ActionSet) device.Direction {
	return device.DirectionOf(
		actions.Has(input.DPadUp),
		actions.Has(input.DPadDown),
		actions.Has(input.DPadLeft),
		actions.Has(input.DPadRight),
	)
}
