package pad

import (
	"log/slog"

	"github.com/aircontroller/padbridge/input"
)

// DryRun logs what a controller would do without touching any device.
// Every action except the trigger overrides counts as a button.
type DryRun struct {
	logger  *slog.Logger
	buttons tracker[string]
	last    State
}

// State is the last frame a DryRun applied.
type State struct {
	Pressed []string
	LT, RT  float64
	LeftX   float64
	LeftY   float64
	RightX  float64
	RightY  float64
}

func NewDryRun(logger *slog.Logger) *DryRun {
	if logger == nil {
		logger = slog.Default()
	}
	return &DryRun{logger: logger}
}

func (d *DryRun) Apply(f input.Frame) error {
	release, press := d.buttons.update(f.Actions.Digital())
	for _, a := range release {
		d.logger.Info("dry-run button up", "action", a)
	}
	for _, a := range press {
		d.logger.Info("dry-run button down", "action", a)
	}

	if f.LT != d.last.LT {
		d.logger.Info("dry-run trigger", "side", "lt", "value", f.LT)
	}
	if f.RT != d.last.RT {
		d.logger.Info("dry-run trigger", "side", "rt", "value", f.RT)
	}
	d.logger.Debug("dry-run sticks",
		"lx", f.LeftX, "ly", f.LeftY,
		"rx", f.RightX, "ry", f.RightY,
	)

	d.last = State{
		Pressed: d.buttons.sorted(),
		LT:      f.LT,
		RT:      f.RT,
		LeftX:   f.LeftX,
		LeftY:   f.LeftY,
		RightX:  f.RightX,
		RightY:  f.RightY,
	}
	return nil
}

func (d *DryRun) Reset() error {
	if len(d.buttons.pressed) > 0 {
		d.logger.Info("dry-run reset", "released", d.buttons.sorted())
	}
	d.buttons.clear()
	d.last = State{Pressed: []string{}}
	return nil
}

// State returns a copy of the last applied frame.
func (d *DryRun) State() State {
	st := d.last
	st.Pressed = append([]string{}, d.last.Pressed...)
	return st
}
