package input

import "math"

// directions are the raw button names that always drive the d-pad.
var directions = [...]struct {
	button string
	action string
}{
	{"up", DPadUp},
	{"down", DPadDown},
	{"left", DPadLeft},
	{"right", DPadRight},
}

// Frame is the canonical controller state for one instant.
type Frame struct {
	Actions ActionSet
	LeftX   float64
	LeftY   float64
	RightX  float64
	RightY  float64
	LT      float64
	RT      float64
}

// NeutralFrame has no actions and centered axes.
func NeutralFrame() Frame {
	return Frame{Actions: ActionSet{}}
}

// Derive resolves a payload against a profile's virtual map.
//
// Direction buttons always produce their d-pad action. Every pressed button,
// directions included, is then looked up in virtualMap. Opposing d-pad
// directions cancel each other, and the lt/rt overrides raise the analog
// trigger to 1.
func Derive(p Payload, virtualMap map[string][]string) Frame {
	f := Frame{
		Actions: make(ActionSet, len(p.Buttons)),
		LeftX:   clamp(p.LeftStick.X, -1, 1),
		LeftY:   clamp(p.LeftStick.Y, -1, 1),
		RightX:  clamp(p.RightStick.X, -1, 1),
		RightY:  clamp(p.RightStick.Y, -1, 1),
		LT:      clamp(p.LT, 0, 1),
		RT:      clamp(p.RT, 0, 1),
	}

	for _, d := range directions {
		if p.Pressed(d.button) {
			f.Actions.Add(d.action)
		}
	}
	for button, pressed := range p.Buttons {
		if !pressed {
			continue
		}
		for _, action := range virtualMap[button] {
			f.Actions.Add(action)
		}
	}

	cancelOpposing(f.Actions, DPadUp, DPadDown)
	cancelOpposing(f.Actions, DPadLeft, DPadRight)

	if f.Actions.Has(LT) {
		f.LT = math.Max(f.LT, 1)
	}
	if f.Actions.Has(RT) {
		f.RT = math.Max(f.RT, 1)
	}
	return f
}

func cancelOpposing(s ActionSet, a, b string) {
	if s.Has(a) && s.Has(b) {
		s.Remove(a)
		s.Remove(b)
	}
}
