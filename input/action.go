// Package input turns raw controller payloads into canonical action sets.
package input

import "sort"

// Logical actions understood by the device adapters.
const (
	DPadUp    = "dpad_up"
	DPadDown  = "dpad_down"
	DPadLeft  = "dpad_left"
	DPadRight = "dpad_right"

	South = "south"
	East  = "east"
	West  = "west"
	North = "north"

	LB    = "lb"
	RB    = "rb"
	Start = "start"
	Back  = "back"
	LS    = "ls"
	RS    = "rs"

	Guide    = "guide"
	Touchpad = "touchpad"

	// LT and RT are digital overrides that force the analog trigger fully down.
	LT = "lt"
	RT = "rt"
)

// IsTriggerOverride reports whether action only drives an analog trigger.
func IsTriggerOverride(action string) bool {
	return action == LT || action == RT
}

// ActionSet is a set of normalized action names.
type ActionSet map[string]struct{}

func NewActionSet(actions ...string) ActionSet {
	s := make(ActionSet, len(actions))
	for _, a := range actions {
		s.Add(a)
	}
	return s
}

func (s ActionSet) Add(action string) {
	if action != "" {
		s[action] = struct{}{}
	}
}

func (s ActionSet) Remove(action string) { delete(s, action) }

func (s ActionSet) Has(action string) bool {
	_, ok := s[action]
	return ok
}

func (s ActionSet) Len() int { return len(s) }

// Sorted returns the members in lexical order.
func (s ActionSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for a := range s {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

// Digital returns a copy without the trigger overrides.
func (s ActionSet) Digital() ActionSet {
	out := make(ActionSet, len(s))
	for a := range s {
		if !IsTriggerOverride(a) {
			out[a] = struct{}{}
		}
	}
	return out
}
