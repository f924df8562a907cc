package input

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Stick is an analog stick position, each axis in [-1, 1].
type Stick struct {
	X float64
	Y float64
}

// Payload is one raw controller report as sent by the phone client.
// Fields that were missing or malformed hold their neutral value.
type Payload struct {
	// Buttons holds every button reported as pressed.
	Buttons    map[string]bool
	LT         float64
	RT         float64
	LeftStick  Stick
	RightStick Stick
}

// Pressed reports whether a raw button is down.
func (p Payload) Pressed(button string) bool {
	return p.Buttons[button]
}

// ParsePayload decodes a JSON payload. It never fails: anything it cannot
// read becomes neutral.
func ParsePayload(data []byte) Payload {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return Payload{Buttons: map[string]bool{}}
	}
	return PayloadFromMap(raw)
}

// PayloadFromMap reads an already decoded payload object.
func PayloadFromMap(raw map[string]any) Payload {
	p := Payload{Buttons: map[string]bool{}}
	if raw == nil {
		return p
	}

	if buttons, ok := raw["buttons"].(map[string]any); ok {
		for name, v := range buttons {
			if truthy(v) {
				p.Buttons[name] = true
			}
		}
	}

	if triggers, ok := raw["triggers"].(map[string]any); ok {
		p.LT = clamp(number(triggers["lt"]), 0, 1)
		p.RT = clamp(number(triggers["rt"]), 0, 1)
	}

	left, ok := raw["leftStick"].(map[string]any)
	if !ok {
		// older clients send a single "stick"
		left, _ = raw["stick"].(map[string]any)
	}
	p.LeftStick = stick(left)
	right, _ := raw["rightStick"].(map[string]any)
	p.RightStick = stick(right)

	return p
}

func stick(raw map[string]any) Stick {
	return Stick{
		X: clamp(number(raw["x"]), -1, 1),
		Y: clamp(number(raw["y"]), -1, 1),
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func number(v any) float64 {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case bool:
		if t {
			f = 1
		}
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0
		}
		f = parsed
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}
	if math.IsNaN(f) {
		return 0
	}
	return f
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0 && !math.IsNaN(t)
	case string:
		return t != ""
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return false
	}
}
