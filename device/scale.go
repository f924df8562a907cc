package device

import "math"

// AxisToInt16 scales a stick axis in [-1, 1] to the full signed 16 bit range.
func AxisToInt16(v float64) int16 {
	return int16(math.Round(clampUnit(v) * math.MaxInt16))
}

// AxisToInt8 scales a stick axis in [-1, 1] to the signed 8 bit range.
func AxisToInt8(v float64) int8 {
	return int8(math.Round(clampUnit(v) * math.MaxInt8))
}

// TriggerToUint8 scales a trigger in [0, 1] to 0-255.
func TriggerToUint8(v float64) uint8 {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	if v >= 1 {
		return math.MaxUint8
	}
	return uint8(math.Round(v * math.MaxUint8))
}

func clampUnit(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(-1, math.Min(1, v))
}
