package device_test

import (
	"math"
	"testing"

	"github.com/aircontroller/padbridge/device"
	"github.com/stretchr/testify/assert"
)

func TestDirectionOf(t *testing.T) {
	type testCase struct {
		up, down, left, right bool
		expected              device.Direction
	}

	cases := []testCase{
		{expected: device.DirectionNone},
		{up: true, expected: device.DirectionNorth},
		{down: true, expected: device.DirectionSouth},
		{left: true, expected: device.DirectionWest},
		{right: true, expected: device.DirectionEast},
		{up: true, right: true, expected: device.DirectionNorthEast},
		{up: true, left: true, expected: device.DirectionNorthWest},
		{down: true, right: true, expected: device.DirectionSouthEast},
		{down: true, left: true, expected: device.DirectionSouthWest},
		{up: true, left: true, right: true, expected: device.DirectionNorthEast},
		{up: true, down: true, expected: device.DirectionNorth},
	}

	for _, tc := range cases {
		d := device.DirectionOf(tc.up, tc.down, tc.left, tc.right)
		assert.Equal(t, tc.expected, d, d.String())
	}
}

func TestDirectionComponents(t *testing.T) {
	d := device.DirectionSouthWest
	assert.True(t, d.Down())
	assert.True(t, d.Left())
	assert.False(t, d.Up())
	assert.False(t, d.Right())
	assert.Equal(t, "southwest", d.String())
	assert.Equal(t, "invalid", device.Direction(42).String())
}

func TestScaling(t *testing.T) {
	assert.Equal(t, int16(32767), device.AxisToInt16(1))
	assert.Equal(t, int16(-32767), device.AxisToInt16(-1))
	assert.Equal(t, int16(16384), device.AxisToInt16(0.5))
	assert.Equal(t, int16(32767), device.AxisToInt16(4))
	assert.Equal(t, int16(0), device.AxisToInt16(math.NaN()))

	assert.Equal(t, int8(127), device.AxisToInt8(1))
	assert.Equal(t, int8(-64), device.AxisToInt8(-0.5))

	assert.Equal(t, uint8(255), device.TriggerToUint8(1))
	assert.Equal(t, uint8(0), device.TriggerToUint8(-1))
	assert.Equal(t, uint8(51), device.TriggerToUint8(0.2))
}
