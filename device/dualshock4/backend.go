// Package dualshock4 drives a VIIPER DualShock 4 controller over its device stream.
package dualshock4

import (
	"bufio"
	"encoding"
	"fmt"
	"io"

	"github.com/aircontroller/padbridge/device"
)

// Backend stages an InputState and writes it as a whole on Commit.
// Its d-pad is a hat switch.
type Backend struct {
	w     device.StateWriter
	state InputState
}

var _ device.HatBackend = (*Backend)(nil)

func NewBackend(w device.StateWriter) *Backend {
	return &Backend{w: w, state: Neutral()}
}

func (b *Backend) Press(btn device.Button)   { b.state.Buttons |= uint16(btn) }
func (b *Backend) Release(btn device.Button) { b.state.Buttons &^= uint16(btn) }

func (b *Backend) SetTrigger(side device.Side, v float64) {
	if side == device.Right {
		b.state.R2 = device.TriggerToUint8(v)
		return
	}
	b.state.L2 = device.TriggerToUint8(v)
}

func (b *Backend) SetStick(side device.Side, x, y float64) {
	if side == device.Right {
		b.state.RX, b.state.RY = device.AxisToInt8(x), device.AxisToInt8(y)
		return
	}
	b.state.LX, b.state.LY = device.AxisToInt8(x), device.AxisToInt8(y)
}

func (b *Backend) SetDPad(d device.Direction) {
	b.state.DPad = DPadBits(d)
}

// State returns the staged state.
func (b *Backend) State() InputState { return b.state }

func (b *Backend) Commit() error {
	st := b.state
	if err := b.w.WriteBinary(&st); err != nil {
		return fmt.Errorf("write dualshock4 input state: %w", err)
	}
	return nil
}

func (b *Backend) Reset() error {
	b.state = Neutral()
	return b.Commit()
}

// DecodeOutput reads one feedback message. It fits apiclient.DeviceStream.StartReading.
func DecodeOutput(r *bufio.Reader) (encoding.BinaryUnmarshaler, error) {
	var buf [OutputStateSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return nil, err
	}
	msg := new(OutputState)
	if err := msg.UnmarshalBinary(buf[:]); err != nil {
		return nil, err
	}
	return msg, nil
}
