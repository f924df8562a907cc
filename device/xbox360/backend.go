// Package xbox360 drives a VIIPER Xbox 360 controller over its device stream.
package xbox360

import (
	"bufio"
	"encoding"
	"fmt"
	"io"

	"github.com/aircontroller/padbridge/device"
)

// Backend stages an InputState and writes it as a whole on Commit.
type Backend struct {
	w     device.StateWriter
	state InputState
}

var _ device.Backend = (*Backend)(nil)

func NewBackend(w device.StateWriter) *Backend {
	return &Backend{w: w}
}

func (b *Backend) Press(btn device.Button)   { b.state.Buttons |= uint32(btn) }
func (b *Backend) Release(btn device.Button) { b.state.Buttons &^= uint32(btn) }

func (b *Backend) SetTrigger(side device.Side, v float64) {
	if side == device.Right {
		b.state.RT = device.TriggerToUint8(v)
		return
	}
	b.state.LT = device.TriggerToUint8(v)
}

func (b *Backend) SetStick(side device.Side, x, y float64) {
	if side == device.Right {
		b.state.RX, b.state.RY = device.AxisToInt16(x), device.AxisToInt16(y)
		return
	}
	b.state.LX, b.state.LY = device.AxisToInt16(x), device.AxisToInt16(y)
}

// State returns the staged state.
func (b *Backend) State() InputState { return b.state }

func (b *Backend) Commit() error {
	st := b.state
	if err := b.w.WriteBinary(&st); err != nil {
		return fmt.Errorf("write xbox360 input state: %w", err)
	}
	return nil
}

func (b *Backend) Reset() error {
	b.state = InputState{}
	return b.Commit()
}

// DecodeRumble reads one rumble message. It fits apiclient.DeviceStream.StartReading.
func DecodeRumble(r *bufio.Reader) (encoding.BinaryUnmarshaler, error) {
	var buf [RumbleStateSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return nil, err
	}
	msg := new(XRumbleState)
	if err := msg.UnmarshalBinary(buf[:]); err != nil {
		return nil, err
	}
	return msg, nil
}
