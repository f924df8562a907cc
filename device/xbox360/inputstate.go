package xbox360

import (
	"encoding/binary"
	"io"
)

// InputStateSize is the length of one input frame on the device stream.
const InputStateSize = 14

// InputState is one Xbox 360 input report as streamed to VIIPER.
//
//	 0-3: Buttons (little-endian)
//	   4: LT (0-255)
//	   5: RT (0-255)
//	 6-7: LX
//	 8-9: LY
//	10-11: RX
//	12-13: RY
//
// Sticks are signed 16 bit little-endian values where positive Y points up.
type InputState struct {
	Buttons uint32
	LT, RT  uint8
	LX, LY  int16
	RX, RY  int16
}

func (x *InputState) MarshalBinary() ([]byte, error) {
	b := make([]byte, InputStateSize)
	binary.LittleEndian.PutUint32(b[0:4], x.Buttons)
	b[4] = x.LT
	b[5] = x.RT
	binary.LittleEndian.PutUint16(b[6:8], uint16(x.LX))
	binary.LittleEndian.PutUint16(b[8:10], uint16(x.LY))
	binary.LittleEndian.PutUint16(b[10:12], uint16(x.RX))
	binary.LittleEndian.PutUint16(b[12:14], uint16(x.RY))
	return b, nil
}

func (x *InputState) UnmarshalBinary(data []byte) error {
	if len(data) < InputStateSize {
		return io.ErrUnexpectedEOF
	}
	x.Buttons = binary.LittleEndian.Uint32(data[0:4])
	x.LT = data[4]
	x.RT = data[5]
	x.LX = int16(binary.LittleEndian.Uint16(data[6:8]))
	x.LY = int16(binary.LittleEndian.Uint16(data[8:10]))
	x.RX = int16(binary.LittleEndian.Uint16(data[10:12]))
	x.RY = int16(binary.LittleEndian.Uint16(data[12:14]))
	return nil
}

// RumbleStateSize is the length of one rumble message from the device.
const RumbleStateSize = 2

// XRumbleState is a rumble command sent back by the host.
// LeftMotor is the large low-frequency motor, RightMotor the small one.
type XRumbleState struct {
	LeftMotor  uint8
	RightMotor uint8
}

func (r *XRumbleState) MarshalBinary() ([]byte, error) {
	return []byte{r.LeftMotor, r.RightMotor}, nil
}

func (r *XRumbleState) UnmarshalBinary(data []byte) error {
	if len(data) < RumbleStateSize {
		return io.ErrUnexpectedEOF
	}
	r.LeftMotor = data[0]
	r.RightMotor = data[1]
	return nil
}
