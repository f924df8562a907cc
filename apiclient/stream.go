package apiclient

import (
	"bufio"
	"context"
	"encoding"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/aircontroller/padbridge/apitypes"
	"github.com/aircontroller/padbridge/device"
)

// ErrStreamClosed is returned by writes after Close.
var ErrStreamClosed = errors.New("stream closed")

// DeviceStream is the bidirectional channel of one virtual device: input
// states go in, feedback (rumble, LEDs) comes out.
type DeviceStream struct {
	conn   net.Conn
	BusID  uint32
	DevID  string
	closed atomic.Bool

	writeMu    sync.Mutex
	readMu     sync.Mutex
	readCancel context.CancelFunc
}

var _ device.StateWriter = (*DeviceStream)(nil)

// OpenStream connects to the stream of an existing device.
func (c *Client) OpenStream(ctx context.Context, busID uint32, devID string) (*DeviceStream, error) {
	if c.transport.mock != nil {
		return nil, errors.New("stream connections not supported with mock transport")
	}
	conn, err := c.transport.dial(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := fmt.Fprintf(conn, "bus/%d/%s\x00", busID, devID); err != nil {
		conn.Close()
		return nil, fmt.Errorf("write stream path: %w", err)
	}
	return &DeviceStream{conn: conn, BusID: busID, DevID: devID}, nil
}

// AddDeviceAndConnect adds a device and opens its stream. On a stream error
// the created device is still returned so the caller can remove it.
func (c *Client) AddDeviceAndConnect(ctx context.Context, busID uint32, devType string, o *device.CreateOptions) (*DeviceStream, *apitypes.Device, error) {
	dev, err := c.DeviceAdd(ctx, busID, devType, o)
	if err != nil {
		return nil, nil, err
	}
	stream, err := c.OpenStream(ctx, busID, dev.DevId)
	if err != nil {
		return nil, dev, err
	}
	return stream, dev, nil
}

// WriteBinary sends one marshaled state frame.
func (s *DeviceStream) WriteBinary(v encoding.BinaryMarshaler) error {
	if s.closed.Load() {
		return ErrStreamClosed
	}
	data, err := v.MarshalBinary()
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_, err = s.conn.Write(data)
	return err
}

// StartReading decodes feedback messages on a background goroutine until the
// context ends, the stream closes or decode fails. The error channel receives
// exactly one value before both channels close.
func (s *DeviceStream) StartReading(ctx context.Context, chSize int, decode func(r *bufio.Reader) (encoding.BinaryUnmarshaler, error)) (<-chan encoding.BinaryUnmarshaler, <-chan error) {
	s.readMu.Lock()
	defer s.readMu.Unlock()
	if s.readCancel != nil {
		panic("StartReading called twice on the same stream")
	}

	msgCh := make(chan encoding.BinaryUnmarshaler, chSize)
	errCh := make(chan error, 1)
	readCtx, cancel := context.WithCancel(ctx)
	s.readCancel = cancel
	stop := context.AfterFunc(readCtx, func() { s.conn.Close() })

	go func() {
		defer close(msgCh)
		defer close(errCh)
		defer stop()
		defer cancel()

		r := bufio.NewReader(s.conn)
		for {
			msg, err := decode(r)
			if err != nil {
				if readCtx.Err() != nil {
					err = readCtx.Err()
				}
				errCh <- err
				return
			}
			select {
			case msgCh <- msg:
			case <-readCtx.Done():
				errCh <- readCtx.Err()
				return
			}
		}
	}()
	return msgCh, errCh
}

// Close closes the connection and stops background reading.
func (s *DeviceStream) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.readMu.Lock()
	if s.readCancel != nil {
		s.readCancel()
	}
	s.readMu.Unlock()
	err := s.conn.Close()
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}
