package testing

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/aircontroller/padbridge/device"
	"github.com/aircontroller/padbridge/internal/socketio"
)

// Op names a recorded backend call.
type Op string

const (
	OpPress      Op = "press"
	OpRelease    Op = "release"
	OpTrigger    Op = "trigger"
	OpStick      Op = "stick"
	OpDPad       Op = "dpad"
	OpCommit     Op = "commit"
	OpReset      Op = "reset"
	OpCommitFail Op = "commit-failed"
)

// Call is one recorded backend call.
type Call struct {
	Op     Op
	Button device.Button
	Side   device.Side
	X, Y   float64
	Dir    device.Direction
}

// RecordingBackend is a device.HatBackend that records every call and keeps
// the committed state for assertions.
type RecordingBackend struct {
	mu    sync.Mutex
	calls []Call

	staged    BackendState
	committed BackendState

	// FailCommit makes Commit return an error.
	FailCommit bool
}

// BackendState is a plain view of a controller state.
type BackendState struct {
	Buttons  map[device.Button]bool
	Triggers [2]float64
	Sticks   [2][2]float64
	DPad     device.Direction
}

var _ device.HatBackend = (*RecordingBackend)(nil)

func NewRecordingBackend() *RecordingBackend {
	return &RecordingBackend{
		staged:    BackendState{Buttons: map[device.Button]bool{}},
		committed: BackendState{Buttons: map[device.Button]bool{}},
	}
}

func (r *RecordingBackend) record(c Call) {
	r.calls = append(r.calls, c)
}

func (r *RecordingBackend) Press(b device.Button) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(Call{Op: OpPress, Button: b})
	r.staged.Buttons[b] = true
}

func (r *RecordingBackend) Release(b device.Button) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(Call{Op: OpRelease, Button: b})
	delete(r.staged.Buttons, b)
}

func (r *RecordingBackend) SetTrigger(side device.Side, v float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(Call{Op: OpTrigger, Side: side, X: v})
	r.staged.Triggers[side] = v
}

func (r *RecordingBackend) SetStick(side device.Side, x, y float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(Call{Op: OpStick, Side: side, X: x, Y: y})
	r.staged.Sticks[side] = [2]float64{x, y}
}

func (r *RecordingBackend) SetDPad(d device.Direction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(Call{Op: OpDPad, Dir: d})
	r.staged.DPad = d
}

func (r *RecordingBackend) Commit() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailCommit {
		r.record(Call{Op: OpCommitFail})
		return errors.New("commit failed")
	}
	r.record(Call{Op: OpCommit})
	r.committed = r.staged.clone()
	return nil
}

func (r *RecordingBackend) Reset() error {
	r.mu.Lock()
	r.record(Call{Op: OpReset})
	r.staged = BackendState{Buttons: map[device.Button]bool{}}
	r.mu.Unlock()
	return r.Commit()
}

// Calls returns every call recorded so far.
func (r *RecordingBackend) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// CallsOf returns the recorded calls with the given op.
func (r *RecordingBackend) CallsOf(op Op) []Call {
	var out []Call
	for _, c := range r.Calls() {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// ButtonsOf returns the buttons of the recorded calls with the given op, in call order.
func (r *RecordingBackend) ButtonsOf(op Op) []device.Button {
	var out []device.Button
	for _, c := range r.CallsOf(op) {
		out = append(out, c.Button)
	}
	return out
}

// ClearCalls forgets recorded calls but keeps the device state.
func (r *RecordingBackend) ClearCalls() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}

// Committed returns the last committed state.
func (r *RecordingBackend) Committed() BackendState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.committed.clone()
}

func (s BackendState) clone() BackendState {
	out := s
	out.Buttons = make(map[device.Button]bool, len(s.Buttons))
	for k, v := range s.Buttons {
		out.Buttons[k] = v
	}
	return out
}

// Neutral reports whether nothing is pressed and all axes are centered.
func (s BackendState) Neutral() bool {
	return len(s.Buttons) == 0 &&
		s.Triggers == [2]float64{} &&
		s.Sticks == [2][2]float64{} &&
		s.DPad == device.DirectionNone
}

// Emit is one event sent through a ScriptedTransport.
type Emit struct {
	Event   string
	Payload any
}

// ScriptedTransport stands in for the session socket. Tests drive the
// handler through Connect, Event, Ack and Disconnect.
type ScriptedTransport struct {
	mu      sync.Mutex
	handler socketio.Handler
	emits   []Emit
	acks    []socketio.AckFunc
	closes  int

	running   chan struct{}
	closed    chan struct{}
	closeOnce sync.Once

	// RunErr is returned by Run when the transport is closed.
	RunErr error
}

func NewScriptedTransport() *ScriptedTransport {
	return &ScriptedTransport{
		running: make(chan struct{}),
		closed:  make(chan struct{}),
	}
}

func (s *ScriptedTransport) Run(ctx context.Context, h socketio.Handler) error {
	s.mu.Lock()
	s.handler = h
	s.mu.Unlock()
	close(s.running)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.closed:
		return s.RunErr
	}
}

func (s *ScriptedTransport) EmitWithAck(event string, payload any, ack socketio.AckFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.closed:
		return socketio.ErrClosed
	default:
	}
	s.emits = append(s.emits, Emit{Event: event, Payload: payload})
	s.acks = append(s.acks, ack)
	return nil
}

func (s *ScriptedTransport) Close() error {
	s.mu.Lock()
	s.closes++
	s.mu.Unlock()
	s.closeOnce.Do(func() { close(s.closed) })
	return nil
}

// Running is closed once Run has been called.
func (s *ScriptedTransport) Running() <-chan struct{} { return s.running }

// Done is closed once Close has been called.
func (s *ScriptedTransport) Done() <-chan struct{} { return s.closed }

// Closes reports how many times Close was called.
func (s *ScriptedTransport) Closes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closes
}

// Emits returns every event sent so far.
func (s *ScriptedTransport) Emits() []Emit {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Emit(nil), s.emits...)
}

func (s *ScriptedTransport) current() socketio.Handler {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handler
}

// Connect simulates a completed namespace connect.
func (s *ScriptedTransport) Connect() { s.current().OnConnect() }

// Disconnect simulates a dropped connection.
func (s *ScriptedTransport) Disconnect(err error) { s.current().OnDisconnect(err) }

// Event delivers a server event whose single argument is v encoded as JSON.
// A nil v sends no arguments.
func (s *ScriptedTransport) Event(name string, v any) {
	s.current().OnEvent(name, encodeArgs(v))
}

// Ack answers the i-th emitted event with v encoded as JSON.
func (s *ScriptedTransport) Ack(i int, v any) {
	s.mu.Lock()
	ack := s.acks[i]
	s.mu.Unlock()
	if ack != nil {
		ack(encodeArgs(v))
	}
}

func encodeArgs(v any) []json.RawMessage {
	if v == nil {
		return nil
	}
	if raw, ok := v.(string); ok {
		return []json.RawMessage{json.RawMessage(raw)}
	}
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return []json.RawMessage{b}
}
