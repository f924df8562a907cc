// Package bridge runs a session: it joins the session server, tracks the
// active profile and feeds every input event through the derivation engine
// into the virtual pad.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/aircontroller/padbridge/input"
	"github.com/aircontroller/padbridge/internal/socketio"
	"github.com/aircontroller/padbridge/pad"
	"github.com/aircontroller/padbridge/profile"
)

// State is the session lifecycle state.
type State int32

const (
	StateConnecting State = iota
	StateJoining
	StateActive
	StateDisconnected
	StateShuttingDown
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateJoining:
		return "joining"
	case StateActive:
		return "active"
	case StateDisconnected:
		return "disconnected"
	case StateShuttingDown:
		return "shutting-down"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Transport is the session connection. *socketio.Client implements it.
type Transport interface {
	Run(ctx context.Context, h socketio.Handler) error
	EmitWithAck(event string, payload any, ack socketio.AckFunc) error
	Close() error
}

// Options configure a Runtime.
type Options struct {
	// Code is the normalized session code.
	Code string
	// Name is the display name sent with the join request.
	Name string
	// ProfileID is the profile requested at startup.
	ProfileID string
	// ProfileLocked ignores profile changes pushed by the server.
	ProfileLocked bool
}

// Runtime owns the pad, the catalog and the active profile. mu guards all
// three together with state; it is held for one event at a time and never
// across network I/O. shuttingDown is checked before taking mu so late
// events return early once shutdown began.
type Runtime struct {
	transport Transport
	logger    *slog.Logger
	opts      Options

	shuttingDown atomic.Bool
	stopped      chan struct{}

	mu       sync.Mutex
	pad      pad.Pad
	catalog  *profile.Catalog
	activeID string
	state    State
	fatal    error
}

var _ socketio.Handler = (*Runtime)(nil)

// New resolves the startup profile and creates a runtime in the Connecting state.
func New(t Transport, p pad.Pad, catalog *profile.Catalog, opts Options, logger *slog.Logger) (*Runtime, error) {
	if logger == nil {
		logger = slog.Default()
	}
	activeID, err := profile.Resolve(opts.ProfileID, catalog, catalog.DefaultID())
	if err != nil {
		return nil, err
	}
	return &Runtime{
		transport: t,
		logger:    logger.With("session", opts.Code),
		opts:      opts,
		pad:       p,
		catalog:   catalog,
		activeID:  activeID,
		state:     StateConnecting,
		stopped:   make(chan struct{}),
	}, nil
}

// Run drives the transport until the session ends. It returns nil after a
// clean shutdown (context cancelled or session closed) and the cause of a
// fatal one, such as a *JoinError.
func (r *Runtime) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, func() { r.Shutdown("stop requested") })
	defer stop()

	err := r.transport.Run(ctx, r)
	r.Shutdown("transport stopped")
	<-r.stopped

	if fatal := r.fatalError(); fatal != nil {
		return fatal
	}
	if err == nil || errors.Is(err, context.Canceled) {
		return nil
	}
	return fmt.Errorf("session transport: %w", err)
}

// Shutdown resets the pad and closes the transport. Only the first call has
// an effect; later events are dropped.
func (r *Runtime) Shutdown(reason string) {
	if !r.shuttingDown.CompareAndSwap(false, true) {
		return
	}
	defer close(r.stopped)
	r.logger.Info("shutting down", "reason", reason)

	r.mu.Lock()
	r.state = StateShuttingDown
	if err := r.pad.Reset(); err != nil {
		r.logger.Error("reset virtual device", "error", err)
	}
	r.mu.Unlock()

	if err := r.transport.Close(); err != nil {
		r.logger.Warn("close session transport", "error", err)
	}
}

// State returns the current lifecycle state.
func (r *Runtime) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// ActiveProfileID returns the id of the profile inputs are mapped with.
func (r *Runtime) ActiveProfileID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.activeID
}

func (r *Runtime) OnConnect() {
	if r.shuttingDown.Load() {
		return
	}
	r.mu.Lock()
	r.state = StateJoining
	r.mu.Unlock()

	r.logger.Info("connected to session server, joining")
	req := JoinRequest{Code: r.opts.Code, Name: r.opts.Name}
	if err := r.transport.EmitWithAck(EventJoinSession, req, r.onJoinAck); err != nil {
		r.logger.Error("send join request", "error", err)
	}
}

func (r *Runtime) onJoinAck(args []json.RawMessage) {
	if r.shuttingDown.Load() {
		return
	}
	var ack joinAck
	if !firstArg(args, &ack) || !ack.OK {
		reason := ack.Error
		if reason == "" {
			reason = "unknown"
		}
		r.logger.Error("join failed", "reason", reason)
		r.fail(&JoinError{Code: r.opts.Code, Reason: reason})
		return
	}

	r.mu.Lock()
	r.ingestProfile(ack.Profile)
	if !r.opts.ProfileLocked {
		if requested := gameProfileID(ack.Config); requested != "" {
			if id, err := profile.Resolve(requested, r.catalog, r.catalog.DefaultID()); err == nil {
				r.setActive(id, "session config")
			}
		}
	}
	r.state = StateActive
	active := r.activeID
	r.mu.Unlock()

	code := ack.Code
	if code == "" {
		code = r.opts.Code
	}
	r.logger.Info("joined session", "code", code, "profile", active)
}

func (r *Runtime) OnDisconnect(err error) {
	if r.shuttingDown.Load() {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == StateShuttingDown {
		return
	}
	r.state = StateDisconnected
	if rerr := r.pad.Reset(); rerr != nil {
		r.logger.Error("reset virtual device", "error", rerr)
	}
	r.logger.Info("disconnected, virtual device reset", "error", err)
}

func (r *Runtime) OnEvent(name string, args []json.RawMessage) {
	if r.shuttingDown.Load() {
		return
	}
	switch name {
	case EventInput:
		r.handleInput(args)
	case EventConfigUpdated:
		r.handleConfig(args)
	case EventClosed:
		r.logger.Info("session closed by host")
		r.Shutdown("session closed")
	default:
		r.logger.Debug("ignoring event", "event", name)
	}
}

func (r *Runtime) handleInput(args []json.RawMessage) {
	payload := decodeInput(args)

	r.mu.Lock()
	if r.state != StateActive {
		r.mu.Unlock()
		return
	}
	active, _ := r.catalog.Get(r.activeID)
	err := r.pad.Apply(input.Derive(payload, active.VirtualMap))
	r.mu.Unlock()

	if err != nil {
		r.logger.Error("apply input", "error", err)
		r.fail(fmt.Errorf("apply input: %w", err))
	}
}

func (r *Runtime) handleConfig(args []json.RawMessage) {
	if r.opts.ProfileLocked {
		return
	}
	var update configUpdate
	if !firstArg(args, &update) {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == StateShuttingDown {
		return
	}
	r.ingestProfile(update.Profile)
	requested := gameProfileID(update.Config)
	if requested == "" {
		return
	}
	id, ok := r.catalog.Lookup(requested)
	if !ok {
		r.logger.Debug("ignoring unknown profile", "profile", requested)
		return
	}
	r.setActive(id, "host update")
}

// ingestProfile stores a pushed profile. Callers hold mu.
func (r *Runtime) ingestProfile(raw json.RawMessage) {
	p, ok := profile.Decode(raw)
	if !ok {
		return
	}
	r.catalog.Put(p)
	r.logger.Debug("profile updated", "profile", p.ID, "buttons", len(p.VirtualMap))
}

// setActive switches the active profile. Callers hold mu.
func (r *Runtime) setActive(id, reason string) {
	if id == r.activeID {
		return
	}
	r.activeID = id
	r.logger.Info("profile switched", "profile", id, "reason", reason)
}

// fail records a fatal error and shuts down.
func (r *Runtime) fail(err error) {
	r.mu.Lock()
	if r.fatal == nil {
		r.fatal = err
	}
	r.mu.Unlock()
	r.Shutdown(err.Error())
}

func (r *Runtime) fatalError() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fatal
}
