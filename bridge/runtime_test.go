package bridge_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/aircontroller/padbridge/bridge"
	"github.com/aircontroller/padbridge/device"
	"github.com/aircontroller/padbridge/device/xbox360"
	padTesting "github.com/aircontroller/padbridge/internal/testing"
	"github.com/aircontroller/padbridge/pad"
	"github.com/aircontroller/padbridge/profile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	rt        *bridge.Runtime
	transport *padTesting.ScriptedTransport
	dev       *padTesting.RecordingBackend
	logs      *bytes.Buffer
	done      chan error
}

func testCatalog() *profile.Catalog {
	return profile.NewCatalog("platformer",
		profile.Profile{ID: "platformer", VirtualMap: map[string][]string{"a": {"south"}, "b": {"east"}}},
		profile.Profile{ID: "racing", VirtualMap: map[string][]string{"a": {"rt"}, "b": {"lt"}}},
	)
}

func start(t *testing.T, opts bridge.Options) *harness {
	t.Helper()
	h := &harness{
		transport: padTesting.NewScriptedTransport(),
		dev:       padTesting.NewRecordingBackend(),
		logs:      &bytes.Buffer{},
		done:      make(chan error, 1),
	}
	logger := slog.New(slog.NewTextHandler(&syncWriter{w: h.logs}, &slog.HandlerOptions{Level: slog.LevelDebug}))

	rt, err := bridge.New(h.transport, pad.NewXbox(h.dev), testCatalog(), opts, logger)
	require.NoError(t, err)
	h.rt = rt

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { h.done <- rt.Run(ctx) }()
	<-h.transport.Running()
	return h
}

// join connects and acknowledges the join with ack.
func (h *harness) join(t *testing.T, ack any) {
	t.Helper()
	h.transport.Connect()
	emits := h.transport.Emits()
	require.NotEmpty(t, emits)
	h.transport.Ack(len(emits)-1, ack)
}

func (h *harness) wait(t *testing.T) error {
	t.Helper()
	select {
	case err := <-h.done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("runtime did not stop")
		return nil
	}
}

func pressed(names ...string) map[string]any {
	buttons := map[string]any{}
	for _, n := range names {
		buttons[n] = true
	}
	return map[string]any{"controllerId": "c1", "at": 1, "payload": map[string]any{"buttons": buttons}}
}

func TestJoinSendsCodeAndName(t *testing.T) {
	h := start(t, bridge.Options{Code: "ABC123", Name: "Den PC (XBOX)"})
	h.transport.Connect()

	emits := h.transport.Emits()
	require.Len(t, emits, 1)
	assert.Equal(t, bridge.EventJoinSession, emits[0].Event)
	assert.Equal(t, bridge.JoinRequest{Code: "ABC123", Name: "Den PC (XBOX)"}, emits[0].Payload)
	assert.Equal(t, bridge.StateJoining, h.rt.State())

	h.transport.Ack(0, map[string]any{"ok": true, "code": "ABC123"})
	assert.Equal(t, bridge.StateActive, h.rt.State())
	assert.Equal(t, "platformer", h.rt.ActiveProfileID())
}

func TestJoinRejected(t *testing.T) {
	type testCase struct {
		name   string
		ack    any
		reason string
	}

	cases := []testCase{
		{name: "with reason", ack: map[string]any{"ok": false, "error": "session not found"}, reason: "session not found"},
		{name: "without reason", ack: map[string]any{"ok": false}, reason: "unknown"},
		{name: "not an object", ack: `"nope"`, reason: "unknown"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := start(t, bridge.Options{Code: "ZZZZZZ"})
			h.join(t, tc.ack)

			err := h.wait(t)
			require.ErrorIs(t, err, bridge.ErrJoinRejected)
			var joinErr *bridge.JoinError
			require.ErrorAs(t, err, &joinErr)
			assert.Equal(t, tc.reason, joinErr.Reason)
			assert.Equal(t, 1, h.transport.Closes())
			assert.Contains(t, h.logs.String(), "join failed")
		})
	}
}

func TestJoinAdoptsSessionProfile(t *testing.T) {
	type testCase struct {
		name     string
		opts     bridge.Options
		ack      map[string]any
		expected string
	}

	cases := []testCase{
		{
			name:     "session config switches profile",
			ack:      map[string]any{"ok": true, "config": map[string]any{"gameProfileId": "racing"}},
			expected: "racing",
		},
		{
			name:     "unknown id falls back to default",
			opts:     bridge.Options{ProfileID: "racing"},
			ack:      map[string]any{"ok": true, "config": map[string]any{"gameProfileId": "missing"}},
			expected: "platformer",
		},
		{
			name:     "locked profile is kept",
			opts:     bridge.Options{ProfileID: "racing", ProfileLocked: true},
			ack:      map[string]any{"ok": true, "config": map[string]any{"gameProfileId": "platformer"}},
			expected: "racing",
		},
		{
			name:     "empty id keeps startup profile",
			opts:     bridge.Options{ProfileID: "racing"},
			ack:      map[string]any{"ok": true, "config": map[string]any{"gameProfileId": ""}},
			expected: "racing",
		},
		{
			name: "pushed profile becomes available",
			ack: map[string]any{
				"ok":      true,
				"config":  map[string]any{"gameProfileId": "custom"},
				"profile": map[string]any{"id": "custom", "virtualMap": map[string]any{"a": "north"}},
			},
			expected: "custom",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := start(t, tc.opts)
			h.join(t, tc.ack)
			assert.Equal(t, tc.expected, h.rt.ActiveProfileID())
		})
	}
}

func TestInputUsesActiveProfile(t *testing.T) {
	h := start(t, bridge.Options{})
	h.join(t, map[string]any{"ok": true})

	h.transport.Event(bridge.EventInput, pressed("a"))
	assert.Equal(t, map[device.Button]bool{xbox360.ButtonA: true}, h.dev.Committed().Buttons)

	h.transport.Event(bridge.EventConfigUpdated, map[string]any{"config": map[string]any{"gameProfileId": "racing"}})
	assert.Equal(t, "racing", h.rt.ActiveProfileID())
	assert.Contains(t, h.logs.String(), "reason=\"host update\"")

	h.transport.Event(bridge.EventInput, pressed("a"))
	st := h.dev.Committed()
	assert.Empty(t, st.Buttons)
	assert.Equal(t, [2]float64{0, 1}, st.Triggers)
}

func TestInputBeforeJoinIsDropped(t *testing.T) {
	h := start(t, bridge.Options{})
	h.transport.Event(bridge.EventInput, pressed("a"))
	assert.Empty(t, h.dev.Calls())
}

func TestMalformedInputIsNeutral(t *testing.T) {
	h := start(t, bridge.Options{})
	h.join(t, map[string]any{"ok": true})

	h.transport.Event(bridge.EventInput, pressed("a"))
	require.False(t, h.dev.Committed().Neutral())

	h.transport.Event(bridge.EventInput, `[1,2,3]`)
	assert.True(t, h.dev.Committed().Neutral())
}

func TestConfigUpdate(t *testing.T) {
	type testCase struct {
		name     string
		opts     bridge.Options
		update   any
		expected string
	}

	cases := []testCase{
		{
			name:     "unknown id is ignored",
			update:   map[string]any{"config": map[string]any{"gameProfileId": "missing"}},
			expected: "platformer",
		},
		{
			name:     "case-insensitive id",
			update:   map[string]any{"config": map[string]any{"gameProfileId": " RACING "}},
			expected: "racing",
		},
		{
			name:     "locked ignores updates",
			opts:     bridge.Options{ProfileLocked: true},
			update:   map[string]any{"config": map[string]any{"gameProfileId": "racing"}},
			expected: "platformer",
		},
		{
			name:     "non-string id is ignored",
			update:   map[string]any{"config": map[string]any{"gameProfileId": 7}},
			expected: "platformer",
		},
		{
			name:     "malformed update is ignored",
			update:   `"racing"`,
			expected: "platformer",
		},
		{
			name: "pushed profile then switch",
			update: map[string]any{
				"config":  map[string]any{"gameProfileId": "arena"},
				"profile": map[string]any{"id": "arena", "virtualMap": map[string]any{"a": []any{"rt", "rb"}}},
			},
			expected: "arena",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := start(t, tc.opts)
			h.join(t, map[string]any{"ok": true})
			h.transport.Event(bridge.EventConfigUpdated, tc.update)
			assert.Equal(t, tc.expected, h.rt.ActiveProfileID())
		})
	}
}

func TestPushedProfileReplacesMapping(t *testing.T) {
	h := start(t, bridge.Options{})
	h.join(t, map[string]any{"ok": true})

	h.transport.Event(bridge.EventConfigUpdated, map[string]any{
		"profile": map[string]any{"id": "platformer", "virtualMap": map[string]any{"b": "north"}},
	})
	h.transport.Event(bridge.EventInput, pressed("a", "b"))
	assert.Equal(t, map[device.Button]bool{xbox360.ButtonY: true}, h.dev.Committed().Buttons)
}

func TestDisconnectResetsDevice(t *testing.T) {
	h := start(t, bridge.Options{})
	h.join(t, map[string]any{"ok": true})
	h.transport.Event(bridge.EventInput, pressed("a", "up"))
	require.False(t, h.dev.Committed().Neutral())

	h.transport.Disconnect(errors.New("read: connection reset"))
	assert.Equal(t, bridge.StateDisconnected, h.rt.State())
	assert.True(t, h.dev.Committed().Neutral())

	h.transport.Event(bridge.EventInput, pressed("a"))
	assert.True(t, h.dev.Committed().Neutral(), "input is dropped until the session is rejoined")

	h.join(t, map[string]any{"ok": true})
	assert.Len(t, h.transport.Emits(), 2, "reconnect rejoins")
	h.transport.Event(bridge.EventInput, pressed("a"))
	assert.Equal(t, map[device.Button]bool{xbox360.ButtonA: true}, h.dev.Committed().Buttons)
}

func TestSessionClosed(t *testing.T) {
	h := start(t, bridge.Options{})
	h.join(t, map[string]any{"ok": true})
	h.transport.Event(bridge.EventInput, pressed("a"))

	h.transport.Event(bridge.EventClosed, map[string]any{"reason": "host left"})
	require.NoError(t, h.wait(t))
	assert.Equal(t, bridge.StateShuttingDown, h.rt.State())
	assert.True(t, h.dev.Committed().Neutral())

	h.dev.ClearCalls()
	h.transport.Event(bridge.EventInput, pressed("a"))
	assert.Empty(t, h.dev.Calls(), "events after shutdown are dropped")
}

func TestContextCancelShutsDown(t *testing.T) {
	transport := padTesting.NewScriptedTransport()
	dev := padTesting.NewRecordingBackend()
	rt, err := bridge.New(transport, pad.NewXbox(dev), testCatalog(), bridge.Options{}, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- rt.Run(ctx) }()
	<-transport.Running()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("runtime did not stop")
	}
	assert.Equal(t, 1, transport.Closes())
	assert.NotEmpty(t, dev.CallsOf(padTesting.OpReset))
}

func TestApplyFailureIsFatal(t *testing.T) {
	h := start(t, bridge.Options{})
	h.join(t, map[string]any{"ok": true})

	h.dev.FailCommit = true
	h.transport.Event(bridge.EventInput, pressed("a"))
	err := h.wait(t)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "apply input")
}

func TestShutdownIsIdempotentUnderLoad(t *testing.T) {
	h := start(t, bridge.Options{})
	h.join(t, map[string]any{"ok": true})

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range 50 {
				if (i+j)%2 == 0 {
					h.transport.Event(bridge.EventInput, pressed("a"))
				} else {
					h.transport.Event(bridge.EventInput, pressed("b"))
				}
			}
		}()
	}
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.rt.Shutdown("test")
		}()
	}
	wg.Wait()

	require.NoError(t, h.wait(t))
	assert.Equal(t, 1, h.transport.Closes())
	assert.True(t, h.dev.Committed().Neutral(), "nothing is applied after the shutdown reset")
}

func TestNewWithoutProfiles(t *testing.T) {
	_, err := bridge.New(padTesting.NewScriptedTransport(), pad.NewDryRun(nil), profile.NewCatalog(""), bridge.Options{}, nil)
	assert.ErrorIs(t, err, profile.ErrNoProfilesAvailable)
}

type syncWriter struct {
	mu sync.Mutex
	w  *bytes.Buffer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
