package cmd_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aircontroller/padbridge/bridge"
	"github.com/aircontroller/padbridge/internal/cmd"
	"github.com/aircontroller/padbridge/internal/log"
	"github.com/aircontroller/padbridge/internal/socketio"
	"github.com/aircontroller/padbridge/profile"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate moves the test away from any real profiles.* or config files.
func isolate(t *testing.T) string {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	return dir
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestConfigInitBridge(t *testing.T) {
	dir := isolate(t)
	dest := filepath.Join(dir, "out", "bridge.json")
	require.NoError(t, (&cmd.ConfigInit{Kind: "bridge", Format: "json", Output: dest}).Run())

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	var tpl map[string]any
	require.NoError(t, json.Unmarshal(data, &tpl))

	assert.Equal(t, "http://localhost:3000", tpl["server"])
	assert.Equal(t, "xbox", tpl["device"])
	assert.Equal(t, false, tpl["dryRun"])
	transport, ok := tpl["transport"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "/socket.io/", transport["path"])
	viiper, ok := tpl["viiper"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "localhost:3242", viiper["addr"])
	assert.Equal(t, "3s", viiper["dialTimeout"])

	err = (&cmd.ConfigInit{Kind: "bridge", Format: "json", Output: dest}).Run()
	assert.ErrorContains(t, err, "destination exists")
	assert.NoError(t, (&cmd.ConfigInit{Kind: "bridge", Format: "toml", Output: dest, Force: true}).Run())
}

func TestConfigInitProfiles(t *testing.T) {
	for _, format := range []string{"json", "yaml", "toml"} {
		t.Run(format, func(t *testing.T) {
			isolate(t)
			require.NoError(t, (&cmd.ConfigInit{Kind: "profiles", Format: format}).Run())

			c, err := profile.Load("profiles." + format)
			require.NoError(t, err)
			assert.Equal(t, profile.Builtin().IDs(), c.IDs())
			assert.Equal(t, "platformer", c.DefaultID())
		})
	}
}

func TestProfilesList(t *testing.T) {
	isolate(t)
	var out bytes.Buffer
	l := &cmd.ProfilesList{}
	l.Out = &out
	require.NoError(t, l.Run())

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "# builtin", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "* platformer"), lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "  racing"), lines[2])
}

func TestProfilesResolve(t *testing.T) {
	dir := isolate(t)
	catalog := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(catalog, []byte(`
defaults:
  gameProfileId: fps
gameProfiles:
  - id: fps
    virtualMap:
      a: south
  - id: kart
    virtualMap:
      a: rt
`), 0o644))

	type testCase struct {
		id       string
		expected string
	}

	cases := []testCase{
		{id: "", expected: "fps"},
		{id: "KART", expected: "kart"},
		{id: "racing", expected: "fps (fallback for unknown \"racing\")"},
	}

	for _, tc := range cases {
		var out bytes.Buffer
		r := &cmd.ProfilesResolve{ID: tc.id}
		r.Profiles = catalog
		r.Out = &out
		require.NoError(t, r.Run())
		assert.Equal(t, tc.expected+"\n", out.String(), tc.id)
	}
}

// sessionServer accepts one Socket.IO client, acknowledges its join, sends
// one input and closes the session.
func sessionServer(t *testing.T, joined chan<- string) *httptest.Server {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		send := func(s string) { _ = conn.WriteMessage(websocket.TextMessage, []byte(s)) }

		send(`0{"sid":"e1","upgrades":[],"pingInterval":25000,"pingTimeout":20000}`)
		if _, msg, err := conn.ReadMessage(); err != nil || string(msg) != "40" {
			return
		}
		send(`40{"sid":"s1"}`)
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		joined <- string(msg)

		send(`430[{"ok":true,"code":"ABC123","config":{"gameProfileId":"racing"}}]`)
		send(`42["session:input",{"controllerId":"c1","at":1,"payload":{"buttons":{"a":true,"x":true}}}]`)
		send(`42["session:closed",{"reason":"host left"}]`)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestBridgeDryRunSession(t *testing.T) {
	isolate(t)
	joined := make(chan string, 1)
	srv := sessionServer(t, joined)

	logs := &lockedBuffer{}
	logger := slog.New(slog.NewTextHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	b := &cmd.Bridge{
		Server:    srv.URL,
		Code:      "abc-123",
		Device:    "xbox",
		Name:      "Den",
		DryRun:    true,
		Transport: socketio.DefaultConfig(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, b.Start(ctx, logger, log.NewRaw(nil)))

	join := <-joined
	assert.True(t, strings.HasPrefix(join, `420["`+bridge.EventJoinSession+`",`), join)
	assert.Contains(t, join, `"code":"ABC123"`)
	assert.Contains(t, join, `"name":"Den (XBOX)"`)

	out := logs.String()
	assert.Contains(t, out, "mode=dry-run")
	assert.Contains(t, out, `msg="profile switched"`)
	assert.Contains(t, out, "profile=racing")
	assert.Contains(t, out, `msg="dry-run trigger" side=rt value=1`)
	assert.Contains(t, out, "session closed by host")
	assert.Contains(t, out, "action=west")
	assert.NotContains(t, out, "action=south", "racing maps a to rt")
}

func TestBridgeNeedsSessionCode(t *testing.T) {
	isolate(t)
	b := &cmd.Bridge{Server: "http://localhost:3000", Device: "xbox", DryRun: true, Transport: socketio.DefaultConfig()}
	err := b.Start(context.Background(), slog.New(slog.DiscardHandler), log.NewRaw(nil))
	assert.ErrorContains(t, err, "session code is required")
}
