// Package socketio is a Socket.IO v5 client over the Engine.IO v4 websocket
// transport. It supports the default namespace, JSON events and
// acknowledgements. Binary packets are ignored.
package socketio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/aircontroller/padbridge/internal/log"
)

var (
	// ErrConnectRefused is returned when the server rejects the namespace connect.
	ErrConnectRefused = errors.New("socket.io connect refused")
	// ErrClosed is returned by emits after Close.
	ErrClosed = errors.New("socket.io client closed")
	// ErrNotConnected is returned by emits while no session is established.
	ErrNotConnected = errors.New("socket.io client not connected")

	errServerClosed = errors.New("server closed the connection")
)

const writeTimeout = 5 * time.Second

// Handler receives session events. All methods are called from the read
// goroutine, so events are delivered one at a time in arrival order.
type Handler interface {
	// OnConnect is called once the namespace connect succeeded.
	OnConnect()
	// OnDisconnect is called when an established session ends.
	OnDisconnect(err error)
	// OnEvent is called for every event sent by the server.
	OnEvent(name string, args []json.RawMessage)
}

// AckFunc receives the arguments of an acknowledgement.
type AckFunc func(args []json.RawMessage)

// Config controls the transport. A zero ReconnectAttempts retries forever.
type Config struct {
	Path              string        `help:"Socket.IO endpoint path" default:"/socket.io/"`
	HandshakeTimeout  time.Duration `help:"Timeout for the websocket and Socket.IO handshakes" default:"10s"`
	ReconnectDelay    time.Duration `help:"Initial reconnect delay" default:"500ms"`
	ReconnectDelayMax time.Duration `help:"Maximum reconnect delay" default:"5s"`
	ReconnectAttempts int           `help:"Consecutive failed connection attempts before giving up (0 = unlimited)" default:"0"`
	PingTimeoutGrace  time.Duration `help:"Extra time allowed on top of the server ping interval and timeout" default:"5s"`
}

// DefaultConfig returns the values kong would fill in.
func DefaultConfig() Config {
	return Config{
		Path:              "/socket.io/",
		HandshakeTimeout:  10 * time.Second,
		ReconnectDelay:    500 * time.Millisecond,
		ReconnectDelayMax: 5 * time.Second,
		PingTimeoutGrace:  5 * time.Second,
	}
}

// Client is a reconnecting Socket.IO client.
type Client struct {
	endpoint string
	cfg      Config
	logger   *slog.Logger
	raw      log.RawLogger

	writeMu sync.Mutex

	mu     sync.Mutex
	conn   *websocket.Conn
	acks   map[int64]AckFunc
	nextID int64

	closed    chan struct{}
	closeOnce sync.Once
}

// New creates a client for the Socket.IO server at serverURL (http, https, ws or wss).
func New(serverURL string, cfg Config, logger *slog.Logger, raw log.RawLogger) (*Client, error) {
	def := DefaultConfig()
	if cfg.Path == "" {
		cfg.Path = def.Path
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = def.HandshakeTimeout
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = def.ReconnectDelay
	}
	if cfg.ReconnectDelayMax < cfg.ReconnectDelay {
		cfg.ReconnectDelayMax = cfg.ReconnectDelay
	}
	endpoint, err := EndpointURL(serverURL, cfg.Path)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	if raw == nil {
		raw = log.NewRaw(nil)
	}
	return &Client{
		endpoint: endpoint,
		cfg:      cfg,
		logger:   logger,
		raw:      raw,
		acks:     map[int64]AckFunc{},
		closed:   make(chan struct{}),
	}, nil
}

// EndpointURL maps a server URL to its Engine.IO websocket endpoint.
func EndpointURL(serverURL, path string) (string, error) {
	s := strings.TrimSpace(serverURL)
	if !strings.Contains(s, "://") {
		s = "http://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported server url scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("server url %q has no host", serverURL)
	}
	if path == "" {
		path = "/socket.io/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if !strings.HasSuffix(path, "/") {
		path += "/"
	}
	u.Path = path
	u.RawQuery = url.Values{"EIO": {"4"}, "transport": {"websocket"}}.Encode()
	u.Fragment = ""
	return u.String(), nil
}

// Endpoint returns the websocket URL the client dials.
func (c *Client) Endpoint() string { return c.endpoint }

// Run connects and keeps reconnecting until ctx is done, Close is called or
// ReconnectAttempts consecutive attempts failed. It returns nil after Close.
func (c *Client) Run(ctx context.Context, h Handler) error {
	delay := c.cfg.ReconnectDelay
	failures := 0
	for {
		if c.isClosed() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		connected, err := c.session(ctx, h)
		if c.isClosed() {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if connected {
			delay = c.cfg.ReconnectDelay
			failures = 0
		} else {
			failures++
			if c.cfg.ReconnectAttempts > 0 && failures >= c.cfg.ReconnectAttempts {
				return fmt.Errorf("giving up after %d attempts: %w", failures, err)
			}
		}

		wait := delay + rand.N(delay/2+1)
		c.logger.Warn("session transport down, reconnecting", "in", wait.Round(time.Millisecond), "error", err)

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-c.closed:
			timer.Stop()
			return nil
		}
		if !connected {
			delay = min(time.Duration(float64(delay)*1.7), c.cfg.ReconnectDelayMax)
		}
	}
}

// session runs one connection. connected reports whether the namespace
// connect succeeded, i.e. whether h saw OnConnect.
func (c *Client) session(ctx context.Context, h Handler) (connected bool, err error) {
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: c.cfg.HandshakeTimeout,
		NetDialContext: (&net.Dialer{
			Timeout:   c.cfg.HandshakeTimeout,
			KeepAlive: 15 * time.Second,
		}).DialContext,
	}
	conn, _, err := dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("dial %s: %w", c.endpoint, err)
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	conn.SetReadLimit(1 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(c.cfg.HandshakeTimeout))

	frame, err := c.read(conn)
	if err != nil {
		return false, fmt.Errorf("read open packet: %w", err)
	}
	if frame == "" || frame[0] != eioOpen {
		return false, fmt.Errorf("unexpected engine.io packet %q", frame)
	}
	var open openInfo
	if err := json.Unmarshal([]byte(frame[1:]), &open); err != nil {
		return false, fmt.Errorf("decode open packet: %w", err)
	}
	pingWait := time.Duration(open.PingInterval+open.PingTimeout)*time.Millisecond + c.cfg.PingTimeoutGrace

	if err := c.attach(conn); err != nil {
		return false, err
	}
	defer c.detach(conn)

	if err := c.write(conn, string([]byte{eioMessage, sioConnect})); err != nil {
		return false, err
	}

	// Wait for the namespace connect answer, still under the handshake deadline.
	for !connected {
		frame, err := c.read(conn)
		if err != nil {
			return false, fmt.Errorf("socket.io handshake: %w", err)
		}
		switch {
		case frame == "":
		case frame[0] == eioPing:
			if err := c.write(conn, string(eioPong)+frame[1:]); err != nil {
				return false, err
			}
		case frame[0] == eioMessage:
			p, err := decodePacket(frame[1:])
			if err != nil {
				return false, err
			}
			switch p.Type {
			case sioConnect:
				connected = true
			case sioConnectError:
				return false, fmt.Errorf("%w: %s", ErrConnectRefused, connectError(p.Data))
			}
		case frame[0] == eioClose:
			return false, errServerClosed
		}
	}

	c.logger.Debug("socket.io connected", "sid", open.SID, "pingInterval", open.PingInterval, "pingTimeout", open.PingTimeout)
	h.OnConnect()

	for {
		if pingWait > c.cfg.PingTimeoutGrace {
			_ = conn.SetReadDeadline(time.Now().Add(pingWait))
		} else {
			_ = conn.SetReadDeadline(time.Time{})
		}
		frame, err := c.read(conn)
		if err == nil {
			err = c.dispatch(conn, frame, h)
		}
		if err != nil {
			if c.isClosed() {
				err = nil
			}
			h.OnDisconnect(err)
			return true, err
		}
	}
}

func (c *Client) dispatch(conn *websocket.Conn, frame string, h Handler) error {
	if frame == "" {
		return nil
	}
	switch frame[0] {
	case eioPing:
		return c.write(conn, string(eioPong)+frame[1:])
	case eioClose:
		return errServerClosed
	case eioNoop, eioPong, eioUpgrade:
		return nil
	case eioMessage:
	default:
		c.logger.Debug("ignoring engine.io packet", "type", string(frame[0]))
		return nil
	}

	p, err := decodePacket(frame[1:])
	if err != nil {
		c.logger.Warn("dropping malformed socket.io packet", "error", err)
		return nil
	}

	switch p.Type {
	case sioEvent:
		name, args, err := decodeEvent(p.Data)
		if err != nil {
			c.logger.Warn("dropping malformed event", "error", err)
			return nil
		}
		if p.ID != noAck {
			ack := packet{Type: sioAck, Namespace: p.Namespace, ID: p.ID, Data: json.RawMessage("[]")}
			if err := c.write(conn, ack.encode()); err != nil {
				return err
			}
		}
		h.OnEvent(name, args)
	case sioAck:
		c.mu.Lock()
		fn, ok := c.acks[p.ID]
		delete(c.acks, p.ID)
		c.mu.Unlock()
		if !ok {
			c.logger.Debug("ack without pending emit", "id", p.ID)
			return nil
		}
		args, err := decodeArgs(p.Data)
		if err != nil {
			c.logger.Warn("dropping malformed ack", "id", p.ID, "error", err)
			args = nil
		}
		fn(args)
	case sioDisconnect:
		return errors.New("server disconnected the namespace")
	case sioConnectError:
		return fmt.Errorf("%w: %s", ErrConnectRefused, connectError(p.Data))
	case sioBinaryEvent, sioBinaryAck:
		c.logger.Warn("binary socket.io packets are not supported")
	}
	return nil
}

// Emit sends an event without acknowledgement.
func (c *Client) Emit(event string, args ...any) error {
	return c.emit(event, nil, args...)
}

// EmitWithAck sends an event with one payload and calls ack with the
// server's answer. ack runs on the read goroutine.
func (c *Client) EmitWithAck(event string, payload any, ack AckFunc) error {
	return c.emit(event, ack, payload)
}

func (c *Client) emit(event string, ack AckFunc, args ...any) error {
	if c.isClosed() {
		return ErrClosed
	}
	c.mu.Lock()
	conn := c.conn
	if conn == nil {
		c.mu.Unlock()
		return ErrNotConnected
	}
	id := noAck
	if ack != nil {
		id = c.nextID
		c.nextID++
		c.acks[id] = ack
	}
	c.mu.Unlock()

	p, err := eventPacket(id, event, args...)
	if err == nil {
		err = c.write(conn, p.encode())
	}
	if err != nil && ack != nil {
		c.mu.Lock()
		delete(c.acks, id)
		c.mu.Unlock()
	}
	return err
}

// Close disconnects from the namespace and stops reconnecting. It does not
// wait for Run to return.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()
		if conn == nil {
			return
		}
		err = c.write(conn, string([]byte{eioMessage, sioDisconnect}))
		if cerr := conn.Close(); err == nil && cerr != nil && !errors.Is(cerr, net.ErrClosed) {
			err = cerr
		}
	})
	return err
}

func (c *Client) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func (c *Client) attach(conn *websocket.Conn) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.isClosed() {
		return ErrClosed
	}
	c.conn = conn
	return nil
}

// detach forgets conn and drops acks that can no longer arrive.
func (c *Client) detach(conn *websocket.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == conn {
		c.conn = nil
	}
	clear(c.acks)
}

func (c *Client) read(conn *websocket.Conn) (string, error) {
	for {
		typ, data, err := conn.ReadMessage()
		if err != nil {
			return "", err
		}
		if typ != websocket.TextMessage {
			c.logger.Debug("ignoring binary websocket frame", "bytes", len(data))
			continue
		}
		c.raw.Log(false, data)
		return string(data), nil
	}
}

func (c *Client) write(conn *websocket.Conn, frame string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	c.raw.Log(true, []byte(frame))
	return nil
}
