package apiclient

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/url"
	"strings"
	"sync"
	"time"
)

// Config controls dialing, timeouts and authentication.
type Config struct {
	DialTimeout  time.Duration `help:"Timeout for connecting to the VIIPER API" default:"3s"`
	ReadTimeout  time.Duration `help:"Timeout for reading an API response" default:"5s"`
	WriteTimeout time.Duration `help:"Timeout for writing an API request" default:"5s"`
	Password     string        `help:"VIIPER API password; empty when the server runs without one" env:"VIIPER_PASSWORD"`
}

// DefaultConfig mirrors the kong defaults above.
func DefaultConfig() Config {
	return Config{
		DialTimeout:  3 * time.Second,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
}

// Responder answers requests of a mock transport.
type Responder func(path string, payload any, pathParams map[string]string) (string, error)

// Transport speaks the VIIPER management protocol.
// Request: `<path>[ SP <payload>]\0`. Response: one JSON document followed by
// `\n`, after which the server closes the connection.
type Transport struct {
	addr string
	cfg  Config
	mock Responder

	keyOnce sync.Once
	key     []byte
	keyErr  error
}

// NewTransport creates a transport for addr (host:port). A nil cfg uses DefaultConfig.
func NewTransport(addr string, cfg *Config) *Transport {
	c := DefaultConfig()
	if cfg != nil {
		c = *cfg
	}
	return &Transport{addr: addr, cfg: c}
}

// NewMockTransport returns canned responses without networking. Streams
// cannot be opened on it.
func NewMockTransport(responder Responder) *Transport {
	return &Transport{addr: "mock", cfg: DefaultConfig(), mock: responder}
}

// Addr returns the server address.
func (t *Transport) Addr() string { return t.addr }

// Do sends one request and returns the response without its trailing newline.
// Payloads: []byte and string are sent as-is, nil sends none, anything else is JSON.
func (t *Transport) Do(ctx context.Context, path string, payload any, pathParams map[string]string) (string, error) {
	if t.mock != nil {
		return t.mock(path, payload, pathParams)
	}

	line := fillPath(path, pathParams)
	body, err := payloadBytes(payload)
	if err != nil {
		return "", err
	}
	req := []byte(line)
	if len(body) > 0 {
		req = append(append(req, ' '), body...)
	}
	req = append(req, 0)

	conn, err := t.dial(ctx)
	if err != nil {
		return "", err
	}
	defer conn.Close()

	if t.cfg.WriteTimeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(t.cfg.WriteTimeout))
	}
	if _, err := conn.Write(req); err != nil {
		return "", fmt.Errorf("write: %w", err)
	}
	if t.cfg.ReadTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(t.cfg.ReadTimeout))
	}
	resp, err := io.ReadAll(conn)
	if err != nil && len(resp) == 0 {
		return "", fmt.Errorf("read: %w", err)
	}
	return strings.TrimSuffix(string(resp), "\n"), nil
}

// dial connects and, when a password is configured, authenticates and seals the connection.
func (t *Transport) dial(ctx context.Context) (net.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	d := &net.Dialer{Timeout: t.cfg.DialTimeout}
	conn, err := d.DialContext(ctx, "tcp", t.addr)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	if tcp, ok := conn.(*net.TCPConn); ok {
		if err := tcp.SetNoDelay(true); err != nil {
			slog.Warn("failed to set TCP_NODELAY", "error", err)
		}
	}
	if t.cfg.Password == "" {
		return conn, nil
	}

	sealed, err := t.authenticate(conn)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return sealed, nil
}

func (t *Transport) authenticate(conn net.Conn) (net.Conn, error) {
	t.keyOnce.Do(func() { t.key, t.keyErr = deriveKey(t.cfg.Password) })
	if t.keyErr != nil {
		return nil, t.keyErr
	}
	if t.cfg.ReadTimeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(t.cfg.ReadTimeout))
		defer conn.SetDeadline(time.Time{})
	}
	r := bufio.NewReader(conn)
	clientNonce, serverNonce, err := handshake(r, conn, t.key)
	if err != nil {
		return nil, err
	}
	return seal(conn, r, sessionKey(t.key, serverNonce, clientNonce))
}

func fillPath(pattern string, params map[string]string) string {
	out := pattern
	for k, v := range params {
		out = strings.ReplaceAll(out, "{"+k+"}", url.PathEscape(v))
	}
	return strings.ToLower(out)
}

func payloadBytes(v any) ([]byte, error) {
	switch p := v.(type) {
	case nil:
		return nil, nil
	case []byte:
		return p, nil
	case string:
		return []byte(p), nil
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("marshal payload: %w", err)
		}
		return b, nil
	}
}
