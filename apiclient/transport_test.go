package apiclient_test

import (
	"bufio"
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/aircontroller/padbridge/apiclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startServer accepts one connection, captures the request up to and
// including the NUL terminator and answers with response.
func startServer(t *testing.T, response string) (addr string, got <-chan string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	ch := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		line, _ := bufio.NewReader(conn).ReadString(0)
		ch <- line
		_, _ = io.WriteString(conn, response)
	}()
	return ln.Addr().String(), ch
}

func TestTransportRequestFraming(t *testing.T) {
	type payload struct {
		A int    `json:"a"`
		B string `json:"b"`
	}
	type testCase struct {
		name     string
		path     string
		payload  any
		params   map[string]string
		expected string
	}

	cases := []testCase{
		{name: "no payload", path: "bus/list", expected: "bus/list\x00"},
		{name: "string payload", path: "bus/create", payload: "5", expected: "bus/create 5\x00"},
		{name: "bytes keep newlines", path: "bus/create", payload: []byte("a\nb"), expected: "bus/create a\nb\x00"},
		{name: "json payload", path: "bus/{id}/add", payload: payload{A: 1, B: "x"}, params: map[string]string{"id": "3"}, expected: "bus/3/add {\"a\":1,\"b\":\"x\"}\x00"},
		{name: "path is lower-cased", path: "BUS/List", expected: "bus/list\x00"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			addr, got := startServer(t, "{\"ok\":true}\n")
			resp, err := apiclient.NewTransport(addr, nil).Do(context.Background(), tc.path, tc.payload, tc.params)
			require.NoError(t, err)
			assert.Equal(t, `{"ok":true}`, resp)
			assert.Equal(t, tc.expected, <-got)
		})
	}
}

func TestTransportKeepsEmbeddedNewlines(t *testing.T) {
	addr, _ := startServer(t, "{\n\"buses\":[1]\n}\n")
	resp, err := apiclient.NewTransport(addr, nil).Do(context.Background(), "bus/list", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "{\n\"buses\":[1]\n}", resp)
}

func TestTransportDialError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	cfg := apiclient.DefaultConfig()
	cfg.DialTimeout = 200 * time.Millisecond
	_, err = apiclient.NewTransport(addr, &cfg).Do(context.Background(), "ping", nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dial:")
}
