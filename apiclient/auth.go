package apiclient

import (
	"bufio"
	"bytes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/pbkdf2"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"

	"github.com/aircontroller/padbridge/apitypes"
	"golang.org/x/crypto/chacha20poly1305"
)

// Password handshake constants shared with the VIIPER server.
const (
	handshakeMagic   = "eVI1\x00"
	handshakeOK      = "OK\x00"
	nonceSize        = 32
	keySalt          = "VIIPER-Key-v1"
	keyIterations    = 100000
	authContext      = "VIIPER-Auth-v1"
	sessionContext   = "VIIPER-Session-v1"
	sealedNonceSize  = chacha20poly1305.NonceSize
	maxSealedPayload = 2 * 1024 * 1024
)

var errEmptyPassword = errors.New("password cannot be empty")

// deriveKey stretches a password to the 32 byte pre-shared key.
func deriveKey(password string) ([]byte, error) {
	if password == "" {
		return nil, errEmptyPassword
	}
	return pbkdf2.Key(sha256.New, password, []byte(keySalt), keyIterations, chacha20poly1305.KeySize)
}

func sessionKey(key, serverNonce, clientNonce []byte) []byte {
	h := sha256.New()
	h.Write(key)
	h.Write(serverNonce)
	h.Write(clientNonce)
	h.Write([]byte(sessionContext))
	return h.Sum(nil)
}

// handshake proves knowledge of key and returns both nonces.
// Sends magic + client nonce + HMAC(key, context + client nonce); expects
// "OK\0" + server nonce or a problem+json body.
func handshake(r *bufio.Reader, w io.Writer, key []byte) (clientNonce, serverNonce []byte, err error) {
	clientNonce = make([]byte, nonceSize)
	if _, err := rand.Read(clientNonce); err != nil {
		return nil, nil, fmt.Errorf("generate client nonce: %w", err)
	}

	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(authContext))
	mac.Write(clientNonce)

	msg := make([]byte, 0, len(handshakeMagic)+nonceSize+sha256.Size)
	msg = append(msg, handshakeMagic...)
	msg = append(msg, clientNonce...)
	msg = mac.Sum(msg)
	if _, err := w.Write(msg); err != nil {
		return nil, nil, fmt.Errorf("write handshake: %w", err)
	}

	prefix := make([]byte, len(handshakeOK))
	if _, err := io.ReadFull(r, prefix); err != nil {
		if errors.Is(err, io.EOF) {
			// the server drops the connection on a wrong password
			return nil, nil, apitypes.Unauthorized("invalid password")
		}
		return nil, nil, fmt.Errorf("read handshake response: %w", err)
	}
	if string(prefix) != handshakeOK {
		rest, _ := io.ReadAll(r)
		line := strings.TrimSuffix(string(append(prefix, rest...)), "\n")
		var problem apitypes.ApiError
		if json.Unmarshal([]byte(line), &problem) == nil && problem.Problem() {
			return nil, nil, &problem
		}
		return nil, nil, fmt.Errorf("invalid handshake response from server: %q", line)
	}

	serverNonce = make([]byte, nonceSize)
	if _, err := io.ReadFull(r, serverNonce); err != nil {
		return nil, nil, fmt.Errorf("read server nonce: %w", err)
	}
	return clientNonce, serverNonce, nil
}

// sealedConn frames every write as 4 byte length + nonce + ciphertext.
// Nonces are a big-endian counter in the last 8 bytes.
type sealedConn struct {
	net.Conn
	r    io.Reader
	aead cipher.AEAD

	writeMu sync.Mutex
	sendCtr uint64

	readMu sync.Mutex
	plain  bytes.Buffer
}

func seal(conn net.Conn, r io.Reader, key []byte) (net.Conn, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	return &sealedConn{Conn: conn, r: r, aead: aead}, nil
}

func (c *sealedConn) Write(p []byte) (int, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	frame := make([]byte, 4+sealedNonceSize, 4+sealedNonceSize+len(p)+c.aead.Overhead())
	nonce := frame[4 : 4+sealedNonceSize]
	binary.BigEndian.PutUint64(nonce[4:], c.sendCtr)
	c.sendCtr++
	frame = c.aead.Seal(frame, nonce, p, nil)
	binary.BigEndian.PutUint32(frame[:4], uint32(len(frame)-4))

	if _, err := c.Conn.Write(frame); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (c *sealedConn) Read(p []byte) (int, error) {
	c.readMu.Lock()
	defer c.readMu.Unlock()

	if c.plain.Len() == 0 {
		var hdr [4]byte
		if _, err := io.ReadFull(c.r, hdr[:]); err != nil {
			return 0, err
		}
		n := binary.BigEndian.Uint32(hdr[:])
		if n < sealedNonceSize || n > maxSealedPayload {
			return 0, fmt.Errorf("sealed frame of %d bytes", n)
		}
		pkt := make([]byte, n)
		if _, err := io.ReadFull(c.r, pkt); err != nil {
			return 0, err
		}
		pt, err := c.aead.Open(nil, pkt[:sealedNonceSize], pkt[sealedNonceSize:], nil)
		if err != nil {
			return 0, fmt.Errorf("open sealed frame: %w", err)
		}
		c.plain.Write(pt)
	}
	return c.plain.Read(p)
}
