package socketio

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Engine.IO v4 packet types.
const (
	eioOpen    = '0'
	eioClose   = '1'
	eioPing    = '2'
	eioPong    = '3'
	eioMessage = '4'
	eioUpgrade = '5'
	eioNoop    = '6'
)

// Socket.IO v5 packet types, carried inside an Engine.IO message.
const (
	sioConnect      = '0'
	sioDisconnect   = '1'
	sioEvent        = '2'
	sioAck          = '3'
	sioConnectError = '4'
	sioBinaryEvent  = '5'
	sioBinaryAck    = '6'
)

const noAck int64 = -1

// openInfo is the payload of the Engine.IO open packet. Durations are in milliseconds.
type openInfo struct {
	SID          string   `json:"sid"`
	Upgrades     []string `json:"upgrades"`
	PingInterval int      `json:"pingInterval"`
	PingTimeout  int      `json:"pingTimeout"`
	MaxPayload   int      `json:"maxPayload"`
}

// packet is a decoded Socket.IO packet.
type packet struct {
	Type      byte
	Namespace string
	ID        int64
	Data      json.RawMessage
}

func (p packet) encode() string {
	var b strings.Builder
	b.WriteByte(eioMessage)
	b.WriteByte(p.Type)
	if p.Namespace != "" && p.Namespace != "/" {
		b.WriteString(p.Namespace)
		b.WriteByte(',')
	}
	if p.ID >= 0 {
		b.WriteString(strconv.FormatInt(p.ID, 10))
	}
	b.Write(p.Data)
	return b.String()
}

// decodePacket parses the Socket.IO part of an Engine.IO message, i.e. the
// frame without its leading '4'.
func decodePacket(s string) (packet, error) {
	p := packet{ID: noAck}
	if s == "" {
		return p, errors.New("empty socket.io packet")
	}
	p.Type = s[0]
	if p.Type < sioConnect || p.Type > sioBinaryAck {
		return p, fmt.Errorf("unknown socket.io packet type %q", p.Type)
	}
	rest := s[1:]

	if p.Type == sioBinaryEvent || p.Type == sioBinaryAck {
		// attachment count
		i := strings.IndexByte(rest, '-')
		if i < 0 {
			return p, errors.New("malformed binary packet")
		}
		rest = rest[i+1:]
	}

	if strings.HasPrefix(rest, "/") {
		i := strings.IndexByte(rest, ',')
		if i < 0 {
			p.Namespace = rest
			return p, nil
		}
		p.Namespace, rest = rest[:i], rest[i+1:]
	}

	digits := 0
	for digits < len(rest) && rest[digits] >= '0' && rest[digits] <= '9' {
		digits++
	}
	if digits > 0 {
		id, err := strconv.ParseInt(rest[:digits], 10, 64)
		if err != nil {
			return p, fmt.Errorf("ack id: %w", err)
		}
		p.ID = id
		rest = rest[digits:]
	}

	if rest != "" {
		if !json.Valid([]byte(rest)) {
			return p, errors.New("invalid packet data")
		}
		p.Data = json.RawMessage(rest)
	}
	return p, nil
}

// eventPacket builds an event packet with the given ack id (or noAck).
func eventPacket(id int64, name string, args ...any) (packet, error) {
	items := make([]any, 0, len(args)+1)
	items = append(items, name)
	items = append(items, args...)
	data, err := json.Marshal(items)
	if err != nil {
		return packet{}, fmt.Errorf("encode %s event: %w", name, err)
	}
	return packet{Type: sioEvent, ID: id, Data: data}, nil
}

// decodeEvent splits event data into its name and arguments.
func decodeEvent(data json.RawMessage) (string, []json.RawMessage, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return "", nil, fmt.Errorf("decode event: %w", err)
	}
	if len(items) == 0 {
		return "", nil, errors.New("event without name")
	}
	var name string
	if err := json.Unmarshal(items[0], &name); err != nil {
		return "", nil, fmt.Errorf("event name: %w", err)
	}
	return name, items[1:], nil
}

// decodeArgs splits ack data into its arguments.
func decodeArgs(data json.RawMessage) ([]json.RawMessage, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode ack: %w", err)
	}
	return items, nil
}

// connectError reads the message of a connect error packet.
func connectError(data json.RawMessage) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil && s != "" {
		return s
	}
	return string(data)
}
