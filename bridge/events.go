package bridge

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/aircontroller/padbridge/input"
)

// Session server event names.
const (
	EventJoinSession   = "bridge:join-session"
	EventInput         = "session:input"
	EventConfigUpdated = "session:config-updated"
	EventClosed        = "session:closed"
)

// ErrJoinRejected matches every *JoinError.
var ErrJoinRejected = errors.New("join rejected")

// JoinError is returned by Runtime.Run when the server refused the join.
type JoinError struct {
	Code   string
	Reason string
}

func (e *JoinError) Error() string {
	return "join session " + e.Code + " rejected: " + e.Reason
}

func (e *JoinError) Unwrap() error { return ErrJoinRejected }

// JoinRequest is the payload of the join event.
type JoinRequest struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// joinAck is the server's answer to a join request.
type joinAck struct {
	OK      bool            `json:"ok"`
	Error   string          `json:"error"`
	Code    string          `json:"code"`
	Config  json.RawMessage `json:"config"`
	Profile json.RawMessage `json:"profile"`
}

// configUpdate is the payload of session:config-updated.
type configUpdate struct {
	Config  json.RawMessage `json:"config"`
	Profile json.RawMessage `json:"profile"`
}

// inputEvent is the payload of session:input.
type inputEvent struct {
	ControllerID string          `json:"controllerId"`
	At           json.RawMessage `json:"at"`
	Payload      map[string]any  `json:"payload"`
}

// firstArg decodes the first event argument into v and reports success.
func firstArg(args []json.RawMessage, v any) bool {
	if len(args) == 0 {
		return false
	}
	return json.Unmarshal(args[0], v) == nil
}

// gameProfileID reads config.gameProfileId, tolerating any other shape.
func gameProfileID(config json.RawMessage) string {
	var c struct {
		GameProfileID any `json:"gameProfileId"`
	}
	if len(config) == 0 || json.Unmarshal(config, &c) != nil {
		return ""
	}
	s, _ := c.GameProfileID.(string)
	return strings.TrimSpace(s)
}

// decodeInput never fails; anything unreadable is a neutral payload.
func decodeInput(args []json.RawMessage) input.Payload {
	var ev inputEvent
	if !firstArg(args, &ev) {
		return input.PayloadFromMap(nil)
	}
	return input.PayloadFromMap(ev.Payload)
}

// NormalizeCode upper-cases a session code and keeps at most six letters or digits.
func NormalizeCode(raw string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(strings.TrimSpace(raw)) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			if b.Len() == 6 {
				break
			}
		}
	}
	return b.String()
}

// MaxNameLength is the longest bridge name the session server keeps.
const MaxNameLength = 40

// DisplayName builds "<name> (<LABEL>)" cut to MaxNameLength runes.
func DisplayName(name, label string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "Virtual Gamepad Bridge"
	}
	full := []rune(name + " (" + label + ")")
	if len(full) > MaxNameLength {
		full = full[:MaxNameLength]
	}
	return string(full)
}
