package socketio

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePacket(t *testing.T) {
	type testCase struct {
		name      string
		in        string
		expected  packet
		expectErr bool
	}

	cases := []testCase{
		{
			name:     "connect with sid",
			in:       `0{"sid":"abc"}`,
			expected: packet{Type: sioConnect, ID: noAck, Data: json.RawMessage(`{"sid":"abc"}`)},
		},
		{
			name:     "event",
			in:       `2["session:input",{"payload":{}}]`,
			expected: packet{Type: sioEvent, ID: noAck, Data: json.RawMessage(`["session:input",{"payload":{}}]`)},
		},
		{
			name:     "ack with id",
			in:       `312[{"ok":true}]`,
			expected: packet{Type: sioAck, ID: 12, Data: json.RawMessage(`[{"ok":true}]`)},
		},
		{
			name:     "namespaced event with id",
			in:       `2/admin,7["x"]`,
			expected: packet{Type: sioEvent, Namespace: "/admin", ID: 7, Data: json.RawMessage(`["x"]`)},
		},
		{
			name:     "disconnect",
			in:       `1`,
			expected: packet{Type: sioDisconnect, ID: noAck},
		},
		{
			name:     "binary event",
			in:       `51-["upload",{"_placeholder":true,"num":0}]`,
			expected: packet{Type: sioBinaryEvent, ID: noAck, Data: json.RawMessage(`["upload",{"_placeholder":true,"num":0}]`)},
		},
		{name: "empty", in: ``, expectErr: true},
		{name: "unknown type", in: `9[]`, expectErr: true},
		{name: "broken json", in: `2["x"`, expectErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := decodePacket(tc.in)
			if tc.expectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, p)
		})
	}
}

func TestEncodePacket(t *testing.T) {
	p, err := eventPacket(3, "bridge:join-session", map[string]string{"code": "ABC123"})
	require.NoError(t, err)
	assert.Equal(t, `423["bridge:join-session",{"code":"ABC123"}]`, p.encode())

	p, err = eventPacket(noAck, "ping")
	require.NoError(t, err)
	assert.Equal(t, `42["ping"]`, p.encode())

	ack := packet{Type: sioAck, Namespace: "/admin", ID: 5, Data: json.RawMessage(`[]`)}
	assert.Equal(t, `43/admin,5[]`, ack.encode())
}

func TestDecodeEvent(t *testing.T) {
	name, args, err := decodeEvent(json.RawMessage(`["session:config-updated",{"config":{"gameProfileId":"racing"}},2]`))
	require.NoError(t, err)
	assert.Equal(t, "session:config-updated", name)
	require.Len(t, args, 2)
	assert.JSONEq(t, `{"config":{"gameProfileId":"racing"}}`, string(args[0]))

	_, _, err = decodeEvent(json.RawMessage(`[]`))
	assert.Error(t, err)
	_, _, err = decodeEvent(json.RawMessage(`[5]`))
	assert.Error(t, err)
}

func TestConnectError(t *testing.T) {
	assert.Equal(t, "not authorized", connectError(json.RawMessage(`{"message":"not authorized"}`)))
	assert.Equal(t, "nope", connectError(json.RawMessage(`"nope"`)))
}
