package websocket

import (
	"bufio"
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clientFrame encodes a frame the way browsers send them: masked.
func clientFrame(opCode byte, fin bool, payload []byte) []byte {
	mask := []byte{0x11, 0x22, 0x33, 0x44}

	var buf bytes.Buffer
	first := opCode
	if fin {
		first |= 0x80
	}
	buf.WriteByte(first)

	switch {
	case len(payload) < 126:
		buf.WriteByte(0x80 | byte(len(payload)))
	default:
		buf.WriteByte(0x80 | 126)
		buf.WriteByte(byte(len(payload) >> 8))
		buf.WriteByte(byte(len(payload)))
	}

	buf.Write(mask)
	for i, b := range payload {
		buf.WriteByte(b ^ mask[i%4])
	}

	return buf.Bytes()
}

func newTestConnection(input []byte) (*connection, *bytes.Buffer) {
	var output bytes.Buffer
	bufrw := bufio.NewReadWriter(bufio.NewReader(bytes.NewReader(input)), bufio.NewWriter(&output))

	return &connection{sessionID: "s1", bufrw: bufrw}, &output
}

func TestConnection_ReadMessage(t *testing.T) {
	t.Run("Unmasks a client text frame", func(t *testing.T) {
		// Given: a masked text frame
		conn, _ := newTestConnection(clientFrame(opText, true, []byte(`{"action":"connect"}`)))

		// When: reading a message
		message, err := conn.readMessage()

		// Then: the plain payload is returned
		require.NoError(t, err)
		assert.JSONEq(t, `{"action":"connect"}`, string(message))
	})

	t.Run("Reads extended payload length", func(t *testing.T) {
		payload := []byte(strings.Repeat("a", 300))
		conn, _ := newTestConnection(clientFrame(opText, true, payload))

		message, err := conn.readMessage()

		require.NoError(t, err)
		assert.Equal(t, payload, message)
	})

	t.Run("Joins fragmented messages", func(t *testing.T) {
		input := append(clientFrame(opText, false, []byte(`{"action":`)), clientFrame(opContinuation, true, []byte(`"game:new"}`))...)
		conn, _ := newTestConnection(input)

		message, err := conn.readMessage()

		require.NoError(t, err)
		assert.JSONEq(t, `{"action":"game:new"}`, string(message))
	})

	t.Run("Answers ping with pong", func(t *testing.T) {
		// Given: a ping followed by a text frame
		input := append(clientFrame(opPing, true, []byte("hi")), clientFrame(opText, true, []byte("{}"))...)
		conn, output := newTestConnection(input)

		// When: reading a message
		message, err := conn.readMessage()

		// Then: the text frame is returned and a pong was written
		require.NoError(t, err)
		assert.Equal(t, "{}", string(message))

		pong, err := readFrame(bufio.NewReader(output))
		require.NoError(t, err)
		assert.Equal(t, opPong, pong.opCode)
		assert.Equal(t, "hi", string(pong.payload))
	})

	t.Run("Close frame ends the connection", func(t *testing.T) {
		conn, output := newTestConnection(clientFrame(opClose, true, nil))

		_, err := conn.readMessage()

		require.ErrorIs(t, err, ErrConnectionClosed)
		reply, err := readFrame(bufio.NewReader(output))
		require.NoError(t, err)
		assert.Equal(t, opClose, reply.opCode)
	})

	t.Run("Rejects oversized frames", func(t *testing.T) {
		header := []byte{0x81, 0x80 | 127, 0, 0, 0, 0, 0x10, 0, 0, 0}
		conn, _ := newTestConnection(header)

		_, err := conn.readMessage()

		require.ErrorIs(t, err, ErrFrameTooLarge)
	})

	t.Run("Truncated input fails", func(t *testing.T) {
		conn, _ := newTestConnection([]byte{0x81})

		_, err := conn.readMessage()

		require.Error(t, err)
	})
}

func TestConnection_ReadMessage_ProtocolErrors(t *testing.T) {
	withRSV := clientFrame(opText, true, []byte("{}"))
	withRSV[0] |= 0x40

	tests := []struct {
		name  string
		input []byte
	}{
		{
			name:  "Unmasked frame",
			input: []byte{0x81, 0x02, '{', '}'},
		},
		{
			name:  "Reserved bits set",
			input: withRSV,
		},
		{
			name:  "Continuation without a message",
			input: clientFrame(opContinuation, true, []byte("{}")),
		},
		{
			name:  "New message inside a fragmented one",
			input: append(clientFrame(opText, false, []byte(`{"a":`)), clientFrame(opText, true, []byte(`1}`))...),
		},
		{
			name:  "Fragmented ping",
			input: clientFrame(opPing, false, []byte("hi")),
		},
		{
			name:  "Unknown opcode",
			input: clientFrame(0x3, true, nil),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Given: a connection receiving an invalid frame sequence
			conn, output := newTestConnection(tt.input)

			// When: reading a message
			_, err := conn.readMessage()

			// Then: a protocol error is returned and the connection is closed with 1002
			require.ErrorIs(t, err, ErrProtocol)

			reply, err := readFrame(bufio.NewReader(output))
			require.NoError(t, err)
			assert.Equal(t, opClose, reply.opCode)
			assert.Equal(t, []byte{0x03, 0xEA}, reply.payload)
		})
	}
}

func TestConnection_SendMessage(t *testing.T) {
	// Given: a connection
	conn, output := newTestConnection(nil)
	cell := 4

	// When: sending a message
	err := conn.sendMessage(actionTurn, Payload{SessionID: "s1", Cell: &cell})
	require.NoError(t, err)

	// Then: a single unmasked text frame holds the JSON message
	f, err := readFrame(bufio.NewReader(output))
	require.NoError(t, err)
	assert.True(t, f.isFin)
	assert.Equal(t, opText, f.opCode)

	var message Message
	require.NoError(t, json.Unmarshal(f.payload, &message))
	assert.Equal(t, actionTurn, message.Action)
	assert.JSONEq(t, `{"session_id":"s1","cell":4}`, string(message.Payload))
}

func TestWriteFrame_LengthEncoding(t *testing.T) {
	for _, size := range []int{0, 125, 126, 65535, 65536} {
		var output bytes.Buffer
		writer := bufio.NewWriter(&output)
		payload := bytes.Repeat([]byte{'x'}, size)

		require.NoError(t, writeFrame(writer, frame{isFin: true, opCode: opBinary, length: uint64(size), payload: payload}))

		f, err := readFrame(bufio.NewReader(&output))
		require.NoError(t, err, "size %d", size)
		assert.Len(t, f.payload, size)
		assert.Equal(t, opBinary, f.opCode)
	}
}
