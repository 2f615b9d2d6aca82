package websocket

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/rocketscienceinc/tictactoe-timetravel/internal/tictactoe"
)

const (
	opContinuation byte = 0x0
	opText         byte = 0x1
	opBinary       byte = 0x2
	opClose        byte = 0x8
	opPing         byte = 0x9
	opPong         byte = 0xA

	maxPayloadSize        = 1 << 20
	maxControlPayloadSize = 125

	closeProtocolError uint16 = 1002
)

var (
	ErrConnectionClosed = errors.New("connection closed by client")
	ErrFrameTooLarge    = errors.New("frame payload too large")
	ErrProtocol         = errors.New("websocket protocol error")
)

// frame represents a WebSocket frame and its metadata.
type frame struct {
	isFin   bool
	masked  bool
	opCode  byte
	length  uint64
	payload []byte
}

// Message represents a WebSocket message with an action type and a payload.
type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type Payload struct {
	SessionID string          `json:"session_id,omitempty"`
	Cell      *int            `json:"cell,omitempty"`
	Step      *int            `json:"step,omitempty"`
	Game      *tictactoe.View `json:"game,omitempty"`
	Error     string          `json:"error,omitempty"`
}

func (that *connection) sendMessage(action string, payload Payload) error {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	responseBytes, err := json.Marshal(Message{
		Action:  action,
		Payload: payloadBytes,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal response: %w", err)
	}

	f := frame{
		isFin:   true,
		opCode:  opText,
		length:  uint64(len(responseBytes)),
		payload: responseBytes,
	}

	if err = writeFrame(that.bufrw.Writer, f); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}

	return nil
}

// readMessage returns the next complete data message, answering pings on the way.
// Protocol violations are answered with a close frame carrying status 1002.
func (that *connection) readMessage() ([]byte, error) {
	message, err := that.readFrames()
	if errors.Is(err, ErrProtocol) {
		_ = writeFrame(that.bufrw.Writer, closeFrame(closeProtocolError))
	}

	return message, err
}

func (that *connection) readFrames() ([]byte, error) {
	var message []byte
	fragmented := false

	for {
		f, err := readFrame(that.bufrw.Reader)
		if err != nil {
			return nil, err
		}

		// clients must mask every frame they send
		if !f.masked {
			return nil, fmt.Errorf("%w: unmasked client frame", ErrProtocol)
		}

		if isControl(f.opCode) && (!f.isFin || f.length > maxControlPayloadSize) {
			return nil, fmt.Errorf("%w: invalid control frame", ErrProtocol)
		}

		switch f.opCode {
		case opClose:
			// echo the close frame before giving up the connection
			_ = writeFrame(that.bufrw.Writer, frame{isFin: true, opCode: opClose})
			return nil, ErrConnectionClosed
		case opPing:
			pong := frame{isFin: true, opCode: opPong, length: f.length, payload: f.payload}
			if err = writeFrame(that.bufrw.Writer, pong); err != nil {
				return nil, fmt.Errorf("failed to answer ping: %w", err)
			}
			continue
		case opPong:
			continue
		case opText, opBinary:
			if fragmented {
				return nil, fmt.Errorf("%w: new message inside a fragmented one", ErrProtocol)
			}
			fragmented = true
		case opContinuation:
			if !fragmented {
				return nil, fmt.Errorf("%w: continuation without a message", ErrProtocol)
			}
		default:
			return nil, fmt.Errorf("%w: unknown opcode %d", ErrProtocol, f.opCode)
		}

		message = append(message, f.payload...)

		if len(message) > maxPayloadSize {
			return nil, ErrFrameTooLarge
		}

		if f.isFin {
			return message, nil
		}
	}
}

func isControl(opCode byte) bool {
	return opCode&0x8 != 0
}

func closeFrame(status uint16) frame {
	payload := binary.BigEndian.AppendUint16(nil, status)

	return frame{isFin: true, opCode: opClose, length: uint64(len(payload)), payload: payload}
}

func writeFrame(writer *bufio.Writer, frameData frame) error {
	header := make([]byte, 2, 10)
	header[0] = frameData.opCode

	if frameData.isFin {
		header[0] |= 0x80
	}

	switch {
	case frameData.length < 126:
		header[1] = byte(frameData.length)
	case frameData.length < 1<<16:
		header[1] = 126
		header = binary.BigEndian.AppendUint16(header, uint16(frameData.length))
	default:
		header[1] = 127
		header = binary.BigEndian.AppendUint64(header, frameData.length)
	}

	if _, err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write frame header: %w", err)
	}

	if _, err := writer.Write(frameData.payload); err != nil {
		return fmt.Errorf("failed to write frame payload: %w", err)
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush buffer: %w", err)
	}

	return nil
}

func readFrame(reader *bufio.Reader) (frame, error) {
	header := make([]byte, 2)
	if _, err := io.ReadFull(reader, header); err != nil {
		return frame{}, fmt.Errorf("failed to read header: %w", err)
	}

	// no extensions are negotiated, so the reserved bits must be zero
	if header[0]&0x70 != 0 {
		return frame{}, fmt.Errorf("%w: reserved bits set", ErrProtocol)
	}

	f := frame{
		isFin:  header[0]>>7 == 1,
		masked: header[1]>>7 == 1,
		opCode: header[0] & 0x0f,
	}

	length, err := readPayloadLength(reader, header[1]&0x7f)
	if err != nil {
		return frame{}, err
	}

	if length > maxPayloadSize {
		return frame{}, ErrFrameTooLarge
	}

	f.length = length

	var mask []byte
	if f.masked {
		mask = make([]byte, 4)
		if _, err = io.ReadFull(reader, mask); err != nil {
			return frame{}, fmt.Errorf("failed to read mask: %w", err)
		}
	}

	f.payload = make([]byte, length)
	if _, err = io.ReadFull(reader, f.payload); err != nil {
		return frame{}, fmt.Errorf("failed to read payload: %w", err)
	}

	if mask != nil {
		for i := range f.payload {
			f.payload[i] ^= mask[i%4]
		}
	}

	return f, nil
}

func readPayloadLength(reader *bufio.Reader, payloadLen byte) (uint64, error) {
	switch payloadLen {
	case 126:
		length := make([]byte, 2)
		if _, err := io.ReadFull(reader, length); err != nil {
			return 0, fmt.Errorf("failed to read payload length: %w", err)
		}
		return uint64(binary.BigEndian.Uint16(length)), nil
	case 127:
		length := make([]byte, 8)
		if _, err := io.ReadFull(reader, length); err != nil {
			return 0, fmt.Errorf("failed to read payload length: %w", err)
		}
		return binary.BigEndian.Uint64(length), nil
	default:
		return uint64(payloadLen), nil
	}
}
