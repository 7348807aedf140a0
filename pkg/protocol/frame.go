package protocol

import (
	"errors"
	"io"
)

// Frame constants.
const (
	// FrameHeaderSize is the size of the frame header in bytes.
	FrameHeaderSize = 6

	// MaxPayloadSize bounds a single frame payload (16MB).
	MaxPayloadSize = 16 * 1024 * 1024
)

// FrameType identifies the type of frame.
type FrameType uint8

const (
	FrameHandshake FrameType = 0x00 // ClientHello / ServerHello
	FrameEvent     FrameType = 0x01 // Host to server events
	FrameOps       FrameType = 0x02 // Server to host operation batches
	FrameControl   FrameType = 0x03 // Ping, pong, close
	FrameError     FrameType = 0x05 // Error report
)

// String returns the string representation of the frame type.
func (ft FrameType) String() string {
	switch ft {
	case FrameHandshake:
		return "Handshake"
	case FrameEvent:
		return "Event"
	case FrameOps:
		return "Ops"
	case FrameControl:
		return "Control"
	case FrameError:
		return "Error"
	default:
		return "Unknown"
	}
}

// FrameFlags are optional flags for frame processing.
type FrameFlags uint8

const (
	FlagInitial FrameFlags = 0x01 // Ops batch that mounts a fresh tree
	FlagFinal   FrameFlags = 0x04 // Last frame before close
)

// Has returns true if the flags contain the specified flag.
func (ff FrameFlags) Has(flag FrameFlags) bool {
	return ff&flag != 0
}

// Frame errors.
var (
	ErrFrameTooLarge    = errors.New("protocol: frame payload too large")
	ErrInvalidFrameType = errors.New("protocol: invalid frame type")
)

// Frame is a typed protocol message.
type Frame struct {
	Type    FrameType
	Flags   FrameFlags
	Payload []byte
}

// NewFrame creates a frame with the given type and payload.
func NewFrame(ft FrameType, payload []byte) *Frame {
	return &Frame{Type: ft, Payload: payload}
}

// Encode encodes the frame including its header.
func (f *Frame) Encode() []byte {
	length := len(f.Payload)
	buf := make([]byte, FrameHeaderSize+length)
	buf[0] = byte(f.Type)
	buf[1] = byte(f.Flags)
	buf[2] = byte(length >> 24)
	buf[3] = byte(length >> 16)
	buf[4] = byte(length >> 8)
	buf[5] = byte(length)
	copy(buf[FrameHeaderSize:], f.Payload)
	return buf
}

func parseHeader(h []byte) (FrameType, FrameFlags, int, error) {
	ft := FrameType(h[0])
	switch ft {
	case FrameHandshake, FrameEvent, FrameOps, FrameControl, FrameError:
	default:
		return 0, 0, 0, ErrInvalidFrameType
	}
	length := int(h[2])<<24 | int(h[3])<<16 | int(h[4])<<8 | int(h[5])
	if length > MaxPayloadSize {
		return 0, 0, 0, ErrFrameTooLarge
	}
	return ft, FrameFlags(h[1]), length, nil
}

// DecodeFrame decodes one frame that occupies all of data.
func DecodeFrame(data []byte) (*Frame, error) {
	if len(data) < FrameHeaderSize {
		return nil, io.ErrUnexpectedEOF
	}
	ft, flags, length, err := parseHeader(data)
	if err != nil {
		return nil, err
	}
	if len(data) < FrameHeaderSize+length {
		return nil, io.ErrUnexpectedEOF
	}
	if len(data) > FrameHeaderSize+length {
		return nil, ErrTrailingBytes
	}
	payload := make([]byte, length)
	copy(payload, data[FrameHeaderSize:])
	return &Frame{Type: ft, Flags: flags, Payload: payload}, nil
}

// ReadFrame reads a complete frame from r.
func ReadFrame(r io.Reader) (*Frame, error) {
	header := make([]byte, FrameHeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}
	ft, flags, length, err := parseHeader(header)
	if err != nil {
		return nil, err
	}
	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	return &Frame{Type: ft, Flags: flags, Payload: payload}, nil
}

// WriteFrame writes a complete frame to w.
func WriteFrame(w io.Writer, f *Frame) error {
	if len(f.Payload) > MaxPayloadSize {
		return ErrFrameTooLarge
	}
	_, err := w.Write(f.Encode())
	return err
}
