package protocol

import "errors"

// ControlType identifies the type of control message.
type ControlType uint8

const (
	ControlPing  ControlType = 0x01 // Liveness probe
	ControlPong  ControlType = 0x02 // Response to ping
	ControlClose ControlType = 0x20 // Runtime is shutting down
)

// String returns the string representation of the control type.
func (ct ControlType) String() string {
	switch ct {
	case ControlPing:
		return "Ping"
	case ControlPong:
		return "Pong"
	case ControlClose:
		return "Close"
	default:
		return "Unknown"
	}
}

// CloseReason indicates why a connection is being closed.
type CloseReason uint8

const (
	CloseNormal         CloseReason = 0x00 // Normal closure
	CloseGoingAway      CloseReason = 0x01 // Peer going away
	CloseServerShutdown CloseReason = 0x03 // Server shutting down
	CloseError          CloseReason = 0x04 // Runtime stopped on a fatal error
)

// String returns the string representation of the close reason.
func (cr CloseReason) String() string {
	switch cr {
	case CloseNormal:
		return "Normal"
	case CloseGoingAway:
		return "GoingAway"
	case CloseServerShutdown:
		return "ServerShutdown"
	case CloseError:
		return "Error"
	default:
		return "Unknown"
	}
}

// ErrUnknownControl is returned for an unknown control type.
var ErrUnknownControl = errors.New("protocol: unknown control type")

// Control is a control message. Timestamp is used by ping and pong,
// Reason and Message by close.
type Control struct {
	Type      ControlType
	Timestamp uint64
	Reason    CloseReason
	Message   string
}

// EncodeControl encodes a control message to bytes.
func EncodeControl(c *Control) []byte {
	e := NewEncoder()
	e.WriteByte(byte(c.Type))
	switch c.Type {
	case ControlPing, ControlPong:
		e.WriteUvarint(c.Timestamp)
	case ControlClose:
		e.WriteByte(byte(c.Reason))
		e.WriteString(c.Message)
	}
	return e.Bytes()
}

// DecodeControl decodes a control message from bytes.
func DecodeControl(data []byte) (*Control, error) {
	d := NewDecoder(data)
	ct, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	c := &Control{Type: ControlType(ct)}
	switch c.Type {
	case ControlPing, ControlPong:
		if c.Timestamp, err = d.ReadUvarint(); err != nil {
			return nil, err
		}
	case ControlClose:
		reason, err := d.ReadByte()
		if err != nil {
			return nil, err
		}
		c.Reason = CloseReason(reason)
		if c.Message, err = d.ReadString(); err != nil {
			return nil, err
		}
	default:
		return nil, ErrUnknownControl
	}
	return c, d.Done()
}

// NewPing creates a ping carrying timestamp (Unix milliseconds).
func NewPing(timestamp uint64) *Control {
	return &Control{Type: ControlPing, Timestamp: timestamp}
}

// NewPong answers a ping.
func NewPong(timestamp uint64) *Control {
	return &Control{Type: ControlPong, Timestamp: timestamp}
}

// NewClose creates a close message.
func NewClose(reason CloseReason, message string) *Control {
	return &Control{Type: ControlClose, Reason: reason, Message: message}
}
