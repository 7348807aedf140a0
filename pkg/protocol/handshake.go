package protocol

import "encoding/json"

// HandshakeStatus represents the result of a handshake.
type HandshakeStatus uint8

const (
	HandshakeOK              HandshakeStatus = 0x00
	HandshakeVersionMismatch HandshakeStatus = 0x01
	HandshakeServerBusy      HandshakeStatus = 0x04
	HandshakeInvalidFormat   HandshakeStatus = 0x06 // Malformed handshake message
	HandshakeInternalError   HandshakeStatus = 0x08 // Program failed to start
)

// String returns the string representation of the handshake status.
func (hs HandshakeStatus) String() string {
	switch hs {
	case HandshakeOK:
		return "OK"
	case HandshakeVersionMismatch:
		return "VersionMismatch"
	case HandshakeServerBusy:
		return "ServerBusy"
	case HandshakeInvalidFormat:
		return "InvalidFormat"
	case HandshakeInternalError:
		return "InternalError"
	default:
		return "Unknown"
	}
}

// ProtocolVersion represents a protocol version as major.minor.
type ProtocolVersion struct {
	Major uint8
	Minor uint8
}

// CurrentVersion is the current protocol version.
var CurrentVersion = ProtocolVersion{Major: 1, Minor: 0}

// Compatible reports whether a peer speaking v can talk to this package.
func (v ProtocolVersion) Compatible() bool {
	return v.Major == CurrentVersion.Major
}

// ClientHello is the first frame a host sends. Flags is handed to the
// program's Init as a json.RawMessage.
type ClientHello struct {
	Version ProtocolVersion
	Flags   json.RawMessage
}

// ServerHello answers a ClientHello. ProgramID names the runtime serving
// the connection.
type ServerHello struct {
	Status    HandshakeStatus
	ProgramID string
}

// EncodeClientHello encodes a ClientHello to bytes.
func EncodeClientHello(ch *ClientHello) []byte {
	e := NewEncoder()
	e.WriteByte(ch.Version.Major)
	e.WriteByte(ch.Version.Minor)
	e.WriteLenBytes(ch.Flags)
	return e.Bytes()
}

// DecodeClientHello decodes a ClientHello from bytes.
func DecodeClientHello(data []byte) (*ClientHello, error) {
	d := NewDecoder(data)
	major, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	minor, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	flags, err := d.ReadLenBytes()
	if err != nil {
		return nil, err
	}
	if len(flags) == 0 {
		flags = nil
	}
	return &ClientHello{Version: ProtocolVersion{major, minor}, Flags: flags}, d.Done()
}

// EncodeServerHello encodes a ServerHello to bytes.
func EncodeServerHello(sh *ServerHello) []byte {
	e := NewEncoder()
	e.WriteByte(byte(sh.Status))
	e.WriteString(sh.ProgramID)
	return e.Bytes()
}

// DecodeServerHello decodes a ServerHello from bytes.
func DecodeServerHello(data []byte) (*ServerHello, error) {
	d := NewDecoder(data)
	status, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	id, err := d.ReadString()
	if err != nil {
		return nil, err
	}
	return &ServerHello{Status: HandshakeStatus(status), ProgramID: id}, d.Done()
}
