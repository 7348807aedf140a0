package protocol

import (
	"encoding/json"
	"errors"
)

// ErrInvalidPayload is returned for an event payload that is not a JSON
// object.
var ErrInvalidPayload = errors.New("protocol: event payload is not a JSON object")

// Event is one event fired by the host on a listener. Target is the node
// ID from the CreateElement op that made the element.
type Event struct {
	Target uint32
	Name   string

	// Payload holds the event fields the host chose to send, e.g.
	// {"value":"abc","key":"Enter"}. Empty means no fields.
	Payload json.RawMessage
}

// EncodeEvent encodes an event to bytes.
func EncodeEvent(ev *Event) []byte {
	e := NewEncoder()
	EncodeEventTo(e, ev)
	return e.Bytes()
}

// EncodeEventTo encodes an event using the provided encoder.
func EncodeEventTo(e *Encoder, ev *Event) {
	e.WriteUvarint(uint64(ev.Target))
	e.WriteString(ev.Name)
	e.WriteLenBytes(ev.Payload)
}

// DecodeEvent decodes an event from bytes. A non-empty payload must be a
// JSON object.
func DecodeEvent(data []byte) (*Event, error) {
	d := NewDecoder(data)
	target, err := d.ReadUvarint()
	if err != nil {
		return nil, err
	}
	ev := &Event{Target: uint32(target)}
	if ev.Name, err = d.ReadString(); err != nil {
		return nil, err
	}
	if ev.Payload, err = d.ReadLenBytes(); err != nil {
		return nil, err
	}
	if err := d.Done(); err != nil {
		return nil, err
	}
	if len(ev.Payload) > 0 {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(ev.Payload, &obj); err != nil {
			return nil, ErrInvalidPayload
		}
	} else {
		ev.Payload = nil
	}
	return ev, nil
}

// Fields decodes the payload into a map. An empty payload yields an empty
// map.
func (ev *Event) Fields() (map[string]any, error) {
	out := map[string]any{}
	if len(ev.Payload) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(ev.Payload, &out); err != nil {
		return nil, ErrInvalidPayload
	}
	return out, nil
}
