package server

import (
	"sync/atomic"

	"github.com/vango-dev/retain/pkg/protocol"
)

// NativeEvent is the native event handed to decoders for events fired by a
// remote host. Payload fields are exposed through Field; the "value" field
// doubles as the target value.
type NativeEvent struct {
	Target NodeID
	Name   string

	fields    map[string]any
	stopped   atomic.Bool
	prevented atomic.Bool
}

// NewNativeEvent decodes the payload of ev.
func NewNativeEvent(ev *protocol.Event) (*NativeEvent, error) {
	fields, err := ev.Fields()
	if err != nil {
		return nil, err
	}
	return &NativeEvent{Target: NodeID(ev.Target), Name: ev.Name, fields: fields}, nil
}

// Field returns a payload field.
func (e *NativeEvent) Field(name string) (any, bool) {
	v, ok := e.fields[name]
	return v, ok
}

// TargetValue returns the "value" payload field.
func (e *NativeEvent) TargetValue() (string, bool) {
	v, ok := e.fields["value"].(string)
	return v, ok
}

// StopPropagation records that a decoder stopped propagation.
func (e *NativeEvent) StopPropagation() { e.stopped.Store(true) }

// PreventDefault records that a decoder prevented the default action.
func (e *NativeEvent) PreventDefault() { e.prevented.Store(true) }

// Stopped reports whether propagation was stopped.
func (e *NativeEvent) Stopped() bool { return e.stopped.Load() }

// Prevented reports whether the default action was prevented.
func (e *NativeEvent) Prevented() bool { return e.prevented.Load() }
