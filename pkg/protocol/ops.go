package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// OpCode identifies a host operation.
type OpCode uint8

const (
	OpCreateElement  OpCode = 0x01
	OpCreateText     OpCode = 0x02
	OpDestroy        OpCode = 0x03
	OpSetText        OpCode = 0x04
	OpSetAttribute   OpCode = 0x10
	OpRemoveAttr     OpCode = 0x11
	OpSetStyle       OpCode = 0x12
	OpRemoveStyle    OpCode = 0x13
	OpSetProperty    OpCode = 0x14
	OpRemoveProperty OpCode = 0x15
	OpSetListener    OpCode = 0x16
	OpRemoveListener OpCode = 0x17
	OpInsertChild    OpCode = 0x20
	OpRemoveChild    OpCode = 0x21
	OpMoveChild      OpCode = 0x22
	OpSetRoot        OpCode = 0x23
)

var opNames = map[OpCode]string{
	OpCreateElement:  "CreateElement",
	OpCreateText:     "CreateText",
	OpDestroy:        "Destroy",
	OpSetText:        "SetText",
	OpSetAttribute:   "SetAttribute",
	OpRemoveAttr:     "RemoveAttribute",
	OpSetStyle:       "SetStyle",
	OpRemoveStyle:    "RemoveStyle",
	OpSetProperty:    "SetProperty",
	OpRemoveProperty: "RemoveProperty",
	OpSetListener:    "SetListener",
	OpRemoveListener: "RemoveListener",
	OpInsertChild:    "InsertChild",
	OpRemoveChild:    "RemoveChild",
	OpMoveChild:      "MoveChild",
	OpSetRoot:        "SetRoot",
}

// String returns the operation name.
func (c OpCode) String() string {
	if s, ok := opNames[c]; ok {
		return s
	}
	return fmt.Sprintf("OpCode(%#x)", uint8(c))
}

// ErrUnknownOp is returned when decoding an unknown op code.
var ErrUnknownOp = errors.New("protocol: unknown op code")

// HostOp is one operation for the remote host. Nodes are addressed by
// IDs the server allocates; Target is the node operated on and Child the
// node being attached.
//
// Field use per code:
//
//	CreateElement     Target Namespace Name(tag)
//	CreateText        Target Value
//	Destroy           Target
//	SetText           Target Value
//	SetAttribute      Target Namespace Name Value
//	RemoveAttribute   Target Namespace Name
//	SetStyle          Target Name Value
//	RemoveStyle       Target Name
//	SetProperty       Target Name Data
//	RemoveProperty    Target Name
//	SetListener       Target Name
//	RemoveListener    Target Name
//	InsertChild       Target(parent) Index Child
//	RemoveChild       Target(parent) Index
//	MoveChild         Target(parent) Index(from) To
//	SetRoot           Target
type HostOp struct {
	Code      OpCode
	Target    uint32
	Child     uint32
	Index     int
	To        int
	Namespace string
	Name      string
	Value     string
	Data      json.RawMessage
}

// Ops is one batch of host operations. Seq increases by one per batch.
type Ops struct {
	Seq uint64
	Ops []HostOp
}

// EncodeOps encodes a batch to bytes.
func EncodeOps(b *Ops) []byte {
	e := NewEncoder()
	EncodeOpsTo(e, b)
	return e.Bytes()
}

// EncodeOpsTo encodes a batch using the provided encoder.
func EncodeOpsTo(e *Encoder, b *Ops) {
	e.WriteUvarint(b.Seq)
	e.WriteUvarint(uint64(len(b.Ops)))
	for i := range b.Ops {
		encodeOp(e, &b.Ops[i])
	}
}

func encodeOp(e *Encoder, op *HostOp) {
	e.WriteByte(byte(op.Code))
	e.WriteUvarint(uint64(op.Target))
	switch op.Code {
	case OpCreateElement:
		e.WriteString(op.Namespace)
		e.WriteString(op.Name)
	case OpCreateText, OpSetText:
		e.WriteString(op.Value)
	case OpSetAttribute:
		e.WriteString(op.Namespace)
		e.WriteString(op.Name)
		e.WriteString(op.Value)
	case OpRemoveAttr:
		e.WriteString(op.Namespace)
		e.WriteString(op.Name)
	case OpSetStyle:
		e.WriteString(op.Name)
		e.WriteString(op.Value)
	case OpSetProperty:
		e.WriteString(op.Name)
		e.WriteLenBytes(op.Data)
	case OpRemoveStyle, OpRemoveProperty, OpSetListener, OpRemoveListener:
		e.WriteString(op.Name)
	case OpInsertChild:
		e.WriteSvarint(int64(op.Index))
		e.WriteUvarint(uint64(op.Child))
	case OpRemoveChild:
		e.WriteSvarint(int64(op.Index))
	case OpMoveChild:
		e.WriteSvarint(int64(op.Index))
		e.WriteSvarint(int64(op.To))
	}
}

// DecodeOps decodes a batch from bytes.
func DecodeOps(data []byte) (*Ops, error) {
	d := NewDecoder(data)
	b, err := DecodeOpsFrom(d)
	if err != nil {
		return nil, err
	}
	return b, d.Done()
}

// DecodeOpsFrom decodes a batch from a decoder.
func DecodeOpsFrom(d *Decoder) (*Ops, error) {
	seq, err := d.ReadUvarint()
	if err != nil {
		return nil, err
	}
	count, err := d.ReadCollectionCount()
	if err != nil {
		return nil, err
	}
	b := &Ops{Seq: seq, Ops: make([]HostOp, count)}
	for i := range b.Ops {
		if err := decodeOp(d, &b.Ops[i]); err != nil {
			return nil, fmt.Errorf("op %d: %w", i, err)
		}
	}
	return b, nil
}

func decodeOp(d *Decoder, op *HostOp) error {
	code, err := d.ReadByte()
	if err != nil {
		return err
	}
	op.Code = OpCode(code)
	if _, ok := opNames[op.Code]; !ok {
		return fmt.Errorf("%w: %#x", ErrUnknownOp, code)
	}
	target, err := d.ReadUvarint()
	if err != nil {
		return err
	}
	op.Target = uint32(target)

	str := func(dst *string) {
		if err == nil {
			*dst, err = d.ReadString()
		}
	}
	num := func(dst *int) {
		if err == nil {
			*dst, err = d.ReadInt()
		}
	}

	switch op.Code {
	case OpCreateElement:
		str(&op.Namespace)
		str(&op.Name)
	case OpCreateText, OpSetText:
		str(&op.Value)
	case OpSetAttribute:
		str(&op.Namespace)
		str(&op.Name)
		str(&op.Value)
	case OpRemoveAttr:
		str(&op.Namespace)
		str(&op.Name)
	case OpSetStyle:
		str(&op.Name)
		str(&op.Value)
	case OpSetProperty:
		str(&op.Name)
		if err == nil {
			op.Data, err = d.ReadLenBytes()
		}
	case OpRemoveStyle, OpRemoveProperty, OpSetListener, OpRemoveListener:
		str(&op.Name)
	case OpInsertChild:
		num(&op.Index)
		if err == nil {
			var child uint64
			child, err = d.ReadUvarint()
			op.Child = uint32(child)
		}
	case OpRemoveChild:
		num(&op.Index)
	case OpMoveChild:
		num(&op.Index)
		num(&op.To)
	}
	return err
}
