package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func sampleOps() *Ops {
	return &Ops{Seq: 300, Ops: []HostOp{
		{Code: OpCreateElement, Target: 1, Namespace: "http://www.w3.org/2000/svg", Name: "svg"},
		{Code: OpCreateText, Target: 2, Value: "héllo"},
		{Code: OpSetAttribute, Target: 1, Namespace: "", Name: "id", Value: "x"},
		{Code: OpRemoveAttr, Target: 1, Namespace: "ns", Name: "href"},
		{Code: OpSetStyle, Target: 1, Name: "color", Value: "red"},
		{Code: OpRemoveStyle, Target: 1, Name: "color"},
		{Code: OpSetProperty, Target: 1, Name: "value", Data: json.RawMessage(`{"a":[1,2]}`)},
		{Code: OpRemoveProperty, Target: 1, Name: "value"},
		{Code: OpSetListener, Target: 1, Name: "click"},
		{Code: OpRemoveListener, Target: 1, Name: "click"},
		{Code: OpInsertChild, Target: 1, Index: 0, Child: 2},
		{Code: OpMoveChild, Target: 1, Index: 3, To: 0},
		{Code: OpRemoveChild, Target: 1, Index: 200},
		{Code: OpSetText, Target: 2, Value: ""},
		{Code: OpDestroy, Target: 2},
		{Code: OpSetRoot, Target: 1},
	}}
}

func TestOpsRoundTrip(t *testing.T) {
	in := sampleOps()
	out, err := DecodeOps(EncodeOps(in))
	if err != nil {
		t.Fatalf("DecodeOps error: %v", err)
	}
	if diff := cmp.Diff(in, out); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestOpsTruncated(t *testing.T) {
	data := EncodeOps(sampleOps())
	for n := 0; n < len(data); n++ {
		if _, err := DecodeOps(data[:n]); err == nil {
			t.Fatalf("Expected error decoding %d of %d bytes", n, len(data))
		}
	}
}

func TestOpsRejectsUnknownCode(t *testing.T) {
	e := NewEncoder()
	e.WriteUvarint(1)
	e.WriteUvarint(1)
	e.WriteByte(0x7f)
	e.WriteUvarint(1)
	if _, err := DecodeOps(e.Bytes()); !errors.Is(err, ErrUnknownOp) {
		t.Errorf("Expected ErrUnknownOp, got %v", err)
	}
}

func TestOpsHostileCount(t *testing.T) {
	e := NewEncoder()
	e.WriteUvarint(1)
	e.WriteUvarint(MaxCollectionCount + 1)
	if _, err := DecodeOps(e.Bytes()); !errors.Is(err, ErrCollectionTooLarge) {
		t.Errorf("Expected ErrCollectionTooLarge, got %v", err)
	}

	e.Reset()
	e.WriteUvarint(1)
	e.WriteUvarint(50)
	if _, err := DecodeOps(e.Bytes()); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("Expected ErrUnexpectedEOF, got %v", err)
	}
}

func TestOpsTrailingBytes(t *testing.T) {
	data := append(EncodeOps(&Ops{Seq: 1}), 0x00)
	if _, err := DecodeOps(data); !errors.Is(err, ErrTrailingBytes) {
		t.Errorf("Expected ErrTrailingBytes, got %v", err)
	}
}

func TestOpCodeString(t *testing.T) {
	if OpMoveChild.String() != "MoveChild" {
		t.Errorf("Expected MoveChild, got %s", OpMoveChild)
	}
	if OpCode(0x7f).String() != "OpCode(0x7f)" {
		t.Errorf("Unexpected name %s", OpCode(0x7f))
	}
}

func TestEvent(t *testing.T) {
	in := &Event{Target: 42, Name: "input", Payload: json.RawMessage(`{"value":"abc"}`)}
	out, err := DecodeEvent(EncodeEvent(in))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(in, out); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
	fields, err := out.Fields()
	if err != nil {
		t.Fatal(err)
	}
	if fields["value"] != "abc" {
		t.Errorf("Expected value abc, got %v", fields["value"])
	}

	bare, err := DecodeEvent(EncodeEvent(&Event{Target: 1, Name: "click"}))
	if err != nil {
		t.Fatal(err)
	}
	if bare.Payload != nil {
		t.Errorf("Expected nil payload, got %s", bare.Payload)
	}
	if f, _ := bare.Fields(); len(f) != 0 {
		t.Errorf("Expected no fields, got %v", f)
	}
}

func TestEventInvalidPayload(t *testing.T) {
	for _, payload := range []string{`[1,2]`, `"x"`, `{`} {
		data := EncodeEvent(&Event{Target: 1, Name: "click", Payload: json.RawMessage(payload)})
		if _, err := DecodeEvent(data); !errors.Is(err, ErrInvalidPayload) {
			t.Errorf("payload %s: expected ErrInvalidPayload, got %v", payload, err)
		}
	}
}

func TestFrame(t *testing.T) {
	f := &Frame{Type: FrameOps, Flags: FlagInitial, Payload: []byte("abc")}
	data := f.Encode()
	if len(data) != FrameHeaderSize+3 {
		t.Fatalf("Expected %d bytes, got %d", FrameHeaderSize+3, len(data))
	}

	got, err := DecodeFrame(data)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(f, got); diff != "" {
		t.Errorf("DecodeFrame mismatch (-want +got):\n%s", diff)
	}
	if !got.Flags.Has(FlagInitial) || got.Flags.Has(FlagFinal) {
		t.Errorf("Unexpected flags %b", got.Flags)
	}

	var buf bytes.Buffer
	if err := WriteFrame(&buf, f); err != nil {
		t.Fatal(err)
	}
	if err := WriteFrame(&buf, NewFrame(FrameControl, nil)); err != nil {
		t.Fatal(err)
	}
	first, err := ReadFrame(&buf)
	if err != nil || string(first.Payload) != "abc" {
		t.Fatalf("Unexpected first frame %+v, %v", first, err)
	}
	second, err := ReadFrame(&buf)
	if err != nil || second.Type != FrameControl || len(second.Payload) != 0 {
		t.Fatalf("Unexpected second frame %+v, %v", second, err)
	}
	if _, err := ReadFrame(&buf); !errors.Is(err, io.EOF) {
		t.Errorf("Expected EOF, got %v", err)
	}
}

func TestFrameErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"short header", []byte{0x02, 0x00}, io.ErrUnexpectedEOF},
		{"bad type", []byte{0x09, 0, 0, 0, 0, 0}, ErrInvalidFrameType},
		{"short payload", []byte{0x02, 0, 0, 0, 0, 5, 1}, io.ErrUnexpectedEOF},
		{"too large", []byte{0x02, 0, 0x7f, 0, 0, 0}, ErrFrameTooLarge},
		{"trailing", []byte{0x02, 0, 0, 0, 0, 1, 1, 2}, ErrTrailingBytes},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeFrame(tt.data); !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestHandshake(t *testing.T) {
	ch := &ClientHello{Version: CurrentVersion, Flags: json.RawMessage(`{"user":"ada"}`)}
	got, err := DecodeClientHello(EncodeClientHello(ch))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(ch, got); diff != "" {
		t.Errorf("ClientHello mismatch (-want +got):\n%s", diff)
	}
	if !got.Version.Compatible() {
		t.Error("Expected current version to be compatible")
	}
	if (ProtocolVersion{Major: 9}).Compatible() {
		t.Error("Expected major mismatch to be incompatible")
	}

	sh := &ServerHello{Status: HandshakeOK, ProgramID: "p-1"}
	gotSH, err := DecodeServerHello(EncodeServerHello(sh))
	if err != nil {
		t.Fatal(err)
	}
	if *gotSH != *sh {
		t.Errorf("Expected %+v, got %+v", sh, gotSH)
	}
}

func TestControl(t *testing.T) {
	for _, c := range []*Control{NewPing(123), NewPong(123), NewClose(CloseError, "view panicked")} {
		got, err := DecodeControl(EncodeControl(c))
		if err != nil {
			t.Fatalf("%s: %v", c.Type, err)
		}
		if *got != *c {
			t.Errorf("Expected %+v, got %+v", c, got)
		}
	}
	if _, err := DecodeControl([]byte{0x55}); !errors.Is(err, ErrUnknownControl) {
		t.Errorf("Expected ErrUnknownControl, got %v", err)
	}
}

func TestErrorMessage(t *testing.T) {
	em := NewFatalError(ErrProgramStopped, "stopped")
	got, err := DecodeErrorMessage(EncodeErrorMessage(em))
	if err != nil {
		t.Fatal(err)
	}
	if *got != *em {
		t.Errorf("Expected %+v, got %+v", em, got)
	}
	if got.Error() != "ProgramStopped: stopped" {
		t.Errorf("Unexpected error text %q", got.Error())
	}
}

func TestDecoderLimits(t *testing.T) {
	e := NewEncoder()
	e.WriteUvarint(DefaultMaxAllocation + 1)
	if _, err := NewDecoder(e.Bytes()).ReadString(); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("Expected ErrUnexpectedEOF for a length beyond the input, got %v", err)
	}

	overflow := bytes.Repeat([]byte{0xff}, 11)
	if _, err := NewDecoder(overflow).ReadUvarint(); !errors.Is(err, ErrVarintOverflow) {
		t.Errorf("Expected ErrVarintOverflow, got %v", err)
	}

	e.Reset()
	e.WriteSvarint(-5)
	e.WriteFloat64(1.5)
	d := NewDecoder(e.Bytes())
	if v, _ := d.ReadInt(); v != -5 {
		t.Errorf("Expected -5, got %d", v)
	}
	if f, _ := d.ReadFloat64(); f != 1.5 {
		t.Errorf("Expected 1.5, got %v", f)
	}
	if !d.EOF() {
		t.Error("Expected EOF")
	}
}

func FuzzDecodeOps(f *testing.F) {
	f.Add(EncodeOps(sampleOps()))
	f.Add([]byte{})
	f.Fuzz(func(t *testing.T, data []byte) {
		b, err := DecodeOps(data)
		if err != nil {
			return
		}
		if _, err := DecodeOps(EncodeOps(b)); err != nil {
			t.Fatalf("re-encoded batch failed to decode: %v", err)
		}
	})
}
