package server

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/vango-dev/retain/pkg/event"
	"github.com/vango-dev/retain/pkg/live"
	"github.com/vango-dev/retain/pkg/protocol"
	"github.com/vango-dev/retain/pkg/vdom"
)

type sentBatch struct {
	batch   *protocol.Ops
	initial bool
}

func recordingBinding() (*RemoteBinding, *[]sentBatch) {
	var sent []sentBatch
	b := NewRemoteBinding(func(batch *protocol.Ops, initial bool) error {
		sent = append(sent, sentBatch{batch, initial})
		return nil
	})
	return b, &sent
}

func codes(ops []protocol.HostOp) []protocol.OpCode {
	out := make([]protocol.OpCode, len(ops))
	for i, op := range ops {
		out[i] = op.Code
	}
	return out
}

func TestRemoteBindingMountAndPatch(t *testing.T) {
	b, sent := recordingBinding()
	var msgs []any
	router := event.NewRouter(func(msg any) { msgs = append(msgs, msg) })

	view := func(label string) *vdom.Node {
		return vdom.Div(vdom.Input(vdom.Value(label), vdom.OnInput(func(s string) any { return "typed:" + s })), vdom.Text(label))
	}
	tree, err := live.Mount(b, router, view("a"))
	if err != nil {
		t.Fatalf("Mount error: %v", err)
	}
	if len(*sent) != 1 || !(*sent)[0].initial || (*sent)[0].batch.Seq != 1 {
		t.Fatalf("Expected one initial batch with seq 1, got %+v", *sent)
	}

	var input protocol.HostOp
	for _, op := range (*sent)[0].batch.Ops {
		if op.Code == protocol.OpSetProperty {
			if string(op.Data) != `"a"` {
				t.Errorf("Expected JSON property value, got %s", op.Data)
			}
		}
		if op.Code == protocol.OpSetListener {
			input = op
		}
	}
	if input.Name != "input" {
		t.Fatalf("Expected an input listener, got %+v", input)
	}

	if err := tree.Apply(vdom.Diff(view("a"), view("b"))); err != nil {
		t.Fatalf("Apply error: %v", err)
	}
	if len(*sent) != 2 || (*sent)[1].initial {
		t.Fatalf("Expected a second non-initial batch, got %d batches", len(*sent))
	}
	got := codes((*sent)[1].batch.Ops)
	want := []protocol.OpCode{protocol.OpSetProperty, protocol.OpSetText}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("Expected %v, got %v", want, got)
	}

	err = b.Dispatch(&protocol.Event{Target: input.Target, Name: "input", Payload: json.RawMessage(`{"value":"xy"}`)})
	if err != nil {
		t.Fatalf("Dispatch error: %v", err)
	}
	if len(msgs) != 1 || msgs[0] != "typed:xy" {
		t.Errorf("Expected typed:xy, got %v", msgs)
	}

	if err := tree.Unmount(); err != nil {
		t.Fatal(err)
	}
	if b.Live() != 0 {
		t.Errorf("Expected no live nodes after unmount, got %d", b.Live())
	}
	if err := b.Dispatch(&protocol.Event{Target: input.Target, Name: "input"}); !errors.Is(err, ErrUnknownNode) {
		t.Errorf("Expected ErrUnknownNode after unmount, got %v", err)
	}
}

func TestRemoteBindingEmptyFlush(t *testing.T) {
	b, sent := recordingBinding()
	if err := b.Flush(); err != nil {
		t.Fatal(err)
	}
	if len(*sent) != 0 || b.Seq() != 0 {
		t.Errorf("Expected nothing sent, got %d batches", len(*sent))
	}
}

func TestRemoteBindingValidation(t *testing.T) {
	b, _ := recordingBinding()
	div, _ := b.CreateElement("", "div")
	text, _ := b.CreateText("x")

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"foreign handle", b.SetText("nope", "y"), ErrUnknownNode},
		{"unknown id", b.SetRoot(NodeID(99)), ErrUnknownNode},
		{"attribute on text", b.SetAttribute(text, "", "id", "x"), ErrNotElement},
		{"insert out of range", b.InsertChild(div, 1, text), ErrOutOfRange},
		{"remove from empty", b.RemoveChild(div, 0), ErrOutOfRange},
		{"move in empty", b.MoveChild(div, 0, 0), ErrOutOfRange},
	}
	for _, tt := range tests {
		if !errors.Is(tt.err, tt.want) {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.want, tt.err)
		}
	}

	if err := b.InsertChild(div, 0, text); err != nil {
		t.Fatal(err)
	}
	if err := b.InsertChild(div, 0, text); !errors.Is(err, ErrAttached) {
		t.Errorf("Expected ErrAttached on double insert, got %v", err)
	}
	if err := b.Destroy(text); !errors.Is(err, ErrAttached) {
		t.Errorf("Expected ErrAttached destroying an attached node, got %v", err)
	}
	if err := b.Destroy(div); err != nil {
		t.Fatal(err)
	}
	if b.Live() != 0 {
		t.Errorf("Expected destroy to release descendants, %d live", b.Live())
	}
}

func TestRemoteBindingMoveChild(t *testing.T) {
	b, sent := recordingBinding()
	ul, _ := b.CreateElement("", "ul")
	var items []live.Handle
	for i := 0; i < 3; i++ {
		li, _ := b.CreateElement("", "li")
		if err := b.InsertChild(ul, i, li); err != nil {
			t.Fatal(err)
		}
		items = append(items, li)
	}
	if err := b.MoveChild(ul, 0, 2); err != nil {
		t.Fatal(err)
	}
	if err := b.Flush(); err != nil {
		t.Fatal(err)
	}

	n := b.nodes[ul.(NodeID)]
	order := []live.Handle{n.children[0].id, n.children[1].id, n.children[2].id}
	if order[0] != items[1] || order[1] != items[2] || order[2] != items[0] {
		t.Errorf("Unexpected order %v", order)
	}
	last := (*sent)[0].batch.Ops[len((*sent)[0].batch.Ops)-1]
	if last.Code != protocol.OpMoveChild || last.Index != 0 || last.To != 2 {
		t.Errorf("Unexpected last op %+v", last)
	}
}

func TestNativeEvent(t *testing.T) {
	ev, err := NewNativeEvent(&protocol.Event{Target: 3, Name: "keydown", Payload: json.RawMessage(`{"key":"Enter","value":"v"}`)})
	if err != nil {
		t.Fatal(err)
	}
	if v, ok := ev.TargetValue(); !ok || v != "v" {
		t.Errorf("Expected target value v, got %q %v", v, ok)
	}
	if k, _ := ev.Field("key"); k != "Enter" {
		t.Errorf("Expected key Enter, got %v", k)
	}
	ev.PreventDefault()
	if !ev.Prevented() || ev.Stopped() {
		t.Error("Expected only prevented to be set")
	}

	bare, _ := NewNativeEvent(&protocol.Event{Target: 3, Name: "click"})
	if _, ok := bare.TargetValue(); ok {
		t.Error("Expected no target value")
	}
}
