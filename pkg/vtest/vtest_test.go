package vtest

import (
	"errors"
	"testing"

	"github.com/vango-dev/retain/pkg/vdom"
)

func counterView(n int) *vdom.Node {
	return vdom.Div(vdom.ID("app"),
		vdom.Span(vdom.Text(vdom.Stringify(n))),
		vdom.Button(vdom.ID("inc"), vdom.OnClick("inc")),
	)
}

func TestHarness(t *testing.T) {
	h := Mount(t, counterView(0))
	h.ExpectSnapshot(`<div id="app"><span>0</span><button id="inc" on:click></button></div>`)

	h.Fire(h.Binding.ByID("inc"), "click", &Event{})
	h.Fire(h.Binding.ByID("inc"), "click", &Event{})
	msgs := h.Messages()
	if len(msgs) != 2 || msgs[0] != "inc" {
		t.Fatalf("Expected two inc messages, got %v", msgs)
	}
	if len(h.Messages()) != 0 {
		t.Error("Expected Messages to drain")
	}

	h.Binding.Reset()
	h.Update(counterView(0), counterView(2))
	if h.Binding.CountCalls("SetText") != 1 {
		t.Errorf("Expected 1 SetText, got %d", h.Binding.CountCalls("SetText"))
	}
	h.ExpectSnapshot(`<div id="app"><span>2</span><button id="inc" on:click></button></div>`)
}

func TestBindingValidation(t *testing.T) {
	b := NewBinding()
	parent, _ := b.CreateElement("", "div")
	child, _ := b.CreateText("x")

	if err := b.InsertChild(parent, 1, child); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("Expected ErrOutOfRange, got %v", err)
	}
	if err := b.InsertChild(child, 0, parent); !errors.Is(err, ErrNotElement) {
		t.Errorf("Expected ErrNotElement, got %v", err)
	}
	if err := b.InsertChild(parent, 0, child); err != nil {
		t.Fatal(err)
	}
	if err := b.Destroy(child); !errors.Is(err, ErrAttached) {
		t.Errorf("Expected ErrAttached, got %v", err)
	}
	if err := b.RemoveChild(parent, 0); err != nil {
		t.Fatal(err)
	}
	if err := b.Destroy(child); err != nil {
		t.Fatal(err)
	}
	if err := b.SetText(child, "y"); !errors.Is(err, ErrDestroyed) {
		t.Errorf("Expected ErrDestroyed, got %v", err)
	}
	if err := b.SetText("bogus", "y"); !errors.Is(err, ErrForeignHandle) {
		t.Errorf("Expected ErrForeignHandle, got %v", err)
	}
}

func TestFailInjection(t *testing.T) {
	b := NewBinding()
	boom := errors.New("boom")
	b.Fail = func(method string) error {
		if method == "CreateText" {
			return boom
		}
		return nil
	}
	if _, err := b.CreateText("x"); !errors.Is(err, boom) {
		t.Errorf("Expected injected failure, got %v", err)
	}
	if _, err := b.CreateElement("", "p"); err != nil {
		t.Errorf("Expected CreateElement to succeed, got %v", err)
	}
}

func TestRenderAssertions(t *testing.T) {
	n := counterView(3)
	ExpectContains(t, n, "<span>3</span>")
	ExpectNotContains(t, n, "on:click")
	ExpectAttribute(t, n, "id", "inc")
}
