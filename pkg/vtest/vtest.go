package vtest

import (
	"strings"
	"sync"
	"testing"

	"github.com/vango-dev/retain/pkg/event"
	"github.com/vango-dev/retain/pkg/live"
	"github.com/vango-dev/retain/pkg/render"
	"github.com/vango-dev/retain/pkg/vdom"
)

// Harness is a tree mounted on a recording binding whose events are
// collected instead of delivered to a runtime.
type Harness struct {
	Binding *Binding
	Tree    *live.Tree

	t    testing.TB
	mu   sync.Mutex
	msgs []any
}

// Mount mounts node on a fresh Binding. The tree is unmounted when the
// test ends.
//
// Example:
//
//	h := vtest.Mount(t, view(model))
//	h.Fire(h.Binding.ByID("inc"), "click", &vtest.Event{})
//	h.Update(view(next))
func Mount(t testing.TB, node *vdom.Node) *Harness {
	t.Helper()
	h := &Harness{Binding: NewBinding(), t: t}
	router := event.NewRouter(h.collect)
	tree, err := live.Mount(h.Binding, router, node)
	if err != nil {
		t.Fatalf("mount: %v", err)
	}
	h.Tree = tree
	t.Cleanup(func() { _ = tree.Unmount() })
	return h
}

func (h *Harness) collect(msg any) {
	h.mu.Lock()
	h.msgs = append(h.msgs, msg)
	h.mu.Unlock()
}

// Update diffs prev against next and applies the patch, failing the test
// on error.
func (h *Harness) Update(prev, next *vdom.Node) vdom.Patch {
	h.t.Helper()
	p := vdom.Diff(prev, next)
	if err := h.Tree.Apply(p); err != nil {
		h.t.Fatalf("apply: %v", err)
	}
	return p
}

// Fire dispatches an event on n and fails the test when n has no listener
// for it.
func (h *Harness) Fire(n *Node, name string, native any) {
	h.t.Helper()
	if n == nil {
		h.t.Fatalf("fire %s: node not found", name)
	}
	if !h.Binding.Fire(n, name, native) {
		h.t.Fatalf("fire %s: no listener on <%s>", name, n.Tag)
	}
}

// Messages returns and clears the messages delivered so far.
func (h *Harness) Messages() []any {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := h.msgs
	h.msgs = nil
	return out
}

// ExpectSnapshot asserts the live tree serializes to want.
func (h *Harness) ExpectSnapshot(want string) {
	h.t.Helper()
	if got := h.Binding.Snapshot(); got != want {
		h.t.Errorf("expected live tree\n  %s\ngot\n  %s", want, got)
	}
}

// RenderToString renders a node and returns the HTML string.
// Rendering errors yield an empty string.
//
// Example:
//
//	html := vtest.RenderToString(view(model))
func RenderToString(node *vdom.Node) string {
	r := render.NewRenderer(render.RendererConfig{})
	html, err := r.RenderToString(node)
	if err != nil {
		return ""
	}
	return html
}

// ExpectContains asserts that rendered output contains expected substring.
//
// Example:
//
//	vtest.ExpectContains(t, view(model), "3 items left")
func ExpectContains(t testing.TB, node *vdom.Node, expected string) {
	t.Helper()
	html := RenderToString(node)
	if !strings.Contains(html, expected) {
		t.Errorf("expected rendered output to contain %q, got:\n%s", expected, truncate(html, 500))
	}
}

// ExpectNotContains asserts that rendered output does not contain substring.
func ExpectNotContains(t testing.TB, node *vdom.Node, unexpected string) {
	t.Helper()
	html := RenderToString(node)
	if strings.Contains(html, unexpected) {
		t.Errorf("expected rendered output to NOT contain %q, got:\n%s", unexpected, truncate(html, 500))
	}
}

// ExpectAttribute asserts that rendered output contains an attribute value.
func ExpectAttribute(t testing.TB, node *vdom.Node, attr, value string) {
	t.Helper()
	html := RenderToString(node)
	needle := attr + `="` + value + `"`
	if !strings.Contains(html, needle) {
		t.Errorf("expected attribute %s=%q not found, got:\n%s", attr, value, truncate(html, 500))
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
