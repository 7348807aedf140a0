// Package vtest provides test doubles and assertions for retain trees.
//
// Binding is an in-memory live.Binding that validates every call the
// patch applier makes and records it, so tests can assert both the
// resulting tree and the exact host operations that produced it:
//
//	b := vtest.NewBinding()
//	tree, err := live.Mount(b, event.NewRouter(sink), view(model))
//	...
//	if b.CountCalls("MoveChild") != 1 { ... }
//
// Harness wraps the same setup and collects routed messages:
//
//	h := vtest.Mount(t, view(model))
//	h.Fire(h.Binding.ByTag("button"), "click", &vtest.Event{})
//	msgs := h.Messages()
//
// The render assertions check server-rendered HTML:
//
//	vtest.ExpectContains(t, view(model), "Welcome")
package vtest
