// Package vdom provides the immutable node model and the diff engine.
//
// A Node describes a UI tree that has not been bound to a live rendering
// target. Application code rebuilds the tree on every state change; Diff
// compares the previously rendered tree with the new one and returns a
// Patch, the data form of the mutations that bring a live target from one
// tree to the other. The live package interprets patches.
//
// # Node Kinds
//
// There are four kinds of node:
//
//   - Text holds a string.
//   - Element holds a tag, an optional namespace, properties and children.
//     Children are either a plain ordered list or a keyed list with unique keys.
//   - Thunk defers a subtree behind a function and up to three arguments.
//     Two thunks with the same function and equal arguments are never diffed.
//   - Tagged wraps a subtree and transforms every message it produces.
//
// # Element API
//
// Elements are created using variadic factory functions:
//
//	Div(Class("card"), ID("main"),
//	    H1(Text("Title")),
//	    Button(OnClick(Increment{}), Text("+")),
//	)
//
// Keyed children are passed with Key:
//
//	Ul(Key("a", Li(Text("A"))), Key("b", Li(Text("B"))))
//
// # Diffing
//
// Diff never fails. Duplicate keys inside one keyed list are a caller error
// and produce unspecified patches. Nodes must not be mutated after they are
// built; they are shared freely between trees.
package vdom
