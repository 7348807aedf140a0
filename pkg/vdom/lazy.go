package vdom

// Lazy defers fn(a) until the node is first rendered or diffed.
//
// When the previous tree holds a Lazy node built from the same fn with an
// equal argument, the subtree is skipped without calling fn. Arguments are
// compared by value for comparable types and by identity for pointers,
// maps, slices, channels and functions. A function is the same only when
// it is the same function value: a top-level function or a literal without
// captures matches itself across renders, while a capturing closure built
// anew on each render never matches and always re-evaluates. fn must be
// pure.
func Lazy[A any](fn func(A) *Node, a A) *Node {
	return newThunk(fn, []any{a}, func() *Node { return fn(a) })
}

// Lazy2 is Lazy for two arguments.
func Lazy2[A, B any](fn func(A, B) *Node, a A, b B) *Node {
	return newThunk(fn, []any{a, b}, func() *Node { return fn(a, b) })
}

// Lazy3 is Lazy for three arguments.
func Lazy3[A, B, C any](fn func(A, B, C) *Node, a A, b B, c C) *Node {
	return newThunk(fn, []any{a, b, c}, func() *Node { return fn(a, b, c) })
}
