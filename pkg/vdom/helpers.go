package vdom

import "fmt"

// Textf creates a formatted text node.
func Textf(format string, args ...any) *Node {
	return Text(fmt.Sprintf(format, args...))
}

// If returns the node if condition is true, nil otherwise.
func If(condition bool, node *Node) *Node {
	if condition {
		return node
	}
	return nil
}

// IfElse returns the first node if condition is true, the second otherwise.
func IfElse(condition bool, ifTrue, ifFalse *Node) *Node {
	if condition {
		return ifTrue
	}
	return ifFalse
}

// When is like If but with lazy evaluation.
// The function is only called if condition is true.
func When(condition bool, fn func() *Node) *Node {
	if condition {
		return fn()
	}
	return nil
}

// Range maps items to child nodes.
func Range[T any](items []T, fn func(int, T) *Node) []*Node {
	out := make([]*Node, 0, len(items))
	for i, item := range items {
		if n := fn(i, item); n != nil {
			out = append(out, n)
		}
	}
	return out
}

// RangeKeyed maps items to keyed children.
func RangeKeyed[T any](items []T, key func(T) string, fn func(int, T) *Node) []KeyedChild {
	out := make([]KeyedChild, 0, len(items))
	for i, item := range items {
		if n := fn(i, item); n != nil {
			out = append(out, Key(key(item), n))
		}
	}
	return out
}
