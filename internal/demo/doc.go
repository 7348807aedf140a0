// Package demo holds the todo list program served and rendered by the
// retain command.
//
// The program exercises the pieces a real application leans on: a keyed
// list of memoized rows, a filter bar with its own message type lifted
// with vdom.Map, and a clock subscription that is only installed while
// the clock is shown.
package demo
