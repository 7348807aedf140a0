// Package program runs retained-mode applications.
//
// A Program supplies four pure functions: Init builds the first model,
// Update folds a message into the model, View describes the UI for a model
// and Subscriptions lists the external sources the model wants to hear from.
// A Runtime owns one instance of a program: it keeps the current model and
// the last rendered tree, mounts the tree through a live.Binding, and runs
// a serial loop that takes one message at a time from its queue, updates,
// diffs, patches and reconciles subscriptions before dispatching the
// commands the update returned.
//
// # Sending messages
//
// Send may be called from any goroutine. Native events routed through the
// live tree, command results and subscription messages all arrive through
// the same FIFO queue, so Update never runs concurrently and always sees
// the model produced by the previous message.
//
// # Coalescing
//
// With WithCoalescing, every message already queued when the loop wakes up
// is folded through Update in order and the view is rendered once for the
// final model.
//
// # Failure
//
// A panic in Update or View drops the message and keeps the model; it is
// logged and counted. Binding failures and subscription install or
// uninstall failures stop the runtime: Run returns them as *RuntimeError.
package program
