// Package event routes native events raised by a rendering target back into
// program messages.
//
// Every listener installed on a live node is bound to a Chain: the list of
// message taggers collected while descending through Tagged nodes, plus the
// sink of the owning program. When the target raises an event, the listener's
// decoder turns it into a message, the native event is told whether to stop
// propagation or prevent its default action, and the message is folded
// through the chain from the innermost tagger outward before it reaches the
// sink.
//
// Decode failures never propagate to the caller. The event is dropped and the
// failure is reported to the router's error hook, which logs it by default.
package event
