// Package live applies vdom patches to a live rendering target.
//
// The target is reached through a Binding, which realizes primitive
// operations (create a node, set an attribute, move a child) against a real
// widget tree, DOM, or remote client. A Tree keeps a shadow of the live
// structure: one entry per tree position holding the live handle, the event
// chains of its Tagged layers, and its installed listeners. Patches are
// applied to that shadow in order, forwarding each primitive to the Binding.
//
// Listeners are installed once per element and event name. Later updates
// swap the handler inside the installed callback, so a replaced listener can
// never fire after its replacement was applied. Removed and destroyed nodes
// have their callbacks disabled before the Binding is told about it.
//
// A Tree is not safe for concurrent use. Callbacks installed on the Binding
// may be invoked from any goroutine.
package live
