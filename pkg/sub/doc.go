// Package sub manages subscriptions: long-running external event sources a
// program listens to while its model asks for them.
//
// A Descriptor names a source by key and knows how to run it. The Manager
// runs each installed descriptor on its own goroutine and guarantees that
// once Uninstall returns, the source can no longer deliver messages.
package sub
