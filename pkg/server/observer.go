package server

import "github.com/vango-dev/retain/pkg/protocol"

// Observer receives session traffic notifications. Methods are called from
// session goroutines and must be safe for concurrent use.
type Observer interface {
	FrameSent(t protocol.FrameType)
	EventReceived(delivered bool)
	HandshakeRejected(status protocol.HandshakeStatus)
	WebSocketError(err error)
}

type nopObserver struct{}

func (nopObserver) FrameSent(protocol.FrameType)               {}
func (nopObserver) EventReceived(bool)                         {}
func (nopObserver) HandshakeRejected(protocol.HandshakeStatus) {}
func (nopObserver) WebSocketError(error)                       {}
