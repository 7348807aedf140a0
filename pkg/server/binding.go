package server

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/vango-dev/retain/pkg/live"
	"github.com/vango-dev/retain/pkg/protocol"
)

// NodeID identifies a node on the remote host.
type NodeID uint32

type remoteNode struct {
	id        NodeID
	text      bool
	parent    *remoteNode
	children  []*remoteNode
	listeners map[string]live.Callback
}

// SendFunc ships one batch of host operations. initial is true for the
// first batch of a binding.
type SendFunc func(batch *protocol.Ops, initial bool) error

// RemoteBinding is a live.Binding that records operations for a remote host
// and sends them as one batch per Flush. It keeps enough of the tree to
// validate indices and to route incoming events to listeners.
type RemoteBinding struct {
	mu      sync.Mutex
	send    SendFunc
	nodes   map[NodeID]*remoteNode
	next    NodeID
	root    *remoteNode
	pending []protocol.HostOp
	seq     uint64
}

// NewRemoteBinding creates a binding shipping its batches through send.
func NewRemoteBinding(send SendFunc) *RemoteBinding {
	return &RemoteBinding{
		send:  send,
		nodes: make(map[NodeID]*remoteNode),
	}
}

// Live returns the number of nodes not yet destroyed.
func (b *RemoteBinding) Live() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.nodes)
}

// Seq returns the sequence number of the last batch sent.
func (b *RemoteBinding) Seq() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.seq
}

func (b *RemoteBinding) node(h live.Handle) (*remoteNode, error) {
	id, ok := h.(NodeID)
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrUnknownNode, h)
	}
	n, ok := b.nodes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownNode, id)
	}
	return n, nil
}

func (b *RemoteBinding) element(h live.Handle) (*remoteNode, error) {
	n, err := b.node(h)
	if err != nil {
		return nil, err
	}
	if n.text {
		return nil, fmt.Errorf("%w: %d", ErrNotElement, n.id)
	}
	return n, nil
}

func (b *RemoteBinding) create(text bool, op protocol.HostOp) live.Handle {
	b.next++
	n := &remoteNode{id: b.next, text: text}
	b.nodes[n.id] = n
	op.Target = uint32(n.id)
	b.pending = append(b.pending, op)
	return n.id
}

// CreateElement implements live.Binding.
func (b *RemoteBinding) CreateElement(namespace, tag string) (live.Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.create(false, protocol.HostOp{Code: protocol.OpCreateElement, Namespace: namespace, Name: tag}), nil
}

// CreateText implements live.Binding.
func (b *RemoteBinding) CreateText(text string) (live.Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.create(true, protocol.HostOp{Code: protocol.OpCreateText, Value: text}), nil
}

// Destroy implements live.Binding.
func (b *RemoteBinding) Destroy(h live.Handle) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	n, err := b.node(h)
	if err != nil {
		return err
	}
	if n.parent != nil {
		return fmt.Errorf("%w: %d", ErrAttached, n.id)
	}
	if b.root == n {
		b.root = nil
	}
	b.forget(n)
	b.pending = append(b.pending, protocol.HostOp{Code: protocol.OpDestroy, Target: uint32(n.id)})
	return nil
}

func (b *RemoteBinding) forget(n *remoteNode) {
	delete(b.nodes, n.id)
	for _, c := range n.children {
		b.forget(c)
	}
}

// SetText implements live.Binding.
func (b *RemoteBinding) SetText(h live.Handle, text string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	n, err := b.node(h)
	if err != nil {
		return err
	}
	if !n.text {
		return fmt.Errorf("server: set text on element %d", n.id)
	}
	b.pending = append(b.pending, protocol.HostOp{Code: protocol.OpSetText, Target: uint32(n.id), Value: text})
	return nil
}

// push records op for an element after validating h.
func (b *RemoteBinding) push(h live.Handle, op protocol.HostOp) (*remoteNode, error) {
	n, err := b.element(h)
	if err != nil {
		return nil, err
	}
	op.Target = uint32(n.id)
	b.pending = append(b.pending, op)
	return n, nil
}

// SetAttribute implements live.Binding.
func (b *RemoteBinding) SetAttribute(h live.Handle, namespace, name, value string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, err := b.push(h, protocol.HostOp{Code: protocol.OpSetAttribute, Namespace: namespace, Name: name, Value: value})
	return err
}

// RemoveAttribute implements live.Binding.
func (b *RemoteBinding) RemoveAttribute(h live.Handle, namespace, name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, err := b.push(h, protocol.HostOp{Code: protocol.OpRemoveAttr, Namespace: namespace, Name: name})
	return err
}

// SetStyle implements live.Binding.
func (b *RemoteBinding) SetStyle(h live.Handle, name, value string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, err := b.push(h, protocol.HostOp{Code: protocol.OpSetStyle, Name: name, Value: value})
	return err
}

// RemoveStyle implements live.Binding.
func (b *RemoteBinding) RemoveStyle(h live.Handle, name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, err := b.push(h, protocol.HostOp{Code: protocol.OpRemoveStyle, Name: name})
	return err
}

// SetProperty implements live.Binding. The value is sent as JSON.
func (b *RemoteBinding) SetProperty(h live.Handle, name string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("server: property %s: %w", name, err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	_, err = b.push(h, protocol.HostOp{Code: protocol.OpSetProperty, Name: name, Data: data})
	return err
}

// RemoveProperty implements live.Binding.
func (b *RemoteBinding) RemoveProperty(h live.Handle, name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, err := b.push(h, protocol.HostOp{Code: protocol.OpRemoveProperty, Name: name})
	return err
}

// SetListener implements live.Binding.
func (b *RemoteBinding) SetListener(h live.Handle, event string, cb live.Callback) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	n, err := b.push(h, protocol.HostOp{Code: protocol.OpSetListener, Name: event})
	if err != nil {
		return err
	}
	if n.listeners == nil {
		n.listeners = make(map[string]live.Callback)
	}
	n.listeners[event] = cb
	return nil
}

// RemoveListener implements live.Binding.
func (b *RemoteBinding) RemoveListener(h live.Handle, event string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	n, err := b.push(h, protocol.HostOp{Code: protocol.OpRemoveListener, Name: event})
	if err != nil {
		return err
	}
	delete(n.listeners, event)
	return nil
}

// InsertChild implements live.Binding.
func (b *RemoteBinding) InsertChild(parent live.Handle, index int, child live.Handle) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, err := b.element(parent)
	if err != nil {
		return err
	}
	c, err := b.node(child)
	if err != nil {
		return err
	}
	if c.parent != nil {
		return fmt.Errorf("%w: %d", ErrAttached, c.id)
	}
	if index < 0 || index > len(p.children) {
		return fmt.Errorf("%w: insert at %d of %d", ErrOutOfRange, index, len(p.children))
	}
	p.children = append(p.children, nil)
	copy(p.children[index+1:], p.children[index:])
	p.children[index] = c
	c.parent = p
	b.pending = append(b.pending, protocol.HostOp{Code: protocol.OpInsertChild, Target: uint32(p.id), Index: index, Child: uint32(c.id)})
	return nil
}

// RemoveChild implements live.Binding.
func (b *RemoteBinding) RemoveChild(parent live.Handle, index int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, err := b.element(parent)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(p.children) {
		return fmt.Errorf("%w: remove %d of %d", ErrOutOfRange, index, len(p.children))
	}
	p.children[index].parent = nil
	p.children = append(p.children[:index], p.children[index+1:]...)
	b.pending = append(b.pending, protocol.HostOp{Code: protocol.OpRemoveChild, Target: uint32(p.id), Index: index})
	return nil
}

// MoveChild implements live.Binding. to is counted after the child was
// taken out.
func (b *RemoteBinding) MoveChild(parent live.Handle, from, to int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, err := b.element(parent)
	if err != nil {
		return err
	}
	if from < 0 || from >= len(p.children) || to < 0 || to >= len(p.children) {
		return fmt.Errorf("%w: move %d to %d of %d", ErrOutOfRange, from, to, len(p.children))
	}
	c := p.children[from]
	p.children = append(p.children[:from], p.children[from+1:]...)
	p.children = append(p.children, nil)
	copy(p.children[to+1:], p.children[to:])
	p.children[to] = c
	b.pending = append(b.pending, protocol.HostOp{Code: protocol.OpMoveChild, Target: uint32(p.id), Index: from, To: to})
	return nil
}

// SetRoot implements live.Binding.
func (b *RemoteBinding) SetRoot(h live.Handle) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	n, err := b.node(h)
	if err != nil {
		return err
	}
	b.root = n
	b.pending = append(b.pending, protocol.HostOp{Code: protocol.OpSetRoot, Target: uint32(n.id)})
	return nil
}

// Flush implements live.Flusher. Nothing is sent when no operation is
// pending.
func (b *RemoteBinding) Flush() error {
	b.mu.Lock()
	if len(b.pending) == 0 {
		b.mu.Unlock()
		return nil
	}
	b.seq++
	batch := &protocol.Ops{Seq: b.seq, Ops: b.pending}
	initial := b.seq == 1
	b.pending = nil
	b.mu.Unlock()

	return b.send(batch, initial)
}

// Dispatch routes a host event to the listener installed for it.
func (b *RemoteBinding) Dispatch(ev *protocol.Event) error {
	b.mu.Lock()
	n, ok := b.nodes[NodeID(ev.Target)]
	var cb live.Callback
	if ok {
		cb = n.listeners[ev.Name]
	}
	b.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownNode, ev.Target)
	}
	if cb == nil {
		return fmt.Errorf("%w: %s on %d", ErrNoListener, ev.Name, ev.Target)
	}

	native, err := NewNativeEvent(ev)
	if err != nil {
		return err
	}
	cb(native)
	return nil
}
