package vtest

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/vango-dev/retain/pkg/live"
)

// Errors returned by Binding for operations a real target would reject.
var (
	ErrDestroyed     = errors.New("vtest: node was destroyed")
	ErrAttached      = errors.New("vtest: node is still attached")
	ErrOutOfRange    = errors.New("vtest: child index out of range")
	ErrNotElement    = errors.New("vtest: node is not an element")
	ErrForeignHandle = errors.New("vtest: handle was not issued by this binding")
)

// Node is an in-memory live node.
type Node struct {
	Namespace string
	Tag       string
	Text      string
	IsText    bool

	Attrs     map[string]string // keyed by name, or namespace+" "+name
	Styles    map[string]string
	Props     map[string]any
	Listeners map[string]live.Callback

	Children []*Node
	Parent   *Node

	destroyed bool
}

// Call is one recorded Binding call.
type Call struct {
	Method string
	Name   string
	From   int
	To     int
}

// Binding is an in-memory live.Binding that records every call. It is safe
// for concurrent use, so events can be fired from other goroutines.
type Binding struct {
	mu      sync.Mutex
	root    *Node
	calls   []Call
	flushes int
	live    int

	// Fail, when set, is consulted before every call; a non-nil result
	// fails the call.
	Fail func(method string) error
}

// NewBinding creates an empty recording binding.
func NewBinding() *Binding {
	return &Binding{}
}

// Root returns the current root node.
func (b *Binding) Root() *Node {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.root
}

// Calls returns the recorded calls.
func (b *Binding) Calls() []Call {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Call, len(b.calls))
	copy(out, b.calls)
	return out
}

// CountCalls returns how many recorded calls used method.
func (b *Binding) CountCalls(method string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, c := range b.calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

// Reset clears the call log.
func (b *Binding) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = nil
}

// Flushes returns how many times Flush was called.
func (b *Binding) Flushes() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.flushes
}

// Live returns the number of created nodes not yet destroyed.
func (b *Binding) Live() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.live
}

func (b *Binding) record(c Call) error {
	if b.Fail != nil {
		if err := b.Fail(c.Method); err != nil {
			return err
		}
	}
	b.calls = append(b.calls, c)
	return nil
}

func (b *Binding) node(h live.Handle) (*Node, error) {
	n, ok := h.(*Node)
	if !ok || n == nil {
		return nil, ErrForeignHandle
	}
	if n.destroyed {
		return nil, ErrDestroyed
	}
	return n, nil
}

func (b *Binding) element(h live.Handle) (*Node, error) {
	n, err := b.node(h)
	if err != nil {
		return nil, err
	}
	if n.IsText {
		return nil, ErrNotElement
	}
	return n, nil
}

// CreateElement implements live.Binding.
func (b *Binding) CreateElement(namespace, tag string) (live.Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record(Call{Method: "CreateElement", Name: tag}); err != nil {
		return nil, err
	}
	b.live++
	return &Node{
		Namespace: namespace,
		Tag:       tag,
		Attrs:     make(map[string]string),
		Styles:    make(map[string]string),
		Props:     make(map[string]any),
		Listeners: make(map[string]live.Callback),
	}, nil
}

// CreateText implements live.Binding.
func (b *Binding) CreateText(text string) (live.Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record(Call{Method: "CreateText", Name: text}); err != nil {
		return nil, err
	}
	b.live++
	return &Node{IsText: true, Text: text}, nil
}

// Destroy implements live.Binding.
func (b *Binding) Destroy(h live.Handle) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	n, err := b.node(h)
	if err != nil {
		return err
	}
	if n.Parent != nil {
		return ErrAttached
	}
	if err := b.record(Call{Method: "Destroy"}); err != nil {
		return err
	}
	if b.root == n {
		b.root = nil
	}
	b.destroy(n)
	return nil
}

func (b *Binding) destroy(n *Node) {
	n.destroyed = true
	n.Listeners = nil
	b.live--
	for _, c := range n.Children {
		b.destroy(c)
	}
}

// SetText implements live.Binding.
func (b *Binding) SetText(h live.Handle, text string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	n, err := b.node(h)
	if err != nil {
		return err
	}
	if !n.IsText {
		return fmt.Errorf("vtest: set text on <%s>", n.Tag)
	}
	if err := b.record(Call{Method: "SetText", Name: text}); err != nil {
		return err
	}
	n.Text = text
	return nil
}

func attrKey(namespace, name string) string {
	if namespace == "" {
		return name
	}
	return namespace + " " + name
}

// SetAttribute implements live.Binding.
func (b *Binding) SetAttribute(h live.Handle, namespace, name, value string) error {
	return b.mutate(h, Call{Method: "SetAttribute", Name: name}, func(n *Node) {
		n.Attrs[attrKey(namespace, name)] = value
	})
}

// RemoveAttribute implements live.Binding.
func (b *Binding) RemoveAttribute(h live.Handle, namespace, name string) error {
	return b.mutate(h, Call{Method: "RemoveAttribute", Name: name}, func(n *Node) {
		delete(n.Attrs, attrKey(namespace, name))
	})
}

// SetStyle implements live.Binding.
func (b *Binding) SetStyle(h live.Handle, name, value string) error {
	return b.mutate(h, Call{Method: "SetStyle", Name: name}, func(n *Node) {
		n.Styles[name] = value
	})
}

// RemoveStyle implements live.Binding.
func (b *Binding) RemoveStyle(h live.Handle, name string) error {
	return b.mutate(h, Call{Method: "RemoveStyle", Name: name}, func(n *Node) {
		delete(n.Styles, name)
	})
}

// SetProperty implements live.Binding.
func (b *Binding) SetProperty(h live.Handle, name string, value any) error {
	return b.mutate(h, Call{Method: "SetProperty", Name: name}, func(n *Node) {
		n.Props[name] = value
	})
}

// RemoveProperty implements live.Binding.
func (b *Binding) RemoveProperty(h live.Handle, name string) error {
	return b.mutate(h, Call{Method: "RemoveProperty", Name: name}, func(n *Node) {
		delete(n.Props, name)
	})
}

// SetListener implements live.Binding.
func (b *Binding) SetListener(h live.Handle, event string, cb live.Callback) error {
	return b.mutate(h, Call{Method: "SetListener", Name: event}, func(n *Node) {
		n.Listeners[event] = cb
	})
}

// RemoveListener implements live.Binding.
func (b *Binding) RemoveListener(h live.Handle, event string) error {
	return b.mutate(h, Call{Method: "RemoveListener", Name: event}, func(n *Node) {
		delete(n.Listeners, event)
	})
}

func (b *Binding) mutate(h live.Handle, c Call, fn func(*Node)) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	n, err := b.element(h)
	if err != nil {
		return err
	}
	if err := b.record(c); err != nil {
		return err
	}
	fn(n)
	return nil
}

// InsertChild implements live.Binding.
func (b *Binding) InsertChild(parent live.Handle, index int, child live.Handle) error {
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
	if c.Parent != nil {
		return ErrAttached
	}
	if index < 0 || index > len(p.Children) {
		return fmt.Errorf("%w: insert at %d of %d", ErrOutOfRange, index, len(p.Children))
	}
	if err := b.record(Call{Method: "InsertChild", To: index}); err != nil {
		return err
	}
	p.Children = append(p.Children, nil)
	copy(p.Children[index+1:], p.Children[index:])
	p.Children[index] = c
	c.Parent = p
	return nil
}

// RemoveChild implements live.Binding.
func (b *Binding) RemoveChild(parent live.Handle, index int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, err := b.element(parent)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(p.Children) {
		return fmt.Errorf("%w: remove %d of %d", ErrOutOfRange, index, len(p.Children))
	}
	if err := b.record(Call{Method: "RemoveChild", From: index}); err != nil {
		return err
	}
	p.Children[index].Parent = nil
	p.Children = append(p.Children[:index], p.Children[index+1:]...)
	return nil
}

// MoveChild implements live.Binding. to is counted after the child was
// taken out.
func (b *Binding) MoveChild(parent live.Handle, from, to int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, err := b.element(parent)
	if err != nil {
		return err
	}
	if from < 0 || from >= len(p.Children) || to < 0 || to >= len(p.Children) {
		return fmt.Errorf("%w: move %d to %d of %d", ErrOutOfRange, from, to, len(p.Children))
	}
	if err := b.record(Call{Method: "MoveChild", From: from, To: to}); err != nil {
		return err
	}
	c := p.Children[from]
	p.Children = append(p.Children[:from], p.Children[from+1:]...)
	p.Children = append(p.Children, nil)
	copy(p.Children[to+1:], p.Children[to:])
	p.Children[to] = c
	return nil
}

// SetRoot implements live.Binding.
func (b *Binding) SetRoot(h live.Handle) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	n, err := b.node(h)
	if err != nil {
		return err
	}
	if err := b.record(Call{Method: "SetRoot"}); err != nil {
		return err
	}
	b.root = n
	return nil
}

// Flush implements live.Flusher.
func (b *Binding) Flush() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.flushes++
	return nil
}

// Fire invokes the listener for event on n. It reports false when n has no
// such listener.
func (b *Binding) Fire(n *Node, event string, native any) bool {
	b.mu.Lock()
	var cb live.Callback
	if n != nil && !n.destroyed {
		cb = n.Listeners[event]
	}
	b.mu.Unlock()
	if cb == nil {
		return false
	}
	cb(native)
	return true
}

// Find returns the first node in document order matching fn.
func (b *Binding) Find(fn func(*Node) bool) *Node {
	b.mu.Lock()
	defer b.mu.Unlock()
	return find(b.root, fn)
}

// ByID returns the element whose id attribute is id.
func (b *Binding) ByID(id string) *Node {
	return b.Find(func(n *Node) bool { return !n.IsText && n.Attrs["id"] == id })
}

// ByTag returns the first element with the given tag.
func (b *Binding) ByTag(tag string) *Node {
	return b.Find(func(n *Node) bool { return !n.IsText && n.Tag == tag })
}

func find(n *Node, fn func(*Node) bool) *Node {
	if n == nil {
		return nil
	}
	if fn(n) {
		return n
	}
	for _, c := range n.Children {
		if m := find(c, fn); m != nil {
			return m
		}
	}
	return nil
}

// Snapshot serializes the live tree deterministically. Attributes, styles
// and properties are sorted; listeners appear as on:event markers.
func (b *Binding) Snapshot() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var sb strings.Builder
	snapshot(&sb, b.root)
	return sb.String()
}

func snapshot(sb *strings.Builder, n *Node) {
	if n == nil {
		return
	}
	if n.IsText {
		sb.WriteString(n.Text)
		return
	}
	sb.WriteByte('<')
	if n.Namespace != "" {
		sb.WriteString(n.Namespace)
		sb.WriteByte('|')
	}
	sb.WriteString(n.Tag)
	for _, k := range sortedKeys(n.Attrs) {
		fmt.Fprintf(sb, " %s=%q", k, n.Attrs[k])
	}
	if len(n.Styles) > 0 {
		sb.WriteString(` style="`)
		for _, k := range sortedKeys(n.Styles) {
			fmt.Fprintf(sb, "%s:%s;", k, n.Styles[k])
		}
		sb.WriteByte('"')
	}
	for _, k := range sortedKeys(n.Props) {
		fmt.Fprintf(sb, " .%s=%v", k, n.Props[k])
	}
	for _, k := range sortedKeys(n.Listeners) {
		fmt.Fprintf(sb, " on:%s", k)
	}
	sb.WriteByte('>')
	for _, c := range n.Children {
		snapshot(sb, c)
	}
	sb.WriteString("</")
	sb.WriteString(n.Tag)
	sb.WriteByte('>')
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Event is a native event for Fire. It records the flags applied by the
// event router.
type Event struct {
	Value string

	Stopped   bool
	Prevented bool
}

// TargetValue returns the value of the event target.
func (e *Event) TargetValue() (string, bool) { return e.Value, true }

// StopPropagation marks the event as stopped.
func (e *Event) StopPropagation() { e.Stopped = true }

// PreventDefault marks the event as prevented.
func (e *Event) PreventDefault() { e.Prevented = true }
