package vdom

import (
	"reflect"
	"strconv"
	"sync"
	"sync/atomic"
	"unsafe"
)

// Kind is the node type discriminator.
type Kind uint8

const (
	KindText    Kind = iota // Plain text node
	KindElement             // <div>, <button>, etc.
	KindThunk               // Deferred subtree
	KindTagged              // Message transform over a subtree
)

// String returns the string representation of the Kind.
func (k Kind) String() string {
	switch k {
	case KindText:
		return "Text"
	case KindElement:
		return "Element"
	case KindThunk:
		return "Thunk"
	case KindTagged:
		return "Tagged"
	default:
		return "Unknown"
	}
}

// Node is an immutable virtual tree node.
//
// Fields are exported for interpreters (the live applier, the HTML
// renderer, wire codecs). They must not be written after construction.
type Node struct {
	Kind      Kind
	Tag       string   // Element tag name
	Namespace string   // Element namespace, empty for HTML
	Props     []Prop   // Element properties in declaration order
	Children  []*Node  // Element children
	Keys      []string // Parallel to Children when Keyed
	Keyed     bool     // Children are reconciled by key
	Text      string   // For KindText

	Inner  *Node   // For KindTagged
	Tagger *Tagger // For KindTagged

	thunk *thunk // For KindThunk
}

// Text creates a text node.
func Text(content string) *Node {
	return &Node{Kind: KindText, Text: content}
}

// Element creates an element with plain children.
func Element(tag string, props []Prop, children []*Node) *Node {
	return ElementNS("", tag, props, children)
}

// ElementNS creates a namespaced element with plain children.
func ElementNS(namespace, tag string, props []Prop, children []*Node) *Node {
	return &Node{
		Kind:      KindElement,
		Tag:       tag,
		Namespace: namespace,
		Props:     normalizeProps(props),
		Children:  children,
	}
}

// KeyedChild pairs a child node with its reconciliation key.
type KeyedChild struct {
	Key  string
	Node *Node
}

// Key creates a KeyedChild. Passing one to an element factory makes the
// element's child list keyed.
func Key(key string, node *Node) KeyedChild {
	return KeyedChild{Key: key, Node: node}
}

// KeyedElement creates an element whose children are reconciled by key.
// Keys must be unique within the list.
func KeyedElement(tag string, props []Prop, children []KeyedChild) *Node {
	return KeyedElementNS("", tag, props, children)
}

// KeyedElementNS creates a namespaced element with keyed children.
func KeyedElementNS(namespace, tag string, props []Prop, children []KeyedChild) *Node {
	n := &Node{
		Kind:      KindElement,
		Tag:       tag,
		Namespace: namespace,
		Props:     normalizeProps(props),
		Children:  make([]*Node, 0, len(children)),
		Keys:      make([]string, 0, len(children)),
		Keyed:     true,
	}
	for _, c := range children {
		if c.Node == nil {
			continue
		}
		n.Children = append(n.Children, c.Node)
		n.Keys = append(n.Keys, c.Key)
	}
	return n
}

// Force returns the node a thunk stands for, evaluating it at most once.
// Any other node is returned unchanged.
func (n *Node) Force() *Node {
	if n == nil || n.Kind != KindThunk {
		return n
	}
	return n.thunk.force()
}

// Forced reports whether a thunk has already been evaluated.
// It is always true for other kinds.
func (n *Node) Forced() bool {
	if n == nil || n.Kind != KindThunk {
		return true
	}
	return n.thunk.done.Load()
}

// thunk is the memo cell behind a KindThunk node.
type thunk struct {
	fn   uintptr // funcRef of the producing function
	args []any
	eval func() *Node

	once   sync.Once
	done   atomic.Bool
	cached *Node
}

func newThunk(fn any, args []any, eval func() *Node) *Node {
	return &Node{
		Kind: KindThunk,
		thunk: &thunk{
			fn:   funcRef(fn),
			args: args,
			eval: eval,
		},
	}
}

func (t *thunk) force() *Node {
	t.once.Do(func() {
		t.cached = t.eval()
		t.done.Store(true)
	})
	return t.cached
}

// adopt hands an already evaluated subtree from prev to t without calling
// the producing function. It is a no-op when prev was never evaluated.
func (t *thunk) adopt(prev *thunk) {
	if !prev.done.Load() {
		return
	}
	t.once.Do(func() {
		t.cached = prev.cached
		t.done.Store(true)
	})
}

// sameAs reports whether both thunks come from the same function applied
// to equal arguments.
func (t *thunk) sameAs(o *thunk) bool {
	if t.fn != o.fn || len(t.args) != len(o.args) {
		return false
	}
	for i := range t.args {
		if !argEqual(t.args[i], o.args[i]) {
			return false
		}
	}
	return true
}

// argEqual compares thunk arguments. Functions compare by funcRef, other
// reference kinds by identity, comparable values by ==, and everything else
// is unequal.
func argEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Type() != vb.Type() {
		return false
	}
	switch va.Kind() {
	case reflect.Func:
		return funcRef(a) == funcRef(b)
	case reflect.Pointer, reflect.Map, reflect.Chan, reflect.UnsafePointer:
		return va.Pointer() == vb.Pointer()
	case reflect.Slice:
		return va.Pointer() == vb.Pointer() && va.Len() == vb.Len()
	}
	if !va.Type().Comparable() {
		return false
	}
	return safeEqual(a, b)
}

// safeEqual guards against interface fields holding incomparable values.
func safeEqual(a, b any) (eq bool) {
	defer func() {
		if recover() != nil {
			eq = false
		}
	}()
	return a == b
}

// syntheticKey names a plain child that was mixed into a keyed list.
func syntheticKey(i int) string {
	return "\x00" + strconv.Itoa(i)
}

// funcRef returns the address of the function value held in fn, or 0 for
// nil. A top-level function or a literal that captures nothing has one
// static address. Each evaluation of a capturing literal yields a new
// closure with its own address, so closures over different state never
// compare equal.
//
// fn must hold a func. Func values are stored directly in the interface
// data word.
func funcRef(fn any) uintptr {
	return uintptr((*[2]unsafe.Pointer)(unsafe.Pointer(&fn))[1])
}
