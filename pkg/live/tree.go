package live

import (
	"fmt"
	"slices"
	"sync/atomic"

	"github.com/vango-dev/retain/pkg/event"
	"github.com/vango-dev/retain/pkg/vdom"
)

// node is the shadow of one tree position.
type node struct {
	handle    Handle
	layers    []*event.Chain // one link per Tagged layer, outermost first
	chain     *event.Chain   // chain seen by listeners on this node
	children  []*node
	listeners map[string]*listener
	dead      atomic.Bool
}

// listener is one installed callback. The handler is swapped in place on
// update and cleared on removal.
type listener struct {
	handler atomic.Pointer[vdom.Handler]
}

func (n *node) callback(l *listener) Callback {
	return func(native any) {
		if n.dead.Load() {
			return
		}
		h := l.handler.Load()
		if h == nil {
			return
		}
		n.chain.Dispatch(native, h.Decode)
	}
}

// disable stops every callback in the subtree.
func (n *node) disable() {
	n.dead.Store(true)
	for _, c := range n.children {
		c.disable()
	}
}

// Tree is a live rendering mounted through a Binding.
type Tree struct {
	binding   Binding
	router    *event.Router
	root      *node
	unmounted bool
}

// Mount constructs the live rendering of n and makes it the root of the
// target. Events raised inside it are routed through router.
func Mount(b Binding, router *event.Router, n *vdom.Node) (*Tree, error) {
	t := &Tree{binding: b, router: router}
	if err := t.Apply(vdom.Diff(nil, n)); err != nil {
		return nil, err
	}
	return t, nil
}

// Root returns the handle of the live root, or nil when nothing is mounted.
func (t *Tree) Root() Handle {
	if t.root == nil {
		return nil
	}
	return t.root.handle
}

// Apply interprets p against the live tree. Operations run in order.
// On error the live tree is left partially patched.
func (t *Tree) Apply(p vdom.Patch) error {
	if t.unmounted {
		return ErrUnmounted
	}
	if len(p) == 0 {
		return nil
	}
	root, err := t.apply(t.root, nil, nil, p)
	t.root = root
	if err != nil {
		return err
	}
	return t.flush()
}

// Unmount destroys the live rendering. The tree cannot be used afterwards.
func (t *Tree) Unmount() error {
	if t.unmounted {
		return nil
	}
	t.unmounted = true
	if t.root == nil {
		return nil
	}
	root := t.root
	t.root = nil
	root.disable()
	if err := t.binding.Destroy(root.handle); err != nil {
		return fmt.Errorf("live: unmount: %w", err)
	}
	return t.flush()
}

func (t *Tree) flush() error {
	if f, ok := t.binding.(Flusher); ok {
		return f.Flush()
	}
	return nil
}

// apply runs p at the position held by n, whose parent is parent and whose
// path from the root is path. It returns the node now at that position.
func (t *Tree) apply(n, parent *node, path []int, p vdom.Patch) (*node, error) {
	for i := range p {
		op := &p[i]
		var err error
		if op.Kind == vdom.OpReplace {
			n, err = t.replace(n, parent, path, op.Node)
		} else if n == nil {
			err = ErrPatchMismatch
		} else {
			err = t.applyOp(n, path, op)
		}
		if err != nil {
			if _, ok := err.(*ApplyError); ok {
				return n, err
			}
			return n, &ApplyError{Op: op.Kind, Path: slices.Clone(path), Err: err}
		}
	}
	return n, nil
}

func (t *Tree) applyOp(n *node, path []int, op *vdom.Op) error {
	switch op.Kind {
	case vdom.OpSetText:
		return t.binding.SetText(n.handle, op.Text)

	case vdom.OpProps:
		return t.applyProps(n, op.Props)

	case vdom.OpRetag:
		if op.Layer < 0 || op.Layer >= len(n.layers) {
			return fmt.Errorf("%w: layer %d of %d", ErrPatchMismatch, op.Layer, len(n.layers))
		}
		n.layers[op.Layer].Retag(op.Tagger)
		return nil

	case vdom.OpReorder:
		for _, m := range op.Moves {
			if err := t.move(n, path, m); err != nil {
				return err
			}
		}
		return nil

	case vdom.OpAppend:
		for _, v := range op.Nodes {
			if err := t.insert(n, len(n.children), v); err != nil {
				return err
			}
		}
		return nil

	case vdom.OpTruncate:
		if op.Count > len(n.children) {
			return fmt.Errorf("%w: truncate %d of %d children", ErrPatchMismatch, op.Count, len(n.children))
		}
		for k := 0; k < op.Count; k++ {
			if err := t.detach(n, len(n.children)-1); err != nil {
				return err
			}
		}
		return nil

	case vdom.OpDescend:
		if op.Index < 0 || op.Index >= len(n.children) {
			return fmt.Errorf("%w: child %d of %d", ErrPatchMismatch, op.Index, len(n.children))
		}
		child, err := t.apply(n.children[op.Index], n, append(slices.Clip(path), op.Index), op.Patch)
		n.children[op.Index] = child
		return err
	}
	return fmt.Errorf("%w: unknown op %v", ErrPatchMismatch, op.Kind)
}

func (t *Tree) move(n *node, path []int, m vdom.Move) error {
	switch m.Kind {
	case vdom.MoveRemove:
		if m.From < 0 || m.From >= len(n.children) {
			return fmt.Errorf("%w: remove %q at %d of %d", ErrPatchMismatch, m.Key, m.From, len(n.children))
		}
		return t.detach(n, m.From)

	case vdom.MoveInsert:
		if m.To < 0 || m.To > len(n.children) {
			return fmt.Errorf("%w: insert %q at %d of %d", ErrPatchMismatch, m.Key, m.To, len(n.children))
		}
		return t.insert(n, m.To, m.Node)

	case vdom.MoveMove:
		if m.From < 0 || m.From >= len(n.children) || m.To < 0 || m.To >= len(n.children) {
			return fmt.Errorf("%w: move %q from %d to %d of %d", ErrPatchMismatch, m.Key, m.From, m.To, len(n.children))
		}
		if err := t.binding.MoveChild(n.handle, m.From, m.To); err != nil {
			return err
		}
		c := n.children[m.From]
		n.children = slices.Delete(n.children, m.From, m.From+1)
		n.children = slices.Insert(n.children, m.To, c)
		if len(m.Patch) == 0 {
			return nil
		}
		c, err := t.apply(c, n, append(slices.Clip(path), m.To), m.Patch)
		n.children[m.To] = c
		return err
	}
	return fmt.Errorf("%w: unknown move %v", ErrPatchMismatch, m.Kind)
}

// insert builds v and inserts it as child index of n.
func (t *Tree) insert(n *node, index int, v *vdom.Node) error {
	c, err := t.build(v, n.chain)
	if err != nil {
		return err
	}
	if err := t.binding.InsertChild(n.handle, index, c.handle); err != nil {
		return err
	}
	n.children = slices.Insert(n.children, index, c)
	return nil
}

// detach removes child index of n and destroys it.
func (t *Tree) detach(n *node, index int) error {
	c := n.children[index]
	c.disable()
	if err := t.binding.RemoveChild(n.handle, index); err != nil {
		return err
	}
	n.children = slices.Delete(n.children, index, index+1)
	return t.binding.Destroy(c.handle)
}

// replace swaps the subtree at a position for a fresh rendering of v.
func (t *Tree) replace(old, parent *node, path []int, v *vdom.Node) (*node, error) {
	chain := t.router.Root()
	if parent != nil {
		chain = parent.chain
	}
	if old != nil {
		old.disable()
	}

	n, err := t.build(v, chain)
	if err != nil {
		return old, err
	}

	if parent == nil {
		if err := t.binding.SetRoot(n.handle); err != nil {
			return old, err
		}
	} else {
		index := path[len(path)-1]
		if err := t.binding.RemoveChild(parent.handle, index); err != nil {
			return old, err
		}
		if err := t.binding.InsertChild(parent.handle, index, n.handle); err != nil {
			return old, err
		}
	}

	if old != nil {
		if err := t.binding.Destroy(old.handle); err != nil {
			return n, err
		}
	}
	return n, nil
}

// build constructs the live rendering of v. Thunks are forced and every
// Tagged layer gets its own chain link.
func (t *Tree) build(v *vdom.Node, chain *event.Chain) (*node, error) {
	n := &node{}
	for v != nil && (v.Kind == vdom.KindThunk || v.Kind == vdom.KindTagged) {
		if v.Kind == vdom.KindThunk {
			v = v.Force()
			continue
		}
		chain = chain.Push(v.Tagger)
		n.layers = append(n.layers, chain)
		v = v.Inner
	}
	n.chain = chain

	var err error
	switch {
	case v == nil:
		n.handle, err = t.binding.CreateText("")
		return n, err

	case v.Kind == vdom.KindText:
		n.handle, err = t.binding.CreateText(v.Text)
		return n, err

	case v.Kind == vdom.KindElement:
		if n.handle, err = t.binding.CreateElement(v.Namespace, v.Tag); err != nil {
			return nil, err
		}
		for _, p := range v.Props {
			if err := t.setProp(n, p); err != nil {
				return nil, err
			}
		}
		n.children = make([]*node, 0, len(v.Children))
		for i, cv := range v.Children {
			c, err := t.build(cv, chain)
			if err != nil {
				return nil, err
			}
			if err := t.binding.InsertChild(n.handle, i, c.handle); err != nil {
				return nil, err
			}
			n.children = append(n.children, c)
		}
		return n, nil
	}
	return nil, fmt.Errorf("%w: cannot build %v node", ErrPatchMismatch, v.Kind)
}
