package vdom

// Tagger is a composed chain of message transforms attached to a Tagged
// node. Transforms run innermost first.
//
// Two taggers are the same when they were built from the same function
// values in the same order. See funcRef for what makes two function values
// the same.
type Tagger struct {
	fns []func(any) any
	ids []uintptr
}

// NewTagger creates a tagger from transforms listed innermost first.
func NewTagger(fns ...func(any) any) *Tagger {
	t := &Tagger{fns: fns, ids: make([]uintptr, len(fns))}
	for i, fn := range fns {
		t.ids[i] = funcRef(fn)
	}
	return t
}

// Apply runs msg through every transform.
func (t *Tagger) Apply(msg any) any {
	if t == nil {
		return msg
	}
	for _, fn := range t.fns {
		msg = fn(msg)
	}
	return msg
}

// Len returns the number of composed transforms.
func (t *Tagger) Len() int {
	if t == nil {
		return 0
	}
	return len(t.fns)
}

// Same reports whether t and o route messages through the same functions.
func (t *Tagger) Same(o *Tagger) bool {
	if t == o {
		return true
	}
	if t.Len() != o.Len() {
		return false
	}
	for i := range t.ids {
		if t.ids[i] != o.ids[i] {
			return false
		}
	}
	return true
}

// then returns a new tagger that applies fn, identified by id, after t.
func (t *Tagger) then(id uintptr, fn func(any) any) *Tagger {
	n := t.Len() + 1
	out := &Tagger{fns: make([]func(any) any, 0, n), ids: make([]uintptr, 0, n)}
	if t != nil {
		out.fns = append(out.fns, t.fns...)
		out.ids = append(out.ids, t.ids...)
	}
	out.fns = append(out.fns, fn)
	out.ids = append(out.ids, id)
	return out
}

// TagMessages wraps node so that every message produced inside it passes
// through fn. Wrapping an already tagged node composes the transforms
// into the existing wrapper instead of stacking a new one.
func TagMessages(fn func(any) any, node *Node) *Node {
	return tag(funcRef(fn), fn, node)
}

// Map is the typed form of TagMessages. Messages that are not an A pass
// through unchanged.
func Map[A, B any](fn func(A) B, node *Node) *Node {
	return tag(funcRef(fn), func(msg any) any {
		a, ok := msg.(A)
		if !ok {
			return msg
		}
		return fn(a)
	}, node)
}

func tag(id uintptr, fn func(any) any, node *Node) *Node {
	if node != nil && node.Kind == KindTagged {
		return &Node{Kind: KindTagged, Inner: node.Inner, Tagger: node.Tagger.then(id, fn)}
	}
	return &Node{Kind: KindTagged, Inner: node, Tagger: (*Tagger)(nil).then(id, fn)}
}
