package vdom

// Diff compares two trees and returns the patch that transforms a live
// target built from prev into one matching next.
//
// Diff is pure apart from populating thunk caches: an equal thunk in next
// takes over the already evaluated subtree of its counterpart in prev.
func Diff(prev, next *Node) Patch {
	var p Patch
	diff(prev, next, &p)
	return p
}

// diff appends the operations for one position.
func diff(prev, next *Node, p *Patch) {
	// Replacements rebuild the whole position, wrappers included
	at := next
	var retags []Op
	layer := 0

walk:
	for {
		// Identical references - nothing to do
		if prev == next {
			break
		}

		// Different kinds - replace
		if prev == nil || next == nil || prev.Kind != next.Kind {
			replace(p, at)
			return
		}

		switch prev.Kind {
		case KindThunk:
			if prev.thunk.sameAs(next.thunk) {
				next.thunk.adopt(prev.thunk)
				break walk
			}
			prev, next = prev.Force(), next.Force()
			continue

		case KindTagged:
			if !prev.Tagger.Same(next.Tagger) {
				retags = append(retags, Op{Kind: OpRetag, Layer: layer, Tagger: next.Tagger})
			}
			layer++
			prev, next = prev.Inner, next.Inner
			continue

		case KindText:
			*p = append(*p, retags...)
			if prev.Text != next.Text {
				*p = append(*p, Op{Kind: OpSetText, Text: next.Text})
			}
			return

		case KindElement:
			if prev.Tag != next.Tag || prev.Namespace != next.Namespace || prev.Keyed != next.Keyed {
				replace(p, at)
				return
			}
			*p = append(*p, retags...)
			diffElement(prev, next, p)
			return
		}
		// Unknown kind
		replace(p, at)
		return
	}

	*p = append(*p, retags...)
}

// replace appends a replacement of the whole position. next must be the
// outermost node at the position so that its Tagged layers are rebuilt
// along with it. Pending retags are not emitted.
func replace(p *Patch, next *Node) {
	*p = append(*p, Op{Kind: OpReplace, Node: next})
}

// diffElement compares two elements with the same tag and namespace.
func diffElement(prev, next *Node, p *Patch) {
	if delta := diffProps(prev.Props, next.Props); delta != nil {
		*p = append(*p, Op{Kind: OpProps, Props: delta})
	}
	if prev.Keyed {
		diffKeyedChildren(prev, next, p)
	} else {
		diffChildren(prev.Children, next.Children, p)
	}
}

// diffProps computes the property delta keyed by (kind, namespace, name).
// Adds and updates follow the order of next, removes the order of prev.
func diffProps(prev, next []Prop) *PropsDelta {
	if len(prev) == 0 && len(next) == 0 {
		return nil
	}

	prevByKey := make(map[PropKey]int, len(prev))
	for i, pr := range prev {
		prevByKey[pr.Key()] = i
	}

	var delta PropsDelta
	seen := make(map[PropKey]struct{}, len(next))
	for _, np := range next {
		k := np.Key()
		seen[k] = struct{}{}
		i, ok := prevByKey[k]
		switch {
		case !ok:
			delta.Adds = append(delta.Adds, np)
		case !prev[i].Equal(np):
			delta.Updates = append(delta.Updates, np)
		}
	}
	for _, pr := range prev {
		if _, ok := seen[pr.Key()]; !ok {
			delta.Removes = append(delta.Removes, pr)
		}
	}

	if delta.Empty() {
		return nil
	}
	return &delta
}

// diffChildren handles children without keys using positional matching.
func diffChildren(prev, next []*Node, p *Patch) {
	common := min(len(prev), len(next))

	for i := 0; i < common; i++ {
		descend(p, i, "", prev[i], next[i])
	}

	switch {
	case len(next) > len(prev):
		*p = append(*p, Op{Kind: OpAppend, Nodes: next[len(prev):]})
	case len(prev) > len(next):
		*p = append(*p, Op{Kind: OpTruncate, Count: len(prev) - len(next)})
	}
}

// descend appends a Descend op when the child pair differs.
func descend(p *Patch, index int, key string, prev, next *Node) {
	var sub Patch
	diff(prev, next, &sub)
	if len(sub) > 0 {
		*p = append(*p, Op{Kind: OpDescend, Index: index, Key: key, Patch: sub})
	}
}
