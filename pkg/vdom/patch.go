package vdom

// OpKind is the type of patch operation.
type OpKind uint8

const (
	OpReplace  OpKind = 0x01 // Replace the subtree at this position
	OpSetText  OpKind = 0x02 // Update text content
	OpProps    OpKind = 0x03 // Add, remove and update properties
	OpRetag    OpKind = 0x04 // Swap the tagger of one Tagged layer
	OpReorder  OpKind = 0x05 // Insert, remove and move keyed children
	OpAppend   OpKind = 0x06 // Append new children
	OpTruncate OpKind = 0x07 // Remove trailing children
	OpDescend  OpKind = 0x08 // Apply a nested patch to one child
)

// String returns the string representation of the OpKind.
func (k OpKind) String() string {
	switch k {
	case OpReplace:
		return "Replace"
	case OpSetText:
		return "SetText"
	case OpProps:
		return "Props"
	case OpRetag:
		return "Retag"
	case OpReorder:
		return "Reorder"
	case OpAppend:
		return "Append"
	case OpTruncate:
		return "Truncate"
	case OpDescend:
		return "Descend"
	default:
		return "Unknown"
	}
}

// Patch is an ordered list of operations for one tree position. Ops are
// applied in order; child indices in later ops refer to the child list as
// left by earlier ops.
type Patch []Op

// Op is a single patch operation.
type Op struct {
	Kind OpKind

	Node   *Node       // For Replace
	Text   string      // For SetText
	Props  *PropsDelta // For Props
	Layer  int         // For Retag: Tagged layer counted from the outside
	Tagger *Tagger     // For Retag
	Moves  []Move      // For Reorder
	Nodes  []*Node     // For Append
	Count  int         // For Truncate

	Index int    // For Descend: child index after earlier ops
	Key   string // For Descend into a keyed child
	Patch Patch  // For Descend
}

// PropsDelta is the property difference of one element.
type PropsDelta struct {
	Adds    []Prop
	Removes []Prop
	Updates []Prop
}

// Empty returns true if the delta has no changes.
func (d *PropsDelta) Empty() bool {
	return d == nil || len(d.Adds)+len(d.Removes)+len(d.Updates) == 0
}

// MoveKind is the type of a keyed child operation.
type MoveKind uint8

const (
	MoveInsert MoveKind = iota + 1 // Insert Node at To
	MoveRemove                     // Remove the child at From
	MoveMove                       // Take the child at From, patch it, put it at To
)

// String returns the string representation of the MoveKind.
func (k MoveKind) String() string {
	switch k {
	case MoveInsert:
		return "Insert"
	case MoveRemove:
		return "Remove"
	case MoveMove:
		return "Move"
	default:
		return "Unknown"
	}
}

// Move is one step of a keyed reorder. From and To are indices into the
// live child list at the time the step runs; for MoveMove, To is counted
// after the child was taken out.
type Move struct {
	Kind  MoveKind
	Key   string
	From  int
	To    int
	Node  *Node // For MoveInsert
	Patch Patch // For MoveMove
}

// Count returns the total number of operations, including nested ones.
func (p Patch) Count() int {
	n := 0
	for i := range p {
		n++
		op := &p[i]
		switch op.Kind {
		case OpDescend:
			n += op.Patch.Count()
		case OpReorder:
			for j := range op.Moves {
				n += 1 + op.Moves[j].Patch.Count()
			}
		}
	}
	return n
}
