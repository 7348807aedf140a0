package live

// Handle is an opaque reference to a live node issued by a Binding.
type Handle any

// Callback is invoked by the Binding when a native event fires on a node.
type Callback func(native any)

// Binding realizes primitive operations against a live rendering target.
//
// Child indices refer to the live child list at the time of the call.
// RemoveChild only detaches; the Tree calls Destroy afterwards for nodes that
// leave the tree. Destroy releases a node together with its descendants.
type Binding interface {
	CreateElement(namespace, tag string) (Handle, error)
	CreateText(text string) (Handle, error)
	Destroy(h Handle) error

	SetText(h Handle, text string) error
	SetAttribute(h Handle, namespace, name, value string) error
	RemoveAttribute(h Handle, namespace, name string) error
	SetStyle(h Handle, name, value string) error
	RemoveStyle(h Handle, name string) error
	SetProperty(h Handle, name string, value any) error
	RemoveProperty(h Handle, name string) error
	SetListener(h Handle, event string, cb Callback) error
	RemoveListener(h Handle, event string) error

	InsertChild(parent Handle, index int, child Handle) error
	RemoveChild(parent Handle, index int) error
	MoveChild(parent Handle, from, to int) error

	// SetRoot makes h the root of the live target.
	SetRoot(h Handle) error
}

// Flusher is implemented by bindings that buffer operations. Flush is called
// once at the end of every Mount and Apply.
type Flusher interface {
	Flush() error
}
