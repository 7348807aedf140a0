package vdom

import (
	"fmt"
	"reflect"
	"strconv"
)

// PropKind identifies the kind of a property.
type PropKind uint8

const (
	PropNone        PropKind = iota // Empty property, ignored
	PropAttribute                   // name="value"
	PropAttributeNS                 // namespaced attribute
	PropStyle                       // one style declaration
	PropProperty                    // structured value set on the live node
	PropListener                    // event listener
)

// String returns the string representation of the PropKind.
func (k PropKind) String() string {
	switch k {
	case PropAttribute:
		return "Attribute"
	case PropAttributeNS:
		return "AttributeNS"
	case PropStyle:
		return "Style"
	case PropProperty:
		return "Property"
	case PropListener:
		return "Listener"
	default:
		return "None"
	}
}

// Prop is an immutable element property.
type Prop struct {
	Kind      PropKind
	Namespace string   // For PropAttributeNS
	Name      string   // Attribute, style, property or event name
	Value     string   // For attributes and styles
	Data      any      // For PropProperty
	Handler   *Handler // For PropListener
}

// IsEmpty returns true if this is an empty property.
func (p Prop) IsEmpty() bool {
	return p.Kind == PropNone || p.Name == ""
}

// PropKey identifies a property within one element.
type PropKey struct {
	Kind      PropKind
	Namespace string
	Name      string
}

// Key returns the identity of p within its element.
func (p Prop) Key() PropKey {
	return PropKey{Kind: p.Kind, Namespace: p.Namespace, Name: p.Name}
}

// Equal reports whether two properties with the same key carry the same
// value. Listeners are equal only when they share the same Handler.
func (p Prop) Equal(q Prop) bool {
	if p.Key() != q.Key() {
		return false
	}
	switch p.Kind {
	case PropListener:
		return p.Handler == q.Handler
	case PropProperty:
		return dataEqual(p.Data, q.Data)
	default:
		return p.Value == q.Value
	}
}

// Attribute creates a plain attribute.
func Attribute(name, value string) Prop {
	return Prop{Kind: PropAttribute, Name: name, Value: value}
}

// AttributeNS creates a namespaced attribute.
func AttributeNS(namespace, name, value string) Prop {
	return Prop{Kind: PropAttributeNS, Namespace: namespace, Name: name, Value: value}
}

// Style creates one style declaration. Several Style props on one element
// compose; a repeated name replaces the earlier value.
func Style(name, value string) Prop {
	return Prop{Kind: PropStyle, Name: name, Value: value}
}

// Property sets a structured value on the live node.
func Property(name string, value any) Prop {
	return Prop{Kind: PropProperty, Name: name, Data: value}
}

// normalizeProps drops empty props and collapses repeated keys so that the
// last declaration wins while keeping the position of the first.
func normalizeProps(props []Prop) []Prop {
	if len(props) == 0 {
		return nil
	}
	out := make([]Prop, 0, len(props))
	var seen map[PropKey]int
	for _, p := range props {
		if p.IsEmpty() {
			continue
		}
		k := p.Key()
		if i, ok := seen[k]; ok {
			out[i] = p
			continue
		}
		if seen == nil {
			seen = make(map[PropKey]int, len(props))
		}
		seen[k] = len(out)
		out = append(out, p)
	}
	return out
}

// dataEqual compares structured property values.
func dataEqual(a, b any) bool {
	// Fast path for common types
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case int:
		bv, ok := b.(int)
		return ok && av == bv
	case int64:
		bv, ok := b.(int64)
		return ok && av == bv
	case float64:
		bv, ok := b.(float64)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case nil:
		return b == nil
	}
	// Fallback to reflect for complex types
	return reflect.DeepEqual(a, b)
}

// Stringify converts a property value to its string form.
func Stringify(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case bool:
		if val {
			return "true"
		}
		return "false"
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}
