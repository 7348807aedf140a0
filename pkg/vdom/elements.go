package vdom

// voidElements are elements that cannot have children.
var voidElements = map[string]bool{
	"area":   true,
	"base":   true,
	"br":     true,
	"col":    true,
	"embed":  true,
	"hr":     true,
	"img":    true,
	"input":  true,
	"link":   true,
	"meta":   true,
	"param":  true,
	"source": true,
	"track":  true,
	"wbr":    true,
}

// IsVoidElement returns true if the tag is a void element.
func IsVoidElement(tag string) bool {
	return voidElements[tag]
}

// createElement creates an element from variadic arguments.
// Arguments can be: nil, Prop, []Prop, *Node, []*Node, KeyedChild,
// []KeyedChild, string.
// If any KeyedChild is present the child list is keyed; plain children
// mixed into it get a positional key.
func createElement(namespace, tag string, args []any) *Node {
	var (
		props    []Prop
		children []*Node
		keys     []string
		keyed    bool
	)
	markKeyed := func() {
		if keyed {
			return
		}
		keyed = true
		keys = make([]string, len(children), len(children)+1)
		for i := range keys {
			keys[i] = syntheticKey(i)
		}
	}
	addChild := func(key string, isKeyed bool, child *Node) {
		if child == nil {
			return
		}
		if isKeyed {
			markKeyed()
		}
		if keyed {
			if !isKeyed {
				key = syntheticKey(len(children))
			}
			keys = append(keys, key)
		}
		children = append(children, child)
	}

	for _, arg := range args {
		switch v := arg.(type) {
		case nil:
			// Ignore nil (allows conditional children)
			continue
		case Prop:
			props = append(props, v)
		case []Prop:
			props = append(props, v...)
		case *Node:
			addChild("", false, v)
		case []*Node:
			for _, child := range v {
				addChild("", false, child)
			}
		case KeyedChild:
			addChild(v.Key, true, v.Node)
		case []KeyedChild:
			// An empty keyed list still makes the element keyed
			markKeyed()
			for _, kc := range v {
				addChild(kc.Key, true, kc.Node)
			}
		case string:
			// Shorthand for text node
			addChild("", false, Text(v))
		}
	}

	n := ElementNS(namespace, tag, props, children)
	if keyed {
		if keys == nil {
			keys = []string{}
		}
		n.Keys = keys
		n.Keyed = true
	}
	return n
}

// El creates an element with a custom tag name.
func El(tag string, args ...any) *Node { return createElement("", tag, args) }

// ElNS creates a namespaced element with a custom tag name.
func ElNS(namespace, tag string, args ...any) *Node { return createElement(namespace, tag, args) }

// Content sectioning elements

func Header(args ...any) *Node  { return createElement("", "header", args) }
func Footer(args ...any) *Node  { return createElement("", "footer", args) }
func Main(args ...any) *Node    { return createElement("", "main", args) }
func Nav(args ...any) *Node     { return createElement("", "nav", args) }
func Section(args ...any) *Node { return createElement("", "section", args) }
func Article(args ...any) *Node { return createElement("", "article", args) }
func H1(args ...any) *Node      { return createElement("", "h1", args) }
func H2(args ...any) *Node      { return createElement("", "h2", args) }
func H3(args ...any) *Node      { return createElement("", "h3", args) }

// Text content elements

func Div(args ...any) *Node  { return createElement("", "div", args) }
func P(args ...any) *Node    { return createElement("", "p", args) }
func Span(args ...any) *Node { return createElement("", "span", args) }
func Pre(args ...any) *Node  { return createElement("", "pre", args) }
func Ul(args ...any) *Node   { return createElement("", "ul", args) }
func Ol(args ...any) *Node   { return createElement("", "ol", args) }
func Li(args ...any) *Node   { return createElement("", "li", args) }
func Hr(args ...any) *Node   { return createElement("", "hr", args) }

// Inline text semantics

func A(args ...any) *Node      { return createElement("", "a", args) }
func Strong(args ...any) *Node { return createElement("", "strong", args) }
func Em(args ...any) *Node     { return createElement("", "em", args) }
func Code(args ...any) *Node   { return createElement("", "code", args) }
func Small(args ...any) *Node  { return createElement("", "small", args) }
func Br(args ...any) *Node     { return createElement("", "br", args) }

// Form elements

func Form(args ...any) *Node     { return createElement("", "form", args) }
func Input(args ...any) *Node    { return createElement("", "input", args) }
func Textarea(args ...any) *Node { return createElement("", "textarea", args) }
func Select(args ...any) *Node   { return createElement("", "select", args) }
func Option(args ...any) *Node   { return createElement("", "option", args) }
func Button(args ...any) *Node   { return createElement("", "button", args) }
func Label(args ...any) *Node    { return createElement("", "label", args) }

// Table elements

func Table(args ...any) *Node { return createElement("", "table", args) }
func Tbody(args ...any) *Node { return createElement("", "tbody", args) }
func Tr(args ...any) *Node    { return createElement("", "tr", args) }
func Td(args ...any) *Node    { return createElement("", "td", args) }

// Media elements

func Img(args ...any) *Node { return createElement("", "img", args) }

// SVG elements

func Svg(args ...any) *Node    { return createElement(NamespaceSVG, "svg", args) }
func Circle(args ...any) *Node { return createElement(NamespaceSVG, "circle", args) }
func Rect(args ...any) *Node   { return createElement(NamespaceSVG, "rect", args) }
func Use(args ...any) *Node    { return createElement(NamespaceSVG, "use", args) }
