package render

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/vango-dev/retain/pkg/vdom"
)

// ErrUnknownKind is returned for a node whose kind the renderer does not know.
var ErrUnknownKind = errors.New("render: unknown node kind")

// RendererConfig configures the HTML renderer.
type RendererConfig struct {
	// Pretty enables pretty-printed HTML output with indentation.
	// Should only be used in development as it increases output size.
	Pretty bool

	// Indent is the string used for each indentation level in pretty mode.
	// Defaults to two spaces if not specified.
	Indent string

	// ListenerMarkers writes a data-on-<event> attribute for every
	// listener, so client code can tell which elements are interactive.
	ListenerMarkers bool
}

// Renderer renders vdom trees to HTML.
type Renderer struct {
	config RendererConfig
}

// NewRenderer creates a new Renderer with the given configuration.
func NewRenderer(config RendererConfig) *Renderer {
	if config.Indent == "" {
		config.Indent = "  "
	}
	return &Renderer{config: config}
}

// RenderToString renders a tree to an HTML string.
func (r *Renderer) RenderToString(node *vdom.Node) (string, error) {
	var buf bytes.Buffer
	if err := r.RenderToWriter(&buf, node); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderToWriter streams a tree to the given writer.
func (r *Renderer) RenderToWriter(w io.Writer, node *vdom.Node) error {
	return r.renderNode(w, node, 0, "")
}

// renderNode dispatches rendering based on node kind.
func (r *Renderer) renderNode(w io.Writer, node *vdom.Node, depth int, ns string) error {
	if node == nil {
		return nil
	}

	switch node.Kind {
	case vdom.KindElement:
		return r.renderElement(w, node, depth, ns)
	case vdom.KindText:
		_, err := io.WriteString(w, escapeHTML(node.Text))
		return err
	case vdom.KindThunk:
		return r.renderNode(w, node.Force(), depth, ns)
	case vdom.KindTagged:
		return r.renderNode(w, node.Inner, depth, ns)
	default:
		return fmt.Errorf("%w: %d", ErrUnknownKind, node.Kind)
	}
}

// renderElement renders an element with its properties and children.
// An xmlns attribute is written where the namespace changes.
func (r *Renderer) renderElement(w io.Writer, node *vdom.Node, depth int, ns string) error {
	tag := node.Tag

	if r.config.Pretty && depth > 0 {
		r.writeIndent(w, depth)
	}

	if _, err := io.WriteString(w, "<"+tag); err != nil {
		return err
	}
	if node.Namespace != ns {
		if _, err := fmt.Fprintf(w, ` xmlns="%s"`, escapeAttr(node.Namespace)); err != nil {
			return err
		}
	}
	if err := r.renderProps(w, node.Props); err != nil {
		return err
	}

	// Void elements have no closing tag
	if node.Namespace == "" && vdom.IsVoidElement(tag) {
		if _, err := io.WriteString(w, ">"); err != nil {
			return err
		}
		if r.config.Pretty {
			io.WriteString(w, "\n")
		}
		return nil
	}

	if _, err := io.WriteString(w, ">"); err != nil {
		return err
	}

	hasBlockChildren := len(node.Children) > 0 && !isInlineElement(tag)
	if r.config.Pretty && hasBlockChildren {
		io.WriteString(w, "\n")
	}

	for _, child := range node.Children {
		if err := r.renderNode(w, child, depth+1, node.Namespace); err != nil {
			return err
		}
	}

	if r.config.Pretty && hasBlockChildren {
		r.writeIndent(w, depth)
	}

	if _, err := fmt.Fprintf(w, "</%s>", tag); err != nil {
		return err
	}
	if r.config.Pretty {
		io.WriteString(w, "\n")
	}
	return nil
}

// renderProps writes attributes in declaration order. Styles are merged
// into one style attribute at the position of the first declaration.
func (r *Renderer) renderProps(w io.Writer, props []vdom.Prop) error {
	styleWritten := false
	var listeners []string

	for _, p := range props {
		switch p.Kind {
		case vdom.PropAttribute, vdom.PropAttributeNS:
			if isBooleanAttr(p.Name) && p.Value == "" {
				if _, err := fmt.Fprintf(w, " %s", p.Name); err != nil {
					return err
				}
				continue
			}
			if _, err := fmt.Fprintf(w, ` %s="%s"`, p.Name, escapeAttr(p.Value)); err != nil {
				return err
			}

		case vdom.PropStyle:
			if styleWritten {
				continue
			}
			styleWritten = true
			if _, err := fmt.Fprintf(w, ` style="%s"`, escapeAttr(styleText(props))); err != nil {
				return err
			}

		case vdom.PropProperty:
			// Properties reflect to attributes for first paint
			if b, ok := p.Data.(bool); ok {
				if b && isBooleanAttr(p.Name) {
					if _, err := fmt.Fprintf(w, " %s", p.Name); err != nil {
						return err
					}
				}
				continue
			}
			if p.Data == nil {
				continue
			}
			if _, err := fmt.Fprintf(w, ` %s="%s"`, p.Name, escapeAttr(vdom.Stringify(p.Data))); err != nil {
				return err
			}

		case vdom.PropListener:
			listeners = append(listeners, p.Name)
		}
	}

	if r.config.ListenerMarkers {
		for _, name := range listeners {
			if _, err := fmt.Fprintf(w, ` data-on-%s="true"`, strings.ToLower(name)); err != nil {
				return err
			}
		}
	}
	return nil
}

// styleText joins every style declaration of an element.
func styleText(props []vdom.Prop) string {
	var sb strings.Builder
	for _, p := range props {
		if p.Kind != vdom.PropStyle {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(p.Name)
		sb.WriteString(": ")
		sb.WriteString(p.Value)
		sb.WriteByte(';')
	}
	return sb.String()
}

// writeIndent writes indentation for pretty printing.
func (r *Renderer) writeIndent(w io.Writer, depth int) {
	for i := 0; i < depth; i++ {
		io.WriteString(w, r.config.Indent)
	}
}
