package vdom

import "strings"

// Common namespaces.
const (
	NamespaceSVG   = "http://www.w3.org/2000/svg"
	NamespaceXLink = "http://www.w3.org/1999/xlink"
)

// Identity attributes

// ID sets the id attribute.
func ID(id string) Prop { return Attribute("id", id) }

// Class sets the class attribute, joining multiple classes with spaces.
func Class(classes ...string) Prop { return Attribute("class", strings.Join(classes, " ")) }

// ClassIf returns the class attribute if condition is true.
func ClassIf(condition bool, class string) Prop {
	if condition {
		return Class(class)
	}
	return Prop{}
}

// Data creates a data-* attribute.
// Example: Data("id", "123") → data-id="123"
func Data(key, value string) Prop { return Attribute("data-"+key, value) }

// Accessibility attributes

// Role sets the role attribute.
func Role(role string) Prop { return Attribute("role", role) }

// AriaLabel sets the aria-label attribute.
func AriaLabel(label string) Prop { return Attribute("aria-label", label) }

// AriaHidden sets the aria-hidden attribute.
func AriaHidden(hidden bool) Prop { return Attribute("aria-hidden", Stringify(hidden)) }

// TitleAttr sets the title attribute (named to avoid conflict with Title element).
func TitleAttr(title string) Prop { return Attribute("title", title) }

// Link attributes

// Href sets the href attribute.
func Href(url string) Prop { return Attribute("href", url) }

// XLinkHref sets the namespaced xlink:href attribute used by SVG.
func XLinkHref(url string) Prop { return AttributeNS(NamespaceXLink, "xlink:href", url) }

// Form attributes

// Name sets the name attribute.
func Name(name string) Prop { return Attribute("name", name) }

// Type sets the type attribute.
func Type(t string) Prop { return Attribute("type", t) }

// Placeholder sets the placeholder attribute.
func Placeholder(text string) Prop { return Attribute("placeholder", text) }

// Value sets the live value property of form controls.
func Value(value string) Prop { return Property("value", value) }

// Checked sets the live checked property of checkboxes.
func Checked(checked bool) Prop { return Property("checked", checked) }

// Disabled sets the disabled attribute when disabled is true.
func Disabled(disabled bool) Prop {
	if !disabled {
		return Prop{}
	}
	return Attribute("disabled", "")
}

// Autofocus sets the autofocus attribute.
func Autofocus() Prop { return Attribute("autofocus", "") }

// Conditional attributes

// PropIf returns p if condition is true, and an empty property otherwise.
func PropIf(condition bool, p Prop) Prop {
	if condition {
		return p
	}
	return Prop{}
}
