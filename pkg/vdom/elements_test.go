package vdom

import "testing"

func TestCreateElementArgs(t *testing.T) {
	n := Div(
		nil,
		Class("a"),
		[]Prop{ID("x"), TitleAttr("t")},
		"hello",
		Span(),
		[]*Node{P(), nil, P()},
		If(false, Hr()),
	)

	if n.Tag != "div" || n.Kind != KindElement {
		t.Fatalf("Expected div element, got %v %q", n.Kind, n.Tag)
	}
	if len(n.Props) != 3 {
		t.Errorf("Expected 3 props, got %d", len(n.Props))
	}
	if len(n.Children) != 4 {
		t.Errorf("Expected 4 children, got %d", len(n.Children))
	}
	if n.Children[0].Kind != KindText || n.Children[0].Text != "hello" {
		t.Errorf("Expected string shorthand to become text, got %+v", n.Children[0])
	}
	if n.Keyed {
		t.Error("Plain children should not be keyed")
	}
}

func TestCreateElementMixedKeys(t *testing.T) {
	n := Ul(Li(Text("header")), Key("a", Li()), Key("b", Li()))

	if !n.Keyed {
		t.Fatal("Expected keyed list")
	}
	if len(n.Keys) != 3 {
		t.Fatalf("Expected 3 keys, got %d", len(n.Keys))
	}
	if n.Keys[0] != syntheticKey(0) || n.Keys[1] != "a" || n.Keys[2] != "b" {
		t.Errorf("Keys = %q", n.Keys)
	}
}

func TestSvgNamespace(t *testing.T) {
	n := Svg(Circle(Attribute("r", "4")))

	if n.Namespace != NamespaceSVG || n.Children[0].Namespace != NamespaceSVG {
		t.Errorf("Expected SVG namespace on svg and circle")
	}
}

func TestRangeKeyed(t *testing.T) {
	items := []string{"x", "y"}
	n := Ul(RangeKeyed(items, func(s string) string { return s }, func(_ int, s string) *Node {
		return Li(Text(s))
	}))

	if !n.Keyed || len(n.Keys) != 2 || n.Keys[1] != "y" {
		t.Errorf("Keys = %q keyed=%v", n.Keys, n.Keyed)
	}
}

func TestIsVoidElement(t *testing.T) {
	if !IsVoidElement("input") {
		t.Error("input should be void")
	}
	if IsVoidElement("div") {
		t.Error("div should not be void")
	}
}
