package vdom

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDiffSameReference(t *testing.T) {
	tree := Div(Class("card"), H1(Text("Title")), P(Text("Body")), Button(OnClick("go")))

	if patch := Diff(tree, tree); len(patch) != 0 {
		t.Errorf("Expected empty patch for same reference, got %d ops", len(patch))
	}
}

func TestDiffStructurallyEqual(t *testing.T) {
	build := func() *Node {
		return Div(Class("card"), ID("main"), Style("color", "red"),
			H1(Text("Title")),
			Ul(Key("a", Li(Text("A"))), Key("b", Li(Text("B")))),
			Svg(Use(XLinkHref("#icon"))),
			Input(Value("x"), Property("meta", map[string]int{"n": 1})),
		)
	}

	if patch := Diff(build(), build()); len(patch) != 0 {
		t.Errorf("Expected empty patch for structurally equal trees, got %+v", patch)
	}
}

func TestDiffTextChange(t *testing.T) {
	patch := Diff(Text("Hello"), Text("World"))

	if len(patch) != 1 {
		t.Fatalf("Expected 1 op, got %d", len(patch))
	}
	if patch[0].Kind != OpSetText {
		t.Errorf("Kind = %v, want SetText", patch[0].Kind)
	}
	if patch[0].Text != "World" {
		t.Errorf("Text = %q, want World", patch[0].Text)
	}
}

func TestDiffTextUnchanged(t *testing.T) {
	if patch := Diff(Text("Hello"), Text("Hello")); len(patch) != 0 {
		t.Errorf("Expected 0 ops for unchanged text, got %d", len(patch))
	}
}

func TestDiffReplace(t *testing.T) {
	tests := []struct {
		name       string
		prev, next *Node
	}{
		{"kind change", Text("Hello"), Div(Text("Hello"))},
		{"tag change", Div(), Span()},
		{"namespace change", El("a"), ElNS(NamespaceSVG, "a")},
		{"keyed to plain", Ul(Key("a", Li())), Ul(Li())},
		{"tagged to plain", Map(func(int) int { return 0 }, Div()), Div()},
		{"nil previous", nil, Div()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			patch := Diff(tt.prev, tt.next)
			if len(patch) != 1 {
				t.Fatalf("Expected 1 op, got %d", len(patch))
			}
			if patch[0].Kind != OpReplace {
				t.Errorf("Kind = %v, want Replace", patch[0].Kind)
			}
			if patch[0].Node != tt.next {
				t.Error("Replace should carry the new node")
			}
		})
	}
}

func TestDiffPropertyDelta(t *testing.T) {
	prev := Div(Attribute("class", "x"), Attribute("id", "y"))
	next := Div(Attribute("class", "z"), Attribute("title", "t"))

	patch := Diff(prev, next)

	if len(patch) != 1 || patch[0].Kind != OpProps {
		t.Fatalf("Expected a single Props op, got %+v", patch)
	}
	want := &PropsDelta{
		Adds:    []Prop{Attribute("title", "t")},
		Removes: []Prop{Attribute("id", "y")},
		Updates: []Prop{Attribute("class", "z")},
	}
	if diff := cmp.Diff(want, patch[0].Props); diff != "" {
		t.Errorf("Props delta mismatch (-want +got):\n%s", diff)
	}
}

func TestDiffPropertyKindsAreSeparate(t *testing.T) {
	// A style and an attribute with the same name do not collide
	prev := Div(Attribute("color", "red"))
	next := Div(Attribute("color", "red"), Style("color", "red"))

	patch := Diff(prev, next)

	if len(patch) != 1 {
		t.Fatalf("Expected 1 op, got %d", len(patch))
	}
	if d := patch[0].Props; len(d.Adds) != 1 || d.Adds[0].Kind != PropStyle {
		t.Errorf("Expected one added style, got %+v", d)
	}
}

func TestDiffStylesCompose(t *testing.T) {
	prev := Div(Style("color", "red"), Style("width", "1px"))
	next := Div(Style("color", "blue"), Style("width", "1px"))

	patch := Diff(prev, next)

	if len(patch) != 1 {
		t.Fatalf("Expected 1 op, got %d", len(patch))
	}
	d := patch[0].Props
	if len(d.Updates) != 1 || d.Updates[0].Name != "color" || d.Updates[0].Value != "blue" {
		t.Errorf("Expected color update only, got %+v", d)
	}
	if len(d.Adds) != 0 || len(d.Removes) != 0 {
		t.Errorf("Unexpected adds/removes: %+v", d)
	}
}

func TestDiffNamespacedAttribute(t *testing.T) {
	prev := Use(XLinkHref("#a"))
	next := Use(XLinkHref("#b"))

	patch := Diff(prev, next)

	if len(patch) != 1 || len(patch[0].Props.Updates) != 1 {
		t.Fatalf("Expected one update, got %+v", patch)
	}
	if got := patch[0].Props.Updates[0]; got.Namespace != NamespaceXLink || got.Value != "#b" {
		t.Errorf("Update = %+v", got)
	}
}

func TestDiffListenerIdentity(t *testing.T) {
	shared := &Handler{Decode: Always("clicked")}

	t.Run("shared handler", func(t *testing.T) {
		prev := Button(OnHandler("click", shared))
		next := Button(OnHandler("click", shared))
		if patch := Diff(prev, next); len(patch) != 0 {
			t.Errorf("Expected no ops for a shared handler, got %+v", patch)
		}
	})

	t.Run("new handler", func(t *testing.T) {
		prev := Button(OnClick("clicked"))
		next := Button(OnClick("clicked"))
		patch := Diff(prev, next)
		if len(patch) != 1 || len(patch[0].Props.Updates) != 1 {
			t.Fatalf("Expected one listener update, got %+v", patch)
		}
		if patch[0].Props.Updates[0].Kind != PropListener {
			t.Errorf("Kind = %v, want Listener", patch[0].Props.Updates[0].Kind)
		}
	})

	t.Run("removed listener", func(t *testing.T) {
		patch := Diff(Button(OnClick("clicked")), Button())
		if len(patch) != 1 || len(patch[0].Props.Removes) != 1 {
			t.Fatalf("Expected one listener removal, got %+v", patch)
		}
	})
}

func TestDiffRepeatedPropLastWins(t *testing.T) {
	n := Div(Class("a"), ID("x"), Class("b"))

	if len(n.Props) != 2 {
		t.Fatalf("Expected 2 props, got %d", len(n.Props))
	}
	if n.Props[0].Value != "b" {
		t.Errorf("class = %q, want b", n.Props[0].Value)
	}
}

func TestDiffChildrenAppend(t *testing.T) {
	prev := Ul(Li(Text("1")))
	next := Ul(Li(Text("1")), Li(Text("2")), Li(Text("3")))

	patch := Diff(prev, next)

	if len(patch) != 1 {
		t.Fatalf("Expected 1 op, got %+v", patch)
	}
	if patch[0].Kind != OpAppend || len(patch[0].Nodes) != 2 {
		t.Errorf("Expected Append of 2 nodes, got %v with %d", patch[0].Kind, len(patch[0].Nodes))
	}
}

func TestDiffChildrenTruncate(t *testing.T) {
	prev := Ul(Li(Text("1")), Li(Text("2")), Li(Text("3")))
	next := Ul(Li(Text("one")))

	patch := Diff(prev, next)

	if len(patch) != 2 {
		t.Fatalf("Expected 2 ops, got %+v", patch)
	}
	if patch[0].Kind != OpDescend || patch[0].Index != 0 {
		t.Errorf("First op = %v at %d, want Descend at 0", patch[0].Kind, patch[0].Index)
	}
	if patch[1].Kind != OpTruncate || patch[1].Count != 2 {
		t.Errorf("Second op = %v count %d, want Truncate 2", patch[1].Kind, patch[1].Count)
	}
}

func TestDiffNestedDescend(t *testing.T) {
	prev := Div(P(Text("a")), P(Span(Text("b"))))
	next := Div(P(Text("a")), P(Span(Text("c"))))

	patch := Diff(prev, next)

	want := Patch{{Kind: OpDescend, Index: 1, Patch: Patch{
		{Kind: OpDescend, Index: 0, Patch: Patch{
			{Kind: OpDescend, Index: 0, Patch: Patch{
				{Kind: OpSetText, Text: "c"},
			}},
		}},
	}}}
	if diff := cmp.Diff(want, patch, cmp.AllowUnexported(Node{})); diff != "" {
		t.Errorf("Patch mismatch (-want +got):\n%s", diff)
	}
}

func TestPatchCount(t *testing.T) {
	p := Patch{
		{Kind: OpProps, Props: &PropsDelta{}},
		{Kind: OpDescend, Patch: Patch{{Kind: OpSetText}}},
		{Kind: OpReorder, Moves: []Move{{Kind: MoveMove, Patch: Patch{{Kind: OpSetText}}}}},
	}
	if got := p.Count(); got != 6 {
		t.Errorf("Count() = %d, want 6", got)
	}
}
