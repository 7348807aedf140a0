package vdom

import "testing"

var renderCalls int

func renderCount(n int) *Node {
	renderCalls++
	return Span(Textf("%d", n))
}

func renderRow(label string, items []string) *Node {
	renderCalls++
	return Li(Text(label))
}

func TestLazySkipsEqualArguments(t *testing.T) {
	renderCalls = 0

	prev := Div(Lazy(renderCount, 1))
	next := Div(Lazy(renderCount, 1))

	patch := Diff(prev, next)

	if len(patch) != 0 {
		t.Errorf("Expected empty patch, got %+v", patch)
	}
	if renderCalls != 0 {
		t.Errorf("Expected 0 evaluations, got %d", renderCalls)
	}
}

func TestLazyAdoptsEvaluatedSubtree(t *testing.T) {
	renderCalls = 0

	prev := Lazy(renderCount, 7)
	first := prev.Force()
	next := Lazy(renderCount, 7)

	Diff(prev, next)

	if renderCalls != 1 {
		t.Errorf("Expected 1 evaluation, got %d", renderCalls)
	}
	if !next.Forced() {
		t.Fatal("Expected next thunk to take over the evaluated subtree")
	}
	if next.Force() != first {
		t.Error("Expected adopted subtree to be the same node")
	}
	if renderCalls != 1 {
		t.Errorf("Force after adoption evaluated again: %d calls", renderCalls)
	}
}

func TestLazyChangedArgumentEvaluates(t *testing.T) {
	renderCalls = 0

	patch := Diff(Lazy(renderCount, 1), Lazy(renderCount, 2))

	if renderCalls != 2 {
		t.Errorf("Expected 2 evaluations, got %d", renderCalls)
	}
	if len(patch) != 1 || patch[0].Kind != OpDescend {
		t.Fatalf("Expected a Descend into the span, got %+v", patch)
	}
}

func TestLazyEvaluatesOnce(t *testing.T) {
	renderCalls = 0

	n := Lazy(renderCount, 3)
	a, b := n.Force(), n.Force()

	if a != b || renderCalls != 1 {
		t.Errorf("Expected single evaluation, got %d calls", renderCalls)
	}
}

func TestLazyDifferentFunctions(t *testing.T) {
	other := func(n int) *Node { return Span(Textf("%d", n)) }

	prev := Lazy(renderCount, 1)
	next := Lazy(other, 1)
	prev.Force()

	if patch := Diff(prev, next); len(patch) != 0 {
		t.Errorf("Structurally equal output should diff empty, got %+v", patch)
	}
	if !next.Forced() {
		t.Error("A different function must be evaluated")
	}
}

func TestLazySliceArgumentIdentity(t *testing.T) {
	renderCalls = 0
	items := []string{"a", "b"}

	Diff(Lazy2(renderRow, "x", items), Lazy2(renderRow, "x", items))
	if renderCalls != 0 {
		t.Errorf("Same slice should skip evaluation, got %d calls", renderCalls)
	}

	Diff(Lazy2(renderRow, "x", items), Lazy2(renderRow, "x", []string{"a", "b"}))
	if renderCalls != 2 {
		t.Errorf("A different slice should evaluate both sides, got %d calls", renderCalls)
	}
}

func TestArgEqual(t *testing.T) {
	p := &struct{ n int }{1}
	m := map[string]int{}
	greet := func(s string) func() string { return func() string { return s } }
	hello := greet("hello")

	tests := []struct {
		name string
		a, b any
		want bool
	}{
		{"equal ints", 1, 1, true},
		{"different ints", 1, 2, false},
		{"different types", 1, int64(1), false},
		{"equal strings", "a", "a", true},
		{"same pointer", p, p, true},
		{"equal pointees", p, &struct{ n int }{1}, false},
		{"same map", m, m, true},
		{"same closure", hello, hello, true},
		{"closures over different state", greet("a"), greet("b"), false},
		{"same top-level function", double, double, true},
		{"different top-level functions", double, increment, false},
		{"both nil", nil, nil, true},
		{"one nil", nil, 1, false},
		{"comparable struct", struct{ A, B int }{1, 2}, struct{ A, B int }{1, 2}, true},
		{"incomparable interface field", struct{ V any }{[]int{1}}, struct{ V any }{[]int{1}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := argEqual(tt.a, tt.b); got != tt.want {
				t.Errorf("argEqual(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func renderGreeting(label string, greet func() string) *Node {
	renderCalls++
	return P(Text(label + greet()))
}

func TestLazyClosureArgument(t *testing.T) {
	renderCalls = 0
	greet := func(s string) func() string { return func() string { return s } }
	hello := greet("hello")

	Diff(Lazy2(renderGreeting, "x", hello), Lazy2(renderGreeting, "x", hello))
	if renderCalls != 0 {
		t.Errorf("Same closure should skip evaluation, got %d calls", renderCalls)
	}

	patch := Diff(Lazy2(renderGreeting, "x", greet("a")), Lazy2(renderGreeting, "x", greet("b")))
	if renderCalls != 2 {
		t.Errorf("Closures over different state should evaluate both sides, got %d calls", renderCalls)
	}
	if len(patch) != 1 || patch[0].Kind != OpDescend {
		t.Errorf("Expected the text to be patched, got %+v", patch)
	}
}
