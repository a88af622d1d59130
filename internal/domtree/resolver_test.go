package domtree

import "testing"

type testNode struct {
	tag     string
	id      string
	classes []string
	role    string
	text    string
	parent  *testNode
	index   int
}

func (n *testNode) Tag() string       { return n.tag }
func (n *testNode) ID() string        { return n.id }
func (n *testNode) Classes() []string { return n.classes }
func (n *testNode) Role() string      { return n.role }
func (n *testNode) Text() string      { return n.text }
func (n *testNode) TypeIndex() int    { return n.index }

func (n *testNode) Parent() Node {
	if n.parent == nil {
		return nil
	}
	return n.parent
}

func TestStableID(t *testing.T) {
	tests := []struct {
		name string
		id   string
		want bool
	}{
		{"simple", "nav-menu", true},
		{"short digits", "tab12", true},
		{"generated", "item-48231", false},
		{"three digits", "row100", false},
		{"empty", "", false},
		{"too long", "a-very-long-identifier-that-keeps-going-and-going-and-going-forever", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StableID(tt.id); got != tt.want {
				t.Errorf("StableID(%q) = %v, want %v", tt.id, got, tt.want)
			}
		})
	}
}

func TestResolveInteractiveFindsAncestor(t *testing.T) {
	body := &testNode{tag: "body", index: 1}
	button := &testNode{tag: "button", parent: body, index: 1}
	span := &testNode{tag: "span", parent: button, index: 1}

	if got := ResolveInteractive(span); got != Node(button) {
		t.Errorf("expected button ancestor, got %v", got)
	}
}

func TestResolveInteractiveRoleMarker(t *testing.T) {
	body := &testNode{tag: "body", index: 1}
	div := &testNode{tag: "div", role: "button", parent: body, index: 2}
	inner := &testNode{tag: "span", parent: div, index: 1}

	if got := ResolveInteractive(inner); got != Node(div) {
		t.Errorf("expected role-marked div, got %v", got)
	}
}

func TestResolveInteractiveFallsBackToRaw(t *testing.T) {
	body := &testNode{tag: "body", index: 1}
	div := &testNode{tag: "div", parent: body, index: 1}
	p := &testNode{tag: "p", parent: div, index: 3}

	if got := ResolveInteractive(p); got != Node(p) {
		t.Errorf("expected raw node back, got %v", got)
	}
}

func TestSelectorAnchorsAtStableID(t *testing.T) {
	html := &testNode{tag: "html", index: 1}
	body := &testNode{tag: "body", parent: html, index: 1}
	nav := &testNode{tag: "nav", id: "main-nav", parent: body, index: 1}
	ul := &testNode{tag: "ul", parent: nav, index: 1}
	li := &testNode{tag: "li", classes: []string{"entry"}, parent: ul, index: 2}

	got := Selector(li)
	want := "nav#main-nav > ul:nth-of-type(1) > li.entry:nth-of-type(2)"
	if got != want {
		t.Errorf("Selector() = %q, want %q", got, want)
	}
}

func TestSelectorSkipsUnstableID(t *testing.T) {
	body := &testNode{tag: "body", index: 1}
	div := &testNode{tag: "div", id: "item-48231", parent: body, index: 1}

	got := Selector(div)
	want := "body:nth-of-type(1) > div:nth-of-type(1)"
	if got != want {
		t.Errorf("Selector() = %q, want %q", got, want)
	}
}

func TestSelectorFiltersTransientClasses(t *testing.T) {
	body := &testNode{tag: "body", index: 1}
	a := &testNode{
		tag:     "a",
		classes: []string{"menu-link", "active", "is-open", "hover"},
		parent:  body,
		index:   4,
	}

	got := Selector(a)
	want := "body:nth-of-type(1) > a.menu-link:nth-of-type(4)"
	if got != want {
		t.Errorf("Selector() = %q, want %q", got, want)
	}
}

func TestSelectorDeterministic(t *testing.T) {
	body := &testNode{tag: "body", index: 1}
	div := &testNode{tag: "div", classes: []string{"card"}, parent: body, index: 2}

	first := Selector(div)
	second := Selector(div)
	if first != second {
		t.Errorf("selector not deterministic: %q vs %q", first, second)
	}
}

func TestSelectorNilNode(t *testing.T) {
	if got := Selector(nil); got != "" {
		t.Errorf("Selector(nil) = %q, want empty", got)
	}
}
