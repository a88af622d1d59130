package chromedom

import (
	"io"
	"testing"

	"pkt.systems/pslog"

	"clicktrail/internal/capture"
	"clicktrail/internal/domtree"
)

func testSource(t *testing.T) *Source {
	t.Helper()
	logger := pslog.NewWithOptions(io.Discard, pslog.Options{
		Mode:    pslog.ModeStructured,
		NoColor: true,
	})
	return &Source{log: logger}
}

func TestChainTargetResolvesThroughDomtree(t *testing.T) {
	chain := []rawNode{
		{Tag: "span", TypeIndex: 1, Text: "Buy now"},
		{Tag: "button", ID: "buy", Classes: []string{"btn"}, TypeIndex: 1},
		{Tag: "div", ID: "main", TypeIndex: 1},
		{Tag: "body", TypeIndex: 1},
	}
	target := chainTarget(chain)
	if target == nil {
		t.Fatal("chainTarget() returned nil for non-empty chain")
	}

	resolved := domtree.ResolveInteractive(target)
	if resolved.Tag() != "button" {
		t.Errorf("resolved tag = %q, want button", resolved.Tag())
	}
	sel := domtree.Selector(resolved)
	if sel != "button#buy" {
		t.Errorf("selector = %q", sel)
	}
}

func TestChainTargetEmpty(t *testing.T) {
	if chainTarget(nil) != nil {
		t.Error("expected nil target for empty chain")
	}
}

func TestDispatchDecodesPayload(t *testing.T) {
	s := testSource(t)

	var gotKind string
	var gotTarget domtree.Node
	var gotSig capture.Signal
	payload := `{
		"kind": "click",
		"url": "https://example.com/shop",
		"x": 12.4, "y": 99.6,
		"pageX": 12.4, "pageY": 599.6,
		"scrollX": 0, "scrollY": 500,
		"viewportW": 1280, "viewportH": 800,
		"docW": 1280, "docH": 4000,
		"ts": 1700000000000,
		"chain": [{"tag": "button", "id": "buy", "classes": ["btn"], "typeIndex": 1, "text": "Buy"}]
	}`
	s.dispatch(payload, func(kind string, target domtree.Node, sig capture.Signal) {
		gotKind = kind
		gotTarget = target
		gotSig = sig
	})

	if gotKind != "click" {
		t.Errorf("kind = %q, want click", gotKind)
	}
	if gotTarget == nil || gotTarget.Tag() != "button" {
		t.Fatalf("unexpected target: %v", gotTarget)
	}
	if gotSig.PageURL != "https://example.com/shop" || gotSig.TSUTC != 1700000000000 {
		t.Errorf("unexpected signal: %+v", gotSig)
	}
	if gotSig.X != 12.4 || gotSig.ViewportH != 800 {
		t.Errorf("coordinates not carried through: %+v", gotSig)
	}
}

func TestDispatchDropsMalformedPayload(t *testing.T) {
	s := testSource(t)

	called := false
	s.dispatch("{not json", func(string, domtree.Node, capture.Signal) {
		called = true
	})
	if called {
		t.Error("malformed payload reached the signal handler")
	}
}
