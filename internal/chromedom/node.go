package chromedom

import "clicktrail/internal/domtree"

// rawSignal is the JSON payload the injected script sends over the binding.
type rawSignal struct {
	Kind      string    `json:"kind"`
	URL       string    `json:"url"`
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	PageX     float64   `json:"pageX"`
	PageY     float64   `json:"pageY"`
	ScrollX   float64   `json:"scrollX"`
	ScrollY   float64   `json:"scrollY"`
	ViewportW float64   `json:"viewportW"`
	ViewportH float64   `json:"viewportH"`
	DocW      float64   `json:"docW"`
	DocH      float64   `json:"docH"`
	TS        int64     `json:"ts"`
	Chain     []rawNode `json:"chain"`
}

// rawNode is one element of the captured ancestor chain, leaf first.
type rawNode struct {
	Tag       string   `json:"tag"`
	ID        string   `json:"id"`
	Classes   []string `json:"classes"`
	Role      string   `json:"role"`
	TypeIndex int      `json:"typeIndex"`
	Text      string   `json:"text"`
}

// chainNode adapts a captured chain to domtree.Node. The chain is a snapshot;
// it never goes back to the browser.
type chainNode struct {
	chain []rawNode
	idx   int
}

// chainTarget returns the leaf node of a captured chain, or nil when the
// signal had no element under the pointer.
func chainTarget(chain []rawNode) domtree.Node {
	if len(chain) == 0 {
		return nil
	}
	return &chainNode{chain: chain}
}

func (n *chainNode) Tag() string       { return n.chain[n.idx].Tag }
func (n *chainNode) ID() string        { return n.chain[n.idx].ID }
func (n *chainNode) Classes() []string { return n.chain[n.idx].Classes }
func (n *chainNode) Role() string      { return n.chain[n.idx].Role }
func (n *chainNode) Text() string      { return n.chain[n.idx].Text }
func (n *chainNode) TypeIndex() int    { return n.chain[n.idx].TypeIndex }

func (n *chainNode) Parent() domtree.Node {
	if n.idx+1 >= len(n.chain) {
		return nil
	}
	return &chainNode{chain: n.chain, idx: n.idx + 1}
}
