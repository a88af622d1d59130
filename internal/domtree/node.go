// Package domtree resolves raw interaction targets to their meaningful
// interactive ancestor and builds structural selectors for later correlation.
// It operates on a capability interface so the walk is independent of any
// particular UI source and testable against a synthetic tree.
package domtree

// Node is a read-only view of a single element in the containment hierarchy.
// TypeIndex is the 1-based position among preceding siblings of the same tag.
type Node interface {
	Tag() string
	ID() string
	Classes() []string
	Role() string
	Text() string
	Parent() Node
	TypeIndex() int
}
