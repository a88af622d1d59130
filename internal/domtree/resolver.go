package domtree

import (
	"regexp"
	"strconv"
	"strings"
)

// interactiveTags are the semantic roles treated as meaningful click/hover
// targets when resolving a raw node upward.
var interactiveTags = map[string]bool{
	"a":        true,
	"button":   true,
	"input":    true,
	"select":   true,
	"option":   true,
	"textarea": true,
	"label":    true,
	"summary":  true,
}

// transientClasses are state-only classes excluded from selectors to avoid
// churn between captures of the same element.
var transientClasses = map[string]bool{
	"active":    true,
	"focus":     true,
	"focused":   true,
	"hover":     true,
	"hovered":   true,
	"open":      true,
	"opened":    true,
	"selected":  true,
	"show":      true,
	"shown":     true,
	"visible":   true,
	"hidden":    true,
	"expanded":  true,
	"collapsed": true,
	"disabled":  true,
	"loading":   true,
}

var digitRun = regexp.MustCompile(`[0-9]{3,}`)

const maxStableIDLength = 64
const maxSelectorClasses = 3

// StableID reports whether an element id is safe to anchor a selector on.
// Ids with runs of three or more digits are assumed to be generated and
// change between page loads, as are excessively long ids.
func StableID(id string) bool {
	if id == "" || len(id) > maxStableIDLength {
		return false
	}
	return !digitRun.MatchString(id)
}

// ResolveInteractive walks up from the raw target to the nearest interactive
// ancestor. If no ancestor qualifies, the raw node is returned as-is.
func ResolveInteractive(n Node) Node {
	for cur := n; cur != nil; cur = cur.Parent() {
		if isInteractive(cur) {
			return cur
		}
	}
	return n
}

func isInteractive(n Node) bool {
	if interactiveTags[strings.ToLower(n.Tag())] {
		return true
	}
	return n.Role() != ""
}

// Selector builds a structural path from the document root down to n. The
// walk stops (and the path anchors) at the first ancestor with a stable id;
// without one, nth-of-type positions approximate uniqueness.
func Selector(n Node) string {
	if n == nil {
		return ""
	}
	var segments []string
	for cur := n; cur != nil; cur = cur.Parent() {
		seg, anchor := segment(cur)
		segments = append(segments, seg)
		if anchor {
			break
		}
	}
	// segments were collected leaf-first
	for i, j := 0, len(segments)-1; i < j; i, j = i+1, j-1 {
		segments[i], segments[j] = segments[j], segments[i]
	}
	return strings.Join(segments, " > ")
}

func segment(n Node) (string, bool) {
	tag := strings.ToLower(n.Tag())
	if tag == "" {
		tag = "*"
	}
	var b strings.Builder
	b.WriteString(tag)
	if id := n.ID(); StableID(id) {
		b.WriteString("#")
		b.WriteString(id)
		return b.String(), true
	}
	kept := 0
	for _, class := range n.Classes() {
		if class == "" || transientClasses[strings.ToLower(class)] {
			continue
		}
		if strings.HasPrefix(class, "is-") || strings.HasPrefix(class, "has-") {
			continue
		}
		b.WriteString(".")
		b.WriteString(class)
		kept++
		if kept >= maxSelectorClasses {
			break
		}
	}
	index := n.TypeIndex()
	if index < 1 {
		index = 1
	}
	b.WriteString(":nth-of-type(")
	b.WriteString(strconv.Itoa(index))
	b.WriteString(")")
	return b.String(), false
}
