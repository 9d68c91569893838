// Package resolver decides which element an interaction is attributed to.
//
// A click lands on whatever node sits under the pointer, often an icon or a span inside
// the control the user meant. Resolve climbs to the nearest interactive element, lets an
// enclosing link with an href take precedence over controls nested inside it, and falls
// back to the raw target only when it carries a test id.
package resolver

import (
	"strings"

	"golang.org/x/net/html"

	"selenex/internal/dom"
)

const TestIDAttr = "data-testid"

var interactiveTags = map[string]bool{
	"a":        true,
	"button":   true,
	"input":    true,
	"textarea": true,
	"select":   true,
}

// IsInteractive matches a, button, input, textarea, select and [role="button"].
func IsInteractive(n *html.Node) bool {
	if !dom.IsElement(n) {
		return false
	}
	if interactiveTags[n.Data] {
		return true
	}
	role, ok := dom.Attr(n, "role")
	return ok && strings.TrimSpace(role) == "button"
}

// IsNavigationalAnchor matches a[href].
func IsNavigationalAnchor(n *html.Node) bool {
	return dom.IsElement(n) && n.Data == "a" && dom.HasAttr(n, "href")
}

// Resolve maps an event target to the element that should be recorded, or nil when the
// interaction did not land on anything worth recording. ancestorLimit bounds both
// upward searches; zero or less searches up to the document root.
func Resolve(target *html.Node, ancestorLimit int) *html.Node {
	target = dom.Element(target)
	if target == nil {
		return nil
	}

	el := dom.Closest(target, ancestorLimit, IsInteractive)
	if el != nil {
		if anchor := dom.Closest(el, ancestorLimit, IsNavigationalAnchor); anchor != nil {
			el = anchor
		}
		return el
	}

	if dom.HasAttr(target, TestIDAttr) {
		return target
	}
	return nil
}
