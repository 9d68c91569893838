// Package dom wraps golang.org/x/net/html node trees with the handful of browser-like
// queries the recorder needs: closest-ancestor search, attribute lookup, element paths
// and a layout-free approximation of innerText.
package dom

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

var ErrPathNotFound = errors.New("element path does not resolve")

// Parse parses a full HTML document.
func Parse(r io.Reader) (*html.Node, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}
	return doc, nil
}

// ParseString is Parse for in-memory markup.
func ParseString(s string) (*html.Node, error) {
	return Parse(strings.NewReader(s))
}

func IsElement(n *html.Node) bool {
	return n != nil && n.Type == html.ElementNode
}

// TagName returns the tag the way a browser reports Element.tagName for HTML documents.
func TagName(n *html.Node) string {
	if !IsElement(n) {
		return ""
	}
	return strings.ToUpper(n.Data)
}

// Attr returns the value of the named attribute and whether it is present.
func Attr(n *html.Node, name string) (string, bool) {
	if !IsElement(n) {
		return "", false
	}
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

func HasAttr(n *html.Node, name string) bool {
	_, ok := Attr(n, name)
	return ok
}

// AttrPtr returns nil when the attribute is missing.
func AttrPtr(n *html.Node, name string) *string {
	v, ok := Attr(n, name)
	if !ok {
		return nil
	}
	return &v
}

// ParentElement mirrors Node.parentElement: the document node is not an element.
func ParentElement(n *html.Node) *html.Node {
	if n == nil || !IsElement(n.Parent) {
		return nil
	}
	return n.Parent
}

// Element returns n itself when it is an element, otherwise its parent element.
// Event targets reported on text nodes are attributed to their containing element.
func Element(n *html.Node) *html.Node {
	if n == nil {
		return nil
	}
	if IsElement(n) {
		return n
	}
	return ParentElement(n)
}

// Closest walks from n (inclusive) towards the root and returns the first element
// accepted by match. limit bounds the number of ancestors examined above n; limit <= 0
// walks to the document root.
func Closest(n *html.Node, limit int, match func(*html.Node) bool) *html.Node {
	steps := 0
	for cur := Element(n); cur != nil; cur = ParentElement(cur) {
		if match(cur) {
			return cur
		}
		if limit > 0 && steps >= limit {
			return nil
		}
		steps++
	}
	return nil
}

// Walk visits n and its descendants in document order. Returning false from fn skips
// the children of the visited node.
func Walk(n *html.Node, fn func(*html.Node) bool) {
	if n == nil {
		return
	}
	if !fn(n) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		Walk(c, fn)
	}
}

// FindFirst returns the first element in document order with the given lowercase tag.
func FindFirst(root *html.Node, tag string) *html.Node {
	var found *html.Node
	Walk(root, func(n *html.Node) bool {
		if found != nil {
			return false
		}
		if IsElement(n) && n.Data == tag {
			found = n
			return false
		}
		return true
	})
	return found
}

func DocumentElement(doc *html.Node) *html.Node {
	if IsElement(doc) {
		return doc
	}
	if doc == nil {
		return nil
	}
	for c := doc.FirstChild; c != nil; c = c.NextSibling {
		if IsElement(c) {
			return c
		}
	}
	return nil
}

func Body(doc *html.Node) *html.Node {
	return FindFirst(doc, "body")
}

// Title returns the trimmed text of the first <title>, or "".
func Title(doc *html.Node) string {
	t := FindFirst(doc, "title")
	if t == nil {
		return ""
	}
	var sb strings.Builder
	for c := t.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
	}
	return strings.Join(strings.Fields(sb.String()), " ")
}

func elementChildren(n *html.Node) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if IsElement(c) {
			out = append(out, c)
		}
	}
	return out
}

// NodeAtPath follows element-child indices starting at the document element. An empty
// path addresses the document element itself.
func NodeAtPath(doc *html.Node, path []int) (*html.Node, error) {
	cur := DocumentElement(doc)
	if cur == nil {
		return nil, ErrPathNotFound
	}
	for depth, idx := range path {
		children := elementChildren(cur)
		if idx < 0 || idx >= len(children) {
			return nil, fmt.Errorf("%w: index %d at depth %d", ErrPathNotFound, idx, depth)
		}
		cur = children[idx]
	}
	return cur, nil
}

// PathOf is the inverse of NodeAtPath.
func PathOf(n *html.Node) []int {
	n = Element(n)
	var rev []int
	for n != nil {
		parent := ParentElement(n)
		if parent == nil {
			break
		}
		idx := 0
		for c := parent.FirstChild; c != nil && c != n; c = c.NextSibling {
			if IsElement(c) {
				idx++
			}
		}
		rev = append(rev, idx)
		n = parent
	}
	path := make([]int, len(rev))
	for i := range rev {
		path[i] = rev[len(rev)-1-i]
	}
	return path
}
