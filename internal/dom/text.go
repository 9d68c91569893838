package dom

import (
	"strings"
	"unicode"

	"golang.org/x/net/html"
)

// Elements whose content never renders as text.
var skippedTags = map[string]bool{
	"head":     true,
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
	"iframe":   true,
	"object":   true,
	"svg":      true,
	"canvas":   true,
}

var blockTags = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true, "details": true,
	"dialog": true, "dd": true, "div": true, "dl": true, "dt": true, "fieldset": true,
	"figcaption": true, "figure": true, "footer": true, "form": true, "h1": true, "h2": true,
	"h3": true, "h4": true, "h5": true, "h6": true, "header": true, "hgroup": true, "hr": true,
	"li": true, "main": true, "nav": true, "ol": true, "p": true, "pre": true, "section": true,
	"table": true, "tr": true, "ul": true, "summary": true, "caption": true, "option": true,
}

var preservingTags = map[string]bool{
	"pre":      true,
	"textarea": true,
	"listing":  true,
}

// Hidden reports whether an element is hidden without needing layout: the hidden
// attribute, aria-hidden="true", or an inline display:none.
func Hidden(n *html.Node) bool {
	if !IsElement(n) {
		return false
	}
	if HasAttr(n, "hidden") {
		return true
	}
	if v, ok := Attr(n, "aria-hidden"); ok && strings.EqualFold(v, "true") {
		return true
	}
	if style, ok := Attr(n, "style"); ok {
		compact := strings.ToLower(strings.Join(strings.Fields(style), ""))
		if strings.Contains(compact, "display:none") || strings.Contains(compact, "visibility:hidden") {
			return true
		}
	}
	if n.Data == "input" {
		if v, ok := Attr(n, "type"); ok && strings.EqualFold(v, "hidden") {
			return true
		}
	}
	return false
}

// textWriter assembles rendered text. Whitespace is held back until a non-space rune
// follows it, so the output never carries leading or trailing whitespace and a block
// break never has to rewrite what was already written.
type textWriter struct {
	sb strings.Builder
	// whitespace waiting for the next non-space rune
	pending []rune
	// last rune written to sb, 0 when empty
	last rune
	// UTF-16 units in sb; writing stops once max is reached (0 means unbounded)
	units int
	max   int
}

func (w *textWriter) done() bool {
	return w.max > 0 && w.units >= w.max
}

func (w *textWriter) tail() rune {
	if n := len(w.pending); n > 0 {
		return w.pending[n-1]
	}
	return w.last
}

func (w *textWriter) put(r rune) {
	if w.done() {
		return
	}
	if unicode.IsSpace(r) {
		if w.last != 0 {
			w.pending = append(w.pending, r)
		}
		return
	}
	for _, p := range w.pending {
		w.emit(p)
	}
	w.pending = w.pending[:0]
	w.emit(r)
}

func (w *textWriter) emit(r rune) {
	if w.done() {
		return
	}
	w.sb.WriteRune(r)
	w.last = r
	w.units++
	if r >= 0x10000 {
		w.units++
	}
}

func (w *textWriter) write(s string) {
	for _, r := range s {
		w.put(r)
	}
}

func (w *textWriter) space() {
	if t := w.tail(); t == 0 || t == ' ' || t == '\n' {
		return
	}
	w.put(' ')
}

func (w *textWriter) newline() {
	t := w.tail()
	if t == 0 || t == '\n' {
		return
	}
	for n := len(w.pending); n > 0 && w.pending[n-1] == ' '; n-- {
		w.pending = w.pending[:n-1]
	}
	w.put('\n')
}

func (w *textWriter) collapsed(s string) {
	inSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			inSpace = true
			continue
		}
		if inSpace {
			w.space()
			inSpace = false
		}
		w.put(r)
	}
	if inSpace {
		w.space()
	}
}

func (w *textWriter) node(n *html.Node, preserve bool) {
	if w.done() {
		return
	}
	switch n.Type {
	case html.TextNode:
		if preserve {
			w.write(n.Data)
		} else {
			w.collapsed(n.Data)
		}
		return
	case html.ElementNode:
		if skippedTags[n.Data] || Hidden(n) {
			return
		}
		if n.Data == "br" {
			w.put('\n')
			return
		}
	case html.DocumentNode:
	default:
		return
	}

	block := n.Type == html.ElementNode && blockTags[n.Data]
	cell := n.Type == html.ElementNode && (n.Data == "td" || n.Data == "th")
	keep := preserve || (n.Type == html.ElementNode && preservingTags[n.Data])

	if block {
		w.newline()
	}
	for c := n.FirstChild; c != nil && !w.done(); c = c.NextSibling {
		w.node(c, keep)
	}
	if block {
		w.newline()
	}
	if cell {
		w.space()
	}
}

// InnerText approximates HTMLElement.innerText: text of rendered descendants, whitespace
// collapsed outside preformatted content, block elements separated by line breaks.
// The result carries no leading or trailing whitespace.
func InnerText(n *html.Node) string {
	return InnerTextPrefix(n, 0)
}

// InnerTextPrefix is InnerText cut short once maxUnits UTF-16 units are produced. Its
// first maxUnits units equal those of InnerText; it may end one unit past maxUnits when
// the last rune is a surrogate pair. maxUnits <= 0 means no limit.
func InnerTextPrefix(n *html.Node, maxUnits int) string {
	if n == nil {
		return ""
	}
	if IsElement(n) && (Hidden(n) || skippedTags[n.Data]) {
		return ""
	}
	w := textWriter{max: maxUnits}
	if n.Type == html.TextNode {
		w.collapsed(n.Data)
	} else {
		w.node(n, false)
	}
	return w.sb.String()
}
