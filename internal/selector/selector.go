// Package selector ranks locators for a recorded element and relocates it in a page.
package selector

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"selenex/internal/models"
)

var ErrNotRelocated = errors.New("element not found on page")

type Strategy string

const (
	ByID       Strategy = "id"
	ByName     Strategy = "name"
	ByCSS      Strategy = "css selector"
	ByXPath    Strategy = "xpath"
	ByLinkText Strategy = "link text"
)

const maxTextLen = 50

var textTags = map[string]bool{
	"SPAN": true, "DIV": true, "P": true,
	"H1": true, "H2": true, "H3": true, "H4": true, "H5": true, "H6": true,
}

var nameTags = map[string]bool{"INPUT": true, "SELECT": true, "TEXTAREA": true}

// Locator is one way of finding an element. XPath is always set, so every locator can
// be checked against a parsed page regardless of its Strategy.
type Locator struct {
	Strategy Strategy `json:"strategy"`
	Value    string   `json:"value"`
	XPath    string   `json:"xpath"`
	Rank     string   `json:"rank"`
}

func (l Locator) String() string {
	return fmt.Sprintf("%s=%s", l.Strategy, l.Value)
}

// IsDynamicID reports whether id looks generated: longer than ten characters with a
// digit in it. Ids carrying a vid- or prj- marker are stable.
func IsDynamicID(id string) bool {
	if id == "" {
		return false
	}
	if strings.Contains(id, "vid-") || strings.Contains(id, "prj-") {
		return false
	}
	return len(id) > 10 && strings.IndexFunc(id, unicode.IsDigit) >= 0
}

// Rank returns every applicable locator for ctx, best first. The last entry is always
// the bare tag.
func Rank(ctx *models.ElementContext) []Locator {
	if ctx == nil {
		return nil
	}
	tag := strings.ToUpper(ctx.Tag)
	lower := strings.ToLower(ctx.Tag)
	attrs := ctx.Attributes
	var out []Locator

	if v := deref(attrs.DataTestID); v != "" {
		out = append(out, Locator{
			Strategy: ByCSS,
			Value:    fmt.Sprintf("[data-testid='%s']", v),
			XPath:    fmt.Sprintf("//*[@data-testid=%s or @data-cy=%s]", Literal(v), Literal(v)),
			Rank:     "golden",
		})
	}
	if id := deref(attrs.ID); id != "" && !IsDynamicID(id) {
		out = append(out, Locator{Strategy: ByID, Value: id, XPath: fmt.Sprintf("//*[@id=%s]", Literal(id)), Rank: "golden"})
	}
	if name := deref(attrs.Name); name != "" && nameTags[tag] {
		out = append(out, Locator{Strategy: ByName, Value: name, XPath: fmt.Sprintf("//%s[@name=%s]", lower, Literal(name)), Rank: "silver"})
	}
	if href := deref(attrs.Href); tag == "A" && strings.HasPrefix(href, "/") {
		xp := fmt.Sprintf("//a[@href=%s]", Literal(href))
		out = append(out, Locator{Strategy: ByXPath, Value: xp, XPath: xp, Rank: "silver"})
	}
	if text := strings.Join(strings.Fields(deref(ctx.Text)), " "); text != "" && utf8.RuneCountInString(text) < maxTextLen {
		xp := fmt.Sprintf("//%s[normalize-space()=%s]", lower, Literal(text))
		switch {
		case tag == "A":
			out = append(out, Locator{Strategy: ByLinkText, Value: text, XPath: xp, Rank: "silver"})
		case tag == "BUTTON" || textTags[tag]:
			out = append(out, Locator{Strategy: ByXPath, Value: xp, XPath: xp, Rank: "silver"})
		}
	}
	for _, p := range ctx.ParentChain {
		pid := deref(p.ID)
		if pid == "" || IsDynamicID(pid) {
			continue
		}
		xp := fmt.Sprintf("//%s[@id=%s]//%s", strings.ToLower(p.Tag), Literal(pid), lower)
		out = append(out, Locator{Strategy: ByXPath, Value: xp, XPath: xp, Rank: "bronze"})
		break
	}
	if classes := meaningfulClasses(deref(attrs.Class)); len(classes) > 0 {
		conds := make([]string, len(classes))
		for i, c := range classes {
			conds[i] = fmt.Sprintf("contains(concat(' ', normalize-space(@class), ' '), %s)", Literal(" "+c+" "))
		}
		out = append(out, Locator{
			Strategy: ByCSS,
			Value:    lower + "." + strings.Join(classes, "."),
			XPath:    fmt.Sprintf("//%s[%s]", lower, strings.Join(conds, " and ")),
			Rank:     "bronze",
		})
	}
	if ph := deref(attrs.Placeholder); ph != "" {
		xp := fmt.Sprintf("//%s[@placeholder=%s]", lower, Literal(ph))
		out = append(out, Locator{Strategy: ByXPath, Value: xp, XPath: xp, Rank: "bronze"})
	}
	out = append(out, Locator{Strategy: ByCSS, Value: lower, XPath: "//" + lower, Rank: "fallback"})
	return out
}

// Best returns the top-ranked locator for ctx.
func Best(ctx *models.ElementContext) (Locator, bool) {
	ranked := Rank(ctx)
	if len(ranked) == 0 {
		return Locator{}, false
	}
	return ranked[0], true
}

// Relocate finds the element ctx describes in doc: the first ranked locator that
// matches exactly one node wins.
func Relocate(doc *html.Node, ctx *models.ElementContext) (*html.Node, Locator, error) {
	for _, loc := range Rank(ctx) {
		nodes, err := htmlquery.QueryAll(doc, loc.XPath)
		if err != nil {
			return nil, Locator{}, fmt.Errorf("evaluate %s: %w", loc.XPath, err)
		}
		if len(nodes) == 1 {
			return nodes[0], loc, nil
		}
	}
	return nil, Locator{}, ErrNotRelocated
}

// Literal quotes s as an XPath 1.0 string literal.
func Literal(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	quoted := make([]string, 0, 2*len(parts))
	for i, p := range parts {
		if i > 0 {
			quoted = append(quoted, `"'"`)
		}
		if p != "" {
			quoted = append(quoted, "'"+p+"'")
		}
	}
	return "concat(" + strings.Join(quoted, ", ") + ")"
}

func meaningfulClasses(class string) []string {
	var out []string
	for _, c := range strings.Fields(class) {
		if strings.HasPrefix(c, "wds-") || strings.HasPrefix(c, "hover:") {
			continue
		}
		out = append(out, c)
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
