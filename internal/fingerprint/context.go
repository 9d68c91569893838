package fingerprint

import (
	"golang.org/x/net/html"

	"selenex/internal/dom"
	"selenex/internal/models"
)

const (
	DefaultMaxDepth = 5

	primaryTestIDAttr   = "data-testid"
	secondaryTestIDAttr = "data-cy"
)

// CaptureElementContext describes el and up to maxDepth of its ancestors, nearest first.
// Missing attributes and empty text come back as nil; it never fails on a malformed
// element. A nil el yields nil.
func CaptureElementContext(el *html.Node, maxDepth int) *models.ElementContext {
	el = dom.Element(el)
	if el == nil {
		return nil
	}
	if maxDepth < 0 {
		maxDepth = 0
	}

	ctx := &models.ElementContext{
		Tag:         dom.TagName(el),
		Text:        nonEmpty(dom.InnerText(el)),
		Attributes:  captureAttributes(el),
		ParentChain: make([]models.ParentDescriptor, 0, maxDepth),
	}

	for cur := dom.ParentElement(el); cur != nil && len(ctx.ParentChain) < maxDepth; cur = dom.ParentElement(cur) {
		ctx.ParentChain = append(ctx.ParentChain, models.ParentDescriptor{
			Tag:   dom.TagName(cur),
			ID:    nonEmptyAttr(cur, "id"),
			Class: nonEmptyAttr(cur, "class"),
		})
	}
	return ctx
}

func captureAttributes(el *html.Node) models.Attributes {
	testID := dom.AttrPtr(el, primaryTestIDAttr)
	if testID == nil {
		testID = dom.AttrPtr(el, secondaryTestIDAttr)
	}
	return models.Attributes{
		ID:           dom.AttrPtr(el, "id"),
		Class:        dom.AttrPtr(el, "class"),
		Href:         dom.AttrPtr(el, "href"),
		Name:         dom.AttrPtr(el, "name"),
		Placeholder:  dom.AttrPtr(el, "placeholder"),
		Role:         dom.AttrPtr(el, "role"),
		AriaExpanded: dom.AttrPtr(el, "aria-expanded"),
		Target:       dom.AttrPtr(el, "target"),
		Type:         dom.AttrPtr(el, "type"),
		DataTestID:   testID,
	}
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Parent descriptors follow Element.id / Element.className, which read as "" when unset.
func nonEmptyAttr(n *html.Node, name string) *string {
	v, _ := dom.Attr(n, name)
	return nonEmpty(v)
}
