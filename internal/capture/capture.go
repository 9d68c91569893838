// Package capture turns raw interaction events into Action Records.
//
// Capturer is the single entry point a capture surface calls per event. It resolves the
// target element, fingerprints the page, gates scroll events through a cooldown window
// and stamps records with non-decreasing timestamps.
package capture

import (
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"selenex/internal/dom"
	"selenex/internal/fingerprint"
	"selenex/internal/models"
	"selenex/internal/resolver"
)

const DefaultScrollWindow = 500 * time.Millisecond

var DefaultKeys = []string{"Enter", "Escape", "Tab"}

var errNoDocument = errors.New("event carries no document")

var changeTags = map[string]bool{
	"INPUT":    true,
	"TEXTAREA": true,
	"SELECT":   true,
}

type Options struct {
	// AncestorLimit bounds resolver searches; zero searches to the root.
	AncestorLimit  int
	MaxParentDepth int
	Fingerprint    fingerprint.Options
	ScrollWindow   time.Duration
	Keys           []string
}

func DefaultOptions() Options {
	return Options{
		MaxParentDepth: fingerprint.DefaultMaxDepth,
		Fingerprint:    fingerprint.DefaultOptions(),
		ScrollWindow:   DefaultScrollWindow,
		Keys:           DefaultKeys,
	}
}

type Capturer struct {
	opts     Options
	keys     map[string]bool
	cooldown *Cooldown
	logger   *zap.Logger
	now      func() time.Time

	mu     sync.Mutex
	lastTS int64
}

func New(opts Options, logger *zap.Logger) *Capturer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MaxParentDepth <= 0 {
		opts.MaxParentDepth = fingerprint.DefaultMaxDepth
	}
	if len(opts.Keys) == 0 {
		opts.Keys = DefaultKeys
	}
	if opts.ScrollWindow <= 0 {
		opts.ScrollWindow = DefaultScrollWindow
	}
	keys := make(map[string]bool, len(opts.Keys))
	for _, k := range opts.Keys {
		keys[k] = true
	}
	return &Capturer{
		opts:     opts,
		keys:     keys,
		cooldown: NewCooldown(opts.ScrollWindow),
		logger:   logger,
		now:      time.Now,
	}
}

// Reset forgets the scroll window and timestamp floor, for a fresh session.
func (c *Capturer) Reset() {
	c.cooldown.Reset()
	c.mu.Lock()
	c.lastTS = 0
	c.mu.Unlock()
}

// Handle is the event-handler boundary: OnInteraction with panics recovered and logged,
// so one malformed event never stops later ones from recording.
func (c *Capturer) Handle(evt RawEvent) (rec models.ActionRecord, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("capture panicked",
				zap.String("event", string(evt.Type)),
				zap.String("url", evt.URL),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
			rec, ok = models.ActionRecord{}, false
		}
	}()
	return c.OnInteraction(evt)
}

// OnInteraction returns the record for evt, or false when the event is filtered out,
// coalesced, or did not resolve to an element.
func (c *Capturer) OnInteraction(evt RawEvent) (models.ActionRecord, bool) {
	ts := evt.Timestamp
	if ts <= 0 {
		ts = c.now().UnixMilli()
	}

	var (
		rec models.ActionRecord
		err error
	)
	switch evt.Type {
	case EventClick:
		rec, err = c.click(evt)
	case EventChange:
		rec, err = c.change(evt)
	case EventKeydown:
		if !c.keys[evt.Key] {
			return models.ActionRecord{}, false
		}
		rec, err = c.keydown(evt)
	case EventScroll:
		if !c.cooldown.Fire(time.UnixMilli(ts)) {
			return models.ActionRecord{}, false
		}
		rec = c.scroll(evt)
	default:
		c.logger.Debug("ignoring event type", zap.String("event", string(evt.Type)))
		return models.ActionRecord{}, false
	}
	if err != nil {
		log := c.logger.Warn
		if IsMiss(err) {
			log = c.logger.Debug
		}
		log("event not captured",
			zap.String("event", string(evt.Type)),
			zap.String("url", evt.URL),
			zap.Error(err))
		return models.ActionRecord{}, false
	}

	rec.Timestamp = c.stamp(ts)
	return rec, true
}

func (c *Capturer) stamp(ts int64) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ts < c.lastTS {
		ts = c.lastTS
	}
	c.lastTS = ts
	return ts
}

type missError struct {
	reason string
}

func (e missError) Error() string { return e.reason }

// IsMiss reports whether err only means "nothing to record".
func IsMiss(err error) bool {
	var m missError
	return errors.As(err, &m)
}

func (c *Capturer) locate(evt RawEvent) (*html.Node, *html.Node, error) {
	if evt.HTML == "" {
		return nil, nil, errNoDocument
	}
	doc, err := dom.ParseString(evt.HTML)
	if err != nil {
		return nil, nil, err
	}
	if target := takeMarked(doc); target != nil {
		return doc, target, nil
	}
	target, err := dom.NodeAtPath(doc, evt.TargetPath)
	if err != nil {
		return doc, nil, err
	}
	if evt.TargetTag != "" && !strings.EqualFold(dom.TagName(target), evt.TargetTag) {
		return doc, nil, fmt.Errorf("%w: path ends at %s, event target was %s",
			dom.ErrPathNotFound, strings.ToLower(dom.TagName(target)), strings.ToLower(evt.TargetTag))
	}
	return doc, target, nil
}

// takeMarked finds the element the surface stamped with TargetAttr and strips the
// stamp so it never shows up in captured context.
func takeMarked(doc *html.Node) *html.Node {
	var found *html.Node
	dom.Walk(doc, func(n *html.Node) bool {
		if found != nil {
			return false
		}
		if dom.HasAttr(n, TargetAttr) {
			found = n
			return false
		}
		return true
	})
	if found == nil {
		return nil
	}
	attrs := found.Attr[:0]
	for _, a := range found.Attr {
		if a.Key != TargetAttr {
			attrs = append(attrs, a)
		}
	}
	found.Attr = attrs
	return found
}

func (c *Capturer) page(doc *html.Node, evt RawEvent) models.PageFingerprint {
	page := fingerprint.NewPage(doc, evt.URL)
	if evt.Title != "" {
		page.Title = evt.Title
	}
	return fingerprint.CaptureStructuralFingerprint(page, c.opts.Fingerprint)
}

func (c *Capturer) click(evt RawEvent) (models.ActionRecord, error) {
	doc, target, err := c.locate(evt)
	if err != nil {
		return models.ActionRecord{}, err
	}
	el := resolver.Resolve(target, c.opts.AncestorLimit)
	if el == nil {
		return models.ActionRecord{}, missError{reason: "no interactive element at target"}
	}
	return models.ActionRecord{
		Action:         models.ActionClick,
		ElementContext: fingerprint.CaptureElementContext(el, c.opts.MaxParentDepth),
		Fingerprint:    c.page(doc, evt),
	}, nil
}

func (c *Capturer) change(evt RawEvent) (models.ActionRecord, error) {
	doc, target, err := c.locate(evt)
	if err != nil {
		return models.ActionRecord{}, err
	}
	tag := dom.TagName(dom.Element(target))
	if !changeTags[tag] {
		return models.ActionRecord{}, missError{reason: fmt.Sprintf("change on %s", strings.ToLower(tag))}
	}

	value := ""
	if evt.Value != nil {
		value = *evt.Value
	} else if v, ok := dom.Attr(target, "value"); ok {
		value = v
	}
	return models.ActionRecord{
		Action:         models.ActionInput,
		ElementContext: fingerprint.CaptureElementContext(target, c.opts.MaxParentDepth),
		Value:          &value,
		Fingerprint:    c.page(doc, evt),
	}, nil
}

// keydown records the focused element when the surface could point at it; a key press
// with no locatable focus target is still a step worth keeping.
func (c *Capturer) keydown(evt RawEvent) (models.ActionRecord, error) {
	key := evt.Key
	rec := models.ActionRecord{
		Action:      models.ActionKeydown,
		Key:         &key,
		Fingerprint: fingerprint.Minimal(evt.URL),
	}
	doc, target, err := c.locate(evt)
	if doc != nil {
		rec.Fingerprint = c.page(doc, evt)
	}
	if err == nil {
		rec.ElementContext = fingerprint.CaptureElementContext(target, c.opts.MaxParentDepth)
	}
	return rec, nil
}

func (c *Capturer) scroll(evt RawEvent) models.ActionRecord {
	x, y := evt.ScrollX, evt.ScrollY
	return models.ActionRecord{
		Action:      models.ActionScroll,
		X:           &x,
		Y:           &y,
		Fingerprint: fingerprint.Minimal(evt.URL),
	}
}
