package fingerprint

import (
	"strconv"
	"unicode/utf16"

	"golang.org/x/net/html"

	"selenex/internal/dom"
	"selenex/internal/models"
)

const (
	DefaultMaxTextChars = 5000
	DefaultMaxLandmarks = 10
)

var landmarkTags = map[string]bool{
	"header":  true,
	"nav":     true,
	"main":    true,
	"footer":  true,
	"section": true,
	"article": true,
}

// Options bound the cost of a full fingerprint.
type Options struct {
	MaxTextChars int
	MaxLandmarks int
}

func DefaultOptions() Options {
	return Options{
		MaxTextChars: DefaultMaxTextChars,
		MaxLandmarks: DefaultMaxLandmarks,
	}
}

func (o Options) withDefaults() Options {
	if o.MaxTextChars <= 0 {
		o.MaxTextChars = DefaultMaxTextChars
	}
	if o.MaxLandmarks <= 0 {
		o.MaxLandmarks = DefaultMaxLandmarks
	}
	return o
}

// Page is a document as seen at capture time.
type Page struct {
	Root  *html.Node
	URL   string
	Title string
}

// NewPage takes the title from the document's <title> element.
func NewPage(root *html.Node, url string) Page {
	return Page{Root: root, URL: url, Title: dom.Title(root)}
}

// CaptureStructuralFingerprint hashes the leading visible body text and lists the first
// landmark elements in document order. Equal documents always produce equal fingerprints.
func CaptureStructuralFingerprint(page Page, opts Options) models.PageFingerprint {
	opts = opts.withDefaults()

	text := ""
	if body := dom.Body(page.Root); body != nil {
		text = dom.InnerTextPrefix(body, opts.MaxTextChars)
	}
	hash := HashText(text, opts.MaxTextChars)
	title := page.Title

	return models.PageFingerprint{
		URL:             page.URL,
		Title:           &title,
		VisibleTextHash: &hash,
		DomSignature:    Landmarks(page.Root, opts.MaxLandmarks),
	}
}

// Minimal is the url-only fingerprint used for high-frequency events.
func Minimal(url string) models.PageFingerprint {
	return models.PageFingerprint{URL: url}
}

// Landmarks returns up to max descriptors like "nav" or "main#content".
func Landmarks(root *html.Node, max int) []string {
	sig := make([]string, 0, max)
	dom.Walk(root, func(n *html.Node) bool {
		if len(sig) >= max {
			return false
		}
		if !dom.IsElement(n) {
			return true
		}
		if n.Data == "template" {
			return false
		}
		if landmarkTags[n.Data] {
			d := n.Data
			if id, ok := dom.Attr(n, "id"); ok && id != "" {
				d += "#" + id
			}
			sig = append(sig, d)
		}
		return true
	})
	return sig
}

// truncateUTF16 keeps the first max UTF-16 code units, the unit String.prototype.slice
// counts in.
func truncateUTF16(s string, max int) []uint16 {
	units := utf16.Encode([]rune(s))
	if len(units) > max {
		units = units[:max]
	}
	return units
}

// RollingHash is the shift-5 string hash (h*31 + c) kept in a signed 32-bit register.
// It is a cheap identity signal, not a collision-resistant digest.
func RollingHash(units []uint16) int32 {
	var h int32
	for _, c := range units {
		h = (h << 5) - h + int32(c)
	}
	return h
}

// HashString encodes the hash in base 16 with a leading minus for negative values.
func HashString(units []uint16) string {
	return strconv.FormatInt(int64(RollingHash(units)), 16)
}

// HashText hashes the first maxChars UTF-16 units of s.
func HashText(s string, maxChars int) string {
	if maxChars <= 0 {
		maxChars = DefaultMaxTextChars
	}
	return HashString(truncateUTF16(s, maxChars))
}
