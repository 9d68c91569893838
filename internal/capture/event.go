package capture

type EventType string

// TargetAttr marks the event target in the serialized document. Element paths measured
// in the live DOM do not survive re-parsing when the parser repairs the markup (an
// implied tbody, a div split out of a p), so the marker is authoritative and the path
// is the fallback.
const TargetAttr = "data-selenex-target"

const (
	EventClick   EventType = "click"
	EventScroll  EventType = "scroll"
	EventChange  EventType = "change"
	EventKeydown EventType = "keydown"
)

// RawEvent is an interaction as reported by a capture surface. High-fidelity events
// (click, change, keydown) ship the serialized document so the target can be resolved
// against the DOM as it was when the event fired.
type RawEvent struct {
	Type EventType `json:"type"`
	// element-child indices from the document element down to the event target
	TargetPath []int `json:"targetPath"`
	// uppercase tag name of the target, checked against where the path lands
	TargetTag string  `json:"targetTag,omitempty"`
	HTML      string  `json:"html,omitempty"`
	URL       string  `json:"url"`
	Title     string  `json:"title,omitempty"`
	Value     *string `json:"value,omitempty"`
	Key       string  `json:"key,omitempty"`
	ScrollX   float64 `json:"scrollX"`
	ScrollY   float64 `json:"scrollY"`
	// epoch milliseconds; zero means "stamp on arrival"
	Timestamp int64 `json:"timestamp"`
}
