package recorder

import (
	"encoding/json"
	"strings"

	"selenex/internal/capture"
)

const bindingName = "__selenexEmit"

// recordingScript returns the in-page capture script. It reports raw events through
// the binding; resolution and fingerprinting happen on the Go side against the
// serialized document.
func recordingScript(keys []string) (string, error) {
	if len(keys) == 0 {
		keys = capture.DefaultKeys
	}
	encoded, err := json.Marshal(keys)
	if err != nil {
		return "", err
	}
	r := strings.NewReplacer(
		"__BINDING__", bindingName,
		"__KEYS__", string(encoded),
		"__TARGET_ATTR__", capture.TargetAttr,
	)
	return r.Replace(recordingScriptTemplate), nil
}

const recordingScriptTemplate = `
(function() {
	if (window.__selenexInstalled) return;
	window.__selenexInstalled = true;

	var KEYS = __KEYS__;

	function emit(evt) {
		try {
			window.__BINDING__(JSON.stringify(evt));
		} catch (e) {}
	}

	function elementOf(node) {
		return node && node.nodeType === Node.ELEMENT_NODE ? node : node && node.parentElement;
	}

	function pathOf(el) {
		var path = [];
		while (el && el !== document.documentElement && el.parentElement) {
			path.unshift(Array.prototype.indexOf.call(el.parentElement.children, el));
			el = el.parentElement;
		}
		return el === document.documentElement ? path : null;
	}

	function serialize(el) {
		if (!el) return document.documentElement.outerHTML;
		el.setAttribute('__TARGET_ATTR__', '');
		try {
			return document.documentElement.outerHTML;
		} finally {
			el.removeAttribute('__TARGET_ATTR__');
		}
	}

	function snapshot(type, target, extra) {
		var el = elementOf(target);
		var evt = {
			type: type,
			targetPath: pathOf(el),
			targetTag: el ? el.tagName : '',
			html: serialize(el),
			url: location.href,
			title: document.title,
			timestamp: Date.now()
		};
		for (var k in extra) evt[k] = extra[k];
		return evt;
	}

	document.addEventListener('click', function(event) {
		if (!event.isTrusted) return;
		var evt = snapshot('click', event.target, {});
		if (evt.targetPath) emit(evt);
	}, true);

	document.addEventListener('change', function(event) {
		if (!event.isTrusted || !event.target.tagName) return;
		var tag = event.target.tagName;
		if (tag !== 'INPUT' && tag !== 'TEXTAREA' && tag !== 'SELECT') return;
		var evt = snapshot('change', event.target, { value: String(event.target.value) });
		if (evt.targetPath) emit(evt);
	}, true);

	document.addEventListener('keydown', function(event) {
		if (!event.isTrusted || KEYS.indexOf(event.key) < 0) return;
		emit(snapshot('keydown', document.activeElement || event.target, { key: event.key }));
	}, true);

	window.addEventListener('scroll', function(event) {
		if (!event.isTrusted) return;
		emit({
			type: 'scroll',
			url: location.href,
			scrollX: window.scrollX,
			scrollY: window.scrollY,
			timestamp: Date.now()
		});
	}, true);
})();
`
