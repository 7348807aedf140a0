package render

import "strings"

func nameSet(names string) map[string]bool {
	m := make(map[string]bool)
	for _, n := range strings.Fields(names) {
		m[n] = true
	}
	return m
}

// Inline elements get no newlines around their children in pretty output.
var inlineElements = nameSet(`a abbr b bdi bdo br cite code data dfn em i kbd
	label mark q s samp small span strong sub sup time u var wbr`)

// Boolean attributes are written without a value.
var booleanAttrs = nameSet(`allowfullscreen async autofocus autoplay checked
	controls default defer disabled formnovalidate hidden ismap loop multiple
	muted nomodule novalidate open playsinline readonly required reversed
	selected`)

func isInlineElement(tag string) bool { return inlineElements[tag] }

func isBooleanAttr(name string) bool { return booleanAttrs[name] }
