package parser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// FirstMatch evaluates rules in order against the first element each selector
// matches and returns the first non-empty value that parse accepts.
func FirstMatch[T any](root *goquery.Selection, rules RuleSet, parse func(string) (T, bool)) Optional[T] {
	for _, rule := range rules {
		sel := root.Find(rule.Selector).First()
		if sel.Length() == 0 {
			continue
		}

		raw := rule.value(sel)
		if raw == "" {
			continue
		}

		if v, ok := parse(raw); ok {
			return Some(v)
		}
	}
	return None[T]()
}

// FirstText is FirstMatch for plain string fields.
func FirstText(root *goquery.Selection, rules RuleSet) Optional[string] {
	return FirstMatch(root, rules, func(s string) (string, bool) {
		return s, true
	})
}

func (r Rule) value(sel *goquery.Selection) string {
	if r.Attr == "" {
		return cleanText(sel.Text())
	}
	v, _ := sel.Attr(r.Attr)
	return strings.TrimSpace(v)
}

// cleanText trims the text and collapses inner whitespace runs, including
// non-breaking spaces, to a single space.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
