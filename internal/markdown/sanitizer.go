package markdown

import (
	"slices"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var allowedTags = []string{
	"a", "abbr", "acronym", "b", "blockquote", "code", "em", "i", "li", "ol", "strong", "ul",
	"p", "div", "span", "pre",
	"h1", "h2", "h3", "h4", "h5", "h6",
	"br", "hr",
	"table", "thead", "tbody", "tr", "th", "td",
	"input",
}

var allowedAttributes = map[string][]string{
	"href":     {"a"},
	"rel":      {"a"},
	"target":   {"a"},
	"title":    {"a", "abbr", "acronym"},
	"class":    {"div", "span", "p", "ul", "ol", "li", "pre", "code", "input"},
	"id":       {"h1", "h2", "h3", "h4", "h5", "h6"},
	"colspan":  {"th", "td"},
	"rowspan":  {"th", "td"},
	"type":     {"input"},
	"checked":  {"input"},
	"disabled": {"input"},
}

var allowedProtocols = []string{"http", "https", "mailto"}

// AllowedTags lists every element that survives sanitization. The result is
// a copy.
func AllowedTags() []string {
	return slices.Clone(allowedTags)
}

// AllowedAttributes maps an attribute name to the elements allowed to carry
// it. The result is a deep copy.
func AllowedAttributes() map[string][]string {
	out := make(map[string][]string, len(allowedAttributes))
	for attr, elements := range allowedAttributes {
		out[attr] = slices.Clone(elements)
	}
	return out
}

// AllowedProtocols returns the only URL schemes kept in href values.
func AllowedProtocols() []string {
	return slices.Clone(allowedProtocols)
}

var (
	policyOnce sync.Once
	policy     *bluemonday.Policy
)

// Policy returns the process wide sanitizer, built once from the allow
// lists above. Callers must not mutate it.
func Policy() *bluemonday.Policy {
	policyOnce.Do(func() {
		policy = newPolicy()
	})
	return policy
}

func newPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements(allowedTags...)
	for attr, elements := range allowedAttributes {
		p.AllowAttrs(attr).OnElements(elements...)
	}
	p.AllowURLSchemes(allowedProtocols...)
	p.RequireParseableURLs(true)
	p.AllowRelativeURLs(true)
	return p
}

// Sanitize filters html through Policy. Disallowed markup is removed and its
// text content kept.
func Sanitize(html string) string {
	if html == "" {
		return ""
	}
	return Policy().Sanitize(html)
}
