// Package markdown converts author supplied Markdown into HTML that is safe to
// embed in public pages. Conversion runs through goldmark with the extensions
// authors rely on (tables, task lists, admonitions, attribute lists, code
// highlighting markup) and the result always passes through one shared
// bluemonday allow-list policy.
//
// The package also loads Markdown documents with YAML frontmatter from a
// filesystem so they can be imported as posts.
package markdown
