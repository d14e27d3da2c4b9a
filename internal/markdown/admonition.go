package markdown

import (
	"bytes"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// KindAdmonition is the ast.NodeKind of Admonition blocks.
var KindAdmonition = ast.NewNodeKind("Admonition")

// Admonition is a callout block written as
//
//	!!! warning "Careful"
//	    indented body
//
// The first word is the admonition type; further words become extra classes.
type Admonition struct {
	ast.BaseBlock
	AdmonitionType string
	Classes        []string
	Title          string
	HasTitle       bool
}

// Kind implements ast.Node.
func (n *Admonition) Kind() ast.NodeKind {
	return KindAdmonition
}

// Dump implements ast.Node.
func (n *Admonition) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{
		"Type":  n.AdmonitionType,
		"Title": n.Title,
	}, nil)
}

const (
	admonitionMarker = "!!!"
	admonitionIndent = 4
)

type admonitionParser struct{}

// NewAdmonitionParser returns the block parser for "!!!" admonitions.
func NewAdmonitionParser() parser.BlockParser {
	return &admonitionParser{}
}

func (p *admonitionParser) Trigger() []byte {
	return []byte{'!'}
}

func (p *admonitionParser) Open(parent ast.Node, reader text.Reader, pc parser.Context) (ast.Node, parser.State) {
	line, _ := reader.PeekLine()
	w, pos := util.IndentWidth(line, reader.LineOffset())
	if w > 3 || !bytes.HasPrefix(line[pos:], []byte(admonitionMarker)) {
		return nil, parser.NoChildren
	}

	node, ok := parseAdmonitionHeader(string(line[pos+len(admonitionMarker):]))
	if !ok {
		return nil, parser.NoChildren
	}
	reader.AdvanceToEOL()
	return node, parser.HasChildren
}

func (p *admonitionParser) Continue(node ast.Node, reader text.Reader, pc parser.Context) parser.State {
	line, _ := reader.PeekLine()
	if util.IsBlank(line) {
		reader.AdvanceToEOL()
		return parser.Continue | parser.HasChildren
	}

	indent, _ := util.IndentWidth(line, reader.LineOffset())
	if indent < admonitionIndent {
		return parser.Close
	}
	pos, padding := util.IndentPosition(line, reader.LineOffset(), admonitionIndent)
	reader.AdvanceAndSetPadding(pos, padding)
	return parser.Continue | parser.HasChildren
}

func (p *admonitionParser) Close(node ast.Node, reader text.Reader, pc parser.Context) {}

func (p *admonitionParser) CanInterruptParagraph() bool {
	return true
}

func (p *admonitionParser) CanAcceptIndentedLine() bool {
	return false
}

// parseAdmonitionHeader reads `type [class...] ["title"]` from the remainder
// of a "!!!" line.
func parseAdmonitionHeader(rest string) (*Admonition, bool) {
	rest = strings.TrimRight(rest, " \t\r\n")
	words, title, hasTitle := rest, "", false
	if i := strings.IndexByte(rest, '"'); i >= 0 {
		j := strings.LastIndexByte(rest, '"')
		if j <= i {
			return nil, false
		}
		words, title, hasTitle = rest[:i], rest[i+1:j], true
		if strings.TrimSpace(rest[j+1:]) != "" {
			return nil, false
		}
	}

	fields := strings.Fields(words)
	if len(fields) == 0 {
		return nil, false
	}
	for _, field := range fields {
		if !isAdmonitionWord(field) {
			return nil, false
		}
	}

	typ := strings.ToLower(fields[0])
	node := &Admonition{
		AdmonitionType: typ,
		Classes:        fields[1:],
		Title:          title,
		HasTitle:       true,
	}
	if !hasTitle {
		node.Title = capitalize(typ)
	} else if title == "" {
		node.HasTitle = false
	}
	return node, true
}

func isAdmonitionWord(word string) bool {
	for _, r := range word {
		if r != '-' && r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func capitalize(word string) string {
	r, size := utf8.DecodeRuneInString(word)
	if r == utf8.RuneError {
		return word
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(word[size:])
}

type admonitionRenderer struct{}

// NewAdmonitionHTMLRenderer renders Admonition nodes as
// <div class="admonition TYPE"> with an optional title paragraph.
func NewAdmonitionHTMLRenderer() renderer.NodeRenderer {
	return &admonitionRenderer{}
}

func (r *admonitionRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(KindAdmonition, r.render)
}

func (r *admonitionRenderer) render(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	n := node.(*Admonition)
	if !entering {
		_, _ = w.WriteString("</div>\n")
		return ast.WalkContinue, nil
	}

	classes := append([]string{"admonition", n.AdmonitionType}, n.Classes...)
	_, _ = w.WriteString(`<div class="`)
	_, _ = w.Write(util.EscapeHTML([]byte(strings.Join(classes, " "))))
	_, _ = w.WriteString("\">\n")
	if n.HasTitle {
		_, _ = w.WriteString(`<p class="admonition-title">`)
		_, _ = w.Write(util.EscapeHTML([]byte(n.Title)))
		_, _ = w.WriteString("</p>\n")
	}
	return ast.WalkContinue, nil
}

type admonitions struct{}

// Admonitions is the goldmark extension enabling "!!!" callout blocks.
var Admonitions goldmark.Extender = &admonitions{}

func (e *admonitions) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(parser.WithBlockParsers(
		util.Prioritized(NewAdmonitionParser(), 150),
	))
	m.Renderer().AddOptions(renderer.WithNodeRenderers(
		util.Prioritized(NewAdmonitionHTMLRenderer(), 500),
	))
}
