package markdown

import (
	"bytes"
	"fmt"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/util"
)

// EngineOptions toggles the optional parts of the conversion engine.
type EngineOptions struct {
	HardWraps bool
	Highlight bool
}

// DefaultEngineOptions matches the behaviour authors see in the panel
// preview: newlines become <br> and fenced code gets highlighting markup.
func DefaultEngineOptions() EngineOptions {
	return EngineOptions{
		HardWraps: true,
		Highlight: true,
	}
}

// GoldmarkParser converts Markdown to unsanitized HTML. A single goldmark
// instance is built up front and shared by every call.
type GoldmarkParser struct {
	engine goldmark.Markdown
}

// NewGoldmarkParser constructs the parser with the fixed extension set.
func NewGoldmarkParser(opts EngineOptions) *GoldmarkParser {
	return &GoldmarkParser{engine: newGoldmarkEngine(opts)}
}

// Parse renders Markdown into raw HTML. Raw HTML in the source is passed
// through untouched; callers must sanitize the result. Block elements marked
// markdown="1" have their content rendered as Markdown.
func (p *GoldmarkParser) Parse(markdown []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := p.render(&buf, markdown, 0); err != nil {
		return nil, fmt.Errorf("markdown parse: %w", err)
	}
	return buf.Bytes(), nil
}

func (p *GoldmarkParser) render(buf *bytes.Buffer, src []byte, depth int) error {
	if depth >= maxMarkdownBlockDepth {
		return p.engine.Convert(src, buf)
	}
	for _, segment := range splitMarkdownBlocks(src) {
		if segment.tag == "" {
			if err := p.engine.Convert(segment.text, buf); err != nil {
				return err
			}
			continue
		}
		buf.WriteString("<" + segment.tag)
		buf.Write(segment.attrs)
		buf.WriteString(">\n")
		if err := p.render(buf, segment.text, depth+1); err != nil {
			return err
		}
		buf.WriteString("</" + segment.tag + ">\n")
	}
	return nil
}

func newGoldmarkEngine(opts EngineOptions) goldmark.Markdown {
	exts := []goldmark.Extender{
		extension.Table,
		extension.TaskList,
		Admonitions,
	}
	if opts.Highlight {
		exts = append(exts, highlighting.NewHighlighting(
			highlighting.WithGuessLanguage(false),
			highlighting.WithFormatOptions(chromahtml.WithClasses(true)),
			highlighting.WithWrapperRenderer(codehiliteWrapper),
		))
	}

	rendererOptions := []goldmark.Option{}
	if opts.HardWraps {
		rendererOptions = append(rendererOptions, goldmark.WithRendererOptions(html.WithHardWraps()))
	}

	engineOptions := append([]goldmark.Option{
		goldmark.WithExtensions(exts...),
		goldmark.WithParserOptions(parser.WithAttribute()),
		goldmark.WithRendererOptions(html.WithUnsafe()),
	}, rendererOptions...)

	return goldmark.New(engineOptions...)
}

// codehiliteWrapper wraps fenced code in <div class="codehilite">. When no
// lexer applies the highlighter leaves the <pre><code> markup to us.
func codehiliteWrapper(w util.BufWriter, ctx highlighting.CodeBlockContext, entering bool) {
	if entering {
		_, _ = w.WriteString(`<div class="codehilite">`)
		if ctx.Highlighted() {
			return
		}
		_, _ = w.WriteString("<pre><code")
		if lang, ok := ctx.Language(); ok && len(lang) > 0 {
			_, _ = w.WriteString(` class="language-`)
			_, _ = w.Write(util.EscapeHTML(lang))
			_ = w.WriteByte('"')
		}
		_ = w.WriteByte('>')
		return
	}

	if !ctx.Highlighted() {
		_, _ = w.WriteString("</code></pre>")
	}
	_, _ = w.WriteString("</div>\n")
}
