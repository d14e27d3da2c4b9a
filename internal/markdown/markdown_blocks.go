package markdown

import (
	"bytes"
	"regexp"
)

// maxMarkdownBlockDepth bounds nested markdown="1" elements.
const maxMarkdownBlockDepth = 8

var (
	blockOpenPattern     = regexp.MustCompile(`^ {0,3}<([A-Za-z][A-Za-z0-9]*)(\s[^>]*)?>`)
	markdownAttrPattern  = regexp.MustCompile(`(?i)\s+markdown\s*=\s*(?:"(?:1|block)"|'(?:1|block)'|(?:1|block)\b)`)
	fenceOpeners         = [][]byte{[]byte("```"), []byte("~~~")}
	selfClosingTagSuffix = []byte("/>")
)

// markdownSegment is either plain Markdown or the content of an HTML element
// opened with markdown="1", which is rendered as Markdown between the tags.
type markdownSegment struct {
	text  []byte
	tag   string
	attrs []byte
}

// splitMarkdownBlocks cuts src at every block-level element carrying a
// markdown attribute. Elements inside fenced code and elements without a
// matching close tag stay in the surrounding plain segment.
func splitMarkdownBlocks(src []byte) []markdownSegment {
	var (
		segments   []markdownSegment
		plainStart int
		pos        int
		fence      []byte
	)
	for pos < len(src) {
		lineEnd := len(src)
		if i := bytes.IndexByte(src[pos:], '\n'); i >= 0 {
			lineEnd = pos + i + 1
		}
		line := src[pos:lineEnd]

		if fence != nil {
			if bytes.HasPrefix(bytes.TrimLeft(line, " "), fence) {
				fence = nil
			}
			pos = lineEnd
			continue
		}
		if marker := fenceMarker(line); marker != nil {
			fence = marker
			pos = lineEnd
			continue
		}

		m := blockOpenPattern.FindSubmatchIndex(line)
		if m == nil || m[4] < 0 || !markdownAttrPattern.Match(line[m[4]:m[5]]) {
			pos = lineEnd
			continue
		}
		tag := string(line[m[2]:m[3]])
		bodyStart := pos + m[1]
		closeStart, closeEnd, ok := matchingClose(src[bodyStart:], tag)
		if !ok {
			pos = lineEnd
			continue
		}

		if pos > plainStart {
			segments = append(segments, markdownSegment{text: src[plainStart:pos]})
		}
		segments = append(segments, markdownSegment{
			text:  src[bodyStart : bodyStart+closeStart],
			tag:   tag,
			attrs: markdownAttrPattern.ReplaceAll(line[m[4]:m[5]], nil),
		})
		pos = bodyStart + closeEnd
		plainStart = pos
	}
	if plainStart < len(src) {
		segments = append(segments, markdownSegment{text: src[plainStart:]})
	}
	return segments
}

func fenceMarker(line []byte) []byte {
	trimmed := bytes.TrimLeft(line, " ")
	if len(line)-len(trimmed) > 3 {
		return nil
	}
	for _, opener := range fenceOpeners {
		if bytes.HasPrefix(trimmed, opener) {
			return opener
		}
	}
	return nil
}

// matchingClose finds the close tag balancing an already opened tag in text
// and returns its start and end offsets.
func matchingClose(text []byte, tag string) (int, int, bool) {
	pattern := regexp.MustCompile(`(?i)<(/?)` + regexp.QuoteMeta(tag) + `\b[^>]*>`)
	depth := 1
	for _, loc := range pattern.FindAllSubmatchIndex(text, -1) {
		switch {
		case loc[3] > loc[2]:
			depth--
		case bytes.HasSuffix(text[loc[0]:loc[1]], selfClosingTagSuffix):
		default:
			depth++
		}
		if depth == 0 {
			return loc[0], loc[1], true
		}
	}
	return 0, 0, false
}
