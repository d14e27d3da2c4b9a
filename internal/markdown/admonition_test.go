package markdown

import (
	"strings"
	"testing"
)

func TestAdmonitionDefaultTitle(t *testing.T) {
	got := NewService().Render("!!! note\n    Body text\n")

	for _, want := range []string{
		`<div class="admonition note">`,
		`<p class="admonition-title">Note</p>`,
		`<p>Body text</p>`,
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected %q in %q", want, got)
		}
	}
}

func TestAdmonitionCustomAndEmptyTitle(t *testing.T) {
	svc := NewService()

	custom := svc.Render("!!! warning \"Be careful\"\n    Sharp edges.\n")
	if !strings.Contains(custom, `<p class="admonition-title">Be careful</p>`) {
		t.Fatalf("expected custom title, got %q", custom)
	}

	empty := svc.Render("!!! tip \"\"\n    No title here.\n")
	if strings.Contains(empty, "admonition-title") {
		t.Fatalf("expected no title paragraph, got %q", empty)
	}
	if !strings.Contains(empty, `<div class="admonition tip">`) {
		t.Fatalf("expected admonition wrapper, got %q", empty)
	}
}

func TestAdmonitionClosesOnUnindentedLine(t *testing.T) {
	got := NewService().Render("!!! note\n    inside\n\noutside\n")

	end := strings.Index(got, "</div>")
	outside := strings.Index(got, "<p>outside</p>")
	if end < 0 || outside < 0 || outside < end {
		t.Fatalf("expected trailing paragraph after admonition, got %q", got)
	}
}

func TestAdmonitionTitleIsEscaped(t *testing.T) {
	got := NewService().Render("!!! note \"<img src=x onerror=alert(1)>\"\n    body\n")
	if strings.Contains(got, "<img") || !strings.Contains(got, "&lt;img") {
		t.Fatalf("expected escaped title, got %q", got)
	}
}

func TestParseAdmonitionHeader(t *testing.T) {
	cases := []struct {
		name     string
		input    string
		ok       bool
		typ      string
		title    string
		hasTitle bool
		classes  int
	}{
		{name: "type only", input: " note", ok: true, typ: "note", title: "Note", hasTitle: true},
		{name: "extra classes", input: " danger wide", ok: true, typ: "danger", title: "Danger", hasTitle: true, classes: 1},
		{name: "quoted title", input: ` info "Read me"`, ok: true, typ: "info", title: "Read me", hasTitle: true},
		{name: "empty title", input: ` info ""`, ok: true, typ: "info", hasTitle: false},
		{name: "missing type", input: ` "Title"`, ok: false},
		{name: "bad word", input: " no<te", ok: false},
		{name: "unterminated title", input: ` note "oops`, ok: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			node, ok := parseAdmonitionHeader(tc.input)
			if ok != tc.ok {
				t.Fatalf("expected ok=%v, got %v", tc.ok, ok)
			}
			if !ok {
				return
			}
			if node.AdmonitionType != tc.typ {
				t.Fatalf("expected type %q, got %q", tc.typ, node.AdmonitionType)
			}
			if node.HasTitle != tc.hasTitle {
				t.Fatalf("expected hasTitle=%v, got %v", tc.hasTitle, node.HasTitle)
			}
			if tc.hasTitle && node.Title != tc.title {
				t.Fatalf("expected title %q, got %q", tc.title, node.Title)
			}
			if len(node.Classes) != tc.classes {
				t.Fatalf("expected %d classes, got %v", tc.classes, node.Classes)
			}
		})
	}
}
