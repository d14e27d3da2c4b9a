package markdown

import (
	"strings"
	"sync"
	"testing"
	"time"
)

func TestServiceRenderEmptyInput(t *testing.T) {
	svc := NewService()
	if got := svc.Render(""); got != "" {
		t.Fatalf("expected empty output, got %q", got)
	}
}

func TestServiceRenderHeadingAttributes(t *testing.T) {
	svc := NewService()

	got := svc.Render("# Title {#intro}")
	if !strings.Contains(got, `<h1 id="intro">Title</h1>`) {
		t.Fatalf("expected heading with id, got %q", got)
	}
}

func TestServiceRenderStripsScripts(t *testing.T) {
	svc := NewService()

	got := svc.Render("Hello\n\n<script>alert('x')</script>\n")
	if strings.Contains(got, "<script") || strings.Contains(got, "alert") {
		t.Fatalf("expected script and its content to be removed, got %q", got)
	}
	if !strings.Contains(got, "<p>Hello</p>") {
		t.Fatalf("expected paragraph to survive, got %q", got)
	}
}

func TestServiceRenderRemovesDangerousLinks(t *testing.T) {
	svc := NewService()

	got := svc.Render("[click](javascript:alert(1))")
	if strings.Contains(got, "javascript") {
		t.Fatalf("expected javascript URL to be removed, got %q", got)
	}
	if !strings.Contains(got, "click") {
		t.Fatalf("expected link text to be preserved, got %q", got)
	}
}

func TestServiceRenderKeepsSafeLinks(t *testing.T) {
	svc := NewService()

	got := svc.Render("[post](/posts/hello) and [mail](mailto:team@example.com)")
	if !strings.Contains(got, `href="/posts/hello"`) {
		t.Fatalf("expected relative link, got %q", got)
	}
	if !strings.Contains(got, `href="mailto:team@example.com"`) {
		t.Fatalf("expected mailto link, got %q", got)
	}
}

func TestServiceRenderTaskList(t *testing.T) {
	svc := NewService()

	got := svc.Render("- [x] done\n- [ ] todo\n")
	if !strings.Contains(got, `type="checkbox"`) {
		t.Fatalf("expected checkbox input, got %q", got)
	}
	if !strings.Contains(got, `checked=""`) || !strings.Contains(got, `disabled=""`) {
		t.Fatalf("expected checked and disabled attributes, got %q", got)
	}
}

func TestServiceRenderTable(t *testing.T) {
	svc := NewService()

	got := svc.Render("| a | b |\n|---|---|\n| 1 | 2 |\n")
	for _, want := range []string{"<table>", "<thead>", "<th>a</th>", "<td>1</td>"} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected %q in %q", want, got)
		}
	}
}

func TestServiceRenderHardWraps(t *testing.T) {
	svc := NewService()

	got := svc.Render("line one\nline two")
	if !strings.Contains(got, "line one<br") {
		t.Fatalf("expected newline to become <br>, got %q", got)
	}
}

func TestServiceRenderFencedCode(t *testing.T) {
	svc := NewService()

	got := svc.Render("```\nplain text\n```\n")
	if !strings.Contains(got, `<div class="codehilite">`) {
		t.Fatalf("expected codehilite wrapper, got %q", got)
	}
	if !strings.Contains(got, "<pre><code>plain text") {
		t.Fatalf("expected plain code block, got %q", got)
	}

	highlighted := svc.Render("```go\nfunc main() {}\n```\n")
	if !strings.Contains(highlighted, `<div class="codehilite">`) {
		t.Fatalf("expected codehilite wrapper, got %q", highlighted)
	}
	if !strings.Contains(highlighted, "main") {
		t.Fatalf("expected code text to survive, got %q", highlighted)
	}
}

func TestServiceRenderIsDeterministic(t *testing.T) {
	svc := NewService()
	input := "# Notes\n\n!!! tip\n    Use **bold**.\n\n- [ ] item\n\n<b onclick=\"x()\">hi</b>"

	first := svc.Render(input)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if got := svc.Render(input); got != first {
				t.Errorf("expected identical output, got %q want %q", got, first)
			}
		}()
	}
	wg.Wait()

	if preview := svc.Preview(input); preview != first {
		t.Fatalf("expected preview to equal render, got %q want %q", preview, first)
	}
	if other := NewService().Render(input); other != first {
		t.Fatalf("expected separate instances to agree, got %q want %q", other, first)
	}
}

type observerStub struct {
	calls    int
	fallback bool
}

func (o *observerStub) ObserveRender(_ time.Duration, fallback bool) {
	o.calls++
	o.fallback = o.fallback || fallback
}

func TestServiceRenderObservesDuration(t *testing.T) {
	observer := &observerStub{}
	svc := NewService(WithObserver(observer))

	svc.Render("text")
	svc.Render("")

	if observer.calls != 1 {
		t.Fatalf("expected one observation, got %d", observer.calls)
	}
	if observer.fallback {
		t.Fatalf("expected no fallback")
	}
}

func TestServiceRenderDocument(t *testing.T) {
	svc := NewService()
	doc, err := ParseDocument("post.md", []byte("---\ntitle: Hi\n---\n**bold**\n"), time.Time{})
	if err != nil {
		t.Fatalf("ParseDocument: %v", err)
	}

	got, err := svc.RenderDocument(doc)
	if err != nil {
		t.Fatalf("RenderDocument: %v", err)
	}
	if !strings.Contains(got, "<strong>bold</strong>") {
		t.Fatalf("expected rendered body, got %q", got)
	}
	if strings.Contains(got, "title") {
		t.Fatalf("expected frontmatter to be excluded, got %q", got)
	}

	if _, err := svc.RenderDocument(nil); err == nil {
		t.Fatalf("expected error for nil document")
	}
}
