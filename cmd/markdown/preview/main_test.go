package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRunPreviewSanitizes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "post.md")
	source := "---\ntitle: Hello\n---\n[click](javascript:alert(1))\n\n<script>alert(1)</script>\n"
	if err := os.WriteFile(path, []byte(source), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	var out bytes.Buffer
	if err := runPreview([]string{"--file", path}, &out); err != nil {
		t.Fatalf("runPreview: %v", err)
	}
	got := out.String()
	if !strings.Contains(got, `"title": "Hello"`) {
		t.Fatalf("expected frontmatter in output, got %q", got)
	}
	if strings.Contains(got, "javascript:") || strings.Contains(got, "<script>") {
		t.Fatalf("expected sanitized output, got %q", got)
	}
}

func TestRunPreviewRawBody(t *testing.T) {
	path := filepath.Join(t.TempDir(), "post.md")
	if err := os.WriteFile(path, []byte("# Raw\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	var out bytes.Buffer
	if err := runPreview([]string{"-f", path, "--render-html=false"}, &out); err != nil {
		t.Fatalf("runPreview: %v", err)
	}
	if !strings.Contains(out.String(), "# Raw") {
		t.Fatalf("expected raw markdown, got %q", out.String())
	}
}

func TestRunPreviewRequiresFile(t *testing.T) {
	if err := runPreview(nil, &bytes.Buffer{}); err == nil {
		t.Fatal("expected missing file error")
	}
}
