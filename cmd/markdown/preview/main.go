package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/goliatone/go-press/internal/markdown"
)

func main() {
	if err := runPreview(os.Args[1:], os.Stdout); err != nil {
		log.Fatalf("markdown preview: %v", err)
	}
}

func runPreview(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("markdown-preview", flag.ContinueOnError)
	filePath := fs.StringP("file", "f", "", "Markdown file to preview")
	renderHTML := fs.Bool("render-html", true, "Render the body into sanitized HTML")
	hardWraps := fs.Bool("hard-wraps", true, "Treat single newlines as line breaks")
	highlight := fs.Bool("highlight", true, "Highlight fenced code blocks")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *filePath == "" {
		return errors.New("--file is required")
	}

	info, err := os.Stat(*filePath)
	if err != nil {
		return err
	}
	source, err := os.ReadFile(*filePath)
	if err != nil {
		return err
	}
	doc, err := markdown.ParseDocument(*filePath, source, info.ModTime())
	if err != nil {
		return fmt.Errorf("parse document: %w", err)
	}

	fmt.Fprintf(out, "Path: %s\nChecksum: %x\n\n", doc.FilePath, doc.Checksum)
	if frontmatter, err := json.MarshalIndent(doc.FrontMatter, "", "  "); err == nil {
		fmt.Fprintf(out, "Frontmatter:\n%s\n\n", frontmatter)
	}

	if !*renderHTML {
		fmt.Fprintf(out, "Markdown Body:\n%s\n", doc.Body)
		return nil
	}

	service := markdown.NewService(markdown.WithEngineOptions(markdown.EngineOptions{
		HardWraps: *hardWraps,
		Highlight: *highlight,
	}))
	rendered, err := service.RenderDocument(doc)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Rendered HTML:\n%s\n", rendered)
	return nil
}
