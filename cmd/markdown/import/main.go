package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/goliatone/go-press/cmd/markdown/internal/bootstrap"
)

var moduleBuilder = bootstrap.BuildModule

func main() {
	if err := runImport(context.Background(), os.Args[1:], os.Stdout); err != nil {
		log.Fatalf("markdown import: %v", err)
	}
}

func runImport(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("markdown-import", flag.ContinueOnError)
	configPath := fs.StringP("config", "c", "", "Path to a YAML config file")
	envFiles := fs.String("env-file", "", "Comma separated list of .env files")
	directory := fs.StringP("directory", "d", "", "Directory of markdown posts (defaults to markdown.import_dir)")
	recursive := fs.BoolP("recursive", "r", false, "Descend into sub directories")
	dryRun := fs.Bool("dry-run", false, "Report what would be imported without writing posts")
	memory := fs.Bool("memory", false, "Keep posts in memory instead of the configured database")

	if err := fs.Parse(args); err != nil {
		return err
	}

	module, err := moduleBuilder(ctx, bootstrap.Options{
		ConfigPath: *configPath,
		EnvFiles:   bootstrap.SplitList(*envFiles),
		Recursive:  *recursive,
		Memory:     *memory,
	})
	if err != nil {
		return fmt.Errorf("bootstrap module: %w", err)
	}
	defer module.Module.Close()

	dir := *directory
	if dir == "" {
		dir = module.Module.Container().Config.Markdown.ImportDir
	}
	if dir == "" {
		return errors.New("directory is required")
	}

	result, err := module.Module.ImportPosts(ctx, dir, *dryRun)
	if result != nil {
		fmt.Fprintf(out, "created=%d skipped=%d errors=%d dry_run=%t\n",
			len(result.Created), len(result.Skipped), len(result.Errors), *dryRun)
	}
	if err != nil {
		return fmt.Errorf("import %s: %w", dir, err)
	}
	return nil
}
