package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	flag "github.com/spf13/pflag"
	"go.uber.org/automaxprocs/maxprocs"

	press "github.com/goliatone/go-press"
	"github.com/goliatone/go-press/internal/di"
	"github.com/goliatone/go-press/internal/logging"
)

func main() {
	// maxprocs.Set only fails on an invalid GOMAXPROCS value; runtime defaults apply then.
	_, _ = maxprocs.Set(maxprocs.Logger(func(string, ...interface{}) {}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "press:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("press", flag.ContinueOnError)
	configPath := fs.StringP("config", "c", "", "Path to a YAML config file")
	envFiles := fs.StringSlice("env-file", nil, "Env files loaded before the environment (repeatable)")
	addr := fs.String("addr", "", "Listen address, overrides server.addr")
	importDir := fs.String("import", "", "Import markdown posts from this directory before serving")
	memory := fs.Bool("memory", false, "Keep records in memory instead of the configured database")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := press.LoadConfig(*configPath, *envFiles...)
	if err != nil {
		return err
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	opts := []di.Option{di.WithCommandDispatch()}
	if *memory {
		opts = append(opts, di.WithMemoryRepositories())
	}
	module, err := press.New(ctx, cfg, opts...)
	if err != nil {
		return err
	}
	defer module.Close()

	logger := logging.ModuleLogger(module.Container().LoggerProvider(), logging.RootModule)

	dir := strings.TrimSpace(*importDir)
	if dir == "" && cfg.Markdown.ImportEnabled {
		dir = cfg.Markdown.ImportDir
	}
	if dir != "" {
		result, err := module.ImportPosts(ctx, dir, false)
		if err != nil {
			return fmt.Errorf("import %s: %w", dir, err)
		}
		logger.Info("press.import.completed", "directory", dir, "created", len(result.Created), "skipped", len(result.Skipped))
	}

	handler, err := module.Handler()
	if err != nil {
		return err
	}
	listener, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		return err
	}

	server := &http.Server{
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	fmt.Fprintf(out, "press listening on %s\n", listener.Addr())
	logger.Info("press.server.started", "addr", listener.Addr().String())

	served := make(chan error, 1)
	go func() { served <- server.Serve(listener) }()

	select {
	case err := <-served:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	logger.Info("press.server.stopping")
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
