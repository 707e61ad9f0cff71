package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"go.uber.org/automaxprocs/maxprocs"

	"github.com/a3tai/pdf-answer-key/internal/answerkey"
	"github.com/a3tai/pdf-answer-key/internal/config"
	"github.com/a3tai/pdf-answer-key/internal/mcp"
	"github.com/a3tai/pdf-answer-key/internal/pdf"
	"github.com/a3tai/pdf-answer-key/internal/render"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

// setupLogging configures logging based on the run mode
func setupLogging(cfg *config.Config) {
	if cfg.IsStdioMode() {
		// stdout carries the MCP protocol; logs go to stderr, and only in debug
		log.SetOutput(os.Stderr)
		if !cfg.IsDebug() {
			log.SetOutput(io.Discard)
		}
	} else {
		log.SetOutput(os.Stderr)
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}
}

// setupMaxProcs matches GOMAXPROCS to the container CPU quota
func setupMaxProcs(cfg *config.Config) {
	if cfg.IsDebug() {
		_, _ = maxprocs.Set(maxprocs.Logger(log.Printf))
	} else {
		_, _ = maxprocs.Set(maxprocs.Logger(func(string, ...interface{}) {}))
	}
}

// serviceOptions maps the configuration onto pipeline options
func serviceOptions(cfg *config.Config) pdf.Options {
	opts := pdf.DefaultOptions()
	opts.Placer = answerkey.Placer{
		DesiredWidth: cfg.FooterWidth,
		SideMargin:   cfg.SideMargin,
		BottomMargin: cfg.BottomMargin,
	}
	opts.Tolerance = cfg.Tolerance
	opts.FallbackFont = cfg.FallbackFont
	opts.IncludeStroke = cfg.IncludeStroke
	opts.RenderTimeout = cfg.RenderTimeout
	opts.MaxPixelWidth = cfg.MaxPixelWidth
	opts.Debug = cfg.IsDebug()
	return opts
}

// newRenderer creates the headless Chrome renderer described by cfg
func newRenderer(cfg *config.Config) *render.Chrome {
	return render.NewChrome(render.Options{
		BrowserBin: cfg.BrowserBin,
		NoSandbox:  cfg.NoSandbox,
		Timeout:    cfg.RenderTimeout,
		Debug:      cfg.IsDebug(),
	})
}

// runCLIMode annotates cfg.Input into cfg.OutputPath() and prints the report
func runCLIMode(ctx context.Context, cfg *config.Config, service *pdf.Service, out io.Writer) error {
	result, err := service.AnnotateFile(ctx, cfg.Input, cfg.OutputPath(), cfg.Pages)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%s -> %s\n", result.Path, result.OutputPath)
	fmt.Fprintf(out, "Pages annotated: %d of %d\n", result.AnnotatedPages, result.Pages)
	for _, page := range result.Report {
		if page.Skipped {
			continue
		}
		fmt.Fprintf(out, "  page %d: %d pairs", page.Page, len(page.Entries))
		if page.Annotated {
			fmt.Fprint(out, ", footer stamped")
		}
		fmt.Fprintln(out)
		for _, problem := range page.Problems {
			fmt.Fprintf(out, "    %s\n", problem)
		}
	}
	fmt.Fprintln(out, result.Summary)
	return nil
}

// runServerMode handles server mode execution with signal handling
func runServerMode(ctx context.Context, cancel context.CancelFunc, server *mcp.Server) error {
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(signalCh)

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- server.Run(ctx)
	}()

	select {
	case sig := <-signalCh:
		log.Printf("Received signal: %s", sig)
		log.Println("Initiating graceful shutdown...")
		cancel()

		if err := <-serverErrCh; err != nil {
			return fmt.Errorf("server shutdown with error: %w", err)
		}

	case err := <-serverErrCh:
		if err != nil {
			return err
		}
	}

	log.Println("Server stopped successfully")
	return nil
}

func run(cfg *config.Config) error {
	renderer := newRenderer(cfg)
	defer func() {
		if err := renderer.Close(); err != nil {
			log.Printf("Failed to close browser: %v", err)
		}
	}()

	cached := render.NewCache(renderer, render.DefaultCacheSize)
	pdfService, err := pdf.NewService(cfg.MaxFileSize, cfg.PDFDirectory, cached, serviceOptions(cfg))
	if err != nil {
		return fmt.Errorf("failed to create PDF service: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.IsCLIMode() {
		ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runCLIMode(ctx, cfg, pdfService, os.Stdout)
	}

	server, err := mcp.NewServer(cfg, pdfService)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	if cfg.IsServerMode() {
		return runServerMode(ctx, cancel, server)
	}
	// In stdio mode the parent process controls our lifecycle
	return server.Run(ctx)
}

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			printVersion()
			return
		}
	}

	cfg, err := config.LoadFromFlags()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	setupLogging(cfg)
	setupMaxProcs(cfg)

	if version != "dev" {
		cfg.Version = version
	}

	if cfg.IsDebug() && !cfg.IsStdioMode() {
		log.Printf("Starting with configuration: %s", cfg.String())
	}

	if err := run(cfg); err != nil {
		log.Printf("Error: %v", err)
		if cfg.IsCLIMode() {
			fmt.Fprintf(os.Stderr, "pdf-answer-key: %v\n", err)
		}
		os.Exit(1)
	}
}

// printVersion prints version information
func printVersion() {
	fmt.Printf("PDF Answer Key\n")
	fmt.Printf("Version: %s\n", version)
	fmt.Printf("Build Time: %s\n", buildTime)
	fmt.Printf("Git Commit: %s\n", gitCommit)
	fmt.Printf("Built with: %s\n", runtime.Version())
}
