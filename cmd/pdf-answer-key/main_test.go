package main

import (
	"bytes"
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/a3tai/pdf-answer-key/internal/config"
	"github.com/a3tai/pdf-answer-key/internal/pdf"
	"github.com/a3tai/pdf-answer-key/internal/pdf/pdftest"
)

const testVersion = "1.2.3"

func TestPrintVersion(t *testing.T) {
	originalStdout := os.Stdout

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("Failed to create pipe: %v", err)
	}
	os.Stdout = w

	oldVersion, oldBuildTime, oldGitCommit := version, buildTime, gitCommit
	version = testVersion
	buildTime = "2023-12-01_10:30:00"
	gitCommit = "abc123"

	defer func() {
		version, buildTime, gitCommit = oldVersion, oldBuildTime, oldGitCommit
		os.Stdout = originalStdout
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		printVersion()
		w.Close()
	}()

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	<-done

	output := buf.String()
	for _, expected := range []string{
		"PDF Answer Key",
		"Version: " + testVersion,
		"Build Time: 2023-12-01_10:30:00",
		"Git Commit: abc123",
		"Built with:",
	} {
		if !strings.Contains(output, expected) {
			t.Errorf("printVersion() output missing expected string: %s\nActual output:\n%s", expected, output)
		}
	}
}

func TestSetupLogging(t *testing.T) {
	originalOutput := log.Writer()
	originalFlags := log.Flags()
	defer func() {
		log.SetOutput(originalOutput)
		log.SetFlags(originalFlags)
	}()

	setupLogging(&config.Config{Mode: config.ModeStdio, LogLevel: "debug"})
	if log.Writer() != os.Stderr {
		t.Error("stdio debug mode should log to stderr")
	}

	setupLogging(&config.Config{Mode: config.ModeStdio, LogLevel: "info"})
	if log.Writer() != io.Discard {
		t.Error("stdio mode should discard logs unless debug is enabled")
	}

	for _, mode := range []string{config.ModeServer, config.ModeCLI} {
		log.SetFlags(0)
		setupLogging(&config.Config{Mode: mode, LogLevel: "info"})
		if got, want := log.Flags(), log.LstdFlags|log.Lshortfile; got != want {
			t.Errorf("%s mode: flags = %v, want %v", mode, got, want)
		}
		if log.Writer() != os.Stderr {
			t.Errorf("%s mode should log to stderr", mode)
		}
	}
}

func TestServiceOptions(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.FooterWidth = 300
	cfg.SideMargin = 20
	cfg.BottomMargin = 10
	cfg.Tolerance = 0.2
	cfg.FallbackFont = "Arial"
	cfg.IncludeStroke = true
	cfg.RenderTimeout = 5 * time.Second
	cfg.MaxPixelWidth = 1200
	cfg.LogLevel = "debug"

	opts := serviceOptions(cfg)
	if opts.Placer.DesiredWidth != 300 || opts.Placer.SideMargin != 20 || opts.Placer.BottomMargin != 10 {
		t.Errorf("unexpected placer: %+v", opts.Placer)
	}
	if opts.Tolerance != 0.2 || opts.FallbackFont != "Arial" || !opts.IncludeStroke {
		t.Errorf("unexpected extraction options: %+v", opts)
	}
	if opts.RenderTimeout != 5*time.Second || opts.MaxPixelWidth != 1200 || !opts.Debug {
		t.Errorf("unexpected render options: %+v", opts)
	}
}

func TestRunCLIMode(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "quiz.pdf")
	content := "BT /F1 12 Tf 1 0 0 rg 72 700 Td (1) Tj /F2 12 Tf 0 0.69 0.314 rg (Paris) Tj ET"
	if err := os.WriteFile(input, pdftest.Build(pdftest.Letter(content)), 0o644); err != nil {
		t.Fatalf("failed to write input: %v", err)
	}

	cfg := config.DefaultConfig()
	cfg.Mode = config.ModeCLI
	cfg.Input = input
	cfg.PDFDirectory = dir

	service, err := pdf.NewService(cfg.MaxFileSize, dir, &pdftest.Renderer{}, serviceOptions(cfg))
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}

	var out bytes.Buffer
	if err := runCLIMode(context.Background(), cfg, service, &out); err != nil {
		t.Fatalf("runCLIMode() error = %v", err)
	}

	if !strings.Contains(out.String(), "Pages annotated: 1 of 1") {
		t.Errorf("unexpected output:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "page 1: 1 pairs, footer stamped") {
		t.Errorf("expected page line in output:\n%s", out.String())
	}
	if _, err := os.Stat(filepath.Join(dir, "quiz.answerkey.pdf")); err != nil {
		t.Errorf("expected default output file: %v", err)
	}
}

func TestRunCLIModeMissingInput(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Mode = config.ModeCLI
	cfg.Input = filepath.Join(dir, "missing.pdf")

	service, err := pdf.NewService(cfg.MaxFileSize, dir, &pdftest.Renderer{}, serviceOptions(cfg))
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}

	var out bytes.Buffer
	err = runCLIMode(context.Background(), cfg, service, &out)
	if err == nil || !strings.Contains(err.Error(), "file does not exist") {
		t.Errorf("expected missing file error, got %v", err)
	}
	if out.Len() != 0 {
		t.Errorf("expected no report output, got %q", out.String())
	}
}
