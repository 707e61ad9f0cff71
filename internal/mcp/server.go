package mcp

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/a3tai/pdf-answer-key/internal/config"
	"github.com/a3tai/pdf-answer-key/internal/descriptions"
	"github.com/a3tai/pdf-answer-key/internal/pdf"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	mcpEndpoint     = "/mcp"
	healthEndpoint  = "/healthz"
	shutdownTimeout = 5 * time.Second
)

// Server represents the MCP server instance
type Server struct {
	config     *config.Config
	pdfService *pdf.Service
	mcpServer  *server.MCPServer
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, pdfService *pdf.Service) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if pdfService == nil {
		return nil, fmt.Errorf("pdfService cannot be nil")
	}

	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false), // We don't support dynamic tool capabilities
	)

	s := &Server{
		config:     cfg,
		pdfService: pdfService,
		mcpServer:  mcpServer,
	}

	s.registerTools()

	return s, nil
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	annotateTool := mcp.NewTool(
		"pdf_answer_key_annotate",
		mcp.WithDescription(descriptions.GetToolDescription("pdf_answer_key_annotate")),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path to the PDF file, relative to the configured directory or absolute inside it"),
		),
		mcp.WithString("output",
			mcp.Description("Output PDF path (defaults to <name>.answerkey.pdf next to the input)"),
		),
		mcp.WithString("pages",
			mcp.Description("Pages to annotate, e.g. \"1-3,5,8-\" (defaults to all pages)"),
		),
	)
	s.mcpServer.AddTool(annotateTool, s.handleAnswerKeyAnnotate)

	extractTool := mcp.NewTool(
		"pdf_answer_key_extract",
		mcp.WithDescription(descriptions.GetToolDescription("pdf_answer_key_extract")),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path to the PDF file, relative to the configured directory or absolute inside it"),
		),
		mcp.WithString("pages",
			mcp.Description("Pages to read, e.g. \"2,4-6\" (defaults to all pages)"),
		),
	)
	s.mcpServer.AddTool(extractTool, s.handleAnswerKeyExtract)

	validateTool := mcp.NewTool(
		"pdf_validate_file",
		mcp.WithDescription(descriptions.GetToolDescription("pdf_validate_file")),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path to the PDF file"),
		),
	)
	s.mcpServer.AddTool(validateTool, s.handlePDFValidateFile)

	if s.config.IsDebug() {
		log.Printf("Registered tools: %s", strings.Join(descriptions.GetAllToolNames(), ", "))
	}
}

// optionalString returns the string argument name, or "" when absent
func optionalString(request mcp.CallToolRequest, name string) string {
	if v, ok := request.GetArguments()[name].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

// Handler functions
func (s *Server) handleAnswerKeyAnnotate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	req := pdf.PDFAnswerKeyAnnotateRequest{
		Path:   path,
		Output: optionalString(request, "output"),
		Pages:  optionalString(request, "pages"),
	}
	result, err := s.pdfService.PDFAnswerKeyAnnotate(ctx, req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(s.formatAnnotateResult(result)), nil
}

func (s *Server) handleAnswerKeyExtract(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	req := pdf.PDFAnswerKeyExtractRequest{
		Path:  path,
		Pages: optionalString(request, "pages"),
	}
	result, err := s.pdfService.PDFAnswerKeyExtract(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(s.formatExtractResult(result)), nil
}

func (s *Server) handlePDFValidateFile(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	req := pdf.PDFValidateFileRequest{Path: path}
	result, err := s.pdfService.PDFValidateFile(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var responseText string
	if result.Valid {
		responseText = fmt.Sprintf("PDF file %s is valid and readable (%d pages)", result.Path, result.Pages)
	} else {
		responseText = fmt.Sprintf("PDF validation failed for %s: %s", result.Path, result.Message)
	}

	return mcp.NewToolResultText(responseText), nil
}

// Formatting methods
func (s *Server) formatAnnotateResult(result *pdf.PDFAnswerKeyAnnotateResult) string {
	text := fmt.Sprintf("Annotated PDF: %s\n", result.Path)
	text += fmt.Sprintf("Output: %s\n", result.OutputPath)
	text += fmt.Sprintf("Pages annotated: %d of %d\n", result.AnnotatedPages, result.Pages)
	text += fmt.Sprintf("Outcome: %s\n", result.Summary)
	text += "\n" + formatPageReports(result.Report)
	return text
}

func (s *Server) formatExtractResult(result *pdf.PDFAnswerKeyExtractResult) string {
	text := fmt.Sprintf("Answer key for: %s\n", result.Path)
	text += fmt.Sprintf("Pages: %d\n", result.Pages)
	text += fmt.Sprintf("Question/answer pairs: %d\n", result.TotalPairs)
	text += "\n" + formatPageReports(result.Report)
	return text
}

func formatPageReports(reports []pdf.PageReport) string {
	var b strings.Builder
	for _, page := range reports {
		if page.Skipped {
			continue
		}

		fmt.Fprintf(&b, "Page %d:", page.Page)
		if page.Annotated && page.Placement != nil {
			fmt.Fprintf(&b, " footer at left=%.1f top=%.1f right=%.1f bottom=%.1f",
				page.Placement.Left, page.Placement.Top, page.Placement.Right, page.Placement.Bottom)
		}
		if page.StreamsRewritten > 0 {
			fmt.Fprintf(&b, " (%d content streams recolored)", page.StreamsRewritten)
		}
		b.WriteString("\n")

		if len(page.Entries) == 0 {
			b.WriteString("   no question/answer pairs\n")
		}
		for _, entry := range page.Entries {
			fmt.Fprintf(&b, "   %s → %s\n", entry.Question, entry.Answer)
		}
		for _, problem := range page.Problems {
			fmt.Fprintf(&b, "   ⚠️  %s\n", problem)
		}
	}
	return b.String()
}

// Run starts the MCP server in the configured mode
func (s *Server) Run(ctx context.Context) error {
	switch {
	case s.config.IsServerMode():
		return s.runServerMode(ctx)
	case s.config.IsStdioMode():
		return s.runStdioMode(ctx)
	default:
		return fmt.Errorf("unsupported mode for MCP server: %s", s.config.Mode)
	}
}

// runStdioMode runs the server in stdio mode
func (s *Server) runStdioMode(_ context.Context) error {
	if s.config.IsDebug() {
		log.Printf("Starting answer key MCP server in stdio mode")
		log.Printf("PDF directory: %s", s.config.PDFDirectory)
	}

	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}

// Handler returns the HTTP handler serving the streamable HTTP transport at
// /mcp and a liveness probe at /healthz
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(mcpEndpoint, server.NewStreamableHTTPServer(s.mcpServer))
	mux.HandleFunc(healthEndpoint, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// runServerMode serves the streamable HTTP transport until ctx is done
func (s *Server) runServerMode(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.config.Address())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Address(), err)
	}
	return s.serve(ctx, listener)
}

func (s *Server) serve(ctx context.Context, listener net.Listener) error {
	httpServer := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Printf("Answer key MCP server listening on http://%s%s", listener.Addr(), mcpEndpoint)

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Serve(listener)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down http server: %w", err)
		}
		return nil
	}
}
