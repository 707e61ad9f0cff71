package pdf

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/a3tai/pdf-answer-key/internal/answerkey"
	"github.com/a3tai/pdf-answer-key/internal/pdf/document"
	pdferrors "github.com/a3tai/pdf-answer-key/internal/pdf/errors"
	"github.com/a3tai/pdf-answer-key/internal/pdf/pagerange"
	"github.com/a3tai/pdf-answer-key/internal/pdf/security"
)

// Options tunes the answer-key pipeline
type Options struct {
	Placer        answerkey.Placer
	Tolerance     float64
	FallbackFont  string
	IncludeStroke bool
	RenderTimeout time.Duration
	MaxPixelWidth int
	Debug         bool
}

// DefaultOptions returns the pipeline defaults
func DefaultOptions() Options {
	return Options{
		Placer:        answerkey.NewPlacer(),
		Tolerance:     answerkey.DefaultTolerance,
		FallbackFont:  answerkey.DefaultFallbackFont,
		RenderTimeout: answerkey.DefaultRenderTimeout,
		MaxPixelWidth: answerkey.DefaultMaxPixelWidth,
	}
}

// Service handles answer-key operations on PDF files inside one directory
type Service struct {
	maxFileSize   int64
	validator     *Validator
	pathValidator *security.PathValidator
	renderer      answerkey.Renderer
	options       Options

	// annotate runs share the renderer and are serialized
	mu sync.Mutex
}

// NewService creates a new PDF service with all components
func NewService(maxFileSize int64, configuredDirectory string, renderer answerkey.Renderer, opts Options) (*Service, error) {
	pathValidator, err := security.NewPathValidator(configuredDirectory)
	if err != nil {
		return nil, fmt.Errorf("failed to create path validator: %w", err)
	}

	return &Service{
		maxFileSize:   maxFileSize,
		validator:     NewValidator(maxFileSize),
		pathValidator: pathValidator,
		renderer:      renderer,
		options:       opts,
	}, nil
}

// pipeline builds a pipeline for one run restricted to pages
func (s *Service) pipeline(pages string) (*answerkey.Pipeline, error) {
	ranges, err := pagerange.Parse(pages)
	if err != nil {
		return nil, pdferrors.WrapError(pdferrors.ErrorTypeInvalidInput, err).WithContext("parsing pages")
	}

	p := answerkey.NewPipeline(s.renderer)
	p.Pages = ranges
	p.Debug = s.options.Debug
	if s.options.Placer.DesiredWidth > 0 {
		p.Placer = s.options.Placer
	}
	if s.options.Tolerance > 0 {
		p.Extractor.Classifier.Tolerance = s.options.Tolerance
	}
	p.Extractor.Debug = s.options.Debug
	if s.options.FallbackFont != "" {
		p.Extractor.FallbackFont = s.options.FallbackFont
	}
	p.Neutralizer.IncludeStroke = s.options.IncludeStroke
	p.Neutralizer.Debug = s.options.Debug
	if s.options.RenderTimeout > 0 {
		p.Rasterizer.Timeout = s.options.RenderTimeout
	}
	if s.options.MaxPixelWidth > 0 {
		p.Rasterizer.MaxPixelWidth = s.options.MaxPixelWidth
	}
	return p, nil
}

func (s *Service) open(path string) (*document.Document, error) {
	if err := s.validator.CheckFile(path); err != nil {
		return nil, pdferrors.WrapError(pdferrors.ErrorTypeInvalidInput, err)
	}
	doc, err := document.OpenFile(path)
	if err != nil {
		return nil, pdferrors.WrapError(pdferrors.ErrorTypeInvalidInput, err)
	}
	return doc, nil
}

// AnnotateFile writes an annotated copy of input to output. Paths are used
// as given; callers exposing the service to clients go through
// PDFAnswerKeyAnnotate instead.
func (s *Service) AnnotateFile(ctx context.Context, input, output, pages string) (*PDFAnswerKeyAnnotateResult, error) {
	p, err := s.pipeline(pages)
	if err != nil {
		return nil, err
	}

	doc, err := s.open(input)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var report *answerkey.Report
	err = writeAtomically(output, func(f *os.File) error {
		var processErr error
		report, processErr = p.Process(ctx, doc, f)
		return processErr
	})
	if err != nil {
		return nil, err
	}

	if s.options.Debug {
		log.Printf("Annotated %s -> %s: %d of %d pages", input, output, report.AnnotatedPages(), len(report.Pages))
	}

	return &PDFAnswerKeyAnnotateResult{
		Path:           input,
		OutputPath:     output,
		Pages:          doc.PageCount(),
		AnnotatedPages: report.AnnotatedPages(),
		Report:         pageReports(report.Pages),
		Summary:        report.Errors.Summary(),
	}, nil
}

// writeAtomically streams into a temporary file next to path and renames it
// into place only when write succeeds
func writeAtomically(path string, write func(*os.File) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".answerkey-*.pdf")
	if err != nil {
		return pdferrors.WrapError(pdferrors.ErrorTypeSaveFailure, err).WithContext("creating temporary output")
	}
	tmpName := tmp.Name()

	if err := write(tmp); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return pdferrors.WrapError(pdferrors.ErrorTypeSaveFailure, err).WithContext("closing output")
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return pdferrors.WrapError(pdferrors.ErrorTypeSaveFailure, err).WithContext("moving output into place")
	}
	return nil
}

// PDFAnswerKeyAnnotate annotates a PDF inside the configured directory
func (s *Service) PDFAnswerKeyAnnotate(ctx context.Context, req PDFAnswerKeyAnnotateRequest) (*PDFAnswerKeyAnnotateResult, error) {
	input, err := s.pathValidator.Resolve(req.Path)
	if err != nil {
		return nil, fmt.Errorf("security validation failed: %w", err)
	}

	output := req.Output
	if output == "" {
		output = DefaultOutputPath(input)
	}
	output, err = s.pathValidator.ResolveOutput(output, input)
	if err != nil {
		return nil, fmt.Errorf("security validation failed: %w", err)
	}

	return s.AnnotateFile(ctx, input, output, req.Pages)
}

// PDFAnswerKeyExtract lists the question/answer pairs of a PDF without
// modifying it
func (s *Service) PDFAnswerKeyExtract(req PDFAnswerKeyExtractRequest) (*PDFAnswerKeyExtractResult, error) {
	input, err := s.pathValidator.Resolve(req.Path)
	if err != nil {
		return nil, fmt.Errorf("security validation failed: %w", err)
	}
	return s.ExtractFile(input, req.Pages)
}

// ExtractFile lists the question/answer pairs of the PDF at path
func (s *Service) ExtractFile(path, pages string) (*PDFAnswerKeyExtractResult, error) {
	p, err := s.pipeline(pages)
	if err != nil {
		return nil, err
	}

	doc, err := s.open(path)
	if err != nil {
		return nil, err
	}

	outcomes := p.Extract(doc)
	total := 0
	for _, o := range outcomes {
		total += len(o.Entries)
	}

	return &PDFAnswerKeyExtractResult{
		Path:       path,
		Pages:      doc.PageCount(),
		TotalPairs: total,
		Report:     pageReports(outcomes),
	}, nil
}

// PDFValidateFile performs validation on a PDF file
func (s *Service) PDFValidateFile(req PDFValidateFileRequest) (*PDFValidateFileResult, error) {
	path, err := s.pathValidator.Resolve(req.Path)
	if err != nil {
		return nil, fmt.Errorf("security validation failed: %w", err)
	}
	req.Path = path
	return s.validator.ValidateFile(req)
}

// GetMaxFileSize returns the maximum file size limit
func (s *Service) GetMaxFileSize() int64 {
	return s.maxFileSize
}

// GetConfiguredDirectory returns the directory tool paths are confined to
func (s *Service) GetConfiguredDirectory() string {
	return s.pathValidator.GetConfiguredDirectory()
}

// DefaultOutputPath derives the annotated file name for input
func DefaultOutputPath(input string) string {
	ext := filepath.Ext(input)
	return strings.TrimSuffix(input, ext) + ".answerkey.pdf"
}
