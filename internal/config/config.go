package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/a3tai/pdf-answer-key/internal/answerkey"
	"github.com/a3tai/pdf-answer-key/internal/pdf"
	"github.com/a3tai/pdf-answer-key/internal/pdf/pagerange"
)

const (
	// Mode constants
	ModeStdio  = "stdio"
	ModeServer = "server"
	ModeCLI    = "cli"

	// Default values
	DefaultPort        = 8080
	DefaultHost        = "127.0.0.1"
	DefaultLogLevel    = "info"
	DefaultMaxFileSize = 100 * 1024 * 1024 // 100MB

	// Directory permissions
	DefaultDirPerm = 0o750

	envPrefix = "PDF_ANSWERKEY"
)

// Config holds all configuration for the answer-key tool
type Config struct {
	// Server configuration
	Mode string // "stdio", "server" or "cli"
	Host string
	Port int

	// PDF configuration
	PDFDirectory string

	// CLI configuration
	Input  string
	Output string
	Pages  string

	// Footer geometry, in points
	FooterWidth  float64
	SideMargin   float64
	BottomMargin float64

	// Extraction and neutralization
	Tolerance     float64
	FallbackFont  string
	IncludeStroke bool

	// Rendering
	RenderTimeout time.Duration
	MaxPixelWidth int
	BrowserBin    string
	NoSandbox     bool

	// Application configuration
	Version     string
	ServerName  string
	LogLevel    string
	MaxFileSize int64 // Maximum PDF file size in bytes
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		currentDir = "."
	}

	return &Config{
		Mode:          ModeStdio,
		Host:          DefaultHost,
		Port:          DefaultPort,
		PDFDirectory:  currentDir,
		FooterWidth:   answerkey.DefaultFooterWidth,
		SideMargin:    answerkey.DefaultSideMargin,
		BottomMargin:  answerkey.DefaultBottomMargin,
		Tolerance:     answerkey.DefaultTolerance,
		FallbackFont:  answerkey.DefaultFallbackFont,
		RenderTimeout: answerkey.DefaultRenderTimeout,
		MaxPixelWidth: answerkey.DefaultMaxPixelWidth,
		Version:       "1.0.0",
		ServerName:    "pdf-answer-key",
		LogLevel:      DefaultLogLevel,
		MaxFileSize:   DefaultMaxFileSize,
	}
}

// LoadFromFlags parses command line flags and returns a configuration
func LoadFromFlags() (*Config, error) {
	cfg := DefaultConfig()

	setupViperEnvironment(cfg)
	defineCommandLineFlags(cfg)
	bindFlagsToViper()
	setupUsageMessage()

	if err := checkVersionFlag(); err != nil {
		return nil, err
	}

	pflag.Parse()

	populateConfigFromViper(cfg)

	if cfg.PDFDirectory != "" {
		if expandedPath, err := filepath.Abs(cfg.PDFDirectory); err == nil {
			cfg.PDFDirectory = expandedPath
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// flagKeys lists every key shared by flags, environment and viper
var flagKeys = []string{
	"mode", "host", "port", "dir", "loglevel", "maxfilesize",
	"input", "output", "pages",
	"footer-width", "side-margin", "bottom-margin",
	"tolerance", "fallback-font", "stroke",
	"render-timeout", "max-pixel-width", "browser-bin", "no-sandbox",
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(cfg *Config) {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("mode", cfg.Mode)
	viper.SetDefault("host", cfg.Host)
	viper.SetDefault("port", cfg.Port)
	viper.SetDefault("dir", cfg.PDFDirectory)
	viper.SetDefault("loglevel", cfg.LogLevel)
	viper.SetDefault("maxfilesize", cfg.MaxFileSize)
	viper.SetDefault("input", cfg.Input)
	viper.SetDefault("output", cfg.Output)
	viper.SetDefault("pages", cfg.Pages)
	viper.SetDefault("footer-width", cfg.FooterWidth)
	viper.SetDefault("side-margin", cfg.SideMargin)
	viper.SetDefault("bottom-margin", cfg.BottomMargin)
	viper.SetDefault("tolerance", cfg.Tolerance)
	viper.SetDefault("fallback-font", cfg.FallbackFont)
	viper.SetDefault("stroke", cfg.IncludeStroke)
	viper.SetDefault("render-timeout", cfg.RenderTimeout)
	viper.SetDefault("max-pixel-width", cfg.MaxPixelWidth)
	viper.SetDefault("browser-bin", cfg.BrowserBin)
	viper.SetDefault("no-sandbox", cfg.NoSandbox)
}

// defineCommandLineFlags sets up all command line flags
func defineCommandLineFlags(cfg *Config) {
	pflag.String("mode", cfg.Mode, "Run mode: 'stdio' for MCP standard I/O, 'server' for HTTP server, 'cli' for a single file")
	pflag.String("host", cfg.Host, "Server host address (server mode only)")
	pflag.Int("port", cfg.Port, "Server port (server mode only)")
	pflag.String("dir", cfg.PDFDirectory, "Directory containing PDF files")
	pflag.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
	pflag.Int64("maxfilesize", cfg.MaxFileSize, "Maximum PDF file size in bytes")

	pflag.String("input", cfg.Input, "Input PDF (cli mode only)")
	pflag.String("output", cfg.Output, "Output PDF (cli mode only, defaults to <input>.answerkey.pdf)")
	pflag.String("pages", cfg.Pages, "Pages to process, e.g. '1-3,5,8-' (default all)")

	pflag.Float64("footer-width", cfg.FooterWidth, "Answer sheet width in points")
	pflag.Float64("side-margin", cfg.SideMargin, "Answer sheet distance from the page side in points")
	pflag.Float64("bottom-margin", cfg.BottomMargin, "Answer sheet distance from the page bottom in points")

	pflag.Float64("tolerance", cfg.Tolerance, "Per-channel color match tolerance, in (0, 1]")
	pflag.String("fallback-font", cfg.FallbackFont, "Font family used when a span has no usable font")
	pflag.Bool("stroke", cfg.IncludeStroke, "Also neutralize stroke colors (RG)")

	pflag.Duration("render-timeout", cfg.RenderTimeout, "Timeout for rendering one answer sheet")
	pflag.Int("max-pixel-width", cfg.MaxPixelWidth, "Maximum rendered answer sheet width in pixels")
	pflag.String("browser-bin", cfg.BrowserBin, "Path to a Chrome binary (default: located or downloaded by rod)")
	pflag.Bool("no-sandbox", cfg.NoSandbox, "Launch Chrome without its sandbox (containers, CI)")
}

// bindFlagsToViper binds command line flags to viper configuration
func bindFlagsToViper() {
	for _, key := range flagKeys {
		_ = viper.BindPFlag(key, pflag.Lookup(key))
	}
}

// envName returns the environment variable read for key
func envName(key string) string {
	return envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, "-", "_"))
}

// setupUsageMessage configures the custom usage message
func setupUsageMessage() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nPDF Answer Key - Builds footer answer sheets from color-coded questions and answers\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s --mode=cli --input=quiz.pdf                  "+
			"# writes quiz.answerkey.pdf\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=cli --input=quiz.pdf --pages=2-4      "+
			"# only pages 2 to 4\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --dir=/path/to/pdfs                          "+
			"# MCP stdio mode\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=server --dir=/path/to/pdfs            # MCP HTTP server\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		for _, key := range flagKeys {
			fmt.Fprintf(os.Stderr, "  %s\n", envName(key))
		}
	}
}

// checkVersionFlag checks if version flag was requested
func checkVersionFlag() error {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			return fmt.Errorf("version requested")
		}
	}
	return nil
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(cfg *Config) {
	cfg.Mode = viper.GetString("mode")
	cfg.Host = viper.GetString("host")
	cfg.Port = viper.GetInt("port")
	cfg.PDFDirectory = viper.GetString("dir")
	cfg.LogLevel = viper.GetString("loglevel")
	cfg.MaxFileSize = viper.GetInt64("maxfilesize")
	cfg.Input = viper.GetString("input")
	cfg.Output = viper.GetString("output")
	cfg.Pages = viper.GetString("pages")
	cfg.FooterWidth = viper.GetFloat64("footer-width")
	cfg.SideMargin = viper.GetFloat64("side-margin")
	cfg.BottomMargin = viper.GetFloat64("bottom-margin")
	cfg.Tolerance = viper.GetFloat64("tolerance")
	cfg.FallbackFont = viper.GetString("fallback-font")
	cfg.IncludeStroke = viper.GetBool("stroke")
	cfg.RenderTimeout = viper.GetDuration("render-timeout")
	cfg.MaxPixelWidth = viper.GetInt("max-pixel-width")
	cfg.BrowserBin = viper.GetString("browser-bin")
	cfg.NoSandbox = viper.GetBool("no-sandbox")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Mode != ModeStdio && c.Mode != ModeServer && c.Mode != ModeCLI {
		return errors.New("mode must be one of 'stdio', 'server' or 'cli'")
	}

	if c.Mode == ModeServer && (c.Port < 1 || c.Port > 65535) {
		return errors.New("port must be between 1 and 65535")
	}

	if c.Mode == ModeCLI && c.Input == "" {
		return errors.New("input file is required in cli mode")
	}

	if c.PDFDirectory == "" {
		return errors.New("PDF directory cannot be empty")
	}

	if c.Mode != ModeCLI {
		if _, err := os.Stat(c.PDFDirectory); os.IsNotExist(err) {
			if err := os.MkdirAll(c.PDFDirectory, DefaultDirPerm); err != nil {
				return fmt.Errorf("cannot create PDF directory %s: %w", c.PDFDirectory, err)
			}
		} else if err != nil {
			return fmt.Errorf("cannot access PDF directory %s: %w", c.PDFDirectory, err)
		}
	}

	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}

	if _, err := c.PageRanges(); err != nil {
		return fmt.Errorf("invalid pages: %w", err)
	}

	if !positive(c.FooterWidth) {
		return errors.New("footer width must be positive")
	}
	if !nonNegative(c.SideMargin) || !nonNegative(c.BottomMargin) {
		return errors.New("margins must not be negative")
	}

	// matching is strict, so a zero tolerance would never match anything
	if math.IsNaN(c.Tolerance) || c.Tolerance <= 0 || c.Tolerance > 1 {
		return fmt.Errorf("tolerance must be greater than 0 and at most 1, got %v", c.Tolerance)
	}

	if c.RenderTimeout <= 0 {
		return errors.New("render timeout must be positive")
	}
	if c.MaxPixelWidth < 0 {
		return errors.New("max pixel width must not be negative")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	return nil
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}

func nonNegative(v float64) bool {
	return v >= 0 && !math.IsInf(v, 0)
}

// PageRanges parses the configured page selection
func (c *Config) PageRanges() ([]pagerange.PageRange, error) {
	return pagerange.Parse(c.Pages)
}

// OutputPath returns the configured output, or the input path with an
// ".answerkey.pdf" suffix in place of its extension
func (c *Config) OutputPath() string {
	if c.Output != "" {
		return c.Output
	}
	return pdf.DefaultOutputPath(c.Input)
}

// Address returns the server address as host:port
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// String returns a string representation of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{Mode: %s, Host: %s, Port: %d, PDFDirectory: %s, LogLevel: %s, MaxFileSize: %d, Pages: %q}",
		c.Mode, c.Host, c.Port, c.PDFDirectory, c.LogLevel, c.MaxFileSize, c.Pages)
}

// IsServerMode returns true if the server is running in HTTP server mode
func (c *Config) IsServerMode() bool {
	return c.Mode == ModeServer
}

// IsStdioMode returns true if the server is running in stdio mode
func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}

// IsCLIMode returns true if a single file is processed from the command line
func (c *Config) IsCLIMode() bool {
	return c.Mode == ModeCLI
}
