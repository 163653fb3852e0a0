package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/remedy-kit/remedy/app"
	"github.com/remedy-kit/remedy/domain"
	"github.com/remedy-kit/remedy/internal/config"
	"github.com/remedy-kit/remedy/internal/logging"
	"github.com/remedy-kit/remedy/service"
)

// Flags shared by every engine-backed command. Only one command runs per
// invocation, so the bindings can share storage.
var (
	configPath    string
	workspacePath string
	outputFormat  string
	outputPath    string
	noColor       bool
)

// addCommonFlags registers the config, workspace and output flags
func addCommonFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&configPath, "config", "c", "",
		"Path to config file")
	cmd.Flags().StringVarP(&workspacePath, "workspace", "w", "",
		"Workspace root (default: from config or current directory)")
	cmd.Flags().StringVarP(&outputFormat, "format", "f", "",
		"Output format: text, json, yaml")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "",
		"Output file path (default: stdout)")
	cmd.Flags().BoolVar(&noColor, "no-color", false,
		"Disable colored output")
}

// session bundles what a command needs once the engine is running
type session struct {
	cfg       *config.Config
	logger    *slog.Logger
	engine    *app.Engine
	formatter *service.OutputFormatterImpl
	progress  domain.ProgressManager
	logCloser io.Closer
}

// openSession loads configuration, builds the logger and starts the engine.
// Progress bars are requested only for interactive text output.
func openSession(progressWanted bool) (*session, error) {
	cfg, err := config.LoadConfigWithTarget(configPath, workspacePath)
	if err != nil {
		return nil, err
	}
	if workspacePath != "" {
		cfg.Workspace.Root = workspacePath
	}

	applyColorMode(cfg.Output.Color)
	if noColor {
		color.NoColor = true
	}

	var logFile string
	if cfg.Logging.ToFile {
		logFile = cfg.LogFilePath()
	}
	logger, logCloser, err := logging.New(logging.Options{
		Level:    cfg.Logging.Level,
		Format:   cfg.Logging.Format,
		FilePath: logFile,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}

	progress := service.NewProgressManager(progressWanted && resolveFormat(cfg) == domain.OutputFormatText)

	engine, err := app.NewEngine(cfg, logger, progress)
	if err != nil {
		closeQuietly(logCloser)
		return nil, err
	}
	if err := engine.Start(); err != nil {
		engine.Close()
		closeQuietly(logCloser)
		return nil, err
	}

	return &session{
		cfg:       cfg,
		logger:    logger,
		engine:    engine,
		formatter: service.NewOutputFormatter(),
		progress:  progress,
		logCloser: logCloser,
	}, nil
}

// Close shuts the session down in dependency order
func (s *session) Close() {
	s.progress.Close()
	s.engine.Close()
	closeQuietly(s.logCloser)
}

func closeQuietly(c io.Closer) {
	if c != nil {
		_ = c.Close()
	}
}

// resolveFormat applies the --format override over the configured default
func resolveFormat(cfg *config.Config) domain.OutputFormat {
	if outputFormat != "" {
		return domain.OutputFormat(outputFormat)
	}
	return domain.OutputFormat(cfg.Output.Format)
}

// outputWriter opens --output for writing, defaulting to stdout. The cleanup
// function closes the file when one was opened.
func outputWriter() (io.Writer, func(), error) {
	if outputPath == "" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(outputPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

// applyColorMode maps the configured color mode onto the global color state
func applyColorMode(mode string) {
	switch mode {
	case "always":
		color.NoColor = false
	case "never":
		color.NoColor = true
	default:
		color.NoColor = !service.IsInteractiveEnvironment()
	}
}
