package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"syscall"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"gridexport/internal/config"
	"gridexport/internal/exporter"
	"gridexport/internal/files"
	"gridexport/internal/infrastructure"
	"gridexport/internal/middleware"
	"gridexport/internal/renderer"
	api "gridexport/pkg/contracts/api/v1"
	"gridexport/pkg/contracts/domain"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Warn("Failed to load config, using defaults", "error", err)
		cfg = config.Default()
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("Failed to initialize logger, logging to stderr", "error", err)
		logger = infrastructure.NewLogger(os.Stderr, cfg.Logging.Level)
	}
	defer infrastructure.CloseLogFile()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], cfg, logger, os.Stdout); err != nil {
		logger.Error("Export failed", slog.String("error", err.Error()))
		stop()
		_ = infrastructure.CloseLogFile()
		os.Exit(1)
	}
}

// options are the parsed command line flags
type options struct {
	input   string
	formats []domain.Format
	scope   domain.Scope
	out     string
}

func parseFlags(args []string, cfg *config.Config, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("gridexport", flag.ContinueOnError)
	fs.SetOutput(stderr)
	input := fs.String("input", "", "JSON file holding the grid state to export")
	format := fs.String("format", "all", "excel | csv | pdf | all, or a comma separated list")
	scope := fs.String("scope", string(domain.ScopeCurrent), "current | all")
	out := fs.String("out", "", "output directory (defaults to the configured export directory)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if *input == "" {
		return nil, errors.New("-input is required")
	}

	formats, err := parseFormats(*format)
	if err != nil {
		return nil, err
	}

	s := domain.Scope(*scope)
	if s != domain.ScopeCurrent && s != domain.ScopeAll {
		return nil, fmt.Errorf("unknown scope %q", *scope)
	}

	dir := *out
	if dir == "" {
		if dir, err = cfg.OutputDir(); err != nil {
			return nil, fmt.Errorf("failed to resolve output directory: %w", err)
		}
	}

	return &options{input: *input, formats: formats, scope: s, out: dir}, nil
}

// parseFormats expands "all" and removes duplicates, keeping order
func parseFormats(value string) ([]domain.Format, error) {
	if strings.EqualFold(strings.TrimSpace(value), "all") {
		return append([]domain.Format(nil), domain.Formats...), nil
	}

	var formats []domain.Format
	seen := make(map[domain.Format]bool)
	for _, part := range strings.Split(value, ",") {
		f := domain.Format(strings.ToLower(strings.TrimSpace(part)))
		if !f.Valid() {
			return nil, fmt.Errorf("unknown format %q", part)
		}
		if !seen[f] {
			seen[f] = true
			formats = append(formats, f)
		}
	}
	return formats, nil
}

func loadGrid(path string) (domain.GridState, error) {
	var grid domain.GridState
	data, err := os.ReadFile(path)
	if err != nil {
		return grid, fmt.Errorf("failed to read grid file: %w", err)
	}
	if err := json.Unmarshal(data, &grid); err != nil {
		return grid, fmt.Errorf("failed to parse grid file %s: %w", path, err)
	}
	return grid, nil
}

func buildSinks(cfg *config.Config, formats []domain.Format, logger *slog.Logger) ([]exporter.Sink, func()) {
	sinks := []exporter.Sink{
		renderer.NewCSVSink(cfg.Export.CSVBOM, logger),
		renderer.NewExcelSink(cfg.Renderer.SheetName, logger),
	}
	release := func() {}
	for _, f := range formats {
		if f != domain.FormatPDF {
			continue
		}
		pdf := renderer.NewPDFSink(renderer.PDFOptions{
			ChromePath: cfg.Renderer.ChromePath,
			Headless:   cfg.Renderer.Headless,
			Landscape:  cfg.Renderer.Landscape,
			Scale:      cfg.Renderer.Scale,
			MarginCM:   cfg.Renderer.MarginCM,
		}, logger)
		sinks = append(sinks, pdf)
		release = func() { _ = pdf.Close() }
	}
	return sinks, release
}

// run exports the grid once per requested format, concurrently, and prints
// the path of every artifact written
func run(ctx context.Context, args []string, cfg *config.Config, logger *slog.Logger, stdout io.Writer) error {
	opts, err := parseFlags(args, cfg, os.Stderr)
	if err != nil {
		return err
	}

	grid, err := loadGrid(opts.input)
	if err != nil {
		return err
	}

	validator := middleware.NewValidator(logger)
	if err := validator.Struct(grid); err != nil {
		return fmt.Errorf("invalid grid: %w", err)
	}

	if err := config.EnsureDir(opts.out); err != nil {
		return err
	}

	sinks, release := buildSinks(cfg, opts.formats, logger)
	defer release()

	orchestrator := exporter.NewOrchestrator(sinks, exporter.Options{
		ReadyTimeout:   cfg.Export.ReadyTimeout,
		FilePrefix:     cfg.Export.FilePrefix,
		DefaultPrimary: cfg.Export.PrimaryField,
		MaxRows:        cfg.Export.MaxRows,
		Clock:          clockwork.NewRealClock(),
		Logger:         logger,
	})
	store := files.NewStore(opts.out, logger)

	logger.InfoContext(ctx, "Starting export",
		slog.String("input", opts.input),
		slog.Any("formats", opts.formats),
		slog.String("scope", string(opts.scope)),
		slog.String("output_dir", opts.out))

	var (
		mu    sync.Mutex
		paths []string
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, format := range opts.formats {
		g.Go(func() error {
			// Each export consumes its own request value
			req := api.ExportRequest{Format: format, Scope: opts.scope, Grid: grid}
			if err := validator.Struct(req); err != nil {
				return fmt.Errorf("%s: %w", format, err)
			}

			result, err := orchestrator.Export(gctx, req.Grid, req.Domain())
			if err != nil {
				return fmt.Errorf("%s: %w", format, err)
			}

			path, err := store.Write(result.Artifact)
			if err != nil {
				return fmt.Errorf("%s: %w", format, err)
			}

			mu.Lock()
			paths = append(paths, path)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	sort.Strings(paths)
	for _, path := range paths {
		fmt.Fprintln(stdout, path)
	}
	logger.InfoContext(ctx, "Export finished", slog.Int("artifacts", len(paths)))
	return nil
}
