// Package dashboard runs the thermal pipeline for one host selection:
// locate the CSV, prepare the table, summarise it and draw the figure.
package dashboard

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/user/thermaldash/internal/analysis"
	"github.com/user/thermaldash/internal/browse"
	"github.com/user/thermaldash/internal/parser"
	"github.com/user/thermaldash/internal/report"
)

// Result is everything derived from one thermal CSV.
type Result struct {
	Label      string
	SourcePath string
	FileSize   int64
	Table      *analysis.NormalizedTable
	Marker     int
	Summary    analysis.Summary
	Warnings   []string
}

// Details is the human readable size of the source, e.g. "41 kB, 1,024 rows".
func (r *Result) Details() string {
	return fmt.Sprintf("%s, %s rows", humanize.Bytes(uint64(r.FileSize)), humanize.Comma(int64(r.Table.Len())))
}

// Status is the "file found" banner text.
func (r *Result) Status() string {
	return fmt.Sprintf("File Found: %s (%s)", r.SourcePath, r.Details())
}

// App wires navigation, analysis and rendering together.
type App struct {
	nav     *browse.Navigator
	figure  report.FigureOptions
	logger  *zap.Logger
	metrics *Metrics
}

// NewApp creates the application pipeline.
func NewApp(nav *browse.Navigator, figure report.FigureOptions, logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &App{
		nav:     nav,
		figure:  figure,
		logger:  logger,
		metrics: NewMetrics(),
	}
}

// Metrics exposes the collector so the HTTP layer can record its own series.
func (a *App) Metrics() *Metrics { return a.metrics }

func (a *App) sendStatus(message string, fields ...zap.Field) {
	a.logger.Info(message, fields...)
}

// Browse resolves the cascading selectors for one host.
func (a *App) Browse(host string, sel browse.Selection) *browse.View {
	view := a.nav.Resolve(host, sel)
	if view.Err != nil {
		a.metrics.listingFailures.Inc()
		a.logger.Warn("folder listing failed",
			zap.String("host", view.Host),
			zap.String("stage", view.Stage.String()),
			zap.Error(view.Err))
	}
	return view
}

// Analyze locates and prepares the thermal CSV for a complete selection.
// An incomplete selection returns before any folder is listed.
func (a *App) Analyze(ctx context.Context, host string, sel browse.Selection) (*Result, error) {
	if !sel.Complete() {
		return nil, fmt.Errorf("%w: date, device and serial are required", ErrIncompleteSelection)
	}
	return a.AnalyzeView(ctx, a.Browse(host, sel))
}

// AnalyzeView is Analyze for a view the caller already resolved.
func (a *App) AnalyzeView(ctx context.Context, view *browse.View) (*Result, error) {
	if view.Stage != browse.StageReady {
		if view.Err != nil {
			return nil, view.Err
		}
		return nil, fmt.Errorf("%w: stopped at %s", ErrIncompleteSelection, view.Stage)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, info, err := a.nav.OpenTarget(view.Host, view.Selected)
	if err != nil {
		a.metrics.analysesTotal.WithLabelValues(Classify(err).String()).Inc()
		a.logger.Warn("thermal file unavailable", zap.String("host", view.Host), zap.Error(err))
		return nil, err
	}
	defer f.Close()

	start := time.Now()
	a.sendStatus("parsing thermal CSV", zap.String("path", view.Target))
	raw, err := parser.ParseThermalCSV(f)
	if err != nil {
		return nil, a.fail(view.Target, err)
	}
	return a.prepare(raw, start, info.Size(), view.Target, view.Selected.Serial)
}

// AnalyzeFile prepares a CSV on the local filesystem.
func (a *App) AnalyzeFile(path, label string) (*Result, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &browse.FileNotFoundError{Path: path}
		}
		return nil, fmt.Errorf("%w: %v", browse.ErrPathAccess, err)
	}
	if info.IsDir() {
		return nil, &browse.FileNotFoundError{Path: path}
	}
	if label == "" {
		label = filepath.Base(filepath.Dir(filepath.Dir(path)))
	}

	start := time.Now()
	a.sendStatus("parsing thermal CSV", zap.String("path", path))
	raw, err := parser.ParseThermalFile(path)
	if err != nil {
		return nil, a.fail(path, err)
	}
	return a.prepare(raw, start, info.Size(), path, label)
}

func (a *App) prepare(raw *parser.RawRecordSet, start time.Time, size int64, source, label string) (*Result, error) {
	a.metrics.rowsParsed.Add(float64(raw.NumRows))
	for _, w := range raw.ParseErrors {
		a.logger.Debug("parse warning", zap.String("path", source), zap.String("warning", w))
	}

	table, marker, err := analysis.Prepare(raw)
	if err != nil {
		return nil, a.fail(source, err)
	}

	res := &Result{
		Label:      label,
		SourcePath: source,
		FileSize:   size,
		Table:      table,
		Marker:     marker,
		Summary:    analysis.Summarize(table, marker),
		Warnings:   raw.ParseErrors,
	}
	a.metrics.analysesTotal.WithLabelValues(KindNone.String()).Inc()
	a.metrics.analysisSeconds.Observe(time.Since(start).Seconds())
	a.sendStatus("thermal CSV prepared",
		zap.String("path", source),
		zap.Int("rows", table.Len()),
		zap.Int("zero_spiral", marker),
		zap.Int("warnings", len(raw.ParseErrors)))
	return res, nil
}

func (a *App) fail(source string, err error) error {
	a.metrics.analysesTotal.WithLabelValues(Classify(err).String()).Inc()
	a.logger.Warn("error processing CSV", zap.String("path", source), zap.Error(err))
	return fmt.Errorf("error processing CSV: %w", err)
}

// Figure renders the four-panel PNG for a result.
func (a *App) Figure(res *Result) ([]byte, error) {
	start := time.Now()
	img, err := report.RenderFigure(res.Table, res.Marker, res.Label, a.figure)
	if err != nil {
		a.logger.Error("figure rendering failed", zap.String("label", res.Label), zap.Error(err))
		return nil, err
	}
	a.metrics.renderSeconds.Observe(time.Since(start).Seconds())
	return img, nil
}

// Report builds the PDF for a result, embedding the same PNG as Figure.
func (a *App) Report(res *Result) ([]byte, error) {
	img, err := a.Figure(res)
	if err != nil {
		return nil, err
	}
	opts := a.figure
	if opts.Width <= 0 || opts.Height <= 0 {
		opts = report.DefaultFigureOptions()
	}

	var buf bytes.Buffer
	err = report.BuildPDFReport(&buf, report.ReportInput{
		Label:       res.Label,
		SourcePath:  res.SourcePath,
		Summary:     res.Summary,
		Figure:      img,
		FigureRatio: float64(opts.Height / opts.Width),
		Warnings:    res.Warnings,
	})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DataCSV exports the prepared table.
func (a *App) DataCSV(res *Result) ([]byte, error) {
	var buf bytes.Buffer
	if err := analysis.WriteCSV(&buf, res.Table); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// FigureFileName is the download name of the PNG export.
func FigureFileName(label string) string {
	return fmt.Sprintf("thermal_analysis_%s.png", label)
}
