package main

import (
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/user/thermaldash/internal/dashboard"
)

var (
	renderCSV   string
	renderOut   string
	renderPDF   string
	renderData  string
	renderLabel string
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render the charts of one thermal CSV to PNG",
	Example: `  thermaldash render --csv SN001/thermal_data/AmPsI2I.csv --out SN001.png
  thermaldash render --csv AmPsI2I.csv --out chart.png --pdf report.pdf --data prepared.csv --label SN001`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRender(newApp(cfg, logger), renderOptions{
			CSV:   renderCSV,
			Out:   renderOut,
			PDF:   renderPDF,
			Data:  renderData,
			Label: renderLabel,
		}, cmd.OutOrStdout())
	},
}

type renderOptions struct {
	CSV, Out, PDF, Data, Label string
}

func runRender(app *dashboard.App, opts renderOptions, out io.Writer) error {
	res, err := app.AnalyzeFile(opts.CSV, opts.Label)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, res.Status())
	for _, m := range res.Summary.Metrics() {
		fmt.Fprintf(out, "  %-20s %s\n", m.Label, m.Value)
	}

	img, err := app.Figure(res)
	if err != nil {
		return err
	}
	if err := writeOutput(out, opts.Out, img); err != nil {
		return err
	}

	if opts.PDF != "" {
		pdf, err := app.Report(res)
		if err != nil {
			return err
		}
		if err := writeOutput(out, opts.PDF, pdf); err != nil {
			return err
		}
	}
	if opts.Data != "" {
		data, err := app.DataCSV(res)
		if err != nil {
			return err
		}
		if err := writeOutput(out, opts.Data, data); err != nil {
			return err
		}
	}
	return nil
}

func writeOutput(out io.Writer, path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if logger != nil {
		logger.Debug("wrote output", zap.String("path", path), zap.Int("bytes", len(data)))
	}
	fmt.Fprintf(out, "wrote %s (%s)\n", path, humanize.Bytes(uint64(len(data))))
	return nil
}
