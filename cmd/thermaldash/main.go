package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gonum.org/v1/plot/vg"

	"github.com/user/thermaldash/internal/browse"
	"github.com/user/thermaldash/internal/config"
	"github.com/user/thermaldash/internal/dashboard"
	"github.com/user/thermaldash/internal/logging"
	"github.com/user/thermaldash/internal/report"
)

var (
	// Global flags
	configPath string
	logLevel   string

	cfg    config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "thermaldash",
	Short: "Thermal servo analysis dashboard",
	Long: `thermaldash browses per-host <date>/<device-cell>/<serial> folders,
prepares the AmPsI2I.csv thermal log of one unit and draws its four
diagnostic charts.

Run "thermaldash serve" for the browser dashboard or "thermaldash render"
to process a single file.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if logLevel != "" {
			cfg.LogLevel = logLevel
		}
		logger, err = logging.New(cfg.LogLevel)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file (or set THERMALDASH_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")

	renderCmd.Flags().StringVar(&renderCSV, "csv", "", "Thermal CSV to process (required)")
	renderCmd.Flags().StringVar(&renderOut, "out", "", "PNG output path (required)")
	renderCmd.Flags().StringVar(&renderPDF, "pdf", "", "Also write a PDF report")
	renderCmd.Flags().StringVar(&renderData, "data", "", "Also write the prepared table as CSV")
	renderCmd.Flags().StringVar(&renderLabel, "label", "", "Chart title label (default: serial folder name)")
	_ = renderCmd.MarkFlagRequired("csv")
	_ = renderCmd.MarkFlagRequired("out")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(renderCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func figureOptions(c config.ChartConfig) report.FigureOptions {
	return report.FigureOptions{
		Width:  vg.Length(c.WidthIn) * vg.Inch,
		Height: vg.Length(c.HeightIn) * vg.Inch,
		DPI:    c.DPI,
	}
}

func newApp(c config.Config, log *zap.Logger) *dashboard.App {
	nav := browse.NewNavigator(c.BasePathTemplate, c.ThermalSubdir, c.FileName)
	return dashboard.NewApp(nav, figureOptions(c.Chart), log)
}
