package main

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/hytech-racing/listings-dashboard/internal/charts"
	"github.com/hytech-racing/listings-dashboard/internal/dashboard"
	"github.com/hytech-racing/listings-dashboard/internal/dataset"
	"github.com/spf13/cobra"
	"gonum.org/v1/plot/vg"
)

// Charts-specific flag values.
var (
	chartsQuery  string
	chartsNames  []string
	chartsFormat string
	chartsOutput string
	chartsWidth  float64
	chartsHeight float64
)

var chartsCmd = &cobra.Command{
	Use:   "charts <csv>",
	Short: "Render dashboard charts to image files",
	Long: `Render the dashboard charts for a set of widget values. The query uses the
same keys as the dashboard URL, e.g. "manufacturer=ford&normalize=1".`,
	Args: cobra.ExactArgs(1),
	RunE: runCharts,
}

func init() {
	chartsCmd.Flags().StringVarP(&chartsQuery, "query", "q", "", "dashboard query string")
	chartsCmd.Flags().StringSliceVarP(&chartsNames, "chart", "c", nil, "charts to render (default: all)")
	chartsCmd.Flags().StringVarP(&chartsFormat, "format", "f", "png", "image format: png, svg, jpg or pdf")
	chartsCmd.Flags().StringVarP(&chartsOutput, "output", "o", ".", "directory to write images to")
	chartsCmd.Flags().Float64Var(&chartsWidth, "width", 24, "image width in centimeters")
	chartsCmd.Flags().Float64Var(&chartsHeight, "height", 14, "image height in centimeters")
}

type exportOptions struct {
	CSVPath   string
	Query     string
	Charts    []string
	Format    string
	OutputDir string
	Width     vg.Length
	Height    vg.Length
	Threshold int
}

func runCharts(cmd *cobra.Command, args []string) error {
	_, err := exportCharts(cmd.OutOrStdout(), exportOptions{
		CSVPath:   args[0],
		Query:     chartsQuery,
		Charts:    chartsNames,
		Format:    chartsFormat,
		OutputDir: chartsOutput,
		Width:     vg.Length(chartsWidth) * vg.Centimeter,
		Height:    vg.Length(chartsHeight) * vg.Centimeter,
		Threshold: threshold,
	})
	return err
}

// exportCharts writes one image per chart and returns the paths written
func exportCharts(w io.Writer, opts exportOptions) ([]string, error) {
	values, err := url.ParseQuery(strings.TrimPrefix(opts.Query, "?"))
	if err != nil {
		return nil, fmt.Errorf("invalid query %q: %w", opts.Query, err)
	}

	format, _, err := charts.ParseFormat(opts.Format)
	if err != nil {
		return nil, err
	}

	names := opts.Charts
	if len(names) == 0 {
		names = dashboard.ChartNames
	}
	for _, name := range names {
		if !dashboard.IsChart(name) {
			return nil, fmt.Errorf("unknown chart %q, expected one of %s", name, strings.Join(dashboard.ChartNames, ", "))
		}
	}

	frame, report, err := dataset.LoadFile(opts.CSVPath)
	if err != nil {
		return nil, err
	}
	printReport(w, opts.CSVPath, report)

	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("could not create output directory: %w", err)
	}

	view := dashboard.Build(frame, dashboard.ParseState(values), dashboard.Options{SmallManufacturerThreshold: opts.Threshold})
	chartOptions := charts.Options{Width: opts.Width, Height: opts.Height, Format: format}

	green := color.New(color.FgGreen)
	written := make([]string, 0, len(names))
	for _, name := range names {
		path := filepath.Join(opts.OutputDir, name+"."+format)
		if err := writeChart(view, name, chartOptions, path); err != nil {
			return written, err
		}
		written = append(written, path)
		green.Fprintf(w, "wrote %s\n", path)
	}
	return written, nil
}

func writeChart(view *dashboard.View, name string, opts charts.Options, path string) error {
	writer, err := view.Chart(name, opts)
	if err != nil {
		return fmt.Errorf("could not render %s: %w", name, err)
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}

	if _, err := writer.WriteTo(file); err != nil {
		file.Close()
		return fmt.Errorf("could not write %s: %w", path, err)
	}
	return file.Close()
}

func printReport(w io.Writer, path string, report dataset.LoadReport) {
	bold := color.New(color.Bold)
	yellow := color.New(color.FgYellow)

	bold.Fprintf(w, "%s: %d listings\n", path, report.Rows)
	if report.Skipped > 0 {
		yellow.Fprintf(w, "skipped %d rows\n", report.Skipped)
		for _, reason := range report.SkipReasons {
			yellow.Fprintf(w, "  %s\n", reason)
		}
	}
}
