package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/hytech-racing/listings-dashboard/internal/dataset"
	"github.com/spf13/cobra"
)

var describeTop int

var describeCmd = &cobra.Command{
	Use:   "describe <csv>",
	Short: "Print summary statistics of a listings CSV",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return describe(cmd.OutOrStdout(), args[0], threshold, describeTop)
	},
}

func init() {
	describeCmd.Flags().IntVar(&describeTop, "top", 10, "number of manufacturers to list")
}

func describe(w io.Writer, path string, threshold int, top int) error {
	frame, report, err := dataset.LoadFile(path)
	if err != nil {
		return err
	}
	printReport(w, path, report)

	bold := color.New(color.Bold)

	fmt.Fprintln(w)
	bold.Fprintln(w, "Numeric columns")
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "column\tcount\tmean\tstd\tmin\t25%\t50%\t75%\tmax\t")
	for _, col := range dataset.Columns {
		summary, ok := frame.Describe(col)
		if !ok {
			continue
		}
		fmt.Fprintf(tw, "%s\t%d\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t\n",
			col, summary.Count, summary.Mean, summary.StdDev, summary.Min, summary.Q1, summary.Median, summary.Q3, summary.Max)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	small := frame.SmallManufacturers(threshold)
	counts := frame.ValueCounts(dataset.ColumnManufacturer)
	if top > 0 && len(counts) > top {
		counts = counts[:top]
	}

	fmt.Fprintln(w)
	bold.Fprintf(w, "Manufacturers (%d hidden below %d listings)\n", len(small), threshold)
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, vc := range counts {
		marker := ""
		if small[vc.Value] {
			marker = "hidden"
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\n", vc.Value, vc.Count, marker)
	}
	return tw.Flush()
}
