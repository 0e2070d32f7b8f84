package dashboard

import (
	"fmt"
	"io"
	"sort"

	"github.com/hytech-racing/listings-dashboard/internal/charts"
	"github.com/hytech-racing/listings-dashboard/internal/dataset"
	"github.com/hytech-racing/listings-dashboard/internal/models"
)

const (
	ChartVehicleTypes  = "types"
	ChartModelYears    = "model_years"
	ChartPriceCompare  = "price_compare"
	ChartPriceOdometer = "price_odometer"
	ChartOdometer      = "odometer"
)

// ChartNames lists every chart the dashboard can draw
var ChartNames = []string{
	ChartVehicleTypes,
	ChartModelYears,
	ChartPriceCompare,
	ChartPriceOdometer,
	ChartOdometer,
}

const defaultScatterSelections = 3

type Options struct {
	SmallManufacturerThreshold int
	PageSize                   int
	PriceBins                  int
}

func DefaultOptions() Options {
	return Options{
		SmallManufacturerThreshold: 1000,
		PageSize:                   50,
		PriceBins:                  charts.DefaultBins,
	}
}

// View is everything the page needs for one set of widget values
type View struct {
	// State holds the widget values after resolving defaults and dropping
	// selections that are not valid for the current data
	State State

	TotalListings      int
	FilteredListings   int
	SmallManufacturers []string
	Threshold          int

	Rows  []models.ListingModel
	Page  int
	Pages int

	Manufacturers []string
	TypeCounts    []dataset.ValueCount

	Conditions []string
	ModelYears []float64

	ComparePrices1 []float64
	ComparePrices2 []float64

	Scatter []charts.ScatterSeries

	Odometers []float64

	PriceSummary    *dataset.Summary
	OdometerSummary *dataset.Summary

	priceBins int
}

// Build recomputes the dashboard from the full dataset and the widget
// values, section by section, the same way on every interaction.
func Build(frame *dataset.Frame, state State, opts Options) *View {
	defaults := DefaultOptions()
	if opts.SmallManufacturerThreshold <= 0 {
		opts.SmallManufacturerThreshold = defaults.SmallManufacturerThreshold
	}
	if opts.PageSize <= 0 {
		opts.PageSize = defaults.PageSize
	}
	if opts.PriceBins <= 0 {
		opts.PriceBins = defaults.PriceBins
	}

	view := &View{
		TotalListings: frame.Len(),
		Threshold:     opts.SmallManufacturerThreshold,
		priceBins:     opts.PriceBins,
	}

	// Data viewer
	filtered := frame
	if !state.IncludeSmallManufacturers {
		small := frame.SmallManufacturers(opts.SmallManufacturerThreshold)
		view.SmallManufacturers = sortedKeys(small)
		filtered = frame.WithoutSmallManufacturers(opts.SmallManufacturerThreshold)
	}
	view.FilteredListings = filtered.Len()

	view.Pages = (filtered.Len() + opts.PageSize - 1) / opts.PageSize
	if view.Pages == 0 {
		view.Pages = 1
	}
	state.Page = clamp(state.Page, 1, view.Pages)
	view.Page = state.Page
	view.Rows = filtered.Slice((state.Page-1)*opts.PageSize, opts.PageSize)

	// Vehicle types by manufacturer
	view.Manufacturers = filtered.Unique(dataset.ColumnManufacturer)
	state.Manufacturer = resolve(state.Manufacturer, view.Manufacturers, 0)
	byManufacturer := filtered.Where(dataset.ColumnManufacturer, state.Manufacturer)
	view.TypeCounts = byManufacturer.ValueCounts(dataset.ColumnType)

	// Condition vs model year
	view.Conditions = filtered.Unique(dataset.ColumnCondition)
	sort.Strings(view.Conditions)
	state.Condition = resolve(state.Condition, view.Conditions, 0)
	view.ModelYears = filtered.Where(dataset.ColumnCondition, state.Condition).Floats(dataset.ColumnModelYear)

	// Price comparison between manufacturers
	state.CompareManufacturer1 = resolve(state.CompareManufacturer1, view.Manufacturers, 0)
	state.CompareManufacturer2 = resolve(state.CompareManufacturer2, view.Manufacturers, 1)
	view.ComparePrices1 = filtered.Where(dataset.ColumnManufacturer, state.CompareManufacturer1).Floats(dataset.ColumnPrice)
	view.ComparePrices2 = filtered.Where(dataset.ColumnManufacturer, state.CompareManufacturer2).Floats(dataset.ColumnPrice)

	// Price vs odometer
	state.ScatterManufacturers = resolveMany(state.ScatterManufacturers, view.Manufacturers, defaultScatterSelections)
	for _, m := range state.ScatterManufacturers {
		xs, ys := filtered.Where(dataset.ColumnManufacturer, m).Pairs(dataset.ColumnOdometer, dataset.ColumnPrice)
		view.Scatter = append(view.Scatter, charts.ScatterSeries{Name: m, Xs: xs, Ys: ys})
	}

	view.Odometers = filtered.Floats(dataset.ColumnOdometer)

	if summary, ok := filtered.Describe(dataset.ColumnPrice); ok {
		view.PriceSummary = &summary
	}
	if summary, ok := filtered.Describe(dataset.ColumnOdometer); ok {
		view.OdometerSummary = &summary
	}

	view.State = state
	return view
}

// Chart renders one of the dashboard charts by name
func (v *View) Chart(name string, opts charts.Options) (io.WriterTo, error) {
	switch name {
	case ChartVehicleTypes:
		labels := make([]string, len(v.TypeCounts))
		values := make([]float64, len(v.TypeCounts))
		for i, vc := range v.TypeCounts {
			labels[i] = vc.Value
			values[i] = float64(vc.Count)
		}
		return charts.Bar(charts.BarSpec{
			Title:  fmt.Sprintf("Vehicle types for %s", v.State.Manufacturer),
			XLabel: "Vehicle type",
			YLabel: "Number of listings",
			Labels: labels,
			Values: values,
		}, opts)

	case ChartModelYears:
		return charts.Histogram(charts.HistogramSpec{
			Title:       fmt.Sprintf("Model year distribution (%s)", v.State.Condition),
			XLabel:      "Model year",
			YLabel:      "Number of listings",
			Series:      []charts.HistogramSeries{{Values: v.ModelYears, Color: charts.SteelBlue}},
			IntegerBins: true,
		}, opts)

	case ChartPriceCompare:
		yLabel := "Frequency"
		if v.State.Normalize {
			yLabel = "Probability density"
		}
		return charts.Histogram(charts.HistogramSpec{
			Title:  fmt.Sprintf("Price comparison between %s and %s", v.State.CompareManufacturer1, v.State.CompareManufacturer2),
			XLabel: "Price (USD)",
			YLabel: yLabel,
			Series: []charts.HistogramSeries{
				{Name: v.State.CompareManufacturer1, Values: v.ComparePrices1, Color: charts.IndianRed},
				{Name: v.State.CompareManufacturer2, Values: v.ComparePrices2, Color: charts.LightSeaGreen},
			},
			Bins:    v.priceBins,
			Density: v.State.Normalize,
			Opacity: 0.75,
		}, opts)

	case ChartPriceOdometer:
		return charts.Scatter(charts.ScatterSpec{
			Title:  "Price vs odometer",
			XLabel: "Odometer (miles)",
			YLabel: "Price (USD)",
			Series: v.Scatter,
		}, opts)

	case ChartOdometer:
		return charts.Histogram(charts.HistogramSpec{
			Title:  "Odometer distribution",
			XLabel: "Odometer (miles)",
			YLabel: "Number of listings",
			Series: []charts.HistogramSeries{{Values: v.Odometers, Color: charts.SteelBlue}},
			Bins:   v.priceBins,
		}, opts)
	}

	return nil, fmt.Errorf("unknown chart %q", name)
}

// IsChart reports whether name is one of ChartNames
func IsChart(name string) bool {
	for _, c := range ChartNames {
		if c == name {
			return true
		}
	}
	return false
}

// resolve returns selected when it is one of options, otherwise the option
// at defaultIndex (or the first one when there are not enough options)
func resolve(selected string, options []string, defaultIndex int) string {
	for _, o := range options {
		if o == selected {
			return selected
		}
	}
	if defaultIndex < len(options) {
		return options[defaultIndex]
	}
	if len(options) > 0 {
		return options[0]
	}
	return ""
}

// resolveMany keeps the valid selections in their given order without
// duplicates. With nothing valid selected it picks the first n options.
func resolveMany(selected []string, options []string, n int) []string {
	valid := make(map[string]bool, len(options))
	for _, o := range options {
		valid[o] = true
	}

	out := make([]string, 0, len(selected))
	seen := make(map[string]bool)
	for _, s := range selected {
		if valid[s] && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	if len(out) > 0 {
		return out
	}

	if n > len(options) {
		n = len(options)
	}
	return append(out, options[:n]...)
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
