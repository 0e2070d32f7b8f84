package charts

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"strings"

	"go-hep.org/x/hep/hbook"
	"go-hep.org/x/hep/hplot"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

const (
	DefaultBins = 40

	// maxIntegerBins caps the one-bin-per-unit layout used for things like
	// model years so a stray year like 1908 does not create hundreds of bins
	maxIntegerBins = 120
)

var (
	IndianRed     = color.NRGBA{R: 205, G: 92, B: 92, A: 255}
	LightSeaGreen = color.NRGBA{R: 32, G: 178, B: 170, A: 255}
	SteelBlue     = color.NRGBA{R: 70, G: 130, B: 180, A: 255}
)

// Options controls the size and encoding of a rendered chart
type Options struct {
	Width  vg.Length
	Height vg.Length
	Format string
}

func DefaultOptions() Options {
	return Options{
		Width:  24 * vg.Centimeter,
		Height: 14 * vg.Centimeter,
		Format: "png",
	}
}

var contentTypes = map[string]string{
	"png": "image/png",
	"svg": "image/svg+xml",
	"jpg": "image/jpeg",
	"pdf": "application/pdf",
}

// ParseFormat validates an image format and returns its content type
func ParseFormat(format string) (string, string, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = "png"
	}
	contentType, ok := contentTypes[format]
	if !ok {
		return "", "", fmt.Errorf("unsupported chart format %q", format)
	}
	return format, contentType, nil
}

// BarSpec describes a bar chart of counts per category
type BarSpec struct {
	Title  string
	XLabel string
	YLabel string
	Labels []string
	Values []float64
	Color  color.Color
}

// HistogramSeries is one set of values drawn as a histogram trace
type HistogramSeries struct {
	Name   string
	Values []float64
	Color  color.Color
}

// HistogramSpec describes one or more histograms drawn on the same axes.
// All series share the same bin edges so overlays can be compared.
type HistogramSpec struct {
	Title  string
	XLabel string
	YLabel string
	Series []HistogramSeries
	Bins   int

	// IntegerBins uses one bin per whole number, centered on it
	IntegerBins bool

	// Density scales every series so its area sums to one
	Density bool

	// Opacity of the bar fill, 0 means opaque
	Opacity float64
}

// ScatterSeries is one set of points of a scatter plot
type ScatterSeries struct {
	Name string
	Xs   []float64
	Ys   []float64
}

type ScatterSpec struct {
	Title  string
	XLabel string
	YLabel string
	Series []ScatterSeries
}

func newPlot(title, xLabel, yLabel string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel
	p.Add(plotter.NewGrid())
	return p
}

func render(p *plot.Plot, opts Options) (io.WriterTo, error) {
	format, _, err := ParseFormat(opts.Format)
	if err != nil {
		return nil, err
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		defaults := DefaultOptions()
		opts.Width, opts.Height = defaults.Width, defaults.Height
	}

	writer, err := p.WriterTo(opts.Width, opts.Height, format)
	if err != nil {
		return nil, fmt.Errorf("could not get plot writer: %w", err)
	}
	return writer, nil
}

// Bar renders a bar chart with one bar per label
func Bar(spec BarSpec, opts Options) (io.WriterTo, error) {
	if len(spec.Labels) != len(spec.Values) {
		return nil, fmt.Errorf("bar chart has %d labels but %d values", len(spec.Labels), len(spec.Values))
	}

	p := newPlot(spec.Title, spec.XLabel, spec.YLabel)

	if len(spec.Values) > 0 {
		bars, err := plotter.NewBarChart(plotter.Values(spec.Values), barWidth(len(spec.Values), opts))
		if err != nil {
			return nil, fmt.Errorf("could not create bar chart: %w", err)
		}
		bars.Color = spec.Color
		if bars.Color == nil {
			bars.Color = SteelBlue
		}
		bars.LineStyle.Width = vg.Length(0)
		p.Add(bars)
		p.NominalX(spec.Labels...)
		p.Y.Min = 0
	}

	return render(p, opts)
}

func barWidth(n int, opts Options) vg.Length {
	width := opts.Width
	if width <= 0 {
		width = DefaultOptions().Width
	}
	w := width / vg.Length(2*n+2)
	if w > vg.Points(40) {
		w = vg.Points(40)
	}
	return w
}

// Histogram renders the series of spec as overlayed histograms
func Histogram(spec HistogramSpec, opts Options) (io.WriterTo, error) {
	p := newPlot(spec.Title, spec.XLabel, spec.YLabel)

	hists := BinSeries(spec)
	for i, h := range hists {
		series := spec.Series[i]
		if len(series.Values) == 0 {
			continue
		}

		c := series.Color
		if c == nil {
			c = plotutil.Color(i)
		}

		hh := hplot.NewH1D(h)
		hh.Infos.Style = hplot.HInfoNone
		hh.FillColor = withOpacity(c, spec.Opacity)
		hh.LineStyle.Color = c
		hh.LineStyle.Width = vg.Points(0.5)
		p.Add(hh)

		if series.Name != "" {
			p.Legend.Add(series.Name, hh)
		}
	}
	p.Legend.Top = true

	return render(p, opts)
}

// BinSeries fills one histogram per series of spec, all sharing the same
// edges. The returned slice lines up with spec.Series, series without values
// get an empty histogram.
func BinSeries(spec HistogramSpec) []*hbook.H1D {
	all := make([]float64, 0)
	for _, s := range spec.Series {
		all = append(all, s.Values...)
	}

	n, lo, hi := binEdges(all, spec.Bins, spec.IntegerBins)
	width := (hi - lo) / float64(n)

	hists := make([]*hbook.H1D, len(spec.Series))
	for i, s := range spec.Series {
		h := hbook.NewH1D(n, lo, hi)
		for _, v := range s.Values {
			h.Fill(v, 1)
		}
		if spec.Density && len(s.Values) > 0 {
			h.Scale(1 / (float64(len(s.Values)) * width))
		}
		hists[i] = h
	}
	return hists
}

// binEdges picks the number of bins and the range they cover so that the
// maximum value falls inside the last bin rather than in the overflow.
func binEdges(values []float64, bins int, integer bool) (int, float64, float64) {
	if bins <= 0 {
		bins = DefaultBins
	}
	if len(values) == 0 {
		return bins, 0, 1
	}

	lo, hi := floats.Min(values), floats.Max(values)

	if integer {
		lo = math.Floor(lo) - 0.5
		hi = math.Floor(hi) + 0.5
		n := int(hi - lo)
		if n <= maxIntegerBins {
			return n, lo, hi
		}
	}

	span := hi - lo
	if span == 0 {
		span = 1
		lo -= 0.5
	}
	return bins, lo, lo + span*(1+1e-9)
}

// Scatter renders one scatter series per manufacturer
func Scatter(spec ScatterSpec, opts Options) (io.WriterTo, error) {
	p := newPlot(spec.Title, spec.XLabel, spec.YLabel)

	args := make([]interface{}, 0, 2*len(spec.Series))
	for _, s := range spec.Series {
		if len(s.Xs) != len(s.Ys) {
			return nil, fmt.Errorf("scatter series %q has %d x values but %d y values", s.Name, len(s.Xs), len(s.Ys))
		}
		if len(s.Xs) == 0 {
			continue
		}
		args = append(args, s.Name, hplot.ZipXY(s.Xs, s.Ys))
	}

	if len(args) > 0 {
		err := plotutil.AddScatters(p, args...)
		if err != nil {
			return nil, fmt.Errorf("could not create scatters: %w", err)
		}
	}
	p.Legend.Top = true

	return render(p, opts)
}

func withOpacity(c color.Color, opacity float64) color.Color {
	if opacity <= 0 || opacity >= 1 {
		return c
	}
	r, g, b, _ := c.RGBA()
	return color.NRGBA{
		R: uint8(r >> 8),
		G: uint8(g >> 8),
		B: uint8(b >> 8),
		A: uint8(math.Round(opacity * 255)),
	}
}
