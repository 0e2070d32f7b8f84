package charts

import (
	"bytes"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func TestBar_RendersPNG(t *testing.T) {
	writer, err := Bar(BarSpec{
		Title:  "Vehicle types for ford",
		XLabel: "Vehicle type",
		YLabel: "Listings",
		Labels: []string{"pickup", "truck", "sedan"},
		Values: []float64{120, 80, 15},
	}, DefaultOptions())
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = writer.WriteTo(&buf)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), pngMagic))
}

func TestBar_MismatchedInput(t *testing.T) {
	_, err := Bar(BarSpec{Labels: []string{"a"}, Values: []float64{1, 2}}, DefaultOptions())
	assert.Error(t, err)
}

func TestBar_EmptyRendersSVG(t *testing.T) {
	opts := DefaultOptions()
	opts.Format = "svg"

	writer, err := Bar(BarSpec{Title: "nothing"}, opts)
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = writer.WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "<svg")
}

func TestParseFormat(t *testing.T) {
	format, contentType, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, "image/png", contentType)

	format, contentType, err = ParseFormat("SVG")
	require.NoError(t, err)
	assert.Equal(t, "svg", format)
	assert.Equal(t, "image/svg+xml", contentType)

	_, _, err = ParseFormat("gif")
	assert.Error(t, err)
}

func TestBinSeries_SharedEdgesAndDensity(t *testing.T) {
	spec := HistogramSpec{
		Series: []HistogramSeries{
			{Name: "ford", Values: []float64{1000, 2000, 3000, 4000}},
			{Name: "kia", Values: []float64{2500, 9000}},
		},
		Bins:    8,
		Density: true,
	}

	hists := BinSeries(spec)
	require.Len(t, hists, 2)

	for i, h := range hists {
		require.Equal(t, 8, len(h.Binning.Bins))
		assert.Equal(t, hists[0].Binning.Bins[0].XMin(), h.Binning.Bins[0].XMin())

		area := 0.0
		for _, bin := range h.Binning.Bins {
			area += bin.SumW() * bin.XWidth()
		}
		assert.InDelta(t, 1.0, area, 1e-6, "series %d", i)
	}
}

func TestBinSeries_Counts(t *testing.T) {
	spec := HistogramSpec{
		Series: []HistogramSeries{
			{Values: []float64{2010, 2010, 2011, 2015}},
		},
		IntegerBins: true,
	}

	hists := BinSeries(spec)
	require.Len(t, hists, 1)
	bins := hists[0].Binning.Bins
	require.Len(t, bins, 6)
	assert.Equal(t, 2009.5, bins[0].XMin())
	assert.Equal(t, 2.0, bins[0].SumW())
	assert.Equal(t, 1.0, bins[1].SumW())
	assert.Equal(t, 1.0, bins[5].SumW())
}

func TestBinEdges(t *testing.T) {
	n, lo, hi := binEdges(nil, 0, false)
	assert.Equal(t, DefaultBins, n)
	assert.Less(t, lo, hi)

	n, lo, hi = binEdges([]float64{5, 5, 5}, 10, false)
	assert.Equal(t, 10, n)
	assert.Less(t, lo, 5.0)
	assert.Greater(t, hi, 5.0)

	// the maximum must not land in the overflow bin
	n, lo, hi = binEdges([]float64{0, 10}, 10, false)
	assert.Equal(t, 10, n)
	assert.Equal(t, 0.0, lo)
	assert.Greater(t, hi, 10.0)

	// too many whole numbers falls back to fixed bins
	n, _, _ = binEdges([]float64{1880, 2019}, 25, true)
	assert.Equal(t, 25, n)
}

func TestHistogram_Overlay(t *testing.T) {
	writer, err := Histogram(HistogramSpec{
		Title:  "Price comparison",
		XLabel: "Price (USD)",
		YLabel: "Probability density",
		Series: []HistogramSeries{
			{Name: "ford", Values: []float64{1000, 5000, 9000}, Color: IndianRed},
			{Name: "chevrolet", Values: []float64{3000, 3500}, Color: LightSeaGreen},
			{Name: "empty"},
		},
		Density: true,
		Opacity: 0.75,
	}, DefaultOptions())
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = writer.WriteTo(&buf)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), pngMagic))
}

func TestScatter(t *testing.T) {
	writer, err := Scatter(ScatterSpec{
		Title: "Price vs odometer",
		Series: []ScatterSeries{
			{Name: "ford", Xs: []float64{1, 2, 3}, Ys: []float64{3, 2, 1}},
			{Name: "none"},
		},
	}, DefaultOptions())
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = writer.WriteTo(&buf)
	require.NoError(t, err)
	assert.NotZero(t, buf.Len())

	_, err = Scatter(ScatterSpec{Series: []ScatterSeries{{Xs: []float64{1}}}}, DefaultOptions())
	assert.Error(t, err)
}

func TestWithOpacity(t *testing.T) {
	c := withOpacity(IndianRed, 0.75).(color.NRGBA)
	assert.Equal(t, uint8(205), c.R)
	assert.Equal(t, uint8(191), c.A)

	assert.Equal(t, color.Color(IndianRed), withOpacity(IndianRed, 0))
}
