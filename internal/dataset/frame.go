package dataset

import (
	"sort"
	"strings"

	"github.com/hytech-racing/listings-dashboard/internal/models"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Frame is an immutable, in-memory table of listings. Every operation
// returns new values and never modifies the rows it was built from, so a
// Frame can be shared between concurrent requests.
type Frame struct {
	rows []models.ListingModel
}

// ValueCount is the number of listings holding one value of a column
type ValueCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Summary holds descriptive statistics of a numeric column
type Summary struct {
	Column Column  `json:"column"`
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Q1     float64 `json:"q1"`
	Median float64 `json:"median"`
	Q3     float64 `json:"q3"`
	Max    float64 `json:"max"`
}

func NewFrame(rows []models.ListingModel) *Frame {
	if rows == nil {
		rows = make([]models.ListingModel, 0)
	}
	return &Frame{rows: rows}
}

func (f *Frame) Len() int {
	return len(f.rows)
}

// Rows returns a copy of all rows
func (f *Frame) Rows() []models.ListingModel {
	out := make([]models.ListingModel, len(f.rows))
	copy(out, f.rows)
	return out
}

// Slice returns at most limit rows starting at offset
func (f *Frame) Slice(offset, limit int) []models.ListingModel {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(f.rows) || limit <= 0 {
		return make([]models.ListingModel, 0)
	}
	end := offset + limit
	if end > len(f.rows) {
		end = len(f.rows)
	}
	out := make([]models.ListingModel, end-offset)
	copy(out, f.rows[offset:end])
	return out
}

// Filter keeps the rows for which keep returns true
func (f *Frame) Filter(keep func(l *models.ListingModel) bool) *Frame {
	out := make([]models.ListingModel, 0, len(f.rows))
	for i := range f.rows {
		if keep(&f.rows[i]) {
			out = append(out, f.rows[i])
		}
	}
	return NewFrame(out)
}

// Where keeps the rows whose column equals value
func (f *Frame) Where(col Column, value string) *Frame {
	return f.Filter(func(l *models.ListingModel) bool {
		v, ok := StringValue(l, col)
		return ok && v == value
	})
}

// WhereIn keeps the rows whose column value is one of values
func (f *Frame) WhereIn(col Column, values []string) *Frame {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return f.Filter(func(l *models.ListingModel) bool {
		v, ok := StringValue(l, col)
		return ok && set[v]
	})
}

// ValueCounts counts listings per value of col, most frequent first.
// Ties are ordered by value so the result is stable. Missing values are not
// counted.
func (f *Frame) ValueCounts(col Column) []ValueCount {
	counts := make(map[string]int)
	for i := range f.rows {
		if v, ok := StringValue(&f.rows[i], col); ok {
			counts[v]++
		}
	}

	out := make([]ValueCount, 0, len(counts))
	for v, c := range counts {
		out = append(out, ValueCount{Value: v, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})
	return out
}

// Unique returns the distinct values of col in order of first appearance
func (f *Frame) Unique(col Column) []string {
	seen := make(map[string]bool)
	out := make([]string, 0)
	for i := range f.rows {
		v, ok := StringValue(&f.rows[i], col)
		if !ok || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

// Floats returns the numeric values of col, skipping missing values
func (f *Frame) Floats(col Column) []float64 {
	out := make([]float64, 0, len(f.rows))
	for i := range f.rows {
		if v, ok := FloatValue(&f.rows[i], col); ok {
			out = append(out, v)
		}
	}
	return out
}

// Pairs returns (x, y) for every row where both columns have a value
func (f *Frame) Pairs(xCol, yCol Column) ([]float64, []float64) {
	xs := make([]float64, 0, len(f.rows))
	ys := make([]float64, 0, len(f.rows))
	for i := range f.rows {
		x, okX := FloatValue(&f.rows[i], xCol)
		y, okY := FloatValue(&f.rows[i], yCol)
		if okX && okY {
			xs = append(xs, x)
			ys = append(ys, y)
		}
	}
	return xs, ys
}

// SmallManufacturers returns the manufacturers with fewer than threshold listings
func (f *Frame) SmallManufacturers(threshold int) map[string]bool {
	small := make(map[string]bool)
	for _, vc := range f.ValueCounts(ColumnManufacturer) {
		if vc.Count < threshold {
			small[vc.Value] = true
		}
	}
	return small
}

// WithoutSmallManufacturers drops listings from manufacturers with fewer
// than threshold listings
func (f *Frame) WithoutSmallManufacturers(threshold int) *Frame {
	small := f.SmallManufacturers(threshold)
	if len(small) == 0 {
		return f
	}
	return f.Filter(func(l *models.ListingModel) bool {
		return !small[l.Manufacturer]
	})
}

// ApplyFilters keeps the rows matching every non-nil filter. Text filters
// are case-insensitive.
func (f *Frame) ApplyFilters(filters models.ListingFilters) *Frame {
	var search string
	if filters.SearchText != nil {
		search = strings.ToLower(*filters.SearchText)
	}

	equal := func(want *string, got string) bool {
		return want == nil || strings.EqualFold(*want, got)
	}

	return f.Filter(func(l *models.ListingModel) bool {
		if !equal(filters.Manufacturer, l.Manufacturer) ||
			!equal(filters.Type, l.Type) ||
			!equal(filters.Condition, l.Condition) ||
			!equal(filters.Fuel, l.Fuel) {
			return false
		}
		if filters.MinPrice != nil && l.Price < *filters.MinPrice {
			return false
		}
		if filters.MaxPrice != nil && l.Price > *filters.MaxPrice {
			return false
		}
		if filters.MinModelYear != nil && (l.ModelYear == nil || *l.ModelYear < *filters.MinModelYear) {
			return false
		}
		if filters.MaxModelYear != nil && (l.ModelYear == nil || *l.ModelYear > *filters.MaxModelYear) {
			return false
		}
		if search != "" && !strings.Contains(strings.ToLower(l.Model), search) {
			return false
		}
		return true
	})
}

// Describe computes summary statistics of a numeric column. The second
// return value is false when the column is not numeric or has no values.
func (f *Frame) Describe(col Column) (Summary, bool) {
	if !col.IsNumeric() {
		return Summary{}, false
	}
	values := f.Floats(col)
	if len(values) == 0 {
		return Summary{Column: col}, false
	}
	sort.Float64s(values)

	mean, std := stat.MeanStdDev(values, nil)
	if len(values) == 1 {
		// sample standard deviation is undefined for one value and NaN breaks json
		std = 0
	}
	return Summary{
		Column: col,
		Count:  len(values),
		Mean:   mean,
		StdDev: std,
		Min:    floats.Min(values),
		Q1:     stat.Quantile(0.25, stat.Empirical, values, nil),
		Median: stat.Quantile(0.5, stat.Empirical, values, nil),
		Q3:     stat.Quantile(0.75, stat.Empirical, values, nil),
		Max:    floats.Max(values),
	}, true
}
