package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hytech-racing/listings-dashboard/internal/models"
)

const dateLayout = "2006-01-02"

// maxSkipReasons caps how many rejected rows are described in a LoadReport
const maxSkipReasons = 10

var ErrEmptyDataset = errors.New("dataset has no header row")

// LoadReport describes what happened while reading a CSV file
type LoadReport struct {
	Rows        int      `json:"rows"`
	Skipped     int      `json:"skipped"`
	SkipReasons []string `json:"skip_reasons,omitempty"`
}

// LoadFile opens the CSV at path and loads it into a Frame
func LoadFile(path string) (*Frame, LoadReport, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, LoadReport{}, fmt.Errorf("could not open dataset %s: %w", path, err)
	}
	defer file.Close()

	return Load(file)
}

// Load reads listings from a CSV with a header row. Columns are matched by
// name so their order does not matter. Rows that cannot be parsed are
// skipped and counted in the report instead of failing the whole load.
func Load(r io.Reader) (*Frame, LoadReport, error) {
	report := LoadReport{}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, report, ErrEmptyDataset
	}
	if err != nil {
		return nil, report, fmt.Errorf("could not read csv header: %w", err)
	}

	index := make(map[Column]int, len(header))
	for i, name := range header {
		// Strip a UTF-8 BOM some spreadsheet exports put on the first cell
		name = strings.TrimPrefix(name, "\ufeff")
		index[Column(strings.ToLower(strings.TrimSpace(name)))] = i
	}

	for _, required := range []Column{ColumnPrice, ColumnModel} {
		if _, ok := index[required]; !ok {
			return nil, report, fmt.Errorf("csv header is missing required column %q", required)
		}
	}

	rows := make([]models.ListingModel, 0, 1024)
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++

		if err != nil {
			report.skip(fmt.Sprintf("line %d: %v", line, err))
			continue
		}

		listing, err := parseRecord(record, index)
		if err != nil {
			report.skip(fmt.Sprintf("line %d: %v", line, err))
			continue
		}

		rows = append(rows, listing)
	}

	report.Rows = len(rows)
	return NewFrame(rows), report, nil
}

func (r *LoadReport) skip(reason string) {
	r.Skipped++
	if len(r.SkipReasons) < maxSkipReasons {
		r.SkipReasons = append(r.SkipReasons, reason)
	}
}

func parseRecord(record []string, index map[Column]int) (models.ListingModel, error) {
	field := func(col Column) string {
		i, ok := index[col]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	listing := models.ListingModel{}

	price, ok, err := parseFloat(field(ColumnPrice))
	if err != nil {
		return listing, fmt.Errorf("invalid price: %w", err)
	}
	if !ok {
		return listing, errors.New("missing price")
	}
	listing.Price = price

	listing.Model = field(ColumnModel)
	listing.Manufacturer = DeriveManufacturer(listing.Model)
	if listing.Manufacturer == "" {
		return listing, errors.New("missing model")
	}

	if listing.ModelYear, err = parseOptionalInt(field(ColumnModelYear)); err != nil {
		return listing, fmt.Errorf("invalid model_year: %w", err)
	}
	if listing.Cylinders, err = parseOptionalInt(field(ColumnCylinders)); err != nil {
		return listing, fmt.Errorf("invalid cylinders: %w", err)
	}

	odometer, ok, err := parseFloat(field(ColumnOdometer))
	if err != nil {
		return listing, fmt.Errorf("invalid odometer: %w", err)
	}
	if ok {
		listing.Odometer = &odometer
	}

	is4wd, ok, err := parseFloat(field(ColumnIs4WD))
	if err != nil {
		if b, boolErr := strconv.ParseBool(field(ColumnIs4WD)); boolErr == nil {
			listing.Is4WD = b
		} else {
			return listing, fmt.Errorf("invalid is_4wd: %w", err)
		}
	} else if ok {
		listing.Is4WD = is4wd != 0
	}

	if raw := field(ColumnDatePosted); raw != "" {
		posted, err := time.Parse(dateLayout, raw)
		if err != nil {
			return listing, fmt.Errorf("invalid date_posted: %w", err)
		}
		listing.DatePosted = posted
	}

	daysListed, err := parseOptionalInt(field(ColumnDaysListed))
	if err != nil {
		return listing, fmt.Errorf("invalid days_listed: %w", err)
	}
	if daysListed != nil {
		listing.DaysListed = *daysListed
	}

	listing.Condition = field(ColumnCondition)
	listing.Fuel = field(ColumnFuel)
	listing.Transmission = field(ColumnTransmission)
	listing.Type = field(ColumnType)
	listing.PaintColor = field(ColumnPaintColor)

	return listing, nil
}

// DeriveManufacturer returns the lower-cased first word of a model name,
// e.g. "ford f-150" -> "ford".
func DeriveManufacturer(model string) string {
	fields := strings.Fields(model)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToLower(fields[0])
}

func parseFloat(raw string) (float64, bool, error) {
	if isMissing(raw) {
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false, err
	}
	if math.IsNaN(v) {
		return 0, false, nil
	}
	if math.IsInf(v, 0) {
		return 0, false, fmt.Errorf("%q is not a finite number", raw)
	}
	return v, true, nil
}

// parseOptionalInt accepts integers written as floats ("2011.0"), which is
// how columns with missing values usually get exported.
func parseOptionalInt(raw string) (*int, error) {
	v, ok, err := parseFloat(raw)
	if err != nil || !ok {
		return nil, err
	}
	if v != math.Trunc(v) {
		return nil, fmt.Errorf("%q is not a whole number", raw)
	}
	if v < math.MinInt32 || v > math.MaxInt32 {
		return nil, fmt.Errorf("%q is out of range", raw)
	}
	i := int(v)
	return &i, nil
}

func isMissing(raw string) bool {
	switch strings.ToLower(raw) {
	case "", "nan", "na", "null", "none":
		return true
	}
	return false
}
