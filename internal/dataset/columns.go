package dataset

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hytech-racing/listings-dashboard/internal/models"
)

// Column names a field of a listing the way it appears in the CSV header
type Column string

const (
	ColumnPrice        Column = "price"
	ColumnModelYear    Column = "model_year"
	ColumnModel        Column = "model"
	ColumnCondition    Column = "condition"
	ColumnCylinders    Column = "cylinders"
	ColumnFuel         Column = "fuel"
	ColumnOdometer     Column = "odometer"
	ColumnTransmission Column = "transmission"
	ColumnType         Column = "type"
	ColumnPaintColor   Column = "paint_color"
	ColumnIs4WD        Column = "is_4wd"
	ColumnDatePosted   Column = "date_posted"
	ColumnDaysListed   Column = "days_listed"
	ColumnManufacturer Column = "manufacturer"
)

// Columns lists every column in the order the data viewer shows them
var Columns = []Column{
	ColumnPrice,
	ColumnModelYear,
	ColumnModel,
	ColumnManufacturer,
	ColumnCondition,
	ColumnCylinders,
	ColumnFuel,
	ColumnOdometer,
	ColumnTransmission,
	ColumnType,
	ColumnPaintColor,
	ColumnIs4WD,
	ColumnDatePosted,
	ColumnDaysListed,
}

var numericColumns = map[Column]bool{
	ColumnPrice:      true,
	ColumnModelYear:  true,
	ColumnCylinders:  true,
	ColumnOdometer:   true,
	ColumnDaysListed: true,
}

// ParseColumn validates a column name coming from a request
func ParseColumn(name string) (Column, error) {
	col := Column(strings.ToLower(strings.TrimSpace(name)))
	for _, c := range Columns {
		if c == col {
			return col, nil
		}
	}
	return "", fmt.Errorf("unknown column %q", name)
}

// IsNumeric reports whether the column holds numbers
func (c Column) IsNumeric() bool {
	return numericColumns[c]
}

// StringValue returns the display value of col for a listing. The second
// return value is false when the listing has no value for the column.
func StringValue(l *models.ListingModel, col Column) (string, bool) {
	switch col {
	case ColumnPrice:
		return strconv.FormatFloat(l.Price, 'f', -1, 64), true
	case ColumnModelYear:
		if l.ModelYear == nil {
			return "", false
		}
		return strconv.Itoa(*l.ModelYear), true
	case ColumnModel:
		return l.Model, l.Model != ""
	case ColumnCondition:
		return l.Condition, l.Condition != ""
	case ColumnCylinders:
		if l.Cylinders == nil {
			return "", false
		}
		return strconv.Itoa(*l.Cylinders), true
	case ColumnFuel:
		return l.Fuel, l.Fuel != ""
	case ColumnOdometer:
		if l.Odometer == nil {
			return "", false
		}
		return strconv.FormatFloat(*l.Odometer, 'f', -1, 64), true
	case ColumnTransmission:
		return l.Transmission, l.Transmission != ""
	case ColumnType:
		return l.Type, l.Type != ""
	case ColumnPaintColor:
		return l.PaintColor, l.PaintColor != ""
	case ColumnIs4WD:
		return strconv.FormatBool(l.Is4WD), true
	case ColumnDatePosted:
		if l.DatePosted.IsZero() {
			return "", false
		}
		return l.DatePosted.Format(dateLayout), true
	case ColumnDaysListed:
		return strconv.Itoa(l.DaysListed), true
	case ColumnManufacturer:
		return l.Manufacturer, l.Manufacturer != ""
	}
	return "", false
}

// FloatValue returns the numeric value of col for a listing
func FloatValue(l *models.ListingModel, col Column) (float64, bool) {
	switch col {
	case ColumnPrice:
		return l.Price, true
	case ColumnModelYear:
		if l.ModelYear == nil {
			return 0, false
		}
		return float64(*l.ModelYear), true
	case ColumnCylinders:
		if l.Cylinders == nil {
			return 0, false
		}
		return float64(*l.Cylinders), true
	case ColumnOdometer:
		if l.Odometer == nil {
			return 0, false
		}
		return *l.Odometer, true
	case ColumnDaysListed:
		return float64(l.DaysListed), true
	}
	return 0, false
}
