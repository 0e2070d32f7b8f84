package models

import "time"

// ListingModel is one classified ad from the vehicle sales dataset.
// Columns that may be blank in the source file are pointers so that a missing
// value is not confused with zero.
type ListingModel struct {
	Price        float64   `json:"price" bson:"price"`
	ModelYear    *int      `json:"model_year,omitempty" bson:"model_year,omitempty"`
	Model        string    `json:"model" bson:"model"`
	Condition    string    `json:"condition,omitempty" bson:"condition,omitempty"`
	Cylinders    *int      `json:"cylinders,omitempty" bson:"cylinders,omitempty"`
	Fuel         string    `json:"fuel,omitempty" bson:"fuel,omitempty"`
	Odometer     *float64  `json:"odometer,omitempty" bson:"odometer,omitempty"`
	Transmission string    `json:"transmission,omitempty" bson:"transmission,omitempty"`
	Type         string    `json:"type,omitempty" bson:"type,omitempty"`
	PaintColor   string    `json:"paint_color,omitempty" bson:"paint_color,omitempty"`
	Is4WD        bool      `json:"is_4wd" bson:"is_4wd"`
	DatePosted   time.Time `json:"date_posted" bson:"date_posted"`
	DaysListed   int       `json:"days_listed" bson:"days_listed"`

	// Manufacturer is derived from the first word of Model
	Manufacturer string `json:"manufacturer" bson:"manufacturer"`
}
