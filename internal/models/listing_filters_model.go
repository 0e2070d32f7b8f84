package models

// ListingFilters contains all the possible ways to filter and query
// for listings. A nil field does not filter.
type ListingFilters struct {
	Manufacturer *string  `json:"manufacturer,omitempty"`
	Type         *string  `json:"type,omitempty"`
	Condition    *string  `json:"condition,omitempty"`
	Fuel         *string  `json:"fuel,omitempty"`
	MinPrice     *float64 `json:"min_price,omitempty"`
	MaxPrice     *float64 `json:"max_price,omitempty"`
	MinModelYear *int     `json:"min_model_year,omitempty"`
	MaxModelYear *int     `json:"max_model_year,omitempty"`
	SearchText   *string  `json:"search_text,omitempty"`
}
