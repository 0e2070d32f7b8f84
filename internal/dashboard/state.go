package dashboard

import (
	"net/url"
	"strconv"
	"strings"
)

// State is the value of every widget on the page. It travels in the query
// string so that each interaction re-renders the whole page from scratch.
type State struct {
	IncludeSmallManufacturers bool
	Manufacturer              string
	Condition                 string
	CompareManufacturer1      string
	CompareManufacturer2      string
	Normalize                 bool
	ScatterManufacturers      []string
	ShowOdometerHistogram     bool
	Page                      int
}

const (
	keySmall        = "small"
	keyManufacturer = "manufacturer"
	keyCondition    = "condition"
	keyCompare1     = "compare1"
	keyCompare2     = "compare2"
	keyNormalize    = "normalize"
	keyScatter      = "scatter"
	keyOdometer     = "odometer"
	keyPage         = "page"
)

// ParseState reads widget values from a query. Unknown or malformed values
// fall back to the widget default.
func ParseState(values url.Values) State {
	state := State{
		IncludeSmallManufacturers: parseBool(values.Get(keySmall)),
		Manufacturer:              strings.TrimSpace(values.Get(keyManufacturer)),
		Condition:                 strings.TrimSpace(values.Get(keyCondition)),
		CompareManufacturer1:      strings.TrimSpace(values.Get(keyCompare1)),
		CompareManufacturer2:      strings.TrimSpace(values.Get(keyCompare2)),
		Normalize:                 parseBool(values.Get(keyNormalize)),
		ShowOdometerHistogram:     parseBool(values.Get(keyOdometer)),
		Page:                      1,
	}

	// one key per selection, manufacturers may contain commas
	for _, raw := range values[keyScatter] {
		if m := strings.TrimSpace(raw); m != "" {
			state.ScatterManufacturers = append(state.ScatterManufacturers, m)
		}
	}

	if page, err := strconv.Atoi(values.Get(keyPage)); err == nil && page > 0 {
		state.Page = page
	}

	return state
}

// Encode writes the state back into a query. Defaults are omitted to keep
// links short.
func (s State) Encode() url.Values {
	values := url.Values{}
	setBool := func(key string, v bool) {
		if v {
			values.Set(key, "1")
		}
	}
	setString := func(key string, v string) {
		if v != "" {
			values.Set(key, v)
		}
	}

	setBool(keySmall, s.IncludeSmallManufacturers)
	setString(keyManufacturer, s.Manufacturer)
	setString(keyCondition, s.Condition)
	setString(keyCompare1, s.CompareManufacturer1)
	setString(keyCompare2, s.CompareManufacturer2)
	setBool(keyNormalize, s.Normalize)
	for _, m := range s.ScatterManufacturers {
		values.Add(keyScatter, m)
	}
	setBool(keyOdometer, s.ShowOdometerHistogram)
	if s.Page > 1 {
		values.Set(keyPage, strconv.Itoa(s.Page))
	}

	return values
}

// Map flattens the state for storage. Values are query escaped and
// multi-valued widgets comma joined.
func (s State) Map() map[string]string {
	out := make(map[string]string)
	for key, v := range s.Encode() {
		escaped := make([]string, len(v))
		for i, value := range v {
			escaped[i] = url.QueryEscape(value)
		}
		out[key] = strings.Join(escaped, ",")
	}
	return out
}

// StateFromMap is the inverse of State.Map
func StateFromMap(m map[string]string) State {
	values := url.Values{}
	for key, v := range m {
		for _, escaped := range strings.Split(v, ",") {
			value, err := url.QueryUnescape(escaped)
			if err != nil {
				continue
			}
			values.Add(key, value)
		}
	}
	return ParseState(values)
}

func parseBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}
