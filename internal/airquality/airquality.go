package airquality

import (
	"strings"
	"time"
)

// Pollutant is an air pollutant code as it appears in the source data
type Pollutant string

const (
	NO2  Pollutant = "NO2"
	PM10 Pollutant = "PM10"
	O3   Pollutant = "O3"
	PM25 Pollutant = "PM2.5"
	CO   Pollutant = "CO"
)

// ParsePollutant normalizes a raw pollutant cell. Unknown codes are kept
// as-is (upper-cased) so they can still be charted with a zero guideline.
func ParsePollutant(raw string) Pollutant {
	code := strings.ToUpper(strings.TrimSpace(raw))
	switch code {
	case "PM25", "PM2_5":
		return PM25
	}
	return Pollutant(code)
}

// Guideline returns the WHO guideline value for a pollutant, or 0 when the
// pollutant has no guideline.
func Guideline(p Pollutant) float64 {
	switch p {
	case NO2:
		return 10
	case PM10:
		return 15
	case O3:
		return 60
	case PM25:
		return 5
	case CO:
		return 4
	default:
		return 0
	}
}

// Observation is a single row of the source dataset
type Observation struct {
	Year      int
	Country   string
	Pollutant Pollutant
	AQI       float64
}

// Guideline returns the WHO guideline for the observation's pollutant
func (o Observation) Guideline() float64 {
	return Guideline(o.Pollutant)
}

// Dataset is an immutable set of observations loaded from one source
type Dataset struct {
	Source       string
	FetchedAt    time.Time
	AQIColumn    string
	HasYear      bool
	Observations []Observation
}

// Countries returns the distinct country names in the order first seen
func (d *Dataset) Countries() []string {
	seen := make(map[string]struct{})
	var countries []string
	for _, o := range d.Observations {
		if _, ok := seen[o.Country]; ok {
			continue
		}
		seen[o.Country] = struct{}{}
		countries = append(countries, o.Country)
	}
	return countries
}
