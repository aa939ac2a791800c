package aggregation

import (
	"sort"

	"github.com/smukkama/aqeu-dashboard/internal/airquality"
)

// CountryPollutantAQI is the AQI index of one pollutant in one country,
// paired with the pollutant's WHO guideline
type CountryPollutantAQI struct {
	Country   string
	Pollutant airquality.Pollutant
	AQIIndex  float64
	Guideline float64
}

type countryPollutant struct {
	country   string
	pollutant airquality.Pollutant
}

// MeanByCountryPollutant averages AQI per (country, pollutant). Sources
// that already hold one row per pair pass through unchanged. Rows are
// ordered by pollutant, then country.
func MeanByCountryPollutant(obs []airquality.Observation) []CountryPollutantAQI {
	groups := make(map[countryPollutant]*accumulator)
	for _, o := range obs {
		key := countryPollutant{country: o.Country, pollutant: o.Pollutant}
		acc, ok := groups[key]
		if !ok {
			acc = &accumulator{}
			groups[key] = acc
		}
		acc.add(o.AQI)
	}

	rows := make([]CountryPollutantAQI, 0, len(groups))
	for key, acc := range groups {
		rows = append(rows, CountryPollutantAQI{
			Country:   key.country,
			Pollutant: key.pollutant,
			AQIIndex:  acc.mean(),
			Guideline: airquality.Guideline(key.pollutant),
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Pollutant != rows[j].Pollutant {
			return rows[i].Pollutant < rows[j].Pollutant
		}
		return rows[i].Country < rows[j].Country
	})

	return rows
}
