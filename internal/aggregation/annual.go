package aggregation

import (
	"sort"
	"time"

	"github.com/smukkama/aqeu-dashboard/internal/airquality"
)

// YearCountryMean is the mean AQI for one (year, country) pair
type YearCountryMean struct {
	Year        time.Time
	Country     string
	MeanAQI     float64
	SampleCount int
}

type yearCountry struct {
	year    int
	country string
}

type accumulator struct {
	sum   float64
	count int
}

func (a *accumulator) add(v float64) {
	a.sum += v
	a.count++
}

func (a accumulator) mean() float64 {
	if a.count == 0 {
		return 0
	}
	return a.sum / float64(a.count)
}

// YearStart normalizes a calendar year to its first instant in UTC
func YearStart(year int) time.Time {
	return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
}

// MeanByYearCountry averages AQI over every observation sharing a
// (year, country) key. Rows are ordered by year, then country.
func MeanByYearCountry(obs []airquality.Observation) []YearCountryMean {
	groups := make(map[yearCountry]*accumulator)
	for _, o := range obs {
		key := yearCountry{year: o.Year, country: o.Country}
		acc, ok := groups[key]
		if !ok {
			acc = &accumulator{}
			groups[key] = acc
		}
		acc.add(o.AQI)
	}

	rows := make([]YearCountryMean, 0, len(groups))
	for key, acc := range groups {
		rows = append(rows, YearCountryMean{
			Year:        YearStart(key.year),
			Country:     key.country,
			MeanAQI:     acc.mean(),
			SampleCount: acc.count,
		})
	}
	sortRows(rows)

	return rows
}

// MeanOfMeans collapses per-country rows into one row per year whose value
// is the unweighted mean of the country means. SampleCount on the result is
// the number of countries averaged.
func MeanOfMeans(rows []YearCountryMean, label string) []YearCountryMean {
	groups := make(map[time.Time]*accumulator)
	for _, r := range rows {
		acc, ok := groups[r.Year]
		if !ok {
			acc = &accumulator{}
			groups[r.Year] = acc
		}
		acc.add(r.MeanAQI)
	}

	out := make([]YearCountryMean, 0, len(groups))
	for year, acc := range groups {
		out = append(out, YearCountryMean{
			Year:        year,
			Country:     label,
			MeanAQI:     acc.mean(),
			SampleCount: acc.count,
		})
	}
	sortRows(out)

	return out
}

func sortRows(rows []YearCountryMean) {
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].Year.Equal(rows[j].Year) {
			return rows[i].Year.Before(rows[j].Year)
		}
		return rows[i].Country < rows[j].Country
	})
}
