package chart

import (
	"time"

	"github.com/smukkama/aqeu-dashboard/internal/aggregation"
)

const TimeSeriesTitle = "Average EU AQI per Year by Selected Country(s)"

// TimeSeries builds the multi-series line chart: one series per country,
// points in chronological order. Series appear in order of first
// appearance in rows.
func TimeSeries(rows []aggregation.YearCountryMean) *Chart {
	c := &Chart{
		Title:  TimeSeriesTitle,
		XAxis:  Axis{Title: "year", Type: "date"},
		YAxis:  Axis{Title: "AQI", Type: "linear"},
		Legend: Legend{Orientation: "h"},
		Series: []Series{},
	}

	index := make(map[string]int)
	for _, r := range rows {
		i, ok := index[r.Country]
		if !ok {
			i = len(c.Series)
			index[r.Country] = i
			c.Series = append(c.Series, Series{Name: r.Country, Kind: KindLine})
		}
		c.Series[i].Points = append(c.Series[i].Points, Point{
			X: r.Year.UTC().Format(time.RFC3339),
			Y: r.MeanAQI,
		})
	}

	// RFC 3339 in UTC sorts lexically in time order, but rows are not
	// required to arrive sorted.
	for i := range c.Series {
		sortPointsByX(c.Series[i].Points)
	}

	return c
}
