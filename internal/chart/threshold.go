package chart

import (
	"sort"

	"github.com/smukkama/aqeu-dashboard/internal/aggregation"
)

const (
	ThresholdTitle      = "AQI Index vs WHO Guidelines by Country"
	GuidelineSeriesName = "WHO Guideline"
)

// Thresholds builds the bar+line comparison chart: one bar series per
// pollutant (x = country, y = AQI index) and WHO guideline overlay
// series according to mode.
func Thresholds(rows []aggregation.CountryPollutantAQI, mode OverlayMode) *Chart {
	c := &Chart{
		Title:  ThresholdTitle,
		XAxis:  Axis{Title: "Country", Type: "category"},
		YAxis:  Axis{Title: "AQI Index", Type: "linear"},
		Legend: Legend{Orientation: "h"},
		Series: []Series{},
	}

	sorted := append([]aggregation.CountryPollutantAQI(nil), rows...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Pollutant != sorted[j].Pollutant {
			return sorted[i].Pollutant < sorted[j].Pollutant
		}
		return sorted[i].Country < sorted[j].Country
	})

	bars := make(map[string]int)
	for _, r := range sorted {
		name := string(r.Pollutant)
		i, ok := bars[name]
		if !ok {
			i = len(c.Series)
			bars[name] = i
			c.Series = append(c.Series, Series{Name: name, Kind: KindBar})
		}
		c.Series[i].Points = append(c.Series[i].Points, Point{X: r.Country, Y: r.AQIIndex})
	}

	switch mode {
	case OverlayPerCountry:
		c.Series = append(c.Series, perCountryOverlay(sorted)...)
	default:
		c.Series = append(c.Series, combinedOverlay(sorted))
	}

	return c
}

// combinedOverlay follows bar order so each marker sits over its bar
func combinedOverlay(rows []aggregation.CountryPollutantAQI) Series {
	s := Series{Name: GuidelineSeriesName, Kind: KindLine, Points: []Point{}}
	for _, r := range rows {
		s.Points = append(s.Points, Point{X: r.Country, Y: r.Guideline})
	}
	return s
}

func perCountryOverlay(rows []aggregation.CountryPollutantAQI) []Series {
	index := make(map[string]int)
	var out []Series
	for _, r := range rows {
		i, ok := index[r.Country]
		if !ok {
			i = len(out)
			index[r.Country] = i
			out = append(out, Series{Name: GuidelineSeriesName + " - " + r.Country, Kind: KindLine})
		}
		out[i].Points = append(out[i].Points, Point{X: r.Country, Y: r.Guideline})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func sortPointsByX(points []Point) {
	sort.SliceStable(points, func(i, j int) bool { return points[i].X < points[j].X })
}
