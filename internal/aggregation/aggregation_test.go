package aggregation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smukkama/aqeu-dashboard/internal/airquality"
)

func sampleObservations() []airquality.Observation {
	return []airquality.Observation{
		{Year: 2020, Country: "Spain", Pollutant: airquality.NO2, AQI: 10},
		{Year: 2020, Country: "Spain", Pollutant: airquality.PM10, AQI: 20},
		{Year: 2020, Country: "Spain", Pollutant: airquality.O3, AQI: 60},
		{Year: 2020, Country: "France", Pollutant: airquality.NO2, AQI: 5},
		{Year: 2019, Country: "Spain", Pollutant: airquality.NO2, AQI: 8},
		{Year: 2019, Country: "France", Pollutant: airquality.NO2, AQI: 4},
		{Year: 2019, Country: "France", Pollutant: airquality.CO, AQI: 6},
	}
}

func TestYearStart(t *testing.T) {
	assert.Equal(t, time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC), YearStart(1990))
}

func TestMeanByYearCountry(t *testing.T) {
	rows := MeanByYearCountry(sampleObservations())
	require.Len(t, rows, 4)

	want := []YearCountryMean{
		{Year: YearStart(2019), Country: "France", MeanAQI: 5, SampleCount: 2},
		{Year: YearStart(2019), Country: "Spain", MeanAQI: 8, SampleCount: 1},
		{Year: YearStart(2020), Country: "France", MeanAQI: 5, SampleCount: 1},
		{Year: YearStart(2020), Country: "Spain", MeanAQI: 30, SampleCount: 3},
	}
	assert.Equal(t, want, rows)
}

func TestMeanByYearCountry_Idempotent(t *testing.T) {
	obs := sampleObservations()
	assert.Equal(t, MeanByYearCountry(obs), MeanByYearCountry(obs))
}

func TestMeanByYearCountry_Empty(t *testing.T) {
	rows := MeanByYearCountry(nil)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestMeanOfMeans_IsNotMeanOfRawObservations(t *testing.T) {
	rows := MeanOfMeans(MeanByYearCountry(sampleObservations()), "All Countries")
	require.Len(t, rows, 2)

	// 2020: Spain mean 30, France mean 5 -> 17.5 (raw mean would be 23.75)
	assert.Equal(t, YearStart(2019), rows[0].Year)
	assert.InDelta(t, 6.5, rows[0].MeanAQI, 1e-9)
	assert.Equal(t, YearStart(2020), rows[1].Year)
	assert.InDelta(t, 17.5, rows[1].MeanAQI, 1e-9)

	for _, r := range rows {
		assert.Equal(t, "All Countries", r.Country)
		assert.Equal(t, 2, r.SampleCount)
	}
}

func TestMeanByCountryPollutant(t *testing.T) {
	obs := []airquality.Observation{
		{Country: "Italy", Pollutant: airquality.O3, AQI: 70},
		{Country: "Italy", Pollutant: airquality.O3, AQI: 50},
		{Country: "Austria", Pollutant: airquality.O3, AQI: 40},
		{Country: "Italy", Pollutant: "SO2", AQI: 9},
	}

	rows := MeanByCountryPollutant(obs)
	want := []CountryPollutantAQI{
		{Country: "Austria", Pollutant: airquality.O3, AQIIndex: 40, Guideline: 60},
		{Country: "Italy", Pollutant: airquality.O3, AQIIndex: 60, Guideline: 60},
		{Country: "Italy", Pollutant: "SO2", AQIIndex: 9, Guideline: 0},
	}
	assert.Equal(t, want, rows)
}
