package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/smukkama/aqeu-dashboard/internal/airquality"
)

// Column names recognised in the source header
const (
	ColumnYear      = "year"
	ColumnCountry   = "country"
	ColumnPollutant = "air_pollutant"
	ColumnAQI       = "AQI"
	ColumnAQIIndex  = "AQI_Index"
)

// maxRowErrors caps how many bad rows are reported in one ErrMalformedData
const maxRowErrors = 20

type columns struct {
	year      int
	country   int
	pollutant int
	aqi       int
	aqiName   string
}

// Parse reads CSV observations from r. source is only used in errors and
// on the returned dataset.
func Parse(r io.Reader, source string) (*airquality.Dataset, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.ReuseRecord = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, &SchemaMismatchError{Source: source, Missing: []string{ColumnCountry, ColumnPollutant, ColumnAQI}}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading header of %s: %v", ErrMalformedData, source, err)
	}

	cols, err := resolveColumns(header, source)
	if err != nil {
		return nil, err
	}

	dataset := &airquality.Dataset{
		Source:    source,
		FetchedAt: time.Now(),
		AQIColumn: cols.aqiName,
		HasYear:   cols.year >= 0,
	}

	var rowErrs *multierror.Error
	badRows := 0
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("%w: %s line %d: %v", ErrMalformedData, source, line, err)
		}

		obs, ok, err := parseRecord(record, cols)
		if err != nil {
			badRows++
			if badRows <= maxRowErrors {
				rowErrs = multierror.Append(rowErrs, fmt.Errorf("line %d: %w", line, err))
			}
			continue
		}
		if ok {
			dataset.Observations = append(dataset.Observations, obs)
		}
	}

	if rowErrs != nil {
		return nil, fmt.Errorf("%w: %s has %d bad rows: %v", ErrMalformedData, source, badRows, rowErrs.ErrorOrNil())
	}

	return dataset, nil
}

func resolveColumns(header []string, source string) (columns, error) {
	cols := columns{year: -1, country: -1, pollutant: -1, aqi: -1}
	aqiIndex := -1

	for i, raw := range header {
		name := strings.TrimSpace(strings.TrimPrefix(raw, "\ufeff"))
		switch name {
		case ColumnYear:
			cols.year = i
		case ColumnCountry:
			cols.country = i
		case ColumnPollutant:
			cols.pollutant = i
		case ColumnAQI:
			cols.aqi = i
		case ColumnAQIIndex:
			aqiIndex = i
		}
	}

	// AQI_Index wins when both are present; it is the threshold dataset's column
	cols.aqiName = ColumnAQI
	if aqiIndex >= 0 {
		cols.aqi = aqiIndex
		cols.aqiName = ColumnAQIIndex
	}

	var missing []string
	if cols.country < 0 {
		missing = append(missing, ColumnCountry)
	}
	if cols.pollutant < 0 {
		missing = append(missing, ColumnPollutant)
	}
	if cols.aqi < 0 {
		missing = append(missing, ColumnAQI+"|"+ColumnAQIIndex)
	}
	if len(missing) > 0 {
		return cols, &SchemaMismatchError{Source: source, Missing: missing}
	}

	return cols, nil
}

// parseRecord returns ok=false for rows that carry no measurement or no
// country to group under
func parseRecord(record []string, cols columns) (airquality.Observation, bool, error) {
	var obs airquality.Observation

	cell := func(i int) string {
		if i < 0 || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	aqiCell := cell(cols.aqi)
	if aqiCell == "" || strings.EqualFold(aqiCell, "nan") {
		return obs, false, nil
	}
	aqi, err := strconv.ParseFloat(aqiCell, 64)
	if err != nil || math.IsInf(aqi, 0) {
		return obs, false, fmt.Errorf("invalid %s value %q", cols.aqiName, aqiCell)
	}

	country := cell(cols.country)
	if country == "" || strings.EqualFold(country, "nan") {
		return obs, false, nil
	}

	if cols.year >= 0 {
		year, err := parseYear(cell(cols.year))
		if err != nil {
			return obs, false, err
		}
		obs.Year = year
	}

	obs.Country = country
	obs.Pollutant = airquality.ParsePollutant(cell(cols.pollutant))
	obs.AQI = aqi

	return obs, true, nil
}

// parseYear accepts "2020" as well as "2020.0" from float-typed exports
func parseYear(raw string) (int, error) {
	if year, err := strconv.Atoi(raw); err == nil {
		return year, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f != math.Trunc(f) {
		return 0, fmt.Errorf("invalid year %q", raw)
	}
	return int(f), nil
}
