package selection

import (
	"sort"
	"strings"

	"github.com/smukkama/aqeu-dashboard/internal/aggregation"
)

const (
	// All selects every country, aggregated into one series
	All = "All"
	// AllCountriesLabel names the synthetic series produced for All
	AllCountriesLabel = "All Countries"
)

// Selection is the set of countries chosen by the caller
type Selection struct {
	countries map[string]struct{}
	order     []string
	all       bool
}

// Parse builds a selection from raw values. Each value may itself be a
// comma-separated list. Blank entries are dropped.
func Parse(values []string) Selection {
	sel := Selection{countries: make(map[string]struct{})}
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			sel.add(strings.TrimSpace(part))
		}
	}
	return sel
}

// Default is the initial selection shown to a user
func Default() Selection {
	return Parse([]string{All})
}

func (s *Selection) add(country string) {
	if country == "" {
		return
	}
	if country == All {
		s.all = true
		return
	}
	if _, ok := s.countries[country]; ok {
		return
	}
	s.countries[country] = struct{}{}
	s.order = append(s.order, country)
}

// IncludesAll reports whether the All sentinel was chosen
func (s Selection) IncludesAll() bool { return s.all }

// IsEmpty reports whether nothing at all was chosen
func (s Selection) IsEmpty() bool { return !s.all && len(s.order) == 0 }

// Contains reports whether country was explicitly chosen
func (s Selection) Contains(country string) bool {
	_, ok := s.countries[country]
	return ok
}

// Countries returns the explicitly chosen countries in input order
func (s Selection) Countries() []string {
	return append([]string(nil), s.order...)
}

// Values returns the selection as it would be sent back to a UI
func (s Selection) Values() []string {
	var out []string
	if s.all {
		out = append(out, All)
	}
	return append(out, s.order...)
}

// Result is the chartable outcome of applying a selection
type Result struct {
	Rows       []aggregation.YearCountryMean
	Aggregated bool
	// Unknown lists selected countries absent from the data
	Unknown []string
}

// IsEmpty reports whether there is nothing to chart
func (r Result) IsEmpty() bool { return len(r.Rows) == 0 }

// Filter applies sel to per-(year, country) rows. All takes priority over
// any other entry. Countries that do not appear in rows are skipped.
func Filter(sel Selection, rows []aggregation.YearCountryMean) Result {
	if sel.IncludesAll() {
		return Result{
			Rows:       aggregation.MeanOfMeans(rows, AllCountriesLabel),
			Aggregated: true,
		}
	}

	result := Result{Rows: []aggregation.YearCountryMean{}}
	found := make(map[string]bool)
	for _, r := range rows {
		if sel.Contains(r.Country) {
			result.Rows = append(result.Rows, r)
			found[r.Country] = true
		}
	}
	for _, c := range sel.order {
		if !found[c] {
			result.Unknown = append(result.Unknown, c)
		}
	}

	return result
}

// Options returns the choices offered to a user: All followed by the
// sorted distinct countries.
func Options(countries []string) []string {
	seen := make(map[string]struct{}, len(countries))
	distinct := make([]string, 0, len(countries))
	for _, c := range countries {
		if c == "" || c == All {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		distinct = append(distinct, c)
	}
	sort.Strings(distinct)

	return append([]string{All}, distinct...)
}
