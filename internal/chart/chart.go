// Package chart assembles self-contained chart specifications for the
// dashboard's renderer.
package chart

import (
	"fmt"
	"strings"
)

// Series kinds understood by the renderer
const (
	KindLine = "line"
	KindBar  = "bar"
)

// Point is one (x, y) pair. X is a country name or an RFC 3339 instant.
type Point struct {
	X string  `json:"x"`
	Y float64 `json:"y"`
}

// Series is a named, ordered sequence of points
type Series struct {
	Name   string  `json:"name"`
	Kind   string  `json:"kind"`
	Points []Point `json:"points"`
}

// Axis describes one chart axis
type Axis struct {
	Title string `json:"title"`
	Type  string `json:"type"` // date, category, linear
}

// Legend positions the series legend
type Legend struct {
	Orientation string `json:"orientation"` // h or v
}

// Chart is a complete specification handed to the renderer
type Chart struct {
	Title  string   `json:"title"`
	XAxis  Axis     `json:"x_axis"`
	YAxis  Axis     `json:"y_axis"`
	Legend Legend   `json:"legend"`
	Series []Series `json:"series"`
}

// IsEmpty reports whether the chart has no points to draw
func (c *Chart) IsEmpty() bool {
	for _, s := range c.Series {
		if len(s.Points) > 0 {
			return false
		}
	}
	return true
}

// SeriesByName returns the named series, if present
func (c *Chart) SeriesByName(name string) (Series, bool) {
	for _, s := range c.Series {
		if s.Name == name {
			return s, true
		}
	}
	return Series{}, false
}

// OverlayMode selects how WHO guideline markers are drawn
type OverlayMode string

const (
	// OverlayCombined draws one guideline series across all countries
	OverlayCombined OverlayMode = "combined"
	// OverlayPerCountry draws one guideline series per country
	OverlayPerCountry OverlayMode = "per-country"
)

// ParseOverlayMode validates a mode name. An empty name selects
// OverlayCombined.
func ParseOverlayMode(raw string) (OverlayMode, error) {
	switch OverlayMode(strings.ToLower(strings.TrimSpace(raw))) {
	case "", OverlayCombined:
		return OverlayCombined, nil
	case OverlayPerCountry, "per_country", "country":
		return OverlayPerCountry, nil
	}
	return "", fmt.Errorf("unknown overlay mode %q (expected %q or %q)", raw, OverlayCombined, OverlayPerCountry)
}
