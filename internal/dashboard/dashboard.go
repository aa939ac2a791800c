// Package dashboard answers the dashboard's two chart requests from the
// cached datasets. Every call recomputes from the loaded observations.
package dashboard

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"

	"github.com/smukkama/aqeu-dashboard/internal/aggregation"
	"github.com/smukkama/aqeu-dashboard/internal/airquality"
	"github.com/smukkama/aqeu-dashboard/internal/chart"
	"github.com/smukkama/aqeu-dashboard/internal/events"
	"github.com/smukkama/aqeu-dashboard/internal/loader"
	"github.com/smukkama/aqeu-dashboard/internal/selection"
)

// ErrEmptySelection means no selected country resolved to chartable rows
var ErrEmptySelection = errors.New("empty selection")

// Datasets is the cache the service reads from
type Datasets interface {
	Get(ctx context.Context, source string) (*airquality.Dataset, error)
	Refresh(ctx context.Context, source string) (*airquality.Dataset, error)
	Invalidate(source string) bool
}

// Publisher announces refreshes to other replicas
type Publisher interface {
	PublishRefresh(ctx context.Context, source string) (*events.RefreshEvent, error)
}

// Config names the sources and the default overlay mode
type Config struct {
	TimeSeriesURL string
	ThresholdURL  string
	OverlayMode   chart.OverlayMode
}

// Service builds chart specifications from cached datasets
type Service struct {
	datasets  Datasets
	publisher Publisher
	cfg       Config
}

// NewService creates a service. publisher may be nil.
func NewService(datasets Datasets, publisher Publisher, cfg Config) *Service {
	if cfg.ThresholdURL == "" {
		cfg.ThresholdURL = cfg.TimeSeriesURL
	}
	if cfg.OverlayMode == "" {
		cfg.OverlayMode = chart.OverlayCombined
	}
	return &Service{datasets: datasets, publisher: publisher, cfg: cfg}
}

// Sources returns the distinct configured source locators
func (s *Service) Sources() []string {
	if s.cfg.ThresholdURL == s.cfg.TimeSeriesURL {
		return []string{s.cfg.TimeSeriesURL}
	}
	return []string{s.cfg.TimeSeriesURL, s.cfg.ThresholdURL}
}

// Countries returns the selection options: All, then sorted countries
func (s *Service) Countries(ctx context.Context) ([]string, error) {
	ds, err := s.datasets.Get(ctx, s.cfg.TimeSeriesURL)
	if err != nil {
		return nil, err
	}
	return selection.Options(ds.Countries()), nil
}

// TimeSeriesView is the line chart plus how the selection resolved
type TimeSeriesView struct {
	Chart     *chart.Chart `json:"chart"`
	Selection []string     `json:"selection"`
	Unknown   []string     `json:"unknown,omitempty"`
}

// TimeSeries builds the mean-AQI-per-year line chart for sel. When nothing
// resolves to rows it returns the empty, still chartable, view together
// with ErrEmptySelection.
func (s *Service) TimeSeries(ctx context.Context, sel selection.Selection) (*TimeSeriesView, error) {
	ds, err := s.datasets.Get(ctx, s.cfg.TimeSeriesURL)
	if err != nil {
		return nil, err
	}
	if !ds.HasYear {
		return nil, &loader.SchemaMismatchError{Source: ds.Source, Missing: []string{loader.ColumnYear}}
	}

	result := selection.Filter(sel, aggregation.MeanByYearCountry(ds.Observations))
	view := &TimeSeriesView{
		Chart:     chart.TimeSeries(result.Rows),
		Selection: sel.Values(),
		Unknown:   result.Unknown,
	}
	if view.Selection == nil {
		view.Selection = []string{}
	}

	if result.IsEmpty() {
		return view, ErrEmptySelection
	}
	return view, nil
}

// Thresholds builds the AQI-vs-WHO-guideline chart. An empty mode uses the
// configured default.
func (s *Service) Thresholds(ctx context.Context, mode chart.OverlayMode) (*chart.Chart, error) {
	if mode == "" {
		mode = s.cfg.OverlayMode
	}

	ds, err := s.datasets.Get(ctx, s.cfg.ThresholdURL)
	if err != nil {
		return nil, err
	}

	return chart.Thresholds(aggregation.MeanByCountryPollutant(ds.Observations), mode), nil
}

// Refresh reloads every source from its origin and announces it. All
// sources are attempted; failures are combined.
func (s *Service) Refresh(ctx context.Context) ([]string, error) {
	var refreshed []string
	var result *multierror.Error

	for _, source := range s.Sources() {
		if _, err := s.datasets.Refresh(ctx, source); err != nil {
			result = multierror.Append(result, fmt.Errorf("refreshing %s: %w", source, err))
			continue
		}
		refreshed = append(refreshed, source)

		if s.publisher == nil {
			continue
		}
		ev, err := s.publisher.PublishRefresh(ctx, source)
		if err != nil {
			log.WithField("source", source).Warnf("Failed to publish refresh event: %v", err)
			continue
		}
		log.WithFields(log.Fields{"source": source, "event_id": ev.ID}).Info("Published refresh event")
	}

	return refreshed, result.ErrorOrNil()
}

// HandleRefreshEvent drops the local copy of a source refreshed by another
// replica. The next request reloads it, normally from the shared tier.
func (s *Service) HandleRefreshEvent(ctx context.Context, ev *events.RefreshEvent) error {
	for _, source := range s.Sources() {
		if source == ev.Source {
			s.datasets.Invalidate(source)
			return nil
		}
	}
	log.WithField("source", ev.Source).Debug("Ignoring refresh event for unconfigured source")
	return nil
}
