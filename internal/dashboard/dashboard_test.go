package dashboard

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smukkama/aqeu-dashboard/internal/airquality"
	"github.com/smukkama/aqeu-dashboard/internal/chart"
	"github.com/smukkama/aqeu-dashboard/internal/events"
	"github.com/smukkama/aqeu-dashboard/internal/loader"
	"github.com/smukkama/aqeu-dashboard/internal/selection"
)

const (
	tsURL  = "https://example.com/ts.csv"
	whoURL = "https://example.com/who.csv"
)

const tsCSV = `year,country,air_pollutant,AQI
2019,Spain,NO2,10
2019,Spain,PM10,20
2019,France,NO2,4
2020,Spain,NO2,30
2020,France,NO2,6
2020,Austria,O3,9
`

const whoCSV = `country,air_pollutant,AQI_Index
Spain,NO2,12
Spain,O3,70
Austria,NO2,8
`

type fakeDatasets struct {
	data        map[string]string
	err         error
	refreshed   []string
	invalidated []string
}

func (f *fakeDatasets) Get(ctx context.Context, source string) (*airquality.Dataset, error) {
	if f.err != nil {
		return nil, f.err
	}
	raw, ok := f.data[source]
	if !ok {
		return nil, loader.ErrDataUnavailable
	}
	return loader.Parse(strings.NewReader(raw), source)
}

func (f *fakeDatasets) Refresh(ctx context.Context, source string) (*airquality.Dataset, error) {
	f.refreshed = append(f.refreshed, source)
	return f.Get(ctx, source)
}

func (f *fakeDatasets) Invalidate(source string) bool {
	f.invalidated = append(f.invalidated, source)
	return true
}

type fakePublisher struct {
	sources []string
	err     error
}

func (p *fakePublisher) PublishRefresh(ctx context.Context, source string) (*events.RefreshEvent, error) {
	if p.err != nil {
		return nil, p.err
	}
	p.sources = append(p.sources, source)
	return events.NewRefreshEvent(source, "test"), nil
}

func newService(ds *fakeDatasets, pub Publisher) *Service {
	return NewService(ds, pub, Config{TimeSeriesURL: tsURL, ThresholdURL: whoURL})
}

func defaultDatasets() *fakeDatasets {
	return &fakeDatasets{data: map[string]string{tsURL: tsCSV, whoURL: whoCSV}}
}

func TestService_Countries(t *testing.T) {
	svc := newService(defaultDatasets(), nil)
	opts, err := svc.Countries(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"All", "Austria", "France", "Spain"}, opts)
}

func TestService_TimeSeriesAll(t *testing.T) {
	svc := newService(defaultDatasets(), nil)
	view, err := svc.TimeSeries(context.Background(), selection.Default())
	require.NoError(t, err)

	require.Len(t, view.Chart.Series, 1)
	s := view.Chart.Series[0]
	assert.Equal(t, selection.AllCountriesLabel, s.Name)
	require.Len(t, s.Points, 2)
	// 2019: mean(15, 4); 2020: mean(30, 6, 9)
	assert.InDelta(t, 9.5, s.Points[0].Y, 1e-9)
	assert.InDelta(t, 15.0, s.Points[1].Y, 1e-9)
	assert.Equal(t, []string{"All"}, view.Selection)
}

func TestService_TimeSeriesSubset(t *testing.T) {
	svc := newService(defaultDatasets(), nil)
	view, err := svc.TimeSeries(context.Background(), selection.Parse([]string{"Spain", "Narnia"}))
	require.NoError(t, err)

	require.Len(t, view.Chart.Series, 1)
	assert.Equal(t, "Spain", view.Chart.Series[0].Name)
	assert.Equal(t, []chart.Point{
		{X: "2019-01-01T00:00:00Z", Y: 15},
		{X: "2020-01-01T00:00:00Z", Y: 30},
	}, view.Chart.Series[0].Points)
	assert.Equal(t, []string{"Narnia"}, view.Unknown)
}

func TestService_TimeSeriesEmptySelection(t *testing.T) {
	svc := newService(defaultDatasets(), nil)
	view, err := svc.TimeSeries(context.Background(), selection.Parse(nil))
	assert.True(t, errors.Is(err, ErrEmptySelection))
	require.NotNil(t, view)
	assert.True(t, view.Chart.IsEmpty())
	assert.Equal(t, []string{}, view.Selection)
}

func TestService_TimeSeriesRequiresYear(t *testing.T) {
	svc := NewService(defaultDatasets(), nil, Config{TimeSeriesURL: whoURL})
	_, err := svc.TimeSeries(context.Background(), selection.Default())
	assert.True(t, errors.Is(err, loader.ErrSchemaMismatch))
}

func TestService_DataUnavailable(t *testing.T) {
	ds := defaultDatasets()
	ds.err = &loader.StatusError{Source: tsURL, StatusCode: 404}
	svc := newService(ds, nil)

	_, err := svc.TimeSeries(context.Background(), selection.Default())
	assert.True(t, errors.Is(err, loader.ErrDataUnavailable))
	_, err = svc.Countries(context.Background())
	assert.True(t, errors.Is(err, loader.ErrDataUnavailable))
	_, err = svc.Thresholds(context.Background(), "")
	assert.True(t, errors.Is(err, loader.ErrDataUnavailable))
}

func TestService_ThresholdsDefaultMode(t *testing.T) {
	svc := newService(defaultDatasets(), nil)
	c, err := svc.Thresholds(context.Background(), "")
	require.NoError(t, err)

	_, ok := c.SeriesByName(chart.GuidelineSeriesName)
	assert.True(t, ok)
	bars, ok := c.SeriesByName("NO2")
	require.True(t, ok)
	assert.Equal(t, []chart.Point{{X: "Austria", Y: 8}, {X: "Spain", Y: 12}}, bars.Points)
}

func TestService_ThresholdsPerCountry(t *testing.T) {
	svc := NewService(defaultDatasets(), nil, Config{TimeSeriesURL: tsURL, ThresholdURL: whoURL, OverlayMode: chart.OverlayPerCountry})
	c, err := svc.Thresholds(context.Background(), "")
	require.NoError(t, err)

	_, ok := c.SeriesByName(chart.GuidelineSeriesName + " - Spain")
	assert.True(t, ok)

	c, err = svc.Thresholds(context.Background(), chart.OverlayCombined)
	require.NoError(t, err)
	_, ok = c.SeriesByName(chart.GuidelineSeriesName)
	assert.True(t, ok)
}

func TestService_Refresh(t *testing.T) {
	ds := defaultDatasets()
	pub := &fakePublisher{}
	svc := newService(ds, pub)

	refreshed, err := svc.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{tsURL, whoURL}, refreshed)
	assert.Equal(t, []string{tsURL, whoURL}, ds.refreshed)
	assert.Equal(t, []string{tsURL, whoURL}, pub.sources)
}

func TestService_RefreshCombinesFailures(t *testing.T) {
	ds := &fakeDatasets{data: map[string]string{tsURL: tsCSV}}
	pub := &fakePublisher{err: errors.New("broker down")}
	svc := newService(ds, pub)

	refreshed, err := svc.Refresh(context.Background())
	assert.Equal(t, []string{tsURL}, refreshed)
	require.Error(t, err)
	assert.True(t, errors.Is(err, loader.ErrDataUnavailable))
	assert.Contains(t, err.Error(), whoURL)
}

func TestService_SharedSourceRefreshedOnce(t *testing.T) {
	ds := defaultDatasets()
	svc := NewService(ds, nil, Config{TimeSeriesURL: tsURL})

	_, err := svc.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{tsURL}, ds.refreshed)
}

func TestService_HandleRefreshEvent(t *testing.T) {
	ds := defaultDatasets()
	svc := newService(ds, nil)

	require.NoError(t, svc.HandleRefreshEvent(context.Background(), events.NewRefreshEvent(whoURL, "other")))
	require.NoError(t, svc.HandleRefreshEvent(context.Background(), events.NewRefreshEvent("https://elsewhere", "other")))
	assert.Equal(t, []string{whoURL}, ds.invalidated)
}
