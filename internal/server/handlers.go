package server

import (
	"context"
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/smukkama/aqeu-dashboard/internal/chart"
	"github.com/smukkama/aqeu-dashboard/internal/dashboard"
	"github.com/smukkama/aqeu-dashboard/internal/loader"
	"github.com/smukkama/aqeu-dashboard/internal/selection"
)

// Error codes returned in API error bodies
const (
	CodeDataUnavailable = "data_unavailable"
	CodeSchemaMismatch  = "schema_mismatch"
	CodeMalformedData   = "malformed_data"
	CodeEmptySelection  = "empty_selection"
	CodeBadRequest      = "bad_request"
	CodeTimeout         = "timeout"
	CodeInternal        = "internal"
)

// ErrorBody is the JSON shape of every error and warning
type ErrorBody struct {
	Code      string `json:"error"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

type countriesResponse struct {
	Options []string `json:"options"`
	Default []string `json:"default"`
}

type timeSeriesResponse struct {
	*dashboard.TimeSeriesView
	Warning *ErrorBody `json:"warning,omitempty"`
}

type refreshResponse struct {
	Refreshed []string   `json:"refreshed"`
	Error     *ErrorBody `json:"error,omitempty"`
}

func (s *HTTPServer) handleCountries(w http.ResponseWriter, r *http.Request) {
	options, err := s.svc.Countries(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, countriesResponse{
		Options: options,
		Default: selection.Default().Values(),
	})
}

// handleTimeSeries reads repeated or comma-separated country parameters.
// An absent parameter means the default selection; an explicitly empty
// one means nothing selected.
func (s *HTTPServer) handleTimeSeries(w http.ResponseWriter, r *http.Request) {
	values, present := r.URL.Query()["country"]
	sel := selection.Default()
	if present {
		sel = selection.Parse(values)
	}

	view, err := s.svc.TimeSeries(r.Context(), sel)
	if errors.Is(err, dashboard.ErrEmptySelection) && view != nil {
		writeJSON(w, http.StatusOK, timeSeriesResponse{
			TimeSeriesView: view,
			Warning:        s.errorBody(r, CodeEmptySelection, "no selected country has data to chart"),
		})
		return
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, timeSeriesResponse{TimeSeriesView: view})
}

func (s *HTTPServer) handleThresholds(w http.ResponseWriter, r *http.Request) {
	var mode chart.OverlayMode
	if raw := r.URL.Query().Get("overlay"); raw != "" {
		parsed, err := chart.ParseOverlayMode(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, s.errorBody(r, CodeBadRequest, err.Error()))
			return
		}
		mode = parsed
	}

	c, err := s.svc.Thresholds(r.Context(), mode)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *HTTPServer) handleRefresh(w http.ResponseWriter, r *http.Request) {
	refreshed, err := s.svc.Refresh(r.Context())
	if refreshed == nil {
		refreshed = []string{}
	}
	if err != nil {
		status, code := classify(err)
		log.WithField("request_id", RequestID(r.Context())).Errorf("Refresh failed: %v", err)
		writeJSON(w, status, refreshResponse{Refreshed: refreshed, Error: s.errorBody(r, code, err.Error())})
		return
	}
	writeJSON(w, http.StatusOK, refreshResponse{Refreshed: refreshed})
}

func (s *HTTPServer) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	log.WithFields(log.Fields{
		"request_id": RequestID(r.Context()),
		"code":       code,
	}).Errorf("Request failed: %v", err)
	writeJSON(w, status, s.errorBody(r, code, err.Error()))
}

func (s *HTTPServer) errorBody(r *http.Request, code, message string) *ErrorBody {
	return &ErrorBody{Code: code, Message: message, RequestID: RequestID(r.Context())}
}

// classify maps pipeline errors to an HTTP status and API error code
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, loader.ErrDataUnavailable):
		return http.StatusBadGateway, CodeDataUnavailable
	case errors.Is(err, loader.ErrSchemaMismatch):
		return http.StatusBadGateway, CodeSchemaMismatch
	case errors.Is(err, loader.ErrMalformedData):
		return http.StatusBadGateway, CodeMalformedData
	case errors.Is(err, dashboard.ErrEmptySelection):
		return http.StatusOK, CodeEmptySelection
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, CodeTimeout
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}
