package httpadapter

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/couchcryptid/city-enrollment-map/internal/adapter/geojson"
	"github.com/couchcryptid/city-enrollment-map/internal/pipeline"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	req, err := parseMapRequest(r.URL.Query())
	if err != nil {
		s.metrics.ViewRequests.WithLabelValues(pipeline.ViewMap, "bad_request").Inc()
		writeError(w, http.StatusBadRequest, err)
		return
	}
	view, err := s.views.MapView(r.Context(), req)
	if err != nil {
		s.writeViewError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, view)
}

func (s *Server) handleMapGeoJSON(w http.ResponseWriter, r *http.Request) {
	req, err := parseMapRequest(r.URL.Query())
	if err != nil {
		s.metrics.ViewRequests.WithLabelValues(pipeline.ViewGeoJSON, "bad_request").Inc()
		writeError(w, http.StatusBadRequest, err)
		return
	}
	req.View = pipeline.ViewGeoJSON
	view, err := s.views.MapView(r.Context(), req)
	if err != nil {
		s.writeViewError(w, r, err)
		return
	}
	data, err := geojson.Encode(view.Cities)
	if err != nil {
		s.writeViewError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", geojson.ContentType)
	w.WriteHeader(http.StatusOK)
	w.Write(data) //nolint:errcheck // client went away
}

func (s *Server) handlePrograms(w http.ResponseWriter, r *http.Request) {
	charts, err := s.views.ProgramCharts(r.Context(), r.PathValue("name"))
	if err != nil {
		s.writeViewError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, charts)
}

func (s *Server) writeViewError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, pipeline.ErrNotReady) {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	s.logger.Error("view failed", "error", err, "path", r.URL.Path, "request_id", RequestIDFrom(r.Context()))
	writeError(w, http.StatusInternalServerError, errors.New("internal error"))
}

// parseMapRequest reads min, max and exclude_zero. Absent values keep
// their defaults; malformed ones are rejected.
func parseMapRequest(q url.Values) (pipeline.MapRequest, error) {
	var req pipeline.MapRequest

	lo, err := optionalInt(q, "min")
	if err != nil {
		return req, err
	}
	hi, err := optionalInt(q, "max")
	if err != nil {
		return req, err
	}
	req.Min, req.Max = lo, hi

	if v := q.Get("exclude_zero"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return req, fmt.Errorf("invalid exclude_zero %q: want a boolean", v)
		}
		req.ExcludeZero = b
	}
	return req, nil
}

func optionalInt(q url.Values, key string) (*int, error) {
	v := q.Get(key)
	if v == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q: want an integer", key, v)
	}
	return &n, nil
}

func writeError(w http.ResponseWriter, status int, err error) {
	sharedobs.WriteJSON(w, status, map[string]string{"error": err.Error()})
}
