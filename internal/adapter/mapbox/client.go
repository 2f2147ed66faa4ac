package mapbox

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/couchcryptid/city-enrollment-map/internal/domain"
	"github.com/couchcryptid/city-enrollment-map/internal/observability"
)

const (
	defaultBaseURL = "https://api.mapbox.com/geocoding/v5/mapbox.places"

	// candidateLimit is how many places Mapbox returns per lookup. Several
	// Colombian municipalities share a name with neighborhoods elsewhere,
	// so the best candidate is picked locally.
	candidateLimit = 5

	// minRelevance discards fuzzy matches that would put a city in the
	// wrong place.
	minRelevance = 0.5
)

// APIError is a non-200 answer from the geocoding API.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("mapbox API error: status %d: %s", e.Status, e.Body)
}

// Client resolves city names to coordinates with the Mapbox Geocoding API.
type Client struct {
	token      string
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a Mapbox geocoding client.
func NewClient(token string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    defaultBaseURL,
		metrics:    metrics,
		logger:     logger,
	}
}

// ForwardGeocode looks up the city called name, optionally qualified by a
// region such as a country or department. A lookup with no sufficiently
// relevant place returns an empty result and no error.
func (c *Client) ForwardGeocode(ctx context.Context, name, region string) (domain.GeocodingResult, error) {
	start := time.Now()
	places, err := c.searchPlaces(ctx, cityQuery(name, region))
	c.metrics.GeocodeAPIDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.GeocodeRequests.WithLabelValues("error").Inc()
		return domain.GeocodingResult{}, err
	}

	best, ok := bestPlace(places, name)
	if !ok {
		c.metrics.GeocodeRequests.WithLabelValues("empty").Inc()
		c.logger.Debug("no relevant place for city", "city", name, "region", region, "candidates", len(places))
		return domain.GeocodingResult{}, nil
	}
	c.metrics.GeocodeRequests.WithLabelValues("success").Inc()
	return best.result(), nil
}

func cityQuery(name, region string) string {
	if region == "" {
		return name
	}
	return name + ", " + region
}

func (c *Client) searchPlaces(ctx context.Context, query string) ([]place, error) {
	endpoint := fmt.Sprintf("%s/%s.json?%s", c.baseURL, url.PathEscape(query), url.Values{
		"access_token": {c.token},
		"autocomplete": {"false"},
		"limit":        {fmt.Sprint(candidateLimit)},
		"types":        {"place"},
	}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create geocode request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocode %q: %w", query, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<10))
		return nil, &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var payload searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode geocode response: %w", err)
	}
	return payload.Features, nil
}

// bestPlace prefers a candidate whose own name equals the city name and
// otherwise takes the most relevant one. Candidates below minRelevance or
// without a center never win.
func bestPlace(places []place, city string) (place, bool) {
	var best place
	found, bestExact := false, false
	for _, p := range places {
		if p.Relevance < minRelevance || len(p.Center) != 2 {
			continue
		}
		exact := strings.EqualFold(p.Text, city)
		switch {
		case !found,
			exact && !bestExact,
			exact == bestExact && p.Relevance > best.Relevance:
			best, found, bestExact = p, true, exact
		}
	}
	return best, found
}

type searchResponse struct {
	Features []place `json:"features"`
}

type place struct {
	Center    []float64 `json:"center"` // [lon, lat]
	PlaceName string    `json:"place_name"`
	Text      string    `json:"text"`
	Relevance float64   `json:"relevance"`
}

func (p place) result() domain.GeocodingResult {
	return domain.GeocodingResult{
		Lon:              p.Center[0],
		Lat:              p.Center[1],
		FormattedAddress: p.PlaceName,
		PlaceName:        p.Text,
		Confidence:       p.Relevance,
	}
}
