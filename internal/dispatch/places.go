package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/failsafe-go/failsafe-go"

	"github.com/mattw23n/emergency-dispatch-app/pkg/clients"
	"github.com/mattw23n/emergency-dispatch-app/pkg/events"
)

// PlacesClient queries an external places API for nearby hospitals when
// the local table is empty.
type PlacesClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	executor   failsafe.Executor[*http.Response]
}

type placeResult struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
}

type placesResponse struct {
	Results []placeResult `json:"results"`
}

func NewPlacesClient(baseURL, apiKey string) *PlacesClient {
	return &PlacesClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		executor:   clients.NewHTTPExecutor(clients.DefaultHTTPExecutorConfig()),
	}
}

// NearestHospital returns the closest hospital to loc by haversine
// distance, or false when the API returns no results.
func (c *PlacesClient) NearestHospital(ctx context.Context, loc events.Location) (Hospital, bool, error) {
	if c.baseURL == "" {
		return Hospital{}, false, nil
	}

	q := url.Values{}
	q.Set("type", "hospital")
	q.Set("lat", strconv.FormatFloat(loc.Lat, 'f', -1, 64))
	q.Set("lng", strconv.FormatFloat(loc.Lng, 'f', -1, 64))
	if c.apiKey != "" {
		q.Set("key", c.apiKey)
	}

	resp, err := clients.ExecuteHTTP(ctx, c.executor, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/nearby?"+q.Encode(), nil)
		if err != nil {
			return nil, err
		}
		return c.httpClient.Do(req)
	})
	if err != nil {
		return Hospital{}, false, fmt.Errorf("places lookup failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Hospital{}, false, fmt.Errorf("places lookup returned status %d", resp.StatusCode)
	}

	var parsed placesResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Hospital{}, false, fmt.Errorf("failed to decode places response: %w", err)
	}
	if len(parsed.Results) == 0 {
		return Hospital{}, false, nil
	}

	nearest := parsed.Results[0]
	nearestDist := Haversine(loc, events.Location{Lat: nearest.Lat, Lng: nearest.Lng})
	for _, r := range parsed.Results[1:] {
		if d := Haversine(loc, events.Location{Lat: r.Lat, Lng: r.Lng}); d < nearestDist {
			nearest = r
			nearestDist = d
		}
	}

	return Hospital{
		ID:   "ext-" + slugify(nearest.Name),
		Name: nearest.Name,
		Lat:  nearest.Lat,
		Lng:  nearest.Lng,
	}, true, nil
}

func slugify(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			out = append(out, r)
		case r >= 'A' && r <= 'Z':
			out = append(out, r+('a'-'A'))
		case r == ' ' || r == '-' || r == '_':
			out = append(out, '-')
		}
	}
	return string(out)
}
