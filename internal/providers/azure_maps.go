package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"GuardianPath/internal/models"
)

const azureMapsName = "azure-maps"

type AzureMaps struct {
	Key      string
	Endpoint string
	Radius   int
	Timeout  time.Duration

	client *http.Client
}

func NewAzureMaps(key, endpoint string, radius int, timeout time.Duration) *AzureMaps {
	if endpoint == "" {
		endpoint = "https://atlas.microsoft.com"
	}
	if radius <= 0 {
		radius = 5000
	}
	return &AzureMaps{
		Key:      key,
		Endpoint: strings.TrimRight(endpoint, "/"),
		Radius:   radius,
		Timeout:  timeout,
		client:   &http.Client{},
	}
}

type nearbyResponse struct {
	Results []struct {
		Poi *struct {
			Name string `json:"name"`
		} `json:"poi"`
		Dist    *float64 `json:"dist"`
		Address *struct {
			FreeformAddress string `json:"freeformAddress"`
		} `json:"address"`
	} `json:"results"`
}

type reverseResponse struct {
	Addresses []struct {
		Address struct {
			FreeformAddress string `json:"freeformAddress"`
		} `json:"address"`
	} `json:"addresses"`
}

func (a *AzureMaps) FindNearbyPlaces(ctx context.Context, loc models.Location, category string) ([]PlaceCandidate, error) {
	const op = "nearby search"
	if a.Key == "" {
		return nil, notConfigured(azureMapsName, op)
	}
	q := a.query()
	q.Set("lat", formatCoord(loc.Lat))
	q.Set("lon", formatCoord(loc.Lng))
	q.Set("categorySet", category)
	q.Set("radius", strconv.Itoa(a.Radius))

	var body nearbyResponse
	if err := a.get(ctx, op, "/search/nearby/json", q, &body); err != nil {
		return nil, err
	}

	places := make([]PlaceCandidate, 0, len(body.Results))
	for _, r := range body.Results {
		var p PlaceCandidate
		if r.Poi != nil {
			p.Name = r.Poi.Name
		}
		if r.Address != nil {
			p.Address = r.Address.FreeformAddress
		}
		p.Distance = r.Dist
		places = append(places, p)
	}
	return places, nil
}

func (a *AzureMaps) ReverseGeocode(ctx context.Context, loc models.Location) (*AddressCandidate, error) {
	const op = "reverse geocode"
	if a.Key == "" {
		return nil, notConfigured(azureMapsName, op)
	}
	q := a.query()
	q.Set("query", formatCoord(loc.Lat)+","+formatCoord(loc.Lng))

	var body reverseResponse
	if err := a.get(ctx, op, "/search/address/reverse/json", q, &body); err != nil {
		return nil, err
	}
	if len(body.Addresses) == 0 {
		return nil, nil
	}
	return &AddressCandidate{FreeformAddress: body.Addresses[0].Address.FreeformAddress}, nil
}

func (a *AzureMaps) query() url.Values {
	q := url.Values{}
	q.Set("api-version", "1.0")
	q.Set("subscription-key", a.Key)
	return q
}

func (a *AzureMaps) get(ctx context.Context, op, path string, q url.Values, out any) error {
	if a.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.Timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.Endpoint+path+"?"+q.Encode(), nil)
	if err != nil {
		return &ProviderError{Provider: azureMapsName, Op: op, Err: err}
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return &ProviderError{Provider: azureMapsName, Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &ProviderError{Provider: azureMapsName, Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("%s", http.StatusText(resp.StatusCode))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &ProviderError{Provider: azureMapsName, Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
