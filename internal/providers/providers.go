package providers

import (
	"context"
	"errors"
	"fmt"

	"GuardianPath/internal/models"
)

// Azure Maps POI category codes.
const (
	CategoryHospital = "7321"
	CategoryPolice   = "7322"
)

var ErrNotConfigured = errors.New("provider credentials not configured")

// ProviderError is returned for transport failures and non-2xx responses.
type ProviderError struct {
	Provider   string
	Op         string
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: status %d: %v", e.Provider, e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// PlaceCandidate is a raw nearby-search hit. Any field may be missing.
type PlaceCandidate struct {
	Name     string
	Address  string
	Distance *float64
}

type AddressCandidate struct {
	FreeformAddress string
}

type VisionAnalyzer interface {
	AnalyzeImage(ctx context.Context, photoDataURI string) (*models.ImageAnalysis, error)
}

type GeoLocator interface {
	FindNearbyPlaces(ctx context.Context, loc models.Location, category string) ([]PlaceCandidate, error)
	// ReverseGeocode returns nil, nil when the service knows no address.
	ReverseGeocode(ctx context.Context, loc models.Location) (*AddressCandidate, error)
}

func notConfigured(provider, op string) error {
	return &ProviderError{Provider: provider, Op: op, Err: ErrNotConfigured}
}
