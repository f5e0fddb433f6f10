package emergency

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"GuardianPath/internal/models"
	"GuardianPath/internal/providers"
	"GuardianPath/pkg/util"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	errImageAnalysis = "Failed to analyze image"
	errSafetyData    = "Failed to get safety information"

	addressUnavailable = "Address unavailable"
	maxPlaces          = 3
)

func (o *Orchestrator) analyzeImage(ctx context.Context, photo string) (*models.ImageAnalysis, error) {
	if o.deps.Vision == nil {
		return nil, fmt.Errorf("vision analyzer: %w", providers.ErrNotConfigured)
	}
	return o.deps.Vision.AnalyzeImage(ctx, photo)
}

// enrichLocation runs the three geo lookups together. The unit fails as a
// whole: the first error cancels the others and no partial data is kept.
func (o *Orchestrator) enrichLocation(ctx context.Context, loc models.Location) (*models.SafetyData, error) {
	geo := o.deps.Geo
	if geo == nil {
		return nil, fmt.Errorf("geo locator: %w", providers.ErrNotConfigured)
	}

	var (
		hospitals, police []providers.PlaceCandidate
		address           *providers.AddressCandidate
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		hospitals, err = geo.FindNearbyPlaces(gctx, loc, providers.CategoryHospital)
		return err
	})
	g.Go(func() (err error) {
		police, err = geo.FindNearbyPlaces(gctx, loc, providers.CategoryPolice)
		return err
	})
	g.Go(func() (err error) {
		address, err = geo.ReverseGeocode(gctx, loc)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	current := addressUnavailable
	if address != nil && strings.TrimSpace(address.FreeformAddress) != "" {
		current = address.FreeformAddress
	}
	return &models.SafetyData{
		CurrentAddress:       current,
		NearbyHospitals:      closestPlaces(hospitals, "Hospital"),
		NearbyPoliceStations: closestPlaces(police, "Police Station"),
	}, nil
}

// closestPlaces applies defaults, then keeps the nearest three. A missing
// distance counts as 0 so the output is always ascending.
func closestPlaces(candidates []providers.PlaceCandidate, defaultName string) []models.Place {
	places := make([]models.Place, 0, len(candidates))
	for _, c := range candidates {
		p := models.Place{Name: c.Name, Address: c.Address}
		if p.Name == "" {
			p.Name = defaultName
		}
		if p.Address == "" {
			p.Address = addressUnavailable
		}
		if c.Distance != nil {
			p.Distance = *c.Distance
		}
		places = append(places, p)
	}
	sort.SliceStable(places, func(i, j int) bool { return places[i].Distance < places[j].Distance })
	if len(places) > maxPlaces {
		places = places[:maxPlaces]
	}
	return places
}

// storePhoto keeps the decoded photo under panic/<panicId>/<uuid>.<ext>.
func (o *Orchestrator) storePhoto(ctx context.Context, panicID, photo string) (string, error) {
	data, contentType, err := util.DecodeDataURI(photo)
	if err != nil {
		return "", err
	}
	key := fmt.Sprintf("panic/%s/%s.%s", panicID, uuid.NewString(), util.ExtensionFor(contentType))
	return o.deps.Photos.SavePhoto(ctx, key, data, contentType)
}
