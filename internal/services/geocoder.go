package services

import (
	"context"
	"fmt"
	"strings"

	"googlemaps.github.io/maps"

	"greendrake/realty/internal/models"
)

// IGeocoder resolves a postal address to a GeoJSON point.
type IGeocoder interface {
	Geocode(ctx context.Context, address string) (*models.GeoJSON, error)
}

type googleGeocoder struct {
	client *maps.Client
}

// NewGoogleGeocoder returns nil, nil when apiKey is empty so callers can treat geocoding as disabled.
func NewGoogleGeocoder(apiKey string) (IGeocoder, error) {
	if apiKey == "" {
		return nil, nil
	}
	c, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Google Maps client: %w", err)
	}
	return &googleGeocoder{client: c}, nil
}

func (g *googleGeocoder) Geocode(ctx context.Context, address string) (*models.GeoJSON, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, fmt.Errorf("%w: address is required for geocoding", ErrInvalidInput)
	}
	res, err := g.client.Geocode(ctx, &maps.GeocodingRequest{Address: address})
	if err != nil {
		return nil, fmt.Errorf("geocoding %q failed: %w", address, err)
	}
	if len(res) == 0 {
		return nil, fmt.Errorf("%w: address %q could not be located", ErrInvalidInput, address)
	}
	loc := res[0].Geometry.Location
	pt := models.NewPoint(loc.Lng, loc.Lat)
	if err := pt.Validate(); err != nil {
		return nil, err
	}
	return &pt, nil
}

// geocodeQuery joins the address parts the way a mail label would read.
func geocodeQuery(d *models.PropertyDetails) string {
	parts := make([]string, 0, 4)
	for _, p := range []string{d.Address, d.City, d.State, d.ZipCode} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}
