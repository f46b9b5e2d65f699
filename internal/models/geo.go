package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidCoordinates is returned for points outside the WGS84 range.
var ErrInvalidCoordinates = errors.New("coordinates must be [longitude, latitude] within valid ranges")

// GeoJSON represents a GeoJSON Point for MongoDB.
type GeoJSON struct {
	Type        string    `bson:"type" json:"type"`               // Should be "Point"
	Coordinates []float64 `bson:"coordinates" json:"coordinates"` // [longitude, latitude]
}

func NewPoint(lng, lat float64) GeoJSON {
	return GeoJSON{Type: "Point", Coordinates: []float64{lng, lat}}
}

// Validate checks the point shape and coordinate ranges.
func (g *GeoJSON) Validate() error {
	if g.Type != "Point" || len(g.Coordinates) != 2 {
		return ErrInvalidCoordinates
	}
	if !validLngLat(g.Coordinates[0], g.Coordinates[1]) {
		return ErrInvalidCoordinates
	}
	return nil
}

func (g *GeoJSON) Lng() float64 { return g.Coordinates[0] }
func (g *GeoJSON) Lat() float64 { return g.Coordinates[1] }

func validLngLat(lng, lat float64) bool {
	return lng >= -180 && lng <= 180 && lat >= -90 && lat <= 90
}

// Bounds is a map viewport given by its south-west and north-east corners.
type Bounds struct {
	SWLng, SWLat float64
	NELng, NELat float64
}

// ParseBounds parses "swLng,swLat,neLng,neLat".
func ParseBounds(s string) (*Bounds, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return nil, fmt.Errorf("bounds must have 4 comma-separated numbers, got %d", len(parts))
	}
	vals := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid bounds value %q: %w", p, err)
		}
		vals[i] = v
	}
	b := &Bounds{SWLng: vals[0], SWLat: vals[1], NELng: vals[2], NELat: vals[3]}
	if !validLngLat(b.SWLng, b.SWLat) || !validLngLat(b.NELng, b.NELat) {
		return nil, ErrInvalidCoordinates
	}
	if b.SWLat >= b.NELat || b.SWLng >= b.NELng {
		return nil, fmt.Errorf("bounds south-west corner must be below and left of north-east corner")
	}
	return b, nil
}

// Ring returns the closed polygon ring for a $geoWithin $geometry query.
func (b *Bounds) Ring() [][][]float64 {
	return [][][]float64{{
		{b.SWLng, b.SWLat},
		{b.NELng, b.SWLat},
		{b.NELng, b.NELat},
		{b.SWLng, b.NELat},
		{b.SWLng, b.SWLat},
	}}
}

// ParsePoint parses "lng,lat".
func ParsePoint(s string) (*GeoJSON, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return nil, fmt.Errorf("point must be \"lng,lat\"")
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid longitude: %w", err)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid latitude: %w", err)
	}
	p := NewPoint(lng, lat)
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}
