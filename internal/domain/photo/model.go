// internal/domain/photo/model.go

package photo

import (
	"math"
	"time"
)

// Coordinate is a WGS84 position in degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// SizeVariant describes one rendition of a photo.
type SizeVariant struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Creator identifies the user that captured a photo, when known.
type Creator struct {
	ID       string `json:"id"`
	Username string `json:"username,omitempty"`
}

// Record is a single photo as held by the worker. Two records are the same
// photo only when both ID and SourceID match; cross-source duplicates are
// left to the UI.
type Record struct {
	ID         string                 `json:"id"`
	SourceID   string                 `json:"sourceId"`
	Coordinate Coordinate             `json:"coordinate"`
	Bearing    float64                `json:"bearing"`
	Altitude   float64                `json:"altitude"`
	CapturedAt *time.Time             `json:"capturedAt,omitempty"`
	Sizes      map[string]SizeVariant `json:"sizes,omitempty"`
	Creator    *Creator               `json:"creator,omitempty"`
}

// Key uniquely identifies a record across sources.
type Key struct {
	SourceID string
	ID       string
}

// Key returns the cross-source identity of the record.
func (r Record) Key() Key {
	return Key{SourceID: r.SourceID, ID: r.ID}
}

// Bounds is a rectangular geographic viewport. When the top-left longitude
// is greater than the bottom-right longitude the rectangle wraps the
// antimeridian.
type Bounds struct {
	TopLeft     Coordinate `json:"topLeft"`
	BottomRight Coordinate `json:"bottomRight"`
}

// WrapsAntimeridian reports whether the bounds cross the 180° meridian.
func (b Bounds) WrapsAntimeridian() bool {
	return b.TopLeft.Lng > b.BottomRight.Lng
}

// Contains reports whether the coordinate lies within the bounds,
// accounting for antimeridian wraparound.
func (b Bounds) Contains(c Coordinate) bool {
	if c.Lat > b.TopLeft.Lat || c.Lat < b.BottomRight.Lat {
		return false
	}
	if b.WrapsAntimeridian() {
		return c.Lng >= b.TopLeft.Lng || c.Lng <= b.BottomRight.Lng
	}
	return c.Lng >= b.TopLeft.Lng && c.Lng <= b.BottomRight.Lng
}

// Split returns the bounds as one or two non-wrapping rectangles. Wrapping
// bounds split at the antimeridian so they can be fed to spatial indexes
// that only understand plain lat/lng boxes.
func (b Bounds) Split() []Bounds {
	if !b.WrapsAntimeridian() {
		return []Bounds{b}
	}
	return []Bounds{
		{
			TopLeft:     b.TopLeft,
			BottomRight: Coordinate{Lat: b.BottomRight.Lat, Lng: 180},
		},
		{
			TopLeft:     Coordinate{Lat: b.TopLeft.Lat, Lng: -180},
			BottomRight: b.BottomRight,
		},
	}
}

// Center returns the geometric center of the bounds. For wrapping bounds
// the longitudinal midpoint is taken across the antimeridian and normalized
// back into [-180,180].
func (b Bounds) Center() Coordinate {
	lat := (b.TopLeft.Lat + b.BottomRight.Lat) / 2

	left := b.TopLeft.Lng
	right := b.BottomRight.Lng
	if b.WrapsAntimeridian() {
		right += 360
	}
	lng := (left + right) / 2
	if lng > 180 {
		lng -= 360
	}

	return Coordinate{Lat: lat, Lng: lng}
}

// LngSpan returns the longitudinal extent of the bounds in degrees.
func (b Bounds) LngSpan() float64 {
	if b.WrapsAntimeridian() {
		return (180 - b.TopLeft.Lng) + (b.BottomRight.Lng + 180)
	}
	return b.BottomRight.Lng - b.TopLeft.Lng
}

// LatSpan returns the latitudinal extent of the bounds in degrees.
func (b Bounds) LatSpan() float64 {
	return b.TopLeft.Lat - b.BottomRight.Lat
}

// NormalizeBearing maps any compass angle into [0,360).
func NormalizeBearing(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}

// AngularDistance returns the smaller of the clockwise and counter-clockwise
// separations between two bearings. The result never exceeds 180.
func AngularDistance(a, b float64) float64 {
	d := math.Abs(NormalizeBearing(a) - NormalizeBearing(b))
	if d > 180 {
		d = 360 - d
	}
	return d
}

const earthRadiusMeters = 6371000.0

// DistanceMeters computes the great-circle distance between two coordinates
// using the haversine formula.
func DistanceMeters(a, b Coordinate) float64 {
	lat1 := a.Lat * math.Pi / 180
	lon1 := a.Lng * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	lon2 := b.Lng * math.Pi / 180

	dLat := lat2 - lat1
	dLon := lon2 - lon1

	hSin := math.Sin(dLat / 2)
	hSin *= hSin

	vSin := math.Sin(dLon / 2)
	vSin *= vSin

	h := hSin + math.Cos(lat1)*math.Cos(lat2)*vSin

	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(h))
}
