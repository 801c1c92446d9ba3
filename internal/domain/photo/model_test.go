// internal/domain/photo/model_test.go

package photo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeBearing(t *testing.T) {
	assert.Equal(t, 0.0, NormalizeBearing(0))
	assert.Equal(t, 0.0, NormalizeBearing(360))
	assert.Equal(t, 90.0, NormalizeBearing(450))
	assert.Equal(t, 350.0, NormalizeBearing(-10))
	assert.Equal(t, 180.0, NormalizeBearing(-180))
	assert.Equal(t, 359.5, NormalizeBearing(719.5))
}

func TestAngularDistance(t *testing.T) {
	assert.Equal(t, 0.0, AngularDistance(90, 90))
	assert.Equal(t, 20.0, AngularDistance(350, 10))
	assert.Equal(t, 20.0, AngularDistance(10, 350))
	assert.Equal(t, 180.0, AngularDistance(0, 180))
	assert.Equal(t, 90.0, AngularDistance(45, 315))
}

func TestBoundsContains(t *testing.T) {
	b := Bounds{
		TopLeft:     Coordinate{Lat: 50, Lng: 14},
		BottomRight: Coordinate{Lat: 49, Lng: 15},
	}

	assert.True(t, b.Contains(Coordinate{Lat: 49.5, Lng: 14.5}))
	assert.True(t, b.Contains(Coordinate{Lat: 50, Lng: 14}))
	assert.True(t, b.Contains(Coordinate{Lat: 49, Lng: 15}))
	assert.False(t, b.Contains(Coordinate{Lat: 50.1, Lng: 14.5}))
	assert.False(t, b.Contains(Coordinate{Lat: 49.5, Lng: 15.1}))
	assert.False(t, b.Contains(Coordinate{Lat: 49.5, Lng: 13.9}))
}

func TestBoundsContainsWrapping(t *testing.T) {
	b := Bounds{
		TopLeft:     Coordinate{Lat: 10, Lng: 170},
		BottomRight: Coordinate{Lat: -10, Lng: -170},
	}

	assert.True(t, b.WrapsAntimeridian())
	assert.True(t, b.Contains(Coordinate{Lat: 0, Lng: 175}))
	assert.True(t, b.Contains(Coordinate{Lat: 0, Lng: -175}))
	assert.True(t, b.Contains(Coordinate{Lat: 0, Lng: 180}))
	assert.False(t, b.Contains(Coordinate{Lat: 0, Lng: 0}))
	assert.False(t, b.Contains(Coordinate{Lat: 0, Lng: 160}))
	assert.False(t, b.Contains(Coordinate{Lat: 0, Lng: -160}))
}

func TestBoundsSplit(t *testing.T) {
	plain := Bounds{
		TopLeft:     Coordinate{Lat: 50, Lng: 14},
		BottomRight: Coordinate{Lat: 49, Lng: 15},
	}
	assert.Equal(t, []Bounds{plain}, plain.Split())

	wrapping := Bounds{
		TopLeft:     Coordinate{Lat: 10, Lng: 170},
		BottomRight: Coordinate{Lat: -10, Lng: -170},
	}
	parts := wrapping.Split()
	assert.Len(t, parts, 2)
	assert.False(t, parts[0].WrapsAntimeridian())
	assert.False(t, parts[1].WrapsAntimeridian())
	assert.Equal(t, 170.0, parts[0].TopLeft.Lng)
	assert.Equal(t, 180.0, parts[0].BottomRight.Lng)
	assert.Equal(t, -180.0, parts[1].TopLeft.Lng)
	assert.Equal(t, -170.0, parts[1].BottomRight.Lng)
}

func TestBoundsCenter(t *testing.T) {
	plain := Bounds{
		TopLeft:     Coordinate{Lat: 50, Lng: 14},
		BottomRight: Coordinate{Lat: 48, Lng: 16},
	}
	c := plain.Center()
	assert.InDelta(t, 49.0, c.Lat, 1e-9)
	assert.InDelta(t, 15.0, c.Lng, 1e-9)

	wrapping := Bounds{
		TopLeft:     Coordinate{Lat: 10, Lng: 170},
		BottomRight: Coordinate{Lat: -10, Lng: -170},
	}
	c = wrapping.Center()
	assert.InDelta(t, 0.0, c.Lat, 1e-9)
	assert.InDelta(t, 180.0, c.Lng, 1e-9)
	assert.True(t, wrapping.Contains(c))
}

func TestBoundsSpans(t *testing.T) {
	wrapping := Bounds{
		TopLeft:     Coordinate{Lat: 10, Lng: 170},
		BottomRight: Coordinate{Lat: -10, Lng: -170},
	}
	assert.InDelta(t, 20.0, wrapping.LngSpan(), 1e-9)
	assert.InDelta(t, 20.0, wrapping.LatSpan(), 1e-9)
}

func TestDistanceMeters(t *testing.T) {
	a := Coordinate{Lat: 50.0, Lng: 14.0}
	assert.Equal(t, 0.0, DistanceMeters(a, a))

	// One degree of latitude is roughly 111 km.
	b := Coordinate{Lat: 51.0, Lng: 14.0}
	assert.InDelta(t, 111195, DistanceMeters(a, b), 200)

	// Symmetry.
	assert.Equal(t, DistanceMeters(a, b), DistanceMeters(b, a))
}
