// internal/service/cull/culler_test.go

package cull

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koo5/hillview-sub009/internal/domain/photo"
)

var cullBounds = photo.Bounds{
	TopLeft:     photo.Coordinate{Lat: 50, Lng: 14},
	BottomRight: photo.Coordinate{Lat: 49, Lng: 15},
}

// gridOfPhotos spreads count photos evenly over the bounds.
func gridOfPhotos(sourceID string, count int) []photo.Record {
	photos := make([]photo.Record, 0, count)
	side := 1
	for side*side < count {
		side++
	}
	latStep := cullBounds.LatSpan() / float64(side+1)
	lngStep := cullBounds.LngSpan() / float64(side+1)
	for i := 0; len(photos) < count; i++ {
		row := i / side
		col := i % side
		photos = append(photos, photo.Record{
			ID:       fmt.Sprintf("%s-%d", sourceID, i),
			SourceID: sourceID,
			Coordinate: photo.Coordinate{
				Lat: cullBounds.BottomRight.Lat + float64(row+1)*latStep,
				Lng: cullBounds.TopLeft.Lng + float64(col+1)*lngStep,
			},
		})
	}
	return photos
}

func TestCullAreaUnderCapKeepsEverything(t *testing.T) {
	c := New(Config{GridSize: 8, MaxPhotosInArea: 700, MaxPhotosInRange: 40})

	photos := gridOfPhotos("a", 50)
	out := c.CullArea(map[string][]photo.Record{"a": photos}, nil, cullBounds, 1)
	assert.Len(t, out, 50)
}

func TestCullAreaCapAndSpread(t *testing.T) {
	cfg := Config{GridSize: 8, MaxPhotosInArea: 700, MaxPhotosInRange: 40}
	c := New(cfg)

	photos := gridOfPhotos("a", 1000)
	out := c.CullArea(map[string][]photo.Record{"a": photos}, nil, cullBounds, 1)

	assert.LessOrEqual(t, len(out), cfg.MaxPhotosInArea)
	assert.Greater(t, len(out), 0)

	// No cell contributes more than its share, so selection cannot clump.
	share := cellShare(cfg.MaxPhotosInArea, cfg.GridSize*cfg.GridSize)
	assert.Equal(t, 11, share)

	cellLat := cullBounds.LatSpan() / float64(cfg.GridSize)
	cellLng := cullBounds.LngSpan() / float64(cfg.GridSize)
	perCell := make(map[int]int)
	for _, p := range out {
		row := int((p.Coordinate.Lat - cullBounds.BottomRight.Lat) / cellLat)
		col := int((p.Coordinate.Lng - cullBounds.TopLeft.Lng) / cellLng)
		perCell[row*cfg.GridSize+col]++
	}
	for cell, count := range perCell {
		assert.LessOrEqual(t, count, share, "cell %d exceeded its share", cell)
	}
}

func TestCullAreaDropsPhotosOutsideBounds(t *testing.T) {
	c := New(DefaultConfig())

	photos := []photo.Record{
		{ID: "in", SourceID: "a", Coordinate: photo.Coordinate{Lat: 49.5, Lng: 14.5}},
		{ID: "north", SourceID: "a", Coordinate: photo.Coordinate{Lat: 51, Lng: 14.5}},
		{ID: "west", SourceID: "a", Coordinate: photo.Coordinate{Lat: 49.5, Lng: 13}},
	}
	out := c.CullArea(map[string][]photo.Record{"a": photos}, nil, cullBounds, 1)

	require.Len(t, out, 1)
	assert.Equal(t, "in", out[0].ID)
}

func TestCullAreaPrefersHigherPrioritySource(t *testing.T) {
	// One-cell grid with a cap of 1 forces a choice inside the cell.
	c := New(Config{GridSize: 1, MaxPhotosInArea: 1, MaxPhotosInRange: 40})

	coord := photo.Coordinate{Lat: 49.5, Lng: 14.5}
	photos := map[string][]photo.Record{
		"remote": {{ID: "r1", SourceID: "remote", Coordinate: coord}},
		"device": {{ID: "d1", SourceID: "device", Coordinate: coord}},
	}
	priorities := map[string]int{"device": 3, "remote": 2}

	out := c.CullArea(photos, priorities, cullBounds, 1)
	require.Len(t, out, 1)
	assert.Equal(t, "d1", out[0].ID)
}

func TestCullAreaDeterministic(t *testing.T) {
	c := New(Config{GridSize: 4, MaxPhotosInArea: 20, MaxPhotosInRange: 40})

	photos := map[string][]photo.Record{
		"a": gridOfPhotos("a", 60),
		"b": gridOfPhotos("b", 60),
	}
	priorities := map[string]int{"a": 1, "b": 1}

	first := c.CullArea(photos, priorities, cullBounds, 1)
	second := c.CullArea(photos, priorities, cullBounds, 1)
	assert.Equal(t, first, second)
}

func TestCullAreaAntimeridian(t *testing.T) {
	wrapping := photo.Bounds{
		TopLeft:     photo.Coordinate{Lat: 10, Lng: 170},
		BottomRight: photo.Coordinate{Lat: -10, Lng: -170},
	}
	c := New(Config{GridSize: 4, MaxPhotosInArea: 100, MaxPhotosInRange: 40})

	photos := []photo.Record{
		{ID: "east", SourceID: "a", Coordinate: photo.Coordinate{Lat: 0, Lng: 175}},
		{ID: "west", SourceID: "a", Coordinate: photo.Coordinate{Lat: 0, Lng: -175}},
		{ID: "outside", SourceID: "a", Coordinate: photo.Coordinate{Lat: 0, Lng: 0}},
	}
	out := c.CullArea(map[string][]photo.Record{"a": photos}, nil, wrapping, 1)

	ids := make([]string, 0, len(out))
	for _, p := range out {
		ids = append(ids, p.ID)
	}
	assert.ElementsMatch(t, []string{"east", "west"}, ids)
}

func TestGridReusedUntilUpdateIDAdvances(t *testing.T) {
	c := New(Config{GridSize: 4, MaxPhotosInArea: 100, MaxPhotosInRange: 40})

	photos := map[string][]photo.Record{"a": gridOfPhotos("a", 10)}
	c.CullArea(photos, nil, cullBounds, 1)
	tree1 := c.gridTree

	// Same update id: the cached index survives incremental combines.
	c.CullArea(photos, nil, cullBounds, 1)
	assert.Same(t, tree1, c.gridTree)

	// Advancing the id rebuilds.
	c.CullArea(photos, nil, cullBounds, 2)
	assert.NotSame(t, tree1, c.gridTree)
}

func TestCullRangeSubsetOfArea(t *testing.T) {
	c := New(Config{GridSize: 8, MaxPhotosInArea: 700, MaxPhotosInRange: 5})

	photos := map[string][]photo.Record{"a": gridOfPhotos("a", 200)}
	result := c.Cull(photos, nil, cullBounds, 1, 50000)

	inArea := make(map[photo.Key]bool, len(result.PhotosInArea))
	for _, p := range result.PhotosInArea {
		inArea[p.Key()] = true
	}
	for _, p := range result.PhotosInRange {
		assert.True(t, inArea[p.Key()], "range photo %s must also be in area", p.ID)
	}
	assert.LessOrEqual(t, len(result.PhotosInRange), 5)
}
