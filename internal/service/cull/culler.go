// internal/service/cull/culler.go

// Package cull reduces the merged photo set into the two bounded,
// UI-consumable sets: photos visible in the viewport and photos navigable
// in a 360° range around its center.
package cull

import (
	"sort"
	"sync"

	"github.com/dhconnelly/rtreego"

	"github.com/koo5/hillview-sub009/internal/domain/photo"
)

const (
	gridDimensions  = 2
	gridMinChildren = 4
	gridMaxChildren = 16
)

// Config contains configuration for the culler.
type Config struct {
	// GridSize is N for the N×N viewport partition.
	GridSize int

	// MaxPhotosInArea caps the stage-1 output.
	MaxPhotosInArea int

	// MaxPhotosInRange caps the stage-2 output.
	MaxPhotosInRange int
}

// DefaultConfig returns the default culler configuration.
func DefaultConfig() Config {
	return Config{
		GridSize:         8,
		MaxPhotosInArea:  700,
		MaxPhotosInRange: 40,
	}
}

// Result holds both culled sets. PhotosInRange is always a subset of
// PhotosInArea.
type Result struct {
	PhotosInArea  []photo.Record
	PhotosInRange []photo.Record
}

// gridCell is one cell of the viewport partition, indexed in the R-tree.
// Coordinates live in an unwrapped longitude space so antimeridian-wrapping
// bounds stay a single plain rectangle.
type gridCell struct {
	row, col int
	rect     *rtreego.Rect
}

func (c *gridCell) Bounds() *rtreego.Rect {
	return c.rect
}

// Culler reduces merged photos through grid culling and angular range
// culling. The grid index depends only on the bounds, so it is cached and
// rebuilt only when the bounds' update id advances; incremental combines
// under the same viewport reuse it.
type Culler struct {
	cfg Config

	mu          sync.Mutex
	gridTree    *rtreego.Rtree
	gridBounds  photo.Bounds
	gridBuiltID uint64
	gridValid   bool
}

// New creates a culler.
func New(cfg Config) *Culler {
	if cfg.GridSize <= 0 {
		cfg.GridSize = DefaultConfig().GridSize
	}
	return &Culler{cfg: cfg}
}

// Cull runs both reduction stages over the merged per-source photo map.
// Priorities maps source id to its culling priority (higher wins inside an
// overfull grid cell). UpdateID is the bounds' update id; the grid index is
// rebuilt only when it advances.
func (c *Culler) Cull(
	photosBySource map[string][]photo.Record,
	priorities map[string]int,
	bounds photo.Bounds,
	updateID uint64,
	rangeMeters float64,
) Result {
	inArea := c.CullArea(photosBySource, priorities, bounds, updateID)
	inRange := c.CullRange(inArea, bounds.Center(), rangeMeters)
	return Result{PhotosInArea: inArea, PhotosInRange: inRange}
}

// CullArea partitions the bounds into a fixed N×N grid and selects photos
// per cell up to the cell's share of MaxPhotosInArea, preferring
// higher-priority sources when a cell overflows. Coverage spreads across
// the viewport instead of clumping where one source is dense.
func (c *Culler) CullArea(
	photosBySource map[string][]photo.Record,
	priorities map[string]int,
	bounds photo.Bounds,
	updateID uint64,
) []photo.Record {
	c.mu.Lock()
	c.ensureGrid(bounds, updateID)
	tree := c.gridTree
	c.mu.Unlock()

	n := c.cfg.GridSize
	cells := make([][]photo.Record, n*n)

	// Deterministic source order keeps repeated passes identical.
	sourceIDs := make([]string, 0, len(photosBySource))
	for id := range photosBySource {
		sourceIDs = append(sourceIDs, id)
	}
	sort.Strings(sourceIDs)

	for _, sourceID := range sourceIDs {
		for _, p := range photosBySource[sourceID] {
			if !bounds.Contains(p.Coordinate) {
				continue
			}
			cell := c.lookupCell(tree, bounds, p.Coordinate)
			if cell < 0 {
				continue
			}
			cells[cell] = append(cells[cell], p)
		}
	}

	share := cellShare(c.cfg.MaxPhotosInArea, n*n)

	var selected []photo.Record
	for _, cellPhotos := range cells {
		if len(selected) >= c.cfg.MaxPhotosInArea {
			break
		}
		if len(cellPhotos) == 0 {
			continue
		}

		// Higher-priority sources first; ties broken stably by identity.
		sort.SliceStable(cellPhotos, func(i, j int) bool {
			pi := priorities[cellPhotos[i].SourceID]
			pj := priorities[cellPhotos[j].SourceID]
			if pi != pj {
				return pi > pj
			}
			if cellPhotos[i].SourceID != cellPhotos[j].SourceID {
				return cellPhotos[i].SourceID < cellPhotos[j].SourceID
			}
			return cellPhotos[i].ID < cellPhotos[j].ID
		})

		take := share
		if take > len(cellPhotos) {
			take = len(cellPhotos)
		}
		if remaining := c.cfg.MaxPhotosInArea - len(selected); take > remaining {
			take = remaining
		}
		selected = append(selected, cellPhotos[:take]...)
	}

	return selected
}

// cellShare is each cell's slice of the global cap. There is no top-up
// pass: a cell never holds more than its share, which is what keeps
// coverage uniform.
func cellShare(limit, cells int) int {
	share := limit / cells
	if limit%cells != 0 {
		share++
	}
	if share < 1 {
		share = 1
	}
	return share
}

// ensureGrid rebuilds the cached cell index when the bounds' update id
// advances. Callers hold c.mu.
func (c *Culler) ensureGrid(bounds photo.Bounds, updateID uint64) {
	if c.gridValid && updateID == c.gridBuiltID {
		return
	}

	n := c.cfg.GridSize
	tree := rtreego.NewTree(gridDimensions, gridMinChildren, gridMaxChildren)

	latSpan := bounds.LatSpan()
	lngSpan := bounds.LngSpan()
	cellLat := latSpan / float64(n)
	cellLng := lngSpan / float64(n)

	for row := 0; row < n; row++ {
		for col := 0; col < n; col++ {
			lat := bounds.BottomRight.Lat + float64(row)*cellLat
			lng := bounds.TopLeft.Lng + float64(col)*cellLng
			rect, err := rtreego.NewRect(rtreego.Point{lat, lng}, []float64{cellLat, cellLng})
			if err != nil {
				continue
			}
			tree.Insert(&gridCell{row: row, col: col, rect: rect})
		}
	}

	c.gridTree = tree
	c.gridBounds = bounds
	c.gridBuiltID = updateID
	c.gridValid = true
}

// lookupCell finds the grid cell index for a coordinate, or -1 when the
// point falls outside every cell.
func (c *Culler) lookupCell(tree *rtreego.Rtree, bounds photo.Bounds, coord photo.Coordinate) int {
	lng := coord.Lng
	if bounds.WrapsAntimeridian() && lng < bounds.TopLeft.Lng {
		lng += 360
	}

	point := rtreego.Point{coord.Lat, lng}
	rect, err := rtreego.NewRect(point, []float64{1e-9, 1e-9})
	if err != nil {
		return -1
	}

	hits := tree.SearchIntersect(rect)
	if len(hits) == 0 {
		return -1
	}

	// Boundary points can intersect two cells; take the lowest index so
	// repeated passes stay identical.
	best := -1
	for _, hit := range hits {
		cell, ok := hit.(*gridCell)
		if !ok {
			continue
		}
		idx := cell.row*c.cfg.GridSize + cell.col
		if best < 0 || idx < best {
			best = idx
		}
	}
	return best
}
