// internal/service/cull/range.go

package cull

import (
	"sort"

	"github.com/koo5/hillview-sub009/internal/domain/photo"
)

// CullRange selects photos within rangeMeters of the center such that the
// selected bearings are distributed as evenly as possible around the full
// circle. Selection works over angular buckets, not nearest-N; sorting by
// bearing happens afterwards as a separate step so a later removal only
// needs a re-sort, never a re-selection.
func (c *Culler) CullRange(areaPhotos []photo.Record, center photo.Coordinate, rangeMeters float64) []photo.Record {
	max := c.cfg.MaxPhotosInRange
	if max <= 0 || rangeMeters <= 0 {
		return nil
	}

	var candidates []photo.Record
	for _, p := range areaPhotos {
		if photo.DistanceMeters(center, p.Coordinate) <= rangeMeters {
			candidates = append(candidates, p)
		}
	}

	var selected []photo.Record
	if len(candidates) <= max {
		selected = append(selected, candidates...)
	} else {
		selected = selectByAngularBuckets(candidates, center, max)
	}

	SortByBearing(selected)
	return selected
}

// selectByAngularBuckets partitions the circle into max buckets and drains
// them round-robin, taking the photo whose bearing sits closest to each
// bucket's center first. Every region of the circle gets represented before
// any bucket contributes a second photo.
func selectByAngularBuckets(candidates []photo.Record, center photo.Coordinate, max int) []photo.Record {
	bucketWidth := 360.0 / float64(max)
	buckets := make([][]photo.Record, max)

	for _, p := range candidates {
		idx := int(photo.NormalizeBearing(p.Bearing) / bucketWidth)
		if idx >= max {
			idx = max - 1
		}
		buckets[idx] = append(buckets[idx], p)
	}

	for i, bucket := range buckets {
		bucketCenter := (float64(i) + 0.5) * bucketWidth
		sort.SliceStable(bucket, func(a, b int) bool {
			da := photo.AngularDistance(bucket[a].Bearing, bucketCenter)
			db := photo.AngularDistance(bucket[b].Bearing, bucketCenter)
			if da != db {
				return da < db
			}
			la := photo.DistanceMeters(center, bucket[a].Coordinate)
			lb := photo.DistanceMeters(center, bucket[b].Coordinate)
			if la != lb {
				return la < lb
			}
			return bucket[a].ID < bucket[b].ID
		})
	}

	selected := make([]photo.Record, 0, max)
	for round := 0; len(selected) < max; round++ {
		found := false
		for _, bucket := range buckets {
			if round >= len(bucket) {
				continue
			}
			found = true
			selected = append(selected, bucket[round])
			if len(selected) == max {
				break
			}
		}
		if !found {
			break
		}
	}

	return selected
}

// SortByBearing orders photos ascending by bearing, with identity as the
// tiebreaker. It is deliberately separate from selection.
func SortByBearing(photos []photo.Record) {
	sort.SliceStable(photos, func(i, j int) bool {
		bi := photo.NormalizeBearing(photos[i].Bearing)
		bj := photo.NormalizeBearing(photos[j].Bearing)
		if bi != bj {
			return bi < bj
		}
		return photos[i].ID < photos[j].ID
	})
}
