// internal/service/source/device.go

package source

import (
	"context"
	"fmt"
	"time"

	"github.com/koo5/hillview-sub009/internal/domain/photo"
	"github.com/koo5/hillview-sub009/internal/domain/source"
)

// DeviceLoaderConfig contains configuration for the device loader.
type DeviceLoaderConfig struct {
	// PageSize is the number of records requested per index page.
	PageSize int
}

// DefaultDeviceLoaderConfig returns the default device loader configuration.
func DefaultDeviceLoaderConfig() DeviceLoaderConfig {
	return DeviceLoaderConfig{PageSize: 500}
}

// DeviceLoader loads photos from the on-device index. It pages through one
// bounded query and converts device-native records in a single pass; the
// load is terminal after the last page, with no incremental updates.
type DeviceLoader struct {
	accumulator

	src    source.Config
	cfg    DeviceLoaderConfig
	index  source.DeviceIndex
	events source.Events

	cancelled chan struct{}
}

// NewDeviceLoader creates a loader over the given device index.
func NewDeviceLoader(src source.Config, cfg DeviceLoaderConfig, index source.DeviceIndex, events source.Events) *DeviceLoader {
	l := &DeviceLoader{
		src:       src,
		cfg:       cfg,
		index:     index,
		events:    events,
		cancelled: make(chan struct{}),
	}
	l.sourceID = src.ID
	return l
}

// Cancel requests cooperative cancellation. The abort flag is observed
// between index pages.
func (l *DeviceLoader) Cancel() {
	if l.aborted.CompareAndSwap(false, true) {
		close(l.cancelled)
	}
}

// Start queries the device index for the given bounds and converts the
// results. A nil bounds queries the whole index.
func (l *DeviceLoader) Start(ctx context.Context, bounds *photo.Bounds) error {
	l.events.LoadingStatus(l.src.ID, true, 0, nil)

	err := l.load(ctx, bounds)
	l.finished.Store(true)

	if err != nil {
		if l.Aborted() || ctx.Err() != nil {
			l.events.LoadingStatus(l.src.ID, false, l.count(), nil)
			return source.ErrAborted
		}
		loadErr := &source.LoadError{SourceID: l.src.ID, Err: err}
		l.events.LoadingStatus(l.src.ID, false, l.count(), loadErr)
		return loadErr
	}

	l.events.PhotosLoaded(source.Batch{SourceID: l.src.ID, Photos: l.AllPhotos()})
	l.events.LoadingStatus(l.src.ID, false, l.count(), nil)
	return nil
}

func (l *DeviceLoader) load(ctx context.Context, bounds *photo.Bounds) error {
	rects := []photo.Bounds{{
		TopLeft:     photo.Coordinate{Lat: 90, Lng: -180},
		BottomRight: photo.Coordinate{Lat: -90, Lng: 180},
	}}
	if bounds != nil {
		// The index query contract has no antimeridian awareness, so a
		// wrapping viewport becomes two plain queries.
		rects = bounds.Split()
	}

	for _, rect := range rects {
		if err := l.loadRect(ctx, rect); err != nil {
			return err
		}
	}
	return nil
}

func (l *DeviceLoader) loadRect(ctx context.Context, rect photo.Bounds) error {
	for page := 0; ; page++ {
		select {
		case <-l.cancelled:
			return source.ErrAborted
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		result, err := l.index.Query(ctx, source.DeviceQuery{
			Page:     page,
			PageSize: l.cfg.PageSize,
			MinLat:   rect.BottomRight.Lat,
			MaxLat:   rect.TopLeft.Lat,
			MinLng:   rect.TopLeft.Lng,
			MaxLng:   rect.BottomRight.Lng,
		})
		if err != nil {
			return fmt.Errorf("device index query failed: %w", err)
		}
		if result.Error != "" {
			return fmt.Errorf("device index error: %s", result.Error)
		}

		batch := make([]photo.Record, 0, len(result.Photos))
		for _, dp := range result.Photos {
			batch = append(batch, deviceToRecord(l.src.ID, dp))
			if l.src.MaxPhotos > 0 && l.count()+len(batch) >= l.src.MaxPhotos {
				break
			}
		}
		total := l.append(batch)

		if !result.HasMore || (l.src.MaxPhotos > 0 && total >= l.src.MaxPhotos) {
			return nil
		}
	}
}

// deviceToRecord converts a device-native record into the worker's shape.
func deviceToRecord(sourceID string, dp source.DevicePhoto) photo.Record {
	rec := photo.Record{
		ID:       dp.ID,
		SourceID: sourceID,
		Coordinate: photo.Coordinate{
			Lat: dp.Latitude,
			Lng: dp.Longitude,
		},
		Sizes: map[string]photo.SizeVariant{
			"original": {
				URL:    "file://" + dp.Path,
				Width:  dp.Width,
				Height: dp.Height,
			},
		},
	}
	if dp.Bearing != nil {
		rec.Bearing = photo.NormalizeBearing(*dp.Bearing)
	}
	if dp.Altitude != nil {
		rec.Altitude = *dp.Altitude
	}
	if dp.Timestamp > 0 {
		t := time.Unix(dp.Timestamp, 0).UTC()
		rec.CapturedAt = &t
	}
	return rec
}
