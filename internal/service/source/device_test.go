// internal/service/source/device_test.go

package source

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koo5/hillview-sub009/internal/domain/photo"
	"github.com/koo5/hillview-sub009/internal/domain/source"
)

// fakeIndex serves canned pages and records every query.
type fakeIndex struct {
	mu      sync.Mutex
	queries []source.DeviceQuery
	serve   func(q source.DeviceQuery) (*source.DevicePage, error)
}

func (f *fakeIndex) Query(ctx context.Context, q source.DeviceQuery) (*source.DevicePage, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	f.mu.Unlock()
	return f.serve(q)
}

func (f *fakeIndex) queryCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queries)
}

func devicePhoto(id string, lat, lng float64) source.DevicePhoto {
	return source.DevicePhoto{
		ID:        id,
		Filename:  id + ".jpg",
		Path:      "/photos/" + id + ".jpg",
		Latitude:  lat,
		Longitude: lng,
		Width:     4000,
		Height:    3000,
	}
}

func deviceSource() source.Config {
	return source.Config{ID: "device", Kind: source.KindLocalDevice, Enabled: true}
}

func TestDeviceLoaderPagination(t *testing.T) {
	// 3 photos per page, 7 total.
	all := make([]source.DevicePhoto, 7)
	for i := range all {
		all[i] = devicePhoto(fmt.Sprintf("p%d", i), 49.5, 14.5)
	}
	index := &fakeIndex{serve: func(q source.DeviceQuery) (*source.DevicePage, error) {
		start := q.Page * q.PageSize
		end := start + q.PageSize
		if end > len(all) {
			end = len(all)
		}
		return &source.DevicePage{
			Photos:     all[start:end],
			TotalCount: len(all),
			HasMore:    end < len(all),
		}, nil
	}}

	events := &eventRecorder{}
	l := NewDeviceLoader(deviceSource(), DeviceLoaderConfig{PageSize: 3}, index, events)

	bounds := photo.Bounds{
		TopLeft:     photo.Coordinate{Lat: 50, Lng: 14},
		BottomRight: photo.Coordinate{Lat: 49, Lng: 15},
	}
	require.NoError(t, l.Start(context.Background(), &bounds))

	assert.Len(t, l.AllPhotos(), 7)
	assert.Equal(t, 3, index.queryCount())
	assert.True(t, l.Finished())

	// The device loader delivers one terminal batch.
	require.Equal(t, 1, events.batchCount())
	assert.Len(t, events.allBatches()[0].Photos, 7)
}

func TestDeviceLoaderMaxPhotos(t *testing.T) {
	index := &fakeIndex{serve: func(q source.DeviceQuery) (*source.DevicePage, error) {
		photos := make([]source.DevicePhoto, q.PageSize)
		for i := range photos {
			photos[i] = devicePhoto(fmt.Sprintf("p%d-%d", q.Page, i), 49.5, 14.5)
		}
		return &source.DevicePage{Photos: photos, TotalCount: 100000, HasMore: true}, nil
	}}

	src := deviceSource()
	src.MaxPhotos = 10
	l := NewDeviceLoader(src, DeviceLoaderConfig{PageSize: 4}, index, &eventRecorder{})

	require.NoError(t, l.Start(context.Background(), nil))
	assert.Equal(t, 10, len(l.AllPhotos()))
}

func TestDeviceLoaderRecordConversion(t *testing.T) {
	bearing := 450.0 // normalizes to 90
	altitude := 320.5
	dp := devicePhoto("p1", 49.5, 14.5)
	dp.Bearing = &bearing
	dp.Altitude = &altitude
	dp.Timestamp = 1700000000

	index := &fakeIndex{serve: func(q source.DeviceQuery) (*source.DevicePage, error) {
		if q.Page > 0 {
			return &source.DevicePage{}, nil
		}
		return &source.DevicePage{Photos: []source.DevicePhoto{dp}, TotalCount: 1}, nil
	}}

	l := NewDeviceLoader(deviceSource(), DefaultDeviceLoaderConfig(), index, &eventRecorder{})
	require.NoError(t, l.Start(context.Background(), nil))

	photos := l.AllPhotos()
	require.Len(t, photos, 1)
	p := photos[0]
	assert.Equal(t, "p1", p.ID)
	assert.Equal(t, "device", p.SourceID)
	assert.Equal(t, 90.0, p.Bearing)
	assert.Equal(t, 320.5, p.Altitude)
	assert.Equal(t, "file:///photos/p1.jpg", p.Sizes["original"].URL)
	assert.Equal(t, 4000, p.Sizes["original"].Width)
	require.NotNil(t, p.CapturedAt)
	assert.Equal(t, int64(1700000000), p.CapturedAt.Unix())
}

func TestDeviceLoaderWrappingBoundsSplitsQuery(t *testing.T) {
	index := &fakeIndex{serve: func(q source.DeviceQuery) (*source.DevicePage, error) {
		return &source.DevicePage{}, nil
	}}

	l := NewDeviceLoader(deviceSource(), DefaultDeviceLoaderConfig(), index, &eventRecorder{})

	wrapping := photo.Bounds{
		TopLeft:     photo.Coordinate{Lat: 10, Lng: 170},
		BottomRight: photo.Coordinate{Lat: -10, Lng: -170},
	}
	require.NoError(t, l.Start(context.Background(), &wrapping))

	require.Equal(t, 2, index.queryCount())
	first, second := index.queries[0], index.queries[1]
	assert.Equal(t, 170.0, first.MinLng)
	assert.Equal(t, 180.0, first.MaxLng)
	assert.Equal(t, -180.0, second.MinLng)
	assert.Equal(t, -170.0, second.MaxLng)
}

func TestDeviceLoaderCancel(t *testing.T) {
	index := &fakeIndex{}
	l := NewDeviceLoader(deviceSource(), DefaultDeviceLoaderConfig(), index, &eventRecorder{})

	// Cancel between pages; the next page check observes it.
	index.serve = func(q source.DeviceQuery) (*source.DevicePage, error) {
		l.Cancel()
		return &source.DevicePage{
			Photos:  []source.DevicePhoto{devicePhoto("p", 49.5, 14.5)},
			HasMore: true,
		}, nil
	}

	err := l.Start(context.Background(), nil)
	assert.ErrorIs(t, err, source.ErrAborted)
	assert.True(t, l.Aborted())
}

func TestDeviceLoaderIndexError(t *testing.T) {
	index := &fakeIndex{serve: func(q source.DeviceQuery) (*source.DevicePage, error) {
		return nil, errors.New("index unavailable")
	}}

	events := &eventRecorder{}
	l := NewDeviceLoader(deviceSource(), DefaultDeviceLoaderConfig(), index, events)

	err := l.Start(context.Background(), nil)
	require.Error(t, err)

	var loadErr *source.LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, "device", loadErr.SourceID)

	last, ok := events.lastStatus()
	require.True(t, ok)
	assert.False(t, last.loading)
	assert.Error(t, last.err)
}
