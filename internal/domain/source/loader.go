// internal/domain/source/loader.go

package source

import (
	"context"

	"github.com/koo5/hillview-sub009/internal/domain/photo"
)

// Loader fetches or streams photo records for one named source.
// Implementations exist for stream feeds, the on-device index and static
// documents. Start blocks until the load completes, fails or is cancelled;
// cancellation is cooperative and must propagate into any open connection.
type Loader interface {
	// Start performs the load, honoring the supplied bounds when the
	// source supports spatial filtering. A nil bounds loads everything the
	// source offers.
	Start(ctx context.Context, bounds *photo.Bounds) error

	// Cancel requests cooperative cancellation of an in-flight Start.
	Cancel()

	// Aborted reports whether cancellation was requested.
	Aborted() bool

	// Finished reports whether the load reached a terminal state.
	Finished() bool

	// AllPhotos returns every record accumulated so far.
	AllPhotos() []photo.Record

	// FilteredPhotos returns accumulated records inside the given bounds.
	FilteredPhotos(bounds photo.Bounds) []photo.Record
}

// Events receives loader progress. Implemented by the worker, which turns
// these calls into host messages and combine scheduling.
type Events interface {
	// PhotosLoaded delivers an accumulated batch for a source.
	PhotosLoaded(batch Batch)

	// LoadingStatus reports per-source loading state. Progress is the
	// running count of accumulated photos; err is non-nil on terminal
	// failure.
	LoadingStatus(sourceID string, loading bool, progress int, err error)

	// Notice surfaces a user-visible toast. Level is one of "info",
	// "warning", "error".
	Notice(level, message, sourceID string)
}

// TokenProvider supplies credential tokens for stream sources without the
// loader knowing how tokens are obtained.
type TokenProvider interface {
	Token(ctx context.Context, forceRefresh bool) (string, error)
}

// DeviceQuery is the paginated query contract of the on-device photo index.
type DeviceQuery struct {
	Page     int     `json:"page"`
	PageSize int     `json:"pageSize"`
	MinLat   float64 `json:"minLat"`
	MaxLat   float64 `json:"maxLat"`
	MinLng   float64 `json:"minLng"`
	MaxLng   float64 `json:"maxLng"`
}

// DevicePhoto is a record in the device index, with device-native field
// names.
type DevicePhoto struct {
	ID        string   `json:"id"`
	Filename  string   `json:"filename"`
	Path      string   `json:"path"`
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Altitude  *float64 `json:"altitude,omitempty"`
	Bearing   *float64 `json:"bearing,omitempty"`
	Timestamp int64    `json:"timestamp"`
	Accuracy  float64  `json:"accuracy"`
	Width     int      `json:"width"`
	Height    int      `json:"height"`
	FileSize  int64    `json:"file_size"`
	CreatedAt int64    `json:"created_at"`
}

// DevicePage is one page of device index results.
type DevicePage struct {
	Photos     []DevicePhoto `json:"photos"`
	TotalCount int           `json:"totalCount"`
	HasMore    bool          `json:"hasMore"`
	Error      string        `json:"error,omitempty"`
}

// DeviceIndex is the query contract consumed by the LocalDevice loader.
// Indexing itself happens elsewhere; only reads are exposed here.
type DeviceIndex interface {
	Query(ctx context.Context, q DeviceQuery) (*DevicePage, error)
}

// DocumentCache caches decoded static-document photo lists per source id,
// so cache lifetime and invalidation stay visible at the call site instead
// of hiding inside a loader.
type DocumentCache interface {
	Get(sourceID string) ([]photo.Record, bool)
	Set(sourceID string, photos []photo.Record)
}
