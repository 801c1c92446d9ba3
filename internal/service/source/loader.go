// internal/service/source/loader.go

package source

import (
	"sync"
	"sync/atomic"

	"github.com/koo5/hillview-sub009/internal/domain/photo"
)

// accumulator is the shared photo store and lifecycle state embedded by
// every loader variant. Stream batches accumulate; nothing replaces prior
// batches.
type accumulator struct {
	sourceID string

	mu     sync.RWMutex
	photos []photo.Record

	aborted  atomic.Bool
	finished atomic.Bool
}

func (a *accumulator) append(batch []photo.Record) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.photos = append(a.photos, batch...)
	return len(a.photos)
}

func (a *accumulator) count() int {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return len(a.photos)
}

// Aborted reports whether cancellation was requested.
func (a *accumulator) Aborted() bool {
	return a.aborted.Load()
}

// Finished reports whether the load reached a terminal state.
func (a *accumulator) Finished() bool {
	return a.finished.Load()
}

// AllPhotos returns a copy of every record accumulated so far.
func (a *accumulator) AllPhotos() []photo.Record {
	a.mu.RLock()
	defer a.mu.RUnlock()

	photos := make([]photo.Record, len(a.photos))
	copy(photos, a.photos)
	return photos
}

// FilteredPhotos returns accumulated records inside the given bounds.
func (a *accumulator) FilteredPhotos(bounds photo.Bounds) []photo.Record {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var filtered []photo.Record
	for _, p := range a.photos {
		if bounds.Contains(p.Coordinate) {
			filtered = append(filtered, p)
		}
	}
	return filtered
}
