// internal/service/worker/photos_state.go

package worker

import (
	"sync"

	"github.com/koo5/hillview-sub009/internal/domain/photo"
)

// SourcePhotosState is the keyed store of photo lists, one list per source
// id. It never holds an entry for a disabled or unknown source: the allowed
// set is established by each config pass and appends outside it are dropped.
type SourcePhotosState struct {
	mu       sync.RWMutex
	bySource map[string][]photo.Record
	allowed  map[string]bool
}

// NewSourcePhotosState creates an empty store.
func NewSourcePhotosState() *SourcePhotosState {
	return &SourcePhotosState{
		bySource: make(map[string][]photo.Record),
		allowed:  make(map[string]bool),
	}
}

// SetAllowedSources replaces the allowed source set and prunes every held
// list whose source is no longer in it.
func (s *SourcePhotosState) SetAllowedSources(ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.allowed = make(map[string]bool, len(ids))
	for _, id := range ids {
		s.allowed[id] = true
	}
	for id := range s.bySource {
		if !s.allowed[id] {
			delete(s.bySource, id)
		}
	}
}

// Replace sets the full list for a source, dropping whatever was held.
func (s *SourcePhotosState) Replace(sourceID string, photos []photo.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.allowed[sourceID] {
		return
	}
	if len(photos) == 0 {
		delete(s.bySource, sourceID)
		return
	}
	s.bySource[sourceID] = photos
}

// Append adds a batch to a source's list. Batches from unknown sources are
// dropped.
func (s *SourcePhotosState) Append(sourceID string, batch []photo.Record) {
	if len(batch) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.allowed[sourceID] {
		return
	}
	s.bySource[sourceID] = append(s.bySource[sourceID], batch...)
}

// RemovePhoto removes a single photo from a source's list. It reports
// whether anything was removed.
func (s *SourcePhotosState) RemovePhoto(sourceID, photoID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, ok := s.bySource[sourceID]
	if !ok {
		return false
	}

	for i, p := range list {
		if p.ID == photoID {
			s.bySource[sourceID] = append(list[:i:i], list[i+1:]...)
			if len(s.bySource[sourceID]) == 0 {
				delete(s.bySource, sourceID)
			}
			return true
		}
	}
	return false
}

// RemoveUserPhotos removes every photo by the given creator from a source's
// list. It returns the number of removed photos.
func (s *SourcePhotosState) RemoveUserPhotos(sourceID, userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, ok := s.bySource[sourceID]
	if !ok {
		return 0
	}

	kept := list[:0:0]
	removed := 0
	for _, p := range list {
		if p.Creator != nil && p.Creator.ID == userID {
			removed++
			continue
		}
		kept = append(kept, p)
	}

	if removed == 0 {
		return 0
	}
	if len(kept) == 0 {
		delete(s.bySource, sourceID)
	} else {
		s.bySource[sourceID] = kept
	}
	return removed
}

// Snapshot returns a copy of the full per-source map for a combine pass.
func (s *SourcePhotosState) Snapshot() map[string][]photo.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := make(map[string][]photo.Record, len(s.bySource))
	for id, list := range s.bySource {
		photos := make([]photo.Record, len(list))
		copy(photos, list)
		snapshot[id] = photos
	}
	return snapshot
}

// Count returns the total number of held photos.
func (s *SourcePhotosState) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := 0
	for _, list := range s.bySource {
		total += len(list)
	}
	return total
}

// Clear drops everything, including the allowed set.
func (s *SourcePhotosState) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.bySource = make(map[string][]photo.Record)
	s.allowed = make(map[string]bool)
}
