// internal/service/source/events_test.go

package source

import (
	"sync"

	"github.com/koo5/hillview-sub009/internal/domain/source"
)

// eventRecorder captures loader callbacks for assertions.
type eventRecorder struct {
	mu       sync.Mutex
	batches  []source.Batch
	statuses []statusEvent
	notices  []noticeEvent
}

type statusEvent struct {
	sourceID string
	loading  bool
	progress int
	err      error
}

type noticeEvent struct {
	level    string
	message  string
	sourceID string
}

func (r *eventRecorder) PhotosLoaded(batch source.Batch) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, batch)
}

func (r *eventRecorder) LoadingStatus(sourceID string, loading bool, progress int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, statusEvent{sourceID, loading, progress, err})
}

func (r *eventRecorder) Notice(level, message, sourceID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, noticeEvent{level, message, sourceID})
}

func (r *eventRecorder) batchCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.batches)
}

func (r *eventRecorder) allBatches() []source.Batch {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]source.Batch, len(r.batches))
	copy(out, r.batches)
	return out
}

func (r *eventRecorder) allNotices() []noticeEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]noticeEvent, len(r.notices))
	copy(out, r.notices)
	return out
}

func (r *eventRecorder) lastStatus() (statusEvent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.statuses) == 0 {
		return statusEvent{}, false
	}
	return r.statuses[len(r.statuses)-1], true
}
