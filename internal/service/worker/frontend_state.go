// internal/service/worker/frontend_state.go

package worker

import (
	"sync"

	"github.com/koo5/hillview-sub009/internal/domain/photo"
	"github.com/koo5/hillview-sub009/internal/domain/source"
	domain "github.com/koo5/hillview-sub009/internal/domain/worker"
)

// FrontendState holds the latest configuration and viewport intents from
// the host, each tagged with a monotonically increasing message id, and
// tracks which id was last fully processed. Work is pending iff the two
// ids differ — versioning, not booleans, is what lets a newer update
// supersede an older one even when messages race.
type FrontendState struct {
	mu sync.Mutex

	sources         []source.Config
	configUpdateID  uint64
	configProcessed uint64

	bounds        *photo.Bounds
	rangeMeters   float64
	areaUpdateID  uint64
	areaProcessed uint64
	areaForced    bool

	combineRequested uint64
	combineProcessed uint64
}

// NewFrontendState creates an empty state with the given default range
// radius.
func NewFrontendState(defaultRangeMeters float64) *FrontendState {
	return &FrontendState{rangeMeters: defaultRangeMeters}
}

// RecordConfig stores a config intent. Stale message ids are ignored.
func (f *FrontendState) RecordConfig(msg domain.ConfigUpdated) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if msg.MessageID <= f.configUpdateID {
		return
	}
	f.sources = msg.Sources
	f.configUpdateID = msg.MessageID
}

// RecordArea stores a viewport intent. Stale message ids are ignored.
func (f *FrontendState) RecordArea(msg domain.AreaUpdated) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if msg.MessageID <= f.areaUpdateID {
		return
	}
	bounds := msg.Bounds
	f.bounds = &bounds
	if msg.Range != nil {
		f.rangeMeters = *msg.Range
	}
	f.areaUpdateID = msg.MessageID
}

// RequestCombine schedules a combine pass. Requests coalesce: many batch
// arrivals before the next combine yield a single pass.
func (f *FrontendState) RequestCombine() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.combineRequested++
}

// InvalidateArea re-marks area work as pending without a new host message,
// so a config change reloads photos under the new source set.
func (f *FrontendState) InvalidateArea() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.bounds != nil {
		f.areaForced = true
	}
}

// IsConfigPending reports whether an unprocessed config intent exists.
func (f *FrontendState) IsConfigPending() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.configUpdateID != f.configProcessed
}

// IsAreaPending reports whether an unprocessed viewport intent exists.
func (f *FrontendState) IsAreaPending() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.areaUpdateID != f.areaProcessed || f.areaForced
}

// IsCombinePending reports whether a combine pass is owed.
func (f *FrontendState) IsCombinePending() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.combineRequested != f.combineProcessed
}

// PendingWorkByPriority lists pending work kinds, config before area before
// combine. The event loop consults this list — not process priority alone —
// to decide what to start next.
func (f *FrontendState) PendingWorkByPriority() []domain.ProcessKind {
	var pending []domain.ProcessKind
	if f.IsConfigPending() {
		pending = append(pending, domain.ProcessConfig)
	}
	if f.IsAreaPending() {
		pending = append(pending, domain.ProcessArea)
	}
	if f.IsCombinePending() {
		pending = append(pending, domain.ProcessCombine)
	}
	return pending
}

// MarkConfigProcessed records completion of a config pass for the given id.
func (f *FrontendState) MarkConfigProcessed(updateID uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.configProcessed = updateID
}

// MarkAreaProcessed records completion of an area pass for the given id.
// The forced flag clears only when no newer intent arrived meanwhile.
func (f *FrontendState) MarkAreaProcessed(updateID uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.areaProcessed = updateID
	if updateID == f.areaUpdateID {
		f.areaForced = false
	}
}

// MarkCombineProcessed records completion of a combine pass.
func (f *FrontendState) MarkCombineProcessed(requestID uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.combineProcessed = requestID
}

// CurrentSources returns the latest source configs and their update id.
func (f *FrontendState) CurrentSources() ([]source.Config, uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.sources, f.configUpdateID
}

// CurrentArea returns the latest bounds (nil before the first areaUpdated),
// the range radius and the area update id.
func (f *FrontendState) CurrentArea() (*photo.Bounds, float64, uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.bounds == nil {
		return nil, f.rangeMeters, f.areaUpdateID
	}
	bounds := *f.bounds
	return &bounds, f.rangeMeters, f.areaUpdateID
}

// CombineRequestID returns the current combine request counter.
func (f *FrontendState) CombineRequestID() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.combineRequested
}
