// internal/service/worker/worker.go

// Package worker contains the single control loop that drains host
// messages, schedules workloads and drives source loaders.
package worker

import (
	"log"
	"sync"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/koo5/hillview-sub009/internal/domain/source"
	domain "github.com/koo5/hillview-sub009/internal/domain/worker"
	"github.com/koo5/hillview-sub009/internal/service/auth"
	"github.com/koo5/hillview-sub009/internal/service/cull"
	sourceservice "github.com/koo5/hillview-sub009/internal/service/source"
)

// Config contains configuration for the worker.
type Config struct {
	// ClientID is the per-install identifier passed to stream dials.
	ClientID string

	// DefaultRangeMeters is the range radius used until the host supplies
	// one in an areaUpdated message.
	DefaultRangeMeters float64

	// MessageBuffer is the inbound queue capacity.
	MessageBuffer int

	Stream sourceservice.StreamLoaderConfig
	Device sourceservice.DeviceLoaderConfig
}

// DefaultConfig returns the default worker configuration.
func DefaultConfig(clientID string) Config {
	return Config{
		ClientID:           clientID,
		DefaultRangeMeters: 200,
		MessageBuffer:      256,
		Stream:             sourceservice.DefaultStreamLoaderConfig(clientID),
		Device:             sourceservice.DefaultDeviceLoaderConfig(),
	}
}

// Worker is the event loop that owns all photo state. One logical control
// thread: the loop goroutine routes every message and starts every
// workload; loaders run concurrently but the scheduler treats each workload
// as one unit of work.
type Worker struct {
	cfg Config

	emitter   domain.Emitter
	tokens    *auth.TokenManager
	culler    *cull.Culler
	photos    *SourcePhotosState
	frontend  *FrontendState
	processes *ProcessManager
	router    *MessageRouter

	deviceIndex source.DeviceIndex
	docCache    source.DocumentCache
	httpClient  *retryablehttp.Client

	messages    chan interface{}
	processDone chan string

	loaderMu  sync.Mutex
	loaders   []source.Loader
	loaderGen uint64

	srcMu      sync.RWMutex
	sources    []source.Config
	priorities map[string]int
}

// New creates a worker. The device index may be nil when the install has no
// on-device photo index.
func New(
	cfg Config,
	emitter domain.Emitter,
	tokens *auth.TokenManager,
	culler *cull.Culler,
	deviceIndex source.DeviceIndex,
	docCache source.DocumentCache,
	httpClient *retryablehttp.Client,
) *Worker {
	if cfg.MessageBuffer <= 0 {
		cfg.MessageBuffer = 256
	}

	w := &Worker{
		cfg:         cfg,
		emitter:     emitter,
		tokens:      tokens,
		culler:      culler,
		photos:      NewSourcePhotosState(),
		frontend:    NewFrontendState(cfg.DefaultRangeMeters),
		processes:   NewProcessManager(),
		router:      NewMessageRouter(),
		deviceIndex: deviceIndex,
		docCache:    docCache,
		httpClient:  httpClient,
		messages:    make(chan interface{}, cfg.MessageBuffer),
		processDone: make(chan string, 8),
		priorities:  make(map[string]int),
	}

	w.router.Register(domain.MsgConfigUpdated, w.handleConfigUpdated)
	w.router.Register(domain.MsgAreaUpdated, w.handleAreaUpdated)
	w.router.Register(domain.MsgRemovePhoto, w.handleRemovePhoto)
	w.router.Register(domain.MsgRemoveUserPhotos, w.handleRemoveUserPhotos)
	w.router.Register(domain.MsgAuthToken, w.handleAuthToken)

	return w
}

// Post decodes and enqueues a raw host message.
func (w *Worker) Post(data []byte) error {
	msg, err := domain.Decode(data)
	if err != nil {
		return err
	}
	w.messages <- msg
	return nil
}

// PostMessage enqueues an already-decoded message.
func (w *Worker) PostMessage(msg interface{}) {
	w.messages <- msg
}

// Run executes the event loop until a cleanup/terminate message arrives.
// Loop body: drain queued messages; with no pending work, await the next
// message; with pending work and nothing active that outranks it, start the
// highest-priority pending item; otherwise block on the next message or
// process completion instead of spinning.
func (w *Worker) Run() {
	for {
		// (1) drain everything already queued.
	drain:
		for {
			select {
			case msg := <-w.messages:
				if w.route(msg) {
					w.shutdown()
					return
				}
			case id := <-w.processDone:
				w.processes.CleanupProcess(id)
			default:
				break drain
			}
		}

		pending := w.frontend.PendingWorkByPriority()

		// (2) idle: the only true suspension point.
		if len(pending) == 0 {
			select {
			case msg := <-w.messages:
				if w.route(msg) {
					w.shutdown()
					return
				}
			case id := <-w.processDone:
				w.processes.CleanupProcess(id)
			}
			continue
		}

		// (3) start pending work when it outranks everything active;
		// StartProcess abort-flags the outranked processes.
		top := pending[0]
		if top.Priority() > w.processes.HighestActivePriority() {
			w.startPending(top)
			continue
		}

		// (4) blocked on an active process; wait for progress.
		select {
		case msg := <-w.messages:
			if w.route(msg) {
				w.shutdown()
				return
			}
		case id := <-w.processDone:
			w.processes.CleanupProcess(id)
		}
	}
}

// route dispatches one message. It reports whether the loop must exit.
func (w *Worker) route(msg interface{}) bool {
	if ctl, ok := msg.(domain.Control); ok {
		log.Printf("worker: %s received, shutting down", ctl.Type)
		return true
	}
	if err := w.router.Route(msg); err != nil {
		log.Printf("worker: %v", err)
	}
	return false
}

// shutdown aborts all processes and loaders. This is the only clean exit.
func (w *Worker) shutdown() {
	w.processes.AbortAllProcesses()
	w.cancelLoaders()
	w.processes.ClearAllProcesses()
}

func (w *Worker) startPending(kind domain.ProcessKind) {
	var updateID uint64
	switch kind {
	case domain.ProcessConfig:
		_, updateID = w.frontend.CurrentSources()
	case domain.ProcessArea:
		_, _, updateID = w.frontend.CurrentArea()
	case domain.ProcessCombine:
		updateID = w.frontend.CombineRequestID()
	}

	proc, ctx := w.processes.StartProcess(kind, updateID)
	go func() {
		switch kind {
		case domain.ProcessConfig:
			w.runConfigProcess(ctx, proc)
		case domain.ProcessArea:
			w.runAreaProcess(ctx, proc)
		case domain.ProcessCombine:
			w.runCombineProcess(ctx, proc)
		}
		w.processDone <- proc.ID
	}()
}

// Message handlers. Each records intent or mutates state; workloads start
// from the loop, never from here.

func (w *Worker) handleConfigUpdated(msg interface{}) error {
	m := msg.(domain.ConfigUpdated)
	w.frontend.RecordConfig(m)
	return nil
}

func (w *Worker) handleAreaUpdated(msg interface{}) error {
	m := msg.(domain.AreaUpdated)
	w.frontend.RecordArea(m)
	return nil
}

func (w *Worker) handleRemovePhoto(msg interface{}) error {
	m := msg.(domain.RemovePhoto)
	if w.photos.RemovePhoto(m.Source, m.PhotoID) {
		w.frontend.RequestCombine()
	}
	return nil
}

func (w *Worker) handleRemoveUserPhotos(msg interface{}) error {
	m := msg.(domain.RemoveUserPhotos)
	if w.photos.RemoveUserPhotos(m.Source, m.UserID) > 0 {
		w.frontend.RequestCombine()
	}
	return nil
}

func (w *Worker) handleAuthToken(msg interface{}) error {
	m := msg.(domain.AuthToken)
	if m.Error != "" {
		return w.tokens.Reject(&tokenRefusedError{reason: m.Error})
	}
	return w.tokens.Resolve(m.Token)
}

type tokenRefusedError struct {
	reason string
}

func (e *tokenRefusedError) Error() string {
	return "host refused token request: " + e.reason
}

// Loader event sink (source.Events). Called from loader goroutines.

// PhotosLoaded lands a batch in the per-source store and schedules a
// combine pass.
func (w *Worker) PhotosLoaded(batch source.Batch) {
	w.photos.Append(batch.SourceID, batch.Photos)
	w.frontend.RequestCombine()
}

// LoadingStatus forwards per-source loading state to the host.
func (w *Worker) LoadingStatus(sourceID string, loading bool, progress int, err error) {
	msg := domain.SourceLoadingStatus{
		Type:      domain.MsgSourceLoadingStatus,
		SourceID:  sourceID,
		IsLoading: loading,
		Progress:  &progress,
	}
	if err != nil {
		msg.Error = err.Error()
	}
	w.emitter.Emit(msg)
}

// Notice forwards a user-visible toast to the host.
func (w *Worker) Notice(level, message, sourceID string) {
	w.emitter.Emit(domain.Toast{
		Type:    domain.MsgToast,
		Level:   level,
		Message: message,
		Source:  sourceID,
	})
}

// Accessors used by workloads and tests.

func (w *Worker) setActiveSources(sources []source.Config, priorities map[string]int) {
	w.srcMu.Lock()
	defer w.srcMu.Unlock()

	w.sources = sources
	w.priorities = priorities
}

func (w *Worker) activeSources() []source.Config {
	w.srcMu.RLock()
	defer w.srcMu.RUnlock()

	return w.sources
}

func (w *Worker) cullPriorities() map[string]int {
	w.srcMu.RLock()
	defer w.srcMu.RUnlock()

	priorities := make(map[string]int, len(w.priorities))
	for id, p := range w.priorities {
		priorities[id] = p
	}
	return priorities
}

// setLoaders registers the loaders of the current area pass and returns a
// generation token for clearLoaders.
func (w *Worker) setLoaders(loaders []source.Loader) uint64 {
	w.loaderMu.Lock()
	defer w.loaderMu.Unlock()

	w.loaderGen++
	w.loaders = loaders
	return w.loaderGen
}

// clearLoaders drops the registration identified by gen. A superseded area
// pass finishing late must not clobber the registration a newer pass
// installed, so a stale generation is a no-op.
func (w *Worker) clearLoaders(gen uint64) {
	w.loaderMu.Lock()
	defer w.loaderMu.Unlock()

	if w.loaderGen == gen {
		w.loaders = nil
	}
}

func (w *Worker) cancelLoaders() {
	w.loaderMu.Lock()
	defer w.loaderMu.Unlock()

	for _, l := range w.loaders {
		l.Cancel()
	}
	w.loaders = nil
}

// Frontend exposes the intent store, mainly for tests.
func (w *Worker) Frontend() *FrontendState {
	return w.frontend
}

// Photos exposes the per-source store, mainly for tests.
func (w *Worker) Photos() *SourcePhotosState {
	return w.photos
}

// Processes exposes the process manager, mainly for tests.
func (w *Worker) Processes() *ProcessManager {
	return w.processes
}
