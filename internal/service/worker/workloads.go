// internal/service/worker/workloads.go

package worker

import (
	"context"
	"errors"
	"log"

	"golang.org/x/sync/errgroup"

	"github.com/koo5/hillview-sub009/internal/domain/photo"
	"github.com/koo5/hillview-sub009/internal/domain/source"
	domain "github.com/koo5/hillview-sub009/internal/domain/worker"
	sourceservice "github.com/koo5/hillview-sub009/internal/service/source"
)

// runConfigProcess applies the latest source configuration: validates each
// entry, rejects malformed ones before any loader starts, prunes photos of
// disabled sources and re-pends the area load so photos reload under the
// new source set.
func (w *Worker) runConfigProcess(ctx context.Context, proc *Process) {
	sources, _ := w.frontend.CurrentSources()

	var valid []source.Config
	var enabledIDs []string
	priorities := make(map[string]int)

	for _, src := range sources {
		if err := src.Validate(); err != nil {
			w.Notice("error", err.Error(), src.ID)
			continue
		}
		if !src.Enabled {
			continue
		}
		valid = append(valid, src)
		enabledIDs = append(enabledIDs, src.ID)
		priorities[src.ID] = src.CullPriority()
	}

	// In-flight loads belong to the superseded configuration.
	w.cancelLoaders()

	w.setActiveSources(valid, priorities)
	w.photos.SetAllowedSources(enabledIDs)

	if proc.AbortRequested() || ctx.Err() != nil {
		return
	}

	w.frontend.MarkConfigProcessed(proc.UpdateID)
	w.frontend.InvalidateArea()
	w.frontend.RequestCombine()
}

// runAreaProcess loads photos for the latest bounds from every enabled
// source. Loads overlap physically; the scheduler treats them as one unit
// of work. Loader failures become toasts here, at the loader boundary, and
// never crash the loop.
func (w *Worker) runAreaProcess(ctx context.Context, proc *Process) {
	bounds, _, _ := w.frontend.CurrentArea()
	if bounds == nil {
		w.frontend.MarkAreaProcessed(proc.UpdateID)
		return
	}

	type sourceLoad struct {
		src    source.Config
		loader source.Loader
	}

	var loads []sourceLoad
	var loaders []source.Loader

	for _, src := range w.activeSources() {
		loader := w.newLoader(src)
		if loader == nil {
			continue
		}
		loads = append(loads, sourceLoad{src: src, loader: loader})
		loaders = append(loaders, loader)
		// The new load replaces whatever the source contributed for the
		// previous viewport.
		w.photos.Replace(src.ID, nil)
	}
	gen := w.setLoaders(loaders)

	g := new(errgroup.Group)
	for _, load := range loads {
		src := load.src
		l := load.loader
		g.Go(func() error {
			err := l.Start(ctx, bounds)
			if err != nil && !errors.Is(err, source.ErrAborted) {
				w.Notice("error", err.Error(), src.ID)
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Printf("area load finished with error: %v", err)
	}

	w.clearLoaders(gen)

	if proc.AbortRequested() || ctx.Err() != nil {
		return
	}

	w.frontend.MarkAreaProcessed(proc.UpdateID)
	w.frontend.RequestCombine()
}

// runCombineProcess merges the per-source store and runs both culling
// stages, emitting the result to the host.
func (w *Worker) runCombineProcess(ctx context.Context, proc *Process) {
	bounds, rangeMeters, areaID := w.frontend.CurrentArea()
	if bounds == nil {
		w.frontend.MarkCombineProcessed(proc.UpdateID)
		return
	}

	snapshot := w.photos.Snapshot()
	result := w.culler.Cull(snapshot, w.cullPriorities(), *bounds, areaID, rangeMeters)

	if proc.AbortRequested() || ctx.Err() != nil {
		return
	}

	inArea := result.PhotosInArea
	if inArea == nil {
		inArea = []photo.Record{}
	}
	inRange := result.PhotosInRange
	if inRange == nil {
		inRange = []photo.Record{}
	}

	w.emitter.Emit(domain.PhotosUpdate{
		Type:          domain.MsgPhotosUpdate,
		PhotosInArea:  inArea,
		PhotosInRange: inRange,
		CurrentRange:  rangeMeters,
	})
	w.frontend.MarkCombineProcessed(proc.UpdateID)
}

// newLoader builds the loader variant for a source. Returns nil when the
// source cannot be served on this install.
func (w *Worker) newLoader(src source.Config) source.Loader {
	switch src.Kind {
	case source.KindStream:
		return sourceservice.NewStreamLoader(src, w.cfg.Stream, w.tokens, w)
	case source.KindLocalDevice:
		if w.deviceIndex == nil {
			w.Notice("warning", "device photo index is not available on this install", src.ID)
			return nil
		}
		return sourceservice.NewDeviceLoader(src, w.cfg.Device, w.deviceIndex, w)
	case source.KindStaticDocument:
		return sourceservice.NewStaticDocumentLoader(src, w.httpClient, w.docCache, w)
	default:
		return nil
	}
}
