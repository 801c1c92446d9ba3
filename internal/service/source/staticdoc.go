// internal/service/source/staticdoc.go

package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/koo5/hillview-sub009/internal/domain/photo"
	"github.com/koo5/hillview-sub009/internal/domain/source"
)

// StaticDocumentLoader fetches one JSON document containing a complete
// array of photo records. Decoded documents are cached per source id by the
// injected cache, so a repeated load for the same source skips the network
// fetch entirely.
type StaticDocumentLoader struct {
	accumulator

	src    source.Config
	client *retryablehttp.Client
	cache  source.DocumentCache
	events source.Events

	cancelMu sync.Mutex
	cancel   context.CancelFunc
}

// NewStaticDocumentLoader creates a loader for one static document source.
func NewStaticDocumentLoader(src source.Config, client *retryablehttp.Client, cache source.DocumentCache, events source.Events) *StaticDocumentLoader {
	l := &StaticDocumentLoader{
		src:    src,
		client: client,
		cache:  cache,
		events: events,
	}
	l.sourceID = src.ID
	return l
}

// Cancel requests cooperative cancellation of an in-flight fetch.
func (l *StaticDocumentLoader) Cancel() {
	l.aborted.Store(true)

	l.cancelMu.Lock()
	cancel := l.cancel
	l.cancelMu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Start fetches and decodes the document, or serves it from the cache.
func (l *StaticDocumentLoader) Start(ctx context.Context, bounds *photo.Bounds) error {
	if cached, ok := l.cache.Get(l.src.ID); ok {
		l.append(cached)
		l.finished.Store(true)
		l.events.PhotosLoaded(source.Batch{SourceID: l.src.ID, Photos: cached})
		l.events.LoadingStatus(l.src.ID, false, len(cached), nil)
		return nil
	}

	l.events.LoadingStatus(l.src.ID, true, 0, nil)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	l.cancelMu.Lock()
	l.cancel = cancel
	l.cancelMu.Unlock()

	// A cancel that landed before the context existed had nothing to call.
	if l.Aborted() {
		cancel()
	}

	records, err := l.fetch(ctx)
	l.finished.Store(true)

	if err != nil {
		if l.Aborted() || ctx.Err() != nil {
			l.events.LoadingStatus(l.src.ID, false, 0, nil)
			return source.ErrAborted
		}
		loadErr := &source.LoadError{SourceID: l.src.ID, Err: err}
		l.events.LoadingStatus(l.src.ID, false, 0, loadErr)
		return loadErr
	}

	l.append(records)
	l.cache.Set(l.src.ID, records)
	l.events.PhotosLoaded(source.Batch{SourceID: l.src.ID, Photos: records})
	l.events.LoadingStatus(l.src.ID, false, len(records), nil)
	return nil
}

func (l *StaticDocumentLoader) fetch(ctx context.Context) ([]photo.Record, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, l.src.Endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint: %w", err)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var records []photo.Record
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode failed: %w", err)
	}

	for i := range records {
		records[i].SourceID = l.src.ID
		records[i].Bearing = photo.NormalizeBearing(records[i].Bearing)
	}

	return records, nil
}
