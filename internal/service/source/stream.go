// internal/service/source/stream.go

package source

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/koo5/hillview-sub009/internal/domain/photo"
	"github.com/koo5/hillview-sub009/internal/domain/source"
)

// StreamLoaderConfig contains configuration for stream loaders.
type StreamLoaderConfig struct {
	// ClientID is the per-install identifier sent with every dial.
	ClientID string

	// TokenTimeout bounds the auth-token round trip to the host.
	TokenTimeout time.Duration

	// AuthFailureWindow is the window after a dial attempt within which a
	// failure is treated as a possible stale credential. The cutoff is a
	// timing guess carried over from production behavior; treat it as
	// approximate.
	AuthFailureWindow time.Duration

	// DialTimeout bounds a single connection attempt.
	DialTimeout time.Duration
}

// DefaultStreamLoaderConfig returns the default stream loader configuration.
func DefaultStreamLoaderConfig(clientID string) StreamLoaderConfig {
	return StreamLoaderConfig{
		ClientID:          clientID,
		TokenTimeout:      5 * time.Second,
		AuthFailureWindow: 1 * time.Second,
		DialTimeout:       10 * time.Second,
	}
}

// streamEvent is one server-pushed event on the photo feed.
type streamEvent struct {
	Type    string      `json:"type"`
	Photos  []wirePhoto `json:"photos,omitempty"`
	Message string      `json:"message,omitempty"`
}

// wirePhoto is the feed's photo shape.
type wirePhoto struct {
	ID       string `json:"id"`
	Geometry struct {
		Coordinates []float64 `json:"coordinates"` // [lng, lat]
	} `json:"geometry"`
	CompassAngle     float64                      `json:"compass_angle"`
	ComputedAltitude float64                      `json:"computed_altitude"`
	CapturedAt       string                       `json:"captured_at"`
	Sizes            map[string]photo.SizeVariant `json:"sizes"`
	Creator          *photo.Creator               `json:"creator,omitempty"`
}

func (w wirePhoto) toRecord(sourceID string) photo.Record {
	rec := photo.Record{
		ID:       w.ID,
		SourceID: sourceID,
		Bearing:  photo.NormalizeBearing(w.CompassAngle),
		Altitude: w.ComputedAltitude,
		Sizes:    w.Sizes,
		Creator:  w.Creator,
	}
	if len(w.Geometry.Coordinates) == 2 {
		rec.Coordinate = photo.Coordinate{
			Lat: w.Geometry.Coordinates[1],
			Lng: w.Geometry.Coordinates[0],
		}
	}
	if w.CapturedAt != "" {
		if t, err := time.Parse(time.RFC3339, w.CapturedAt); err == nil {
			rec.CapturedAt = &t
		}
	}
	return rec
}

// StreamLoader consumes a long-lived server-push photo feed over a
// websocket connection parameterized by bounds, client id and an auth
// token. Batches accumulate until the server signals stream_complete.
type StreamLoader struct {
	accumulator

	src    source.Config
	cfg    StreamLoaderConfig
	tokens source.TokenProvider
	events source.Events

	connMu sync.Mutex
	conn   *websocket.Conn
}

// NewStreamLoader creates a loader for one stream source.
func NewStreamLoader(src source.Config, cfg StreamLoaderConfig, tokens source.TokenProvider, events source.Events) *StreamLoader {
	l := &StreamLoader{
		src:    src,
		cfg:    cfg,
		tokens: tokens,
		events: events,
	}
	l.sourceID = src.ID
	return l
}

// Cancel requests cooperative cancellation and closes the underlying
// connection so the read loop unblocks. The abort flag alone does not close
// sockets.
func (l *StreamLoader) Cancel() {
	l.aborted.Store(true)
	l.closeConn()
}

// setConn registers the live connection for Cancel to close. A cancel that
// lands while the dial is still in flight finds nothing to close, so
// registration closes the connection itself when the abort flag is already
// set.
func (l *StreamLoader) setConn(c *websocket.Conn) {
	l.connMu.Lock()
	defer l.connMu.Unlock()
	l.conn = c
	if l.aborted.Load() {
		c.Close()
	}
}

func (l *StreamLoader) closeConn() {
	l.connMu.Lock()
	defer l.connMu.Unlock()
	if l.conn != nil {
		l.conn.Close()
		l.conn = nil
	}
}

// Start opens the feed and accumulates batches until completion. A failure
// within the auth window on a connection that never opened is retried
// exactly once with a force-refreshed token; any other failure is terminal.
func (l *StreamLoader) Start(ctx context.Context, bounds *photo.Bounds) error {
	l.events.LoadingStatus(l.src.ID, true, 0, nil)

	err := l.run(ctx, bounds)
	l.finished.Store(true)

	if err != nil {
		if l.Aborted() || ctx.Err() != nil {
			// Planned cancellation resolves silently.
			l.events.LoadingStatus(l.src.ID, false, l.count(), nil)
			return source.ErrAborted
		}
		l.events.LoadingStatus(l.src.ID, false, l.count(), err)
		return err
	}

	l.events.LoadingStatus(l.src.ID, false, l.count(), nil)
	return nil
}

func (l *StreamLoader) run(ctx context.Context, bounds *photo.Bounds) error {
	var everOpened, everFailed bool

	attempt := func(forceRefresh bool) error {
		tokenCtx, cancel := context.WithTimeout(ctx, l.cfg.TokenTimeout)
		token, err := l.tokens.Token(tokenCtx, forceRefresh)
		cancel()
		if err != nil {
			return &source.LoadError{SourceID: l.src.ID, Err: fmt.Errorf("token request failed: %w", err)}
		}

		dialStart := time.Now()
		conn, err := l.dial(ctx, bounds, token)
		if err != nil {
			everFailed = true
			if !everOpened && time.Since(dialStart) < l.cfg.AuthFailureWindow {
				return &source.AuthError{SourceID: l.src.ID, Err: err}
			}
			return &source.LoadError{SourceID: l.src.ID, Err: err}
		}

		wasReopen := everFailed
		everOpened = true
		if wasReopen {
			l.events.Notice("info", "Connection restored", l.src.ID)
		}

		err = l.consume(ctx, conn)
		if err != nil {
			everFailed = true
		}
		return err
	}

	err := attempt(false)
	if err != nil {
		var authErr *source.AuthError
		if errors.As(err, &authErr) && !l.Aborted() {
			log.Printf("stream %s: immediate failure, retrying once with refreshed token", l.src.ID)
			err = attempt(true)
		}
	}

	if err != nil {
		var authErr *source.AuthError
		if errors.As(err, &authErr) {
			// The retry already happened; a recurrence is a plain load failure.
			err = &source.LoadError{SourceID: l.src.ID, Err: authErr.Err}
		}
		if everOpened && !l.Aborted() && ctx.Err() == nil {
			l.events.Notice("warning", "Connection lost", l.src.ID)
		}
		return err
	}

	return nil
}

// dial opens the websocket connection with the feed's query parameters.
func (l *StreamLoader) dial(ctx context.Context, bounds *photo.Bounds, token string) (*websocket.Conn, error) {
	u, err := url.Parse(l.src.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}

	q := u.Query()
	if bounds != nil {
		q.Set("top_left_lat", strconv.FormatFloat(bounds.TopLeft.Lat, 'f', -1, 64))
		q.Set("top_left_lon", strconv.FormatFloat(bounds.TopLeft.Lng, 'f', -1, 64))
		q.Set("bottom_right_lat", strconv.FormatFloat(bounds.BottomRight.Lat, 'f', -1, 64))
		q.Set("bottom_right_lon", strconv.FormatFloat(bounds.BottomRight.Lng, 'f', -1, 64))
	}
	q.Set("client_id", l.cfg.ClientID)
	if l.src.MaxPhotos > 0 {
		q.Set("max_photos", strconv.Itoa(l.src.MaxPhotos))
	}
	if token != "" {
		q.Set("token", token)
	}
	u.RawQuery = q.Encode()

	dialer := websocket.Dialer{HandshakeTimeout: l.cfg.DialTimeout}
	conn, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial failed: %w", err)
	}

	l.setConn(conn)
	return conn, nil
}

// consume reads feed events until completion, error or cancellation.
func (l *StreamLoader) consume(ctx context.Context, conn *websocket.Conn) error {
	defer l.closeConn()

	// The read loop only unblocks when the connection closes, so abort
	// propagation has to close it.
	watchDone := make(chan struct{})
	defer close(watchDone)
	go func() {
		select {
		case <-ctx.Done():
			l.closeConn()
		case <-watchDone:
		}
	}()

	for {
		var ev streamEvent
		if err := conn.ReadJSON(&ev); err != nil {
			if l.Aborted() || ctx.Err() != nil {
				return source.ErrAborted
			}
			return &source.LoadError{SourceID: l.src.ID, Err: fmt.Errorf("read failed: %w", err)}
		}

		switch ev.Type {
		case "photos":
			batch := make([]photo.Record, 0, len(ev.Photos))
			for _, wp := range ev.Photos {
				batch = append(batch, wp.toRecord(l.src.ID))
			}
			total := l.append(batch)
			l.events.PhotosLoaded(source.Batch{SourceID: l.src.ID, Photos: batch})
			l.events.LoadingStatus(l.src.ID, true, total, nil)

		case "stream_complete":
			return nil

		case "error":
			return &source.LoadError{SourceID: l.src.ID, Err: fmt.Errorf("server error: %s", ev.Message)}

		default:
			// Unknown event types are skipped so the feed can grow.
		}
	}
}
