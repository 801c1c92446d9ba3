// internal/domain/source/source.go

package source

import (
	"fmt"

	"github.com/koo5/hillview-sub009/internal/domain/photo"
)

// Kind discriminates the loader variant used for a source.
type Kind string

const (
	// KindStream is a long-lived server-push feed of photo batches.
	KindStream Kind = "stream"

	// KindLocalDevice is the on-device photo index, queried once per load.
	KindLocalDevice Kind = "localDevice"

	// KindStaticDocument is a single JSON document fetched by URL.
	KindStaticDocument Kind = "staticDocument"
)

// Config describes one named source as delivered by the host. A config
// message supersedes the previous one wholesale; individual entries are
// never patched.
type Config struct {
	ID       string `json:"id"`
	Kind     Kind   `json:"kind"`
	Enabled  bool   `json:"enabled"`
	Endpoint string `json:"endpoint,omitempty"`

	// MaxPhotos caps the number of records the source may deliver per load.
	// Zero means no cap.
	MaxPhotos int `json:"maxPhotos,omitempty"`

	// Primary marks the preferred remote feed. It only influences culling
	// priority, never load order.
	Primary bool `json:"primary,omitempty"`
}

// Validate rejects malformed source configurations before any loader is
// created for them.
func (c Config) Validate() error {
	if c.ID == "" {
		return &ConfigError{Reason: "source id must not be empty"}
	}
	switch c.Kind {
	case KindStream, KindStaticDocument:
		if c.Endpoint == "" {
			return &ConfigError{SourceID: c.ID, Reason: fmt.Sprintf("%s source requires an endpoint", c.Kind)}
		}
	case KindLocalDevice:
		// The device index is wired at startup, not per source.
	default:
		return &ConfigError{SourceID: c.ID, Reason: fmt.Sprintf("unknown source kind %q", c.Kind)}
	}
	return nil
}

// CullPriority orders sources for grid-cell selection: device photos win
// over the primary remote feed, which wins over secondary feeds.
func (c Config) CullPriority() int {
	switch {
	case c.Kind == KindLocalDevice:
		return 3
	case c.Primary:
		return 2
	default:
		return 1
	}
}

// Batch is a set of records delivered by a loader for one source, either
// incrementally (stream batches) or as the complete result.
type Batch struct {
	SourceID string
	Photos   []photo.Record
}
