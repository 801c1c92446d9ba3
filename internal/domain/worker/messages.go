// internal/domain/worker/messages.go

package worker

import (
	"encoding/json"
	"fmt"

	"github.com/koo5/hillview-sub009/internal/domain/photo"
	"github.com/koo5/hillview-sub009/internal/domain/source"
)

// Inbound message types (host → worker).
const (
	MsgConfigUpdated    = "configUpdated"
	MsgAreaUpdated      = "areaUpdated"
	MsgRemovePhoto      = "removePhoto"
	MsgRemoveUserPhotos = "removeUserPhotos"
	MsgAuthToken        = "authToken"
	MsgCleanup          = "cleanup"
	MsgTerminate        = "terminate"
)

// Outbound message types (worker → host).
const (
	MsgPhotosUpdate        = "photosUpdate"
	MsgGetAuthToken        = "getAuthToken"
	MsgToast               = "toast"
	MsgSourceLoadingStatus = "sourceLoadingStatus"
)

// ConfigUpdated replaces the full source configuration. MessageID increases
// monotonically; a stale id never supersedes a newer one.
type ConfigUpdated struct {
	Type      string          `json:"type"`
	Sources   []source.Config `json:"sources"`
	MessageID uint64          `json:"messageId"`
}

// AreaUpdated delivers the latest viewport bounds and optional range radius.
type AreaUpdated struct {
	Type      string       `json:"type"`
	Bounds    photo.Bounds `json:"bounds"`
	Range     *float64     `json:"range,omitempty"`
	MessageID uint64       `json:"messageId"`
}

// RemovePhoto removes a single photo from a source's held set.
type RemovePhoto struct {
	Type    string `json:"type"`
	PhotoID string `json:"photoId"`
	Source  string `json:"source"`
}

// RemoveUserPhotos removes every photo by a given creator from a source's
// held set.
type RemoveUserPhotos struct {
	Type   string `json:"type"`
	UserID string `json:"userId"`
	Source string `json:"source"`
}

// AuthToken is the host's response to a getAuthToken request. A non-empty
// Error rejects the outstanding request instead of resolving it.
type AuthToken struct {
	Type  string `json:"type"`
	Token string `json:"token"`
	Error string `json:"error,omitempty"`
}

// Control is the payload-free cleanup/terminate message.
type Control struct {
	Type string `json:"type"`
}

// PhotosUpdate carries both culled output sets to the host.
type PhotosUpdate struct {
	Type          string         `json:"type"`
	PhotosInArea  []photo.Record `json:"photosInArea"`
	PhotosInRange []photo.Record `json:"photosInRange"`
	CurrentRange  float64        `json:"currentRange"`
}

// GetAuthToken asks the host for a credential token.
type GetAuthToken struct {
	Type         string `json:"type"`
	ForceRefresh bool   `json:"forceRefresh"`
}

// Toast is a user-visible notification.
type Toast struct {
	Type    string `json:"type"`
	Level   string `json:"level"`
	Message string `json:"message"`
	Source  string `json:"source,omitempty"`
}

// SourceLoadingStatus reports per-source loading progress to the host.
type SourceLoadingStatus struct {
	Type      string `json:"type"`
	SourceID  string `json:"sourceId"`
	IsLoading bool   `json:"isLoading"`
	Progress  *int   `json:"progress,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Emitter delivers outbound messages to the host.
type Emitter interface {
	Emit(msg interface{})
}

// Decode parses a raw host message into its typed form based on the "type"
// field.
func Decode(data []byte) (interface{}, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}

	switch head.Type {
	case MsgConfigUpdated:
		var m ConfigUpdated
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", head.Type, err)
		}
		return m, nil
	case MsgAreaUpdated:
		var m AreaUpdated
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", head.Type, err)
		}
		return m, nil
	case MsgRemovePhoto:
		var m RemovePhoto
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", head.Type, err)
		}
		return m, nil
	case MsgRemoveUserPhotos:
		var m RemoveUserPhotos
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", head.Type, err)
		}
		return m, nil
	case MsgAuthToken:
		var m AuthToken
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", head.Type, err)
		}
		return m, nil
	case MsgCleanup, MsgTerminate:
		return Control{Type: head.Type}, nil
	default:
		return nil, fmt.Errorf("unknown message type %q", head.Type)
	}
}
