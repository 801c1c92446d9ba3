// internal/service/worker/router.go

package worker

import (
	"fmt"

	domain "github.com/koo5/hillview-sub009/internal/domain/worker"
)

// HandlerFunc processes one decoded inbound message.
type HandlerFunc func(msg interface{}) error

// MessageRouter is a stateless dispatch table mapping inbound message kinds
// to handler calls.
type MessageRouter struct {
	routes map[string]HandlerFunc
}

// NewMessageRouter creates an empty router.
func NewMessageRouter() *MessageRouter {
	return &MessageRouter{routes: make(map[string]HandlerFunc)}
}

// Register binds a message type to a handler.
func (r *MessageRouter) Register(msgType string, handler HandlerFunc) {
	r.routes[msgType] = handler
}

// Route dispatches a decoded message to its handler.
func (r *MessageRouter) Route(msg interface{}) error {
	msgType := typeOf(msg)
	handler, ok := r.routes[msgType]
	if !ok {
		return fmt.Errorf("no handler for message type %q", msgType)
	}
	return handler(msg)
}

func typeOf(msg interface{}) string {
	switch m := msg.(type) {
	case domain.ConfigUpdated:
		return domain.MsgConfigUpdated
	case domain.AreaUpdated:
		return domain.MsgAreaUpdated
	case domain.RemovePhoto:
		return domain.MsgRemovePhoto
	case domain.RemoveUserPhotos:
		return domain.MsgRemoveUserPhotos
	case domain.AuthToken:
		return domain.MsgAuthToken
	case domain.Control:
		return m.Type
	default:
		return ""
	}
}
