// internal/service/auth/token.go

package auth

import (
	"context"
	"errors"
	"sync"

	"github.com/koo5/hillview-sub009/internal/domain/worker"
)

// ErrNoPendingRequest is returned when a token response arrives with no
// outstanding request to resolve.
var ErrNoPendingRequest = errors.New("no pending token request")

// pendingRequest is resolved exactly once; done is closed after token/err
// are set so every waiter observes the same result.
type pendingRequest struct {
	done  chan struct{}
	token string
	err   error
}

// TokenManager correlates token requests to the host with their responses.
// At most one request is outstanding at a time: concurrent callers share the
// pending result instead of issuing duplicate requests. Round-trip deadlines
// are the caller's responsibility, enforced through the context.
type TokenManager struct {
	emitter worker.Emitter

	mu      sync.Mutex
	pending *pendingRequest
}

// NewTokenManager creates a token manager that requests tokens through the
// given emitter.
func NewTokenManager(emitter worker.Emitter) *TokenManager {
	return &TokenManager{emitter: emitter}
}

// Token returns a credential token from the host, issuing a getAuthToken
// request unless one is already outstanding.
func (m *TokenManager) Token(ctx context.Context, forceRefresh bool) (string, error) {
	m.mu.Lock()
	req := m.pending
	if req == nil {
		req = &pendingRequest{done: make(chan struct{})}
		m.pending = req
		m.emitter.Emit(worker.GetAuthToken{
			Type:         worker.MsgGetAuthToken,
			ForceRefresh: forceRefresh,
		})
	}
	m.mu.Unlock()

	select {
	case <-req.done:
		return req.token, req.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Resolve completes the outstanding request with a token. The next Token
// call issues a fresh request.
func (m *TokenManager) Resolve(token string) error {
	return m.finish(token, nil)
}

// Reject fails the outstanding request. The next Token call issues a fresh
// request.
func (m *TokenManager) Reject(err error) error {
	return m.finish("", err)
}

func (m *TokenManager) finish(token string, err error) error {
	m.mu.Lock()
	req := m.pending
	m.pending = nil
	m.mu.Unlock()

	if req == nil {
		return ErrNoPendingRequest
	}

	req.token = token
	req.err = err
	close(req.done)
	return nil
}
