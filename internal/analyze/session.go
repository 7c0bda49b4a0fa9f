// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package analyze

import (
	"context"
	"errors"
	"sync"
)

// ErrSuperseded reports a result discarded because a newer request began
// on the same session.
var ErrSuperseded = errors.New("result superseded by a newer request")

// Session tracks the latest request for one user. Starting a request
// cancels the previous one, and a result that arrives after it was
// superseded is discarded.
type Session struct {
	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc

	// OnSuperseded, if set, is called for every discarded result.
	OnSuperseded func()
}

// Begin starts a new request derived from ctx and cancels the previous
// one. The returned func reports whether the request is still current;
// call it once the result is in hand. The caller must call release when
// done.
func (s *Session) Begin(ctx context.Context) (reqCtx context.Context, current func() bool, release func()) {
	reqCtx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.gen++
	gen := s.gen
	s.cancel = cancel
	s.mu.Unlock()

	current = func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.gen == gen
	}
	release = func() {
		s.mu.Lock()
		if s.gen == gen {
			s.cancel = nil
		}
		s.mu.Unlock()
		cancel()
	}
	return reqCtx, current, release
}

// Cancel abandons whatever request is in flight without starting a new one.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.gen++
}

// Run executes op as the session's latest request. If another request
// starts before op returns, Run returns ErrSuperseded and op's result is
// dropped.
func Run[T any](ctx context.Context, s *Session, op func(context.Context) (T, error)) (T, error) {
	var zero T
	reqCtx, current, release := s.Begin(ctx)
	defer release()

	v, err := op(reqCtx)
	if !current() {
		if s.OnSuperseded != nil {
			s.OnSuperseded()
		}
		return zero, ErrSuperseded
	}
	return v, err
}
