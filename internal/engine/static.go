package engine

import (
	"context"
	"sync"
)

// Static is an Engine that replays a fixed result. It backs pipeline and
// server tests, and records the options of every call so tests can assert
// how the orchestrator drives the engine.
type Static struct {
	Result *Result
	Err    error

	mu    sync.Mutex
	calls []Options
}

// Recognize returns the configured result or error.
func (s *Static) Recognize(ctx context.Context, _ []byte, opts Options) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.calls = append(s.calls, opts)
	s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Result, nil
}

// Calls returns a copy of the recorded call options.
func (s *Static) Calls() []Options {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Options, len(s.calls))
	copy(out, s.calls)
	return out
}
