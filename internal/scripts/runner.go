// Package scripts hosts the in-process automation scripts that tools
// with provider "internal_script" resolve to.
package scripts

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"
)

// HandlerFunc is one registered automation script.
type HandlerFunc func(ctx context.Context, args map[string]interface{}) (interface{}, error)

// Runner is a registry of named scripts. Scripts run synchronously with
// the caller's deadline; a script that ignores its context still cannot
// block the caller past the deadline.
type Runner struct {
	mu       sync.RWMutex
	handlers map[string]HandlerFunc
}

// NewRunner creates an empty script registry.
func NewRunner() *Runner {
	return &Runner{handlers: make(map[string]HandlerFunc)}
}

// Register adds a script under ref, replacing any previous registration.
func (r *Runner) Register(ref string, fn HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[ref] = fn
	log.Debug().Str("script", ref).Msg("Script registered")
}

// List returns the registered script refs, sorted.
func (r *Runner) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	refs := make([]string, 0, len(r.handlers))
	for ref := range r.handlers {
		refs = append(refs, ref)
	}
	sort.Strings(refs)
	return refs
}

// Run invokes the script registered under ref. Panics inside a script
// are converted to errors; a script must never take the engine down.
func (r *Runner) Run(ctx context.Context, ref string, args map[string]interface{}) (interface{}, error) {
	r.mu.RLock()
	fn, ok := r.handlers[ref]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("script '%s' not registered", ref)
	}

	type outcome struct {
		value interface{}
		err   error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- outcome{err: fmt.Errorf("script '%s' panicked: %v", ref, rec)}
			}
		}()
		value, err := fn(ctx, args)
		done <- outcome{value: value, err: err}
	}()

	select {
	case out := <-done:
		return out.value, out.err
	case <-ctx.Done():
		return nil, fmt.Errorf("script '%s' timed out: %w", ref, ctx.Err())
	}
}
