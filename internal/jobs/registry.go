package jobs

import (
	"bitwise74/account-api/internal/model"
	"context"
	"fmt"
	"slices"
	"sync"
)

type HandlerFunc func(ctx context.Context, payload []byte) error

// Executor runs a single claimed job.
type Executor interface {
	Execute(ctx context.Context, job *model.Job) error
}

// Registry maps job kinds to handlers. It is the local Executor.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]HandlerFunc
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]HandlerFunc)}
}

func (r *Registry) Handle(kind string, h HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.handlers[kind] = h
}

func (r *Registry) Run(ctx context.Context, kind string, payload []byte) error {
	r.mu.RLock()
	h, ok := r.handlers[kind]
	r.mu.RUnlock()

	if !ok {
		return Permanent(fmt.Errorf("%w for %q", ErrNoHandler, kind))
	}

	return h(ctx, payload)
}

func (r *Registry) Execute(ctx context.Context, job *model.Job) error {
	return r.Run(ctx, job.Kind, job.Payload)
}

// Kinds returns the registered kinds in sorted order.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]string, 0, len(r.handlers))
	for k := range r.handlers {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)

	return kinds
}
